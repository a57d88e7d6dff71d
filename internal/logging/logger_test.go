package logging

import (
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    zapcore.Level
		wantErr bool
	}{
		{"debug", zapcore.DebugLevel, false},
		{"info", zapcore.InfoLevel, false},
		{"warn", zapcore.WarnLevel, false},
		{"error", zapcore.ErrorLevel, false},
		{"verbose", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitializeSilentByDefault(t *testing.T) {
	t.Setenv(LogLevelEnvVar, "")
	if err := Initialize(""); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if GetLogger().Core().Enabled(zapcore.ErrorLevel) {
		t.Error("logger should be a no-op without a level")
	}
}

func TestLogFrame(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	SetLogger(zap.New(core))
	defer SetLogger(nil)

	LogFrame("rx", 0xDC, []byte{0xF1, 0x02, 0x01, 0x00})

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["addr"] != "0xDC" {
		t.Errorf("addr = %v, want 0xDC", fields["addr"])
	}
	if fields["opcode"] != "0xF1" {
		t.Errorf("opcode = %v, want 0xF1", fields["opcode"])
	}
	if fields["hex"] != "f1020100" {
		t.Errorf("hex = %v, want f1020100", fields["hex"])
	}
}

func TestHexDumpTruncates(t *testing.T) {
	if got := hexDump(nil); got != "" {
		t.Errorf("hexDump(nil) = %q, want empty", got)
	}
	got := hexDump(make([]byte, maxDumpBytes+1))
	if want := 2*maxDumpBytes + 3; len(got) != want {
		t.Errorf("len(hexDump()) = %d, want %d", len(got), want)
	}
	if !strings.HasSuffix(got, "...") {
		t.Errorf("hexDump() = %q, want ... suffix", got[len(got)-8:])
	}
}

package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestClampWidth(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{10, MinTerminalWidth},
		{80, 80},
		{200, MaxContentWidth},
	}
	for _, tt := range tests {
		if got := ClampWidth(tt.in); got != tt.want {
			t.Errorf("ClampWidth(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestResultKeepsDetailOrder(t *testing.T) {
	out := NewSuccessResult("Connected",
		Detail{Key: "Port", Value: "/dev/ttyUSB0"},
		Detail{Key: "Address", Value: "0x01"},
		Detail{Key: "Peer", Value: "0xDC"},
	).SetWidth(80).Render()

	for _, want := range []string{"SUCCESS", "Connected", "/dev/ttyUSB0", "0xDC"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
	if strings.Index(out, "Port:") > strings.Index(out, "Address:") ||
		strings.Index(out, "Address:") > strings.Index(out, "Peer:") {
		t.Errorf("details out of order:\n%s", out)
	}
}

func TestFailureResult(t *testing.T) {
	out := NewFailureResult("Command failed", errors.New("not connected"), []string{"Connect first"}).
		SetWidth(80).Render()
	for _, want := range []string{"FAILED", "Error: not connected", "Troubleshooting:", "Connect first"} {
		if !strings.Contains(out, want) {
			t.Errorf("Render() missing %q:\n%s", want, out)
		}
	}
}

func TestHeader(t *testing.T) {
	out := NewHeader("Serial ports", "watering-bridge ports").SetWidth(70).Render()
	if !strings.Contains(out, "SERIAL PORTS") {
		t.Errorf("title not upper-cased:\n%s", out)
	}
	if !strings.Contains(out, "watering-bridge ports") {
		t.Errorf("command missing:\n%s", out)
	}
}

func TestRenderTable(t *testing.T) {
	out := RenderTable(
		[]string{"PORT", "VID:PID"},
		[][]string{
			{"/dev/ttyUSB0", "0403:6001"},
			{"/dev/ttyACM10", "2341:0043"},
		},
	)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3:\n%s", len(lines), out)
	}
	col := strings.Index(lines[0], "VID:PID")
	if !strings.HasPrefix(lines[1][col:], "0403:6001") || !strings.HasPrefix(lines[2][col:], "2341:0043") {
		t.Errorf("columns misaligned:\n%s", out)
	}
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"", false},
	}

	for _, tt := range tests {
		var out bytes.Buffer
		p := NewPrinter(&out).SetWidth(70)
		if got := p.Confirm(strings.NewReader(tt.input), "Overwrite config", []string{"file exists"}); got != tt.want {
			t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
		}
		if !strings.Contains(out.String(), "Overwrite config") {
			t.Errorf("warning box not printed for %q", tt.input)
		}
	}
}

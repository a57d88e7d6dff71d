package protocol

import (
	"bytes"
	"testing"
)

func TestFormatFrame(t *testing.T) {
	tests := []struct {
		data []byte
		want string
	}{
		{[]byte{0xF1, 0x02, 0x01, 0x00}, "F1 02 01 00"},
		{[]byte{0x65, 0xff, 0xff, 0x01, 0xff}, "65 FF FF 01 FF"},
		{nil, ""},
	}

	for _, tt := range tests {
		if got := FormatFrame(tt.data); got != tt.want {
			t.Errorf("FormatFrame(% x) = %q, want %q", tt.data, got, tt.want)
		}
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		in      string
		want    []byte
		wantErr bool
	}{
		{"F1 02 01 00", []byte{0xF1, 0x02, 0x01, 0x00}, false},
		{"f1020100", []byte{0xF1, 0x02, 0x01, 0x00}, false},
		{"0x23:01:00", []byte{0x23, 0x01, 0x00}, false},
		{"F1 0", nil, true},
		{"zz", nil, true},
	}

	for _, tt := range tests {
		got, err := ParseFrame(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFrame(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && !bytes.Equal(got, tt.want) {
			t.Errorf("ParseFrame(%q) = % x, want % x", tt.in, got, tt.want)
		}
	}
}

func TestOpcodeName(t *testing.T) {
	if got := OpcodeName(MsgTurnChannelOnOff); got != "TurnChannelOnOff" {
		t.Errorf("OpcodeName(0x65) = %q", got)
	}
	if got := OpcodeName(0x99); got != "Unknown(0x99)" {
		t.Errorf("OpcodeName(0x99) = %q", got)
	}
}

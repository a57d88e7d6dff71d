package protocol

import "testing"

func TestVersionCompare(t *testing.T) {
	tests := []struct {
		a, b Version
		want int
	}{
		{Version{2, 1, 5}, Version210, 1},
		{Version{1, 9, 0}, Version200, -1},
		{Version220, Version220, 0},
		{Version{2, 2, 0}, Version{2, 10, 0}, -1},
		{Unknown, Version200, -1},
	}

	for _, tt := range tests {
		if got := tt.a.Compare(tt.b); got != tt.want {
			t.Errorf("%s.Compare(%s) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestVersionString(t *testing.T) {
	if got := Unknown.String(); got != "unknown" {
		t.Errorf("Unknown.String() = %q", got)
	}
	if got := (Version{2, 1, 5}).String(); got != "2.1.5" {
		t.Errorf("String() = %q, want 2.1.5", got)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{"2.2.0", Version220, false},
		{"v2.1", Version210, false},
		{"1", Version{1, 0, 0}, false},
		{"2.x.0", Unknown, true},
		{"1.2.3.4", Unknown, true},
		{"", Unknown, true},
		{"256.0.0", Unknown, true},
	}

	for _, tt := range tests {
		got, err := ParseVersion(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseVersion(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseVersion(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestSettingsSize(t *testing.T) {
	tests := []struct {
		v    Version
		want int
	}{
		{Unknown, 22},
		{Version{1, 9, 0}, 22},
		{Version200, 22},
		{Version{2, 1, 5}, 26},
		{Version220, 28},
		{Version{3, 0, 0}, 28},
	}

	for _, tt := range tests {
		if got := SettingsSize(tt.v); got != tt.want {
			t.Errorf("SettingsSize(%s) = %d, want %d", tt.v, got, tt.want)
		}
	}
}

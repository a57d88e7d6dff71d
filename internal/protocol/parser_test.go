package protocol

import (
	"encoding/binary"
	"math"
	"reflect"
	"testing"
	"time"
)

func tempFrame(temp, hum float32, extra ...byte) []byte {
	frame := []byte{MsgTempSensorData}
	frame = binary.LittleEndian.AppendUint32(frame, math.Float32bits(temp))
	frame = binary.LittleEndian.AppendUint32(frame, math.Float32bits(hum))
	return append(frame, extra...)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		version Version
		frame   []byte
		verify  func(t *testing.T, ev Event)
	}{
		{
			name:  "start",
			frame: []byte{MsgStart},
			verify: func(t *testing.T, ev Event) {
				if _, ok := ev.(SystemStarted); !ok {
					t.Errorf("event = %T, want SystemStarted", ev)
				}
			},
		},
		{
			name:    "version reply",
			version: Unknown,
			frame:   []byte{MsgVersion, 0x02, 0x01, 0x00},
			verify: func(t *testing.T, ev Event) {
				v, ok := ev.(VersionReply)
				if !ok {
					t.Fatalf("event = %T, want VersionReply", ev)
				}
				if v.Version != Version210 {
					t.Errorf("version = %s, want 2.1.0", v.Version)
				}
			},
		},
		{
			name:  "battery",
			frame: []byte{MsgBattery, 87, 0xFF, 0x03},
			verify: func(t *testing.T, ev Event) {
				b, ok := ev.(Battery)
				if !ok {
					t.Fatalf("event = %T, want Battery", ev)
				}
				if b.Percent != 87 || b.Raw != 1023 || b.Volt != 5 {
					t.Errorf("battery = %+v, want 87%% 1023 5V", b)
				}
			},
		},
		{
			name:  "sensor values",
			frame: []byte{MsgSensorValues, 0x00, 0x02, 0x00, 0x00, 0xFF, 0x03, 0x66, 0x00},
			verify: func(t *testing.T, ev Event) {
				s, ok := ev.(SensorValues)
				if !ok {
					t.Fatalf("event = %T, want SensorValues", ev)
				}
				want := [Channels]uint16{512, 0, 1023, 102}
				if s.Raw != want {
					t.Errorf("raw = %v, want %v", s.Raw, want)
				}
				wantVolt := [Channels]float64{2.5, 0, 5, 0.5}
				if s.Volt != wantVolt {
					t.Errorf("volt = %v, want %v", s.Volt, wantVolt)
				}
			},
		},
		{
			name:    "channel state",
			version: Version200,
			frame:   []byte{MsgChannelState, 0x00, 0x01, 0x00, 0x01},
			verify: func(t *testing.T, ev Event) {
				s, ok := ev.(ChannelState)
				if !ok {
					t.Fatalf("event = %T, want ChannelState", ev)
				}
				if s.On != [Channels]bool{false, true, false, true} {
					t.Errorf("on = %v", s.On)
				}
			},
		},
		{
			name:  "legacy channel on",
			frame: []byte{MsgChannelOn, 0x02},
			verify: func(t *testing.T, ev Event) {
				if c, ok := ev.(ChannelOn); !ok || c.Channel != 2 {
					t.Errorf("event = %v, want ChannelOn{2}", ev)
				}
			},
		},
		{
			name:  "legacy channel off out of range",
			frame: []byte{MsgChannelOff, 0x04},
			verify: func(t *testing.T, ev Event) {
				if _, ok := ev.(NoOp); !ok {
					t.Errorf("event = %T, want NoOp", ev)
				}
			},
		},
		{
			name:  "pong",
			frame: []byte{MsgPong, 1, 2, 3, 4},
			verify: func(t *testing.T, ev Event) {
				p, ok := ev.(PongReply)
				if !ok || p.Payload != [PingPayloadSize]byte{1, 2, 3, 4} {
					t.Errorf("event = %v, want PongReply{01 02 03 04}", ev)
				}
			},
		},
		{
			name:  "unknown opcode",
			frame: []byte{0x99, 0x01},
			verify: func(t *testing.T, ev Event) {
				n, ok := ev.(NoOp)
				if !ok {
					t.Fatalf("event = %T, want NoOp", ev)
				}
				if n.Opcode != 0x99 {
					t.Errorf("opcode = 0x%02x, want 0x99", n.Opcode)
				}
			},
		},
		{
			name:  "empty frame",
			frame: []byte{},
			verify: func(t *testing.T, ev Event) {
				if _, ok := ev.(NoOp); !ok {
					t.Errorf("event = %T, want NoOp", ev)
				}
			},
		},
		{
			name:  "short battery",
			frame: []byte{MsgBattery, 50},
			verify: func(t *testing.T, ev Event) {
				if _, ok := ev.(NoOp); !ok {
					t.Errorf("event = %T, want NoOp", ev)
				}
			},
		},
		{
			name:    "settings too short for version",
			version: Version220,
			frame:   append([]byte{MsgSettings}, make([]byte, SettingsSizeLink-1)...),
			verify: func(t *testing.T, ev Event) {
				if _, ok := ev.(NoOp); !ok {
					t.Errorf("event = %T, want NoOp", ev)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.verify(t, Decode(tt.version, tt.frame))
		})
	}
}

func TestDecodeTempSensorData(t *testing.T) {
	full := tempFrame(21.34, 55.56)

	tests := []struct {
		name       string
		version    Version
		frame      []byte
		wantTemp   *float64
		wantHum    *float64
		wantSwitch *bool
	}{
		{"opcode only", Version220, full[:1], nil, nil, nil},
		{"truncated temperature", Version220, full[:4], nil, nil, nil},
		{"temperature only", Version220, full[:5], ptr(21.3), nil, nil},
		{"temperature and switch", Version220, append(append([]byte{}, full[:5]...), 0x01), ptr(21.3), nil, ptr(true)},
		{"switch ignored before 2.2.0", Version210, append(append([]byte{}, full[:5]...), 0x01), ptr(21.3), nil, nil},
		{"temperature and humidity", Version220, full, ptr(21.3), ptr(55.6), nil},
		{"all fields", Version220, tempFrame(-3.25, 80, 0x00), ptr(-3.2), ptr(80.0), ptr(false)},
		{"positive half rounds up", Version220, tempFrame(21.25, 40.75, 0x01), ptr(21.3), ptr(40.8), ptr(true)},
		{"negative half rounds up", Version220, tempFrame(-0.75, 0, 0x00), ptr(-0.7), ptr(0.0), ptr(false)},
		{"all fields before 2.2.0", Version200, tempFrame(19, 40, 0x01), ptr(19.0), ptr(40.0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, ok := Decode(tt.version, tt.frame).(TempSensorData)
			if !ok {
				t.Fatalf("event is not TempSensorData")
			}
			if !reflect.DeepEqual(ev.Temperature, tt.wantTemp) {
				t.Errorf("temperature = %v, want %v", deref(ev.Temperature), deref(tt.wantTemp))
			}
			if !reflect.DeepEqual(ev.Humidity, tt.wantHum) {
				t.Errorf("humidity = %v, want %v", deref(ev.Humidity), deref(tt.wantHum))
			}
			if !reflect.DeepEqual(ev.TempSwitchOn, tt.wantSwitch) {
				t.Errorf("tempSwitchOn = %v, want %v", deref(ev.TempSwitchOn), deref(tt.wantSwitch))
			}
		})
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, v := range []Version{{1, 9, 0}, Version200, Version{2, 1, 5}, Version220, {2, 3, 1}} {
		t.Run(v.String(), func(t *testing.T) {
			in := sampleSettings()
			frame, err := EncodeSettings(v, in)
			if err != nil {
				t.Fatalf("EncodeSettings() error = %v", err)
			}

			// controller answers with the same layout under the SETTINGS opcode
			frame[0] = MsgSettings
			ev, ok := DecodeAt(v, frame, at).(SettingsReceived)
			if !ok {
				t.Fatalf("event is not SettingsReceived")
			}

			want := in.Normalize(v)
			want.ReceivedAt = at
			if !reflect.DeepEqual(ev.Settings, want) {
				t.Errorf("settings = %+v, want %+v", ev.Settings, want)
			}
		})
	}
}

func TestSettingsNormalize(t *testing.T) {
	s := DefaultSettings()

	legacy := s.Normalize(Version{1, 0, 0})
	if legacy.Push != nil || legacy.Link != nil || legacy.TempSwitch != nil {
		t.Error("legacy settings should carry no optional blocks")
	}

	s.Link = nil
	v21 := s.Normalize(Version210)
	if v21.Link == nil || *v21.Link != defaultLink {
		t.Errorf("link = %v, want defaults", v21.Link)
	}
	if v21.TempSwitch != nil {
		t.Error("2.1.0 settings should not carry the temp switch block")
	}

	// Normalize must not alias the source blocks
	full := DefaultSettings()
	n := full.Normalize(Version220)
	n.Push.Enabled = false
	if !full.Push.Enabled {
		t.Error("Normalize() shares the push block with its receiver")
	}
}

func TestAdcVolt(t *testing.T) {
	tests := []struct {
		raw  uint16
		want float64
	}{
		{0, 0},
		{1023, 5},
		{512, 2.5},
		{300, 1.47},
	}
	for _, tt := range tests {
		if got := AdcVolt(tt.raw); got != tt.want {
			t.Errorf("AdcVolt(%d) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestHysteresisTenths(t *testing.T) {
	if got, err := HysteresisTenths(1.5); err != nil || got != 15 {
		t.Errorf("HysteresisTenths(1.5) = %d, %v", got, err)
	}
	if _, err := HysteresisTenths(30); err == nil {
		t.Error("HysteresisTenths(30) should fail")
	}
	if _, err := HysteresisTenths(-0.5); err == nil {
		t.Error("HysteresisTenths(-0.5) should fail")
	}
}

func ptr[T any](v T) *T { return &v }

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

package protocol

import (
	"fmt"
	"math"
	"time"
)

// Settings frame sizes including the opcode byte.
const (
	SettingsSizeLegacy     = 22 // < 2.1.0
	SettingsSizeLink       = 26 // 2.1.x
	SettingsSizeTempSwitch = 28 // >= 2.2.0
)

// flag bits of settings byte 1
const (
	flagTempSwitchInverted = 1 << 5
	flagPushData           = 1 << 6
	flagSendAdcValues      = 1 << 7
)

// ChannelSettings holds the automatic watering parameters of one valve channel.
type ChannelSettings struct {
	Enabled         bool   `json:"enabled"`
	AdcTriggerValue uint16 `json:"adcTriggerValue"`
	WateringTime    uint16 `json:"wateringTime"` // seconds
}

// PushSettings exist on firmware >= 2.0.0.
type PushSettings struct {
	Enabled bool `json:"enabled"`
}

// LinkSettings exist on firmware >= 2.1.0.
type LinkSettings struct {
	ServerAddress  Address `json:"serverAddress"`
	NodeAddress    Address `json:"nodeAddress"`
	DelayAfterSend uint16  `json:"delayAfterSend"` // milliseconds
}

// TempSwitchSettings exist on firmware >= 2.2.0.
type TempSwitchSettings struct {
	TriggerValue     int8  `json:"triggerValue"`     // degC
	HysteresisTenths uint8 `json:"hysteresisTenths"` // 0.1 degC steps
	Inverted         bool  `json:"inverted"`
}

// Hysteresis returns the hysteresis in degrees.
func (t TempSwitchSettings) Hysteresis() float64 {
	return float64(t.HysteresisTenths) / 10
}

// HysteresisTenths converts a hysteresis in degrees to the wire representation.
func HysteresisTenths(deg float64) (uint8, error) {
	v := math.Round(deg * 10)
	if v < 0 || v > math.MaxUint8 {
		return 0, fmt.Errorf("hysteresis %.1f out of range (0 - 25.5)", deg)
	}
	return uint8(v), nil
}

// Settings is the controller configuration. The optional blocks are only
// meaningful for firmware at or above their minimum version; a nil block means
// the field set is absent.
type Settings struct {
	Channels           [Channels]ChannelSettings `json:"channels"`
	CheckInterval      uint16                    `json:"checkInterval"`      // seconds
	TempSensorInterval uint16                    `json:"tempSensorInterval"` // seconds
	SendAdcValues      bool                      `json:"sendAdcValues"`

	Push       *PushSettings       `json:"push,omitempty"`
	Link       *LinkSettings       `json:"link,omitempty"`
	TempSwitch *TempSwitchSettings `json:"tempSwitch,omitempty"`

	ReceivedAt time.Time `json:"receivedAt"`
}

// optional block defaults, used when a version requires a block the caller left nil
var (
	defaultPush       = PushSettings{Enabled: true}
	defaultLink       = LinkSettings{ServerAddress: DefaultServerAddress, NodeAddress: DefaultNodeAddress, DelayAfterSend: 10}
	defaultTempSwitch = TempSwitchSettings{TriggerValue: 25, HysteresisTenths: 10, Inverted: false}
)

// DefaultSettings returns the factory settings of the controller firmware.
func DefaultSettings() Settings {
	s := Settings{
		CheckInterval:      300,
		TempSensorInterval: 60,
		SendAdcValues:      true,
	}
	for i := range s.Channels {
		s.Channels[i] = ChannelSettings{
			Enabled:         i == 0,
			AdcTriggerValue: 512,
			WateringTime:    5,
		}
	}
	return s.Normalize(Version220)
}

// Normalize returns a copy of s holding exactly the optional blocks that exist
// for version v: missing blocks are filled from the defaults, blocks the
// version does not know are dropped.
func (s Settings) Normalize(v Version) Settings {
	out := s.Clone()
	out.Push = gate(v.AtLeast(Version200), out.Push, defaultPush)
	out.Link = gate(v.AtLeast(Version210), out.Link, defaultLink)
	out.TempSwitch = gate(v.AtLeast(Version220), out.TempSwitch, defaultTempSwitch)
	return out
}

func gate[T any](present bool, cur *T, def T) *T {
	if !present {
		return nil
	}
	if cur == nil {
		return &def
	}
	return cur
}

// Clone returns a deep copy.
func (s Settings) Clone() Settings {
	out := s
	if s.Push != nil {
		p := *s.Push
		out.Push = &p
	}
	if s.Link != nil {
		l := *s.Link
		out.Link = &l
	}
	if s.TempSwitch != nil {
		t := *s.TempSwitch
		out.TempSwitch = &t
	}
	return out
}

// Validate checks the fields that the wire format cannot carry.
func (s Settings) Validate() error {
	if s.Link != nil {
		if !s.Link.ServerAddress.Valid() {
			return fmt.Errorf("invalid server address %s", s.Link.ServerAddress)
		}
		if !s.Link.NodeAddress.Valid() {
			return fmt.Errorf("invalid node address %s", s.Link.NodeAddress)
		}
	}
	return nil
}

// SettingsSize returns the length of a settings frame for version v.
func SettingsSize(v Version) int {
	switch {
	case v.AtLeast(Version220):
		return SettingsSizeTempSwitch
	case v.AtLeast(Version210):
		return SettingsSizeLink
	default:
		return SettingsSizeLegacy
	}
}

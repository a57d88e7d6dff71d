package store

import (
	"github.com/muurk/watering/internal/protocol"
)

// ChannelStatus is the last known state of one valve channel.
type ChannelStatus struct {
	On      bool    `json:"on"`
	AdcRaw  uint16  `json:"adcRaw"`
	AdcVolt float64 `json:"adcVolt"`
}

// BatteryStatus is the last reported battery level.
type BatteryStatus struct {
	Percent uint8   `json:"percent"`
	Raw     uint16  `json:"raw"`
	Volt    float64 `json:"volt"`
}

// Status is the last known device status. It is built up field by field as
// frames arrive and never replaced as a whole while connected.
type Status struct {
	Channels     [protocol.Channels]ChannelStatus `json:"channels"`
	Battery      BatteryStatus                    `json:"battery"`
	Temperature  *float64                         `json:"temperature"`
	Humidity     *float64                         `json:"humidity"`
	TempSwitchOn bool                             `json:"tempSwitchOn"`
}

func (s Status) clone() Status {
	out := s
	if s.Temperature != nil {
		v := *s.Temperature
		out.Temperature = &v
	}
	if s.Humidity != nil {
		v := *s.Humidity
		out.Humidity = &v
	}
	return out
}

// StatusDelta holds the status fields carried by one decoded frame. Nil
// fields are left untouched when the delta is applied.
type StatusDelta struct {
	On           [protocol.Channels]*bool
	AdcRaw       *[protocol.Channels]uint16
	Battery      *BatteryStatus
	Temperature  *float64
	Humidity     *float64
	TempSwitchOn *bool
}

// Empty reports whether the delta changes nothing.
func (d StatusDelta) Empty() bool {
	for _, on := range d.On {
		if on != nil {
			return false
		}
	}
	return d.AdcRaw == nil && d.Battery == nil && d.Temperature == nil &&
		d.Humidity == nil && d.TempSwitchOn == nil
}

// ChannelChange is a valve transition caused by applying a delta.
type ChannelChange struct {
	Channel uint8
	On      bool
}

// DeltaFromEvent extracts the status fields of a decoded event. ok is false
// for events that carry no status.
func DeltaFromEvent(ev protocol.Event) (d StatusDelta, ok bool) {
	switch e := ev.(type) {
	case protocol.Battery:
		d.Battery = &BatteryStatus{Percent: e.Percent, Raw: e.Raw, Volt: e.Volt}
	case protocol.SensorValues:
		raw := e.Raw
		d.AdcRaw = &raw
	case protocol.TempSensorData:
		d.Temperature = e.Temperature
		d.Humidity = e.Humidity
		d.TempSwitchOn = e.TempSwitchOn
	case protocol.ChannelOn:
		on := true
		d.On[e.Channel] = &on
	case protocol.ChannelOff:
		off := false
		d.On[e.Channel] = &off
	case protocol.ChannelState:
		for i := range e.On {
			on := e.On[i]
			d.On[i] = &on
		}
	default:
		return d, false
	}
	return d, true
}

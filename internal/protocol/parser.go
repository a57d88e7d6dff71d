package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
	"time"
)

// Event is a decoded inbound frame. The set of implementations is closed;
// consumers type-switch over the concrete types below.
type Event interface {
	String() string
	event()
}

// NoOp is returned for unknown opcodes and for frames too short for their
// opcode. It is not an error.
type NoOp struct {
	Opcode byte
	Reason string
}

// SystemStarted is sent once by the controller after boot.
type SystemStarted struct{}

// Battery reports the battery level.
type Battery struct {
	Percent uint8
	Raw     uint16
	Volt    float64
}

// SensorValues reports the soil moisture ADC reading of every channel.
type SensorValues struct {
	Raw  [Channels]uint16
	Volt [Channels]float64
}

// TempSensorData reports temperature and humidity. Every field is optional
// and depends on the frame length.
type TempSensorData struct {
	Temperature  *float64
	Humidity     *float64
	TempSwitchOn *bool
}

// ChannelOn is the legacy (< 2.0.0) notification that a valve opened.
type ChannelOn struct {
	Channel uint8
}

// ChannelOff is the legacy (< 2.0.0) notification that a valve closed.
type ChannelOff struct {
	Channel uint8
}

// ChannelState carries the state of all valves (>= 2.0.0).
type ChannelState struct {
	On [Channels]bool
}

// SettingsReceived carries the controller settings.
type SettingsReceived struct {
	Settings Settings
}

// VersionReply answers GET_VERSION.
type VersionReply struct {
	Version Version
}

// PongReply answers PING with the echoed payload.
type PongReply struct {
	Payload [PingPayloadSize]byte
}

func (NoOp) event()             {}
func (SystemStarted) event()    {}
func (Battery) event()          {}
func (SensorValues) event()     {}
func (TempSensorData) event()   {}
func (ChannelOn) event()        {}
func (ChannelOff) event()       {}
func (ChannelState) event()     {}
func (SettingsReceived) event() {}
func (VersionReply) event()     {}
func (PongReply) event()        {}

func (e NoOp) String() string {
	return fmt.Sprintf("NoOp{opcode=0x%02x, reason=%s}", e.Opcode, e.Reason)
}

func (SystemStarted) String() string { return "SystemStarted{}" }

func (e Battery) String() string {
	return fmt.Sprintf("Battery{percent=%d, volt=%.2f, raw=%d}", e.Percent, e.Volt, e.Raw)
}

func (e SensorValues) String() string {
	parts := make([]string, Channels)
	for i := range parts {
		parts[i] = fmt.Sprintf("%.2fV (%d)", e.Volt[i], e.Raw[i])
	}
	return "SensorValues{" + strings.Join(parts, ", ") + "}"
}

func (e TempSensorData) String() string {
	var parts []string
	if e.Temperature != nil {
		parts = append(parts, fmt.Sprintf("temperature=%.1f", *e.Temperature))
	}
	if e.Humidity != nil {
		parts = append(parts, fmt.Sprintf("humidity=%.1f", *e.Humidity))
	}
	if e.TempSwitchOn != nil {
		parts = append(parts, fmt.Sprintf("tempSwitch=%t", *e.TempSwitchOn))
	}
	return "TempSensorData{" + strings.Join(parts, ", ") + "}"
}

func (e ChannelOn) String() string  { return fmt.Sprintf("ChannelOn{channel=%d}", e.Channel) }
func (e ChannelOff) String() string { return fmt.Sprintf("ChannelOff{channel=%d}", e.Channel) }

func (e ChannelState) String() string {
	return fmt.Sprintf("ChannelState{%t, %t, %t, %t}", e.On[0], e.On[1], e.On[2], e.On[3])
}

func (e SettingsReceived) String() string {
	return fmt.Sprintf("SettingsReceived{checkInterval=%d, tempSensorInterval=%d}",
		e.Settings.CheckInterval, e.Settings.TempSensorInterval)
}

func (e VersionReply) String() string { return fmt.Sprintf("VersionReply{%s}", e.Version) }

func (e PongReply) String() string {
	return fmt.Sprintf("PongReply{%s}", FormatFrame(e.Payload[:]))
}

// Decode decodes an inbound frame (opcode included) for version v.
func Decode(v Version, frame []byte) Event {
	return DecodeAt(v, frame, time.Now())
}

// DecodeAt is Decode with an explicit receive time stamped on settings.
func DecodeAt(v Version, frame []byte, at time.Time) Event {
	if len(frame) == 0 {
		return NoOp{Reason: "empty frame"}
	}

	op := frame[0]
	switch op {
	case MsgStart:
		return SystemStarted{}
	case MsgBattery:
		return parseBattery(frame)
	case MsgSensorValues:
		return parseSensorValues(frame)
	case MsgTempSensorData:
		return parseTempSensorData(v, frame)
	case MsgChannelOn, MsgChannelOff:
		return parseLegacyChannel(frame)
	case MsgChannelState:
		return parseChannelState(frame)
	case MsgSettings:
		return parseSettings(v, frame, at)
	case MsgVersion:
		if len(frame) < 4 {
			return short(op, len(frame), 4)
		}
		return VersionReply{Version: Version{frame[1], frame[2], frame[3]}}
	case MsgPong:
		if len(frame) < 1+PingPayloadSize {
			return short(op, len(frame), 1+PingPayloadSize)
		}
		var p PongReply
		copy(p.Payload[:], frame[1:])
		return p
	default:
		return NoOp{Opcode: op, Reason: "unknown opcode"}
	}
}

func short(op byte, got, want int) NoOp {
	return NoOp{Opcode: op, Reason: fmt.Sprintf("%s frame too short: %d bytes (minimum %d)", OpcodeName(op), got, want)}
}

// parseBattery decodes a battery message (0x02)
//
//	[1]    percent
//	[2-3]  raw ADC value
func parseBattery(frame []byte) Event {
	if len(frame) < 4 {
		return short(MsgBattery, len(frame), 4)
	}
	raw := binary.LittleEndian.Uint16(frame[2:4])
	return Battery{Percent: frame[1], Raw: raw, Volt: AdcVolt(raw)}
}

// parseSensorValues decodes a sensor values message (0x10)
//
//	[1-8]  raw ADC value per channel
func parseSensorValues(frame []byte) Event {
	if len(frame) < 1+Channels*2 {
		return short(MsgSensorValues, len(frame), 1+Channels*2)
	}
	var ev SensorValues
	for i := 0; i < Channels; i++ {
		ev.Raw[i] = binary.LittleEndian.Uint16(frame[1+i*2:])
		ev.Volt[i] = AdcVolt(ev.Raw[i])
	}
	return ev
}

// parseTempSensorData decodes a temperature sensor message (0x20)
//
//	[1-4]  temperature float32 (frame length >= 5)
//	[5-8]  humidity float32 (frame length >= 9)
//	[5]    temp switch state when the frame is exactly 6 bytes (>= 2.2.0)
//	[9]    temp switch state when the frame is exactly 10 bytes (>= 2.2.0)
func parseTempSensorData(v Version, frame []byte) Event {
	var ev TempSensorData
	if len(frame) >= 5 {
		t := round1(float64(math.Float32frombits(binary.LittleEndian.Uint32(frame[1:5]))))
		ev.Temperature = &t
	}
	if len(frame) >= 9 {
		h := round1(float64(math.Float32frombits(binary.LittleEndian.Uint32(frame[5:9]))))
		ev.Humidity = &h
	}
	if v.AtLeast(Version220) {
		switch len(frame) {
		case 6:
			on := frame[5] != 0
			ev.TempSwitchOn = &on
		case 10:
			on := frame[9] != 0
			ev.TempSwitchOn = &on
		}
	}
	return ev
}

func parseLegacyChannel(frame []byte) Event {
	op := frame[0]
	if len(frame) < 2 {
		return short(op, len(frame), 2)
	}
	ch := frame[1]
	if int(ch) >= Channels {
		return NoOp{Opcode: op, Reason: fmt.Sprintf("channel %d out of range", ch)}
	}
	if op == MsgChannelOn {
		return ChannelOn{Channel: ch}
	}
	return ChannelOff{Channel: ch}
}

// parseChannelState decodes a channel state message (0x23)
//
//	[1-4]  0x00 off / 0x01 on, per channel
func parseChannelState(frame []byte) Event {
	if len(frame) < 1+Channels {
		return short(MsgChannelState, len(frame), 1+Channels)
	}
	var ev ChannelState
	for i := 0; i < Channels; i++ {
		ev.On[i] = frame[1+i] == channelStateOn
	}
	return ev
}

// parseSettings decodes a settings message (0x50). It mirrors EncodeSettings:
// only fields known to version v are read.
func parseSettings(v Version, frame []byte, at time.Time) Event {
	size := SettingsSize(v)
	if len(frame) < size {
		return short(MsgSettings, len(frame), size)
	}

	flags := frame[1]
	s := Settings{ReceivedAt: at}
	for ch := 0; ch < Channels; ch++ {
		s.Channels[ch] = ChannelSettings{
			Enabled:         flags&(1<<ch) != 0,
			AdcTriggerValue: binary.LittleEndian.Uint16(frame[2+ch*2:]),
			WateringTime:    binary.LittleEndian.Uint16(frame[10+ch*2:]),
		}
	}
	s.SendAdcValues = flags&flagSendAdcValues != 0
	s.CheckInterval = binary.LittleEndian.Uint16(frame[18:])
	s.TempSensorInterval = binary.LittleEndian.Uint16(frame[20:])

	if v.AtLeast(Version200) {
		s.Push = &PushSettings{Enabled: flags&flagPushData != 0}
	}
	if v.AtLeast(Version210) {
		s.Link = &LinkSettings{
			ServerAddress:  Address(frame[22]),
			NodeAddress:    Address(frame[23]),
			DelayAfterSend: binary.LittleEndian.Uint16(frame[24:]),
		}
	}
	if v.AtLeast(Version220) {
		s.TempSwitch = &TempSwitchSettings{
			TriggerValue:     int8(frame[26]),
			HysteresisTenths: frame[27],
			Inverted:         flags&flagTempSwitchInverted != 0,
		}
	}
	return SettingsReceived{Settings: s}
}

// AdcVolt converts a 10 bit ADC reading against a 5V reference to volts,
// rounded to two decimals.
func AdcVolt(raw uint16) float64 {
	return math.Round(5.0/1023*float64(raw)*100) / 100
}

// round1 rounds to one decimal with halves rounded up, so -3.25 is -3.2.
func round1(f float64) float64 {
	return math.Floor(f*10+0.5) / 10
}

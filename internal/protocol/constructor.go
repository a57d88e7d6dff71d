package protocol

import (
	"encoding/binary"
	"fmt"
)

// Message constructors for frames sent to the controller.

// EncodeSimple builds a frame that consists of the opcode only.
// Used for CHECK_NOW, SAVE_SETTINGS, GET_SETTINGS, POLL_DATA, GET_VERSION and
// the legacy PAUSE/RESUME.
func EncodeSimple(opcode byte) []byte {
	return []byte{opcode}
}

// EncodePing builds a PING carrying four bytes the controller echoes in its PONG.
//
//	[0]    0xF2  MsgPing
//	[1-4]  payload
func EncodePing(payload [PingPayloadSize]byte) []byte {
	frame := make([]byte, 1+PingPayloadSize)
	frame[0] = MsgPing
	copy(frame[1:], payload[:])
	return frame
}

// EncodeChannelOnOff builds a command to switch one valve channel.
//
// Firmware >= 2.0.0 takes one state byte per channel; channels that should not
// change are sent as 0xFF:
//
//	[0]    0x65  MsgTurnChannelOnOff
//	[1-4]  0x00 off / 0x01 on / 0xFF ignore, per channel
//
// Older firmware uses separate opcodes:
//
//	[0]    0x61 MsgTurnChannelOn or 0x62 MsgTurnChannelOff
//	[1]    channel
func EncodeChannelOnOff(v Version, channel uint8, on bool) []byte {
	if v.AtLeast(Version200) {
		frame := []byte{MsgTurnChannelOnOff, channelStateIgnore, channelStateIgnore, channelStateIgnore, channelStateIgnore}
		if int(channel) < Channels {
			frame[1+channel] = boolByte(on)
		}
		return frame
	}
	if on {
		return []byte{MsgTurnChannelOn, channel}
	}
	return []byte{MsgTurnChannelOff, channel}
}

// EncodePauseResume builds a command that pauses or resumes the automatic
// watering. Firmware >= 2.0.0 takes a flag, older firmware a dedicated opcode.
func EncodePauseResume(v Version, pause bool) []byte {
	if v.AtLeast(Version200) {
		return []byte{MsgPauseOnOff, boolByte(pause)}
	}
	if pause {
		return EncodeSimple(MsgPause)
	}
	return EncodeSimple(MsgResume)
}

// EncodeTempSwitch builds the TEMP_SWITCH_ON_OFF command. Only firmware
// >= 2.2.0 understands it; the caller decides whether to send it.
func EncodeTempSwitch(on bool) []byte {
	return []byte{MsgTempSwitchOnOff, boolByte(on)}
}

// EncodeSettings builds a SET_SETTINGS frame for version v. The frame length
// depends on the version (see SettingsSize) and fields the version does not
// know are never written. Optional blocks left nil are filled from defaults.
func EncodeSettings(v Version, s Settings) ([]byte, error) {
	s = s.Normalize(v)
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("cannot encode settings: %w", err)
	}
	frame := make([]byte, SettingsSize(v))
	frame[0] = MsgSetSettings
	writeSettings(frame, s)
	return frame, nil
}

// writeSettings fills frame[1:] from s. The frame length selects which
// optional blocks are written.
func writeSettings(frame []byte, s Settings) {
	var flags byte
	for ch := 0; ch < Channels; ch++ {
		c := s.Channels[ch]
		if c.Enabled {
			flags |= 1 << ch
		}
		binary.LittleEndian.PutUint16(frame[2+ch*2:], c.AdcTriggerValue)
		binary.LittleEndian.PutUint16(frame[10+ch*2:], c.WateringTime)
	}
	if s.SendAdcValues {
		flags |= flagSendAdcValues
	}
	if s.Push != nil && s.Push.Enabled {
		flags |= flagPushData
	}
	if s.TempSwitch != nil && s.TempSwitch.Inverted && len(frame) >= SettingsSizeTempSwitch {
		flags |= flagTempSwitchInverted
	}
	frame[1] = flags
	binary.LittleEndian.PutUint16(frame[18:], s.CheckInterval)
	binary.LittleEndian.PutUint16(frame[20:], s.TempSensorInterval)

	if len(frame) >= SettingsSizeLink && s.Link != nil {
		frame[22] = byte(s.Link.ServerAddress)
		frame[23] = byte(s.Link.NodeAddress)
		binary.LittleEndian.PutUint16(frame[24:], s.Link.DelayAfterSend)
	}
	if len(frame) >= SettingsSizeTempSwitch && s.TempSwitch != nil {
		frame[26] = byte(s.TempSwitch.TriggerValue)
		frame[27] = s.TempSwitch.HysteresisTenths
	}
}

func boolByte(b bool) byte {
	if b {
		return 0x01
	}
	return 0x00
}

package protocol

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Messages sent by the controller
const (
	MsgStart          = 0x00
	MsgBattery        = 0x02
	MsgSensorValues   = 0x10
	MsgTempSensorData = 0x20
	MsgChannelOn      = 0x21 // < 2.0.0
	MsgChannelOff     = 0x22 // < 2.0.0
	MsgChannelState   = 0x23 // >= 2.0.0
	MsgSettings       = 0x50
	MsgVersion        = 0xF1
	MsgPong           = 0xF3
)

// Messages sent by the bridge
const (
	MsgGetSettings      = 0x51
	MsgSetSettings      = 0x52
	MsgSaveSettings     = 0x53
	MsgCheckNow         = 0x60
	MsgTurnChannelOn    = 0x61 // < 2.0.0
	MsgTurnChannelOff   = 0x62 // < 2.0.0
	MsgPause            = 0x63 // < 2.0.0
	MsgResume           = 0x64 // < 2.0.0
	MsgTurnChannelOnOff = 0x65 // >= 2.0.0
	MsgPauseOnOff       = 0x66 // >= 2.0.0
	MsgPollData         = 0x67 // >= 2.0.0
	MsgTempSwitchOnOff  = 0x68 // >= 2.2.0
	MsgGetVersion       = 0xF0
	MsgPing             = 0xF2
)

// Channels is the number of valve channels of the controller.
const Channels = 4

// PingPayloadSize is the number of random bytes carried by a ping.
const PingPayloadSize = 4

// Channel state byte values used by TURN_CHANNEL_ON_OFF and CHANNEL_STATE.
const (
	channelStateOff    = 0x00
	channelStateOn     = 0x01
	channelStateIgnore = 0xFF
)

var opcodeNames = map[byte]string{
	MsgStart:            "Start",
	MsgBattery:          "Battery",
	MsgSensorValues:     "SensorValues",
	MsgTempSensorData:   "TempSensorData",
	MsgChannelOn:        "ChannelOn",
	MsgChannelOff:       "ChannelOff",
	MsgChannelState:     "ChannelState",
	MsgSettings:         "Settings",
	MsgVersion:          "Version",
	MsgPong:             "Pong",
	MsgGetSettings:      "GetSettings",
	MsgSetSettings:      "SetSettings",
	MsgSaveSettings:     "SaveSettings",
	MsgCheckNow:         "CheckNow",
	MsgTurnChannelOn:    "TurnChannelOn",
	MsgTurnChannelOff:   "TurnChannelOff",
	MsgPause:            "Pause",
	MsgResume:           "Resume",
	MsgTurnChannelOnOff: "TurnChannelOnOff",
	MsgPauseOnOff:       "PauseOnOff",
	MsgPollData:         "PollData",
	MsgTempSwitchOnOff:  "TempSwitchOnOff",
	MsgGetVersion:       "GetVersion",
	MsgPing:             "Ping",
}

// OpcodeName returns a human-readable name for an opcode.
func OpcodeName(op byte) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Unknown(0x%02x)", op)
}

// FormatFrame renders a frame the way it is shown in the bridge log,
// e.g. "F1 02 01 00".
func FormatFrame(data []byte) string {
	return strings.ToUpper(strings.Join(splitHex(data), " "))
}

// ParseFrame is the inverse of FormatFrame. Separators are optional.
func ParseFrame(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "-", "", "\t", "", "\n", "").Replace(s)
	clean = strings.TrimPrefix(strings.TrimPrefix(clean, "0x"), "0X")
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid frame hex: %w", err)
	}
	return data, nil
}

func splitHex(data []byte) []string {
	out := make([]string, len(data))
	for i, b := range data {
		out[i] = hex.EncodeToString([]byte{b})
	}
	return out
}

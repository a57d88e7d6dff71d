// Package protocol implements the binary message format spoken by the watering
// controller over the radio link.
//
// This package handles construction of outbound command frames and decoding of
// inbound frames into typed events. It is pure: no I/O, no clocks beyond the
// timestamp handed to it, and no shared state.
//
// # Frame Layout
//
// Every frame is a single radio datagram whose first byte is the opcode:
//   - Byte 0: opcode (see the Msg* constants)
//   - Bytes 1+: opcode specific payload, fixed layout
//   - All multi-byte integers are little-endian
//   - Floats (temperature, humidity) are IEEE-754 float32, little-endian
//
// # Versioning
//
// The wire format changed between controller firmware releases. The bridge learns
// the firmware version with a GET_VERSION/VERSION exchange and passes it to every
// encode and decode call:
//   - < 2.0.0: legacy channel on/off and pause/resume opcodes, 22 byte settings
//   - 2.0.0: channel state frames, pause flag frame, poll, push-data flag
//   - 2.1.0: radio addresses and send delay in settings (26 bytes)
//   - 2.2.0: temperature switch (settings grow to 28 bytes)
//
// Until a version is known the zero Version is used, which selects the legacy
// layout.
//
// # Settings Frame
//
//	[0]      opcode (SETTINGS inbound, SET_SETTINGS outbound)
//	[1]      flags: bit0-3 channel enabled, bit5 temp switch inverted (>=2.2.0),
//	         bit6 push data (>=2.0.0), bit7 send ADC values
//	[2-9]    ADC trigger value per channel (uint16 x4)
//	[10-17]  watering time per channel in seconds (uint16 x4)
//	[18-19]  check interval in seconds
//	[20-21]  temperature sensor interval in seconds
//	[22]     server address (>=2.1.0)
//	[23]     node address (>=2.1.0)
//	[24-25]  delay after send in ms (>=2.1.0)
//	[26]     temp switch trigger in degC, signed (>=2.2.0)
//	[27]     temp switch hysteresis in tenths of a degree (>=2.2.0)
//
// # Usage Example - Construction
//
//	frame := protocol.EncodeChannelOnOff(version, 2, true)
//	err := transport.Send(ctx, peer, frame)
//
// # Usage Example - Decoding
//
//	switch ev := protocol.Decode(version, data).(type) {
//	case protocol.VersionReply:
//	    version = ev.Version
//	case protocol.Battery:
//	    fmt.Printf("battery %d%% %.2fV\n", ev.Percent, ev.Volt)
//	case protocol.NoOp:
//	    // unknown opcode or short frame, ignored
//	}
//
// # Error Handling
//
// Decoding never fails. Unknown opcodes and frames too short for their opcode
// decode to NoOp so that newer firmware can add messages without breaking the
// bridge. Encoding only fails for settings that cannot be represented, which the
// caller is expected to validate beforehand.
//
// # Thread Safety
//
// All functions are stateless and safe for concurrent use.
package protocol

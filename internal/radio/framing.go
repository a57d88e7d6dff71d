package radio

import (
	"bufio"
	"errors"
	"fmt"
)

// Serial framing of one datagram:
//
//	DLE STX | to from id flags payload crc_lo crc_hi | DLE ETX
//
// Every DLE inside the body is doubled. The CRC covers the unescaped header
// and payload.
const (
	dle = 0x10
	stx = 0x02
	etx = 0x03
)

// Header flags.
const (
	flagAck byte = 0x80
)

// MaxPayload is the largest payload a datagram carries.
const MaxPayload = 60

var errBadFrame = errors.New("malformed frame")

type datagram struct {
	to      byte
	from    byte
	id      byte
	flags   byte
	payload []byte
}

func (d datagram) isAck() bool {
	return d.flags&flagAck != 0
}

// encodeFrame renders d with framing, escaping and CRC.
func encodeFrame(d datagram) []byte {
	body := make([]byte, 0, 4+len(d.payload)+2)
	body = append(body, d.to, d.from, d.id, d.flags)
	body = append(body, d.payload...)
	crc := crc16(0xFFFF, body)
	body = append(body, byte(crc), byte(crc>>8))

	out := make([]byte, 0, len(body)*2+4)
	out = append(out, dle, stx)
	for _, b := range body {
		if b == dle {
			out = append(out, dle)
		}
		out = append(out, b)
	}
	return append(out, dle, etx)
}

// readFrame reads the next datagram from r, skipping noise before DLE STX.
// A frame with a bad CRC or a short body returns errBadFrame; the caller may
// keep reading.
func readFrame(r *bufio.Reader) (datagram, error) {
	// hunt for DLE STX
	for {
		b, err := r.ReadByte()
		if err != nil {
			return datagram{}, err
		}
		if b != dle {
			continue
		}
		b, err = r.ReadByte()
		if err != nil {
			return datagram{}, err
		}
		if b == stx {
			break
		}
	}

	var body []byte
	for {
		if len(body) > 4+MaxPayload+2 {
			return datagram{}, fmt.Errorf("%w: frame too long", errBadFrame)
		}
		b, err := r.ReadByte()
		if err != nil {
			return datagram{}, err
		}
		if b != dle {
			body = append(body, b)
			continue
		}
		next, err := r.ReadByte()
		if err != nil {
			return datagram{}, err
		}
		switch next {
		case dle:
			body = append(body, dle)
		case etx:
			return parseBody(body)
		case stx:
			// restart inside a broken frame
			body = body[:0]
		default:
			return datagram{}, fmt.Errorf("%w: unexpected escape 0x%02X", errBadFrame, next)
		}
	}
}

func parseBody(body []byte) (datagram, error) {
	if len(body) < 6 {
		return datagram{}, fmt.Errorf("%w: %d bytes", errBadFrame, len(body))
	}
	n := len(body) - 2
	want := uint16(body[n]) | uint16(body[n+1])<<8
	if got := crc16(0xFFFF, body[:n]); got != want {
		return datagram{}, fmt.Errorf("%w: crc 0x%04X, want 0x%04X", errBadFrame, got, want)
	}
	payload := make([]byte, n-4)
	copy(payload, body[4:n])
	return datagram{to: body[0], from: body[1], id: body[2], flags: body[3], payload: payload}, nil
}

// crc16 is the CCITT CRC in reflected form (poly 0x8408) used by the
// controller's radio library.
func crc16(crc uint16, data []byte) uint16 {
	for _, b := range data {
		b ^= byte(crc)
		b ^= b << 4
		crc = (uint16(b)<<8 | crc>>8) ^ uint16(b>>4) ^ uint16(b)<<3
	}
	return crc
}

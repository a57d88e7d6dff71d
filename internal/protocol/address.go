package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Address is a single byte radio address. 0 and 255 are reserved.
type Address uint8

// Default addresses of the bridge and the controller as shipped in the firmware.
const (
	DefaultServerAddress Address = 0x01
	DefaultNodeAddress   Address = 0xDC
)

// Valid reports whether a is usable as an endpoint address.
func (a Address) Valid() bool {
	return a > 0 && a < 255
}

func (a Address) String() string {
	return fmt.Sprintf("0x%02X", uint8(a))
}

// ParseAddress parses a decimal or 0x-prefixed hexadecimal address and rejects
// the reserved values 0 and 255.
func ParseAddress(s string) (Address, error) {
	n, err := ParseNumber(s, 8)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	a := Address(n)
	if !a.Valid() {
		return 0, fmt.Errorf("invalid address %q: must be between 1 and 254", s)
	}
	return a, nil
}

// ParseNumber parses an unsigned integer given as decimal text or with a 0x
// prefix as hexadecimal, limited to bitSize bits.
func ParseNumber(s string, bitSize int) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
		base = 16
	}
	return strconv.ParseUint(s, base, bitSize)
}

// ParseSignedNumber is ParseNumber for signed values. A leading minus sign is
// only accepted on decimal input.
func ParseSignedNumber(s string, bitSize int) (int64, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		n, err := strconv.ParseUint(s[2:], 16, bitSize)
		if err != nil {
			return 0, err
		}
		// two's complement within bitSize
		if n&(1<<(bitSize-1)) != 0 {
			return int64(n) - (1 << bitSize), nil
		}
		return int64(n), nil
	}
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	return strconv.ParseInt(s, 10, bitSize)
}

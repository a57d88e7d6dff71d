package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a controller firmware version. The zero value means the version
// has not been negotiated yet.
type Version struct {
	Major uint8 `json:"major"`
	Minor uint8 `json:"minor"`
	Patch uint8 `json:"patch"`
}

// Unknown is the version used until the controller answered a version query.
var Unknown = Version{}

// Firmware releases that changed the wire format.
var (
	Version200 = Version{2, 0, 0}
	Version210 = Version{2, 1, 0}
	Version220 = Version{2, 2, 0}
)

// IsKnown reports whether the version has been negotiated.
func (v Version) IsKnown() bool {
	return v != Unknown
}

// Compare returns -1, 0 or +1 comparing v to o lexicographically.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpUint8(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpUint8(v.Minor, o.Minor)
	default:
		return cmpUint8(v.Patch, o.Patch)
	}
}

// AtLeast reports whether v >= o.
func (v Version) AtLeast(o Version) bool {
	return v.Compare(o) >= 0
}

func (v Version) String() string {
	if !v.IsKnown() {
		return "unknown"
	}
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// ParseVersion parses "major.minor.patch". Missing trailing parts default to 0.
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimPrefix(strings.TrimSpace(s), "v"), ".")
	if len(parts) == 0 || len(parts) > 3 || parts[0] == "" {
		return Unknown, fmt.Errorf("invalid version %q", s)
	}
	var nums [3]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Unknown, fmt.Errorf("invalid version %q: %w", s, err)
		}
		nums[i] = uint8(n)
	}
	return Version{nums[0], nums[1], nums[2]}, nil
}

func cmpUint8(a, b uint8) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

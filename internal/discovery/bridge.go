package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Bridge is a watering bridge found on the local network.
type Bridge struct {
	// Instance is the advertised instance name (e.g., "greenhouse")
	Instance string

	// Hostname is the mDNS hostname (e.g., "raspberrypi.local.")
	Hostname string

	// IP is the first IPv4 address, or IPv6 if the bridge has none
	IP string

	// Port is the HTTP API port
	Port int

	// Metadata contains the TXT records: "version", "path" and "peer"
	Metadata map[string]string

	// DiscoveredAt is when the bridge answered
	DiscoveredAt time.Time
}

// String returns a human-readable description.
func (b *Bridge) String() string {
	return fmt.Sprintf("%s (%s) at %s", b.Instance, b.Hostname, net.JoinHostPort(b.IP, strconv.Itoa(b.Port)))
}

// BaseURL returns the HTTP base URL of the bridge API.
func (b *Bridge) BaseURL() string {
	return "http://" + net.JoinHostPort(b.IP, strconv.Itoa(b.Port))
}

// GetMetadata retrieves a TXT value by key, or returns empty string if not found.
func (b *Bridge) GetMetadata(key string) string {
	if b.Metadata == nil {
		return ""
	}
	return b.Metadata[key]
}

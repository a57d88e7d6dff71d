package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func entry(instance, host string, port int, v4, v6 []net.IP, txt ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, ServiceType, ServiceDomain)
	e.HostName = host
	e.Port = port
	e.AddrIPv4 = v4
	e.AddrIPv6 = v6
	e.Text = txt
	return e
}

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name         string
		entry        *zeroconf.ServiceEntry
		wantNil      bool
		wantInstance string
		wantIP       string
		wantPort     int
	}{
		{
			name:         "IPv4 bridge",
			entry:        entry("greenhouse", "pi.local.", 8080, []net.IP{net.ParseIP("192.168.4.16")}, nil, "version=v1.0.0", "path=/api"),
			wantInstance: "greenhouse",
			wantIP:       "192.168.4.16",
			wantPort:     8080,
		},
		{
			name:         "escaped instance name",
			entry:        entry(`garden\ bed\.1`, "pi.local.", 80, []net.IP{net.ParseIP("10.0.0.5")}, nil),
			wantInstance: "garden bed.1",
			wantIP:       "10.0.0.5",
			wantPort:     80,
		},
		{
			name:         "IPv6 only",
			entry:        entry("balcony", "h.local.", 8080, nil, []net.IP{net.ParseIP("fe80::1")}),
			wantInstance: "balcony",
			wantIP:       "fe80::1",
			wantPort:     8080,
		},
		{
			name:         "prefers IPv4",
			entry:        entry("both", "h.local.", 8080, []net.IP{net.ParseIP("192.168.1.50")}, []net.IP{net.ParseIP("fe80::2")}),
			wantInstance: "both",
			wantIP:       "192.168.1.50",
			wantPort:     8080,
		},
		{
			name:    "no address",
			entry:   entry("none", "h.local.", 8080, nil, nil),
			wantNil: true,
		},
		{
			name:    "no port",
			entry:   entry("none", "h.local.", 0, []net.IP{net.ParseIP("192.168.1.1")}, nil),
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := parseServiceEntry(tt.entry)
			if tt.wantNil {
				if b != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", b)
				}
				return
			}
			if b == nil {
				t.Fatal("parseServiceEntry() = nil, want bridge")
			}
			if b.Instance != tt.wantInstance {
				t.Errorf("Instance = %v, want %v", b.Instance, tt.wantInstance)
			}
			if b.IP != tt.wantIP {
				t.Errorf("IP = %v, want %v", b.IP, tt.wantIP)
			}
			if b.Port != tt.wantPort {
				t.Errorf("Port = %v, want %v", b.Port, tt.wantPort)
			}
			if time.Since(b.DiscoveredAt) > time.Second {
				t.Errorf("DiscoveredAt = %v, want recent", b.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntryMetadata(t *testing.T) {
	b := parseServiceEntry(entry("g", "h.local.", 8080, []net.IP{net.ParseIP("10.1.1.1")}, nil,
		"version=v1.0.0", "path=/api", "flag", "peer=0xDC"))

	tests := map[string]string{
		"version": "v1.0.0",
		"path":    "/api",
		"flag":    "",
		"peer":    "0xDC",
		"missing": "",
	}
	for key, want := range tests {
		if got := b.GetMetadata(key); got != want {
			t.Errorf("GetMetadata(%q) = %q, want %q", key, got, want)
		}
	}
}

func TestBridgeURL(t *testing.T) {
	tests := []struct {
		bridge Bridge
		want   string
	}{
		{Bridge{IP: "192.168.1.2", Port: 8080}, "http://192.168.1.2:8080"},
		{Bridge{IP: "fe80::1", Port: 80}, "http://[fe80::1]:80"},
	}
	for _, tt := range tests {
		if got := tt.bridge.BaseURL(); got != tt.want {
			t.Errorf("BaseURL() = %v, want %v", got, tt.want)
		}
	}

	var empty Bridge
	if empty.GetMetadata("x") != "" {
		t.Error("GetMetadata on nil metadata should be empty")
	}
}

func TestAdvertiseValidation(t *testing.T) {
	if _, err := Advertise("", 8080, nil); err == nil {
		t.Error("Advertise() with empty instance should fail")
	}
	if _, err := Advertise("x", 0, nil); err == nil {
		t.Error("Advertise() with port 0 should fail")
	}
}

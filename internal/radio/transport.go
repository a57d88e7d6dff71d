package radio

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Transport delivers datagrams to and from radio addresses. Implementations
// handle link-level acknowledgement and retries; callers see one send as
// either delivered or failed.
type Transport interface {
	// Send delivers payload to the node at address to. It blocks until the
	// datagram was acknowledged, all retries failed or ctx is done.
	Send(ctx context.Context, to byte, payload []byte) error
	// OnReceive registers the callback for inbound datagrams. A nil callback
	// detaches the previous one.
	OnReceive(fn func(from byte, payload []byte))
	// OnError registers the callback for asynchronous transport errors.
	OnError(fn func(err error))
	// Close releases the underlying device. No callbacks run after Close returns.
	Close() error
}

// BroadcastAddress is delivered to every node and never acknowledged.
const BroadcastAddress byte = 0xFF

// Defaults match the controller firmware.
const (
	DefaultRetries    = 5
	DefaultAckTimeout = 200 * time.Millisecond
)

// Common errors.
var (
	ErrClosed     = errors.New("transport closed")
	ErrNoAck      = errors.New("no acknowledgement received")
	ErrPayloadLen = errors.New("payload too long")
)

// Config describes how to open a transport.
type Config struct {
	Port       string        // serial device, e.g. /dev/ttyUSB0
	Baud       int           // serial baud rate
	Address    byte          // own radio address
	Retries    int           // retransmissions after the first attempt
	AckTimeout time.Duration // wait for an acknowledgement per attempt
}

// WithDefaults returns c with zero retry settings replaced by the defaults.
func (c Config) WithDefaults() Config {
	if c.Retries <= 0 {
		c.Retries = DefaultRetries
	}
	if c.AckTimeout <= 0 {
		c.AckTimeout = DefaultAckTimeout
	}
	return c
}

// Validate checks that the config can be used to open a transport.
func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	if c.Address == 0 || c.Address == BroadcastAddress {
		return fmt.Errorf("invalid address 0x%02X", c.Address)
	}
	return nil
}

// Dialer opens a transport. The session takes a Dialer so tests can inject
// an in-memory transport.
type Dialer func(ctx context.Context, cfg Config) (Transport, error)

package radio

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"github.com/muurk/watering/internal/logging"
	"github.com/muurk/watering/internal/protocol"
)

// ackPayload is the body of an acknowledgement datagram.
var ackPayload = []byte{'!'}

// SerialTransport talks to a radio modem attached to a serial port. It frames
// datagrams, acknowledges received ones and retries unacknowledged sends.
type SerialTransport struct {
	port io.ReadWriteCloser
	cfg  Config

	writeMu sync.Mutex
	sendMu  sync.Mutex // one datagram in flight
	nextID  byte
	ackCh   chan byte

	handlerMu sync.RWMutex
	onReceive func(from byte, payload []byte)
	onError   func(err error)

	// last datagram seen per sender, to drop retransmissions we already delivered
	seenMu sync.Mutex
	seen   map[byte]lastSeen
	now    func() time.Time

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// DialSerial opens the serial port named in cfg. It satisfies Dialer.
func DialSerial(ctx context.Context, cfg Config) (Transport, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Port, err)
	}

	logging.Info("Serial port opened",
		zap.String("port", cfg.Port),
		zap.Int("baud", cfg.Baud),
		zap.String("address", fmt.Sprintf("0x%02X", cfg.Address)),
	)
	return NewSerialTransport(port, cfg), nil
}

// NewSerialTransport wraps an already open stream and starts reading from it.
func NewSerialTransport(port io.ReadWriteCloser, cfg Config) *SerialTransport {
	t := &SerialTransport{
		port:  port,
		cfg:   cfg.WithDefaults(),
		ackCh: make(chan byte, 4),
		seen:  make(map[byte]lastSeen),
		now:   time.Now,
		done:  make(chan struct{}),
	}
	t.wg.Add(1)
	go t.readLoop()
	return t
}

// OnReceive implements Transport.
func (t *SerialTransport) OnReceive(fn func(from byte, payload []byte)) {
	t.handlerMu.Lock()
	t.onReceive = fn
	t.handlerMu.Unlock()
}

// OnError implements Transport.
func (t *SerialTransport) OnError(fn func(err error)) {
	t.handlerMu.Lock()
	t.onError = fn
	t.handlerMu.Unlock()
}

// Send implements Transport.
func (t *SerialTransport) Send(ctx context.Context, to byte, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: %d bytes", ErrPayloadLen, len(payload))
	}
	select {
	case <-t.done:
		return ErrClosed
	default:
	}

	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	t.nextID++
	d := datagram{to: to, from: t.cfg.Address, id: t.nextID, payload: payload}
	frame := encodeFrame(d)

	if to == BroadcastAddress {
		return t.write(frame)
	}
	return t.writeWithAck(ctx, frame, d.id)
}

// writeWithAck writes frame and waits for the matching acknowledgement,
// retransmitting up to cfg.Retries times.
func (t *SerialTransport) writeWithAck(ctx context.Context, frame []byte, id byte) error {
	// drop acknowledgements left over from an earlier send
drain:
	for {
		select {
		case <-t.ackCh:
		default:
			break drain
		}
	}

	for attempt := 0; attempt <= t.cfg.Retries; attempt++ {
		if err := t.write(frame); err != nil {
			return err
		}

		deadline := time.NewTimer(t.cfg.AckTimeout)
	waitAck:
		for {
			select {
			case ackID := <-t.ackCh:
				if ackID == id {
					deadline.Stop()
					return nil
				}
				logging.Debug("Stale acknowledgement dropped", zap.Uint8("got", ackID), zap.Uint8("want", id))
			case <-deadline.C:
				logging.Debug("Acknowledgement timeout", zap.Int("attempt", attempt+1), zap.Uint8("id", id))
				break waitAck
			case <-ctx.Done():
				deadline.Stop()
				return ctx.Err()
			case <-t.done:
				deadline.Stop()
				return ErrClosed
			}
		}
	}
	return fmt.Errorf("%w after %d attempts", ErrNoAck, t.cfg.Retries+1)
}

func (t *SerialTransport) write(frame []byte) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.port.Write(frame); err != nil {
		return fmt.Errorf("serial write: %w", err)
	}
	return nil
}

func (t *SerialTransport) readLoop() {
	defer t.wg.Done()
	reader := bufio.NewReader(t.port)

	for {
		d, err := readFrame(reader)
		if err != nil {
			select {
			case <-t.done:
				return
			default:
			}
			if errors.Is(err, errBadFrame) {
				logging.Debug("Dropping malformed radio frame", zap.Error(err))
				continue
			}
			if err != io.EOF && !strings.Contains(err.Error(), "closed") {
				t.reportError(fmt.Errorf("serial read: %w", err))
			}
			return
		}

		if d.to != t.cfg.Address && d.to != BroadcastAddress {
			continue
		}

		if d.isAck() {
			select {
			case t.ackCh <- d.id:
			default:
			}
			continue
		}

		if d.to != BroadcastAddress {
			ack := encodeFrame(datagram{to: d.from, from: t.cfg.Address, id: d.id, flags: flagAck, payload: ackPayload})
			if err := t.write(ack); err != nil {
				t.reportError(err)
			}
			if t.duplicate(d) {
				continue
			}
		}

		t.handlerMu.RLock()
		fn := t.onReceive
		t.handlerMu.RUnlock()
		if fn != nil {
			fn(d.from, d.payload)
		}
	}
}

// duplicateWindow bounds how long after delivery a datagram with the same id
// counts as a retransmission. A sender restarts its ids when it reboots.
const duplicateWindow = 5 * time.Second

type lastSeen struct {
	id    byte
	at    time.Time
	start bool
}

// duplicate reports whether d is a retransmission of the last datagram from
// the same sender, which happens when our acknowledgement got lost. A start
// frame only repeats an earlier start frame.
func (t *SerialTransport) duplicate(d datagram) bool {
	t.seenMu.Lock()
	defer t.seenMu.Unlock()

	now := t.now()
	start := len(d.payload) > 0 && d.payload[0] == protocol.MsgStart
	last, ok := t.seen[d.from]
	if ok && last.id == d.id && last.start == start && now.Sub(last.at) < duplicateWindow {
		return true
	}
	t.seen[d.from] = lastSeen{id: d.id, at: now, start: start}
	return false
}

func (t *SerialTransport) reportError(err error) {
	t.handlerMu.RLock()
	fn := t.onError
	t.handlerMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}

// Close implements Transport.
func (t *SerialTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.done)
		err = t.port.Close()
		t.wg.Wait()
	})
	return err
}

package session

import (
	"context"
	"fmt"
	"io"

	"github.com/muurk/watering/internal/protocol"
)

// Commands sent to the controller. Each one builds its frame with the
// negotiated version and returns as soon as the send is queued; the outcome
// appears in the device log. Only InvalidState (not connected) and
// InvalidArgument are returned. Whether the controller supports a command is
// not checked; firmware ignores opcodes it does not know.

// command runs build on the loop and sends the resulting frame.
func (s *Session) command(ctx context.Context, build func(v protocol.Version) ([]byte, error)) error {
	var err error
	doErr := s.do(ctx, func() {
		if s.state == Disconnected {
			err = NewInvalidState("not connected")
			return
		}
		var frame []byte
		frame, err = build(s.version)
		if err != nil {
			return
		}
		s.send(frame)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

func simple(op byte) func(protocol.Version) ([]byte, error) {
	return func(protocol.Version) ([]byte, error) {
		return protocol.EncodeSimple(op), nil
	}
}

// CheckNow asks the controller to measure and water now.
func (s *Session) CheckNow(ctx context.Context) error {
	return s.command(ctx, simple(protocol.MsgCheckNow))
}

// GetSettings requests the controller settings.
func (s *Session) GetSettings(ctx context.Context) error {
	return s.command(ctx, simple(protocol.MsgGetSettings))
}

// SaveSettings makes the controller persist its current settings.
func (s *Session) SaveSettings(ctx context.Context) error {
	return s.command(ctx, simple(protocol.MsgSaveSettings))
}

// Poll requests all status values (>= 2.0.0).
func (s *Session) Poll(ctx context.Context) error {
	return s.command(ctx, simple(protocol.MsgPollData))
}

// GetVersion sends a version query outside the negotiation timer.
func (s *Session) GetVersion(ctx context.Context) error {
	return s.command(ctx, simple(protocol.MsgGetVersion))
}

// Pause suspends automatic watering.
func (s *Session) Pause(ctx context.Context) error {
	return s.command(ctx, func(v protocol.Version) ([]byte, error) {
		return protocol.EncodePauseResume(v, true), nil
	})
}

// Resume restarts automatic watering.
func (s *Session) Resume(ctx context.Context) error {
	return s.command(ctx, func(v protocol.Version) ([]byte, error) {
		return protocol.EncodePauseResume(v, false), nil
	})
}

// SetChannel opens or closes one valve.
func (s *Session) SetChannel(ctx context.Context, channel uint8, on bool) error {
	if int(channel) >= protocol.Channels {
		return NewInvalidArgument("invalid channel %d", channel)
	}
	return s.command(ctx, func(v protocol.Version) ([]byte, error) {
		return protocol.EncodeChannelOnOff(v, channel, on), nil
	})
}

// SetTempSwitch switches the temperature switch output (>= 2.2.0).
func (s *Session) SetTempSwitch(ctx context.Context, on bool) error {
	return s.command(ctx, func(protocol.Version) ([]byte, error) {
		return protocol.EncodeTempSwitch(on), nil
	})
}

// SetSettings sends new settings. They take effect on the controller but are
// only persisted by SaveSettings. The store is updated once the controller
// reports its settings back.
func (s *Session) SetSettings(ctx context.Context, settings protocol.Settings) error {
	return s.command(ctx, func(v protocol.Version) ([]byte, error) {
		frame, err := protocol.EncodeSettings(v, settings)
		if err != nil {
			return nil, &BridgeError{Type: ErrTypeInvalidArgument, Message: "invalid settings", Err: err}
		}
		return frame, nil
	})
}

// Ping sends four random bytes the controller echoes back. Only the most
// recent ping is tracked; an earlier one still in flight will be reported as
// wrong data when its pong arrives.
func (s *Session) Ping(ctx context.Context) error {
	return s.command(ctx, func(protocol.Version) ([]byte, error) {
		var payload [protocol.PingPayloadSize]byte
		if _, err := io.ReadFull(s.opts.Rand, payload[:]); err != nil {
			return nil, fmt.Errorf("generate ping payload: %w", err)
		}
		s.ping = &payload
		return protocol.EncodePing(payload), nil
	})
}

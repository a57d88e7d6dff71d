package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/watering/internal/logging"
	"github.com/muurk/watering/internal/protocol"
	"github.com/muurk/watering/internal/radio"
	"github.com/muurk/watering/internal/store"
)

// State is the connection state of a session.
type State int

const (
	Disconnected State = iota
	Connecting         // transport open, controller version not known yet
	Connected          // controller answered the version query
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	switch string(text) {
	case "disconnected":
		*s = Disconnected
	case "connecting":
		*s = Connecting
	case "connected":
		*s = Connected
	default:
		return fmt.Errorf("unknown state %q", text)
	}
	return nil
}

// Default version query timing.
const (
	DefaultVersionQueryDelay    = 500 * time.Millisecond
	DefaultVersionQueryInterval = 3000 * time.Millisecond
	DefaultSendTimeout          = 10 * time.Second
)

// Params are the connect arguments.
type Params struct {
	Port string
	Baud int
	Own  protocol.Address // bridge radio address
	Peer protocol.Address // controller radio address
}

// Validate checks the connect arguments.
func (p Params) Validate() error {
	if p.Port == "" {
		return NewInvalidArgument("port is required")
	}
	if p.Baud <= 0 {
		return NewInvalidArgument("invalid baud rate %d", p.Baud)
	}
	if !p.Own.Valid() {
		return NewInvalidArgument("invalid own address %s", p.Own)
	}
	if !p.Peer.Valid() {
		return NewInvalidArgument("invalid peer address %s", p.Peer)
	}
	return nil
}

// Info describes the session for readers.
type Info struct {
	State     State            `json:"state"`
	Connected bool             `json:"connected"`
	Version   protocol.Version `json:"version"`
	Port      string           `json:"port,omitempty"`
	Baud      int              `json:"baud,omitempty"`
	Own       protocol.Address `json:"own,omitempty"`
	Peer      protocol.Address `json:"peer,omitempty"`
}

// Options configure a Session.
type Options struct {
	Dialer radio.Dialer // required
	Store  *store.Store // required

	Retries    int           // passed to the transport; 0 means radio.DefaultRetries
	AckTimeout time.Duration // passed to the transport; 0 means radio.DefaultAckTimeout

	VersionQueryDelay    time.Duration // first version query after connect
	VersionQueryInterval time.Duration // repeat until the controller answers
	SendTimeout          time.Duration // bound for one transport send

	Rand io.Reader        // ping payloads; crypto/rand if nil
	Now  func() time.Time // settings receive time; time.Now if nil
}

func (o Options) withDefaults() Options {
	if o.VersionQueryDelay <= 0 {
		o.VersionQueryDelay = DefaultVersionQueryDelay
	}
	if o.VersionQueryInterval <= 0 {
		o.VersionQueryInterval = DefaultVersionQueryInterval
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = DefaultSendTimeout
	}
	if o.Rand == nil {
		o.Rand = rand.Reader
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// Session owns the connection to one controller. All state changes run on a
// single loop goroutine: API calls, transport callbacks, timer fires and send
// outcomes are posted to it and executed in order.
type Session struct {
	opts  Options
	store *store.Store

	ops     chan func()
	quit    chan struct{}
	stopped chan struct{}
	once    sync.Once

	// owned by the loop
	state     State
	version   protocol.Version
	params    Params
	transport radio.Transport
	gen       uint64 // incremented on every connect and disconnect
	timer     *time.Timer
	ping      *[protocol.PingPayloadSize]byte

	infoMu sync.RWMutex
	info   Info
}

// New creates a session and starts its loop.
func New(opts Options) *Session {
	s := &Session{
		opts:    opts.withDefaults(),
		store:   opts.Store,
		ops:     make(chan func(), 64),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.stopped)
	for {
		select {
		case fn := <-s.ops:
			fn()
		case <-s.quit:
			return
		}
	}
}

// post queues fn on the loop without waiting for it to run.
func (s *Session) post(fn func()) {
	select {
	case s.ops <- fn:
	case <-s.quit:
	}
}

// do runs fn on the loop and waits for it to finish.
func (s *Session) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case s.ops <- func() { fn(); close(done) }:
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-s.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Store returns the store the session writes to.
func (s *Session) Store() *store.Store {
	return s.store
}

// Info returns the current session state.
func (s *Session) Info() Info {
	s.infoMu.RLock()
	defer s.infoMu.RUnlock()
	return s.info
}

// Version returns the negotiated controller version.
func (s *Session) Version() protocol.Version {
	return s.Info().Version
}

func (s *Session) publishInfo() {
	info := Info{
		State:     s.state,
		Connected: s.state != Disconnected,
		Version:   s.version,
	}
	if s.state != Disconnected {
		info.Port = s.params.Port
		info.Baud = s.params.Baud
		info.Own = s.params.Own
		info.Peer = s.params.Peer
	}
	s.infoMu.Lock()
	s.info = info
	s.infoMu.Unlock()
	s.store.Notify()
}

// Connect opens the transport and starts version negotiation.
func (s *Session) Connect(ctx context.Context, p Params) error {
	var err error
	if doErr := s.do(ctx, func() { err = s.connect(ctx, p) }); doErr != nil {
		return doErr
	}
	return err
}

func (s *Session) connect(ctx context.Context, p Params) error {
	if s.state != Disconnected {
		return NewInvalidState("already connected")
	}
	if err := p.Validate(); err != nil {
		return err
	}

	t, err := s.opts.Dialer(ctx, radio.Config{
		Port:       p.Port,
		Baud:       p.Baud,
		Address:    byte(p.Own),
		Retries:    s.opts.Retries,
		AckTimeout: s.opts.AckTimeout,
	})
	if err != nil {
		s.store.Log().Appendf("error opening port %s: %v", p.Port, err)
		logging.Warn("Failed to open transport", zap.String("port", p.Port), zap.Error(err))
		return NewTransportFailure(fmt.Sprintf("cannot open %s", p.Port), err)
	}

	s.gen++
	gen := s.gen
	s.transport = t
	s.params = p
	s.version = protocol.Unknown
	s.state = Connecting
	s.store.Reset()

	t.OnReceive(func(from byte, payload []byte) {
		data := append([]byte(nil), payload...)
		s.post(func() {
			if s.gen == gen {
				s.handleFrame(from, data)
			}
		})
	})
	t.OnError(func(err error) {
		s.post(func() {
			if s.gen == gen {
				s.store.Log().Appendf("transport error: %v", err)
				logging.Warn("Transport error", zap.Error(err))
			}
		})
	})

	s.timer = time.AfterFunc(s.opts.VersionQueryDelay, func() {
		s.post(func() { s.versionTimerFired(gen) })
	})

	s.store.Log().Appendf("connected to %s (%d baud), own address %s, controller %s", p.Port, p.Baud, p.Own, p.Peer)
	logging.Info("Connected",
		zap.String("port", p.Port),
		zap.Int("baud", p.Baud),
		zap.Stringer("own", p.Own),
		zap.Stringer("peer", p.Peer),
	)
	s.publishInfo()
	return nil
}

func (s *Session) versionTimerFired(gen uint64) {
	if s.gen != gen || s.timer == nil {
		return
	}
	s.send(protocol.EncodeSimple(protocol.MsgGetVersion))
	s.timer.Reset(s.opts.VersionQueryInterval)
}

func (s *Session) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Disconnect stops version negotiation, detaches from the transport and
// closes it.
func (s *Session) Disconnect(ctx context.Context) error {
	var (
		t   radio.Transport
		err error
	)
	if doErr := s.do(ctx, func() { t, err = s.disconnect() }); doErr != nil {
		return doErr
	}
	if err != nil {
		return err
	}

	// closed outside the loop: the transport may be blocked delivering a
	// callback to it
	if cerr := t.Close(); cerr != nil {
		logging.Warn("Failed to close transport", zap.Error(cerr))
		s.post(func() { s.store.Log().Appendf("error closing port: %v", cerr) })
	}
	return nil
}

func (s *Session) disconnect() (radio.Transport, error) {
	if s.state == Disconnected {
		return nil, NewInvalidState("not connected")
	}

	s.gen++
	s.stopTimer()
	t := s.transport
	t.OnReceive(nil)
	t.OnError(nil)
	s.transport = nil
	s.version = protocol.Unknown
	s.ping = nil
	s.state = Disconnected

	s.store.Log().Append("disconnected")
	logging.Info("Disconnected", zap.String("port", s.params.Port))
	s.publishInfo()
	return t, nil
}

// Close disconnects if needed and stops the loop.
func (s *Session) Close() error {
	var t radio.Transport
	_ = s.do(context.Background(), func() {
		if s.state != Disconnected {
			t, _ = s.disconnect()
		}
	})
	s.once.Do(func() { close(s.quit) })
	<-s.stopped
	if t != nil {
		return t.Close()
	}
	return nil
}

// send transmits frame to the controller without blocking the loop. The
// outcome is written to the device log once the transport reports it.
func (s *Session) send(frame []byte) {
	t := s.transport
	gen := s.gen
	peer := byte(s.params.Peer)
	op := frame[0]
	logging.LogFrame("tx", peer, frame)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.SendTimeout)
		defer cancel()
		err := t.Send(ctx, peer, frame)

		s.post(func() {
			if s.gen != gen {
				return
			}
			if err != nil {
				s.store.Log().Appendf("error sending message 0x%02X: %v", op, err)
				logging.Warn("Send failed", zap.String("opcode", protocol.OpcodeName(op)), zap.Error(err))
				return
			}
			s.store.Log().Appendf("send message 0x%02X", op)
		})
	}()
}

// handleFrame processes one inbound datagram.
func (s *Session) handleFrame(from byte, data []byte) {
	if from != byte(s.params.Peer) {
		logging.Debug("Dropping frame from foreign address",
			zap.String("from", protocol.Address(from).String()),
			zap.Stringer("peer", s.params.Peer),
		)
		return
	}
	logging.LogFrame("rx", from, data)
	log := s.store.Log()
	log.Appendf("received data: %s", protocol.FormatFrame(data))

	ev := protocol.DecodeAt(s.version, data, s.opts.Now())

	if d, ok := store.DeltaFromEvent(ev); ok {
		changes := s.store.ApplyStatusDelta(d)
		for _, c := range changes {
			log.Appendf("channel %d %s", c.Channel, onOff(c.On))
		}
	}

	switch e := ev.(type) {
	case protocol.SystemStarted:
		log.Append("system started")
	case protocol.Battery:
		log.Appendf("battery: %d%%, %.2fV (%d)", e.Percent, e.Volt, e.Raw)
	case protocol.SensorValues:
		log.Appendf("sensors: %.2fV (%d) %.2fV (%d) %.2fV (%d) %.2fV (%d)",
			e.Volt[0], e.Raw[0], e.Volt[1], e.Raw[1], e.Volt[2], e.Raw[2], e.Volt[3], e.Raw[3])
	case protocol.TempSensorData:
		if e.Temperature != nil {
			log.Appendf("temperature: %.1f°C", *e.Temperature)
		}
		if e.Humidity != nil {
			log.Appendf("humidity: %.1f%%", *e.Humidity)
		}
		if e.TempSwitchOn != nil {
			log.Appendf("temperature switch %s", onOff(*e.TempSwitchOn))
		}
	case protocol.SettingsReceived:
		if err := s.store.ApplySettings(e.Settings); err != nil {
			log.Append("ignored outdated settings")
			logging.Debug("Stale settings dropped", zap.Error(err))
		} else {
			log.Append("got settings")
		}
	case protocol.VersionReply:
		s.stopTimer()
		s.version = e.Version
		s.state = Connected
		log.Appendf("controller version %s", e.Version)
		logging.Info("Controller version", zap.Stringer("version", e.Version))
		s.publishInfo()
	case protocol.PongReply:
		if s.ping != nil && *s.ping == e.Payload {
			log.Append("pong received: correct data")
		} else {
			log.Append("pong received: wrong data")
		}
	case protocol.NoOp:
		logging.Debug("Ignoring frame", zap.String("reason", e.Reason))
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

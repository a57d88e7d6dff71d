package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/muurk/watering/internal/protocol"
	"github.com/muurk/watering/internal/radio"
	"github.com/muurk/watering/internal/store"
)

type sentFrame struct {
	to   byte
	data []byte
}

type fakeTransport struct {
	mu        sync.Mutex
	sent      []sentFrame
	onReceive func(byte, []byte)
	onError   func(error)
	sendErr   error
	closed    bool
}

func (f *fakeTransport) Send(ctx context.Context, to byte, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentFrame{to: to, data: append([]byte(nil), payload...)})
	return f.sendErr
}

func (f *fakeTransport) OnReceive(fn func(byte, []byte)) {
	f.mu.Lock()
	f.onReceive = fn
	f.mu.Unlock()
}

func (f *fakeTransport) OnError(fn func(error)) {
	f.mu.Lock()
	f.onError = fn
	f.mu.Unlock()
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) receiver() func(byte, []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onReceive
}

// inject delivers an inbound datagram as the transport read loop would.
func (f *fakeTransport) inject(t *testing.T, from byte, data ...byte) {
	t.Helper()
	fn := f.receiver()
	if fn == nil {
		t.Fatal("no receive callback registered")
	}
	fn(from, data)
}

func (f *fakeTransport) frames() []sentFrame {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentFrame(nil), f.sent...)
}

func (f *fakeTransport) countOpcode(op byte) int {
	n := 0
	for _, s := range f.frames() {
		if len(s.data) > 0 && s.data[0] == op {
			n++
		}
	}
	return n
}

type fixture struct {
	s      *Session
	st     *store.Store
	tr     *fakeTransport
	dials  int
	params Params
}

func newFixture(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		st: store.New(),
		tr: &fakeTransport{},
		params: Params{
			Port: "/dev/ttyUSB0",
			Baud: 9600,
			Own:  0x01,
			Peer: 0xDC,
		},
	}
	opts := Options{
		Store: f.st,
		Dialer: func(ctx context.Context, cfg radio.Config) (radio.Transport, error) {
			f.dials++
			return f.tr, nil
		},
		// keep the version timer out of the way unless a test wants it
		VersionQueryDelay:    time.Hour,
		VersionQueryInterval: time.Hour,
		Rand:                 bytes.NewReader([]byte{1, 2, 3, 4, 5, 6, 7, 8}),
	}
	if mutate != nil {
		mutate(&opts)
	}
	f.s = New(opts)
	t.Cleanup(func() { _ = f.s.Close() })
	return f
}

func (f *fixture) connect(t *testing.T) {
	t.Helper()
	if err := f.s.Connect(context.Background(), f.params); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
}

// sync waits until everything posted to the loop so far has run.
func (f *fixture) sync(t *testing.T) {
	t.Helper()
	if err := f.s.do(context.Background(), func() {}); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func logContains(st *store.Store, text string) bool {
	for _, e := range st.Log().Entries() {
		if strings.Contains(e.Text, text) {
			return true
		}
	}
	return false
}

func TestConnectValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"empty port", func(p *Params) { p.Port = "" }},
		{"zero baud", func(p *Params) { p.Baud = 0 }},
		{"negative baud", func(p *Params) { p.Baud = -9600 }},
		{"own address 0", func(p *Params) { p.Own = 0 }},
		{"peer address 255", func(p *Params) { p.Peer = 255 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, nil)
			p := f.params
			tt.mutate(&p)

			err := f.s.Connect(context.Background(), p)
			if !IsInvalidArgument(err) {
				t.Fatalf("Connect() error = %v, want invalid argument", err)
			}
			if f.dials != 0 {
				t.Error("transport opened for invalid arguments")
			}
			if f.s.Info().Connected {
				t.Error("session connected after invalid arguments")
			}
		})
	}
}

func TestConnectStateErrors(t *testing.T) {
	f := newFixture(t, nil)

	if err := f.s.Disconnect(context.Background()); !IsInvalidState(err) {
		t.Errorf("Disconnect() while disconnected error = %v, want invalid state", err)
	}

	f.connect(t)
	info := f.s.Info()
	if !info.Connected || info.State != Connecting || info.Version.IsKnown() {
		t.Errorf("Info() after connect = %+v", info)
	}
	if info.Peer != 0xDC || info.Own != 0x01 {
		t.Errorf("addresses = %s/%s", info.Own, info.Peer)
	}

	if err := f.s.Connect(context.Background(), f.params); !IsInvalidState(err) {
		t.Errorf("second Connect() error = %v, want invalid state", err)
	}
	if f.dials != 1 {
		t.Errorf("dials = %d, want 1", f.dials)
	}
}

func TestConnectDialFailure(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.Dialer = func(context.Context, radio.Config) (radio.Transport, error) {
			return nil, errors.New("no such device")
		}
	})

	err := f.s.Connect(context.Background(), f.params)
	if !IsTransportFailure(err) {
		t.Fatalf("Connect() error = %v, want transport failure", err)
	}
	if f.s.Info().State != Disconnected {
		t.Errorf("state = %s, want disconnected", f.s.Info().State)
	}
	if !logContains(f.st, "no such device") {
		t.Error("dial failure not logged")
	}
}

func TestConnectPassesTransportConfig(t *testing.T) {
	var got radio.Config
	tr := &fakeTransport{}
	f := newFixture(t, func(o *Options) {
		o.Retries = 3
		o.Dialer = func(_ context.Context, cfg radio.Config) (radio.Transport, error) {
			got = cfg
			return tr, nil
		}
	})
	f.connect(t)

	want := radio.Config{Port: "/dev/ttyUSB0", Baud: 9600, Address: 0x01, Retries: 3}
	if got != want {
		t.Errorf("transport config = %+v, want %+v", got, want)
	}
}

func TestVersionNegotiation(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.VersionQueryDelay = 5 * time.Millisecond
		o.VersionQueryInterval = 10 * time.Millisecond
	})
	f.connect(t)

	// no reply: the query repeats
	waitFor(t, "three version queries", func() bool {
		return f.tr.countOpcode(protocol.MsgGetVersion) >= 3
	})
	for _, s := range f.tr.frames() {
		if s.to != 0xDC {
			t.Fatalf("frame sent to 0x%02X, want 0xDC", s.to)
		}
	}

	f.tr.inject(t, 0xDC, protocol.MsgVersion, 2, 1, 0)
	f.sync(t)

	info := f.s.Info()
	if info.Version != protocol.Version210 {
		t.Errorf("version = %s, want 2.1.0", info.Version)
	}
	if info.State != Connected {
		t.Errorf("state = %s, want connected", info.State)
	}

	// one query may have been in flight when the reply arrived
	time.Sleep(20 * time.Millisecond)
	f.sync(t)
	n := f.tr.countOpcode(protocol.MsgGetVersion)
	time.Sleep(50 * time.Millisecond)
	if got := f.tr.countOpcode(protocol.MsgGetVersion); got != n {
		t.Errorf("version queries continued after reply: %d -> %d", n, got)
	}
}

func TestVersionReplyCancelsTimerBeforeFirstQuery(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.VersionQueryDelay = 30 * time.Millisecond
		o.VersionQueryInterval = 10 * time.Millisecond
	})
	f.connect(t)

	f.tr.inject(t, 0xDC, protocol.MsgVersion, 2, 2, 0)
	f.sync(t)

	time.Sleep(80 * time.Millisecond)
	if n := f.tr.countOpcode(protocol.MsgGetVersion); n != 0 {
		t.Errorf("version queries = %d, want 0", n)
	}

	// a duplicate reply is applied again without harm
	f.tr.inject(t, 0xDC, protocol.MsgVersion, 2, 2, 0)
	f.sync(t)
	if v := f.s.Version(); v != protocol.Version220 {
		t.Errorf("version = %s, want 2.2.0", v)
	}
}

func TestDisconnectCancelsTimer(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.VersionQueryDelay = 20 * time.Millisecond
		o.VersionQueryInterval = 10 * time.Millisecond
	})
	f.connect(t)
	if err := f.s.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if n := f.tr.countOpcode(protocol.MsgGetVersion); n != 0 {
		t.Errorf("version queries after disconnect = %d, want 0", n)
	}
}

func TestAddressFilter(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)
	before := f.st.Log().Len()

	f.tr.inject(t, 0x05, protocol.MsgBattery, 50, 0xFF, 0x03)
	f.tr.inject(t, 0x05, protocol.MsgVersion, 2, 2, 0)
	f.sync(t)

	if got := f.st.Log().Len(); got != before {
		t.Errorf("log grew from %d to %d for foreign frames", before, got)
	}
	if snap := f.st.Snapshot(); snap.Status.Battery.Percent != 0 {
		t.Errorf("battery = %d, foreign frame reached the store", snap.Status.Battery.Percent)
	}
	if f.s.Version().IsKnown() {
		t.Error("version negotiated from a foreign address")
	}

	f.tr.inject(t, 0xDC, protocol.MsgBattery, 50, 0xFF, 0x03)
	f.sync(t)
	if snap := f.st.Snapshot(); snap.Status.Battery.Percent != 50 || snap.Status.Battery.Volt != 5 {
		t.Errorf("battery = %+v", snap.Status.Battery)
	}
	if !logContains(f.st, "received data: 02 32 FF 03") {
		t.Error("accepted frame not logged as hex")
	}
}

func TestInboundStatus(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)
	f.tr.inject(t, 0xDC, protocol.MsgVersion, 2, 0, 0)

	f.tr.inject(t, 0xDC, protocol.MsgChannelState, 0, 1, 0, 0)
	f.tr.inject(t, 0xDC, protocol.MsgChannelState, 0, 1, 1, 0)
	f.tr.inject(t, 0xDC, protocol.MsgSensorValues, 0x00, 0x02, 0, 0, 0, 0, 0, 0)
	f.tr.inject(t, 0xDC, 0x77, 1, 2, 3)
	f.sync(t)

	snap := f.st.Snapshot()
	if !snap.Status.Channels[1].On || !snap.Status.Channels[2].On || snap.Status.Channels[0].On {
		t.Errorf("channels = %+v", snap.Status.Channels)
	}
	if snap.Status.Channels[0].AdcRaw != 512 || snap.Status.Channels[0].AdcVolt != 2.5 {
		t.Errorf("channel 0 adc = %+v", snap.Status.Channels[0])
	}

	var transitions []string
	for _, e := range f.st.Log().Entries() {
		if strings.HasPrefix(e.Text, "channel ") {
			transitions = append(transitions, e.Text)
		}
	}
	want := []string{"channel 1 on", "channel 2 on"}
	if strings.Join(transitions, ",") != strings.Join(want, ",") {
		t.Errorf("transitions = %v, want %v", transitions, want)
	}
}

func TestInboundSettings(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	f := newFixture(t, func(o *Options) {
		o.Now = func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
	})
	f.connect(t)
	f.tr.inject(t, 0xDC, protocol.MsgVersion, 2, 2, 0)

	settings := protocol.DefaultSettings()
	settings.CheckInterval = 900
	frame, err := protocol.EncodeSettings(protocol.Version220, settings)
	if err != nil {
		t.Fatal(err)
	}
	frame[0] = protocol.MsgSettings
	f.tr.inject(t, 0xDC, frame...)
	f.sync(t)

	got, ok := f.st.Settings()
	if !ok || got.CheckInterval != 900 || !got.ReceivedAt.Equal(now) {
		t.Fatalf("settings = %+v, %v", got, ok)
	}

	// a snapshot stamped earlier than the current one is dropped
	mu.Lock()
	now = now.Add(-time.Minute)
	mu.Unlock()
	settings.CheckInterval = 60
	frame, _ = protocol.EncodeSettings(protocol.Version220, settings)
	frame[0] = protocol.MsgSettings
	f.tr.inject(t, 0xDC, frame...)
	f.sync(t)

	got, _ = f.st.Settings()
	if got.CheckInterval != 900 {
		t.Errorf("check interval = %d, stale settings were applied", got.CheckInterval)
	}
	if !logContains(f.st, "ignored outdated settings") {
		t.Error("stale settings not logged")
	}
}

func TestPing(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)

	if err := f.s.Ping(context.Background()); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	waitFor(t, "ping frame", func() bool { return f.tr.countOpcode(protocol.MsgPing) == 1 })
	ping := f.tr.frames()[0].data
	if !bytes.Equal(ping, []byte{protocol.MsgPing, 1, 2, 3, 4}) {
		t.Fatalf("ping = % X", ping)
	}

	f.tr.inject(t, 0xDC, protocol.MsgPong, 1, 2, 3, 4)
	f.sync(t)
	if !logContains(f.st, "correct data") {
		t.Error("matching pong not logged as correct data")
	}

	f.tr.inject(t, 0xDC, protocol.MsgPong, 4, 3, 2, 1)
	f.sync(t)
	if !logContains(f.st, "wrong data") {
		t.Error("mismatching pong not logged as wrong data")
	}
}

func TestPingOverwritesPending(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)

	_ = f.s.Ping(context.Background()) // 01 02 03 04
	_ = f.s.Ping(context.Background()) // 05 06 07 08

	f.tr.inject(t, 0xDC, protocol.MsgPong, 1, 2, 3, 4)
	f.sync(t)
	if !logContains(f.st, "wrong data") {
		t.Error("pong of the first ping should not match after a second ping")
	}
}

func TestDisconnectDropsLateFrames(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)
	f.tr.inject(t, 0xDC, protocol.MsgVersion, 2, 1, 0)
	late := f.tr.receiver()

	if err := f.s.Disconnect(context.Background()); err != nil {
		t.Fatalf("Disconnect() error = %v", err)
	}
	info := f.s.Info()
	if info.Connected || info.Version.IsKnown() || info.State != Disconnected {
		t.Errorf("Info() after disconnect = %+v", info)
	}
	if !f.tr.closed {
		t.Error("transport not closed")
	}
	if f.tr.receiver() != nil {
		t.Error("receive callback still attached")
	}

	n := f.st.Log().Len()
	late(0xDC, []byte{protocol.MsgBattery, 99, 0, 0})
	f.sync(t)
	if f.st.Log().Len() != n || f.st.Snapshot().Status.Battery.Percent != 0 {
		t.Error("frame delivered after disconnect reached the store")
	}
}

func TestReconnectResetsStore(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)
	f.tr.inject(t, 0xDC, protocol.MsgBattery, 40, 0, 0)
	f.sync(t)
	if err := f.s.Disconnect(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.connect(t)
	if p := f.st.Snapshot().Status.Battery.Percent; p != 0 {
		t.Errorf("battery = %d after reconnect, want 0", p)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	f := newFixture(t, nil)
	f.connect(t)
	if err := f.s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if !f.tr.closed {
		t.Error("transport not closed")
	}
	if err := f.s.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if err := f.s.CheckNow(context.Background()); !errors.Is(err, ErrClosed) {
		t.Errorf("CheckNow() after Close error = %v, want ErrClosed", err)
	}
}

func TestStateText(t *testing.T) {
	for _, st := range []State{Disconnected, Connecting, Connected} {
		text, err := st.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText() error = %v", err)
		}
		var got State
		if err := got.UnmarshalText(text); err != nil {
			t.Fatalf("UnmarshalText(%q) error = %v", text, err)
		}
		if got != st {
			t.Errorf("UnmarshalText(%q) = %v, want %v", text, got, st)
		}
	}

	var s State
	if err := s.UnmarshalText([]byte("busy")); err == nil {
		t.Error("UnmarshalText(busy) should fail")
	}
}

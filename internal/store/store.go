package store

import (
	"errors"
	"sync"
	"time"

	"github.com/muurk/watering/internal/protocol"
)

// ErrStaleSettings is returned by ApplySettings when the snapshot is older
// than the settings already held.
var ErrStaleSettings = errors.New("settings snapshot is older than the current settings")

// Snapshot is a consistent point-in-time copy of the store.
type Snapshot struct {
	Status   Status             `json:"status"`
	Settings *protocol.Settings `json:"settings"`
}

// Store holds the last known device status and settings plus the device log.
// Readers may call any method concurrently; the session is the only writer.
type Store struct {
	mu       sync.RWMutex
	status   Status
	settings *protocol.Settings

	log *Log

	subMu  sync.Mutex
	subs   map[int]chan struct{}
	nextID int
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for log entries.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.log.now = now
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{subs: make(map[int]chan struct{})}
	s.log = newLog(time.Now, s.notify)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Log returns the device log.
func (s *Store) Log() *Log {
	return s.log
}

// ApplyStatusDelta merges the fields present in d into the status and
// returns the valve channels whose state actually changed.
func (s *Store) ApplyStatusDelta(d StatusDelta) []ChannelChange {
	if d.Empty() {
		return nil
	}

	s.mu.Lock()
	var changes []ChannelChange
	for i, on := range d.On {
		if on == nil {
			continue
		}
		if s.status.Channels[i].On != *on {
			changes = append(changes, ChannelChange{Channel: uint8(i), On: *on})
		}
		s.status.Channels[i].On = *on
	}
	if d.AdcRaw != nil {
		for i, raw := range d.AdcRaw {
			s.status.Channels[i].AdcRaw = raw
			s.status.Channels[i].AdcVolt = protocol.AdcVolt(raw)
		}
	}
	if d.Battery != nil {
		s.status.Battery = *d.Battery
	}
	if d.Temperature != nil {
		v := *d.Temperature
		s.status.Temperature = &v
	}
	if d.Humidity != nil {
		v := *d.Humidity
		s.status.Humidity = &v
	}
	if d.TempSwitchOn != nil {
		s.status.TempSwitchOn = *d.TempSwitchOn
	}
	s.mu.Unlock()

	s.notify()
	return changes
}

// ApplySettings replaces the settings with snap. The store is left unchanged
// and ErrStaleSettings returned if snap was received before the current
// settings.
func (s *Store) ApplySettings(snap protocol.Settings) error {
	s.mu.Lock()
	if s.settings != nil && snap.ReceivedAt.Before(s.settings.ReceivedAt) {
		s.mu.Unlock()
		return ErrStaleSettings
	}
	c := snap.Clone()
	s.settings = &c
	s.mu.Unlock()

	s.notify()
	return nil
}

// Settings returns a copy of the current settings; ok is false if none
// were received yet.
func (s *Store) Settings() (protocol.Settings, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.settings == nil {
		return protocol.Settings{}, false
	}
	return s.settings.Clone(), true
}

// Snapshot returns a deep copy of status and settings.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := Snapshot{Status: s.status.clone()}
	if s.settings != nil {
		c := s.settings.Clone()
		snap.Settings = &c
	}
	return snap
}

// Reset clears status and settings. The log is kept.
func (s *Store) Reset() {
	s.mu.Lock()
	s.status = Status{}
	s.settings = nil
	s.mu.Unlock()

	s.notify()
}

// Subscribe returns a channel that receives a value after every change. The
// channel has a buffer of one, so bursts of changes coalesce into one signal.
// Call the returned function to unsubscribe.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// Notify wakes up all subscribers. The session calls it when state outside
// the store changed, e.g. after connect.
func (s *Store) Notify() {
	s.notify()
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/watering/internal/logging"
	"github.com/muurk/watering/internal/session"
	"github.com/muurk/watering/internal/store"
)

// Source is the bridge state to publish. *session.Session implements it.
type Source interface {
	Info() session.Info
	Store() *store.Store
}

// StatusMessage is published retained to <prefix>/status.
type StatusMessage struct {
	Connected bool          `json:"connected"`
	State     session.State `json:"state"`
	Version   string        `json:"version,omitempty"`
	Status    store.Status  `json:"status"`
}

// StatePublisher mirrors the store to MQTT topics below prefix:
//
//	<prefix>/status    retained StatusMessage
//	<prefix>/settings  retained settings, once received from the controller
//	<prefix>/log       one message per device log entry
//
// Unchanged status and settings are not republished.
type StatePublisher struct {
	pub    Publisher
	src    Source
	prefix string

	lastStatus   []byte
	lastSettings []byte
	logSent      int
}

// NewStatePublisher creates a publisher for src. Log entries written before
// it was created are not published.
func NewStatePublisher(pub Publisher, src Source, prefix string) *StatePublisher {
	return &StatePublisher{
		pub:     pub,
		src:     src,
		prefix:  prefix,
		logSent: src.Store().Log().Len(),
	}
}

// Run publishes the current state and then every change until ctx is done.
func (p *StatePublisher) Run(ctx context.Context) {
	changes, unsubscribe := p.src.Store().Subscribe()
	defer unsubscribe()

	p.Sync()
	for {
		select {
		case <-changes:
			p.Sync()
		case <-ctx.Done():
			return
		}
	}
}

// Sync publishes whatever changed since the last call.
func (p *StatePublisher) Sync() {
	info := p.src.Info()
	st := p.src.Store()
	snap := st.Snapshot()

	msg := StatusMessage{
		Connected: info.Connected,
		State:     info.State,
		Status:    snap.Status,
	}
	if info.Version.IsKnown() {
		msg.Version = info.Version.String()
	}
	if data, ok := p.changed(msg, p.lastStatus); ok {
		if p.publish("status", data, true) {
			p.lastStatus = data
		}
	}

	if snap.Settings != nil {
		// identical settings reported again only differ in the receive time
		key := *snap.Settings
		key.ReceivedAt = time.Time{}
		if k, ok := p.changed(key, p.lastSettings); ok {
			if data, err := json.Marshal(snap.Settings); err == nil && p.publish("settings", data, true) {
				p.lastSettings = k
			}
		}
	}

	for _, e := range st.Log().Since(p.logSent) {
		data, err := json.Marshal(e)
		if err != nil {
			continue
		}
		if !p.publish("log", data, false) {
			// retry the remaining entries on the next change
			return
		}
		p.logSent++
	}
}

func (p *StatePublisher) changed(v any, last []byte) ([]byte, bool) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Warn("Failed to encode MQTT payload", zap.Error(err))
		return nil, false
	}
	return data, !bytes.Equal(data, last)
}

func (p *StatePublisher) publish(sub string, data []byte, retained bool) bool {
	topic := p.prefix + "/" + sub
	if err := p.pub.Publish(topic, data, retained); err != nil {
		logging.Warn("MQTT publish failed", zap.String("topic", topic), zap.Error(err))
		return false
	}
	logging.Debug("MQTT published", zap.String("topic", topic), zap.Int("bytes", len(data)))
	return true
}

// Package store keeps the last known status and settings of the watering
// controller together with the device log.
//
// The session is the only writer: it converts decoded frames into a
// StatusDelta or a settings snapshot and applies them here. HTTP handlers,
// the websocket push and the MQTT publisher only read, through Snapshot and
// Log().Entries(), and learn about changes through Subscribe.
//
// Settings snapshots carry their receive time; an older snapshot never
// overwrites a newer one (ApplySettings returns ErrStaleSettings).
package store

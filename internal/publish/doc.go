// Package publish mirrors the bridge state to an MQTT broker so home
// automation systems can follow the controller without polling the HTTP API.
package publish

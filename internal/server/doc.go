// Package server exposes the bridge over HTTP for the browser UI and the
// terminal monitor.
//
// # Endpoints
//
// All routes live under /api:
//
//	GET  /getInfo       connection state, device log, status and settings
//	GET  /getPorts      USB serial port names (?detail=1 for USB ids)
//	GET  /checkNow, /ping, /poll, /getSettings, /saveSettings,
//	     /getVersion, /pause, /resume, /disconnect
//	POST /connect       {port, baud, addressThis, addressClient}
//	POST /onoff         {channel, on}
//	POST /tempSwitch    {on}
//	POST /setSettings   settings form fields
//	GET  /ws            WebSocket stream of getInfo updates
//
// POST bodies may be JSON or form encoded. Numeric and address fields accept
// decimal or 0x-prefixed hex text. Commands answer as soon as the frame is
// queued; the result shows up in the device log.
//
// # Errors
//
// Invalid arguments and commands issued in the wrong connection state answer
// 400 with {"error": "..."}. A serial port that cannot be opened answers 502.
//
// # Graceful Shutdown
//
// Run serves until its context is cancelled, then stops accepting requests,
// sends a close frame to WebSocket clients and waits for them to finish.
package server

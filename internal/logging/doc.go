// Package logging provides structured process logging for the watering bridge.
//
// It wraps a global zap logger with convenience functions. The process log is
// separate from the device log kept by the store: the device log is what the
// web UI shows, this one is for operators.
//
// # Log Levels
//
//   - Debug: radio frames (hex), timer fires, websocket pushes
//   - Info: HTTP requests, connect/disconnect, negotiated version
//   - Warn: transport errors, dropped frames from foreign addresses
//   - Error: startup failures
//
// # Configuration
//
// The level comes from the config file or the WATERING_LOG_LEVEL environment
// variable. Without either the logger is a no-op:
//
//	if err := logging.InitializeWithFormat(cfg.Log.Level, cfg.Log.Format); err != nil {
//	    return err
//	}
//	defer logging.Sync()
//
// # Specialized Logging
//
//	logging.LogFrame("rx", 0xDC, []byte{0xF1, 2, 1, 0})
//	logging.LogHTTPRequest(r.RemoteAddr, r.Method, r.URL.Path, 200, elapsed)
//	logging.LogConnection(conn.RemoteAddr().String(), "websocket_upgraded")
//
// # Thread Safety
//
// All logging functions are safe for concurrent use once Initialize returned.
package logging

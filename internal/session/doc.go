// Package session implements the connection to the watering controller:
// the state machine, version negotiation and the commands a user can send.
//
// # States
//
//	Disconnected --Connect--> Connecting --VersionReply--> Connected
//	Connecting/Connected --Disconnect--> Disconnected
//
// Connecting and Connected accept the same commands. Until the controller
// answered the version query, frames are built for the oldest layout.
// After Connect the bridge sends GET_VERSION after 500 ms and then every 3 s
// until a VERSION frame arrives. There is no automatic reconnect.
//
// # Concurrency
//
// One goroutine (the loop) owns all session state and is the only writer of
// the store. Public methods, transport callbacks, timer fires and send
// results are queued onto it. Each connect starts a new generation; work
// queued by an older generation is discarded, so nothing received after
// Disconnect reaches the store.
//
// Commands return once the frame is queued for sending. Whether the
// controller acknowledged it is written to the device log:
//
//	if err := s.SetChannel(ctx, 2, true); err != nil {
//	    // not connected or invalid channel
//	}
//	// log: "send message 0x65" or "error sending message 0x65: ..."
//
// # Errors
//
// Operations return *BridgeError with one of the ErrorType categories.
// Transport send failures are logged only. Undecodable frames are ignored.
package session

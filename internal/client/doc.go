// Package client is an HTTP client for the bridge API. It is used by the
// terminal monitor and the command line tools to drive a bridge running
// elsewhere.
//
// Reads (getInfo, getPorts) are retried on network failures and 5xx
// responses; commands are sent once, since repeating them would repeat the
// radio frame.
package client

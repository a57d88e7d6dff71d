// Package monitor is a full-screen terminal view of a running bridge.
//
// The monitor polls GET /api/getInfo, shows the connection state, valve and
// sensor status, the controller settings, and a scrolling device log, and
// sends commands on key presses:
//
//	c  check now        p  ping             o  poll
//	g  get settings     S  save settings    v  version
//	z  pause            x  resume           D  disconnect
//	1-4 toggle valve    t  toggle temp switch
//	r  refresh          ?  help             q  quit
//
// Without a URL the first bridge advertised over mDNS is used.
//
// Usage:
//
//	err := monitor.Run(ctx, monitor.Options{URL: "http://192.168.1.20:8080"})
package monitor

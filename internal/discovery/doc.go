// Package discovery advertises and finds watering bridges with mDNS.
//
// A bridge registers its HTTP API as a "_watering._tcp" service with TXT
// records carrying the bridge version, the API path prefix and the controller
// address. The terminal monitor browses for that service when no API URL is
// given.
//
// # Usage Example
//
//	ad, err := discovery.Advertise("greenhouse", 8080, []string{"version=v1.0.0", "path=/api"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ad.Shutdown()
//
//	bridge, err := discovery.NewScanner().WaitForBridge(ctx, "")
//	if err == nil {
//	    fmt.Println(bridge.BaseURL())
//	}
package discovery

// Package discovery advertises the daemon over mDNS and finds running
// daemons on the local network.
//
// The portal is published as a "_http._tcp" service. Its TXT record carries
// a "wifictl" marker so browsers can tell it apart from other HTTP services,
// plus the WebSocket path and the daemon version.
//
// # Advertising
//
// Advertiser implements wifi.HostnameSetter. The connection manager calls
// SetHostname after the station obtains an address, and the service is
// (re-)registered under "<hostname>.local" on that interface:
//
//	adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{
//	    Port:       80,
//	    Interfaces: map[wifi.Interface]string{wifi.InterfaceStation: "wlan0"},
//	})
//	defer adv.Close()
//
// # Browsing
//
//	daemons, err := discovery.NewScanner().Browse(ctx)
//	for _, d := range daemons {
//	    fmt.Println(d, d.WebSocketURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Firewall must allow mDNS (UDP port 5353)
//
// # Thread Safety
//
// Advertiser and Scanner are safe for concurrent use.
package discovery

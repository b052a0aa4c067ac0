package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

// Daemon represents a wifid instance discovered on the network
type Daemon struct {
	// Instance is the mDNS service instance name (e.g., "Esp32Device")
	Instance string

	// Hostname is the advertised host (e.g., "kitchen-sensor.local.")
	Hostname string

	// IP is the first IPv4 address, or an IPv6 address when no IPv4 was announced
	IP string

	// Port is the portal port
	Port int

	// Version is the daemon version from the TXT record, if present
	Version string

	// Path is the WebSocket path of the portal (default "/ws")
	Path string

	// Metadata contains every TXT record as key/value
	Metadata map[string]string

	// DiscoveredAt is when the daemon was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable description of the daemon
func (d *Daemon) String() string {
	return fmt.Sprintf("%s (%s) at %s", d.Instance, d.Hostname, d.Address())
}

// Address returns host:port, bracketing IPv6 addresses
func (d *Daemon) Address() string {
	return net.JoinHostPort(d.IP, strconv.Itoa(d.Port))
}

// BaseURL returns the HTTP base URL of the portal
func (d *Daemon) BaseURL() string {
	return "http://" + d.Address()
}

// WebSocketURL returns the portal endpoint URL
func (d *Daemon) WebSocketURL() string {
	path := d.Path
	if path == "" {
		path = DefaultPath
	}
	return "ws://" + d.Address() + path
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (d *Daemon) GetMetadata(key string) string {
	if d.Metadata == nil {
		return ""
	}
	return d.Metadata[key]
}

package discovery

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the mDNS service type the portal is advertised under
	ServiceType = "_http._tcp"

	// ServiceDomain is the mDNS domain (typically "local.")
	ServiceDomain = "local."

	// DefaultScanTimeout is the default timeout for daemon discovery
	DefaultScanTimeout = 10 * time.Second

	// DefaultPort is the default portal port
	DefaultPort = 80

	// DefaultPath is the default WebSocket path of the portal
	DefaultPath = "/ws"

	// MarkerKey is the TXT key that identifies wifid among other HTTP services
	MarkerKey = "wifictl"
)

// Scanner browses the local network for running daemons
type Scanner struct {
	// Timeout is the maximum time to wait for discovery
	Timeout time.Duration
}

// NewScanner creates a new mDNS scanner with default settings
func NewScanner() *Scanner {
	return &Scanner{
		Timeout: DefaultScanTimeout,
	}
}

// Browse collects every daemon that answers before the timeout or ctx ends.
func (s *Scanner) Browse(ctx context.Context) ([]*Daemon, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	entries := make(chan *zeroconf.ServiceEntry)
	var (
		mu      sync.Mutex
		daemons []*Daemon
		seen    = make(map[string]bool)
	)
	go func() {
		for entry := range entries {
			d := parseServiceEntry(entry)
			if d == nil {
				continue
			}
			mu.Lock()
			if !seen[d.Instance+"|"+d.Address()] {
				seen[d.Instance+"|"+d.Address()] = true
				daemons = append(daemons, d)
			}
			mu.Unlock()
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]*Daemon(nil), daemons...), nil
}

// WaitFor returns the first daemon advertising hostname (with or without
// the ".local." suffix).
func (s *Scanner) WaitFor(ctx context.Context, hostname string) (*Daemon, error) {
	ctx, cancel := context.WithTimeout(ctx, s.Timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	want := shortHost(hostname)
	entries := make(chan *zeroconf.ServiceEntry)
	found := make(chan *Daemon, 1)
	go func() {
		for entry := range entries {
			d := parseServiceEntry(entry)
			if d != nil && shortHost(d.Hostname) == want {
				select {
				case found <- d:
				default:
				}
				cancel()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}

	select {
	case d := <-found:
		return d, nil
	case <-ctx.Done():
		select {
		case d := <-found:
			return d, nil
		default:
		}
		return nil, fmt.Errorf("daemon %s not found within timeout", hostname)
	}
}

func shortHost(h string) string {
	h = strings.TrimSuffix(h, ".")
	h = strings.TrimSuffix(h, ".local")
	return strings.ToLower(h)
}

// parseTXT splits TXT records into key/value pairs; bare keys map to "".
func parseTXT(records []string) map[string]string {
	metadata := make(map[string]string, len(records))
	for _, txt := range records {
		parts := strings.SplitN(txt, "=", 2)
		if len(parts) == 2 {
			metadata[parts[0]] = parts[1]
		} else {
			metadata[parts[0]] = ""
		}
	}
	return metadata
}

// parseServiceEntry converts a zeroconf service entry to a Daemon.
// Returns nil if the entry does not carry the wifictl marker or an address.
func parseServiceEntry(entry *zeroconf.ServiceEntry) *Daemon {
	if entry == nil || entry.HostName == "" {
		return nil
	}

	metadata := parseTXT(entry.Text)
	if _, ok := metadata[MarkerKey]; !ok {
		return nil
	}

	var ip string
	if len(entry.AddrIPv4) > 0 {
		ip = entry.AddrIPv4[0].String()
	} else if len(entry.AddrIPv6) > 0 {
		ip = entry.AddrIPv6[0].String()
	}
	if ip == "" {
		return nil
	}

	port := entry.Port
	if port == 0 {
		port = DefaultPort
	}

	return &Daemon{
		Instance:     entry.Instance,
		Hostname:     entry.HostName,
		IP:           ip,
		Port:         port,
		Version:      metadata["version"],
		Path:         metadata["path"],
		Metadata:     metadata,
		DiscoveredAt: time.Now(),
	}
}

// QuickScan performs a fast browse with a 3-second timeout
func QuickScan(ctx context.Context) ([]*Daemon, error) {
	scanner := NewScanner()
	scanner.Timeout = 3 * time.Second
	return scanner.Browse(ctx)
}

package discovery

import (
	"errors"
	"fmt"
	"net"
	"regexp"
	"sync"

	"github.com/grandcat/zeroconf"
	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/wifi"
)

// DefaultInstance is the service instance name used when none is configured.
const DefaultInstance = "Esp32Device"

var hostnamePattern = regexp.MustCompile(`^[A-Za-z0-9]([A-Za-z0-9-]{0,61}[A-Za-z0-9])?$`)

// ValidateHostname checks that name is a single RFC 1123 label.
func ValidateHostname(name string) error {
	if !hostnamePattern.MatchString(name) {
		return fmt.Errorf("invalid hostname %q: must be 1-63 letters, digits or hyphens", name)
	}
	return nil
}

// AdvertiserConfig configures mDNS advertisement of the portal.
type AdvertiserConfig struct {
	Instance   string                    // Service instance name (default "Esp32Device")
	Port       int                       // Portal port (default 80)
	Path       string                    // WebSocket path (default "/ws")
	Version    string                    // Published in the TXT record
	Interfaces map[wifi.Interface]string // Network interface names by role
	Logger     *zap.Logger
}

type shutdowner interface {
	Shutdown()
}

type registerFunc func(instance, host string, port int, ips, text []string, ifaces []net.Interface) (shutdowner, error)

func zeroconfRegister(instance, host string, port int, ips, text []string, ifaces []net.Interface) (shutdowner, error) {
	return zeroconf.RegisterProxy(instance, ServiceType, ServiceDomain, port, host, ips, text, ifaces)
}

// Advertiser publishes the daemon under its hostname. It implements
// wifi.HostnameSetter: each call re-registers the service on the
// interface that just obtained an address.
type Advertiser struct {
	cfg      AdvertiserConfig
	log      *zap.Logger
	register registerFunc
	lookup   func(ifname string) (*net.Interface, []string, error)

	mu      sync.Mutex
	servers map[wifi.Interface]shutdowner
}

var _ wifi.HostnameSetter = (*Advertiser)(nil)

// NewAdvertiser creates an advertiser; nothing is published until
// SetHostname is called.
func NewAdvertiser(cfg AdvertiserConfig) *Advertiser {
	if cfg.Instance == "" {
		cfg.Instance = DefaultInstance
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}
	a := &Advertiser{
		cfg:      cfg,
		log:      cfg.Logger,
		register: zeroconfRegister,
		lookup:   interfaceAddrs,
		servers:  make(map[wifi.Interface]shutdowner),
	}
	if a.log == nil {
		a.log = logging.Named("discovery")
	}
	return a
}

// TXT returns the TXT records published with the service.
func (a *Advertiser) TXT() []string {
	txt := []string{MarkerKey + "=1", "path=" + a.cfg.Path}
	if a.cfg.Version != "" {
		txt = append(txt, "version="+a.cfg.Version)
	}
	return txt
}

// SetHostname registers (or re-registers) the service for iface under name.
func (a *Advertiser) SetHostname(iface wifi.Interface, name string) error {
	if err := ValidateHostname(name); err != nil {
		return err
	}
	ifname, ok := a.cfg.Interfaces[iface]
	if !ok || ifname == "" {
		return fmt.Errorf("no network interface configured for %s", iface)
	}
	ifi, ips, err := a.lookup(ifname)
	if err != nil {
		return err
	}
	if len(ips) == 0 {
		return fmt.Errorf("interface %s has no address to advertise", ifname)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if prev, ok := a.servers[iface]; ok {
		prev.Shutdown()
		delete(a.servers, iface)
	}
	srv, err := a.register(a.cfg.Instance, name, a.cfg.Port, ips, a.TXT(), []net.Interface{*ifi})
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	a.servers[iface] = srv

	a.log.Info("Advertising service",
		zap.String("instance", a.cfg.Instance),
		zap.String("hostname", name+".local"),
		zap.String("interface", ifname),
		zap.Strings("ips", ips),
		zap.Int("port", a.cfg.Port),
	)
	return nil
}

// Withdraw stops advertising on iface.
func (a *Advertiser) Withdraw(iface wifi.Interface) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if srv, ok := a.servers[iface]; ok {
		srv.Shutdown()
		delete(a.servers, iface)
	}
}

// Close stops every advertisement.
func (a *Advertiser) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for iface, srv := range a.servers {
		srv.Shutdown()
		delete(a.servers, iface)
	}
}

func interfaceAddrs(ifname string) (*net.Interface, []string, error) {
	ifi, err := net.InterfaceByName(ifname)
	if err != nil {
		return nil, nil, fmt.Errorf("could not find interface %s: %w", ifname, err)
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, nil, fmt.Errorf("could not list addresses of %s: %w", ifname, err)
	}
	var ips []string
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
			ips = append(ips, ipnet.IP.String())
		}
	}
	if ips == nil {
		return ifi, nil, errors.New("no IPv4 address on " + ifname)
	}
	return ifi, ips, nil
}

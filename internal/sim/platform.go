package sim

import (
	"errors"
	"fmt"
	"net/netip"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/radio"
	"github.com/muurk/wifictl/internal/reconnect"
	"github.com/muurk/wifictl/internal/wifi"
)

// DefaultLatency is the delay before asynchronous events are delivered.
const DefaultLatency = 20 * time.Millisecond

// Network is an access point visible to the simulated radio.
type Network struct {
	SSID     string
	BSSID    string
	Password string
	RSSI     int
	Channel  int
	AuthMode wifi.AuthMode
}

// Config configures a simulated platform.
type Config struct {
	Networks []Network
	Latency  time.Duration
	// Subnet hands out station addresses; defaults to 192.168.1.0/24.
	Subnet netip.Prefix
	Logger *zap.Logger
}

// Platform is an in-memory radio implementing wifi.Platform.
type Platform struct {
	log     *zap.Logger
	latency time.Duration
	subnet  netip.Prefix

	mu         sync.Mutex
	networks   []Network
	mode       radio.Mode
	started    bool
	station    *wifi.StationConfig
	staticIP   *wifi.IPInfo
	ap         *wifi.AccessPointConfig
	attempt    uint64 // bumped whenever a link or attempt is torn down
	connecting bool
	linked     bool
	scanning   bool
	failScan   bool
	leases     int

	events chan wifi.PlatformEvent
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ wifi.Platform = (*Platform)(nil)

// New creates a stopped radio in mode Off.
func New(cfg Config) *Platform {
	p := &Platform{
		log:      cfg.Logger,
		latency:  cfg.Latency,
		subnet:   cfg.Subnet,
		networks: append([]Network(nil), cfg.Networks...),
		events:   make(chan wifi.PlatformEvent, 64),
		done:     make(chan struct{}),
	}
	if p.log == nil {
		p.log = logging.Named("sim")
	}
	if p.latency <= 0 {
		p.latency = DefaultLatency
	}
	if !p.subnet.IsValid() {
		p.subnet = netip.MustParsePrefix("192.168.1.0/24")
	}
	return p
}

// Events returns the event stream. It is closed by Close.
func (p *Platform) Events() <-chan wifi.PlatformEvent {
	return p.events
}

// Close stops event delivery and closes the event channel.
func (p *Platform) Close() error {
	p.once.Do(func() {
		close(p.done)
		p.wg.Wait()
		close(p.events)
	})
	return nil
}

// deliver sends the events produced by f after the configured latency.
// f runs under the platform lock and may return nothing.
func (p *Platform) deliver(f func() []wifi.PlatformEvent) {
	p.wg.Add(1)
	time.AfterFunc(p.latency, func() {
		defer p.wg.Done()
		select {
		case <-p.done:
			return
		default:
		}

		p.mu.Lock()
		evs := f()
		p.mu.Unlock()

		for _, ev := range evs {
			select {
			case p.events <- ev:
			case <-p.done:
				return
			}
		}
	})
}

func (p *Platform) SetMode(mode radio.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid radio mode %d", mode)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mode = mode
	return nil
}

func (p *Platform) ConfigureAccessPoint(cfg wifi.AccessPointConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mode.Has(radio.AccessPoint) {
		return errors.New("access point interface not enabled")
	}
	p.ap = &cfg
	return nil
}

func (p *Platform) ConfigureStation(cfg wifi.StationConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.mode.Has(radio.Station) {
		return errors.New("station interface not enabled")
	}
	p.station = &cfg
	return nil
}

func (p *Platform) ConfigureIP(info *wifi.IPInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if info == nil {
		p.staticIP = nil
		return nil
	}
	c := *info
	p.staticIP = &c
	return nil
}

func (p *Platform) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode == radio.Off {
		return errors.New("cannot start radio in mode off")
	}
	p.started = true
	return nil
}

// Stop powers the radio down. A live station link is reported as left.
func (p *Platform) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return wifi.ErrRadioNotStarted
	}
	p.started = false
	p.ap = nil
	if p.linked || p.connecting {
		p.dropLocked(reconnect.AssocLeave)
	}
	return nil
}

// Connect starts an association attempt with the configured station.
func (p *Platform) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return wifi.ErrRadioNotStarted
	}
	if p.station == nil {
		return errors.New("station not configured")
	}

	p.attempt++
	id := p.attempt
	p.connecting = true
	target := *p.station
	p.log.Debug("Association attempt", zap.String("ssid", target.SSID), zap.Uint64("attempt", id))

	p.deliver(func() []wifi.PlatformEvent {
		if p.attempt != id || !p.connecting {
			return nil
		}
		p.connecting = false

		n, ok := p.lookupLocked(target.SSID)
		switch {
		case !ok:
			return []wifi.PlatformEvent{wifi.LinkDown{Reason: reconnect.NoAPFound}}
		case n.AuthMode != wifi.AuthOpen && n.Password != target.Password:
			return []wifi.PlatformEvent{wifi.LinkDown{Reason: reconnect.AuthFail}}
		}

		p.linked = true
		ip := p.addressLocked()
		return []wifi.PlatformEvent{
			wifi.LinkUp{SSID: target.SSID},
			wifi.IPAcquired{
				SSID:    target.SSID,
				IP:      ip.IP.String(),
				Gateway: ip.Gateway.String(),
				Netmask: ip.Netmask.String(),
			},
		}
	})
	return nil
}

// Disconnect leaves the current network. It returns wifi.ErrNotConnected
// when there is neither a link nor an attempt in progress.
func (p *Platform) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.linked && !p.connecting {
		return wifi.ErrNotConnected
	}
	p.dropLocked(reconnect.AssocLeave)
	return nil
}

func (p *Platform) DeauthStations() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return wifi.ErrRadioNotStarted
	}
	return nil
}

// Scan reports every configured network, strongest first.
func (p *Platform) Scan() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return wifi.ErrRadioNotStarted
	}
	if !p.mode.Has(radio.Station) {
		return errors.New("station interface not enabled")
	}
	if p.scanning {
		return errors.New("scan already running")
	}
	p.scanning = true
	fail := p.failScan
	p.failScan = false

	p.deliver(func() []wifi.PlatformEvent {
		p.scanning = false
		if fail {
			return []wifi.PlatformEvent{wifi.ScanDone{OK: false}}
		}
		return []wifi.PlatformEvent{wifi.ScanDone{OK: true, Records: p.recordsLocked()}}
	})
	return nil
}

// Drop tears down the station link with reason, as if the AP or driver
// had ended it. It reports false when there was no link.
func (p *Platform) Drop(reason reconnect.Reason) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.linked && !p.connecting {
		return false
	}
	p.dropLocked(reason)
	return true
}

// FailNextScan makes the next scan complete with a failure.
func (p *Platform) FailNextScan() {
	p.mu.Lock()
	p.failScan = true
	p.mu.Unlock()
}

// SetNetworks replaces the visible networks. Existing links are kept.
func (p *Platform) SetNetworks(networks []Network) {
	p.mu.Lock()
	p.networks = append([]Network(nil), networks...)
	p.mu.Unlock()
}

// Mode returns the current radio mode.
func (p *Platform) Mode() radio.Mode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode
}

// AccessPoint returns the running access point configuration, if any.
func (p *Platform) AccessPoint() (wifi.AccessPointConfig, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ap == nil || !p.started || !p.mode.Has(radio.AccessPoint) {
		return wifi.AccessPointConfig{}, false
	}
	return *p.ap, true
}

// Linked reports whether the station holds a link.
func (p *Platform) Linked() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.linked
}

func (p *Platform) dropLocked(reason reconnect.Reason) {
	p.attempt++
	p.connecting = false
	p.linked = false
	p.log.Debug("Link dropped", zap.Int("reason", int(reason)))
	p.deliver(func() []wifi.PlatformEvent {
		return []wifi.PlatformEvent{wifi.LinkDown{Reason: reason}}
	})
}

func (p *Platform) lookupLocked(ssid string) (Network, bool) {
	for _, n := range p.networks {
		if n.SSID == ssid {
			return n, true
		}
	}
	return Network{}, false
}

func (p *Platform) addressLocked() wifi.IPInfo {
	if p.staticIP != nil {
		return *p.staticIP
	}
	base := p.subnet.Masked().Addr()
	gw := base.Next()
	ip := gw
	p.leases++
	for i := 0; i < 99+p.leases; i++ {
		ip = ip.Next()
	}
	mask := netip.AddrFrom4(prefixMask(p.subnet.Bits()))
	return wifi.IPInfo{IP: ip, Gateway: gw, Netmask: mask}
}

func (p *Platform) recordsLocked() []wifi.ApRecord {
	records := make([]wifi.ApRecord, 0, len(p.networks))
	for i, n := range p.networks {
		bssid := n.BSSID
		if bssid == "" {
			bssid = fmt.Sprintf("02:00:00:00:00:%02x", i+1)
		}
		records = append(records, wifi.ApRecord{
			SSID:     n.SSID,
			BSSID:    bssid,
			RSSI:     n.RSSI,
			Channel:  n.Channel,
			AuthMode: n.AuthMode,
		})
	}
	sort.SliceStable(records, func(i, j int) bool { return records[i].RSSI > records[j].RSSI })
	return records
}

func prefixMask(bits int) [4]byte {
	var m [4]byte
	for i := 0; i < bits && i < 32; i++ {
		m[i/8] |= 0x80 >> (i % 8)
	}
	return m
}

package wpa

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/radio"
	"github.com/muurk/wifictl/internal/reconnect"
	"github.com/muurk/wifictl/internal/wifi"
)

// Defaults for address acquisition.
const (
	DefaultInterface    = "wlan0"
	DefaultLeaseTimeout = 30 * time.Second
	DefaultPollInterval = 500 * time.Millisecond
)

// Config configures the wpa_supplicant platform.
type Config struct {
	Interface   string // Station interface (default wlan0)
	APInterface string // Access point interface; empty disables AP support
	Logger      *zap.Logger
	Runner      Runner // Defaults to os/exec

	LeaseTimeout time.Duration // How long to wait for DHCP after association
	PollInterval time.Duration
}

// Platform drives wpa_supplicant over the D-Bus system bus. It implements
// wifi.Platform. DHCP is left to the system client; the platform only
// watches for the resulting address.
type Platform struct {
	log          *zap.Logger
	run          Runner
	leaseTimeout time.Duration
	pollInterval time.Duration

	conn    *dbus.Conn
	sta     *supplicantInterface
	ap      *supplicantInterface
	signals chan *dbus.Signal
	events  chan wifi.PlatformEvent
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once

	mu            sync.Mutex
	mode          radio.Mode
	started       bool
	stationNet    dbus.ObjectPath
	stationSSID   string
	staticIP      *wifi.IPInfo
	apNet         dbus.ObjectPath
	apActive      bool
	scanRequested bool
	link          linkTracker
	cancelLease   context.CancelFunc
}

var _ wifi.Platform = (*Platform)(nil)

// Open connects to the system bus and attaches to the configured interfaces.
func Open(cfg Config) (*Platform, error) {
	p := &Platform{
		log:          cfg.Logger,
		run:          cfg.Runner,
		leaseTimeout: cfg.LeaseTimeout,
		pollInterval: cfg.PollInterval,
		signals:      make(chan *dbus.Signal, 32),
		events:       make(chan wifi.PlatformEvent, 32),
		done:         make(chan struct{}),
	}
	if p.log == nil {
		p.log = logging.Named("wpa")
	}
	if p.run == nil {
		p.run = execRunner
	}
	if p.leaseTimeout <= 0 {
		p.leaseTimeout = DefaultLeaseTimeout
	}
	if p.pollInterval <= 0 {
		p.pollInterval = DefaultPollInterval
	}
	ifname := cfg.Interface
	if ifname == "" {
		ifname = DefaultInterface
	}

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return nil, fmt.Errorf("could not connect to system bus: %w", err)
	}
	p.conn = conn

	if p.sta, err = getInterface(conn, ifname); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if cfg.APInterface != "" {
		if p.ap, err = getInterface(conn, cfg.APInterface); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	if err := p.sta.watch(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	conn.Signal(p.signals)
	p.wg.Add(1)
	go p.loop()

	p.log.Info("Attached to wpa_supplicant",
		zap.String("interface", ifname),
		zap.String("ap_interface", cfg.APInterface),
		zap.String("path", string(p.sta.path())),
	)
	return p, nil
}

// Events returns the platform event stream. It is closed by Close.
func (p *Platform) Events() <-chan wifi.PlatformEvent {
	return p.events
}

// Close detaches from D-Bus and closes the event channel.
func (p *Platform) Close() error {
	var err error
	p.once.Do(func() {
		close(p.done)
		p.conn.RemoveSignal(p.signals)
		p.sta.unwatch()

		p.mu.Lock()
		if p.cancelLease != nil {
			p.cancelLease()
		}
		p.mu.Unlock()

		p.wg.Wait()
		close(p.events)
		err = p.conn.Close()
	})
	return err
}

func (p *Platform) loop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.done:
			return
		case sig, ok := <-p.signals:
			if !ok {
				return
			}
			if sig.Path != p.sta.path() {
				continue
			}
			switch sig.Name {
			case ifaceIntf + ".PropertiesChanged":
				p.onPropertiesChanged(sig.Body)
			case ifaceIntf + ".ScanDone":
				success := false
				if len(sig.Body) > 0 {
					success, _ = sig.Body[0].(bool)
				}
				p.onScanDone(success)
			}
		}
	}
}

func (p *Platform) send(ev wifi.PlatformEvent) {
	select {
	case p.events <- ev:
	case <-p.done:
	}
}

func (p *Platform) onPropertiesChanged(body []interface{}) {
	state, hasState, reason, hasReason := parsePropertiesChanged(body)
	if hasState {
		p.log.Debug("Supplicant state", zap.String("state", state))
	}

	p.mu.Lock()
	wasAttempt := p.link.attempting
	edge, r := p.link.observe(state, hasState, reason, hasReason)
	ssid := p.stationSSID
	if edge == edgeDown && p.cancelLease != nil {
		p.cancelLease()
		p.cancelLease = nil
	}
	var ctx context.Context
	if edge == edgeUp {
		ctx, p.cancelLease = context.WithCancel(context.Background())
	}
	static := p.staticIP
	p.mu.Unlock()

	switch edge {
	case edgeUp:
		p.send(wifi.LinkUp{SSID: ssid})
		p.wg.Add(1)
		go p.acquireLease(ctx, ssid, static)
	case edgeDown:
		if wasAttempt && r != reconnect.AssocLeave {
			// Keep the supplicant idle; retries are scheduled by the caller.
			if err := p.sta.disconnect(); err != nil {
				p.log.Debug("Could not idle interface after failed attempt", zap.Error(err))
			}
		}
		p.send(wifi.LinkDown{Reason: r})
	}
}

func (p *Platform) onScanDone(ok bool) {
	p.mu.Lock()
	requested := p.scanRequested
	p.scanRequested = false
	p.mu.Unlock()
	if !requested {
		return
	}

	if !ok {
		p.send(wifi.ScanDone{OK: false})
		return
	}
	props, err := p.sta.bssProperties()
	if err != nil {
		p.log.Warn("Could not read scan results", zap.Error(err))
		p.send(wifi.ScanDone{OK: false})
		return
	}
	p.send(wifi.ScanDone{OK: true, Records: parseBSSList(props)})
}

// acquireLease applies the static address, or waits for the DHCP client
// to assign one, and reports it.
func (p *Platform) acquireLease(ctx context.Context, ssid string, static *wifi.IPInfo) {
	defer p.wg.Done()

	if static != nil {
		cmds, err := staticAddressCommands(p.sta.ifname, static.IP, static.Gateway, static.Netmask)
		if err == nil {
			for _, c := range cmds {
				if _, err = p.run(ctx, c[0], c[1:]...); err != nil {
					break
				}
			}
		}
		if err != nil {
			p.log.Error("Could not apply static address", zap.Error(err))
			return
		}
		p.send(wifi.IPAcquired{
			SSID:    ssid,
			IP:      static.IP.String(),
			Gateway: static.Gateway.String(),
			Netmask: static.Netmask.String(),
		})
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.leaseTimeout)
	defer cancel()
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		l, ok, err := interfaceLease(p.sta.ifname)
		if err != nil {
			p.log.Warn("Could not read interface address", zap.Error(err))
		}
		if ok {
			p.send(wifi.IPAcquired{
				SSID:    ssid,
				IP:      l.IP.String(),
				Gateway: l.Gateway.String(),
				Netmask: l.Netmask.String(),
			})
			return
		}
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				p.log.Warn("No address assigned after association", zap.Duration("timeout", p.leaseTimeout))
			}
			return
		case <-p.done:
			return
		case <-ticker.C:
		}
	}
}

func (p *Platform) SetMode(mode radio.Mode) error {
	if !mode.Valid() {
		return fmt.Errorf("invalid radio mode %d", mode)
	}
	if mode.Has(radio.AccessPoint) && p.ap == nil {
		return errors.New("no access point interface configured")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if !mode.Has(radio.Station) && p.stationNet != "" {
		if err := p.sta.removeAllNetworks(); err != nil {
			return err
		}
		p.stationNet = ""
		p.stationSSID = ""
	}
	if !mode.Has(radio.AccessPoint) && p.apNet != "" {
		if err := p.ap.removeAllNetworks(); err != nil {
			return err
		}
		p.apNet = ""
		p.apActive = false
	}
	p.mode = mode
	return nil
}

func (p *Platform) ConfigureAccessPoint(cfg wifi.AccessPointConfig) error {
	if p.ap == nil {
		return errors.New("no access point interface configured")
	}
	args, err := accessPointNetworkArgs(cfg)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ap.removeAllNetworks(); err != nil {
		return err
	}
	path, err := p.ap.addNetwork(args)
	if err != nil {
		return err
	}
	p.apNet = path
	p.apActive = false
	return nil
}

func (p *Platform) ConfigureStation(cfg wifi.StationConfig) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.sta.removeAllNetworks(); err != nil {
		return err
	}
	path, err := p.sta.addNetwork(stationNetworkArgs(cfg))
	if err != nil {
		return err
	}
	p.stationNet = path
	p.stationSSID = cfg.SSID
	return nil
}

func (p *Platform) ConfigureIP(info *wifi.IPInfo) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if info == nil {
		p.staticIP = nil
		return nil
	}
	if _, err := staticAddressCommands(p.sta.ifname, info.IP, info.Gateway, info.Netmask); err != nil {
		return err
	}
	c := *info
	p.staticIP = &c
	return nil
}

// Start brings up the configured access point. The station side needs no
// start; wpa_supplicant manages the interface already.
func (p *Platform) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode == radio.Off {
		return errors.New("cannot start radio in mode off")
	}
	if p.apNet != "" && !p.apActive {
		if err := p.ap.selectNetwork(p.apNet); err != nil {
			return err
		}
		p.apActive = true
	}
	p.started = true
	return nil
}

func (p *Platform) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return wifi.ErrRadioNotStarted
	}
	p.started = false

	var first error
	if p.link.active() {
		p.link.local = true
		first = p.sta.disconnect()
	}
	if p.apActive {
		if err := p.ap.disconnect(); err != nil && first == nil {
			first = err
		}
		p.apActive = false
	}
	return first
}

func (p *Platform) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stationNet == "" {
		return errors.New("station not configured")
	}
	p.link.begin()
	if err := p.sta.selectNetwork(p.stationNet); err != nil {
		p.link.reset()
		return err
	}
	return nil
}

// Disconnect leaves the current network. An attempt that has not linked
// yet may never produce a state change, so its LinkDown is reported here.
func (p *Platform) Disconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.link.active() {
		return wifi.ErrNotConnected
	}

	if p.link.linked {
		p.link.local = true
		if err := p.sta.disconnect(); err != nil {
			p.link.local = false
			return err
		}
		return nil
	}

	if err := p.sta.disconnect(); err != nil {
		return err
	}
	p.link.reset()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.send(wifi.LinkDown{Reason: reconnect.AssocLeave})
	}()
	return nil
}

// DeauthStations removes every client associated with the access point.
func (p *Platform) DeauthStations() error {
	p.mu.Lock()
	active := p.apActive
	p.mu.Unlock()
	if p.ap == nil || !active {
		return wifi.ErrRadioNotStarted
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out, err := p.run(ctx, "iw", "dev", p.ap.ifname, "station", "dump")
	if err != nil {
		return err
	}
	var first error
	for _, mac := range parseStationDump(string(out)) {
		if _, err := p.run(ctx, "iw", "dev", p.ap.ifname, "station", "del", mac); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (p *Platform) Scan() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started {
		return wifi.ErrRadioNotStarted
	}
	if err := p.sta.scan(); err != nil {
		return err
	}
	p.scanRequested = true
	return nil
}

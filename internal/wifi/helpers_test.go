package wifi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/muurk/wifictl/internal/radio"
)

// fakePlatform records calls and lets tests inject failures.
type fakePlatform struct {
	mu     sync.Mutex
	calls  []string
	modes  []radio.Mode
	ap     *AccessPointConfig
	sta    *StationConfig
	ip     *IPInfo
	errs   map[string]error
	events chan PlatformEvent

	// onDisconnect runs inside Disconnect, after the call is recorded.
	onDisconnect func()
	// onScan runs inside Scan, after the call is recorded.
	onScan func()
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{
		errs:   make(map[string]error),
		events: make(chan PlatformEvent, 16),
	}
}

func (p *fakePlatform) record(name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, name)
	return p.errs[name]
}

func (p *fakePlatform) fail(name string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs[name] = err
}

func (p *fakePlatform) count(name string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (p *fakePlatform) callLog() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

func (p *fakePlatform) SetMode(mode radio.Mode) error {
	if err := p.record("SetMode"); err != nil {
		return err
	}
	p.mu.Lock()
	p.modes = append(p.modes, mode)
	p.mu.Unlock()
	return nil
}

func (p *fakePlatform) ConfigureAccessPoint(cfg AccessPointConfig) error {
	if err := p.record("ConfigureAccessPoint"); err != nil {
		return err
	}
	p.mu.Lock()
	p.ap = &cfg
	p.mu.Unlock()
	return nil
}

func (p *fakePlatform) ConfigureStation(cfg StationConfig) error {
	if err := p.record("ConfigureStation"); err != nil {
		return err
	}
	p.mu.Lock()
	p.sta = &cfg
	p.mu.Unlock()
	return nil
}

func (p *fakePlatform) ConfigureIP(info *IPInfo) error {
	if err := p.record("ConfigureIP"); err != nil {
		return err
	}
	p.mu.Lock()
	p.ip = info
	p.mu.Unlock()
	return nil
}

func (p *fakePlatform) Start() error          { return p.record("Start") }
func (p *fakePlatform) Stop() error           { return p.record("Stop") }
func (p *fakePlatform) Connect() error        { return p.record("Connect") }
func (p *fakePlatform) DeauthStations() error { return p.record("DeauthStations") }

func (p *fakePlatform) Scan() error {
	err := p.record("Scan")
	if p.onScan != nil {
		p.onScan()
	}
	return err
}

func (p *fakePlatform) Disconnect() error {
	err := p.record("Disconnect")
	if p.onDisconnect != nil {
		p.onDisconnect()
	}
	return err
}

func (p *fakePlatform) Events() <-chan PlatformEvent { return p.events }

// memStore is an in-memory Store.
type memStore struct {
	mu       sync.Mutex
	station  *StationConfig
	ap       *AccessPointConfig
	ip       map[Interface]IPInfo
	hostname string
	saves    int
}

func newMemStore() *memStore {
	return &memStore{ip: make(map[Interface]IPInfo)}
}

func (s *memStore) LoadStationConfig() (*StationConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.station == nil {
		return nil, fmt.Errorf("station: %w", ErrConfigNotFound)
	}
	c := *s.station
	return &c, nil
}

func (s *memStore) SaveStationConfig(cfg StationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.station = &cfg
	s.saves++
	return nil
}

func (s *memStore) DeleteStationConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.station = nil
	return nil
}

func (s *memStore) LoadAccessPointConfig() (*AccessPointConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ap == nil {
		return nil, ErrConfigNotFound
	}
	c := *s.ap
	return &c, nil
}

func (s *memStore) SaveAccessPointConfig(cfg AccessPointConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ap = &cfg
	return nil
}

func (s *memStore) DeleteAccessPointConfig() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ap = nil
	return nil
}

func (s *memStore) LoadIPInfo(iface Interface) (*IPInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	info, ok := s.ip[iface]
	if !ok {
		return nil, ErrConfigNotFound
	}
	return &info, nil
}

func (s *memStore) SaveIPInfo(iface Interface, info IPInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ip[iface] = info
	return nil
}

func (s *memStore) DeleteIPInfo(iface Interface) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ip, iface)
	return nil
}

func (s *memStore) LoadHostname() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hostname == "" {
		return "", ErrConfigNotFound
	}
	return s.hostname, nil
}

type fakeHostname struct {
	mu    sync.Mutex
	names []string
	err   error
}

func (h *fakeHostname) SetHostname(iface Interface, name string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.names = append(h.names, iface.String()+":"+name)
	return h.err
}

// manualTimers replaces time.AfterFunc so tests decide when retries fire.
type manualTimers struct {
	mu     sync.Mutex
	timers []*manualTimer
}

type manualTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (mt *manualTimers) afterFunc(d time.Duration, f func()) func() bool {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	t := &manualTimer{delay: d, f: f}
	mt.timers = append(mt.timers, t)
	return func() bool {
		mt.mu.Lock()
		defer mt.mu.Unlock()
		was := !t.stopped
		t.stopped = true
		return was
	}
}

func (mt *manualTimers) last(t *testing.T) *manualTimer {
	t.Helper()
	mt.mu.Lock()
	defer mt.mu.Unlock()
	if len(mt.timers) == 0 {
		t.Fatal("Expected a scheduled reconnect, none armed")
	}
	return mt.timers[len(mt.timers)-1]
}

func (mt *manualTimers) armed() int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return len(mt.timers)
}

// fire runs the timer callback as the runtime would, even if stopped.
func (tm *manualTimer) fire() { tm.f() }

// recorder collects observer events.
type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) observe(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recorder) lastDisconnect(t *testing.T) StationDisconnected {
	t.Helper()
	evs := r.all()
	for i := len(evs) - 1; i >= 0; i-- {
		if d, ok := evs[i].(StationDisconnected); ok {
			return d
		}
	}
	t.Fatalf("Expected a StationDisconnected event, got %v", evs)
	return StationDisconnected{}
}

type fixture struct {
	mgr      *Manager
	platform *fakePlatform
	store    *memStore
	hostname *fakeHostname
	timers   *manualTimers
	events   *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		platform: newFakePlatform(),
		store:    newMemStore(),
		hostname: &fakeHostname{},
		timers:   &manualTimers{},
		events:   &recorder{},
	}
	mgr, err := New(Config{
		Platform:        f.platform,
		Store:           f.store,
		Hostname:        f.hostname,
		Logger:          zaptest.NewLogger(t),
		LockTimeout:     200 * time.Millisecond,
		TeardownTimeout: 500 * time.Millisecond,
		AfterFunc:       f.timers.afterFunc,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	mgr.Subscribe(f.events.observe)
	f.mgr = mgr
	return f
}

// connect brings the station to Connected through the event bridge.
func (f *fixture) connect(t *testing.T, autoReconnect bool) {
	t.Helper()
	cfg := &StationConfig{SSID: "home", Password: "password1", AuthMode: AuthWPA2PSK}
	if err := f.mgr.ConnectStation(cfg, autoReconnect); err != nil {
		t.Fatalf("ConnectStation failed: %v", err)
	}
	f.mgr.HandleEvent(LinkUp{SSID: "home"})
	f.mgr.HandleEvent(IPAcquired{SSID: "home", IP: "192.168.1.50", Gateway: "192.168.1.1", Netmask: "255.255.255.0"})
}

func (f *fixture) status(t *testing.T) Status {
	t.Helper()
	s, err := f.mgr.Status(context.Background())
	if err != nil {
		t.Fatalf("Status failed: %v", err)
	}
	return s
}

var errBoom = errors.New("boom")

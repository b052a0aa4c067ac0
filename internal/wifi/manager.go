package wifi

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/radio"
	"github.com/muurk/wifictl/internal/reconnect"
)

// Default lock acquisition bounds.
const (
	DefaultLockTimeout     = 1 * time.Second
	DefaultTeardownTimeout = 5 * time.Second
)

// Default access point parameters.
const (
	DefaultAPChannel        = 0
	DefaultAPMaxConnections = 4
)

// AfterFunc arms a one-shot timer that calls f after d and returns a
// function that stops it. time.AfterFunc is used when none is configured.
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

// Config holds the collaborators and tunables of a Manager.
type Config struct {
	Platform Platform           // Radio driver (required)
	Store    Store              // Persisted configuration (optional)
	Hostname HostnameSetter     // Invoked after IP acquisition (optional)
	Prober   ReachabilityProber // Used by Status only (optional)
	Logger   *zap.Logger        // Defaults to the "wifi" named global logger

	LockTimeout     time.Duration // Bound for interactive operations (default 1s)
	TeardownTimeout time.Duration // Bound for Close and event delivery (default 5s)

	APChannel        int  // Channel for access points started by the manager, 0 = auto
	APMaxConnections int  // Client limit for access points (default 4)
	APHidden         bool // Do not broadcast the access point SSID
	SSIDLimit        int  // Platform SSID limit in bytes, ssids beyond it are truncated (default 32)

	AfterFunc AfterFunc
}

// Manager arbitrates the radio mode, station connection and scans.
type Manager struct {
	platform Platform
	store    Store
	hostname HostnameSetter
	prober   ReachabilityProber
	log      *zap.Logger

	lockTimeout     time.Duration
	teardownTimeout time.Duration
	apChannel       int
	apMaxConn       int
	apHidden        bool
	ssidLimit       int
	afterFunc       AfterFunc

	mu *timedMutex

	// Guarded by mu.
	mode                    radio.Mode
	state                   StationState
	autoReconnect           bool
	pending                 *pendingReconnect
	generation              uint64
	userRequestedDisconnect bool
	disconnectHandedOff     bool // ConnectStation absorbs the requested LinkDown
	absorbDisconnects       int
	lastReason              *reconnect.Reason
	link                    Link
	stationCfg              *StationConfig
	stationArmed            bool
	scan                    scanSession
	closed                  bool

	obsMu    sync.RWMutex
	observer Observer
}

type pendingReconnect struct {
	id    uint64
	delay time.Duration
	stop  func() bool
}

// New creates a Manager with the radio assumed Off.
func New(cfg Config) (*Manager, error) {
	if cfg.Platform == nil {
		return nil, errors.New("wifi: platform is required")
	}

	m := &Manager{
		platform:        cfg.Platform,
		store:           cfg.Store,
		hostname:        cfg.Hostname,
		prober:          cfg.Prober,
		log:             cfg.Logger,
		lockTimeout:     cfg.LockTimeout,
		teardownTimeout: cfg.TeardownTimeout,
		apChannel:       cfg.APChannel,
		apMaxConn:       cfg.APMaxConnections,
		apHidden:        cfg.APHidden,
		ssidLimit:       cfg.SSIDLimit,
		afterFunc:       cfg.AfterFunc,
		mu:              newTimedMutex(),
	}
	if m.log == nil {
		m.log = logging.Named("wifi")
	}
	if m.lockTimeout <= 0 {
		m.lockTimeout = DefaultLockTimeout
	}
	if m.teardownTimeout <= 0 {
		m.teardownTimeout = DefaultTeardownTimeout
	}
	if m.apMaxConn <= 0 {
		m.apMaxConn = DefaultAPMaxConnections
	}
	if m.ssidLimit <= 0 || m.ssidLimit > MaxSSIDLength {
		m.ssidLimit = MaxSSIDLength
	}
	if m.afterFunc == nil {
		m.afterFunc = func(d time.Duration, f func()) func() bool {
			return time.AfterFunc(d, f).Stop
		}
	}
	return m, nil
}

// Subscribe registers the observer, replacing any previous one. A nil
// observer unsubscribes.
func (m *Manager) Subscribe(obs Observer) {
	m.obsMu.Lock()
	m.observer = obs
	m.obsMu.Unlock()
}

// Run delivers platform events to HandleEvent until ctx is cancelled or
// the platform closes its event channel.
func (m *Manager) Run(ctx context.Context) error {
	events := m.platform.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			m.HandleEvent(ev)
		}
	}
}

// Status returns a snapshot of the manager state. When a prober is
// configured the internet check runs after the lock is released.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	if err := m.acquire("status", m.lockTimeout); err != nil {
		return Status{}, err
	}
	s := Status{
		Mode:             m.mode,
		Station:          m.reportedStateLocked(),
		AutoReconnect:    m.autoReconnect,
		ReconnectPending: m.pending != nil,
		Link:             m.link,
		Scanning:         m.scan.inProgress,
	}
	if m.lastReason != nil {
		r := *m.lastReason
		s.LastReason = &r
	}
	m.mu.unlock()

	if m.prober != nil {
		ok := m.prober.CheckInternet(ctx)
		s.Internet = &ok
	}
	return s, nil
}

// Close cancels any pending reconnect and releases scan results. Later
// operations fail with a state error.
func (m *Manager) Close() error {
	if !m.mu.lock(m.teardownTimeout) {
		m.log.Error("Timed out acquiring state lock during teardown")
		return NewTimeoutError("close", "timed out waiting for connection state lock")
	}
	defer m.mu.unlock()

	if m.closed {
		return nil
	}
	m.cancelPendingLocked()
	m.scan = scanSession{}
	m.stationArmed = false
	m.closed = true
	m.log.Debug("Connection manager closed")
	return nil
}

func (m *Manager) acquire(op string, d time.Duration) error {
	if !m.mu.lock(d) {
		m.log.Warn("Timed out acquiring state lock", zap.String("op", op), zap.Duration("timeout", d))
		return NewTimeoutError(op, "timed out waiting for connection state lock")
	}
	if m.closed {
		m.mu.unlock()
		return NewStateError(op, "connection manager is closed")
	}
	return nil
}

func (m *Manager) reportedStateLocked() StationState {
	if m.state == StateDisconnected && m.pending != nil {
		return StateReconnectScheduled
	}
	return m.state
}

// applyModeLocked moves the platform to target and records it.
func (m *Manager) applyModeLocked(op string, target radio.Mode) error {
	if err := m.platform.SetMode(target); err != nil {
		return NewHardwareError(op, fmt.Sprintf("failed to set radio mode %s", target), err)
	}
	if target != m.mode {
		logging.LogModeChange(m.log, m.mode.String(), target.String())
		m.mode = target
	}
	return nil
}

func (m *Manager) emit(events ...Event) {
	if len(events) == 0 {
		return
	}
	m.obsMu.RLock()
	obs := m.observer
	m.obsMu.RUnlock()
	if obs == nil {
		return
	}
	for _, ev := range events {
		m.notify(obs, ev)
	}
}

func (m *Manager) notify(obs Observer, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("Observer panicked",
				zap.String("event", ev.Name()),
				zap.Any("panic", r),
			)
		}
	}()
	obs(ev)
}

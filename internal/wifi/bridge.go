package wifi

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/logging"
	"github.com/muurk/wifictl/internal/reconnect"
)

// HandleEvent applies one platform event to the manager state and forwards
// the resulting normalized event to the observer. Run calls it for every
// event; it is exported so platforms without a channel can push directly.
func (m *Manager) HandleEvent(ev PlatformEvent) {
	if !m.mu.lock(m.teardownTimeout) {
		m.log.Error("Dropping platform event: state lock unavailable",
			zap.String("event", fmt.Sprintf("%T", ev)))
		return
	}
	if m.closed {
		m.mu.unlock()
		return
	}

	var (
		events []Event
		after  func()
	)
	switch e := ev.(type) {
	case LinkUp:
		events = m.onLinkUpLocked(e)
	case IPAcquired:
		events, after = m.onIPAcquiredLocked(e)
	case LinkDown:
		events = m.onLinkDownLocked(e)
	case ScanDone:
		events = m.onScanDoneLocked(e)
	default:
		m.log.Warn("Unknown platform event", zap.String("event", fmt.Sprintf("%T", ev)))
	}
	m.mu.unlock()

	m.emit(events...)
	if after != nil {
		after()
	}
}

func (m *Manager) onLinkUpLocked(e LinkUp) []Event {
	if !m.stationArmed {
		m.log.Debug("Ignoring link up while station events are disarmed")
		return nil
	}
	m.state = StateConnecting
	m.link = Link{SSID: e.SSID}
	m.log.Info("Station associated, waiting for IP", zap.String("ssid", e.SSID))
	return []Event{StationConnecting{}}
}

func (m *Manager) onIPAcquiredLocked(e IPAcquired) ([]Event, func()) {
	if !m.stationArmed {
		m.log.Debug("Ignoring IP acquisition while station events are disarmed")
		return nil, nil
	}
	m.state = StateConnected
	m.cancelPendingLocked()
	m.autoReconnect = true
	m.link = Link{SSID: e.SSID, IP: e.IP, Gateway: e.Gateway, Netmask: e.Netmask}

	m.log.Info("Station got IP",
		zap.String("ssid", e.SSID),
		zap.String("ip", e.IP),
		zap.String("gateway", e.Gateway),
		zap.String("netmask", e.Netmask),
	)

	var cfg *StationConfig
	if m.stationCfg != nil {
		c := *m.stationCfg
		cfg = &c
	}
	after := func() {
		m.persistStation(cfg)
		m.applyHostname()
	}
	return []Event{StationConnected{SSID: e.SSID, IP: e.IP, Gateway: e.Gateway, Netmask: e.Netmask}}, after
}

func (m *Manager) onLinkDownLocked(e LinkDown) []Event {
	if m.absorbDisconnects > 0 {
		m.absorbDisconnects--
		m.log.Debug("Previous link dropped for replacement", zap.Int("reason", int(e.Reason)))
		return nil
	}
	if !m.stationArmed {
		m.log.Debug("Ignoring link down while station events are disarmed", zap.Int("reason", int(e.Reason)))
		return nil
	}

	r := e.Reason
	m.lastReason = &r
	m.state = StateDisconnected
	m.link = Link{}

	byRequest := m.userRequestedDisconnect
	m.userRequestedDisconnect = false
	if byRequest || reconnect.IsUserInitiated(r) {
		return []Event{m.finishUserDisconnectLocked(r)}
	}

	d := reconnect.Classify(r)
	ev := StationDisconnected{Reason: r, ReasonText: r.String()}
	retryNow := false
	switch {
	case d.DisableAutoReconnect:
		m.autoReconnect = false
		m.cancelPendingLocked()
	case d.Retry && m.autoReconnect && d.Delay == 0:
		retryNow = true
		ev.WillRetry = true
	case d.Retry && m.autoReconnect:
		m.scheduleReconnectLocked(d.Delay)
		ev.WillRetry = true
	}

	logging.LogDisconnect(m.log, int(r), r.String(), d.Bucket.String(), ev.WillRetry)
	if retryNow {
		m.cancelPendingLocked()
		m.generation++
		return append([]Event{ev}, m.reconnectLocked(m.generation)...)
	}
	return []Event{ev}
}

func (m *Manager) onScanDoneLocked(e ScanDone) []Event {
	if !m.scan.inProgress {
		m.log.Debug("Scan completed without a pending request")
	}
	n := m.scan.complete(e.OK, e.Records)
	if !e.OK {
		m.log.Error("Scan failed")
	} else {
		logging.LogScan(m.log, n)
	}
	return []Event{ApScanCompleted{Count: n, Failed: !e.OK}}
}

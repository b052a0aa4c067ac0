package wifi

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/radio"
	"github.com/muurk/wifictl/internal/reconnect"
)

// ConnectStation joins the network described by cfg, or the stored station
// configuration when cfg is nil. An existing link is dropped first.
//
// autoReconnect is set before the connect request is issued, so a drop
// that races in right after the call is classified with the new value.
func (m *Manager) ConnectStation(cfg *StationConfig, autoReconnect bool) error {
	const op = "connect_station"

	if cfg == nil {
		saved, err := m.loadStationConfig()
		if err != nil {
			return NewNotFoundError(op, "no station configuration supplied or stored", err)
		}
		cfg = saved
	}
	if err := ValidateStationConfig(*cfg); err != nil {
		return NewArgumentError(op, err.Error())
	}
	station := *cfg
	ip := m.loadStationIP()

	if err := m.acquire(op, m.lockTimeout); err != nil {
		return err
	}

	// Re-arming is idempotent: station events are handled once no matter
	// how often this runs.
	m.stationArmed = true

	target := radio.ComputeTargetMode(m.mode, radio.Station, true)
	if err := m.applyModeLocked(op, target); err != nil {
		m.mu.unlock()
		return err
	}
	if err := m.platform.ConfigureStation(station); err != nil {
		m.mu.unlock()
		return NewHardwareError(op, "failed to configure station", err)
	}
	if err := m.platform.ConfigureIP(ip); err != nil {
		m.mu.unlock()
		return NewHardwareError(op, "failed to configure station addressing", err)
	}
	if err := m.platform.Start(); err != nil {
		m.mu.unlock()
		return NewHardwareError(op, "failed to start radio", err)
	}

	m.cancelPendingLocked()
	m.autoReconnect = autoReconnect
	m.stationCfg = &station

	replacing := m.state != StateDisconnected
	switch {
	case m.userRequestedDisconnect:
		// A requested disconnect has not been reported yet. Its LinkDown
		// belongs to the old link, so absorb it instead of tearing down
		// this attempt, and leave the platform call to DisconnectStation.
		m.userRequestedDisconnect = false
		m.disconnectHandedOff = true
		m.absorbDisconnects++
		replacing = false
	case replacing:
		m.absorbDisconnects++
	}
	m.state = StateConnecting
	m.link = Link{SSID: station.SSID}
	m.mu.unlock()

	if replacing {
		if err := m.platform.Disconnect(); err != nil {
			m.log.Debug("Dropping previous link failed", zap.Error(err))
			m.withLock(func() {
				if m.absorbDisconnects > 0 {
					m.absorbDisconnects--
				}
			})
		}
	}

	if err := m.platform.Connect(); err != nil {
		m.withLock(func() {
			m.state = StateDisconnected
			m.link = Link{}
		})
		return NewHardwareError(op, "failed to initiate connection", err)
	}

	m.log.Info("Station connection initiated",
		zap.String("ssid", station.SSID),
		zap.Bool("auto_reconnect", autoReconnect),
		zap.Bool("static_ip", ip != nil),
	)
	return nil
}

// DisconnectStation drops the station link on request. The resulting
// disconnect is never retried and removes the station component from the
// radio mode. It is a no-op when nothing is connected or connecting.
func (m *Manager) DisconnectStation() error {
	const op = "disconnect_station"

	if err := m.acquire(op, m.lockTimeout); err != nil {
		return err
	}
	m.autoReconnect = false
	m.cancelPendingLocked()
	if m.state == StateDisconnected {
		m.mu.unlock()
		return nil
	}
	// Must be visible before the platform call: the LinkDown it causes can
	// be handled before Disconnect returns.
	m.userRequestedDisconnect = true
	m.disconnectHandedOff = false
	m.mu.unlock()

	err := m.platform.Disconnect()
	if err == nil {
		m.log.Info("Station disconnect requested")
		return nil
	}

	if !m.mu.lock(m.lockTimeout) {
		m.log.Error("Timed out acquiring state lock after failed disconnect", zap.Error(err))
		return NewHardwareError(op, "failed to disconnect station", err)
	}
	// No LinkDown will follow either outcome.
	handedOff := m.disconnectHandedOff
	m.disconnectHandedOff = false
	if handedOff && m.absorbDisconnects > 0 {
		m.absorbDisconnects--
	}
	if errors.Is(err, ErrNotConnected) {
		if !m.userRequestedDisconnect {
			// The drop was already reported, or a new connection took over.
			m.mu.unlock()
			return nil
		}
		m.userRequestedDisconnect = false
		ev := m.finishUserDisconnectLocked(reconnect.AssocLeave)
		m.mu.unlock()
		m.emit(ev)
		return nil
	}
	m.userRequestedDisconnect = false
	m.mu.unlock()
	return NewHardwareError(op, "failed to disconnect station", err)
}

// SetAutoReconnect enables or disables automatic reconnection. Disabling it
// cancels a scheduled reconnect.
func (m *Manager) SetAutoReconnect(enabled bool) {
	if err := m.acquire("set_auto_reconnect", m.lockTimeout); err != nil {
		m.log.Error("Failed to update auto-reconnect", zap.Bool("enabled", enabled), zap.Error(err))
		return
	}
	defer m.mu.unlock()

	m.autoReconnect = enabled
	if !enabled {
		m.cancelPendingLocked()
	}
	m.log.Debug("Auto-reconnect updated", zap.Bool("enabled", enabled))
}

// finishUserDisconnectLocked removes the station component after a
// requested disconnect and returns the event to forward.
func (m *Manager) finishUserDisconnectLocked(r reconnect.Reason) Event {
	m.state = StateDisconnected
	m.link = Link{}
	m.autoReconnect = false
	m.stationArmed = false
	m.cancelPendingLocked()

	target := radio.ComputeTargetMode(m.mode, radio.Station, false)
	if target != m.mode {
		if err := m.applyModeLocked("disconnect_station", target); err != nil {
			m.log.Warn("Failed to remove station from radio mode", zap.Error(err))
		} else if target == radio.Off {
			if err := m.platform.Stop(); err != nil && !errors.Is(err, ErrRadioNotStarted) {
				m.log.Warn("Failed to stop radio", zap.Error(err))
			}
		}
	}

	m.log.Info("Station disconnected by request", zap.Stringer("mode", m.mode))
	return StationDisconnected{
		Reason:     r,
		ReasonText: r.String(),
		WillRetry:  false,
		ByRequest:  true,
	}
}

func (m *Manager) scheduleReconnectLocked(delay time.Duration) {
	m.cancelPendingLocked()
	m.generation++
	p := &pendingReconnect{id: m.generation, delay: delay}
	m.pending = p
	id := p.id
	p.stop = m.afterFunc(delay, func() { m.fireReconnect(id) })
	m.log.Info("Reconnect scheduled", zap.Uint64("attempt", id), zap.Duration("delay", delay))
}

func (m *Manager) cancelPendingLocked() {
	if m.pending == nil {
		return
	}
	if m.pending.stop != nil {
		m.pending.stop()
	}
	m.log.Debug("Pending reconnect cancelled", zap.Uint64("attempt", m.pending.id))
	m.pending = nil
}

// fireReconnect runs on the timer goroutine once a retry delay elapsed.
func (m *Manager) fireReconnect(id uint64) {
	if !m.mu.lock(m.lockTimeout) {
		m.log.Error("Abandoning scheduled reconnect: state lock unavailable", zap.Uint64("attempt", id))
		return
	}
	if m.closed || m.pending == nil || m.pending.id != id || !m.autoReconnect {
		m.mu.unlock()
		m.log.Debug("Ignoring stale reconnect", zap.Uint64("attempt", id))
		return
	}
	m.pending = nil
	events := m.reconnectLocked(id)
	m.mu.unlock()
	m.emit(events...)
}

// reconnectLocked issues the connect for a retry and returns the event to
// report when the request itself fails.
func (m *Manager) reconnectLocked(id uint64) []Event {
	m.state = StateConnecting
	if err := m.platform.Connect(); err != nil {
		m.state = StateDisconnected
		r := reconnect.ConnectionFail
		m.lastReason = &r
		m.log.Error("Reconnect attempt failed", zap.Uint64("attempt", id), zap.Error(err))
		return []Event{StationDisconnected{
			Reason:     r,
			ReasonText: r.String(),
			WillRetry:  false,
		}}
	}
	m.log.Info("Reconnecting station", zap.Uint64("attempt", id))
	return nil
}

// withLock runs f under the lock when it can be acquired in time.
func (m *Manager) withLock(f func()) {
	if !m.mu.lock(m.lockTimeout) {
		m.log.Error("Timed out acquiring state lock")
		return
	}
	defer m.mu.unlock()
	f()
}

func (m *Manager) loadStationConfig() (*StationConfig, error) {
	if m.store == nil {
		return nil, ErrConfigNotFound
	}
	return m.store.LoadStationConfig()
}

func (m *Manager) loadStationIP() *IPInfo {
	if m.store == nil {
		return nil
	}
	info, err := m.store.LoadIPInfo(InterfaceStation)
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			m.log.Warn("Failed to load static IP configuration, using DHCP", zap.Error(err))
		}
		return nil
	}
	return info
}

func (m *Manager) persistStation(cfg *StationConfig) {
	if m.store == nil || cfg == nil {
		return
	}
	if err := m.store.SaveStationConfig(*cfg); err != nil {
		m.log.Warn("Failed to save station configuration", zap.Error(err))
	}
}

func (m *Manager) applyHostname() {
	if m.hostname == nil || m.store == nil {
		return
	}
	name, err := m.store.LoadHostname()
	if err != nil {
		if !errors.Is(err, ErrConfigNotFound) {
			m.log.Warn("Failed to load hostname", zap.Error(err))
		}
		return
	}
	if err := m.hostname.SetHostname(InterfaceStation, name); err != nil {
		m.log.Warn("Failed to set hostname", zap.String("hostname", name), zap.Error(err))
		return
	}
	m.log.Info("Hostname set", zap.String("hostname", name))
}

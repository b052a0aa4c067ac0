package wifi

import (
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/radio"
)

// StartAccessPoint adds the access point component to the radio mode and
// starts advertising ssid. A password outside 8-63 bytes starts an open
// network. On failure the radio may be left in the new mode; callers
// reconcile with StopAccessPoint.
func (m *Manager) StartAccessPoint(ssid, password string) error {
	const op = "start_access_point"

	if err := ValidateSSID(ssid); err != nil {
		return NewArgumentError(op, err.Error())
	}
	if len(ssid) > m.ssidLimit {
		truncated := truncateUTF8(ssid, m.ssidLimit)
		m.log.Warn("SSID exceeds platform limit, truncating",
			zap.String("ssid", ssid),
			zap.String("truncated", truncated),
			zap.Int("limit", m.ssidLimit),
		)
		ssid = truncated
	}

	cfg := AccessPointConfig{
		SSID:           ssid,
		AuthMode:       AuthOpen,
		Channel:        m.apChannel,
		MaxConnections: m.apMaxConn,
		Hidden:         m.apHidden,
	}
	if APPasswordUsable(password) {
		cfg.Password = password
		cfg.AuthMode = AuthWPA2PSK
	} else if password != "" {
		m.log.Warn("Access point password must be 8-63 bytes, starting open network",
			zap.String("ssid", ssid),
			zap.Int("password_length", len(password)),
		)
	}

	if err := m.acquire(op, m.lockTimeout); err != nil {
		return err
	}
	defer m.mu.unlock()

	target := radio.ComputeTargetMode(m.mode, radio.AccessPoint, true)
	if err := m.applyModeLocked(op, target); err != nil {
		return err
	}
	if err := m.platform.ConfigureAccessPoint(cfg); err != nil {
		return NewHardwareError(op, "failed to configure access point", err)
	}
	if target != radio.Off {
		if err := m.platform.Start(); err != nil {
			return NewHardwareError(op, "failed to start radio", err)
		}
	}

	m.log.Info("Access point started",
		zap.String("ssid", cfg.SSID),
		zap.Stringer("auth", cfg.AuthMode),
		zap.Int("channel", cfg.Channel),
		zap.Stringer("mode", m.mode),
	)
	return nil
}

// StopAccessPoint removes the access point component from the radio mode,
// disconnecting attached clients first. Every step is attempted; the first
// failure is returned.
func (m *Manager) StopAccessPoint() error {
	const op = "stop_access_point"

	if err := m.acquire(op, m.lockTimeout); err != nil {
		return err
	}
	defer m.mu.unlock()

	if !m.mode.Has(radio.AccessPoint) {
		return nil
	}

	var first error
	record := func(msg string, err error) {
		if err == nil || errors.Is(err, ErrRadioNotStarted) {
			return
		}
		m.log.Warn(msg, zap.Error(err))
		if first == nil {
			first = NewHardwareError(op, msg, err)
		}
	}

	record("failed to disconnect access point clients", m.platform.DeauthStations())

	target := radio.ComputeTargetMode(m.mode, radio.AccessPoint, false)
	if err := m.applyModeLocked(op, target); err != nil {
		m.log.Warn("failed to apply radio mode", zap.Error(err))
		if first == nil {
			first = err
		}
	}
	if target == radio.Off {
		record("failed to stop radio", m.platform.Stop())
	}

	m.log.Info("Access point stopped", zap.Stringer("mode", m.mode))
	return first
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

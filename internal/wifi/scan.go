package wifi

import (
	"errors"

	"go.uber.org/zap"

	"github.com/muurk/wifictl/internal/radio"
)

// scanSession tracks the exclusive scan and the last completed snapshot.
// It is guarded by the Manager's lock.
type scanSession struct {
	inProgress bool
	results    []ApRecord
}

// begin claims the session, reporting false if a scan is already running.
func (s *scanSession) begin() bool {
	if s.inProgress {
		return false
	}
	s.inProgress = true
	return true
}

// complete replaces the snapshot and always releases the session.
func (s *scanSession) complete(ok bool, records []ApRecord) int {
	s.inProgress = false
	if !ok {
		s.results = nil
		return 0
	}
	s.results = append([]ApRecord(nil), records...)
	return len(s.results)
}

func (s *scanSession) snapshot() []ApRecord {
	if len(s.results) == 0 {
		return nil
	}
	return append([]ApRecord(nil), s.results...)
}

// StartScan begins an asynchronous scan. It fails with a state error while
// another scan is running. Any station attempt still in progress is
// abandoned, because the radio cannot scan and associate at once.
//
// The platform Disconnect and Scan requests are issued after the lock is
// released; the in-progress guard keeps other scans out meanwhile.
func (m *Manager) StartScan() error {
	const op = "start_scan"

	if err := m.acquire(op, m.lockTimeout); err != nil {
		return err
	}

	if !m.scan.begin() {
		m.mu.unlock()
		return NewStateError(op, "scan already in progress")
	}

	abandon, err := m.prepareScanLocked(op)
	if err != nil {
		m.scan.inProgress = false
		m.mu.unlock()
		return err
	}
	m.mu.unlock()

	if abandon {
		if err := m.platform.Disconnect(); err != nil {
			if !errors.Is(err, ErrNotConnected) {
				m.log.Warn("Failed to abandon station attempt", zap.Error(err))
			}
			m.withLock(func() {
				if m.absorbDisconnects > 0 {
					m.absorbDisconnects--
				}
			})
		}
	}

	if err := m.platform.Scan(); err != nil {
		m.withLock(func() { m.scan.inProgress = false })
		return NewHardwareError(op, "failed to start scan", err)
	}

	m.log.Info("Scan started")
	m.emit(ApScanStarted{})
	return nil
}

// prepareScanLocked puts the radio in a mode with a station interface and
// reports whether a station attempt has to be dropped first.
func (m *Manager) prepareScanLocked(op string) (bool, error) {
	if m.pending != nil {
		m.cancelPendingLocked()
	}
	abandon := false
	if m.state == StateConnecting {
		m.log.Info("Abandoning station attempt in progress to scan", zap.String("ssid", m.link.SSID))
		m.absorbDisconnects++
		m.state = StateDisconnected
		m.link = Link{}
		abandon = true
	}

	target := radio.ComputeTargetMode(m.mode, radio.Station, true)
	if target != m.mode {
		if err := m.applyModeLocked(op, target); err != nil {
			return abandon, err
		}
		if err := m.platform.Start(); err != nil {
			return abandon, NewHardwareError(op, "failed to start radio", err)
		}
	}
	return abandon, nil
}

// ScanResults returns the number of networks found by the last completed
// scan and a copy of them. The caller owns the returned slice.
func (m *Manager) ScanResults() (int, []ApRecord) {
	if err := m.acquire("get_scan_results", m.lockTimeout); err != nil {
		m.log.Error("Failed to read scan results", zap.Error(err))
		return 0, nil
	}
	defer m.mu.unlock()

	records := m.scan.snapshot()
	return len(records), records
}

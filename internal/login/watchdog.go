package login

import (
	"time"

	"go.uber.org/zap"
)

// armWatchdogLocked cancels any pending watchdog and, for a non-negative
// timeout, starts a new one-shot timer. Callers hold m.mu.
func (m *Machine) armWatchdogLocked(timeout time.Duration) {
	if m.watchdog != nil {
		m.watchdog.Stop()
		m.watchdog = nil
	}
	m.watchdogGen++
	if timeout < 0 || m.closed {
		return
	}
	gen := m.watchdogGen
	m.watchdog = time.AfterFunc(timeout, func() { m.fireWatchdog(gen, timeout) })
}

// fireWatchdog forces StatusForced if the machine is still loading. A timer
// superseded by a re-arm or by Close does nothing.
func (m *Machine) fireWatchdog(gen uint64, timeout time.Duration) {
	forced := m.update(func(s *Snapshot) bool {
		if gen != m.watchdogGen || s.Status != StatusLoading {
			return false
		}
		s.Status = StatusForced
		return true
	})
	if forced {
		m.logger.Info("login status forced by watchdog", zap.Duration("timeout", timeout))
	}
}

// Package wake reports system resume from suspend so the screen can be woken
// like on user presence.
package wake

import (
	"sync"

	"github.com/godbus/dbus/v5"
	log "github.com/sirupsen/logrus"
)

const (
	loginPath      = "/org/freedesktop/login1"
	loginInterface = "org.freedesktop.login1.Manager"
	sleepMember    = "PrepareForSleep"
	sleepSignal    = loginInterface + "." + sleepMember
)

// Monitor follows logind sleep notifications and calls onWake once per resume.
type Monitor struct {
	mu       sync.Mutex
	sleeping bool
	wakes    int
	log      log.FieldLogger
	onWake   func()
}

// NewMonitor creates a Monitor. onWake runs on the monitor goroutine.
func NewMonitor(logger log.FieldLogger, onWake func()) *Monitor {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Monitor{log: logger, onWake: onWake}
}

// handleSignal applies one D-Bus signal. Anything other than a well formed
// PrepareForSleep is ignored.
func (m *Monitor) handleSignal(sig *dbus.Signal) {
	if sig == nil || sig.Name != sleepSignal || len(sig.Body) < 1 {
		return
	}
	entering, ok := sig.Body[0].(bool)
	if !ok {
		return
	}
	if entering {
		m.markSleep()
	} else {
		m.markWake()
	}
}

func (m *Monitor) markSleep() {
	m.mu.Lock()
	m.sleeping = true
	m.mu.Unlock()

	m.log.Info("System entering sleep")
}

func (m *Monitor) markWake() {
	m.mu.Lock()
	if !m.sleeping {
		m.mu.Unlock()
		return
	}
	m.sleeping = false
	m.wakes++
	m.mu.Unlock()

	m.log.Info("System waking up")

	if m.onWake != nil {
		m.onWake()
	}
}

// Sleeping reports whether the system announced that it is going to sleep and
// has not resumed yet.
func (m *Monitor) Sleeping() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sleeping
}

// Wakes returns the number of resumes seen.
func (m *Monitor) Wakes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wakes
}

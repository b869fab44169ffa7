package logic

import (
	log "github.com/sirupsen/logrus"
)

// Machine owns the screen state, the forced override, the active profile and
// the single pending idle timer.
type Machine struct {
	log       log.FieldLogger
	display   Display
	callbacks Callbacks
	notifier  Notifier
	clock     Clock

	cfg     Config
	started bool

	forcedDown    bool
	modulesHidden bool
	lastOn        bool

	profile               ActiveProfile
	skipNextProfileChange bool

	timer    Timer
	timerGen uint64
	delay    float64

	counts Counts
}

// NewMachine creates a Machine that does nothing until it receives a ConfigEvent.
func NewMachine(logger log.FieldLogger, display Display, callbacks Callbacks, notifier Notifier, clock Clock) *Machine {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Machine{
		log:       logger,
		display:   display,
		callbacks: callbacks,
		notifier:  notifier,
		clock:     clock,
	}
}

// Handle applies one inbound event. Every event except CONFIG is ignored until
// the first CONFIG has been adopted.
func (m *Machine) Handle(ev Event) {
	if cfg, ok := ev.(ConfigEvent); ok {
		if m.started {
			m.log.Infof("Ignoring repeated %s", ev.Name())
			return
		}
		m.cfg = cfg.Config
		// Seed the reported screen state.
		m.isScreenOn()
		m.rearm(true, false)
		m.started = true
		return
	}

	if !m.started {
		m.log.Debugf("Ignoring %s before configuration", ev.Name())
		return
	}

	switch e := ev.(type) {
	case PresenceEvent:
		if e.Present {
			m.turnOn(false)
			if m.isScreenOn() {
				m.rearm(true, false)
			}
		}
	case ToggleEvent:
		m.rearm(m.toggle(e.Forced), false)
	case OnEvent:
		m.turnOn(e.Forced)
		m.rearm(true, false)
	case OffEvent:
		m.turnOff(e.Forced)
		m.rearm(false, false)
	case PowersaveEvent:
		m.cfg.Delay = e.Delay
		m.rearm(true, false)
	case ProfileChangedEvent:
		m.profileChanged(e)
	case ModulesHiddenEvent:
		m.modulesHidden = e.Hidden
	default:
		m.log.Infof("Received notification: %s", ev.Name())
	}
}

func (m *Machine) profileChanged(e ProfileChangedEvent) {
	if m.skipNextProfileChange {
		m.skipNextProfileChange = false
		m.log.Debugf("Skipping profile change to %q", e.To)
		return
	}
	if !e.HasTo {
		return
	}
	m.profile = NewActiveProfile(e.To)
	if e.To != m.cfg.ChangeToProfile && len(m.cfg.Profiles) > 0 {
		m.rearm(true, true)
	}
}

// Started reports whether the configuration has been adopted.
func (m *Machine) Started() bool {
	return m.started
}

// Snapshot returns the last known state without probing the display.
func (m *Machine) Snapshot() Snapshot {
	screen := StateOff
	if m.lastOn {
		screen = StateOn
	}
	return Snapshot{
		Started:    m.started,
		Screen:     screen,
		ForcedDown: m.forcedDown,
		Hidden:     m.modulesHidden,
		Profile:    m.profile.Name,
		Delay:      m.delay,
		TimerArmed: m.timer != nil,
		Counts:     m.counts,
	}
}

func (m *Machine) notify(name NotificationName, payload any) {
	m.notifier.Notify(Notification{Name: name, Payload: payload})
}

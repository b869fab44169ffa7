package logic

// rearm is the only place that creates the idle timer. It cancels the pending
// timer, resolves the delay for the active profile and, if reset is set and the
// delay is positive, schedules a one-shot turn-off. The effective delay (0 when
// disabled) is announced either way.
func (m *Machine) rearm(reset, profileChange bool) {
	m.cancelTimer()

	delay, matched := ResolveDelay(m.profile, m.cfg.Profiles, m.cfg.Delay)
	if matched && profileChange && m.cfg.TurnScreenOnIfProfileDelayIsSet {
		m.turnOn(false)
	}

	if reset && delay > 0 {
		m.timerGen++
		gen := m.timerGen
		m.timer = m.clock.AfterFunc(secondsToDuration(delay), func() {
			m.fire(gen)
		})
		m.delay = delay
		m.log.Infof("Reset screen timeout to %v seconds", delay)
		m.notify(NotifyScreenTimeoutChanged, TimeoutPayload{Delay: delay})
		return
	}

	m.delay = 0
	m.log.Info("Disabled screen timeout")
	m.notify(NotifyScreenTimeoutChanged, TimeoutPayload{Delay: 0})
}

func (m *Machine) cancelTimer() {
	if m.timer == nil {
		return
	}
	m.timer.Stop()
	m.timer = nil
}

// fire runs the idle turn-off. A callback from a timer that has since been
// cancelled or replaced carries an old generation and is dropped.
func (m *Machine) fire(gen uint64) {
	if m.timer == nil || gen != m.timerGen {
		m.log.Debugf("Dropping stale screen timeout (generation %d, current %d)", gen, m.timerGen)
		return
	}
	m.timer = nil
	m.turnOff(false)
	m.rearm(false, false)
}

package logic

// isScreenOn reports the current power state. In hide mode the hidden flag is
// the truth; otherwise the status command decides, and without one the screen
// counts as off.
func (m *Machine) isScreenOn() bool {
	on := m.probe()
	m.lastOn = on
	return on
}

func (m *Machine) probe() bool {
	if m.cfg.HideInsteadShutoff {
		return !m.modulesHidden
	}
	if m.cfg.StatusCommand.IsZero() {
		return false
	}
	on, err := m.display.Status(m.cfg.StatusCommand)
	if err != nil {
		m.log.WithError(err).Warn("Error during screen status check")
	}
	return on
}

func (m *Machine) turnOff(forced bool) {
	if profile := m.cfg.ChangeToProfileBeforeAction; profile != "" {
		m.skipNextProfileChange = true
		m.notify(NotifyCurrentProfile, profile)
		m.clock.Sleep(GracePeriod)
	}

	if !m.isScreenOn() {
		// Remember a forced request even though there is nothing to switch.
		if !m.forcedDown {
			m.forcedDown = forced
		}
		return
	}

	m.forcedDown = forced
	if forced {
		m.log.Debug("Turning screen off (forced)")
	} else {
		m.log.Debug("Turning screen off")
	}

	if m.cfg.HideInsteadShutoff {
		m.notify(NotifyHideModules, nil)
		m.modulesHidden = true
	} else if !m.cfg.OffCommand.IsZero() {
		if err := m.display.Run(m.cfg.OffCommand); err != nil {
			m.log.WithError(err).Warn("Error during screen off command")
		}
	}
	m.lastOn = false
	m.counts.Off++

	m.callbacks.Run(TransitionOff)
	m.notify(NotifyScreensaveEnabled, nil)
}

func (m *Machine) turnOn(forced bool) {
	if m.isScreenOn() {
		m.forcedDown = false
		return
	}

	if !forced && m.forcedDown {
		m.log.Info("Screen is forced to be off and will not be turned on")
		return
	}

	if forced {
		m.log.Info("Turning screen on (forced)")
	} else {
		m.log.Info("Turning screen on")
	}

	if m.cfg.HideInsteadShutoff {
		m.notify(NotifyShowModules, nil)
		m.modulesHidden = false
	} else if !m.cfg.OnCommand.IsZero() {
		if err := m.display.Run(m.cfg.OnCommand); err != nil {
			m.log.WithError(err).Warn("Error during screen on command")
		}
	}
	m.forcedDown = false
	m.lastOn = true
	m.counts.On++

	m.callbacks.Run(TransitionOn)
	m.notify(NotifyScreensaveDisabled, nil)
}

// toggle switches the screen and returns the new on flag.
func (m *Machine) toggle(forced bool) bool {
	if m.isScreenOn() {
		m.turnOff(forced)
		return false
	}
	m.turnOn(forced)
	return true
}

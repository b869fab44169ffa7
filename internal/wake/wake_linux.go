//go:build linux

package wake

import (
	"context"
	"os"

	"github.com/godbus/dbus/v5"
)

// Start listens for logind PrepareForSleep signals until ctx is done. Without
// a system bus the monitor stays idle.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		conn, err := dbus.SystemBus()
		if err != nil {
			if os.Getenv("DBUS_SYSTEM_BUS_ADDRESS") == "" {
				m.log.Debug("D-Bus unavailable, resume monitor disabled")
			} else {
				m.log.WithError(err).Warn("Failed to connect to D-Bus for resume monitoring")
			}
			return
		}

		if err := conn.AddMatchSignal(
			dbus.WithMatchObjectPath(loginPath),
			dbus.WithMatchInterface(loginInterface),
			dbus.WithMatchMember(sleepMember),
		); err != nil {
			m.log.WithError(err).Warn("Failed to subscribe to PrepareForSleep signal")
			return
		}

		signals := make(chan *dbus.Signal, 8)
		conn.Signal(signals)

		m.log.Info("Resume monitor started (D-Bus logind)")

		for {
			select {
			case <-ctx.Done():
				conn.RemoveSignal(signals)
				m.log.Debug("Resume monitor stopped")
				return
			case sig, ok := <-signals:
				if !ok {
					return
				}
				m.handleSignal(sig)
			}
		}
	}()
}

//go:build !linux

package wake

import "context"

// Start does nothing on platforms without logind.
func (m *Monitor) Start(ctx context.Context) {
	m.log.Debug("Resume monitor not supported on this platform")
}

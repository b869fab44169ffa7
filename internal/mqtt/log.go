package mqtt

import (
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/screen-powersave/internal/logic"
	"github.com/sweeney/screen-powersave/internal/wire"
)

// LogPublisher stands in for the broker when none is configured. It writes
// every notification and lifecycle event to the log.
type LogPublisher struct {
	log log.FieldLogger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger log.FieldLogger) *LogPublisher {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &LogPublisher{log: logger}
}

// Notify logs the notification with its encoded payload.
func (p *LogPublisher) Notify(n logic.Notification) {
	payload, err := wire.Encode(n)
	if err != nil {
		p.log.WithError(err).Warnf("Failed to encode %s", n.Name)
		return
	}
	p.log.WithField("payload", string(payload)).Infof("Notification %s", n.Name)
}

// PublishSystem logs the lifecycle event.
func (p *LogPublisher) PublishSystem(event SystemEvent) error {
	p.log.WithField("reason", event.Reason).Debugf("System event %s", event.Event)
	return nil
}

// IsConnected always reports false.
func (p *LogPublisher) IsConnected() bool {
	return false
}

// Close does nothing.
func (p *LogPublisher) Close() error {
	return nil
}

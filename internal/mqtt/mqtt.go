// Package mqtt carries events and notifications over MQTT, with an abstraction
// for testing.
//
// Inbound events arrive on <prefix>/in/<EVENT> with a JSON payload. Outbound
// notifications are published on <prefix>/out/<NOTIFICATION>, lifecycle events
// on <prefix>/system.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/screen-powersave/internal/logic"
)

// Topics derives every topic from one prefix.
type Topics struct {
	Prefix string
}

// In is the subscription filter for inbound events.
func (t Topics) In() string {
	return t.Prefix + "/in/+"
}

// Out is the topic a notification is published on.
func (t Topics) Out(name logic.NotificationName) string {
	return t.Prefix + "/out/" + string(name)
}

// System is the topic for lifecycle events.
func (t Topics) System() string {
	return t.Prefix + "/system"
}

// EventName returns the last segment of an inbound topic.
func EventName(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}

// Handler receives inbound messages as (event name, payload).
type Handler func(name string, payload []byte)

// Publisher publishes notifications and lifecycle events.
type Publisher interface {
	logic.Notifier

	// PublishSystem sends a lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Subscriber delivers inbound event messages.
type Subscriber interface {
	// Subscribe registers h for every message on the inbound topics. The
	// subscription survives reconnects.
	Subscribe(h Handler) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a lifecycle event (STARTUP, HEARTBEAT, SHUTDOWN, OFFLINE).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SystemPayload is the payload for lifecycle events that carry no status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the lifecycle event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a lifecycle event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}

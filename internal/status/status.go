// Package status provides a thread-safe status tracker for the screen-powersave
// daemon. It is written by the run loop and read by HTTP handlers and the MQTT
// heartbeat.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/screen-powersave/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	Broker      string
	TopicPrefix string
	HTTPAddr    string
	PresencePin int
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	CallbackDir string
}

// Presence is the state of the motion sensor.
type Presence struct {
	Enabled   bool
	Baselined bool
	Motion    bool
	Triggers  int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and stays valid after the lock is released.
type Snapshot struct {
	Machine       logic.Snapshot
	Presence      Presence
	Wakes         int
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update stores the machine state. Called from runLoop after every event.
func (t *Tracker) Update(m logic.Snapshot) {
	t.mu.Lock()
	t.snap.Machine = m
	t.mu.Unlock()
}

// SetPresence stores the motion sensor state.
func (t *Tracker) SetPresence(p Presence) {
	t.mu.Lock()
	t.snap.Presence = p
	t.mu.Unlock()
}

// SetWakes stores the number of resumes from suspend.
func (t *Tracker) SetWakes(n int) {
	t.mu.Lock()
	t.snap.Wakes = n
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}

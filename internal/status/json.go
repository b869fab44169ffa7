package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Screen        string       `json:"screen"`
	Ready         bool         `json:"ready"`
	ForcedOff     bool         `json:"forced_off"`
	ModulesHidden bool         `json:"modules_hidden"`
	Profile       string       `json:"profile"`
	DelaySeconds  float64      `json:"delay_seconds"`
	TimerArmed    bool         `json:"timer_armed"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"counts"`
	Presence      PresenceJSON `json:"presence"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of transition counts.
type CountsJSON struct {
	On     int `json:"screen_on"`
	Off    int `json:"screen_off"`
	Motion int `json:"presence"`
	Wakes  int `json:"resume"`
}

// PresenceJSON is the JSON representation of the motion sensor.
type PresenceJSON struct {
	Enabled   bool `json:"enabled"`
	Baselined bool `json:"baselined"`
	Motion    bool `json:"motion"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http"`
	PresencePin int    `json:"presence_pin"`
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	CallbackDir string `json:"callback_dir,omitempty"`
}

func buildInner(snap Snapshot) StatusInner {
	m := snap.Machine
	screen := string(m.Screen)
	if !m.Started || screen == "" {
		screen = "UNKNOWN"
	}

	return StatusInner{
		Screen:        screen,
		Ready:         m.Started,
		ForcedOff:     m.ForcedDown,
		ModulesHidden: m.Hidden,
		Profile:       m.Profile,
		DelaySeconds:  m.Delay,
		TimerArmed:    m.TimerArmed,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			On:     m.Counts.On,
			Off:    m.Counts.Off,
			Motion: snap.Presence.Triggers,
			Wakes:  snap.Wakes,
		},
		Presence: PresenceJSON{
			Enabled:   snap.Presence.Enabled,
			Baselined: snap.Presence.Baselined,
			Motion:    snap.Presence.Motion,
		},
		Config: ConfigJSON{
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
			PresencePin: snap.Config.PresencePin,
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			CallbackDir: snap.Config.CallbackDir,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

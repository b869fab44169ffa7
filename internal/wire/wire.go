// Package wire converts between transport messages (an event name plus a JSON
// payload) and the typed events and notifications of package logic.
//
// Payload decoding is lenient the way the front-end is: a missing or malformed
// flag is false, a missing delay is 0. Only CONFIG fails hard, because adopting
// a half-parsed configuration is worse than waiting for the next one.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/sweeney/screen-powersave/internal/config"
	"github.com/sweeney/screen-powersave/internal/logic"
)

// Decode turns a named message into a typed event. Unknown names become a
// logic.UnrecognizedEvent.
func Decode(name string, payload []byte) (logic.Event, error) {
	switch logic.EventName(name) {
	case logic.EventConfig:
		ps, err := config.ParsePowersaveJSON(orEmptyObject(payload))
		if err != nil {
			return nil, err
		}
		return logic.ConfigEvent{Config: ps.Logic()}, nil
	case logic.EventUserPresence:
		return logic.PresenceEvent{Present: truthy(payload)}, nil
	case logic.EventScreenToggle:
		return logic.ToggleEvent{Forced: forced(payload)}, nil
	case logic.EventScreenOn:
		return logic.OnEvent{Forced: forced(payload)}, nil
	case logic.EventScreenOff:
		return logic.OffEvent{Forced: forced(payload)}, nil
	case logic.EventScreenPowersave:
		return logic.PowersaveEvent{Delay: delay(payload)}, nil
	case logic.EventChangedProfile:
		return profileChanged(payload), nil
	case logic.EventModulesHidden:
		return logic.ModulesHiddenEvent{Hidden: truthy(payload)}, nil
	default:
		return logic.UnrecognizedEvent{Tag: name}, nil
	}
}

func orEmptyObject(payload []byte) []byte {
	if len(bytes.TrimSpace(payload)) == 0 {
		return []byte("{}")
	}
	return payload
}

// truthy accepts the JSON literal true or the string "true".
func truthy(payload []byte) bool {
	var v any
	if err := json.Unmarshal(payload, &v); err != nil {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true"
	}
	return false
}

// forced reads {"forced": true}. Anything other than the boolean true is false.
func forced(payload []byte) bool {
	var p struct {
		Forced any `json:"forced"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return false
	}
	b, ok := p.Forced.(bool)
	return ok && b
}

// delay reads {"delay": n}. A missing, zero or non-numeric delay yields 0.
func delay(payload []byte) float64 {
	var p struct {
		Delay any `json:"delay"`
	}
	if err := json.Unmarshal(payload, &p); err != nil {
		return 0
	}
	switch d := p.Delay.(type) {
	case float64:
		return d
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(d), 64)
		if err != nil {
			return 0
		}
		return f
	}
	return 0
}

func profileChanged(payload []byte) logic.ProfileChangedEvent {
	var p struct {
		To *string `json:"to"`
	}
	if err := json.Unmarshal(payload, &p); err != nil || p.To == nil {
		return logic.ProfileChangedEvent{}
	}
	return logic.ProfileChangedEvent{To: *p.To, HasTo: true}
}

// Encode renders the payload of a notification. Notifications without a
// payload encode to an empty message.
func Encode(n logic.Notification) ([]byte, error) {
	if n.Payload == nil {
		return nil, nil
	}
	data, err := json.Marshal(n.Payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", n.Name, err)
	}
	return data, nil
}

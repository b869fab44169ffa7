package config

import (
	"encoding/json"
	"fmt"

	"github.com/sweeney/screen-powersave/internal/logic"
)

// Powersave is the configuration document delivered with CONFIG, either as the
// JSON payload of the event or as the powersave section of the config file.
type Powersave struct {
	HideInsteadShutoff bool `json:"hideInsteadShutoff" yaml:"hideInsteadShutoff"`

	ScreenStatusCommand string   `json:"screenStatusCommand" yaml:"screenStatusCommand"`
	ScreenStatusArgs    []string `json:"screenStatusArgs" yaml:"screenStatusArgs"`
	ScreenOnCommand     string   `json:"screenOnCommand" yaml:"screenOnCommand"`
	ScreenOnArgs        []string `json:"screenOnArgs" yaml:"screenOnArgs"`
	ScreenOffCommand    string   `json:"screenOffCommand" yaml:"screenOffCommand"`
	ScreenOffArgs       []string `json:"screenOffArgs" yaml:"screenOffArgs"`

	Delay    float64  `json:"delay" yaml:"delay"`
	Profiles Profiles `json:"profiles" yaml:"profiles"`

	// ChangeToProfileBeforeAction is null (or empty) when no profile switch
	// should precede a turn-off.
	ChangeToProfileBeforeAction *string `json:"changeToProfileBeforeAction" yaml:"changeToProfileBeforeAction"`
	ChangeToProfile             string  `json:"changeToProfile" yaml:"changeToProfile"`

	TurnScreenOnIfProfileDelayIsSet bool `json:"turnScreenOnIfProfileDelayIsSet" yaml:"turnScreenOnIfProfileDelayIsSet"`
}

// DefaultPowersave returns the settings of a Raspberry Pi running vcgencmd.
func DefaultPowersave() Powersave {
	return Powersave{
		ScreenStatusCommand: "vcgencmd",
		ScreenStatusArgs:    []string{"display_power"},
		ScreenOnCommand:     "vcgencmd",
		ScreenOnArgs:        []string{"display_power", "1"},
		ScreenOffCommand:    "vcgencmd",
		ScreenOffArgs:       []string{"display_power", "0"},
		Delay:               60,
	}
}

// ParsePowersaveJSON decodes a CONFIG payload on top of DefaultPowersave.
func ParsePowersaveJSON(data []byte) (Powersave, error) {
	p := DefaultPowersave()
	if err := json.Unmarshal(data, &p); err != nil {
		return Powersave{}, fmt.Errorf("parse powersave config: %w", err)
	}
	return p, nil
}

// Logic converts the document into the state machine configuration.
func (p Powersave) Logic() logic.Config {
	cfg := logic.Config{
		HideInsteadShutoff:              p.HideInsteadShutoff,
		StatusCommand:                   logic.Command{Path: p.ScreenStatusCommand, Args: p.ScreenStatusArgs},
		OnCommand:                       logic.Command{Path: p.ScreenOnCommand, Args: p.ScreenOnArgs},
		OffCommand:                      logic.Command{Path: p.ScreenOffCommand, Args: p.ScreenOffArgs},
		Delay:                           p.Delay,
		ChangeToProfile:                 p.ChangeToProfile,
		TurnScreenOnIfProfileDelayIsSet: p.TurnScreenOnIfProfileDelayIsSet,
	}
	if p.ChangeToProfileBeforeAction != nil {
		cfg.ChangeToProfileBeforeAction = *p.ChangeToProfileBeforeAction
	}
	if len(p.Profiles) > 0 {
		cfg.Profiles = append([]logic.ProfileDelay(nil), p.Profiles...)
	}
	return cfg
}

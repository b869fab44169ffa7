package logic

// EventName is the tag an inbound event arrives with.
type EventName string

const (
	EventConfig          EventName = "CONFIG"
	EventUserPresence    EventName = "USER_PRESENCE"
	EventScreenToggle    EventName = "SCREEN_TOGGLE"
	EventScreenOn        EventName = "SCREEN_ON"
	EventScreenOff       EventName = "SCREEN_OFF"
	EventScreenPowersave EventName = "SCREEN_POWERSAVE"
	EventChangedProfile  EventName = "CHANGED_PROFILE"
	EventModulesHidden   EventName = "SCREEN_MODULES_HIDDEN"
)

// Event is one of the typed inbound events below.
type Event interface {
	Name() EventName
}

// ConfigEvent delivers the powersave configuration.
type ConfigEvent struct {
	Config Config
}

// PresenceEvent reports user presence. Only Present=true has an effect.
type PresenceEvent struct {
	Present bool
}

// ToggleEvent flips the screen state.
type ToggleEvent struct {
	Forced bool
}

// OnEvent requests the screen on.
type OnEvent struct {
	Forced bool
}

// OffEvent requests the screen off.
type OffEvent struct {
	Forced bool
}

// PowersaveEvent replaces the base delay. A zero Delay disables the timeout.
type PowersaveEvent struct {
	Delay float64
}

// ProfileChangedEvent reports that the front-end switched profile.
// HasTo is false when the payload carried no target profile.
type ProfileChangedEvent struct {
	To    string
	HasTo bool
}

// ModulesHiddenEvent reports whether the front-end currently hides its modules.
type ModulesHiddenEvent struct {
	Hidden bool
}

// UnrecognizedEvent carries the tag of an event the machine does not know.
type UnrecognizedEvent struct {
	Tag string
}

func (ConfigEvent) Name() EventName         { return EventConfig }
func (PresenceEvent) Name() EventName       { return EventUserPresence }
func (ToggleEvent) Name() EventName         { return EventScreenToggle }
func (OnEvent) Name() EventName             { return EventScreenOn }
func (OffEvent) Name() EventName            { return EventScreenOff }
func (PowersaveEvent) Name() EventName      { return EventScreenPowersave }
func (ProfileChangedEvent) Name() EventName { return EventChangedProfile }
func (ModulesHiddenEvent) Name() EventName  { return EventModulesHidden }
func (e UnrecognizedEvent) Name() EventName { return EventName(e.Tag) }

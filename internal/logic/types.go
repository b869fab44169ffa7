// Package logic contains the screen power state machine, the idle timeout
// scheduler and the profile delay resolver.
//
// It has no knowledge of MQTT, HTTP, GPIO or the filesystem. External commands,
// callback scripts, outbound notifications and timers are reached through the
// interfaces declared here, so the whole package runs against fakes in tests.
// A Machine is not safe for concurrent use: the caller serialises every event
// and every timer callback onto one goroutine.
package logic

import "time"

// State represents the power state of the screen.
type State string

const (
	StateOn  State = "ON"
	StateOff State = "OFF"
)

// Transition names a callback script directory.
type Transition string

const (
	TransitionOn  Transition = "on"
	TransitionOff Transition = "off"
)

// GracePeriod is how long turnOff waits after requesting a profile change
// before it evaluates the screen state.
const GracePeriod = 500 * time.Millisecond

// Command is an external program plus its arguments. An empty Path disables it.
type Command struct {
	Path string
	Args []string
}

// IsZero reports whether the command is disabled.
func (c Command) IsZero() bool {
	return c.Path == ""
}

// ProfileDelay is one entry of the profile delay mapping.
type ProfileDelay struct {
	Pattern string
	Seconds float64
}

// Config is the powersave configuration adopted on the first CONFIG event.
type Config struct {
	HideInsteadShutoff bool
	StatusCommand      Command
	OnCommand          Command
	OffCommand         Command

	// Delay is the base idle delay in seconds; 0 disables the timeout.
	Delay float64

	// Profiles is kept in document order: when several keys match the
	// active profile, the last one wins.
	Profiles []ProfileDelay

	// ChangeToProfileBeforeAction is requested before every turn-off; empty means none.
	ChangeToProfileBeforeAction string

	// ChangeToProfile does not re-trigger a profile timeout once reached.
	ChangeToProfile string

	TurnScreenOnIfProfileDelayIsSet bool
}

// Display runs the external probe and switch commands.
type Display interface {
	// Status runs the probe command and reports whether the screen is on.
	// On error the returned flag is still the best available signal.
	Status(cmd Command) (bool, error)

	// Run executes an on or off command.
	Run(cmd Command) error
}

// Callbacks runs the side-effect scripts for a transition. It must not block
// on script completion.
type Callbacks interface {
	Run(t Transition)
}

// NotificationName identifies an outbound announcement.
type NotificationName string

const (
	NotifyCurrentProfile       NotificationName = "CURRENT_PROFILE"
	NotifyHideModules          NotificationName = "SCREEN_HIDE_MODULES"
	NotifyShowModules          NotificationName = "SCREEN_SHOW_MODULES"
	NotifyScreensaveEnabled    NotificationName = "SCREENSAVE_ENABLED"
	NotifyScreensaveDisabled   NotificationName = "SCREENSAVE_DISABLED"
	NotifyScreenTimeoutChanged NotificationName = "SCREEN_TIMEOUT_CHANGED"
)

// Notification is an announcement for the front-end.
type Notification struct {
	Name NotificationName
	// Payload is nil, a profile name (CURRENT_PROFILE) or a TimeoutPayload.
	Payload any
}

// TimeoutPayload is the payload of SCREEN_TIMEOUT_CHANGED.
type TimeoutPayload struct {
	Delay float64 `json:"delay"`
}

// Notifier delivers announcements. Delivery failures are the notifier's problem.
type Notifier interface {
	Notify(n Notification)
}

// Timer is a cancellable pending callback.
type Timer interface {
	Stop() bool
}

// Clock schedules deferred callbacks and performs the grace wait.
type Clock interface {
	// AfterFunc calls f after d. Implementations used in production must run f
	// on the goroutine that owns the Machine.
	AfterFunc(d time.Duration, f func()) Timer

	// Sleep blocks the current operation for d.
	Sleep(d time.Duration)
}

// Counts tracks the transitions actually performed since startup.
type Counts struct {
	On  int
	Off int
}

// Snapshot is a point-in-time view of the machine, safe to hand to other goroutines.
type Snapshot struct {
	Started    bool
	Screen     State
	ForcedDown bool
	Hidden     bool
	Profile    string
	Delay      float64
	TimerArmed bool
	Counts     Counts
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

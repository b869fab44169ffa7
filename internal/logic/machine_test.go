package logic_test

import (
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/sweeney/screen-powersave/internal/callback"
	"github.com/sweeney/screen-powersave/internal/clock"
	"github.com/sweeney/screen-powersave/internal/display"
	"github.com/sweeney/screen-powersave/internal/logic"
	"github.com/sweeney/screen-powersave/internal/mqtt"
)

type harness struct {
	m         *logic.Machine
	display   *display.Fake
	callbacks *callback.Fake
	pub       *mqtt.FakePublisher
	clock     *clock.Fake
}

func baseConfig() logic.Config {
	return logic.Config{
		StatusCommand: logic.Command{Path: "status"},
		OnCommand:     logic.Command{Path: "on"},
		OffCommand:    logic.Command{Path: "off"},
		Delay:         60,
	}
}

func newHarness(t *testing.T, on bool) *harness {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	h := &harness{
		display:   display.NewFake(on),
		callbacks: callback.NewFake(),
		pub:       mqtt.NewFakePublisher(),
		clock:     clock.NewFake(time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)),
	}
	h.m = logic.NewMachine(logger, h.display, h.callbacks, h.pub, h.clock)
	return h
}

// start adopts cfg and clears everything recorded while doing so.
func (h *harness) start(cfg logic.Config) {
	h.m.Handle(logic.ConfigEvent{Config: cfg})
	h.display.Reset()
	h.callbacks.Reset()
	h.pub.Reset()
}

func (h *harness) lastDelay(t *testing.T) float64 {
	t.Helper()
	n, ok := h.pub.Last(logic.NotifyScreenTimeoutChanged)
	if !ok {
		t.Fatal("no SCREEN_TIMEOUT_CHANGED notification")
	}
	return n.Payload.(logic.TimeoutPayload).Delay
}

func (h *harness) count(name logic.NotificationName) int {
	n := 0
	for _, got := range h.pub.Names() {
		if got == name {
			n++
		}
	}
	return n
}

func TestConfigArmsTimer(t *testing.T) {
	h := newHarness(t, true)
	h.m.Handle(logic.ConfigEvent{Config: baseConfig()})

	if !h.m.Started() {
		t.Fatal("machine should be started after CONFIG")
	}
	if h.clock.Pending() != 1 {
		t.Errorf("expected 1 pending timer, got %d", h.clock.Pending())
	}
	if got := h.lastDelay(t); got != 60 {
		t.Errorf("expected announced delay 60, got %v", got)
	}
	if h.m.Snapshot().Screen != logic.StateOn {
		t.Error("CONFIG should record the probed screen state")
	}
}

func TestEventsBeforeConfigAreInert(t *testing.T) {
	h := newHarness(t, false)

	events := []logic.Event{
		logic.PresenceEvent{Present: true},
		logic.ToggleEvent{Forced: true},
		logic.OnEvent{Forced: true},
		logic.OffEvent{Forced: true},
		logic.PowersaveEvent{Delay: 10},
		logic.ProfileChangedEvent{To: "Night", HasTo: true},
		logic.ModulesHiddenEvent{Hidden: true},
		logic.UnrecognizedEvent{Tag: "SOMETHING"},
	}
	for _, ev := range events {
		h.m.Handle(ev)
	}

	if h.m.Started() {
		t.Error("machine should not be started")
	}
	if len(h.pub.Notifications) != 0 {
		t.Errorf("expected no notifications, got %v", h.pub.Names())
	}
	if len(h.display.Runs) != 0 || h.display.StatusCalls != 0 {
		t.Errorf("display touched: runs=%v status=%d", h.display.Commands(), h.display.StatusCalls)
	}
	if h.clock.Pending() != 0 {
		t.Errorf("expected no timers, got %d", h.clock.Pending())
	}
	if snap := h.m.Snapshot(); snap.ForcedDown || snap.Hidden || snap.Profile != "" {
		t.Errorf("state changed before CONFIG: %+v", snap)
	}
}

func TestRepeatedConfigIgnored(t *testing.T) {
	h := newHarness(t, true)
	h.start(baseConfig())

	cfg := baseConfig()
	cfg.Delay = 5
	h.m.Handle(logic.ConfigEvent{Config: cfg})

	if len(h.pub.Notifications) != 0 {
		t.Errorf("expected no notifications, got %v", h.pub.Names())
	}
	if got := h.m.Snapshot().Delay; got != 60 {
		t.Errorf("expected delay to stay 60, got %v", got)
	}
}

func TestForcedOffWhenAlreadyOff(t *testing.T) {
	h := newHarness(t, false)
	h.start(baseConfig())

	h.m.Handle(logic.OffEvent{Forced: true})
	if !h.m.Snapshot().ForcedDown {
		t.Fatal("forced off on a dark screen should be remembered")
	}
	if len(h.display.Runs) != 0 {
		t.Errorf("expected no commands, got %v", h.display.Commands())
	}

	h.m.Handle(logic.OffEvent{Forced: true})
	if !h.m.Snapshot().ForcedDown {
		t.Error("second forced off should leave forcedDown set")
	}

	h.m.Handle(logic.OffEvent{Forced: false})
	if !h.m.Snapshot().ForcedDown {
		t.Error("non-forced off on a dark screen should not clear forcedDown")
	}
}

func TestNonForcedOnRefusedWhenForcedDown(t *testing.T) {
	h := newHarness(t, true)
	h.start(baseConfig())

	h.m.Handle(logic.OffEvent{Forced: true})
	h.display.Reset()
	h.callbacks.Reset()
	h.pub.Reset()

	h.m.Handle(logic.OnEvent{Forced: false})
	if len(h.display.Runs) != 0 {
		t.Errorf("expected no commands, got %v", h.display.Commands())
	}
	if h.display.On {
		t.Error("screen should stay off")
	}
	if snap := h.m.Snapshot(); snap.Screen != logic.StateOff || !snap.ForcedDown {
		t.Errorf("unexpected state: %+v", snap)
	}
	if h.count(logic.NotifyScreensaveDisabled) != 0 {
		t.Error("unexpected SCREENSAVE_DISABLED")
	}

	h.m.Handle(logic.PresenceEvent{Present: true})
	if h.display.On {
		t.Error("presence should not wake a forced-off screen")
	}
}

func TestForcedOnClearsForcedDown(t *testing.T) {
	h := newHarness(t, true)
	h.start(baseConfig())
	h.m.Handle(logic.OffEvent{Forced: true})
	h.display.Reset()
	h.callbacks.Reset()

	h.m.Handle(logic.OnEvent{Forced: true})

	if !h.display.On {
		t.Fatal("screen should be on")
	}
	if cmds := h.display.Commands(); len(cmds) != 1 || cmds[0] != "on" {
		t.Errorf("expected [on], got %v", cmds)
	}
	snap := h.m.Snapshot()
	if snap.ForcedDown || snap.Screen != logic.StateOn {
		t.Errorf("unexpected state: %+v", snap)
	}
	if runs := h.callbacks.Runs(); len(runs) != 1 || runs[0] != logic.TransitionOn {
		t.Errorf("expected [on] callbacks, got %v", runs)
	}
	if h.count(logic.NotifyScreensaveDisabled) != 1 {
		t.Error("expected SCREENSAVE_DISABLED")
	}
	if h.clock.Pending() != 1 {
		t.Errorf("expected timer after SCREEN_ON, got %d", h.clock.Pending())
	}
}

func TestForcedOnWhenAlreadyOnClearsForcedDown(t *testing.T) {
	h := newHarness(t, false)
	h.start(baseConfig())
	h.m.Handle(logic.OffEvent{Forced: true})
	h.display.On = true

	h.m.Handle(logic.OnEvent{Forced: false})

	if h.m.Snapshot().ForcedDown {
		t.Error("an already lit screen clears forcedDown")
	}
	if len(h.display.Runs) != 0 {
		t.Errorf("expected no commands, got %v", h.display.Commands())
	}
}

func TestToggleRoundTrip(t *testing.T) {
	h := newHarness(t, true)
	h.start(baseConfig())

	h.m.Handle(logic.ToggleEvent{})
	if h.display.On || h.m.Snapshot().Screen != logic.StateOff {
		t.Fatal("first toggle should turn the screen off")
	}
	if h.clock.Pending() != 0 {
		t.Errorf("toggle to off should leave no timer, got %d", h.clock.Pending())
	}
	if got := h.lastDelay(t); got != 0 {
		t.Errorf("expected announced delay 0, got %v", got)
	}

	h.m.Handle(logic.ToggleEvent{})
	if !h.display.On || h.m.Snapshot().Screen != logic.StateOn {
		t.Fatal("second toggle should turn the screen on")
	}
	if h.clock.Pending() != 1 {
		t.Errorf("toggle to on should arm the timer, got %d", h.clock.Pending())
	}

	if cmds := h.display.Commands(); len(cmds) != 2 || cmds[0] != "off" || cmds[1] != "on" {
		t.Errorf("expected [off on], got %v", cmds)
	}
	counts := h.m.Snapshot().Counts
	if counts.On != 1 || counts.Off != 1 {
		t.Errorf("unexpected counts: %+v", counts)
	}
}

func TestPowersaveZeroDisablesTimer(t *testing.T) {
	h := newHarness(t, true)
	h.start(baseConfig())

	h.m.Handle(logic.PowersaveEvent{Delay: 0})

	if h.clock.Pending() != 0 {
		t.Errorf("expected no timer, got %d", h.clock.Pending())
	}
	if got := h.lastDelay(t); got != 0 {
		t.Errorf("expected announced delay 0, got %v", got)
	}
	if h.m.Snapshot().TimerArmed {
		t.Error("snapshot should report no timer")
	}

	h.clock.Advance(time.Hour)
	if !h.display.On {
		t.Error("screen should stay on with the timeout disabled")
	}
}

func TestIdleTimeoutTurnsScreenOff(t *testing.T) {
	h := newHarness(t, true)
	h.start(baseConfig())

	h.m.Handle(logic.PowersaveEvent{Delay: 45})
	if h.clock.Pending() != 1 {
		t.Fatalf("expected 1 timer, got %d", h.clock.Pending())
	}
	if got := h.lastDelay(t); got != 45 {
		t.Errorf("expected announced delay 45, got %v", got)
	}

	h.clock.Advance(44 * time.Second)
	if !h.display.On {
		t.Fatal("screen went off early")
	}

	h.clock.Advance(time.Second)
	if h.display.On {
		t.Fatal("screen should be off after 45s")
	}
	if h.clock.Pending() != 0 {
		t.Errorf("expected no timer after idle off, got %d", h.clock.Pending())
	}
	if got := h.lastDelay(t); got != 0 {
		t.Errorf("expected announced delay 0 after idle off, got %v", got)
	}
	if h.m.Snapshot().ForcedDown {
		t.Error("idle off is not forced")
	}
	if runs := h.callbacks.Runs(); len(runs) != 1 || runs[0] != logic.TransitionOff {
		t.Errorf("expected [off] callbacks, got %v", runs)
	}

	h.m.Handle(logic.PresenceEvent{Present: true})
	if !h.display.On {
		t.Error("presence should wake the screen after an idle off")
	}
	if h.clock.Pending() != 1 {
		t.Errorf("presence should rearm, got %d timers", h.clock.Pending())
	}
}

func TestPresenceFalseIgnored(t *testing.T) {
	h := newHarness(t, false)
	h.start(baseConfig())

	h.m.Handle(logic.PresenceEvent{Present: false})

	if h.display.On || len(h.pub.Notifications) != 0 {
		t.Errorf("absence should do nothing: on=%v notifications=%v", h.display.On, h.pub.Names())
	}
}

func TestAtMostOneTimer(t *testing.T) {
	h := newHarness(t, true)
	h.start(baseConfig())

	events := []logic.Event{
		logic.PresenceEvent{Present: true},
		logic.PresenceEvent{Present: true},
		logic.OnEvent{},
		logic.OnEvent{Forced: true},
		logic.ToggleEvent{},
		logic.ToggleEvent{},
		logic.PowersaveEvent{Delay: 30},
		logic.PowersaveEvent{Delay: 90},
		logic.OffEvent{},
		logic.OnEvent{},
		logic.PresenceEvent{Present: true},
	}
	for _, ev := range events {
		h.m.Handle(ev)
		if n := h.clock.Pending(); n > 1 {
			t.Fatalf("after %s: %d pending timers", ev.Name(), n)
		}
	}

	h.clock.Advance(89 * time.Second)
	if !h.display.On {
		t.Fatal("replaced timers should not fire")
	}
	h.clock.Advance(time.Second)
	if h.display.On {
		t.Error("the current timer should fire after 90s")
	}
}

// leakyClock hands out timers whose Stop does not prevent the callback.
type leakyClock struct {
	funcs []func()
}

type leakyTimer struct{}

func (leakyTimer) Stop() bool { return false }

func (c *leakyClock) AfterFunc(d time.Duration, f func()) logic.Timer {
	c.funcs = append(c.funcs, f)
	return leakyTimer{}
}

func (c *leakyClock) Sleep(time.Duration) {}

func TestStaleTimerDropped(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	d := display.NewFake(true)
	clk := &leakyClock{}
	m := logic.NewMachine(logger, d, callback.NewFake(), mqtt.NewFakePublisher(), clk)

	m.Handle(logic.ConfigEvent{Config: baseConfig()})
	m.Handle(logic.PowersaveEvent{Delay: 30})
	if len(clk.funcs) != 2 {
		t.Fatalf("expected 2 scheduled callbacks, got %d", len(clk.funcs))
	}

	clk.funcs[0]()
	if !d.On {
		t.Fatal("a replaced timer must not turn the screen off")
	}

	clk.funcs[1]()
	if d.On {
		t.Fatal("the current timer should turn the screen off")
	}

	d.On = true
	clk.funcs[1]()
	if !d.On {
		t.Error("a timer must fire only once")
	}
}

func TestProfileDelayResolution(t *testing.T) {
	cfg := baseConfig()
	cfg.Profiles = []logic.ProfileDelay{{Pattern: "Day", Seconds: 30}, {Pattern: "Night", Seconds: 300}}

	tests := []struct {
		profile string
		want    float64
	}{
		{"Sunday-Night", 300},
		{"Weekday", 60},
		{"Day", 30},
		{"Night", 300},
	}
	for _, tt := range tests {
		t.Run(tt.profile, func(t *testing.T) {
			h := newHarness(t, true)
			h.start(cfg)

			h.m.Handle(logic.ProfileChangedEvent{To: tt.profile, HasTo: true})

			if got := h.lastDelay(t); got != tt.want {
				t.Errorf("expected delay %v, got %v", tt.want, got)
			}
			if snap := h.m.Snapshot(); snap.Profile != tt.profile || snap.Delay != tt.want {
				t.Errorf("unexpected snapshot: %+v", snap)
			}
		})
	}
}

func TestProfileChangeWithoutProfilesKeepsTimer(t *testing.T) {
	h := newHarness(t, true)
	h.start(baseConfig())

	h.m.Handle(logic.ProfileChangedEvent{To: "Night", HasTo: true})

	if len(h.pub.Notifications) != 0 {
		t.Errorf("expected no notifications, got %v", h.pub.Names())
	}
	if h.m.Snapshot().Profile != "Night" {
		t.Error("profile should still be recorded")
	}
}

func TestProfileChangeToTargetProfileDoesNotRearm(t *testing.T) {
	h := newHarness(t, true)
	cfg := baseConfig()
	cfg.Profiles = []logic.ProfileDelay{{Pattern: "Night", Seconds: 300}}
	cfg.ChangeToProfile = "Night"
	h.start(cfg)

	h.m.Handle(logic.ProfileChangedEvent{To: "Night", HasTo: true})

	if h.count(logic.NotifyScreenTimeoutChanged) != 0 {
		t.Error("changing to the configured target profile should not rearm")
	}
}

func TestProfileChangeWithoutTarget(t *testing.T) {
	h := newHarness(t, true)
	cfg := baseConfig()
	cfg.Profiles = []logic.ProfileDelay{{Pattern: "Night", Seconds: 300}}
	h.start(cfg)

	h.m.Handle(logic.ProfileChangedEvent{})

	if len(h.pub.Notifications) != 0 {
		t.Errorf("expected no notifications, got %v", h.pub.Names())
	}
}

func TestProfileEchoSkipped(t *testing.T) {
	h := newHarness(t, true)
	cfg := baseConfig()
	cfg.Profiles = []logic.ProfileDelay{{Pattern: "Day", Seconds: 30}, {Pattern: "Night", Seconds: 300}}
	cfg.ChangeToProfileBeforeAction = "Screensaver"
	h.start(cfg)

	h.m.Handle(logic.OffEvent{})

	n, ok := h.pub.Last(logic.NotifyCurrentProfile)
	if !ok || n.Payload != "Screensaver" {
		t.Fatalf("expected CURRENT_PROFILE Screensaver, got %+v", n)
	}
	if len(h.clock.Sleeps) != 1 || h.clock.Sleeps[0] != logic.GracePeriod {
		t.Errorf("expected one grace wait, got %v", h.clock.Sleeps)
	}
	if h.display.On {
		t.Fatal("screen should be off")
	}
	names := h.pub.Names()
	if names[0] != logic.NotifyCurrentProfile {
		t.Errorf("profile request should come first, got %v", names)
	}

	h.pub.Reset()
	h.m.Handle(logic.ProfileChangedEvent{To: "Screensaver", HasTo: true})
	if len(h.pub.Notifications) != 0 {
		t.Errorf("echo should be swallowed, got %v", h.pub.Names())
	}
	if h.m.Snapshot().Profile != "" {
		t.Errorf("echo should not change the profile, got %q", h.m.Snapshot().Profile)
	}

	h.m.Handle(logic.ProfileChangedEvent{To: "Day", HasTo: true})
	if got := h.lastDelay(t); got != 30 {
		t.Errorf("expected delay 30 after the next profile change, got %v", got)
	}
	if h.m.Snapshot().Profile != "Day" {
		t.Errorf("expected profile Day, got %q", h.m.Snapshot().Profile)
	}
}

func TestProfileDelayWakesScreen(t *testing.T) {
	h := newHarness(t, false)
	cfg := baseConfig()
	cfg.Profiles = []logic.ProfileDelay{{Pattern: "Night", Seconds: 300}}
	cfg.TurnScreenOnIfProfileDelayIsSet = true
	h.start(cfg)

	h.m.Handle(logic.ProfileChangedEvent{To: "Weekday", HasTo: true})
	if h.display.On {
		t.Fatal("a profile without a delay should not wake the screen")
	}

	h.m.Handle(logic.ProfileChangedEvent{To: "Night", HasTo: true})
	if !h.display.On {
		t.Fatal("a profile with a delay should wake the screen")
	}
	if got := h.lastDelay(t); got != 300 {
		t.Errorf("expected delay 300, got %v", got)
	}
}

func TestHideMode(t *testing.T) {
	h := newHarness(t, true)
	cfg := baseConfig()
	cfg.HideInsteadShutoff = true
	h.start(cfg)

	h.m.Handle(logic.OffEvent{})
	if h.count(logic.NotifyHideModules) != 1 {
		t.Fatalf("expected HIDE_MODULES, got %v", h.pub.Names())
	}
	if len(h.display.Runs) != 0 || h.display.StatusCalls != 0 {
		t.Errorf("hide mode should not touch the display: %v", h.display.Commands())
	}
	if !h.m.Snapshot().Hidden {
		t.Error("modules should be hidden")
	}

	h.m.Handle(logic.PresenceEvent{Present: true})
	if h.count(logic.NotifyShowModules) != 1 {
		t.Fatalf("expected SHOW_MODULES, got %v", h.pub.Names())
	}
	if h.m.Snapshot().Hidden {
		t.Error("modules should be shown")
	}
}

func TestModulesHiddenReport(t *testing.T) {
	h := newHarness(t, true)
	cfg := baseConfig()
	cfg.HideInsteadShutoff = true
	h.start(cfg)

	h.m.Handle(logic.ModulesHiddenEvent{Hidden: true})
	if len(h.pub.Notifications) != 0 {
		t.Errorf("expected no notifications, got %v", h.pub.Names())
	}

	h.m.Handle(logic.OffEvent{})
	if h.count(logic.NotifyHideModules) != 0 {
		t.Error("already hidden modules should not be hidden again")
	}
}

func TestMissingStatusCommandCountsAsOff(t *testing.T) {
	h := newHarness(t, true)
	cfg := baseConfig()
	cfg.StatusCommand = logic.Command{}
	h.start(cfg)

	h.m.Handle(logic.OffEvent{})
	if len(h.display.Runs) != 0 {
		t.Errorf("off should do nothing without a status command, got %v", h.display.Commands())
	}

	h.m.Handle(logic.OnEvent{})
	if cmds := h.display.Commands(); len(cmds) != 1 || cmds[0] != "on" {
		t.Errorf("expected [on], got %v", cmds)
	}
}

func TestUnrecognizedEventIgnored(t *testing.T) {
	h := newHarness(t, true)
	h.start(baseConfig())

	h.m.Handle(logic.UnrecognizedEvent{Tag: "ALL_MODULES_STARTED"})

	if len(h.pub.Notifications) != 0 || len(h.display.Runs) != 0 {
		t.Errorf("unrecognized events should be ignored: %v %v", h.pub.Names(), h.display.Commands())
	}
}

package display

import (
	"github.com/sweeney/screen-powersave/internal/logic"
)

// Fake is a test double that models a screen controlled by status/on/off commands.
type Fake struct {
	// On is the power state reported by Status and changed by Run.
	On bool

	// OnPath and OffPath identify which command Run switches on or off.
	OnPath  string
	OffPath string

	// StatusError, if set, is returned by Status alongside On.
	StatusError error

	// RunError, if set, is returned by Run. The state still changes.
	RunError error

	// StatusCalls counts Status invocations.
	StatusCalls int

	// Runs records every command passed to Run.
	Runs []logic.Command
}

// NewFake creates a Fake that switches on "on" and off "off".
func NewFake(on bool) *Fake {
	return &Fake{On: on, OnPath: "on", OffPath: "off"}
}

// Status reports On.
func (f *Fake) Status(cmd logic.Command) (bool, error) {
	f.StatusCalls++
	return f.On, f.StatusError
}

// Run records cmd and switches the screen.
func (f *Fake) Run(cmd logic.Command) error {
	f.Runs = append(f.Runs, cmd)
	switch cmd.Path {
	case f.OnPath:
		f.On = true
	case f.OffPath:
		f.On = false
	}
	return f.RunError
}

// Commands returns the paths of every command passed to Run.
func (f *Fake) Commands() []string {
	paths := make([]string, 0, len(f.Runs))
	for _, c := range f.Runs {
		paths = append(paths, c.Path)
	}
	return paths
}

// Reset clears recorded calls.
func (f *Fake) Reset() {
	f.Runs = nil
	f.StatusCalls = 0
}

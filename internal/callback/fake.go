package callback

import (
	"sync"

	"github.com/sweeney/screen-powersave/internal/logic"
)

// Fake records requested transitions instead of running scripts.
type Fake struct {
	mu   sync.Mutex
	runs []logic.Transition
}

// NewFake creates a Fake.
func NewFake() *Fake {
	return &Fake{}
}

// Run records t.
func (f *Fake) Run(t logic.Transition) {
	f.mu.Lock()
	f.runs = append(f.runs, t)
	f.mu.Unlock()
}

// Runs returns a copy of the recorded transitions.
func (f *Fake) Runs() []logic.Transition {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]logic.Transition, len(f.runs))
	copy(out, f.runs)
	return out
}

// Reset clears recorded transitions.
func (f *Fake) Reset() {
	f.mu.Lock()
	f.runs = nil
	f.mu.Unlock()
}

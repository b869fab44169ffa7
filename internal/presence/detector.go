// Package presence turns raw motion sensor samples into debounced presence
// reports.
package presence

import "time"

// Detector debounces a single motion input. It needs one stable period to
// establish a baseline and reports only debounced rising edges after that.
type Detector struct {
	debounce time.Duration

	stable       bool
	pending      bool
	hasPending   bool
	pendingSince time.Time
	baselined    bool

	triggers int
}

// NewDetector creates a detector with the given debounce duration.
func NewDetector(debounce time.Duration) *Detector {
	return &Detector{debounce: debounce}
}

// Process takes a sample and reports whether it completed a debounced
// transition from no motion to motion.
func (d *Detector) Process(motion bool, now time.Time) bool {
	if !d.baselined {
		if !d.hasPending || d.pending != motion {
			// First sample, or the input changed while establishing baseline.
			d.setPending(motion, now)
			return false
		}
		if now.Sub(d.pendingSince) >= d.debounce {
			d.stable = motion
			d.baselined = true
			d.hasPending = false
		}
		return false
	}

	if motion == d.stable {
		d.hasPending = false
		return false
	}

	if !d.hasPending || d.pending != motion {
		d.setPending(motion, now)
		return false
	}

	if now.Sub(d.pendingSince) < d.debounce {
		return false
	}

	d.stable = motion
	d.hasPending = false
	if motion {
		d.triggers++
		return true
	}
	return false
}

func (d *Detector) setPending(motion bool, now time.Time) {
	d.pending = motion
	d.pendingSince = now
	d.hasPending = true
}

// IsBaselined returns whether the detector has established a baseline.
func (d *Detector) IsBaselined() bool {
	return d.baselined
}

// Motion returns the current stable state.
func (d *Detector) Motion() bool {
	return d.stable
}

// Triggers returns the number of rising edges reported so far.
func (d *Detector) Triggers() int {
	return d.triggers
}

// Package clock provides the timers the state machine runs on.
//
// Loop never calls a timer callback on the timer goroutine. It posts the
// callback to a channel that the owner of the state machine drains, so timer
// work is serialised with event handling.
package clock

import (
	"time"

	"github.com/sweeney/screen-powersave/internal/logic"
)

// Loop is the production clock.
type Loop struct {
	calls chan func()
	done  chan struct{}
}

// NewLoop creates a Loop whose channel buffers up to size pending callbacks.
func NewLoop(size int) *Loop {
	return &Loop{
		calls: make(chan func(), size),
		done:  make(chan struct{}),
	}
}

// AfterFunc schedules f to be posted to Calls after d.
func (l *Loop) AfterFunc(d time.Duration, f func()) logic.Timer {
	return time.AfterFunc(d, func() {
		select {
		case l.calls <- f:
		case <-l.done:
		}
	})
}

// Sleep blocks the caller for d.
func (l *Loop) Sleep(d time.Duration) {
	select {
	case <-time.After(d):
	case <-l.done:
	}
}

// Calls returns the channel of due callbacks.
func (l *Loop) Calls() <-chan func() {
	return l.calls
}

// Close releases timers blocked on posting and aborts pending sleeps.
func (l *Loop) Close() {
	select {
	case <-l.done:
	default:
		close(l.done)
	}
}

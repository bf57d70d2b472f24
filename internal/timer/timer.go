// internal/timer/timer.go
//
// Game clock: measures elapsed time from game start to win.
// The clock is injectable so tests can drive it; display refreshes read
// Elapsed/Display and never stop or restart the timer.

package timer

import (
	"fmt"
	"time"
)

// Clock abstracts time.Now.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System is the wall clock. time.Now carries a monotonic reading, so
// Sub on two of its values is immune to wall-clock jumps.
var System Clock = systemClock{}

// Timer measures one run. The zero value is not usable; call New.
type Timer struct {
	clock     Clock
	startedAt time.Time
	stoppedAt time.Time
	running   bool
	stopped   bool
}

// New returns an unstarted timer on the given clock (System when nil).
func New(c Clock) *Timer {
	if c == nil {
		c = System
	}
	return &Timer{clock: c}
}

// Start (re)starts the timer from zero.
func (t *Timer) Start() {
	t.startedAt = t.clock.Now()
	t.stoppedAt = time.Time{}
	t.running = true
	t.stopped = false
}

// Stop freezes the elapsed time. Only the first call after Start has an
// effect; it reports whether this call was the one that stopped the timer.
func (t *Timer) Stop() bool {
	if !t.running || t.stopped {
		return false
	}
	t.stoppedAt = t.clock.Now()
	t.running = false
	t.stopped = true
	return true
}

// Running reports whether the timer has been started and not yet stopped.
func (t *Timer) Running() bool { return t.running }

// StartedAt returns the start instant (zero before Start).
func (t *Timer) StartedAt() time.Time { return t.startedAt }

// Elapsed returns time since Start, frozen once stopped.
func (t *Timer) Elapsed() time.Duration {
	switch {
	case t.stopped:
		return t.stoppedAt.Sub(t.startedAt)
	case t.running:
		return t.clock.Now().Sub(t.startedAt)
	default:
		return 0
	}
}

// Seconds returns whole elapsed seconds (floored).
func (t *Timer) Seconds() int { return int(t.Elapsed() / time.Second) }

// Display formats the elapsed time as MM:SS.
func (t *Timer) Display() string { return Format(t.Seconds()) }

// Format renders whole seconds as zero-padded MM:SS. Minutes are not
// wrapped, so an hour reads 60:00. Negative input is treated as zero.
func Format(sec int) string {
	if sec < 0 {
		sec = 0
	}
	return fmt.Sprintf("%02d:%02d", sec/60, sec%60)
}

package mainthread

import (
	"time"
)

// Countdown calls a function once, after a span of frame time has elapsed.
// It is an Updater, decremented by each Frame.Delta while active, so it does
// not advance while frames are not running.
//
// Thread Safety: NOT thread-safe. All methods must be called from the main
// goroutine.
type Countdown struct {
	fn        func()
	remaining time.Duration
	active    bool
}

var _ Updater = (*Countdown)(nil)

// NewCountdown initializes an inactive Countdown that will call fn.
func NewCountdown(fn func()) *Countdown {
	return &Countdown{fn: fn}
}

// Start (re)starts the countdown with the given span. A non-positive span
// means no time limit, and leaves the countdown inactive.
func (x *Countdown) Start(span time.Duration) {
	if span <= 0 {
		x.Stop()
		return
	}
	x.remaining = span
	x.active = true
}

// Stop deactivates the countdown without firing, returning true if it was
// active.
func (x *Countdown) Stop() bool {
	wasActive := x.active
	x.active = false
	x.remaining = 0
	return wasActive
}

// Active reports whether the countdown has been started, and has not yet
// fired or been stopped.
func (x *Countdown) Active() bool {
	return x.active
}

// Remaining returns the time left, or zero if inactive.
func (x *Countdown) Remaining() time.Duration {
	if !x.active {
		return 0
	}
	return x.remaining
}

// Update decrements the remaining time by f.Delta, firing once it reaches
// zero. The countdown is deactivated before calling fn, which may Start it
// again.
func (x *Countdown) Update(f Frame) {
	if !x.active {
		return
	}
	if f.Delta > 0 {
		x.remaining -= f.Delta
	}
	if x.remaining > 0 {
		return
	}
	x.active = false
	x.remaining = 0
	if x.fn != nil {
		x.fn()
	}
}

package mainthread

import (
	"context"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

type (
	// Frame describes one iteration of the driving loop.
	Frame struct {
		// Time is when the frame started.
		Time time.Time
		// Index is the frame number, starting at 1.
		Index uint64
		// Delta is the time since the previous frame, or zero for the
		// first frame, including the first after a pause.
		Delta time.Duration
	}

	// Updater is called by a Driver once per frame, on the main goroutine.
	Updater interface {
		Update(f Frame)
	}

	// UpdaterFunc implements Updater.
	UpdaterFunc func(f Frame)

	// Driver is a driving loop for a Dispatcher, which runs frames at a
	// fixed interval, and delivers lifecycle events between frames.
	//
	// Each frame updates the dispatcher's coroutine host (if it implements
	// Updater), then calls Dispatcher.Tick, then each configured Updater.
	// Frames are skipped while paused.
	Driver struct {
		dispatcher *Dispatcher
		updaters   []Updater
		posted     []postedEvent
		delivering []postedEvent
		last       time.Time
		interval   time.Duration
		frame      uint64
		mu         sync.Mutex
		running    atomic.Bool
		// main goroutine state
		paused          bool
		focused         bool
		tickWhilePaused bool
	}

	postedEvent struct {
		event  LifecycleEvent
		state  bool
		toggle bool
	}
)

var _ Updater = UpdaterFunc(nil)

// Update calls f(frame).
func (f UpdaterFunc) Update(frame Frame) {
	f(frame)
}

// NewDriver initializes a Driver for d, which starts focused and not
// paused.
func NewDriver(d *Dispatcher, opts ...DriverOption) (*Driver, error) {
	if d == nil {
		return nil, ErrNilDispatcher
	}
	cfg, err := resolveDriverOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Driver{
		dispatcher:      d,
		updaters:        cfg.updaters,
		interval:        cfg.frameInterval,
		focused:         true,
		tickWhilePaused: cfg.tickWhilePaused,
	}, nil
}

// Run runs frames until ctx is cancelled, returning ctx.Err(), or
// ErrDriverRunning if the driver is already running. The calling goroutine
// becomes the main goroutine, and is locked to its OS thread for the
// duration.
func (x *Driver) Run(ctx context.Context) error {
	if !x.running.CompareAndSwap(false, true) {
		return ErrDriverRunning
	}
	defer x.running.Store(false)

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	logger := x.dispatcher.logger
	logger.Debug().
		Str(`category`, categoryDriver).
		Dur(`interval`, x.interval).
		Log(`driver started`)

	ticker := time.NewTicker(x.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Debug().
				Str(`category`, categoryDriver).
				Uint64(`frames`, x.frame).
				Log(`driver stopped`)
			return ctx.Err()

		case now := <-ticker.C:
			x.runFrame(now)
		}
	}
}

// runFrame delivers posted events, then steps, unless paused.
func (x *Driver) runFrame(now time.Time) {
	x.DeliverEvents()
	if x.paused && !x.tickWhilePaused {
		x.last = time.Time{}
		return
	}
	x.Step(now)
}

// Step runs a single frame, at now. Must only be called from the main
// goroutine, and must not be called concurrently with Run.
func (x *Driver) Step(now time.Time) {
	x.frame++
	f := Frame{Time: now, Index: x.frame}
	if !x.last.IsZero() && now.After(x.last) {
		f.Delta = now.Sub(x.last)
	}
	x.last = now

	// coroutines started by this frame's actions first resume next frame
	if u, ok := x.dispatcher.host.(Updater); ok {
		x.safeUpdate(u, f)
	}

	x.dispatcher.Tick()

	for _, u := range x.updaters {
		x.safeUpdate(u, f)
	}
}

func (x *Driver) safeUpdate(u Updater, f Frame) {
	defer func() {
		if r := recover(); r != nil {
			x.dispatcher.failures.updaterPanic(funcName(u.Update), &PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	u.Update(f)
}

// PostFocus queues a focus change, delivered before the next frame.
// Safe to call from any goroutine.
func (x *Driver) PostFocus(focused bool) {
	x.post(postedEvent{event: EventFocus, state: focused})
}

// PostPause queues a pause change, delivered before the next frame.
// Safe to call from any goroutine.
func (x *Driver) PostPause(paused bool) {
	x.post(postedEvent{event: EventPause, state: paused})
}

func (x *Driver) post(e postedEvent) {
	x.mu.Lock()
	x.posted = append(x.posted, e)
	x.mu.Unlock()
}

// DeliverEvents notifies the dispatcher of every posted lifecycle event,
// in post order. Must only be called from the main goroutine. Run calls it
// before each frame.
func (x *Driver) DeliverEvents() {
	x.mu.Lock()
	x.delivering, x.posted = x.posted, x.delivering[:0]
	x.mu.Unlock()

	for _, e := range x.delivering {
		switch e.event {
		case EventFocus:
			if e.toggle {
				e.state = !x.focused
			}
			x.focused = e.state
			x.dispatcher.NotifyFocus(e.state)
		case EventPause:
			if e.toggle {
				e.state = !x.paused
			}
			x.paused = e.state
			x.dispatcher.NotifyPause(e.state)
		}
	}

	clear(x.delivering)
	x.delivering = x.delivering[:0]
}

// Paused reports the pause state, as of the last delivered event. Must only
// be called from the main goroutine.
func (x *Driver) Paused() bool {
	return x.paused
}

// Focused reports the focus state, as of the last delivered event. Must
// only be called from the main goroutine.
func (x *Driver) Focused() bool {
	return x.focused
}

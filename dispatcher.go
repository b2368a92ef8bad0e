package mainthread

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// dispatcherTestHooks provides injection points for testing.
type dispatcherTestHooks struct {
	PreLock  func() // Called before Tick acquires the queue mutex
	PreDrain func() // Called after Tick releases the queue mutex, before running actions
}

// Dispatcher marshals actions submitted from any goroutine onto the main
// goroutine, which must call Tick once per frame.
//
// Submission appends to a queue under a mutex, setting a pending flag within
// the same critical section. Tick checks the flag without locking, and only
// when it is set swaps out the entire queue, in constant time, then drains
// it into a buffer owned by the main goroutine, and runs each action,
// outside the lock. An action
// submitted before a Tick's swap runs during that Tick, one submitted after
// runs during the next.
//
// A dispatcher in ModeDummy accepts every valid submission then drops it,
// for processes without a driving loop.
//
// Panics raised by actions and lifecycle callbacks are recovered, counted
// and logged, and never interrupt delivery to the remainder.
type Dispatcher struct { // betteralign:ignore
	// Prevent copying
	_ [0]func()

	queue      actionQueue
	execBuf    []queuedAction
	host       CoroutineHost
	logger     *logiface.Logger[logiface.Event]
	failures   *failureLog
	latency    *LatencyMetrics
	queueDepth *QueueMetrics
	tps        *TPSCounter
	testHooks  *dispatcherTestHooks

	focus callbackSet
	pause callbackSet

	counters counters
	thread   mainThread

	mu      sync.Mutex
	pending atomic.Bool

	mode Mode
}

// New creates a new Dispatcher, in ModeActive unless configured otherwise.
func New(opts ...Option) (*Dispatcher, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	failures, err := newFailureLog(cfg.logger, cfg.failureLogRates)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{
		host:     cfg.coroutineHost,
		logger:   cfg.logger,
		failures: failures,
		focus:    callbackSet{event: EventFocus},
		pause:    callbackSet{event: EventPause},
		mode:     cfg.mode,
	}
	if d.host == nil {
		d.host = newCoroutineRunner(failures, &d.thread)
	}
	if cfg.metricsEnabled {
		d.latency = &LatencyMetrics{}
		d.queueDepth = &QueueMetrics{}
		d.tps = NewTPSCounter(10*time.Second, 100*time.Millisecond)
	}

	return d, nil
}

// Mode returns the operating mode, fixed at creation.
func (d *Dispatcher) Mode() Mode {
	return d.mode
}

// Coroutines returns the host that SubmitCoroutine starts coroutines on.
func (d *Dispatcher) Coroutines() CoroutineHost {
	return d.host
}

// Submit queues action to run on the main goroutine during a future Tick.
// Safe to call from any goroutine, including the main goroutine.
//
// Actions submitted by the same goroutine run in submission order. There is
// no ordering between goroutines, beyond each action running exactly once.
//
// Returns ErrNilAction (matching ErrInvalidArgument) if action is nil. In
// ModeDummy, the action is dropped, and nil returned.
func (d *Dispatcher) Submit(action func()) error {
	if action == nil {
		return ErrNilAction
	}

	if d.mode == ModeDummy {
		d.counters.dropped.Add(1)
		if b := d.logger.Debug(); b.Enabled() {
			b.Str(`category`, categoryDropped).
				Str(`func`, funcName(action)).
				Log(`dropped action submitted to dummy dispatcher`)
		}
		return nil
	}

	a := queuedAction{fn: action}
	if d.latency != nil {
		a.at = timeNow().UnixNano()
	}

	d.mu.Lock()
	d.queue.Push(a)
	d.pending.Store(true)
	d.mu.Unlock()

	d.counters.submitted.Add(1)
	return nil
}

// SubmitCoroutine is SubmitCoroutineContext with context.Background.
func (d *Dispatcher) SubmitCoroutine(c Coroutine) error {
	return d.SubmitCoroutineContext(context.Background(), c)
}

// SubmitCoroutineContext queues an action that starts c on the coroutine
// host, bound to ctx. Only the start is guaranteed to occur on the main
// goroutine, during a future Tick; resumption is the host's responsibility.
//
// Returns ErrNilCoroutine (matching ErrInvalidArgument) if c is nil.
func (d *Dispatcher) SubmitCoroutineContext(ctx context.Context, c Coroutine) error {
	if c == nil {
		return ErrNilCoroutine
	}
	if ctx == nil {
		ctx = context.Background()
	}
	host := d.host
	return d.Submit(func() {
		host.StartCoroutine(ctx, c)
	})
}

// Tick runs every action queued before the call, in order, returning the
// number run. It must only be called from the main goroutine.
//
// If nothing is pending, Tick returns without acquiring the queue mutex.
func (d *Dispatcher) Tick() int {
	d.observeThread()
	d.counters.ticks.Add(1)

	// The unsynchronized read may be stale: a submission racing this check
	// is picked up by the next Tick.
	if d.mode == ModeDummy || !d.pending.Load() {
		d.counters.idleTicks.Add(1)
		return 0
	}

	if d.testHooks != nil && d.testHooks.PreLock != nil {
		d.testHooks.PreLock()
	}

	d.mu.Lock()
	queue := d.queue
	d.queue = actionQueue{}
	d.pending.Store(false)
	d.mu.Unlock()

	if d.testHooks != nil && d.testHooks.PreDrain != nil {
		d.testHooks.PreDrain()
	}

	depth := queue.Length()
	buf := queue.DrainInto(d.execBuf[:0])

	// an action calling Tick gets its own buffer
	d.execBuf = nil

	if d.queueDepth != nil {
		d.queueDepth.Update(depth)
	}

	for i := range buf {
		a := buf[i]
		buf[i] = queuedAction{}
		if d.latency != nil && a.at != 0 {
			d.latency.Record(time.Duration(timeNow().UnixNano() - a.at))
		}
		d.safeExecute(a.fn)
	}

	d.execBuf = buf[:0]

	n := len(buf)
	d.counters.executed.Add(uint64(n))
	if d.tps != nil {
		d.tps.Add(n)
	}
	return n
}

// Pending returns the number of queued actions.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.queue.Length()
}

// safeExecute executes an action with panic recovery.
func (d *Dispatcher) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.counters.actionPanics.Add(1)
			d.failures.actionPanic(funcName(fn), &PanicError{Value: r, Stack: debug.Stack()})
		}
	}()

	fn()
}

// RegisterFocusCallback adds cb to the focus callbacks, returning false if
// it was already registered, or is nil, or wraps a nil function.
// Safe to call from any goroutine.
func (d *Dispatcher) RegisterFocusCallback(cb *Callback) bool {
	return d.focus.add(cb)
}

// UnregisterFocusCallback removes cb from the focus callbacks, returning
// true if it was registered. Safe to call from any goroutine.
func (d *Dispatcher) UnregisterFocusCallback(cb *Callback) bool {
	return d.focus.remove(cb)
}

// RegisterPauseCallback adds cb to the pause callbacks, returning false if
// it was already registered, or is nil, or wraps a nil function.
// Safe to call from any goroutine.
func (d *Dispatcher) RegisterPauseCallback(cb *Callback) bool {
	return d.pause.add(cb)
}

// UnregisterPauseCallback removes cb from the pause callbacks, returning
// true if it was registered. Safe to call from any goroutine.
func (d *Dispatcher) UnregisterPauseCallback(cb *Callback) bool {
	return d.pause.remove(cb)
}

// NotifyFocus invokes the focus callbacks, in registration order. It must
// only be called from the main goroutine. A no-op in ModeDummy.
func (d *Dispatcher) NotifyFocus(focused bool) {
	d.notify(&d.focus, focused)
}

// NotifyPause invokes the pause callbacks, in registration order. It must
// only be called from the main goroutine. A no-op in ModeDummy.
func (d *Dispatcher) NotifyPause(paused bool) {
	d.notify(&d.pause, paused)
}

func (d *Dispatcher) notify(set *callbackSet, state bool) {
	d.observeThread()
	if d.mode == ModeDummy {
		return
	}
	if b := d.logger.Debug(); b.Enabled() {
		b.Str(`category`, categoryLifecycle).
			Stringer(`event`, set.event).
			Bool(`state`, state).
			Log(`lifecycle event`)
	}
	set.invoke(state, d.callbackPanic)
}

func (d *Dispatcher) callbackPanic(err *CallbackError, stack []byte) {
	d.counters.callbackPanics.Add(1)
	d.failures.callbackPanic(err, stack)
}

// IsMainThread reports whether the caller is the goroutine that most
// recently called Tick, NotifyFocus or NotifyPause, or a coroutine of the
// default host, while it is running.
func (d *Dispatcher) IsMainThread() bool {
	return d.thread.is()
}

// observeThread records the calling goroutine as the main goroutine,
// warning if it changed.
func (d *Dispatcher) observeThread() {
	if prev, current, changed := d.thread.observe(); changed {
		d.logger.Warning().
			Str(`category`, categoryThread).
			Uint64(`previous`, prev).
			Uint64(`current`, current).
			Log(`main goroutine changed`)
	}
}

// Metrics returns a snapshot of the dispatcher's statistics.
func (d *Dispatcher) Metrics() Metrics {
	m := Metrics{
		Submitted:      d.counters.submitted.Load(),
		Executed:       d.counters.executed.Load(),
		Dropped:        d.counters.dropped.Load(),
		ActionPanics:   d.counters.actionPanics.Load(),
		CallbackPanics: d.counters.callbackPanics.Load(),
		Ticks:          d.counters.ticks.Load(),
		IdleTicks:      d.counters.idleTicks.Load(),
		SuppressedLogs: d.failures.Suppressed(),
	}
	if d.latency != nil {
		m.Latency = d.latency.Sample()
	}
	if d.queueDepth != nil {
		m.Queue = d.queueDepth.Snapshot()
	}
	if d.tps != nil {
		m.TPS = d.tps.TPS()
	}
	return m
}

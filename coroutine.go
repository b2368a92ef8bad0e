package mainthread

import (
	"context"
	"iter"
	"runtime/debug"
	"time"

	"github.com/joeycumines/logiface"
)

type (
	// Coroutine is a cooperatively scheduled sequence of main goroutine
	// work. Each yield suspends the coroutine until the yielded Instruction
	// is satisfied, and yield returns false if the coroutine has been
	// stopped, in which case it must return.
	//
	// Coroutine is an [iter.Seq] of Instruction.
	Coroutine func(yield func(Instruction) bool)

	// CoroutineHost starts coroutines. Implementations are called on the
	// main goroutine only. See also [CoroutineRunner].
	CoroutineHost interface {
		StartCoroutine(ctx context.Context, c Coroutine)
	}

	// Instruction tells a CoroutineRunner when to resume a suspended
	// coroutine. A nil Instruction resumes on the next frame.
	Instruction interface {
		resumeWhen(now runnerClock) func(now runnerClock) bool
	}

	// CoroutineRunner is the default CoroutineHost, which must be driven by
	// calling Update once per frame, e.g. by a Driver.
	//
	// Thread Safety: NOT thread-safe. All methods must be called from the
	// main goroutine. Use Dispatcher.SubmitCoroutine from other goroutines.
	CoroutineRunner struct {
		failures *failureLog
		// optional, marks running coroutines as the main goroutine
		thread   *mainThread
		active   []*coroutine
		// started during Update, merged into active after
		started  []*coroutine
		clock    runnerClock
		nextID   uint64
		updating bool
	}

	// runnerClock is the runner's notion of time: frames observed, and
	// the sum of their deltas.
	runnerClock struct {
		frames  uint64
		elapsed time.Duration
	}

	coroutine struct {
		ctx  context.Context
		next func() (Instruction, bool)
		stop func()
		cond func(now runnerClock) bool
		id   uint64
	}

	waitFrames int

	waitFor time.Duration

	waitUntil func() bool
)

var _ CoroutineHost = (*CoroutineRunner)(nil)

// WaitFrames suspends until n frames have elapsed. Values less than one
// behave like one, i.e. a nil Instruction.
func WaitFrames(n int) Instruction {
	return waitFrames(n)
}

// WaitFor suspends until at least d has elapsed, measured as the sum of
// Frame.Delta, and so does not advance while frames are not delivered.
func WaitFor(d time.Duration) Instruction {
	return waitFor(d)
}

// WaitUntil suspends until pred returns true, evaluated once per frame,
// starting with the next. A nil pred behaves like a nil Instruction.
func WaitUntil(pred func() bool) Instruction {
	return waitUntil(pred)
}

func (x waitFrames) resumeWhen(now runnerClock) func(runnerClock) bool {
	target := now.frames + 1
	if x > 1 {
		target = now.frames + uint64(x)
	}
	return func(now runnerClock) bool {
		return now.frames >= target
	}
}

func (x waitFor) resumeWhen(now runnerClock) func(runnerClock) bool {
	frame := now.frames + 1
	deadline := now.elapsed + time.Duration(x)
	return func(now runnerClock) bool {
		return now.frames >= frame && now.elapsed >= deadline
	}
}

func (x waitUntil) resumeWhen(now runnerClock) func(runnerClock) bool {
	if x == nil {
		return waitFrames(1).resumeWhen(now)
	}
	frame := now.frames + 1
	return func(now runnerClock) bool {
		return now.frames >= frame && x()
	}
}

// NewCoroutineRunner initializes a CoroutineRunner, which logs panicking
// coroutines to logger (nil disables logging).
func NewCoroutineRunner(logger *logiface.Logger[logiface.Event]) *CoroutineRunner {
	failures, _ := newFailureLog(logger, defaultFailureLogRates())
	return newCoroutineRunner(failures, nil)
}

func newCoroutineRunner(failures *failureLog, thread *mainThread) *CoroutineRunner {
	return &CoroutineRunner{failures: failures, thread: thread}
}

// StartCoroutine runs c until its first yield, then schedules it to resume
// on subsequent calls to Update. Cancelling ctx stops the coroutine, at the
// next Update. A nil ctx is treated as context.Background.
func (r *CoroutineRunner) StartCoroutine(ctx context.Context, c Coroutine) {
	if c == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if ctx.Err() != nil {
		return
	}
	if r.thread != nil {
		c = r.thread.delegated(c)
	}

	r.nextID++
	co := &coroutine{ctx: ctx, id: r.nextID}
	co.next, co.stop = iter.Pull(iter.Seq[Instruction](c))

	if !r.resume(co) {
		return
	}
	if r.updating {
		r.started = append(r.started, co)
	} else {
		r.active = append(r.active, co)
	}
}

// Update advances the runner by one frame, resuming every coroutine whose
// Instruction has been satisfied, in start order. Coroutines started during
// Update first resume on the following Update.
func (r *CoroutineRunner) Update(f Frame) {
	if r.updating {
		return
	}
	r.updating = true
	defer func() {
		r.updating = false
	}()

	r.clock.frames++
	if f.Delta > 0 {
		r.clock.elapsed += f.Delta
	}

	n := 0
	for _, co := range r.active {
		if r.step(co) {
			r.active[n] = co
			n++
		}
	}
	clear(r.active[n:])
	r.active = append(r.active[:n], r.started...)
	clear(r.started)
	r.started = r.started[:0]
}

// Len returns the number of live coroutines.
func (r *CoroutineRunner) Len() int {
	return len(r.active) + len(r.started)
}

// StopAll stops every live coroutine, releasing their resources.
func (r *CoroutineRunner) StopAll() {
	for _, list := range [...][]*coroutine{r.active, r.started} {
		for _, co := range list {
			r.halt(co)
		}
	}
	clear(r.active)
	clear(r.started)
	r.active = r.active[:0]
	r.started = r.started[:0]
}

// step returns false if co is no longer live.
func (r *CoroutineRunner) step(co *coroutine) (alive bool) {
	if co.ctx.Err() != nil {
		r.halt(co)
		return false
	}
	defer func() {
		if v := recover(); v != nil {
			r.fail(co, v)
			r.halt(co)
			alive = false
		}
	}()
	if co.cond != nil && !co.cond(r.clock) {
		return true
	}
	return r.resume(co)
}

// resume runs co to its next yield, returning false if it finished.
func (r *CoroutineRunner) resume(co *coroutine) (alive bool) {
	defer func() {
		if v := recover(); v != nil {
			r.fail(co, v)
			alive = false
		}
	}()
	ins, ok := co.next()
	if !ok {
		return false
	}
	if ins == nil {
		ins = waitFrames(1)
	}
	co.cond = ins.resumeWhen(r.clock)
	return true
}

// halt stops co, which may continue running until it observes the stop.
func (r *CoroutineRunner) halt(co *coroutine) {
	defer func() {
		if v := recover(); v != nil {
			r.fail(co, v)
		}
	}()
	co.stop()
}

func (r *CoroutineRunner) fail(co *coroutine, v any) {
	co.cond = nil
	r.failures.coroutinePanic(co.id, &PanicError{Value: v, Stack: debug.Stack()})
}

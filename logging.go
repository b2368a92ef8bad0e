package mainthread

import (
	"fmt"
	"os"
	"reflect"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Log categories, set as the "category" field of every entry.
const (
	categoryAction    = "action"
	categoryCallback  = "callback"
	categoryCoroutine = "coroutine"
	categoryDropped   = "dropped"
	categoryThread    = "thread"
	categoryDriver    = "driver"
	categoryLifecycle = "lifecycle"
)

// defaultLogger writes JSON lines, warnings and above, to stderr.
func defaultLogger() *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(os.Stderr),
			stumpy.WithTimeField(`time`),
		),
		stumpy.L.WithLevel(stumpy.L.LevelWarning()),
	).Logger()
}

func defaultFailureLogRates() map[time.Duration]int {
	return map[time.Duration]int{
		time.Second: 5,
		time.Minute: 60,
	}
}

// failureCategory keys the rate limiter, one bucket per failure source.
type failureCategory struct {
	kind string
	key  string
}

// failureLog emits rate limited error logs for isolated faults.
// Safe for concurrent use.
type failureLog struct {
	logger     *logiface.Logger[logiface.Event]
	limiter    *catrate.Limiter
	suppressed atomic.Uint64
}

func newFailureLog(logger *logiface.Logger[logiface.Event], rates map[time.Duration]int) (x *failureLog, err error) {
	x = &failureLog{logger: logger}
	if len(rates) != 0 {
		// catrate panics on invalid (non-positive or non-monotonic) rates
		defer func() {
			if r := recover(); r != nil {
				x, err = nil, fmt.Errorf("%w: failure log rates: %v", ErrInvalidArgument, r)
			}
		}()
		x.limiter = catrate.NewLimiter(rates)
	}
	return x, nil
}

// allow registers an event for the category, returning false if the log
// should be suppressed.
func (x *failureLog) allow(category failureCategory) bool {
	if x.limiter == nil {
		return true
	}
	if _, ok := x.limiter.Allow(category); !ok {
		x.suppressed.Add(1)
		return false
	}
	return true
}

// Suppressed returns the number of failure logs dropped by rate limiting.
func (x *failureLog) Suppressed() uint64 {
	return x.suppressed.Load()
}

func (x *failureLog) actionPanic(name string, err *PanicError) {
	x.funcPanic(categoryAction, name, err, `queued action panicked`)
}

func (x *failureLog) updaterPanic(name string, err *PanicError) {
	x.funcPanic(categoryDriver, name, err, `frame updater panicked`)
}

func (x *failureLog) funcPanic(category, name string, err *PanicError, msg string) {
	b := x.logger.Err()
	if !b.Enabled() {
		b.Release()
		return
	}
	if !x.allow(failureCategory{category, name}) {
		b.Release()
		return
	}
	b.Str(`category`, category).
		Str(`func`, name).
		Err(err).
		Str(`stack`, string(err.Stack)).
		Log(msg)
}

func (x *failureLog) callbackPanic(err *CallbackError, stack []byte) {
	b := x.logger.Err()
	if !b.Enabled() {
		b.Release()
		return
	}
	if !x.allow(failureCategory{err.Event.String(), fmt.Sprint(err.ID)}) {
		b.Release()
		return
	}
	b.Str(`category`, categoryCallback).
		Stringer(`event`, err.Event).
		Uint64(`callback`, err.ID).
		Err(err).
		Str(`stack`, string(stack)).
		Log(`lifecycle callback panicked`)
}

func (x *failureLog) coroutinePanic(id uint64, err *PanicError) {
	b := x.logger.Err()
	if !b.Enabled() {
		b.Release()
		return
	}
	if !x.allow(failureCategory{categoryCoroutine, fmt.Sprint(id)}) {
		b.Release()
		return
	}
	b.Str(`category`, categoryCoroutine).
		Uint64(`coroutine`, id).
		Err(err).
		Str(`stack`, string(err.Stack)).
		Log(`coroutine panicked`)
}

// funcName returns the runtime name of fn, e.g. for use as a log field.
func funcName(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ``
	}
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		return f.Name()
	}
	return ``
}

package mainthread

import (
	"fmt"
	"runtime/debug"
	"slices"
	"sync"
	"sync/atomic"
)

// callbackIDs generates Callback.ID values, unique within the process.
var callbackIDs atomic.Uint64

// Callback is an opaque handle for a lifecycle callback, created by
// NewCallback. Identity is the pointer, never the wrapped function, so two
// handles wrapping equal functions are distinct registrations.
type Callback struct {
	fn func(bool)
	id uint64
}

// NewCallback wraps fn in a new handle, which may be registered with any
// number of callback sets. A handle wrapping a nil fn is rejected by
// registration.
func NewCallback(fn func(bool)) *Callback {
	return &Callback{
		fn: fn,
		id: callbackIDs.Add(1),
	}
}

// ID returns the identifier used to attribute the callback's log entries.
func (c *Callback) ID() uint64 {
	if c == nil {
		return 0
	}
	return c.id
}

// callbackSet is an identity-unique set of callbacks, ordered by
// registration. Registration is safe from any goroutine, including from
// within a callback being invoked.
type callbackSet struct {
	entries  []*Callback
	snapshot []*Callback
	mu       sync.Mutex
	event    LifecycleEvent
}

// add appends cb, returning false if it was already present, or invalid.
func (s *callbackSet) add(cb *Callback) bool {
	if cb == nil || cb.fn == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.entries, cb) {
		return false
	}
	s.entries = append(s.entries, cb)
	return true
}

// remove deletes cb, returning true if it was present.
func (s *callbackSet) remove(cb *Callback) bool {
	if cb == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := slices.Index(s.entries, cb)
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	return true
}

func (s *callbackSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// invoke calls every callback registered at the time of the call, in
// registration order, with state. A panicking callback is reported to
// onPanic, then delivery continues with the next callback.
//
// Changes to the set made by callbacks apply from the next invoke.
func (s *callbackSet) invoke(state bool, onPanic func(err *CallbackError, stack []byte)) {
	s.mu.Lock()
	snapshot := append(s.snapshot[:0], s.entries...)
	// nil while in use, so nested invocations allocate their own
	s.snapshot = nil
	s.mu.Unlock()

	for i, cb := range snapshot {
		snapshot[i] = nil
		s.safeCall(cb, state, onPanic)
	}

	s.mu.Lock()
	s.snapshot = snapshot[:0]
	s.mu.Unlock()
}

func (s *callbackSet) safeCall(cb *Callback, state bool, onPanic func(err *CallbackError, stack []byte)) {
	defer func() {
		if r := recover(); r != nil {
			err := &CallbackError{
				Event: s.event,
				ID:    cb.id,
			}
			if e, ok := r.(error); ok {
				err.Err = e
			} else {
				err.Err = fmt.Errorf("%v", r)
			}
			onPanic(err, debug.Stack())
		}
	}()
	cb.fn(state)
}

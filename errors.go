package mainthread

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrInvalidArgument is the class of all argument validation failures,
	// returned synchronously, e.g. by [Dispatcher.Submit].
	ErrInvalidArgument = errors.New("mainthread: invalid argument")

	// ErrNilAction is returned when a nil action is submitted.
	// It matches [ErrInvalidArgument] via [errors.Is].
	ErrNilAction = fmt.Errorf("%w: nil action", ErrInvalidArgument)

	// ErrNilCoroutine is returned when a nil coroutine is submitted.
	// It matches [ErrInvalidArgument] via [errors.Is].
	ErrNilCoroutine = fmt.Errorf("%w: nil coroutine", ErrInvalidArgument)

	// ErrNilDispatcher is returned by constructors given a nil dispatcher.
	ErrNilDispatcher = fmt.Errorf("%w: nil dispatcher", ErrInvalidArgument)

	// ErrDriverRunning is returned when Run is called on a driver that is
	// already running.
	ErrDriverRunning = errors.New("mainthread: driver is already running")
)

// PanicError wraps a value recovered from a panicking action, callback, or
// coroutine.
type PanicError struct {
	Value any
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("mainthread: panic: %v", e.Value)
}

// Unwrap returns the underlying error if the panic value is an error type.
// This enables use with [errors.Is] and [errors.As] for error matching
// through the cause chain.
//
// If the panic Value is not an error (e.g., a string or other type),
// returns nil.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// CallbackError describes a fault raised by a lifecycle callback. It is
// logged by the invoker, and never propagated to the driving loop.
type CallbackError struct {
	Err   error
	Event LifecycleEvent
	ID    uint64
}

// Error implements the error interface.
func (e *CallbackError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("mainthread: %s callback %d failed", e.Event, e.ID)
	}
	return fmt.Sprintf("mainthread: %s callback %d failed: %v", e.Event, e.ID, e.Err)
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *CallbackError) Unwrap() error {
	return e.Err
}

package mainthread

// Submitter accepts actions to run on the main goroutine, and is implemented
// by Dispatcher. Collaborators that only submit work should depend on it.
type Submitter interface {
	Submit(action func()) error
}

var _ Submitter = (*Dispatcher)(nil)

// Wrap returns a function that, when called from any goroutine, submits fn
// to s. If fn is nil, the returned function does nothing.
//
// The error from Submit is discarded, which is only possible if fn is nil.
func Wrap(s Submitter, fn func()) func() {
	if fn == nil {
		return func() {}
	}
	return func() {
		_ = s.Submit(fn)
	}
}

// Wrap1 is Wrap for a callback with one argument, which is captured at the
// time of the call, then passed to fn on the main goroutine.
func Wrap1[T any](s Submitter, fn func(T)) func(T) {
	if fn == nil {
		return func(T) {}
	}
	return func(v T) {
		_ = s.Submit(func() { fn(v) })
	}
}

// Wrap2 is Wrap1 for a callback with two arguments.
func Wrap2[T1, T2 any](s Submitter, fn func(T1, T2)) func(T1, T2) {
	if fn == nil {
		return func(T1, T2) {}
	}
	return func(v1 T1, v2 T2) {
		_ = s.Submit(func() { fn(v1, v2) })
	}
}

// Wrap3 is Wrap1 for a callback with three arguments.
func Wrap3[T1, T2, T3 any](s Submitter, fn func(T1, T2, T3)) func(T1, T2, T3) {
	if fn == nil {
		return func(T1, T2, T3) {}
	}
	return func(v1 T1, v2 T2, v3 T3) {
		_ = s.Submit(func() { fn(v1, v2, v3) })
	}
}

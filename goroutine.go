package mainthread

import (
	"bytes"
	"runtime"
	"strconv"
	"sync/atomic"
)

// goroutineID parses the current goroutine's ID from the header of its
// stack trace, "goroutine N [status]:".
func goroutineID() uint64 {
	var buf [64]byte
	b := buf[:runtime.Stack(buf[:], false)]
	b = bytes.TrimPrefix(b, []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// mainThread tracks the identity of the main goroutine.
//
// Coroutines run on goroutines of their own (see iter.Pull), switched to
// and from synchronously by the main goroutine. While a coroutine is
// running, its goroutine is the delegate, and is treated as the main
// goroutine.
type mainThread struct {
	id       atomic.Uint64
	delegate atomic.Uint64
}

// is reports whether the caller is the main goroutine, or its delegate.
func (x *mainThread) is() bool {
	return x.matches(goroutineID())
}

func (x *mainThread) matches(gid uint64) bool {
	return gid != 0 && (gid == x.id.Load() || gid == x.delegate.Load())
}

// observe records the caller as the main goroutine. If that replaced a
// different goroutine, changed is true, with the previous and current ids.
// A delegate is never recorded.
func (x *mainThread) observe() (prev, current uint64, changed bool) {
	current = goroutineID()
	if x.matches(current) {
		return 0, current, false
	}
	prev = x.id.Swap(current)
	return prev, current, prev != 0 && prev != current
}

// delegated wraps c, such that its goroutine is the delegate whenever c
// is running, restoring the previous delegate whenever it yields or
// returns. Nested coroutines (started by a running coroutine) restore the
// outer coroutine's goroutine.
func (x *mainThread) delegated(c Coroutine) Coroutine {
	return func(yield func(Instruction) bool) {
		gid := goroutineID()
		prev := x.delegate.Swap(gid)
		defer func() {
			x.delegate.Store(prev)
		}()
		c(func(ins Instruction) bool {
			x.delegate.Store(prev)
			ok := yield(ins)
			prev = x.delegate.Swap(gid)
			return ok
		})
	}
}

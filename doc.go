// Package mainthread marshals work from arbitrary goroutines onto a single
// "main" goroutine, driven once per frame by a host loop.
//
// Native SDKs and background I/O report results on goroutines of their
// choosing, while UI and engine state may only be touched from the main
// goroutine. A [Dispatcher] bridges the two: any goroutine may
// [Dispatcher.Submit] an action, and the main goroutine runs every queued
// action, in order, on its next [Dispatcher.Tick].
//
// # Architecture
//
// The dispatcher is built around a mutex-guarded chunked queue, and an
// atomic pending flag that is set in the same critical section as each
// append. An idle tick only reads the flag. A busy tick swaps the whole
// queue into a buffer owned by the main goroutine, then runs the actions
// outside the lock, each with panic recovery.
//
// Two lifecycle callback sets (focus and pause) are delivered by the
// driving loop via [Dispatcher.NotifyFocus] and [Dispatcher.NotifyPause].
// Handles are created by [NewCallback], and compared by identity.
//
// A [Driver] is a ready made driving loop, which also updates the
// coroutine host ([CoroutineRunner], by default) and any [Updater], such as
// a [Countdown]. Callbacks from other goroutines may be marshalled using
// [Wrap] and friends.
//
// # Modes
//
// A dispatcher is either [ModeActive], or [ModeDummy] for processes that
// have no driving loop, in which case submissions are accepted and then
// dropped. [Bootstrap] decides between them, at most once, using
// [DetectInteractive].
//
// # Thread Safety
//
//   - [Dispatcher.Submit], [Dispatcher.SubmitCoroutine] and callback
//     registration are safe to call from any goroutine
//   - [Driver.PostFocus] and [Driver.PostPause] are safe to call from any
//     goroutine
//   - [Dispatcher.Tick], the Notify methods, [CoroutineRunner] and
//     [Countdown] must only be used from the main goroutine
//
// # Usage
//
//	d, err := mainthread.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	driver, err := mainthread.NewDriver(d)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	go func() {
//	    result := fetch()
//	    _ = d.Submit(func() {
//	        render(result)
//	    })
//	}()
//
//	if err := driver.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    log.Fatal(err)
//	}
package mainthread

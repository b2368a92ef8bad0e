//go:build unix

package mainthread

import (
	"context"
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// NotifySignals toggles the pause state on SIGUSR1, and the focus state on
// SIGUSR2, until ctx is cancelled or the returned stop function is called.
// Stop blocks until the signal handler has exited, and may be called more
// than once.
//
// Useful to exercise lifecycle callbacks of a headless process, e.g.
// `kill -USR1 <pid>`. A no-op on platforms other than unix.
func (x *Driver) NotifySignals(ctx context.Context) (stop func()) {
	// we can avoid missing up to 16 signals
	sigCh := make(chan os.Signal, 16)
	signal.Notify(sigCh, unix.SIGUSR1, unix.SIGUSR2)

	done := make(chan struct{})
	exited := make(chan struct{})

	go func() {
		defer close(exited)
		defer signal.Stop(sigCh)
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case s := <-sigCh:
				switch s {
				case unix.SIGUSR1:
					x.post(postedEvent{event: EventPause, toggle: true})
				case unix.SIGUSR2:
					x.post(postedEvent{event: EventFocus, toggle: true})
				}
				x.dispatcher.logger.Info().
					Str(`category`, categoryDriver).
					Stringer(`signal`, s).
					Log(`lifecycle signal received`)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
		<-exited
	}
}

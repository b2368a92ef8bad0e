package mainthread

import (
	"os"
	"strings"

	"golang.org/x/term"
)

// ModeEnv is the environment variable that overrides interactive
// detection, see DetectInteractive. Accepts "active" or "dummy".
const ModeEnv = `MAINTHREAD_MODE`

// Bootstrap lazily creates the Dispatcher for a process, deciding between
// ModeActive and ModeDummy on first use. It is intended to be owned by the
// composition root, which passes the dispatcher (or a Submitter) onwards.
//
// The zero value is ready to use. Bootstrap is NOT safe for concurrent use:
// EnsureCreated is expected to be called during startup, on the main
// goroutine.
type Bootstrap struct {
	// Interactive reports whether a driving loop will be running.
	// Defaults to DetectInteractive.
	Interactive func() bool

	// Options are passed to New, preceded by the WithMode option.
	Options []Option

	dispatcher *Dispatcher
	err        error
}

// EnsureCreated returns the dispatcher, creating it on the first call.
// Subsequent calls return the same instance.
//
// If New fails using the configured Options, a ModeDummy dispatcher is
// created instead, retaining only the logger (if any) from Options, and the
// error is available via Err.
func (x *Bootstrap) EnsureCreated() *Dispatcher {
	if x.dispatcher != nil {
		return x.dispatcher
	}

	interactive := x.Interactive
	if interactive == nil {
		interactive = DetectInteractive
	}

	mode := ModeDummy
	if interactive() {
		mode = ModeActive
	}

	opts := make([]Option, 0, len(x.Options)+1)
	opts = append(opts, WithMode(mode))
	opts = append(opts, x.Options...)

	d, err := New(opts...)
	if err != nil {
		x.err = err
		d, _ = New(fallbackOptions(x.Options)...)
		d.logger.Err().
			Err(err).
			Log(`mainthread: bootstrap failed, falling back to dummy mode`)
	}
	x.dispatcher = d

	return d
}

// fallbackOptions configures a ModeDummy dispatcher with the logger set by
// opts, if any. Errors from opts are ignored.
func fallbackOptions(opts []Option) []Option {
	var cfg dispatcherOptions
	for _, opt := range opts {
		if opt != nil {
			_ = opt.applyDispatcher(&cfg)
		}
	}
	fallback := []Option{WithMode(ModeDummy)}
	if cfg.loggerSet {
		fallback = append(fallback, WithLogger(cfg.logger))
	}
	return fallback
}

// Mode returns the mode of the created dispatcher, or ModeUninitialized if
// EnsureCreated has not been called.
func (x *Bootstrap) Mode() Mode {
	if x.dispatcher == nil {
		return ModeUninitialized
	}
	return x.dispatcher.Mode()
}

// Err returns the error that caused EnsureCreated to fall back to
// ModeDummy, if any.
func (x *Bootstrap) Err() error {
	return x.err
}

// DetectInteractive reports whether the process appears to have a driving
// loop. The ModeEnv environment variable takes precedence, otherwise it
// reports whether stdin is a terminal.
func DetectInteractive() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(ModeEnv))) {
	case `active`:
		return true
	case `dummy`:
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package mainthread

import (
	"fmt"
	"time"

	"github.com/joeycumines/logiface"
)

// dispatcherOptions holds configuration options for Dispatcher creation.
type dispatcherOptions struct {
	logger          *logiface.Logger[logiface.Event]
	coroutineHost   CoroutineHost
	failureLogRates map[time.Duration]int
	mode            Mode
	loggerSet       bool
	ratesSet        bool
	metricsEnabled  bool
}

// Option configures a Dispatcher instance.
type Option interface {
	applyDispatcher(*dispatcherOptions) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyDispatcherFunc func(*dispatcherOptions) error
}

func (o *optionImpl) applyDispatcher(opts *dispatcherOptions) error {
	return o.applyDispatcherFunc(opts)
}

// WithMode sets the operating mode, which must be ModeActive (the default)
// or ModeDummy. A dummy dispatcher accepts and drops every submission.
func WithMode(mode Mode) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		if mode != ModeActive && mode != ModeDummy {
			return fmt.Errorf("%w: mode %s", ErrInvalidArgument, mode)
		}
		opts.mode = mode
		return nil
	}}
}

// WithLogger sets the structured logger. A nil logger disables logging.
// Defaults to a stumpy JSON logger, writing warnings and above to stderr.
func WithLogger(logger *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.logger = logger
		opts.loggerSet = true
		return nil
	}}
}

// WithMetrics enables queue depth, queue wait latency and throughput
// metrics, accessible via Dispatcher.Metrics. The plain counters are always
// collected. Enabling this costs a clock read per submission.
func WithMetrics(enabled bool) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// WithCoroutineHost sets the host that SubmitCoroutine starts coroutines on.
// Defaults to a new CoroutineRunner, sharing the dispatcher's logger.
func WithCoroutineHost(host CoroutineHost) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		if host == nil {
			return fmt.Errorf("%w: nil coroutine host", ErrInvalidArgument)
		}
		opts.coroutineHost = host
		return nil
	}}
}

// WithFailureLogRates configures per-category rate limits for failure logs
// (panicking actions, callbacks and coroutines), using the same semantics
// as [catrate.NewLimiter]. Categories are the callback id or the action's
// function name. An empty map disables rate limiting.
func WithFailureLogRates(rates map[time.Duration]int) Option {
	return &optionImpl{func(opts *dispatcherOptions) error {
		opts.failureLogRates = rates
		opts.ratesSet = true
		return nil
	}}
}

// resolveOptions applies Option instances to dispatcherOptions.
func resolveOptions(opts []Option) (*dispatcherOptions, error) {
	cfg := &dispatcherOptions{
		mode: ModeActive,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyDispatcher(cfg); err != nil {
			return nil, err
		}
	}
	if !cfg.loggerSet {
		cfg.logger = defaultLogger()
	}
	if !cfg.ratesSet {
		cfg.failureLogRates = defaultFailureLogRates()
	}
	return cfg, nil
}

// driverOptions holds configuration options for Driver creation.
type driverOptions struct {
	updaters        []Updater
	frameInterval   time.Duration
	tickWhilePaused bool
}

// DriverOption configures a Driver instance.
type DriverOption interface {
	applyDriver(*driverOptions) error
}

// driverOptionImpl implements DriverOption.
type driverOptionImpl struct {
	applyDriverFunc func(*driverOptions) error
}

func (o *driverOptionImpl) applyDriver(opts *driverOptions) error {
	return o.applyDriverFunc(opts)
}

// WithFrameInterval sets the target time between frames, which must be
// positive. Defaults to 1/60th of a second.
func WithFrameInterval(interval time.Duration) DriverOption {
	return &driverOptionImpl{func(opts *driverOptions) error {
		if interval <= 0 {
			return fmt.Errorf("%w: frame interval %s", ErrInvalidArgument, interval)
		}
		opts.frameInterval = interval
		return nil
	}}
}

// WithUpdaters appends to the updaters called each frame, after the
// coroutine host and Tick, in the order provided. Nil values are ignored.
func WithUpdaters(updaters ...Updater) DriverOption {
	return &driverOptionImpl{func(opts *driverOptions) error {
		for _, u := range updaters {
			if u != nil {
				opts.updaters = append(opts.updaters, u)
			}
		}
		return nil
	}}
}

// WithTickWhilePaused configures the driver to continue running frames
// while paused. By default, no frames run between a pause and the
// subsequent resume, though lifecycle events are still delivered.
func WithTickWhilePaused(enabled bool) DriverOption {
	return &driverOptionImpl{func(opts *driverOptions) error {
		opts.tickWhilePaused = enabled
		return nil
	}}
}

// resolveDriverOptions applies DriverOption instances to driverOptions.
func resolveDriverOptions(opts []DriverOption) (*driverOptions, error) {
	cfg := &driverOptions{
		frameInterval: time.Second / 60,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyDriver(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

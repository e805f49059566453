// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package cotask

import (
	"errors"
	"time"

	"github.com/joeycumines/logiface"
)

// options holds configuration resolved at scheduler creation.
type options struct {
	clock          Clock
	waker          idleWaker
	logger         *logiface.Logger[logiface.Event]
	idleCap        time.Duration
	metricsEnabled bool
}

// defaultIdleCap bounds a single Clock.Idle call even with no pending
// deadline, so a missed wakeup degrades to latency rather than a hang.
const defaultIdleCap = 10 * time.Second

// Option configures a Scheduler instance.
type Option interface {
	apply(*options) error
}

// optionImpl implements Option.
type optionImpl struct {
	applyFunc func(*options) error
}

func (o *optionImpl) apply(opts *options) error {
	return o.applyFunc(opts)
}

// WithClock supplies a custom tick source and idle hook, replacing the
// default monotonic clock. Use this on hosts with their own notion of time
// (simulations, embedded shims), or in tests that need deterministic timers.
func WithClock(c Clock) Option {
	return &optionImpl{func(opts *options) error {
		if c == nil {
			return errors.New("cotask: nil clock")
		}
		opts.clock = c
		return nil
	}}
}

// WithLogger attaches a structured logger. The scheduler logs lifecycle
// events (task creation and exit, shutdown progress) at debug, and task
// panics at error. A nil logger disables logging (the default).
func WithLogger(l *logiface.Logger[logiface.Event]) Option {
	return &optionImpl{func(opts *options) error {
		opts.logger = l
		return nil
	}}
}

// WithMetrics enables runtime metrics collection, accessible via
// Scheduler.Metrics. Adds a small bookkeeping cost to each dispatch; leave
// disabled (the default) for zero overhead.
func WithMetrics(enabled bool) Option {
	return &optionImpl{func(opts *options) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// WithIdleCap bounds the duration of a single idle block when no timer
// deadline is pending. The default is 10s.
func WithIdleCap(d time.Duration) Option {
	return &optionImpl{func(opts *options) error {
		if d <= 0 {
			return errors.New("cotask: idle cap must be positive")
		}
		opts.idleCap = d
		return nil
	}}
}

// resolveOptions applies Option instances to a fresh options struct.
func resolveOptions(opts []Option) (*options, error) {
	cfg := &options{
		idleCap: defaultIdleCap,
	}
	for _, opt := range opts {
		if opt == nil {
			continue // Skip nil options gracefully
		}
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

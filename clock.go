// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package cotask

import (
	"time"
)

// Tick is a monotonic tick count. Ticks may wrap: all comparisons use signed
// difference (see tickBefore), so correctness depends only on the window
// between any task's sleep and wake being less than half the Tick range.
type Tick int64

// tickBefore reports whether a is strictly before b in wrap-safe tick order.
func tickBefore(a, b Tick) bool {
	return a-b < 0
}

// Clock is the platform shim supplying the scheduler's notion of time and
// its idle behavior.
//
// Now and TicksPerSecond describe a monotonic tick source. Idle is invoked
// by the scheduler when nothing is runnable; it must block for at most the
// given duration, or until Wake is called. Wake is the only method that is
// safe to call from any goroutine; everything else runs on the scheduler's
// execution context.
type Clock interface {
	// Now returns the current monotonic tick count.
	Now() Tick
	// TicksPerSecond returns the tick rate. Must be constant.
	TicksPerSecond() int64
	// Idle blocks for at most max, or until Wake. A Wake that arrived since
	// the previous Idle returns immediately (wakeups are level, not edge).
	Idle(max time.Duration)
	// Wake interrupts a concurrent or subsequent Idle. Thread-safe.
	Wake()
}

// durationToTicks converts a duration to ticks, rounding up so that a sleep
// of d never wakes before d has elapsed.
func durationToTicks(c Clock, d time.Duration) Tick {
	tps := c.TicksPerSecond()
	if tps == int64(time.Second) {
		return Tick(d)
	}
	// Split to avoid overflowing int64 when tps is large.
	sec := int64(d) / int64(time.Second)
	rem := int64(d) % int64(time.Second)
	return Tick(sec*tps + (rem*tps+int64(time.Second)-1)/int64(time.Second))
}

// ticksToDuration converts a tick delta to a duration, truncating.
func ticksToDuration(c Clock, t Tick) time.Duration {
	tps := c.TicksPerSecond()
	if tps == int64(time.Second) {
		return time.Duration(t)
	}
	sec := int64(t) / tps
	rem := int64(t) % tps
	return time.Duration(sec)*time.Second + time.Duration(rem*int64(time.Second)/tps)
}

// idleWaker is the blocking half of a Clock: a level-triggered wakeup
// latch. Implementations: chanWaker (default) and FDWaker (unix).
type idleWaker interface {
	// Wake sets the latch and unblocks a concurrent idleWait. Thread-safe.
	Wake()
	// idleWait blocks for at most max or until the latch is set, consuming
	// the latch. A pre-set latch returns immediately.
	idleWait(max time.Duration)
	// Close releases any resources held by the waker.
	Close() error
}

// chanWaker is the default waker: a one-slot channel, giving automatic
// wakeup deduplication and ~ns-scale signaling with no file descriptors.
type chanWaker struct {
	ch chan struct{}
}

func newChanWaker() *chanWaker {
	return &chanWaker{ch: make(chan struct{}, 1)}
}

// Wake sets the latch. Safe from any goroutine; a pending wakeup is
// coalesced by the one-slot buffer.
func (w *chanWaker) Wake() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

func (w *chanWaker) idleWait(max time.Duration) {
	// Consume a pending wakeup first (non-blocking).
	select {
	case <-w.ch:
		return
	default:
	}

	if max <= 0 {
		return
	}

	t := time.NewTimer(max)
	select {
	case <-w.ch:
		t.Stop()
	case <-t.C:
	}
}

func (w *chanWaker) Close() error {
	return nil
}

// monoClock is the default Clock: nanosecond ticks measured from an anchor
// captured at construction. time.Since uses the runtime's monotonic reading,
// so wall-clock adjustments (NTP, manual set) do not disturb tick flow.
type monoClock struct {
	anchor time.Time
	waker  idleWaker
}

func newMonoClock(w idleWaker) *monoClock {
	if w == nil {
		w = newChanWaker()
	}
	return &monoClock{anchor: time.Now(), waker: w}
}

func (c *monoClock) Now() Tick {
	return Tick(time.Since(c.anchor))
}

func (c *monoClock) TicksPerSecond() int64 {
	return int64(time.Second)
}

func (c *monoClock) Idle(max time.Duration) {
	c.waker.idleWait(max)
}

func (c *monoClock) Wake() {
	c.waker.Wake()
}

// Close releases the underlying waker. The scheduler calls this at the end
// of Shutdown when it constructed the clock itself.
func (c *monoClock) Close() error {
	return c.waker.Close()
}

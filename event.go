package cotask

import (
	"time"
)

// Event is a level-triggered notification: a one-bit flag plus a FIFO wait
// queue. Set with waiters present wakes them all; Set with no waiters
// latches the flag, which the next Wait consumes. A flagged event never has
// waiters.
//
// Storage is caller-owned: construct with Scheduler.NewEvent, no destructor
// needed beyond ensuring no task is waiting when the value is dropped.
//
// Callers that want one-shot single-waker semantics build it from a Mutex
// and an Event; the core deliberately has no wake-one variant.
type Event struct {
	s       *Scheduler
	flagged bool
	waiters taskList
}

// NewEvent creates an unflagged event bound to the scheduler.
func (s *Scheduler) NewEvent() *Event {
	return &Event{s: s}
}

// Set wakes every waiter in FIFO order, or, with no waiters present,
// latches the flag until the next Wait. Set does not suspend and is
// idempotent on a flagged event. Callable from tasks and posted functions
// (but not foreign goroutines: marshal through Scheduler.Post).
func (e *Event) Set() {
	if e.waiters.empty() {
		e.flagged = true
		return
	}
	for {
		w := e.waiters.popFront()
		if w == nil {
			return
		}
		e.s.wake(w, resultNormal)
	}
}

// Wait consumes the flag if set, returning immediately; otherwise suspends
// until Set.
func (e *Event) Wait() error {
	t, err := e.s.suspendable()
	if err != nil {
		return err
	}
	if e.flagged {
		e.flagged = false
		return nil
	}

	e.waiters.pushBack(&t.runLink)
	t.state = TaskWaiting
	if e.s.dispatch() == resultKilled {
		panic(killPanic{})
	}
	return nil
}

// WaitTimeout is Wait with a deadline, failing with ErrTimedOut if Set does
// not arrive within d. The task is placed on the wait queue and the timer
// queue within one non-parking region; whichever wakeup fires first unlinks
// both, so the loser is a no-op and a late Set cannot re-wake a timed-out
// waiter (nor the reverse).
func (e *Event) WaitTimeout(d time.Duration) error {
	t, err := e.s.suspendable()
	if err != nil {
		return err
	}
	if e.flagged {
		e.flagged = false
		return nil
	}
	if d <= 0 {
		return ErrTimedOut
	}

	e.waiters.pushBack(&t.runLink)
	e.s.timers.insert(t, e.s.clock.Now()+durationToTicks(e.s.clock, d))
	t.state = TaskWaiting
	switch e.s.dispatch() {
	case resultKilled:
		panic(killPanic{})
	case resultTimedOut:
		return ErrTimedOut
	}
	return nil
}

// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package cotask

import (
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

var schedIDCounter atomic.Uint64

// Scheduler multiplexes cooperative tasks over a single execution context.
//
// The goroutine that calls New becomes the main task. All operations except
// Post and Wake must be invoked from the scheduler's execution context (the
// main task or a task it created); the runtime is not reentrant across OS
// threads on a single scheduler. One process may run several schedulers, one
// per execution context.
//
// The scheduler holds non-owning references to tasks via intrusive links: a
// task is always on exactly one of {run queue, a single wait queue} or
// neither (while running), plus optionally the timer queue.
type Scheduler struct { // betteralign:ignore
	// Prevent copying
	_ [0]func()

	state schedState

	// mail is the only structure foreign goroutines may touch (has its own
	// mutex). Everything below is scheduler-context only.
	mail mailbox

	clock   Clock
	log     *logiface.Logger[logiface.Event]
	metrics *Metrics

	current *Task
	main    *Task
	runq    taskList
	timers  timerQueue
	// tasks is the registry of live (not yet joined) tasks, walked by
	// Shutdown to unwind whatever is still parked.
	tasks taskList

	idleCap time.Duration
	nextID  uint64
	id      uint64

	// inPosted marks that a posted function is executing; suspending
	// operations check it (posted functions have no task context to park).
	inPosted bool
	// ownClock marks that the scheduler built its clock and owns teardown.
	ownClock bool
}

// New creates a scheduler and designates the calling goroutine as the main
// task. The main task is running on return; create peers with Create and
// tear everything down with Shutdown.
func New(opts ...Option) (*Scheduler, error) {
	cfg, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		id:      schedIDCounter.Add(1),
		log:     cfg.logger,
		idleCap: cfg.idleCap,
	}
	if cfg.clock != nil {
		s.clock = cfg.clock
	} else {
		s.clock = newMonoClock(cfg.waker)
		s.ownClock = true
	}
	if cfg.metricsEnabled {
		s.metrics = newMetrics()
	}

	s.nextID = 1
	main := newTask(s, s.nextID)
	main.state = TaskRunnable
	s.main = main
	s.current = main
	s.tasks.pushBack(&main.regLink)

	if b := s.log.Debug(); b != nil {
		b.Uint64("scheduler", s.id).Log("scheduler initialized")
	}
	return s, nil
}

// State returns the scheduler's lifecycle state.
func (s *Scheduler) State() SchedState {
	return s.state.Load()
}

// Current returns the running task. The main task has ID 1.
func (s *Scheduler) Current() *Task {
	return s.current
}

// Metrics returns the live metrics collector, or nil unless the scheduler
// was created with WithMetrics(true).
func (s *Scheduler) Metrics() *Metrics {
	return s.metrics
}

// Create spawns a task executing fn, in state Runnable at the tail of the
// run queue. The returned handle stays valid until the task has exited and
// been joined. Create does not suspend; the new task first runs when the
// creator next suspends.
func (s *Scheduler) Create(fn func()) (*Task, error) {
	if fn == nil {
		return nil, ErrNilFunc
	}
	if s.state.Load() >= StateTerminating {
		return nil, ErrSchedulerTerminated
	}

	s.nextID++
	t := newTask(s, s.nextID)
	t.state = TaskRunnable
	s.tasks.pushBack(&t.regLink)
	s.runq.pushBack(&t.runLink)
	if s.metrics != nil {
		s.metrics.taskCreated(s.runq.len())
	}

	go t.run(fn)

	if b := s.log.Debug(); b != nil {
		b.Uint64("scheduler", s.id).Uint64("task", t.id).Log("task created")
	}
	return t, nil
}

// Yield places the running task at the run-queue tail, behind all currently
// runnable peers, and reschedules.
func (s *Scheduler) Yield() error {
	t, err := s.suspendable()
	if err != nil {
		return err
	}
	t.result = resultNormal
	s.runq.pushBack(&t.runLink)
	if s.metrics != nil {
		s.metrics.yielded()
	}
	if s.dispatch() == resultKilled {
		panic(killPanic{})
	}
	return nil
}

// Sleep blocks the running task for at least d. Durations of zero or less
// degrade to Yield.
func (s *Scheduler) Sleep(d time.Duration) error {
	t, err := s.suspendable()
	if err != nil {
		return err
	}
	if d <= 0 {
		return s.Yield()
	}
	s.timers.insert(t, s.clock.Now()+durationToTicks(s.clock, d))
	t.state = TaskWaiting
	if s.dispatch() == resultKilled {
		panic(killPanic{})
	}
	return nil
}

// Join blocks until target has returned from its entry function. Join never
// times out. A target that is already a zombie returns immediately; its
// record is retired from the scheduler either way. Multiple tasks may join
// the same target; they resume in FIFO order.
func (s *Scheduler) Join(target *Task) error {
	t, err := s.suspendable()
	if err != nil {
		return err
	}
	if target == nil {
		return ErrNilTask
	}
	if target == t {
		return ErrJoinSelf
	}

	if target.state != TaskZombie {
		target.joiners.pushBack(&t.runLink)
		t.state = TaskWaiting
		if s.dispatch() == resultKilled {
			panic(killPanic{})
		}
	}

	s.reap(target)
	return nil
}

// Post marshals fn onto the scheduler's execution context: it runs before
// the next dispatch sweep, after any functions posted earlier. Post is safe
// from any goroutine or OS thread, and is the intended funnel for
// integrations that complete work asynchronously. Posted functions must not
// suspend; suspending operations called from one fail with ErrPostedSuspend.
func (s *Scheduler) Post(fn func()) error {
	if fn == nil {
		return ErrNilFunc
	}

	// State check under the mailbox mutex makes check-and-push atomic
	// against a concurrent Shutdown dropping the mailbox.
	s.mail.mu.Lock()
	if s.state.Load() >= StateTerminating {
		s.mail.mu.Unlock()
		return ErrSchedulerTerminated
	}
	s.mail.pushLocked(fn)
	depth := s.mail.lenLocked()
	s.mail.mu.Unlock()

	if s.metrics != nil {
		s.metrics.posted(depth)
	}

	// The push above happens-before this load relative to idle's re-check:
	// either the sweep sees the mailbox entry, or we see StateIdling and
	// wake the clock.
	if s.state.Load() == StateIdling {
		s.clock.Wake()
	}
	return nil
}

// Wake interrupts an idle scheduler. Thread-safe. Integrations that hand
// the scheduler work through a side channel of their own (rather than Post)
// call this after publishing.
func (s *Scheduler) Wake() {
	if s.state.Load() == StateIdling {
		s.clock.Wake()
	}
}

// Shutdown unwinds every live task other than main and terminates the
// scheduler. Each parked task is resumed with a kill indication; its
// suspending operation unwinds the task (deferred functions run), the
// trampoline marks it a zombie and hands control back. Shutdown must be
// called from the main task. After it returns, every operation fails with
// ErrSchedulerTerminated.
func (s *Scheduler) Shutdown() error {
	if s.inPosted {
		return ErrPostedSuspend
	}
	if st := s.state.Load(); st >= StateTerminating {
		return ErrSchedulerTerminated
	}
	if s.current != s.main {
		return ErrNotMainTask
	}
	if !s.state.TryTransition(StateRunning, StateTerminating) {
		return ErrSchedulerTerminated
	}

	if b := s.log.Debug(); b != nil {
		b.Uint64("scheduler", s.id).Log("shutdown started")
	}

	var killed int
	for {
		victim := s.nextVictim()
		if victim == nil {
			break
		}
		s.kill(victim)
		killed++
	}

	// Retire the registry: handles stay valid (and report Zombie) but the
	// scheduler no longer tracks anything.
	for {
		n := s.tasks.frontNode()
		if n == nil {
			break
		}
		n.task.reaped = true
		n.unlink()
	}

	s.mail.drop()
	s.state.Store(StateTerminated)

	if s.ownClock {
		if c, ok := s.clock.(*monoClock); ok {
			_ = c.Close()
		}
	}

	if b := s.log.Debug(); b != nil {
		b.Uint64("scheduler", s.id).Int("killed", killed).Log("scheduler terminated")
	}
	return nil
}

// nextVictim scans the registry for a live task to unwind.
func (s *Scheduler) nextVictim() *Task {
	for n := s.tasks.frontNode(); n != nil; n = n.next {
		if t := n.task; t != s.main && t.state != TaskZombie {
			return t
		}
	}
	return nil
}

// kill resumes a parked task with a kill indication and waits for its
// trampoline to hand control back to main. Runs on the main task's
// goroutine, inside Shutdown.
func (s *Scheduler) kill(t *Task) {
	t.runLink.unlink()
	s.timers.cancel(t)
	t.result = resultKilled
	t.state = TaskRunnable
	s.current = t
	t.baton <- struct{}{}
	<-s.main.baton
}

// suspendable is the preamble shared by every suspending operation.
func (s *Scheduler) suspendable() (*Task, error) {
	if s.state.Load() >= StateTerminating {
		return nil, ErrSchedulerTerminated
	}
	if s.inPosted {
		return nil, ErrPostedSuspend
	}
	return s.current, nil
}

// wake moves a parked task to the run queue with the given result,
// unlinking it from its wait queue and any pending deadline first. Wakers
// run within a single non-parking region, so the two unlinks are atomic
// with respect to the scheduler: whichever wakeup fires first wins and the
// loser finds nothing to wake.
func (s *Scheduler) wake(t *Task, res waitResult) {
	t.runLink.unlink()
	s.timers.cancel(t)
	t.result = res
	t.state = TaskRunnable
	s.runq.pushBack(&t.runLink)
}

// dispatch is entered whenever the current task suspends. It selects the
// next runnable task, jumps to it, parks the suspender, and returns the
// suspender's wait result once something reschedules it. If the sweep makes
// the suspender itself runnable again (its own timer expired, say), it
// returns without parking.
func (s *Scheduler) dispatch() waitResult {
	self := s.current
	next := s.sweep()
	if next != self {
		if s.metrics != nil {
			s.metrics.switched()
		}
		next.baton <- struct{}{}
		<-self.baton
	}
	res := self.result
	self.result = resultNone
	return res
}

// sweep loops the dispatch sweep until a task is runnable: drain the
// mailbox, collect expired timers, pop the run-queue head; otherwise idle
// until the next deadline or an asynchronous wakeup.
func (s *Scheduler) sweep() *Task {
	for {
		s.drainMailbox()
		s.expireTimers()
		if next := s.runq.popFront(); next != nil {
			s.current = next
			return next
		}
		s.idle()
	}
}

// expireTimers moves every task whose deadline is due onto the run queue,
// in deadline order (insertion order for equal deadlines).
func (s *Scheduler) expireTimers() {
	if s.timers.empty() {
		return
	}
	now := s.clock.Now()
	s.timers.expire(now, func(t *Task) {
		if s.metrics != nil {
			s.metrics.timerFired(ticksToDuration(s.clock, now-t.wakeTick))
		}
		s.wake(t, resultTimedOut)
	})
}

// drainMailbox runs every posted function, oldest first.
func (s *Scheduler) drainMailbox() {
	for {
		s.mail.mu.Lock()
		fn, ok := s.mail.popLocked()
		s.mail.mu.Unlock()
		if !ok {
			return
		}
		s.runPosted(fn)
	}
}

// runPosted executes a posted function with panic containment.
func (s *Scheduler) runPosted(fn func()) {
	s.inPosted = true
	defer func() {
		s.inPosted = false
		if r := recover(); r != nil {
			if b := s.log.Err(); b != nil {
				b.Uint64("scheduler", s.id).Any("panic", r).Log("posted function panicked")
			}
		}
	}()
	fn()
}

// idle blocks in the clock until the next timer deadline, the idle cap, or
// an asynchronous wakeup, whichever is first.
func (s *Scheduler) idle() {
	max := s.idleCap
	if wake, ok := s.timers.nextWake(); ok {
		d := ticksToDuration(s.clock, wake-s.clock.Now())
		if d <= 0 {
			return // due already; the next sweep collects it
		}
		if d < max {
			max = d
		}
	}

	if !s.state.TryTransition(StateRunning, StateIdling) {
		return
	}
	// Re-check the mailbox after publishing Idling: a Post that loaded the
	// state before the transition has already pushed, and must not be slept
	// past.
	s.mail.mu.Lock()
	pending := s.mail.lenLocked() > 0
	s.mail.mu.Unlock()
	if !pending {
		s.clock.Idle(max)
	}
	s.state.TryTransition(StateIdling, StateRunning)
}

// finish runs on the exiting task's goroutine after its entry function
// returns: zombie transition, joiner wakeup, and the final jump away. The
// zombie's context is never resumed again.
func (s *Scheduler) finish(t *Task) {
	t.state = TaskZombie
	for {
		j := t.joiners.popFront()
		if j == nil {
			break
		}
		s.wake(j, resultNormal)
	}
	if s.metrics != nil {
		s.metrics.taskFinished()
	}
	if b := s.log.Debug(); b != nil {
		b.Uint64("scheduler", s.id).Uint64("task", t.id).Log("task exited")
	}

	// During Shutdown's unwind, control goes straight back to main.
	if s.state.Load() == StateTerminating {
		s.current = s.main
		s.main.baton <- struct{}{}
		return
	}

	next := s.sweep()
	if s.metrics != nil {
		s.metrics.switched()
	}
	next.baton <- struct{}{}
}

// reap retires a joined zombie from the registry.
func (s *Scheduler) reap(t *Task) {
	if t.reaped {
		return
	}
	t.reaped = true
	t.regLink.unlink()
}

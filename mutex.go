package cotask

// Mutex is a FIFO mutual-exclusion lock with direct handoff: Unlock with
// waiters present transfers ownership to the head waiter rather than
// clearing the owner and letting the wakeup race. A resumed Lock therefore
// returns already holding the lock; there is no retry loop, no lock
// stealing, and contenders acquire in arrival order.
//
// Storage is caller-owned: construct with Scheduler.NewMutex, no destructor
// needed beyond ensuring no task is waiting when the value is dropped.
//
// Invariants: an un-owned mutex has no waiters; a task never waits on a
// mutex it already owns (Lock reports ErrRecursiveLock instead).
type Mutex struct {
	s       *Scheduler
	owner   *Task
	waiters taskList
}

// NewMutex creates an unlocked mutex bound to the scheduler.
func (s *Scheduler) NewMutex() *Mutex {
	return &Mutex{s: s}
}

// Lock acquires the mutex, suspending while another task owns it. On
// return the running task is the owner.
func (m *Mutex) Lock() error {
	t, err := m.s.suspendable()
	if err != nil {
		return err
	}
	if m.owner == nil {
		m.owner = t
		return nil
	}
	if m.owner == t {
		return ErrRecursiveLock
	}

	m.waiters.pushBack(&t.runLink)
	t.state = TaskWaiting
	if m.s.dispatch() == resultKilled {
		panic(killPanic{})
	}
	// Direct handoff: Unlock made us the owner before waking us.
	return nil
}

// Unlock releases the mutex. With waiters present, ownership transfers to
// the head waiter, which becomes runnable; control is not yielded, the
// unlocker runs on. Unlocking a mutex the running task does not own fails
// with ErrNotOwner.
func (m *Mutex) Unlock() error {
	if m.s.state.IsTerminal() {
		return ErrSchedulerTerminated
	}
	if m.owner != m.s.current {
		return ErrNotOwner
	}

	next := m.waiters.popFront()
	if next == nil {
		m.owner = nil
		return nil
	}
	m.owner = next
	m.s.wake(next, resultNormal)
	return nil
}

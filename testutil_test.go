package cotask

import (
	"time"
)

// testClock is a manually advanced clock: Idle advances virtual time instead
// of sleeping, so timer-driven scenarios run instantly and deterministically.
// The scheduler caps each Idle at the next pending deadline, which means an
// idle sweep lands exactly on the deadline it is waiting for.
type testClock struct {
	now  Tick
	wake chan struct{}
}

func newTestClock() *testClock {
	return &testClock{wake: make(chan struct{}, 1)}
}

func (c *testClock) Now() Tick {
	return c.now
}

func (c *testClock) TicksPerSecond() int64 {
	return int64(time.Second)
}

func (c *testClock) Idle(max time.Duration) {
	select {
	case <-c.wake:
		return
	default:
	}
	c.now += Tick(max)
}

func (c *testClock) Wake() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// newTestScheduler builds a scheduler on a testClock, failing the test on
// error.
type fataler interface {
	Helper()
	Fatalf(format string, args ...any)
}

func newTestScheduler(t fataler, opts ...Option) (*Scheduler, *testClock) {
	t.Helper()
	clock := newTestClock()
	s, err := New(append([]Option{WithClock(clock)}, opts...)...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s, clock
}

// mustCreate spawns a task, failing the test on error.
func mustCreate(t fataler, s *Scheduler, fn func()) *Task {
	t.Helper()
	task, err := s.Create(fn)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return task
}

package cotask

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_FlagConsumedByWait(t *testing.T) {
	s, _ := newTestScheduler(t)
	defer s.Shutdown()

	e := s.NewEvent()
	e.Set()
	assert.True(t, e.flagged)

	// Set on a flagged event is idempotent.
	e.Set()
	assert.True(t, e.flagged)

	// Wait on a flagged event clears the flag and does not suspend.
	require.NoError(t, e.Wait())
	assert.False(t, e.flagged)

	// Non-idempotent: a second wait would block (verify via timeout).
	assert.ErrorIs(t, e.WaitTimeout(10*time.Millisecond), ErrTimedOut)
}

func TestEvent_SetWakesAllWaitersFIFO(t *testing.T) {
	s, _ := newTestScheduler(t)
	defer s.Shutdown()

	e := s.NewEvent()
	var order []int
	var tasks []*Task
	for i := 1; i <= 3; i++ {
		i := i
		tasks = append(tasks, mustCreate(t, s, func() {
			assert.NoError(t, e.Wait())
			order = append(order, i)
		}))
	}

	s.Yield() // park all three
	e.Set()
	for _, task := range tasks {
		require.NoError(t, s.Join(task))
	}

	assert.Equal(t, []int{1, 2, 3}, order)
	// Broadcast into waiters does not latch the flag.
	assert.False(t, e.flagged)
	assert.True(t, e.waiters.empty())
}

func TestEvent_WaitTimeoutExpires(t *testing.T) {
	s, clock := newTestScheduler(t)
	defer s.Shutdown()

	e := s.NewEvent()
	start := clock.now
	err := e.WaitTimeout(100 * time.Millisecond)
	assert.ErrorIs(t, err, ErrTimedOut)
	if elapsed := clock.now - start; elapsed < Tick(100*time.Millisecond) {
		t.Errorf("timed out after %v ticks, want >= 100ms worth", elapsed)
	}
	// The timed-out waiter was unlinked from the wait queue.
	assert.True(t, e.waiters.empty())
}

func TestEvent_WaitTimeoutZero(t *testing.T) {
	s, _ := newTestScheduler(t)
	defer s.Shutdown()

	e := s.NewEvent()
	assert.ErrorIs(t, e.WaitTimeout(0), ErrTimedOut)

	// A latched flag still wins over a zero timeout.
	e.Set()
	assert.NoError(t, e.WaitTimeout(0))
}

func TestEvent_SetBeatsTimeout(t *testing.T) {
	s, clock := newTestScheduler(t)
	defer s.Shutdown()

	e := s.NewEvent()
	var result error
	waited := Tick(-1)
	task := mustCreate(t, s, func() {
		start := clock.now
		result = e.WaitTimeout(time.Second)
		waited = clock.now - start
	})

	s.Yield() // park the waiter
	s.Sleep(10 * time.Millisecond)
	e.Set()
	require.NoError(t, s.Join(task))

	assert.NoError(t, result, "set arrived before the deadline")
	assert.Less(t, waited, Tick(time.Second), "woke at the set, not the deadline")

	// The loser (timer) was cancelled: no pending deadline is left behind
	// that could re-wake the waiter.
	assert.True(t, s.timers.empty())
}

func TestEvent_TimeoutThenSetLatches(t *testing.T) {
	s, _ := newTestScheduler(t)
	defer s.Shutdown()

	e := s.NewEvent()
	task := mustCreate(t, s, func() {
		assert.ErrorIs(t, e.WaitTimeout(10*time.Millisecond), ErrTimedOut)
	})
	require.NoError(t, s.Join(task))

	// The timed-out waiter is off the wait queue, so this Set latches.
	e.Set()
	assert.True(t, e.flagged)
}

func TestEvent_FlaggedInvariant(t *testing.T) {
	s, _ := newTestScheduler(t)
	defer s.Shutdown()

	e := s.NewEvent()
	mustCreate(t, s, func() { assert.NoError(t, e.Wait()) })
	s.Yield()

	// A flagged event has no waiters: setting with a waiter parked routes
	// the wakeup instead of latching.
	e.Set()
	assert.False(t, e.flagged)
	assert.True(t, e.waiters.empty())
}

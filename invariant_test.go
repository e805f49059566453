package cotask

import (
	"math/rand"
	"testing"
	"time"
)

// checkLinkInvariants verifies the structural rules the scheduler maintains
// by construction: a task is on at most one of {run queue, a wait queue} via
// runLink, optionally on the timer queue via timerLink, and never on two
// wait queues at once (impossible with a single node, but the list
// back-references must stay coherent).
func checkLinkInvariants(t *testing.T, s *Scheduler, tasks []*Task) {
	t.Helper()
	for _, task := range tasks {
		if task.runLink.list != nil {
			n := task.runLink.list.head
			found := false
			for ; n != nil; n = n.next {
				if n == &task.runLink {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("task %d runLink references a list that does not contain it", task.id)
			}
		}
		if task.timerLink.list != nil && task.timerLink.list != &s.timers.list {
			t.Fatalf("task %d timerLink is on a list other than the timer queue", task.id)
		}
		if task.state == TaskZombie && task.runLink.list != nil {
			t.Fatalf("zombie task %d is still on a queue", task.id)
		}
	}
}

// TestInvariants_RandomizedWorkload drives a swarm of tasks through random
// suspend operations on a deterministic clock and PRNG, checking structural
// invariants at every main-task step. Failures reproduce exactly.
func TestInvariants_RandomizedWorkload(t *testing.T) {
	for _, seed := range []int64{1, 2, 42, 1234, 99999} {
		seed := seed
		rng := rand.New(rand.NewSource(seed))
		s, _ := newTestScheduler(t)

		const numTasks = 8
		const numSteps = 60

		m := s.NewMutex()
		e := s.NewEvent()
		var tasks []*Task
		finished := 0

		for i := 0; i < numTasks; i++ {
			task, err := s.Create(func() {
				for step := 0; step < numSteps; step++ {
					switch rng.Intn(5) {
					case 0:
						s.Yield()
					case 1:
						s.Sleep(time.Duration(1+rng.Intn(20)) * time.Millisecond)
					case 2:
						if err := m.Lock(); err == nil {
							if rng.Intn(2) == 0 {
								s.Yield()
							}
							m.Unlock()
						}
					case 3:
						e.WaitTimeout(time.Duration(1+rng.Intn(10)) * time.Millisecond)
					case 4:
						e.Set()
					}
				}
				finished++
			})
			if err != nil {
				t.Fatalf("seed %d: Create failed: %v", seed, err)
			}
			tasks = append(tasks, task)
		}

		// Drive from the main task, validating invariants between slices.
		for finished < numTasks {
			if rng.Intn(3) == 0 {
				e.Set() // occasionally release a stuck waiter early
			}
			if err := s.Sleep(time.Duration(1+rng.Intn(5)) * time.Millisecond); err != nil {
				t.Fatalf("seed %d: Sleep failed: %v", seed, err)
			}
			checkLinkInvariants(t, s, tasks)

			// A flagged event must have no waiters.
			if e.flagged && !e.waiters.empty() {
				t.Fatalf("seed %d: flagged event has waiters", seed)
			}
			// An un-owned mutex must have no waiters.
			if m.owner == nil && !m.waiters.empty() {
				t.Fatalf("seed %d: un-owned mutex has waiters", seed)
			}
		}

		for _, task := range tasks {
			if err := s.Join(task); err != nil {
				t.Fatalf("seed %d: Join failed: %v", seed, err)
			}
			// A joiner set is non-empty only for non-zombie targets.
			if !task.joiners.empty() {
				t.Fatalf("seed %d: joined task still has joiners", seed)
			}
		}
		if err := s.Shutdown(); err != nil {
			t.Fatalf("seed %d: Shutdown failed: %v", seed, err)
		}
	}
}

// TestInvariants_TimerAccuracy checks that a sleeper never resumes before
// its deadline, across a spread of durations.
func TestInvariants_TimerAccuracy(t *testing.T) {
	s, clock := newTestScheduler(t)
	defer s.Shutdown()

	rng := rand.New(rand.NewSource(7))
	type record struct {
		start, woke Tick
		d           time.Duration
	}
	var records []record
	var tasks []*Task

	for i := 0; i < 20; i++ {
		d := time.Duration(1+rng.Intn(500)) * time.Millisecond
		idx := len(records)
		records = append(records, record{d: d})
		tasks = append(tasks, mustCreate(t, s, func() {
			records[idx].start = clock.now
			s.Sleep(d)
			records[idx].woke = clock.now
		}))
	}
	for _, task := range tasks {
		if err := s.Join(task); err != nil {
			t.Fatalf("Join failed: %v", err)
		}
	}

	for i, r := range records {
		if min := r.start + durationToTicks(clock, r.d); r.woke < min {
			t.Errorf("sleeper %d woke at %v, before deadline %v", i, r.woke, min)
		}
	}
}

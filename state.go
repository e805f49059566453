package cotask

import (
	"sync/atomic"
)

// SchedState represents the lifecycle state of a scheduler.
//
// State Machine:
//
//	StateRunning (0) → StateIdling (1)      [dispatch sweep found nothing runnable, via CAS]
//	StateIdling (1) → StateRunning (0)      [woken from Clock.Idle, via CAS]
//	StateRunning (0) → StateTerminating (2) [Shutdown()]
//	StateTerminating (2) → StateTerminated (3) [teardown complete]
//	StateTerminated (3) → (terminal)
//
// A scheduler is born Running: New designates the calling goroutine as the
// main task, which is executing by definition.
//
// State Transition Rules:
//   - Use TryTransition (CAS) for the reversible Running/Idling pair.
//   - Use Store only for the irreversible terminal states.
type SchedState uint32

const (
	// StateRunning indicates a task is executing, or a dispatch sweep is in
	// progress.
	StateRunning SchedState = iota
	// StateIdling indicates the scheduler is blocked in Clock.Idle with
	// nothing runnable.
	StateIdling
	// StateTerminating indicates Shutdown has begun unwinding tasks.
	StateTerminating
	// StateTerminated indicates the scheduler is fully shut down.
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s SchedState) String() string {
	switch s {
	case StateRunning:
		return "Running"
	case StateIdling:
		return "Idling"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// schedState is a lock-free state cell with cache-line padding, so that
// foreign-goroutine readers (Post, Wake) do not contend with the scheduler's
// hot fields.
type schedState struct {
	_ [64]byte //nolint:unused // cache line padding
	v atomic.Uint32
	_ [60]byte //nolint:unused // pad to complete the cache line
}

// Load returns the current state atomically.
func (s *schedState) Load() SchedState {
	return SchedState(s.v.Load())
}

// Store atomically stores a new state. Reserved for irreversible states.
func (s *schedState) Store(state SchedState) {
	s.v.Store(uint32(state))
}

// TryTransition attempts to atomically transition from one state to another.
// Returns true if the transition was successful.
func (s *schedState) TryTransition(from, to SchedState) bool {
	return s.v.CompareAndSwap(uint32(from), uint32(to))
}

// IsTerminal returns true if the current state is terminal.
func (s *schedState) IsTerminal() bool {
	return s.Load() == StateTerminated
}

package cotask

import (
	"testing"
)

func TestSchedState_Transitions(t *testing.T) {
	var s schedState

	if s.Load() != StateRunning {
		t.Fatalf("initial state = %v, want Running", s.Load())
	}
	if !s.TryTransition(StateRunning, StateIdling) {
		t.Fatal("Running → Idling should succeed")
	}
	if s.TryTransition(StateRunning, StateTerminating) {
		t.Fatal("CAS from a stale state should fail")
	}
	if !s.TryTransition(StateIdling, StateRunning) {
		t.Fatal("Idling → Running should succeed")
	}
	if !s.TryTransition(StateRunning, StateTerminating) {
		t.Fatal("Running → Terminating should succeed")
	}
	s.Store(StateTerminated)
	if !s.IsTerminal() {
		t.Error("Terminated should be terminal")
	}
}

func TestSchedState_String(t *testing.T) {
	cases := map[SchedState]string{
		StateRunning:     "Running",
		StateIdling:      "Idling",
		StateTerminating: "Terminating",
		StateTerminated:  "Terminated",
		SchedState(99):   "Unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

func TestTaskState_String(t *testing.T) {
	cases := map[TaskState]string{
		TaskRunnable:  "Runnable",
		TaskWaiting:   "Waiting",
		TaskZombie:    "Zombie",
		TaskState(99): "Unknown",
	}
	for state, want := range cases {
		if got := state.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", state, got, want)
		}
	}
}

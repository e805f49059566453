package cotask

import (
	"testing"
	"time"
)

func TestOptions_NilOptionSkipped(t *testing.T) {
	s, err := New(nil, WithClock(newTestClock()), nil)
	if err != nil {
		t.Fatalf("New with nil options failed: %v", err)
	}
	s.Shutdown()
}

func TestOptions_NilClockRejected(t *testing.T) {
	if _, err := New(WithClock(nil)); err == nil {
		t.Error("New(WithClock(nil)) should fail")
	}
}

func TestOptions_IdleCapValidated(t *testing.T) {
	if _, err := New(WithIdleCap(0)); err == nil {
		t.Error("New(WithIdleCap(0)) should fail")
	}
	if _, err := New(WithIdleCap(-time.Second)); err == nil {
		t.Error("New(WithIdleCap(<0)) should fail")
	}

	s, err := New(WithClock(newTestClock()), WithIdleCap(time.Millisecond))
	if err != nil {
		t.Fatalf("New(WithIdleCap(1ms)) failed: %v", err)
	}
	s.Shutdown()
}

func TestOptions_WithLoggerNilDisabled(t *testing.T) {
	s, err := New(WithClock(newTestClock()), WithLogger(nil))
	if err != nil {
		t.Fatalf("New(WithLogger(nil)) failed: %v", err)
	}
	defer s.Shutdown()

	// Exercise a logging path with the nil logger.
	task := mustCreate(t, s, func() {})
	if err := s.Join(task); err != nil {
		t.Fatalf("Join failed: %v", err)
	}
}

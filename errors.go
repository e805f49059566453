package cotask

import (
	"errors"
)

// Standard errors.
var (
	// ErrSchedulerTerminated is returned when operations are attempted on a
	// scheduler that has been shut down (or is in the middle of shutting down).
	ErrSchedulerTerminated = errors.New("cotask: scheduler has been terminated")

	// ErrTimedOut is returned by bounded waits when the deadline fires before
	// the awaited condition.
	ErrTimedOut = errors.New("cotask: wait timed out")

	// ErrNotOwner is returned by Mutex.Unlock when the running task does not
	// own the mutex.
	ErrNotOwner = errors.New("cotask: mutex is not owned by the running task")

	// ErrRecursiveLock is returned by Mutex.Lock when the running task already
	// owns the mutex. The runtime has no recursive mutexes; a second Lock by
	// the owner could never be satisfied.
	ErrRecursiveLock = errors.New("cotask: mutex is already owned by the running task")

	// ErrNilTask is returned when a nil task handle is passed to Join.
	ErrNilTask = errors.New("cotask: nil task handle")

	// ErrJoinSelf is returned when a task attempts to join itself.
	ErrJoinSelf = errors.New("cotask: task cannot join itself")

	// ErrNilFunc is returned by Create and Post when given a nil function.
	ErrNilFunc = errors.New("cotask: nil function")

	// ErrNotMainTask is returned by Shutdown when called from a task other
	// than the main task.
	ErrNotMainTask = errors.New("cotask: shutdown must be called from the main task")

	// ErrPostedSuspend is returned when a function passed to Post attempts a
	// suspending operation. Posted functions run between dispatch sweeps and
	// have no task context to suspend.
	ErrPostedSuspend = errors.New("cotask: posted functions must not suspend")
)

// killPanic is the sentinel panic value used to unwind a task during
// Shutdown. It is recovered by the task trampoline and never escapes to
// user code above the entry function.
type killPanic struct{}

// Package cotask provides a single-threaded cooperative multitasking runtime
// for Go, featuring stackful tasks, a sorted timer queue, FIFO direct-handoff
// mutexes, level-triggered events, and a thread-safe mailbox for integrating
// external event sources.
//
// # Architecture
//
// The runtime is built around a [Scheduler] that multiplexes many tasks over
// a single execution context. A task is an ordinary function that may call
// suspending operations ([Scheduler.Yield], [Scheduler.Sleep],
// [Scheduler.Join], [Mutex.Lock], [Event.Wait], [Event.WaitTimeout]); between
// suspension points a task runs without preemption. Each task is backed by a
// goroutine that is parked on a per-task baton channel; the scheduler unparks
// at most one task goroutine at any instant, so no two tasks ever execute
// simultaneously and no locking is needed on the scheduler's own structures.
//
// Tasks made runnable by the same event resume in FIFO order. A yielding task
// is placed behind all currently runnable peers. Timers with equal deadlines
// fire in insertion order.
//
// # Execution Model
//
// The goroutine that calls [New] becomes the main task. There is no separate
// Run method: dispatch happens inline inside whichever task is suspending.
// When a task suspends, the scheduler drains the mailbox, moves expired
// timers to the run queue, and hands the baton to the run-queue head; when
// nothing is runnable it idles via [Clock.Idle] until the next timer deadline
// or an asynchronous wakeup.
//
// # Thread Safety
//
// The runtime is deliberately not thread-safe: all task-facing operations
// must be invoked from the scheduler's execution context (the main task or a
// task it created). Exactly two operations are safe from any goroutine or OS
// thread: [Scheduler.Post], which marshals a function onto the scheduler's
// context (drained before each dispatch sweep), and [Scheduler.Wake], which
// interrupts an idle scheduler. Integrations that receive completions on
// foreign goroutines must funnel them through Post.
//
// # Shutdown
//
// [Scheduler.Shutdown], callable only from the main task, unwinds every other
// live task: each is resumed with a kill indication, its suspending operation
// unwinds the task, and deferred functions run as usual. After Shutdown
// completes, every operation returns [ErrSchedulerTerminated]. There is no
// generic cross-task cancellation: a task only ends by returning from its
// entry function, or at teardown.
//
// # Usage
//
//	s, err := cotask.New()
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer s.Shutdown()
//
//	done := s.NewEvent()
//	t, _ := s.Create(func() {
//		s.Sleep(100 * time.Millisecond)
//		done.Set()
//	})
//	done.Wait()
//	s.Join(t)
package cotask

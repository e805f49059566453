//go:build linux || darwin

package cotask

import (
	"sync"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// FDWaker is a file-descriptor-backed idle waker: an eventfd on Linux, a
// self-pipe on Darwin. It exists for hosts that already run a poll loop of
// their own; such integrations can add ReadFD to their poll set and share
// one wakeup channel with the scheduler.
//
// Wake is safe from any goroutine (and, on bare write(2), from signal
// handlers). Everything else runs on the scheduler's execution context.
type FDWaker struct {
	closeOnce sync.Once
	readFD    int
	writeFD   int
	closeErr  error
}

// NewFDWaker creates a file-descriptor-backed waker.
func NewFDWaker() (*FDWaker, error) {
	r, w, err := newWakeFD()
	if err != nil {
		return nil, err
	}
	return &FDWaker{readFD: r, writeFD: w}, nil
}

// ReadFD returns the readable descriptor, for registration with an external
// poll set. When it polls readable, call Drain before the next wait.
func (x *FDWaker) ReadFD() int {
	return x.readFD
}

// Wake sets the latch by writing to the descriptor. Write errors are
// ignored: EAGAIN means a wakeup is already pending, and EBADF/EPIPE are
// expected once Close has run during shutdown.
func (x *FDWaker) Wake() {
	var one uint64 = 1
	buf := (*[8]byte)(unsafe.Pointer(&one))[:]
	_, _ = unix.Write(x.writeFD, buf)
}

// Drain consumes all pending wakeups so the descriptor stops polling
// readable.
func (x *FDWaker) Drain() {
	var buf [8]byte
	for {
		if _, err := unix.Read(x.readFD, buf[:]); err != nil {
			return
		}
	}
}

// idleWait blocks in poll(2) on the read end for at most max, then drains.
func (x *FDWaker) idleWait(max time.Duration) {
	if max <= 0 {
		x.Drain()
		return
	}

	ms := int(max.Milliseconds())
	// Ceiling rounding: if 0 < max < 1ms, round up to 1ms.
	if ms == 0 {
		ms = 1
	}

	fds := []unix.PollFd{{Fd: int32(x.readFD), Events: unix.POLLIN}}
	_, _ = unix.Poll(fds, ms)
	x.Drain()
}

// Close closes the descriptor pair. Idempotent.
func (x *FDWaker) Close() error {
	x.closeOnce.Do(func() {
		x.closeErr = unix.Close(x.readFD)
		if x.writeFD != x.readFD {
			if err := unix.Close(x.writeFD); err != nil && x.closeErr == nil {
				x.closeErr = err
			}
		}
	})
	return x.closeErr
}

// WithFDWaker configures the default clock to idle on a file-descriptor
// waker instead of a channel. Use this when an external poller needs to
// share the scheduler's wakeup channel; otherwise the channel waker is both
// simpler and faster. The scheduler closes the waker during Shutdown (Close
// is idempotent, so closing it again afterwards is harmless). Ignored when
// combined with WithClock.
func WithFDWaker(w *FDWaker) Option {
	return &optionImpl{func(opts *options) error {
		opts.waker = w
		return nil
	}}
}

//go:build linux

package cotask

import (
	"golang.org/x/sys/unix"
)

// newWakeFD creates an eventfd for wake-up notifications (Linux).
// Returns the single eventfd as both the read and write end.
func newWakeFD() (readFD, writeFD int, err error) {
	fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
	return fd, fd, err
}

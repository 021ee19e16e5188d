//go:build linux || darwin || freebsd || netbsd || openbsd

package device

import (
	"errors"

	"golang.org/x/sys/unix"
)

// isWouldBlock reports whether err is the "non-blocking write would
// block" condition spec §7 calls out as expected-under-RT-pressure
// success, not a transport error.
func isWouldBlock(err error) bool {
	return errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK)
}

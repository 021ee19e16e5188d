//go:build linux || darwin || freebsd || netbsd || openbsd

package device

import "golang.org/x/sys/unix"

func wouldBlockErrForTest() error { return unix.EAGAIN }

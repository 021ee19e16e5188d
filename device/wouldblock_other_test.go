//go:build !(linux || darwin || freebsd || netbsd || openbsd)

package device

import "errors"

func wouldBlockErrForTest() error { return errors.New("eagain") }

// Copyright 2016 by Thorsten von Eicken, see LICENSE file

//go:build !linux

package thread

import (
	"errors"
	"runtime"
)

const DefaultPriority = 10

// Realtime locks the calling goroutine to its kernel thread. Realtime scheduling is only
// supported on linux, elsewhere an error is returned.
func Realtime(prio int) error {
	runtime.LockOSThread()
	return errors.New("thread: realtime scheduling not supported on " + runtime.GOOS)
}

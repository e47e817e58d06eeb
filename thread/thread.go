// Copyright 2016 by Thorsten von Eicken, see LICENSE file

//go:build linux

// Package thread gives the calling goroutine a kernel thread of its own with realtime
// scheduling, so that busy-polling the radio is not preempted by the rest of the process.
package thread

import (
	"fmt"
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Scheduling policies accepted by Realtime.
const (
	FIFO = unix.SCHED_FIFO
	RR   = unix.SCHED_RR
)

// DefaultPriority is somewhere in the lower middle of the realtime range.
const DefaultPriority = 10

type schedParam struct {
	priority int32
}

// Realtime locks the calling goroutine to its own kernel thread and switches that thread to the
// round-robin realtime policy at the given priority (1..99). The goroutine stays locked even if
// the policy change fails, which usually means the process lacks CAP_SYS_NICE.
func Realtime(prio int) error {
	if prio < 1 || prio > 99 {
		return fmt.Errorf("thread: realtime priority %d out of range", prio)
	}
	runtime.LockOSThread()
	tid := unix.Gettid()
	param := schedParam{priority: int32(prio)}
	_, _, errno := unix.RawSyscall(unix.SYS_SCHED_SETSCHEDULER, uintptr(tid), uintptr(RR),
		uintptr(unsafe.Pointer(&param)))
	if errno != 0 {
		return fmt.Errorf("thread: sched_setscheduler: %w", errno)
	}
	return nil
}

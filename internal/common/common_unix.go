// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package common

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// TimeoutToTimeSpec converts a relative timeout into a timespec.
// Negative values mean 'no timeout' and result in nil.
func TimeoutToTimeSpec(timeout time.Duration) *unix.Timespec {
	if timeout >= 0 {
		ts := unix.NsecToTimespec(timeout.Nanoseconds())
		return &ts
	}
	return nil
}

// IsInterruptedSyscallErr returns true, if the syscall was interrupted by a signal.
func IsInterruptedSyscallErr(err error) bool {
	return SyscallErrHasCode(err, syscall.EINTR)
}

// IsTimeoutErr returns true, if a blocking syscall has failed due to its timeout.
func IsTimeoutErr(err error) bool {
	return SyscallErrHasCode(err, syscall.ETIMEDOUT)
}

// UninterruptedSyscall runs a function in a loop.
// If an error, returned by the function is EINTR, the function is run again.
// Otherwise, it returns the error.
func UninterruptedSyscall(f func() error) error {
	for {
		err := f()
		if !IsInterruptedSyscallErr(err) {
			return err
		}
	}
}

// UninterruptedSyscallTimeout runs a blocking function in a loop, while it returns EINTR.
// Each new attempt gets only the part of the timeout, which is left since the first call.
// Negative timeout means 'wait forever'.
func UninterruptedSyscallTimeout(f func(time.Duration) error, timeout time.Duration) error {
	if timeout < 0 {
		return UninterruptedSyscall(func() error { return f(timeout) })
	}
	deadline := time.Now().Add(timeout)
	for {
		err := f(timeout)
		if !IsInterruptedSyscallErr(err) {
			return err
		}
		if timeout = time.Until(deadline); timeout <= 0 {
			return syscall.ETIMEDOUT
		}
	}
}

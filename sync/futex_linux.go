// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package sync

import (
	"math"
	"os"
	"time"
	"unsafe"

	"github.com/nxgtw/go-shmlock/internal/common"

	"golang.org/x/sys/unix"
)

const (
	cFUTEX_WAIT = 0
	cFUTEX_WAKE = 1

	// FUTEX_PRIVATE_FLAG must not be used for objects in shared memory.
	FUTEX_PRIVATE_FLAG = 128

	cFutexWakeAll = math.MaxInt32
)

// FutexWait checks if the the value equals futex's value.
// If it doesn't, FutexWait returns immediately with no error.
// Otherwise, it waits for the Wake call on the futex for not longer, than timeout.
// Negative timeout means 'wait forever'. On timeout, an error, for which
// common.IsTimeoutErr is true, is returned.
func FutexWait(addr unsafe.Pointer, value uint32, timeout time.Duration, flags int32) error {
	err := common.UninterruptedSyscallTimeout(func(left time.Duration) error {
		_, err := futex(addr, cFUTEX_WAIT|flags, value, unsafe.Pointer(common.TimeoutToTimeSpec(left)), nil, 0)
		return err
	}, timeout)
	if err != nil && common.SyscallErrHasCode(err, unix.EAGAIN) {
		return nil
	}
	return err
}

// FutexWake wakes count threads waiting on the futex.
// Returns the number of woken threads.
func FutexWake(addr unsafe.Pointer, count uint32, flags int32) (int, error) {
	var woken int32
	err := common.UninterruptedSyscall(func() error {
		var err error
		woken, err = futex(addr, cFUTEX_WAKE|flags, count, nil, nil, 0)
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(woken), nil
}

func futex(addr unsafe.Pointer, op int32, val uint32, ts, addr2 unsafe.Pointer, val3 uint32) (int32, error) {
	r1, _, err := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(addr),
		uintptr(op),
		uintptr(val),
		uintptr(ts),
		uintptr(addr2),
		uintptr(val3))
	common.Use(addr)
	common.Use(ts)
	common.Use(addr2)
	if err != 0 {
		return 0, os.NewSyscallError("FUTEX", err)
	}
	return int32(r1), nil
}

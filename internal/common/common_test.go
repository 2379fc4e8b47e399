// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package common

import (
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSyscallErrHasCode(t *testing.T) {
	a := assert.New(t)
	a.True(SyscallErrHasCode(os.NewSyscallError("FUTEX", syscall.EINTR), syscall.EINTR))
	a.True(SyscallErrHasCode(syscall.ETIMEDOUT, syscall.ETIMEDOUT))
	a.False(SyscallErrHasCode(os.NewSyscallError("FUTEX", syscall.EAGAIN), syscall.EINTR))
	a.False(SyscallErrHasCode(os.ErrNotExist, syscall.ENOENT))
	a.False(SyscallErrHasCode(nil, syscall.EINTR))
}

func TestTimeoutToTimeSpec(t *testing.T) {
	a := assert.New(t)
	a.Nil(TimeoutToTimeSpec(-1))
	ts := TimeoutToTimeSpec(1500 * time.Millisecond)
	if a.NotNil(ts) {
		a.EqualValues(1, ts.Sec)
		a.EqualValues(500000000, ts.Nsec)
	}
}

func TestUninterruptedSyscallRetriesOnEINTR(t *testing.T) {
	a := assert.New(t)
	calls := 0
	err := UninterruptedSyscall(func() error {
		calls++
		if calls < 3 {
			return os.NewSyscallError("FUTEX", syscall.EINTR)
		}
		return nil
	})
	a.NoError(err)
	a.Equal(3, calls)
}

func TestUninterruptedSyscallTimeoutShrinks(t *testing.T) {
	a := assert.New(t)
	var timeouts []time.Duration
	err := UninterruptedSyscallTimeout(func(d time.Duration) error {
		timeouts = append(timeouts, d)
		if len(timeouts) < 2 {
			time.Sleep(20 * time.Millisecond)
			return syscall.EINTR
		}
		return nil
	}, time.Second)
	a.NoError(err)
	if a.Len(timeouts, 2) {
		a.True(timeouts[1] < timeouts[0])
	}
}

func TestByteSliceRoundTrip(t *testing.T) {
	a := assert.New(t)
	data := []byte{1, 2, 3, 4}
	ptr := ByteSliceData(data)
	view := ByteSliceFromUnsafePointer(ptr, 2, 4)
	a.Equal([]byte{1, 2}, view)
	view[0] = 9
	a.Equal(byte(9), data[0])
}

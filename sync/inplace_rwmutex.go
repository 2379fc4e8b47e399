// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package sync

import (
	"runtime"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/nxgtw/go-shmlock/internal/common"

	"github.com/pkg/errors"
)

const (
	// RWMutexSize is the size of a memory cell, occupied by an InplaceRWMutex.
	// Only the first 16 bytes are used, the rest is reserved.
	RWMutexSize = 56

	rwmStateOffset   = 0
	rwmSeqOffset     = 4
	rwmWaitersOffset = 8
	rwmMagicOffset   = 12

	rwmMagic       = uint32(0x4B4C5752) // "RWLK"
	rwmWriterHeld  = int32(-1)
	rwmUnlocked    = int32(0)
	cRWMSpinCount  = 64
	cRWMMaxReaders = int32(1<<31 - 1)
)

// InplaceRWMutex is a reader/writer lock, which lives in a 56-byte cell of shared memory.
// The cell has the following layout:
//	[0:4)   state   - -1 if a writer holds the lock, or the number of readers.
//	[4:8)   seq     - futex word, changed on every unlock.
//	[8:12)  waiters - number of threads sleeping on seq.
//	[12:16) magic   - set by Init, cleared by Destroy.
// The lock does not remember its owners, so it can be unlocked by any process.
// It does not guarantee fairness: a stream of readers may delay a writer.
type InplaceRWMutex struct {
	ptr unsafe.Pointer
}

// NewInplaceRWMutex creates a view of a rwmutex at the given memory location.
// The location must be 4-byte aligned and at least RWMutexSize bytes long.
// It does not modify the memory. The creator of the memory must call Init.
func NewInplaceRWMutex(ptr unsafe.Pointer) *InplaceRWMutex {
	return &InplaceRWMutex{ptr: ptr}
}

// Init writes initial value into mutex's memory location.
// It must be called exactly once, before any other process uses the lock.
func (rw *InplaceRWMutex) Init() {
	cell := common.ByteSliceFromUnsafePointer(rw.ptr, RWMutexSize, RWMutexSize)
	for i := range cell {
		cell[i] = 0
	}
	atomic.StoreUint32(rw.magic(), rwmMagic)
}

// Lock locks the mutex exclusively, waiting as long as needed.
func (rw *InplaceRWMutex) Lock() error {
	return rw.LockTimeout(-1)
}

// LockTimeout locks the mutex exclusively, waiting for not more, than timeout.
// Negative timeout means 'wait forever'. Returns ErrTimeout if the time is over.
func (rw *InplaceRWMutex) LockTimeout(timeout time.Duration) error {
	return rw.acquire(rw.TryLock, timeout)
}

// TryLock makes one attempt to lock the mutex exclusively.
func (rw *InplaceRWMutex) TryLock() bool {
	return atomic.CompareAndSwapInt32(rw.state(), rwmUnlocked, rwmWriterHeld)
}

// RLock locks the mutex for reading, waiting as long as needed.
func (rw *InplaceRWMutex) RLock() error {
	return rw.RLockTimeout(-1)
}

// RLockTimeout locks the mutex for reading, waiting for not more, than timeout.
// Negative timeout means 'wait forever'. Returns ErrTimeout if the time is over.
func (rw *InplaceRWMutex) RLockTimeout(timeout time.Duration) error {
	return rw.acquire(rw.TryRLock, timeout)
}

// TryRLock makes one attempt to lock the mutex for reading.
func (rw *InplaceRWMutex) TryRLock() bool {
	for {
		old := atomic.LoadInt32(rw.state())
		if old < 0 || old == cRWMMaxReaders {
			return false
		}
		if atomic.CompareAndSwapInt32(rw.state(), old, old+1) {
			return true
		}
	}
}

// Unlock releases the mutex in whichever mode it is held.
// If it is held by readers, the number of readers is decreased by one.
func (rw *InplaceRWMutex) Unlock() error {
	if err := rw.check(); err != nil {
		return err
	}
	var new int32
	for {
		old := atomic.LoadInt32(rw.state())
		switch {
		case old == rwmWriterHeld:
			new = rwmUnlocked
		case old > 0:
			new = old - 1
		default:
			return ErrNotLocked
		}
		if atomic.CompareAndSwapInt32(rw.state(), old, new) {
			break
		}
	}
	if new == rwmUnlocked {
		return rw.wakeAll()
	}
	return nil
}

// Reset forcibly unlocks the mutex, regardless of its current state, and wakes all waiters.
// It is used to reclaim locks of dead processes.
func (rw *InplaceRWMutex) Reset() error {
	if err := rw.check(); err != nil {
		return err
	}
	atomic.StoreInt32(rw.state(), rwmUnlocked)
	return rw.wakeAll()
}

// Destroy marks the mutex as unusable. It fails with ErrBusy, if the mutex is held or waited for.
func (rw *InplaceRWMutex) Destroy() error {
	if err := rw.check(); err != nil {
		return err
	}
	if atomic.LoadInt32(rw.state()) != rwmUnlocked || atomic.LoadUint32(rw.waiters()) != 0 {
		return ErrBusy
	}
	atomic.StoreUint32(rw.magic(), 0)
	return rw.wakeAll()
}

// State returns the number of readers holding the mutex, and whether it is held by a writer.
func (rw *InplaceRWMutex) State() (readers int, writer bool) {
	state := atomic.LoadInt32(rw.state())
	if state == rwmWriterHeld {
		return 0, true
	}
	return int(state), false
}

// IsInitialized returns true, if Init was called and Destroy was not.
func (rw *InplaceRWMutex) IsInitialized() bool {
	return rw.check() == nil
}

func (rw *InplaceRWMutex) acquire(try func() bool, timeout time.Duration) error {
	if err := rw.check(); err != nil {
		return err
	}
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for spin := 0; ; spin++ {
		if try() {
			return nil
		}
		if spin < cRWMSpinCount {
			runtime.Gosched()
			continue
		}
		// seq must be read before the last attempt, otherwise an unlock between
		// the attempt and the wait will be missed.
		seq := atomic.LoadUint32(rw.seq())
		if try() {
			return nil
		}
		wait := time.Duration(-1)
		if timeout >= 0 {
			if wait = time.Until(deadline); wait <= 0 {
				return ErrTimeout
			}
		}
		atomic.AddUint32(rw.waiters(), 1)
		err := FutexWait(unsafe.Pointer(rw.seq()), seq, wait, 0)
		atomic.AddUint32(rw.waiters(), ^uint32(0))
		if err != nil && !common.IsTimeoutErr(err) {
			return errors.Wrap(err, "futex wait failed")
		}
		if err := rw.check(); err != nil {
			return err
		}
	}
}

func (rw *InplaceRWMutex) wakeAll() error {
	atomic.AddUint32(rw.seq(), 1)
	if atomic.LoadUint32(rw.waiters()) == 0 {
		return nil
	}
	if _, err := FutexWake(unsafe.Pointer(rw.seq()), cFutexWakeAll, 0); err != nil {
		return errors.Wrap(err, "futex wake failed")
	}
	return nil
}

func (rw *InplaceRWMutex) check() error {
	if atomic.LoadUint32(rw.magic()) != rwmMagic {
		return ErrNotInitialized
	}
	return nil
}

func (rw *InplaceRWMutex) state() *int32 {
	return (*int32)(unsafe.Add(rw.ptr, rwmStateOffset))
}

func (rw *InplaceRWMutex) seq() *uint32 {
	return (*uint32)(unsafe.Add(rw.ptr, rwmSeqOffset))
}

func (rw *InplaceRWMutex) waiters() *uint32 {
	return (*uint32)(unsafe.Add(rw.ptr, rwmWaitersOffset))
}

func (rw *InplaceRWMutex) magic() *uint32 {
	return (*uint32)(unsafe.Add(rw.ptr, rwmMagicOffset))
}

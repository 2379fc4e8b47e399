// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package rangelock

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
)

var errLockLost = errors.New("lock was reclaimed")

// heldLock is the state of a lock acquired by this process.
// It is shared by a LockHandle, its heartbeat goroutine and the block.
// It must not reference the handle, otherwise the handle would never become unreachable.
type heldLock struct {
	slot     int
	gen      uint32
	kind     LockType
	released atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// LockHandle represents a lock on a byte range. It is returned by AcquireLock.
// While the handle is held, its timestamp is refreshed every Config.HeartbeatInterval.
// The lock must be released with Release. If a handle becomes unreachable,
// the lock is released by the garbage collector, but this should not be relied on.
type LockHandle struct {
	block  *Block
	lock   *heldLock
	offset uint64
	length uint64
}

func (b *Block) newHandle(l *heldLock, offset, length uint64) *LockHandle {
	l.stop = make(chan struct{})
	l.done = make(chan struct{})
	b.held.Store(l.slot, l)
	go b.heartbeat(l)
	h := &LockHandle{block: b, lock: l, offset: offset, length: length}
	runtime.SetFinalizer(h, func(h *LockHandle) {
		if !h.lock.released.Load() {
			plog.Warningf("%s: lock in slot %d was not released", h.block.segName, h.lock.slot)
			go h.lock.release(h.block)
		}
	})
	return h
}

// SlotID returns the id of the lock table slot occupied by the lock.
func (h *LockHandle) SlotID() int {
	return h.lock.slot
}

// Offset returns the start of the locked range.
func (h *LockHandle) Offset() uint64 {
	return h.offset
}

// Length returns the length of the locked range.
func (h *LockHandle) Length() uint64 {
	return h.length
}

// Type returns the lock mode.
func (h *LockHandle) Type() LockType {
	return h.lock.kind
}

// Released returns true, if Release was called.
func (h *LockHandle) Released() bool {
	return h.lock.released.Load()
}

// Release stops the heartbeat and releases the lock.
// It is safe to call Release multiple times.
func (h *LockHandle) Release() error {
	runtime.SetFinalizer(h, nil)
	return h.lock.release(h.block)
}

func (b *Block) heartbeat(l *heldLock) {
	defer close(l.done)
	ticker := time.NewTicker(b.cfg.HeartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			err := b.refresh(l.slot, l.gen)
			if err == errLockLost {
				plog.Warningf("%s: lock in slot %d was reclaimed by another process", b.segName, l.slot)
				return
			}
			if err != nil {
				plog.Warningf("%s: heartbeat of slot %d failed: %v", b.segName, l.slot, err)
			}
		}
	}
}

func (l *heldLock) stopHeartbeat() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
	<-l.done
}

func (l *heldLock) release(b *Block) error {
	if !l.released.CompareAndSwap(false, true) {
		return nil
	}
	l.stopHeartbeat()
	err := b.releaseSlot(l.slot, l.gen)
	b.forget(l)
	if err == ErrClosed {
		// Close has released it.
		return nil
	}
	return err
}

// releaseLocked releases the lock with both the control lock and the block mutex held.
func (l *heldLock) releaseLocked(b *Block) error {
	l.released.Store(true)
	l.stopHeartbeat()
	err := b.releaseSlotLocked(l.slot, l.gen)
	b.forget(l)
	return err
}

// forget removes l from the block's registry, if the slot was not taken by another lock.
func (b *Block) forget(l *heldLock) {
	b.held.Compute(l.slot, func(old *heldLock, loaded bool) (*heldLock, bool) {
		return old, !loaded || old == l
	})
}

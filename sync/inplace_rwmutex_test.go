// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package sync

import (
	"os"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/nxgtw/go-shmlock/internal/common"
	"github.com/nxgtw/go-shmlock/mmf"
	"github.com/nxgtw/go-shmlock/shm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRWMutexObj = "go-shmlock.rwmutex-test"

func newTestRWMutex() *InplaceRWMutex {
	cell := make([]uint64, RWMutexSize/8)
	rw := NewInplaceRWMutex(unsafe.Pointer(&cell[0]))
	rw.Init()
	return rw
}

func TestRWMutexNotInitialized(t *testing.T) {
	a := assert.New(t)
	cell := make([]uint64, RWMutexSize/8)
	rw := NewInplaceRWMutex(unsafe.Pointer(&cell[0]))
	a.False(rw.IsInitialized())
	a.Equal(ErrNotInitialized, rw.LockTimeout(0))
	a.Equal(ErrNotInitialized, rw.RLockTimeout(0))
	a.Equal(ErrNotInitialized, rw.Unlock())
	a.Equal(ErrNotInitialized, rw.Destroy())
}

func TestRWMutexLockUnlock(t *testing.T) {
	a := assert.New(t)
	rw := newTestRWMutex()
	a.NoError(rw.Lock())
	readers, writer := rw.State()
	a.Equal(0, readers)
	a.True(writer)
	a.False(rw.TryLock())
	a.False(rw.TryRLock())
	a.NoError(rw.Unlock())
	a.Equal(ErrNotLocked, rw.Unlock())
}

func TestRWMutexReadersShare(t *testing.T) {
	a := assert.New(t)
	rw := newTestRWMutex()
	a.NoError(rw.RLockTimeout(0))
	a.NoError(rw.RLockTimeout(0))
	readers, writer := rw.State()
	a.Equal(2, readers)
	a.False(writer)
	a.Equal(ErrTimeout, rw.LockTimeout(10*time.Millisecond))
	a.NoError(rw.Unlock())
	a.NoError(rw.Unlock())
	a.NoError(rw.LockTimeout(0))
	a.NoError(rw.Unlock())
}

func TestRWMutexTimeout(t *testing.T) {
	a := assert.New(t)
	rw := newTestRWMutex()
	a.NoError(rw.Lock())
	const timeout = 100 * time.Millisecond
	start := time.Now()
	err := rw.RLockTimeout(timeout)
	elapsed := time.Since(start)
	a.Equal(ErrTimeout, err)
	a.True(elapsed >= timeout, "returned too early: %v", elapsed)
	a.True(elapsed < timeout+time.Second, "returned too late: %v", elapsed)
	a.NoError(rw.Unlock())
}

func TestRWMutexWakesWaiters(t *testing.T) {
	a := assert.New(t)
	rw := newTestRWMutex()
	a.NoError(rw.Lock())
	var wg sync.WaitGroup
	errs := make(chan error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := rw.RLockTimeout(5 * time.Second); err != nil {
				errs <- err
				return
			}
			errs <- rw.Unlock()
		}()
	}
	time.Sleep(50 * time.Millisecond)
	a.NoError(rw.Unlock())
	wg.Wait()
	close(errs)
	for err := range errs {
		a.NoError(err)
	}
}

func TestRWMutexValueInc(t *testing.T) {
	a := assert.New(t)
	rw := newTestRWMutex()
	var wg sync.WaitGroup
	sharedValue := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				if err := rw.Lock(); err != nil {
					panic(err)
				}
				sharedValue++
				if err := rw.Unlock(); err != nil {
					panic(err)
				}
			}
		}()
	}
	wg.Wait()
	a.Equal(16000, sharedValue)
}

func TestRWMutexResetAndDestroy(t *testing.T) {
	a := assert.New(t)
	rw := newTestRWMutex()
	a.NoError(rw.Lock())
	a.Equal(ErrBusy, rw.Destroy())
	a.NoError(rw.Reset())
	a.NoError(rw.LockTimeout(0))
	a.NoError(rw.Unlock())
	a.NoError(rw.Destroy())
	a.False(rw.IsInitialized())
	a.Equal(ErrNotInitialized, rw.Lock())
}

func TestRWMutexAcrossMappings(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	r.NoError(shm.DestroyMemoryObject(testRWMutexObj))
	obj, _, err := shm.NewMemoryObjectSize(testRWMutexObj, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666, RWMutexSize)
	r.NoError(err)
	defer obj.Destroy()
	first, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, RWMutexSize)
	r.NoError(err)
	defer first.Close()
	second, err := mmf.NewMemoryRegion(obj, mmf.MEM_READWRITE, 0, RWMutexSize)
	r.NoError(err)
	defer second.Close()

	rw1 := NewInplaceRWMutex(common.ByteSliceData(first.Data()))
	rw1.Init()
	rw2 := NewInplaceRWMutex(common.ByteSliceData(second.Data()))
	a.True(rw2.IsInitialized())

	a.NoError(rw1.Lock())
	a.Equal(ErrTimeout, rw2.RLockTimeout(20*time.Millisecond))
	done := make(chan error, 1)
	go func() {
		done <- rw2.LockTimeout(5 * time.Second)
	}()
	time.Sleep(20 * time.Millisecond)
	a.NoError(rw1.Unlock())
	a.NoError(<-done)
	a.NoError(rw2.Unlock())
}

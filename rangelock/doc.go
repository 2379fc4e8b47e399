// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package rangelock implements byte-range locks over a block of shared memory.
//
// A Block is a named shared memory segment, which consists of a control section,
// a fixed-size table of lock slots and a data section. Processes lock arbitrary
// byte ranges of the data section in shared or exclusive mode. There is no
// coordinator process: the lock table is protected by a process-shared rwlock
// in the control section, and every slot has its own process-shared rwlock, which
// is held for the lifetime of the lock.
//
// Locks of crashed processes are reclaimed: an entry is removed from the table,
// if its owner no longer exists, or if its heartbeat timestamp was not refreshed
// for longer, than Config.StaleLockTimeout. A LockHandle refreshes the timestamp
// in the background until it is released.
//
// Read and Write do not check, that the caller holds a lock over the range.
//
// Example:
//	block, err := rangelock.Create("cache", 1024, rangelock.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer block.Unlink()
//	h, err := block.AcquireLock(0, 100, rangelock.Exclusive, time.Second)
//	if err != nil {
//		return err
//	}
//	defer h.Release()
//	return block.Write(0, []byte("hello"))
package rangelock

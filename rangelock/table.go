// Copyright 2016 Aleksandr Demakin. All rights reserved.

package rangelock

// lockTable is a view of the lock table. Its methods do not take the control lock,
// callers must hold it, if they need a consistent view.
type lockTable struct {
	data     []byte
	maxLocks int
}

func newLockTable(segment []byte, maxLocks int) lockTable {
	return lockTable{
		data:     segment[controlSize:headerSize(maxLocks)],
		maxLocks: maxLocks,
	}
}

func (t lockTable) slot(id int) slot {
	off := id * entrySize
	return slot(t.data[off : off+entrySize : off+entrySize])
}

// entry returns a decoded entry of the given slot.
func (t lockTable) entry(id int) LockEntry {
	return t.slot(id).entry(id)
}

func (t lockTable) setEntry(id int, e LockEntry) {
	t.slot(id).setEntry(e)
}

// init clears all slots and initializes their locks.
func (t lockTable) init() {
	for id := 0; id < t.maxLocks; id++ {
		s := t.slot(id)
		s.reset()
		s.lock().Init()
	}
}

// findFreeSlot returns the first inactive slot.
func (t lockTable) findFreeSlot() (int, bool) {
	for id := 0; id < t.maxLocks; id++ {
		if !t.slot(id).active() {
			return id, true
		}
	}
	return -1, false
}

// findConflict returns the first active entry, which prevents a lock of the given kind on the range.
func (t lockTable) findConflict(offset, length uint64, kind LockType) (LockEntry, bool) {
	for id := 0; id < t.maxLocks; id++ {
		if !t.slot(id).active() {
			continue
		}
		if e := t.entry(id); e.ConflictsWith(offset, length, kind) {
			return e, true
		}
	}
	return LockEntry{}, false
}

func (t lockTable) activeEntries() []LockEntry {
	var result []LockEntry
	for id := 0; id < t.maxLocks; id++ {
		if t.slot(id).active() {
			result = append(result, t.entry(id))
		}
	}
	return result
}

// Copyright 2016 Aleksandr Demakin. All rights reserved.

package rangelock

//go:generate go tool stringer -type=LockType

// LockType is a mode of a range lock.
type LockType uint8

const (
	// Shared locks may overlap with other shared locks.
	Shared LockType = 1
	// Exclusive locks do not overlap with any other lock.
	Exclusive LockType = 2
)

// Valid returns true for Shared and Exclusive.
func (t LockType) Valid() bool {
	return t == Shared || t == Exclusive
}

// ParseLockType converts "shared" or "exclusive" (or their first letters) into a LockType.
func ParseLockType(s string) (LockType, bool) {
	switch s {
	case "shared", "Shared", "s", "r", "read":
		return Shared, true
	case "exclusive", "Exclusive", "x", "w", "write":
		return Exclusive, true
	}
	return 0, false
}

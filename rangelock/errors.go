// Copyright 2016 Aleksandr Demakin. All rights reserved.

package rangelock

import (
	"github.com/pkg/errors"
)

var (
	// ErrIncompatibleFormat is returned, if a segment has a wrong magic number or format version.
	ErrIncompatibleFormat = errors.New("incompatible segment format")
	// ErrNotFound is returned by Attach, if the segment does not exist.
	ErrNotFound = errors.New("segment not found")
	// ErrExists is returned by Create, if the segment already exists.
	ErrExists = errors.New("segment already exists")
	// ErrTimeout is returned, if a lock was not acquired before the deadline.
	ErrTimeout = errors.New("timed out waiting for the lock")
	// ErrNoCapacity is returned, if all lock table slots are occupied.
	ErrNoCapacity = errors.New("lock table is full")
	// ErrInvalidRange is returned for empty ranges and ranges outside the data section.
	ErrInvalidRange = errors.New("invalid byte range")
	// ErrInvalidLockType is returned for lock types other than Shared and Exclusive.
	ErrInvalidLockType = errors.New("invalid lock type")
	// ErrInvalidConfig is returned, if a config value is out of its bounds.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrClosed is returned by operations on a closed block.
	ErrClosed = errors.New("block is closed")
	// ErrNotCreator is returned by Unlink, if the block was attached, not created.
	ErrNotCreator = errors.New("only the creator can unlink the block")
)

// IsRetryable returns true for errors, which are expected under contention.
// Such operations may succeed, if retried later.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrNoCapacity)
}

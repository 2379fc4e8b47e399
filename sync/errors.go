// Copyright 2016 Aleksandr Demakin. All rights reserved.

package sync

import "github.com/pkg/errors"

var (
	// ErrTimeout is returned, when a lock was not taken in time.
	ErrTimeout = errors.New("lock wait timed out")
	// ErrNotLocked is returned on an attempt to unlock a free lock.
	ErrNotLocked = errors.New("unlock of unlocked mutex")
	// ErrNotInitialized is returned, when a lock cell has never been initialized or was destroyed.
	ErrNotInitialized = errors.New("mutex is not initialized")
	// ErrBusy is returned on an attempt to destroy a lock, which is held or waited for.
	ErrBusy = errors.New("mutex is busy")
)

// Copyright 2016 Aleksandr Demakin. All rights reserved.

package rangelock

import (
	"time"

	"github.com/pkg/errors"
)

// Config bounds.
const (
	MinLockTimeout       = 100 * time.Millisecond
	MinHeartbeatInterval = time.Second
	MinStaleLockTimeout  = 10 * time.Second
	MinMaxLocks          = 1
	MaxMaxLocks          = 256
)

// Config holds parameters of a Block. It is passed to Create and Attach by value.
type Config struct {
	// LockTimeout is the default wait bound for AcquireLock. It also bounds
	// waits for the control lock during release, cleanup and heartbeats.
	LockTimeout time.Duration
	// HeartbeatInterval is the period of timestamp refresh of held locks.
	HeartbeatInterval time.Duration
	// StaleLockTimeout is the age, after which a lock is reclaimed,
	// even if its owner process is alive.
	StaleLockTimeout time.Duration
	// MaxLocks is the capacity of the lock table. It is used only by Create,
	// attached blocks use the capacity stored in the segment.
	MaxLocks int
}

// DefaultConfig returns a config with default values.
func DefaultConfig() Config {
	return Config{
		LockTimeout:       5 * time.Second,
		HeartbeatInterval: 10 * time.Second,
		StaleLockTimeout:  60 * time.Second,
		MaxLocks:          16,
	}
}

// Validate checks, that all the values are within their bounds.
func (c Config) Validate() error {
	if c.LockTimeout < MinLockTimeout {
		return errors.Wrapf(ErrInvalidConfig, "lock timeout %v is less than %v", c.LockTimeout, MinLockTimeout)
	}
	if c.HeartbeatInterval < MinHeartbeatInterval {
		return errors.Wrapf(ErrInvalidConfig, "heartbeat interval %v is less than %v", c.HeartbeatInterval, MinHeartbeatInterval)
	}
	if c.StaleLockTimeout < MinStaleLockTimeout {
		return errors.Wrapf(ErrInvalidConfig, "stale lock timeout %v is less than %v", c.StaleLockTimeout, MinStaleLockTimeout)
	}
	if c.HeartbeatInterval >= c.StaleLockTimeout {
		return errors.Wrapf(ErrInvalidConfig, "heartbeat interval %v must be less than stale lock timeout %v", c.HeartbeatInterval, c.StaleLockTimeout)
	}
	if c.MaxLocks < MinMaxLocks || c.MaxLocks > MaxMaxLocks {
		return errors.Wrapf(ErrInvalidConfig, "max locks %d is not in [%d, %d]", c.MaxLocks, MinMaxLocks, MaxMaxLocks)
	}
	return nil
}

// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package shmlock is the root of a library for byte-range locking over shared memory.
//
// The packages are:
//	rangelock - blocks of shared memory with a lock table and range locks (start here)
//	sync      - process-shared futex-based rwlock, which lives in shared memory
//	shm       - named shared memory objects
//	mmf       - memory mapping of shared memory objects
//	config    - loading of rangelock.Config from files and SHM_ environment variables
// The shmlock command in cmd/shmlock creates, inspects and locks blocks from the shell.
//
// Only linux is supported.
package shmlock

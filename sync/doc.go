// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package sync implements synchronization primitives, which can be placed
// into a shared memory region and used by several processes at once.
// The primitives have no owner: any process, which maps the memory, can
// unlock a lock taken by another one. This is what makes reclamation of
// locks, left by crashed processes, possible.
package sync

// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package rangelock

import (
	"fmt"

	"github.com/nxgtw/go-shmlock/shm"

	"github.com/zeebo/xxh3"
)

const (
	segmentPrefix     = "shmlock."
	maxLogicalNameLen = 200
)

// SegmentName returns the name of the shared memory object, which backs a block
// with the given logical name. Names, which can not be used as object names,
// are replaced with their hash.
func SegmentName(name string) string {
	if name == "" || len(name) > maxLogicalNameLen || !shm.IsValidName(segmentPrefix+name) {
		return fmt.Sprintf("%sx.%016x", segmentPrefix, xxh3.HashString(name))
	}
	return segmentPrefix + name
}

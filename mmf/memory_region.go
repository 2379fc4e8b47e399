// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build linux

// Package mmf maps shared memory objects and files into the address space.
package mmf

import (
	"os"
	"runtime"
	"unsafe"

	"github.com/nxgtw/go-shmlock/internal/common"

	"github.com/pkg/errors"
)

const (
	// MEM_READ_ONLY is used to open a memory region for reading.
	MEM_READ_ONLY = iota
	// MEM_READWRITE is used to open a memory region for reading and writing.
	MEM_READWRITE
	// MEM_READ_PRIVATE is used to open a private read-only copy of the object.
	MEM_READ_PRIVATE
	// MEM_COPY_ON_WRITE is used to open a private copy of the object, which can be changed.
	MEM_COPY_ON_WRITE
)

var (
	mmapOffsetMultiple = int64(os.Getpagesize())
)

// MemoryRegion is a mmapped area of a memory object.
// Warning. The internal object has a finalizer set,
// so the region will be unmapped during the gc.
// Thus, you should be carefull getting internal data.
// For example, the following code may crash:
// 	func f() {
// 		region := NewMemoryRegion(...)
// 		return g(region.Data())
// 	}
// region may be gc'ed while its data is used by g().
// To avoid this, you can use UseMemoryRegion() or region readers/writers.
type MemoryRegion struct {
	*memoryRegion
}

// Mappable is a named object, which can return a handle,
// that can be used as a file descriptor for mmap.
type Mappable interface {
	Fd() uintptr
	Name() string
}

// NewMemoryRegion creates a new shared memory region.
// 	object - an object to mmap.
// 	mode - open mode. see MEM_* constants
// 	offset - offset in bytes from the beginning of the mmaped file
// 	size - mapping size. 0 means the entire object.
func NewMemoryRegion(object Mappable, mode int, offset int64, size int) (*MemoryRegion, error) {
	impl, err := newMemoryRegion(object, mode, offset, size)
	if err != nil {
		return nil, err
	}
	result := &MemoryRegion{impl}
	runtime.SetFinalizer(impl, func(region *memoryRegion) {
		region.Close()
	})
	return result, nil
}

// UseMemoryRegion ensures, that the object is still alive at the moment of the call.
// The usecase is when you use memory region's Data() and don't use the
// region itself anymore. In this case the region can be gc'ed, the memory mapping
// destroyed and you can get segfault.
func UseMemoryRegion(region *MemoryRegion) {
	common.Use(unsafe.Pointer(region))
}

// calcMmapOffsetFixup returns a value X,
// so that  offset - X is a valid mmap offset.
func calcMmapOffsetFixup(offset int64) int64 {
	return (offset - (offset/mmapOffsetMultiple)*mmapOffsetMultiple)
}

// fileInfoGetter is used to obtain file's size
type fileInfoGetter interface {
	Stat() (os.FileInfo, error)
}

type sizeGetter interface {
	Size() int64
}

func fileSizeFromFd(f Mappable) (int64, error) {
	if f.Fd() == ^uintptr(0) {
		return 0, nil
	}
	switch typed := f.(type) {
	case fileInfoGetter:
		fi, err := typed.Stat()
		if err != nil {
			return 0, err
		}
		return fi.Size(), nil
	case sizeGetter:
		return typed.Size(), nil
	}
	return 0, nil
}

func checkMmapSize(f Mappable, size int) (int, error) {
	if size == 0 {
		if f.Fd() == ^uintptr(0) {
			return 0, errors.New("must provide a valid file size")
		}
		sz, err := fileSizeFromFd(f)
		if err != nil {
			return 0, err
		}
		if size = int(sz); size == 0 {
			return 0, errors.New("cannot map an empty object")
		}
	}
	return size, nil
}

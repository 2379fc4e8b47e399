// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build linux

package mmf

import (
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type regionMode struct {
	prot  int
	flags int
}

var regionModes = map[int]regionMode{
	MEM_READ_ONLY:     {prot: unix.PROT_READ, flags: unix.MAP_SHARED},
	MEM_READWRITE:     {prot: unix.PROT_READ | unix.PROT_WRITE, flags: unix.MAP_SHARED},
	MEM_READ_PRIVATE:  {prot: unix.PROT_READ, flags: unix.MAP_PRIVATE},
	MEM_COPY_ON_WRITE: {prot: unix.PROT_READ | unix.PROT_WRITE, flags: unix.MAP_PRIVATE},
}

// memoryRegion keeps the page-aligned mapping returned by mmap.
// The requested window starts at pageOffset inside it.
type memoryRegion struct {
	mapping    []byte
	pageOffset int
	size       int
}

func newMemoryRegion(obj Mappable, mode int, offset int64, size int) (*memoryRegion, error) {
	m, ok := regionModes[mode]
	if !ok {
		return nil, errors.Errorf("invalid memory region mode %d", mode)
	}
	if offset < 0 {
		return nil, errors.Errorf("negative mapping offset %d", offset)
	}
	size, err := checkMmapSize(obj, size)
	if err != nil {
		return nil, errors.Wrap(err, "size check failed")
	}
	objSize, err := fileSizeFromFd(obj)
	if err != nil {
		return nil, errors.Wrap(err, "file size check failed")
	}
	// pages past the end of the object can be mapped, but touching them raises SIGBUS.
	if objSize > 0 && offset+int64(size) > objSize {
		return nil, errors.Errorf("mapping [%d, %d) exceeds object size %d", offset, offset+int64(size), objSize)
	}
	pageOffset := calcMmapOffsetFixup(offset)
	mapping, err := unix.Mmap(int(obj.Fd()), offset-pageOffset, size+int(pageOffset), m.prot, m.flags)
	if err != nil {
		return nil, errors.Wrap(err, "mmap failed")
	}
	return &memoryRegion{mapping: mapping, pageOffset: int(pageOffset), size: size}, nil
}

func (region *memoryRegion) Close() error {
	if region.mapping == nil {
		return nil
	}
	runtime.SetFinalizer(region, nil)
	err := unix.Munmap(region.mapping)
	region.mapping, region.pageOffset, region.size = nil, 0, 0
	return errors.Wrap(err, "munmap failed")
}

func (region *memoryRegion) Data() []byte {
	if region.mapping == nil {
		return nil
	}
	return region.mapping[region.pageOffset:]
}

// Flush synchronizes the whole region with the underlying object.
func (region *memoryRegion) Flush(async bool) error {
	return region.FlushRange(0, region.size, async)
}

// FlushRange synchronizes [off, off+length) of the region with the underlying object.
// The range is extended to page boundaries.
func (region *memoryRegion) FlushRange(off, length int, async bool) error {
	if region.mapping == nil {
		return errors.New("region is closed")
	}
	if off < 0 || length < 0 || off+length > region.size {
		return errors.Errorf("flush range [%d, %d) is out of region of %d bytes", off, off+length, region.size)
	}
	flag := unix.MS_SYNC
	if async {
		flag = unix.MS_ASYNC
	}
	start := region.pageOffset + off
	start -= start % int(mmapOffsetMultiple)
	if err := unix.Msync(region.mapping[start:region.pageOffset+off+length], flag); err != nil {
		return errors.Wrap(err, "msync failed")
	}
	return nil
}

func (region *memoryRegion) Size() int {
	return region.size
}

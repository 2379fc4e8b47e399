// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package mmf

import (
	"io"

	"github.com/pkg/errors"
)

// MemoryRegionSection is a window [off, off+size) of a memory region.
// It implements io.ReaderAt and io.WriterAt with offsets relative to the window start.
// It holds a reference to the region, so the former can't be gc'ed.
type MemoryRegionSection struct {
	region *MemoryRegion
	off    int64
	size   int64
}

// NewMemoryRegionSection returns a section of the region.
// It fails, if the window does not fit into the region.
func NewMemoryRegionSection(region *MemoryRegion, off, size int64) (*MemoryRegionSection, error) {
	if off < 0 || size < 0 || off+size > int64(len(region.Data())) {
		return nil, errors.Errorf("section [%d, %d) is out of region of %d bytes", off, off+size, len(region.Data()))
	}
	return &MemoryRegionSection{region: region, off: off, size: size}, nil
}

// Size returns the length of the section.
func (s *MemoryRegionSection) Size() int64 {
	return s.size
}

// Bytes returns the memory of the section, or nil, if the region was closed.
// The slice must not be used after the region is closed.
func (s *MemoryRegionSection) Bytes() []byte {
	data := s.region.Data()
	if data == nil {
		return nil
	}
	return data[s.off : s.off+s.size : s.off+s.size]
}

// Flush synchronizes the pages of the section with the underlying object.
func (s *MemoryRegionSection) Flush() error {
	return s.region.FlushRange(int(s.off), int(s.size), false)
}

// ReadAt is to implement io.ReaderAt.
func (s *MemoryRegionSection) ReadAt(p []byte, off int64) (n int, err error) {
	data, err := s.window(off)
	if err != nil {
		return 0, err
	}
	n = copy(p, data)
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}

// WriteAt is to implement io.WriterAt.
func (s *MemoryRegionSection) WriteAt(p []byte, off int64) (n int, err error) {
	data, err := s.window(off)
	if err != nil {
		return 0, err
	}
	n = copy(data, p)
	if n < len(p) {
		err = io.EOF
	}
	return n, err
}

func (s *MemoryRegionSection) window(off int64) ([]byte, error) {
	if off < 0 {
		return nil, errors.Errorf("negative offset %d", off)
	}
	data := s.Bytes()
	if data == nil {
		return nil, errors.New("memory region is closed")
	}
	if off >= s.size {
		return nil, io.EOF
	}
	return data[off:], nil
}

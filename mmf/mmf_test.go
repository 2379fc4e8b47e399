// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build linux

package mmf

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func makeTestFile(t *testing.T, size int) *os.File {
	path := filepath.Join(t.TempDir(), "test.bin")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		t.Fatal(err)
	}
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i)
	}
	if _, err = file.Write(data); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { file.Close() })
	return file
}

func TestMmfOpen(t *testing.T) {
	a := assert.New(t)
	const size = 3 * 4096
	file := makeTestFile(t, size)
	mr, err := NewMemoryRegion(file, MEM_READ_ONLY, 0, size)
	if !a.NoError(err) {
		return
	}
	a.NoError(mr.Close())
	mr, err = NewMemoryRegion(file, MEM_READ_ONLY, 0, 0)
	if a.NoError(err) {
		a.Equal(size, mr.Size())
		a.NoError(mr.Close())
	}
	mr, err = NewMemoryRegion(file, MEM_READ_ONLY, 5000, size-5000)
	if a.NoError(err) {
		a.Equal(byte(5000%256), mr.Data()[0])
		a.NoError(mr.Close())
	}
	_, err = NewMemoryRegion(file, MEM_READ_ONLY, size-1024, 1025)
	a.Error(err)
	_, err = NewMemoryRegion(file, 42, 0, size)
	a.Error(err)
}

func TestMmfReadWrite(t *testing.T) {
	a := assert.New(t)
	file := makeTestFile(t, 4096)
	rw, err := NewMemoryRegion(file, MEM_READWRITE, 0, 4096)
	if !a.NoError(err) {
		return
	}
	defer rw.Close()
	ro, err := NewMemoryRegion(file, MEM_READ_ONLY, 0, 4096)
	if !a.NoError(err) {
		return
	}
	defer ro.Close()

	section, err := NewMemoryRegionSection(rw, 1024, 2048)
	if !a.NoError(err) {
		return
	}
	a.Equal(int64(2048), section.Size())
	n, err := section.WriteAt([]byte{0xAA, 0xBB}, 10)
	a.NoError(err)
	a.Equal(2, n)
	n, err = section.WriteAt([]byte{1, 2, 3}, 2046)
	a.Equal(io.EOF, err)
	a.Equal(2, n)
	_, err = section.WriteAt([]byte{1}, 2048)
	a.Equal(io.EOF, err)
	_, err = section.WriteAt([]byte{1}, -1)
	a.Error(err)
	a.NoError(rw.Flush(false))
	a.NoError(section.Flush())
	a.Error(rw.FlushRange(4000, 100, true))

	buf := make([]byte, 2)
	a.Equal([]byte{0xAA, 0xBB}, ro.Data()[1034:1036])
	roSection, err := NewMemoryRegionSection(ro, 1024, 2048)
	if !a.NoError(err) {
		return
	}
	n, err = roSection.ReadAt(buf, 10)
	a.NoError(err)
	a.Equal(2, n)
	a.Equal([]byte{0xAA, 0xBB}, buf)
	n, err = roSection.ReadAt(buf, 2047)
	a.Equal(io.EOF, err)
	a.Equal(1, n)
	a.Equal(byte(2), buf[0])

	_, err = NewMemoryRegionSection(rw, 4000, 100)
	a.Error(err)
}

func TestMmfClosedRegion(t *testing.T) {
	a := assert.New(t)
	file := makeTestFile(t, 4096)
	mr, err := NewMemoryRegion(file, MEM_READWRITE, 0, 0)
	if !a.NoError(err) {
		return
	}
	a.NoError(mr.Close())
	a.NoError(mr.Close())
	a.Nil(mr.Data())
	a.Error(mr.Flush(true))
}

func TestMmfSectionOfClosedRegion(t *testing.T) {
	a := assert.New(t)
	file := makeTestFile(t, 4096)
	mr, err := NewMemoryRegion(file, MEM_READWRITE, 0, 0)
	if !a.NoError(err) {
		return
	}
	section, err := NewMemoryRegionSection(mr, 0, 100)
	if !a.NoError(err) {
		return
	}
	a.Len(section.Bytes(), 100)
	a.NoError(mr.Close())
	a.Nil(section.Bytes())
	_, err = section.ReadAt(make([]byte, 1), 0)
	a.Error(err)
}

// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build linux

// Package shm implements named shared memory objects, which back
// the lock segments. An object is a file on a tmpfs mount and can be
// mapped into the address space of any process, which knows its name.
package shm

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"
)

// MemoryObject represents an object which can be used to
// map shared memory regions into the process' address space.
type MemoryObject struct {
	*memoryObject
}

type memoryObject struct {
	file *os.File
}

// NewMemoryObject opens or creates a shared memory object.
//	name - a name of the object, see IsValidName.
//	flag - flag is a combination of open flags from 'os' package.
//	perm - object's permission bits.
func NewMemoryObject(name string, flag int, perm os.FileMode) (*MemoryObject, error) {
	path, err := Path(name)
	if err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}
	impl := &memoryObject{file: file}
	runtime.SetFinalizer(impl, func(memObject *memoryObject) {
		memObject.Close()
	})
	return &MemoryObject{impl}, nil
}

// NewMemoryObjectSize opens or creates a shared memory object with the given size.
// If the object was created, it is truncated to 'size'.
// If it was opened, its size must be at least 'size'.
// It returns the object and a flag, whether it was created.
func NewMemoryObjectSize(name string, flag int, perm os.FileMode, size int64) (*MemoryObject, bool, error) {
	var obj *MemoryObject
	var err error
	created := false
	if flag&os.O_CREATE != 0 && flag&os.O_EXCL == 0 {
		// open-or-create: try exclusive creation first to learn, whether we are the creator.
		if obj, err = NewMemoryObject(name, flag|os.O_EXCL, perm); err == nil {
			created = true
		} else if os.IsExist(err) {
			obj, err = NewMemoryObject(name, flag&^os.O_CREATE, perm)
		}
	} else {
		obj, err = NewMemoryObject(name, flag, perm)
		created = err == nil && flag&os.O_CREATE != 0
	}
	if err != nil {
		return nil, false, err
	}
	if created {
		if err = obj.Truncate(size); err != nil {
			obj.Destroy()
			return nil, false, errors.Wrap(err, "failed to truncate shm object")
		}
	} else if actual := obj.Size(); actual < size {
		obj.Close()
		return nil, false, errors.Errorf("existing object is too small: %d < %d", actual, size)
	}
	return obj, created, nil
}

// DestroyMemoryObject permanently removes the object with the given name.
// It is not an error, if the object does not exist.
func DestroyMemoryObject(name string) error {
	path, err := Path(name)
	if err != nil {
		return err
	}
	return removeObjectFile(path)
}

// Destroy closes the object and removes it permanently.
func (obj *memoryObject) Destroy() error {
	if int(obj.Fd()) >= 0 {
		if err := obj.Close(); err != nil {
			return err
		}
	}
	return removeObjectFile(obj.file.Name())
}

// Name returns the name of the object as it was passed to NewMemoryObject.
func (obj *memoryObject) Name() string {
	return filepath.Base(obj.file.Name())
}

// Close closes object's file descriptor. Existing mappings stay valid.
func (obj *memoryObject) Close() error {
	runtime.SetFinalizer(obj, nil)
	err := obj.file.Close()
	if err != nil && errors.Is(err, os.ErrClosed) {
		return nil
	}
	return err
}

// Truncate resizes the object.
func (obj *memoryObject) Truncate(size int64) error {
	return obj.file.Truncate(size)
}

// Size returns current object's size, or 0 if it cannot be determined.
func (obj *memoryObject) Size() int64 {
	fileInfo, err := obj.file.Stat()
	if err != nil {
		return 0
	}
	return fileInfo.Size()
}

// Fd returns a descriptor of the object's underlying file.
func (obj *memoryObject) Fd() uintptr {
	return obj.file.Fd()
}

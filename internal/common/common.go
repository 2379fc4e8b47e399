// Copyright 2016 Aleksandr Demakin. All rights reserved.

package common

import (
	"os"
	"syscall"
	"unsafe"
)

// SyscallErrHasCode returns true, if err is an *os.SyscallError or a bare errno with the given code.
func SyscallErrHasCode(err error, code syscall.Errno) bool {
	switch typed := err.(type) {
	case *os.SyscallError:
		if errno, ok := typed.Err.(syscall.Errno); ok {
			return errno == code
		}
	case syscall.Errno:
		return typed == code
	}
	return false
}

// ByteSliceData returns a pointer to the data of the given byte slice.
func ByteSliceData(slice []byte) unsafe.Pointer {
	return unsafe.Pointer(unsafe.SliceData(slice))
}

// ByteSliceFromUnsafePointer returns a slice of bytes with given length and capacity.
// Memory pointed by the unsafe.Pointer is used for the slice.
func ByteSliceFromUnsafePointer(memory unsafe.Pointer, length, capacity int) []byte {
	return unsafe.Slice((*byte)(memory), capacity)[:length]
}

// Use is used to keep an object alive until this call.
// It is needed when an object's address is passed to a syscall as uintptr.
//go:noinline
func Use(unsafe.Pointer) {}

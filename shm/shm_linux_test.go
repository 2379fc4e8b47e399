// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build linux

package shm

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const testObjName = "go-shmlock.shm-test"

func TestShmDirFromMounts(t *testing.T) {
	a := assert.New(t)
	const fstab = `
		#
		# /etc/fstab
		# name dir type opts freq passno
		UUID=cd459033-ae0a-4fb4-96fb-2323365a8e21 /                       ext4    defaults        1 1
		UUID=53d61062-7b6b-4f5b-80fd-7baf4017f96d swap                    swap    defaults        0 0
		tmpfs /dev/shm tmpfs rw,seclabel,nosuid,nodev 0 0
	`
	a.Equal("/dev/shm/", shmDirFromMounts(strings.NewReader(fstab)))
	a.Empty(shmDirFromMounts(strings.NewReader("tmpfs /dev/shm nottmpfs rw,seclabel,nosuid,nodev 0 0")))
	a.Empty(shmDirFromMounts(strings.NewReader("tmpfs /nonexistent/dir tmpfs rw 0 0")))
	a.Empty(shmDirFromMounts(strings.NewReader("# tmpfs /dev/shm tmpfs rw 0 0")))
}

func TestPath(t *testing.T) {
	a := assert.New(t)
	path, err := Path("/" + testObjName)
	a.NoError(err)
	a.True(strings.HasSuffix(path, "/"+testObjName))
	a.NotEmpty(locateShmDir())
	_, err = Path("a/b")
	a.Error(err)
}

func TestIsValidName(t *testing.T) {
	a := assert.New(t)
	a.True(IsValidName("shmlock.block"))
	a.False(IsValidName(""))
	a.False(IsValidName("a/b"))
	a.False(IsValidName(".."))
	a.False(IsValidName("."))
	a.False(IsValidName("a\x00b"))
	a.True(IsValidName(strings.Repeat("x", MaxNameLen)))
	a.False(IsValidName(strings.Repeat("x", MaxNameLen+1)))
}

func TestMemoryObjectCreateOpenDestroy(t *testing.T) {
	a := assert.New(t)
	a.NoError(DestroyMemoryObject(testObjName))
	obj, created, err := NewMemoryObjectSize(testObjName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666, 1024)
	if !a.NoError(err) {
		return
	}
	defer obj.Destroy()
	a.True(created)
	a.Equal(int64(1024), obj.Size())
	a.Equal(testObjName, obj.Name())

	_, _, err = NewMemoryObjectSize(testObjName, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0666, 1024)
	a.True(os.IsExist(err))

	obj2, created, err := NewMemoryObjectSize(testObjName, os.O_CREATE|os.O_RDWR, 0666, 512)
	if a.NoError(err) {
		a.False(created)
		a.NoError(obj2.Close())
	}

	_, _, err = NewMemoryObjectSize(testObjName, os.O_RDWR, 0666, 4096)
	a.Error(err)

	a.NoError(obj.Destroy())
	_, err = NewMemoryObject(testObjName, os.O_RDWR, 0666)
	a.True(os.IsNotExist(err))
}

// Copyright 2015 Aleksandr Demakin. All rights reserved.

//go:build linux

package shm

import (
	"bufio"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// MaxNameLen is the maximum length of an object name.
	MaxNameLen = 255

	defaultShmDir  = "/dev/shm/"
	tmpfsMagic     = 0x01021994
	ramfsMagic     = 0x858458f6
	procMountsPath = "/proc/mounts"
	fstabPath      = "/etc/fstab"
)

var (
	shmDirOnce sync.Once
	shmDir     string
)

// IsValidName returns true, if the name can be used as a shared memory object name.
// A valid name is a single non-empty path element of at most MaxNameLen bytes without NUL bytes.
func IsValidName(name string) bool {
	if len(name) == 0 || len(name) > MaxNameLen || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\x00")
}

// Path returns the path of the file, which backs the object with the given name.
func Path(name string) (string, error) {
	name = strings.TrimLeft(name, "/")
	if !IsValidName(name) {
		return "", errors.Errorf("invalid shm name %q", name)
	}
	shmDirOnce.Do(func() {
		shmDir = locateShmDir()
	})
	if len(shmDir) == 0 {
		return "", errors.New("no tmpfs mount for shared memory found")
	}
	return shmDir + name, nil
}

func removeObjectFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// locateShmDir returns /dev/shm, if it is a tmpfs, or the first tmpfs mount point.
func locateShmDir() string {
	if isShmDir(defaultShmDir) {
		return defaultShmDir
	}
	for _, path := range []string{procMountsPath, fstabPath} {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		dir := shmDirFromMounts(f)
		f.Close()
		if len(dir) > 0 {
			return dir
		}
	}
	return ""
}

func isShmDir(path string) bool {
	var st unix.Statfs_t
	if len(path) == 0 || unix.Statfs(path, &st) != nil {
		return false
	}
	fsType := int64(st.Type)
	return fsType == tmpfsMagic || fsType == ramfsMagic
}

// shmDirFromMounts scans records in fstab format: 'fsname dir type opts freq passno'.
func shmDirFromMounts(r io.Reader) string {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 || strings.HasPrefix(fields[0], "#") {
			continue
		}
		if fstype := fields[2]; fstype != "tmpfs" && fstype != "shm" {
			continue
		}
		dir := fields[1]
		if !isShmDir(dir) {
			continue
		}
		if !strings.HasSuffix(dir, "/") {
			dir += "/"
		}
		return dir
	}
	return ""
}

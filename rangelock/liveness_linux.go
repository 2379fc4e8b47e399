// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package rangelock

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strconv"

	"github.com/nxgtw/go-shmlock/internal/common"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	// fields after the command name in /proc/<pid>/stat.
	statStateField     = 0
	statStartTimeField = 19
)

// processInfo reads the state and the start time of a process from procfs.
func processInfo(pid int) (state byte, startTime uint64, err error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return 0, 0, err
	}
	return parseProcStat(data)
}

// parseProcStat parses the contents of /proc/<pid>/stat.
// The command name may contain spaces and parentheses, so fields are counted from the last ')'.
func parseProcStat(data []byte) (state byte, startTime uint64, err error) {
	idx := bytes.LastIndexByte(data, ')')
	if idx < 0 {
		return 0, 0, errors.New("invalid stat format")
	}
	fields := bytes.Fields(data[idx+1:])
	if len(fields) <= statStartTimeField {
		return 0, 0, errors.Errorf("invalid stat format: %d fields", len(fields))
	}
	if len(fields[statStateField]) != 1 {
		return 0, 0, errors.Errorf("invalid process state %q", fields[statStateField])
	}
	startTime, err = strconv.ParseUint(string(fields[statStartTimeField]), 10, 64)
	if err != nil {
		return 0, 0, errors.Wrap(err, "invalid start time")
	}
	return fields[statStateField][0], startTime, nil
}

// processStartTime returns the start time of a process in clock ticks since boot, or 0.
func processStartTime(pid int) uint64 {
	_, start, err := processInfo(pid)
	if err != nil {
		return 0
	}
	return start
}

// processAlive checks, if the process, which registered a lock, still exists.
// The check does not require permissions to send signals to the process.
// If startTime is not 0, a process with the same pid, but another start time,
// is considered to be a different process.
func processAlive(pid uint32, startTime uint64) bool {
	if pid == 0 || pid > math.MaxInt32 {
		return false
	}
	if err := unix.Kill(int(pid), 0); err != nil && !common.SyscallErrHasCode(err, unix.EPERM) {
		return !common.SyscallErrHasCode(err, unix.ESRCH)
	}
	state, actualStart, err := processInfo(int(pid))
	if err != nil {
		// the process exists, but procfs is not available.
		return !os.IsNotExist(err)
	}
	if state == 'Z' || state == 'X' {
		return false
	}
	return startTime == 0 || startTime == actualStart
}

// Copyright 2016 Aleksandr Demakin. All rights reserved.

//go:build linux

package rangelock

import (
	"os"
	"testing"

	"github.com/nxgtw/go-shmlock/internal/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcStat(t *testing.T) {
	a := assert.New(t)
	stat := "4242 (my (odd) proc) S 1 4242 4242 0 -1 4194560 160 0 0 0 0 0 0 0 20 0 1 0 123456 1000 100 18446744073709551615\n"
	state, start, err := parseProcStat([]byte(stat))
	a.NoError(err)
	a.Equal(byte('S'), state)
	a.Equal(uint64(123456), start)

	_, _, err = parseProcStat([]byte("4242 (proc) Z 1 2 3"))
	a.Error(err)
	_, _, err = parseProcStat([]byte("garbage"))
	a.Error(err)
}

func TestProcessAlive(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	self := os.Getpid()
	start := processStartTime(self)
	r.NotZero(start)
	a.True(processAlive(uint32(self), 0))
	a.True(processAlive(uint32(self), start))
	a.False(processAlive(uint32(self), start+1))
	a.True(processAlive(1, 0))
	a.False(processAlive(0, 0))

	dead, err := shmlock_testing.DeadPid()
	r.NoError(err)
	a.False(processAlive(uint32(dead), 0))
}

// Copyright 2016 Aleksandr Demakin. All rights reserved.

package main

import (
	"fmt"
	"os"
	"testing"

	"github.com/nxgtw/go-shmlock/rangelock"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestParseUint(t *testing.T) {
	a := assert.New(t)
	value, err := parseUint("offset", "42")
	a.NoError(err)
	a.Equal(uint64(42), value)
	value, err = parseUint("offset", "0x10")
	a.NoError(err)
	a.Equal(uint64(16), value)
	_, err = parseUint("offset", "-1")
	a.Error(err)
}

func TestCommands(t *testing.T) {
	a := assert.New(t)
	r := require.New(t)
	name := fmt.Sprintf("cmd-test.%d", os.Getpid())
	r.NoError(rangelock.Remove(name))
	defer rangelock.Remove(name)

	r.NoError(execute("create", name, "--size=256", "--max-locks=8", "--lock-timeout=0.5"))
	a.True(errors.Is(execute("create", name, "--size=256"), rangelock.ErrExists))
	a.NoError(execute("create", name, "--open"))
	a.NoError(execute("write", name, "16", "0A0B0C"))
	a.NoError(execute("read", name, "16", "3"))
	a.NoError(execute("acquire", name, "0", "8", "--hold=10ms", "--data=01020304"))
	a.NoError(execute("cleanup", name))
	a.NoError(execute("inspect", name, "--metrics"))
	a.NoError(execute("stress", name, "--workers=4", "--iterations=10", "--length=16", "--hold=0s"))
	a.Error(execute("write", name, "250", "0A0B0C0D0E0F0A0B"))
	a.Error(execute("acquire", name, "0", "8", "--type=upgrade"))

	block, err := rangelock.Attach(name, rangelock.DefaultConfig())
	r.NoError(err)
	a.Equal(8, block.MaxLocks())
	data, err := block.Read(0, 19)
	a.NoError(err)
	a.Equal([]byte{1, 2, 3, 4}, data[:4])
	a.Equal([]byte{0xA, 0xB, 0xC}, data[16:19])
	a.NoError(block.Close())

	a.NoError(execute("unlink", name))
	a.True(errors.Is(execute("inspect", name), rangelock.ErrNotFound))
}

// Copyright 2016 Aleksandr Demakin. All rights reserved.

// holder is a test program, which locks a range of a block from a separate process.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/nxgtw/go-shmlock/internal/test"
	"github.com/nxgtw/go-shmlock/rangelock"
)

var (
	name    = flag.String("block", "", "logical name of the block")
	offset  = flag.Uint64("offset", 0, "start of the range")
	length  = flag.Uint64("length", 1, "length of the range")
	kind    = flag.String("type", "exclusive", "lock type - shared | exclusive")
	timeout = flag.Duration("timeout", time.Second, "acquire timeout")
	hold    = flag.Duration("hold", 0, "how long to hold the lock")
	data    = flag.String("data", "", "hex data to write at offset")
	release = flag.Bool("release", true, "release the lock before exit")
)

const usage = `  test program for range locks.
  it attaches to a block, locks a range, optionally writes data into it,
  holds the lock and exits, optionally without releasing it.
byte array should be passed as a continuous string of 2-symbol hex byte values like '01020A'
`

func run() error {
	lockType, ok := rangelock.ParseLockType(*kind)
	if !ok {
		return fmt.Errorf("unknown lock type %q", *kind)
	}
	block, err := rangelock.Attach(*name, rangelock.DefaultConfig())
	if err != nil {
		return err
	}
	h, err := block.AcquireLock(*offset, *length, lockType, *timeout)
	if err != nil {
		return err
	}
	fmt.Printf("locked slot %d\n", h.SlotID())
	if len(*data) > 0 {
		bytes, err := shmlock_testing.StringToBytes(*data)
		if err != nil {
			return err
		}
		if err = block.Write(*offset, bytes); err != nil {
			return err
		}
	}
	time.Sleep(*hold)
	if !*release {
		// exit without cleanup, as if the process crashed.
		os.Exit(0)
	}
	if err = h.Release(); err != nil {
		return err
	}
	return block.Close()
}

func main() {
	flag.Parse()
	if len(*name) == 0 {
		fmt.Print(usage)
		flag.Usage()
		os.Exit(1)
	}
	if err := run(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

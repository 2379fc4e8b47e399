// Copyright 2016 Aleksandr Demakin. All rights reserved.

package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/nxgtw/go-shmlock/rangelock"
	"github.com/nxgtw/go-shmlock/shm"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	createCmd = &cobra.Command{
		Use:   "create NAME",
		Short: "Create a block",
		Args:  cobra.ExactArgs(1),
		RunE:  runCreate,
	}
	inspectCmd = &cobra.Command{
		Use:   "inspect NAME",
		Short: "Print the lock table of a block",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
	acquireCmd = &cobra.Command{
		Use:   "acquire NAME OFFSET LENGTH",
		Short: "Lock a range and hold it",
		Long: `Lock a range, optionally write data into it, and hold the lock
for the given duration or until interrupted.`,
		Args: cobra.ExactArgs(3),
		RunE: runAcquire,
	}
	readCmd = &cobra.Command{
		Use:   "read NAME OFFSET LENGTH",
		Short: "Read a range under a shared lock and print it as hex",
		Args:  cobra.ExactArgs(3),
		RunE:  runRead,
	}
	writeCmd = &cobra.Command{
		Use:   "write NAME OFFSET HEXDATA",
		Short: "Write hex data under an exclusive lock",
		Args:  cobra.ExactArgs(3),
		RunE:  runWrite,
	}
	cleanupCmd = &cobra.Command{
		Use:   "cleanup NAME",
		Short: "Reclaim locks of dead processes and stale locks",
		Args:  cobra.ExactArgs(1),
		RunE:  runCleanup,
	}
	unlinkCmd = &cobra.Command{
		Use:   "unlink NAME",
		Short: "Remove a block from the system",
		Long: `Remove a block from the system. Processes, which have it attached,
can continue using it. No process should hold locks in the block.`,
		Args: cobra.ExactArgs(1),
		RunE: runUnlink,
	}
)

func init() {
	createCmd.Flags().Int64("size", 4096, "size of the data section in bytes")
	createCmd.Flags().Bool("open", false, "do not fail, if the block exists")
	inspectCmd.Flags().Bool("metrics", false, "run cleanup and print block metrics in prometheus format")
	for _, cmd := range []*cobra.Command{acquireCmd, readCmd, writeCmd} {
		cmd.Flags().Duration("timeout", 0, "acquire timeout, 0 means the configured lock timeout")
	}
	acquireCmd.Flags().String("type", "exclusive", "lock type: shared or exclusive")
	acquireCmd.Flags().Duration("hold", 0, "how long to hold the lock, 0 means until interrupted")
	acquireCmd.Flags().String("data", "", "hex data to write at OFFSET, requires an exclusive lock")
}

func runCreate(cmd *cobra.Command, args []string) error {
	size, _ := cmd.Flags().GetInt64("size")
	open, _ := cmd.Flags().GetBool("open")
	var block *rangelock.Block
	var err error
	if open {
		block, err = rangelock.Open(args[0], size, cfg)
	} else {
		block, err = rangelock.Create(args[0], size, cfg)
	}
	if err != nil {
		return err
	}
	path, err := shm.Path(block.SegmentName())
	if err != nil {
		block.Close()
		return err
	}
	fmt.Printf("segment=%s path=%s created=%t data_size=%d max_locks=%d\n",
		block.SegmentName(), path, block.IsCreator(), block.DataSize(), block.MaxLocks())
	return block.Close()
}

func runInspect(cmd *cobra.Command, args []string) error {
	block, err := rangelock.Attach(args[0], cfg)
	if err != nil {
		return err
	}
	defer block.Close()
	withMetrics, _ := cmd.Flags().GetBool("metrics")
	if withMetrics {
		if _, err = block.CleanupDeadLocks(); err != nil {
			return err
		}
	}
	entries, err := block.Entries()
	if err != nil {
		return err
	}
	fmt.Printf("segment=%s data_size=%d max_locks=%d active=%d\n",
		block.SegmentName(), block.DataSize(), block.MaxLocks(), len(entries))
	if len(entries) > 0 {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SLOT\tTYPE\tSTART\tEND\tPID\tTID\tGEN\tAGE")
		now := time.Now()
		for _, e := range entries {
			fmt.Fprintf(w, "%d\t%s\t%d\t%d\t%d\t%d\t%d\t%s\n", e.SlotID, e.Type, e.StartOffset, e.End(),
				e.OwnerPID, e.OwnerTID, e.Generation, now.Sub(e.Timestamp).Truncate(time.Millisecond))
		}
		w.Flush()
	}
	if withMetrics {
		block.WritePrometheus(os.Stdout)
	}
	return nil
}

func parseRange(args []string) (offset, length uint64, err error) {
	if offset, err = parseUint("offset", args[1]); err != nil {
		return
	}
	length, err = parseUint("length", args[2])
	return
}

func runAcquire(cmd *cobra.Command, args []string) error {
	offset, length, err := parseRange(args)
	if err != nil {
		return err
	}
	typeName, _ := cmd.Flags().GetString("type")
	kind, ok := rangelock.ParseLockType(strings.ToLower(typeName))
	if !ok {
		return errors.Errorf("invalid lock type %q", typeName)
	}
	var data []byte
	if hexData, _ := cmd.Flags().GetString("data"); hexData != "" {
		if kind != rangelock.Exclusive {
			return errors.New("data can be written only under an exclusive lock")
		}
		if data, err = hex.DecodeString(hexData); err != nil {
			return errors.Wrap(err, "invalid data")
		}
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	hold, _ := cmd.Flags().GetDuration("hold")
	block, err := rangelock.Attach(args[0], cfg)
	if err != nil {
		return err
	}
	defer block.Close()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	h, err := block.AcquireLockContext(ctx, offset, length, kind, timeout)
	if err != nil {
		return err
	}
	defer h.Release()
	if len(data) > 0 {
		if err = block.Write(offset, data); err != nil {
			return err
		}
	}
	fmt.Printf("locked slot=%d type=%s range=[%d, %d)\n", h.SlotID(), h.Type(), offset, offset+length)
	if hold > 0 {
		select {
		case <-ctx.Done():
		case <-time.After(hold):
		}
	} else {
		<-ctx.Done()
	}
	return h.Release()
}

func runRead(cmd *cobra.Command, args []string) error {
	offset, length, err := parseRange(args)
	if err != nil {
		return err
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	block, err := rangelock.Attach(args[0], cfg)
	if err != nil {
		return err
	}
	defer block.Close()
	return block.WithLock(context.Background(), offset, length, rangelock.Shared, timeout, func() error {
		data, err := block.Read(offset, length)
		if err != nil {
			return err
		}
		fmt.Println(strings.ToUpper(hex.EncodeToString(data)))
		return nil
	})
}

func runWrite(cmd *cobra.Command, args []string) error {
	offset, err := parseUint("offset", args[1])
	if err != nil {
		return err
	}
	data, err := hex.DecodeString(args[2])
	if err != nil || len(data) == 0 {
		return errors.Errorf("invalid data %q", args[2])
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	block, err := rangelock.Attach(args[0], cfg)
	if err != nil {
		return err
	}
	defer block.Close()
	return block.WithLock(context.Background(), offset, uint64(len(data)), rangelock.Exclusive, timeout, func() error {
		return block.Write(offset, data)
	})
}

func runCleanup(_ *cobra.Command, args []string) error {
	block, err := rangelock.Attach(args[0], cfg)
	if err != nil {
		return err
	}
	defer block.Close()
	n, err := block.CleanupDeadLocks()
	if err != nil {
		return err
	}
	fmt.Printf("reclaimed=%d\n", n)
	return nil
}

func runUnlink(_ *cobra.Command, args []string) error {
	block, err := rangelock.Attach(args[0], cfg)
	switch {
	case err == nil:
		if entries, err := block.Entries(); err == nil && len(entries) > 0 {
			plog.Warningf("removing segment %s with %d active locks", block.SegmentName(), len(entries))
		}
		block.Close()
	case errors.Is(err, rangelock.ErrNotFound):
		return err
	}
	// segments with an incompatible format are removed as well.
	plog.Infof("removing segment %s", rangelock.SegmentName(args[0]))
	return rangelock.Remove(args[0])
}

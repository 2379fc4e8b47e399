// Copyright 2016 Aleksandr Demakin. All rights reserved.

package main

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync/atomic"
	"time"

	"github.com/nxgtw/go-shmlock/rangelock"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var stressCmd = &cobra.Command{
	Use:   "stress NAME",
	Short: "Run concurrent acquirers against a block",
	Long: `Run concurrent acquirers against a block. Each worker locks random ranges,
holds them for a short time and releases them. Timeouts and capacity
failures are counted, other errors stop the run.`,
	Args: cobra.ExactArgs(1),
	RunE: runStress,
}

func init() {
	flags := stressCmd.Flags()
	flags.Int("workers", 8, "number of concurrent acquirers")
	flags.Int("iterations", 100, "acquisitions per worker")
	flags.Uint64("length", 64, "length of locked ranges")
	flags.Float64("shared", 0.5, "fraction of shared locks")
	flags.Duration("hold", time.Millisecond, "how long each lock is held")
	flags.Duration("timeout", 0, "acquire timeout, 0 means the configured lock timeout")
	flags.Bool("metrics", false, "print block metrics in prometheus format")
}

type stressStats struct {
	acquired   atomic.Int64
	timeouts   atomic.Int64
	noCapacity atomic.Int64
}

func runStress(cmd *cobra.Command, args []string) error {
	flags := cmd.Flags()
	workers, _ := flags.GetInt("workers")
	iterations, _ := flags.GetInt("iterations")
	length, _ := flags.GetUint64("length")
	sharedRatio, _ := flags.GetFloat64("shared")
	hold, _ := flags.GetDuration("hold")
	timeout, _ := flags.GetDuration("timeout")
	withMetrics, _ := flags.GetBool("metrics")

	block, err := rangelock.Attach(args[0], cfg)
	if err != nil {
		return err
	}
	defer block.Close()
	if length == 0 || int64(length) > block.DataSize() {
		return errors.Errorf("length must be in [1, %d]", block.DataSize())
	}
	var stats stressStats
	start := time.Now()
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for j := 0; j < iterations; j++ {
				kind := rangelock.Exclusive
				if rand.Float64() < sharedRatio {
					kind = rangelock.Shared
				}
				offset := rand.Uint64N(uint64(block.DataSize()) - length + 1)
				err := block.WithLock(ctx, offset, length, kind, timeout, func() error {
					time.Sleep(hold)
					return nil
				})
				switch {
				case err == nil:
					stats.acquired.Add(1)
				case rangelock.IsRetryable(err):
					if errors.Is(err, rangelock.ErrTimeout) {
						stats.timeouts.Add(1)
					} else {
						stats.noCapacity.Add(1)
					}
				default:
					return err
				}
			}
			return nil
		})
	}
	err = g.Wait()
	elapsed := time.Since(start)
	fmt.Printf("workers=%d acquired=%d timeouts=%d no_capacity=%d elapsed=%s rate=%.0f/s\n",
		workers, stats.acquired.Load(), stats.timeouts.Load(), stats.noCapacity.Load(),
		elapsed.Truncate(time.Millisecond), float64(stats.acquired.Load())/elapsed.Seconds())
	if withMetrics {
		block.WritePrometheus(os.Stdout)
	}
	return err
}

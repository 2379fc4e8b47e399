// Copyright 2016 Aleksandr Demakin. All rights reserved.

package main

import (
	"strconv"

	"github.com/nxgtw/go-shmlock/config"
	"github.com/nxgtw/go-shmlock/internal/logging"
	"github.com/nxgtw/go-shmlock/rangelock"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	v   = config.New()
	cfg rangelock.Config

	plog = logger.GetLogger("shmlock")

	rootCmd = &cobra.Command{
		Use:   "shmlock",
		Short: "byte-range locks over shared memory blocks",
		Long: `shmlock manages shared memory blocks with byte-range locks.

Config values are read from flags, SHM_ environment variables,
.env files and an optional config file, in this order.`,
		SilenceUsage:      true,
		PersistentPreRunE: setup,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "warn", "log level: debug, info, warn, error")
	flags.String("config", "", "path to a config file")
	flags.String("lock-timeout", "", "default acquire timeout, seconds or a duration")
	flags.String("heartbeat-interval", "", "heartbeat period of held locks")
	flags.String("stale-lock-timeout", "", "age, after which a lock is reclaimed")
	flags.Int("max-locks", 0, "capacity of the lock table of new blocks")
	bindings := map[string]string{
		config.KeyLockTimeout:       "lock-timeout",
		config.KeyHeartbeatInterval: "heartbeat-interval",
		config.KeyStaleLockTimeout:  "stale-lock-timeout",
		config.KeyMaxLocks:          "max-locks",
		"log_level":                 "log-level",
		"config":                    "config",
	}
	for key, flag := range bindings {
		if err := v.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(err)
		}
	}
	rootCmd.AddCommand(createCmd, inspectCmd, acquireCmd, readCmd, writeCmd, cleanupCmd, unlinkCmd, stressCmd)
}

func setup(_ *cobra.Command, _ []string) error {
	if err := logging.Init(v.GetString("log_level")); err != nil {
		return err
	}
	config.LoadEnvFiles()
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "failed to read config file %q", path)
		}
	}
	var err error
	if cfg, err = config.FromViper(v); err != nil {
		return err
	}
	plog.Debugf("config: %+v", cfg)
	return nil
}

func parseUint(name, value string) (uint64, error) {
	result, err := strconv.ParseUint(value, 0, 64)
	if err != nil {
		return 0, errors.Errorf("invalid %s %q", name, value)
	}
	return result, nil
}

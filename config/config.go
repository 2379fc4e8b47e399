// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package config loads rangelock.Config from a config file, .env files and SHM_ environment variables.
package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/nxgtw/go-shmlock/rangelock"

	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables, e.g. SHM_LOCK_TIMEOUT.
const EnvPrefix = "SHM"

// Keys of config values.
const (
	KeyLockTimeout       = "lock_timeout"
	KeyHeartbeatInterval = "heartbeat_interval"
	KeyStaleLockTimeout  = "stale_lock_timeout"
	KeyMaxLocks          = "max_locks"
)

var plog = logger.GetLogger("config")

// LoadEnvFiles loads .env and .env.local from the working directory, if they exist.
// Variables, which are already set, are not overridden.
func LoadEnvFiles() {
	for _, file := range []string{".env", ".env.local"} {
		if err := godotenv.Load(file); err == nil {
			plog.Debugf("loaded %s", file)
		}
	}
}

// New returns a viper instance with defaults and environment bindings for all keys.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults sets default values from rangelock.DefaultConfig.
func SetDefaults(v *viper.Viper) {
	def := rangelock.DefaultConfig()
	v.SetDefault(KeyLockTimeout, def.LockTimeout.String())
	v.SetDefault(KeyHeartbeatInterval, def.HeartbeatInterval.String())
	v.SetDefault(KeyStaleLockTimeout, def.StaleLockTimeout.String())
	v.SetDefault(KeyMaxLocks, def.MaxLocks)
}

// Load builds a config from the file at path (may be empty), .env files and environment.
// Environment variables take precedence over the file.
func Load(path string) (rangelock.Config, error) {
	LoadEnvFiles()
	v := New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return rangelock.Config{}, errors.Wrapf(err, "failed to read config file %q", path)
		}
	}
	return FromViper(v)
}

// FromViper reads and validates a config from v.
func FromViper(v *viper.Viper) (rangelock.Config, error) {
	var cfg rangelock.Config
	var err error
	if cfg.LockTimeout, err = Duration(v, KeyLockTimeout); err != nil {
		return cfg, err
	}
	if cfg.HeartbeatInterval, err = Duration(v, KeyHeartbeatInterval); err != nil {
		return cfg, err
	}
	if cfg.StaleLockTimeout, err = Duration(v, KeyStaleLockTimeout); err != nil {
		return cfg, err
	}
	maxLocks := strings.TrimSpace(v.GetString(KeyMaxLocks))
	if cfg.MaxLocks, err = strconv.Atoi(maxLocks); err != nil {
		return cfg, errors.Wrapf(rangelock.ErrInvalidConfig, "%s: invalid number %q", KeyMaxLocks, maxLocks)
	}
	if err = cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Duration reads a duration value. Bare numbers are seconds and may be fractional,
// other values are parsed with time.ParseDuration.
func Duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	d, err := ParseDuration(raw)
	if err != nil {
		return 0, errors.Wrapf(rangelock.ErrInvalidConfig, "%s: %v", key, err)
	}
	return d, nil
}

// ParseDuration parses "1.5" as 1.5 seconds, and "1500ms" as a go duration.
func ParseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if sec, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(sec * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

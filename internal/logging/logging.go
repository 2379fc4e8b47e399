// Copyright 2016 Aleksandr Demakin. All rights reserved.

// Package logging installs a leveled logger factory for the packages of this module.
// Packages obtain their loggers with logger.GetLogger from dragonboat's logger facade.
package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/pkg/errors"
)

// Packages lists logger names used by this module.
var Packages = []string{"rangelock", "config", "shmlock"}

var installOnce sync.Once

type leveledLogger struct {
	mu     sync.Mutex
	name   string
	level  logger.LogLevel
	logger *log.Logger
}

func (l *leveledLogger) SetLevel(level logger.LogLevel) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

func (l *leveledLogger) enabled(level logger.LogLevel) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level >= level
}

func (l *leveledLogger) Debugf(format string, args ...interface{}) {
	if l.enabled(logger.DEBUG) {
		l.log("DEBUG", format, args...)
	}
}

func (l *leveledLogger) Infof(format string, args ...interface{}) {
	if l.enabled(logger.INFO) {
		l.log("INFO", format, args...)
	}
}

func (l *leveledLogger) Warningf(format string, args ...interface{}) {
	if l.enabled(logger.WARNING) {
		l.log("WARN", format, args...)
	}
}

func (l *leveledLogger) Errorf(format string, args ...interface{}) {
	if l.enabled(logger.ERROR) {
		l.log("ERROR", format, args...)
	}
}

func (l *leveledLogger) Panicf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	l.log("PANIC", "%s", msg)
	panic(msg)
}

func (l *leveledLogger) log(levelStr string, format string, args ...interface{}) {
	l.logger.Printf("%-5s | %-10s | %s", levelStr, l.name, fmt.Sprintf(format, args...))
}

// NewFactory returns a logger factory, which writes to w with the given initial level.
func NewFactory(w io.Writer, level logger.LogLevel) logger.Factory {
	return func(pkgName string) logger.ILogger {
		return &leveledLogger{
			name:   pkgName,
			level:  level,
			logger: log.New(w, "", log.Ldate|log.Ltime|log.Lmicroseconds),
		}
	}
}

// ParseLevel converts a level name to logger.LogLevel.
func ParseLevel(level string) (logger.LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logger.DEBUG, nil
	case "info", "":
		return logger.INFO, nil
	case "warning", "warn":
		return logger.WARNING, nil
	case "error":
		return logger.ERROR, nil
	case "critical", "panic":
		return logger.CRITICAL, nil
	default:
		return logger.INFO, errors.Errorf("invalid log level %q, must be one of debug, info, warn, error", level)
	}
}

// Init sets the global logger factory, which writes to stderr,
// and sets the given level for all loggers of this module.
// It should be called before any logger is used. Subsequent calls only change the level.
func Init(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	installOnce.Do(func() {
		logger.SetLoggerFactory(NewFactory(os.Stderr, lvl))
	})
	SetLevel(lvl)
	return nil
}

// SetLevel changes the level of all loggers of this module.
func SetLevel(level logger.LogLevel) {
	for _, name := range Packages {
		logger.GetLogger(name).SetLevel(level)
	}
}

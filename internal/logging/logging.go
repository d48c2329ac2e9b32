// Package logging provides the process-wide zap logger.
//
// Until Init is called every helper logs to a no-op logger, so library
// packages and tests stay quiet.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu           sync.RWMutex
	globalLogger = zap.NewNop()
	globalLevel  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
)

// Config holds logging configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json, console
	OutputPath string // stdout, stderr, or file path
}

// Init initializes the global logger.
func Init(cfg Config) error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var config zap.Config
	if cfg.Format == "json" {
		config = zap.NewProductionConfig()
	} else {
		config = zap.NewDevelopmentConfig()
		config.DisableStacktrace = true
	}

	globalLevel.SetLevel(level)
	config.Level = globalLevel
	if cfg.OutputPath != "" {
		config.OutputPaths = []string{cfg.OutputPath}
	}

	logger, err := config.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return err
	}

	Set(logger)
	return nil
}

// Set replaces the global logger. Passing nil restores the no-op logger.
func Set(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	mu.Lock()
	globalLogger = l
	mu.Unlock()
}

// Sync flushes any buffered log entries.
func Sync() error {
	return L().Sync()
}

// SetLevel changes the global log level at runtime.
func SetLevel(level string) {
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return
	}
	globalLevel.SetLevel(l)
}

// L returns the global logger.
func L() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return globalLogger
}

// Named returns a child of the global logger for one subsystem.
func Named(name string) *zap.Logger {
	return L().Named(name)
}

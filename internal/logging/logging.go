// Package logging configures the process-wide zap logger and hands out
// per-component named loggers.
package logging

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu   sync.Mutex
	root *zap.Logger
)

// Init builds the root logger at the given level ("debug", "info", "warn",
// "error"). Safe to call more than once; the last call wins.
func Init(level string) error {
	lvl, err := parseLevel(level)
	if err != nil {
		return err
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(lvl)
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	mu.Lock()
	root = logger
	mu.Unlock()
	return nil
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	}
	return 0, fmt.Errorf("unknown log level: %q", level)
}

// Named returns a component-scoped logger. Usable before Init; falls back to
// a no-op logger so library code never needs a nil check.
func Named(component string) *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		return zap.NewNop().Named(component)
	}
	return root.Named(component)
}

// Sync flushes buffered log entries. Intended for process shutdown.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if root != nil {
		_ = root.Sync()
	}
}

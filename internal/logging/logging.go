// Package logging configures the process-wide zap logger.
// The logger is built once at startup; components grab named sugared
// loggers from it instead of constructing their own.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger = zap.NewNop()

// Init builds the process logger. Verbose enables debug level.
func Init(verbose bool) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if verbose {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	l, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger = l
	return l, nil
}

// L returns the process logger.
func L() *zap.Logger {
	return logger
}

// Named returns a component-scoped sugared logger.
func Named(component string) *zap.SugaredLogger {
	return logger.Named(component).Sugar()
}

// Sync flushes buffered log entries. Safe to call on exit paths.
func Sync() {
	_ = logger.Sync()
}

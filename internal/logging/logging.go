// Package logging provides the per-scope structured logger used across
// PRISM, replacing the source's global tracer singleton (spec.md 9,
// "Global mutable singletons for configuration and tracer") with an
// explicit handle threaded through constructors.
package logging

import (
	"go.uber.org/zap"
)

// Logger wraps a zap.SugaredLogger scoped to one component instance
// (a role, an epoch, a client pipeline stage).
type Logger struct {
	*zap.SugaredLogger
}

// New builds a Logger for the given component name at the given level.
// debug=true enables debug-level output; otherwise info and above.
func New(component string, debug bool) *Logger {
	cfg := zap.NewProductionConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	base, err := cfg.Build()
	if err != nil {
		base = zap.NewNop()
	}
	return &Logger{base.Sugar().Named(component)}
}

// Nop returns a Logger that discards everything, for tests.
func Nop() *Logger {
	return &Logger{zap.NewNop().Sugar()}
}

// With returns a child logger carrying additional structured fields.
func (l *Logger) With(args ...interface{}) *Logger {
	return &Logger{l.SugaredLogger.With(args...)}
}

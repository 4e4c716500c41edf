package logging

import "github.com/vvka-141/pgdock/pkg/pgdock"

// NullLogger discards all log messages. Safe for concurrent use.
// Useful for tests and when logging is not desired.
type NullLogger struct{}

// NewNullLogger creates a new NullLogger.
func NewNullLogger() *NullLogger {
	return &NullLogger{}
}

// Verbose is a no-op.
func (l *NullLogger) Verbose(format string, args ...interface{}) {}

// Info is a no-op.
func (l *NullLogger) Info(format string, args ...interface{}) {}

// Error is a no-op.
func (l *NullLogger) Error(format string, args ...interface{}) {}

var _ pgdock.Logger = (*NullLogger)(nil)

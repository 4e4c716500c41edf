package pgdock

// Logger provides a pluggable logging interface for connector internals.
// Implementations must be safe for concurrent use by multiple goroutines.
// See the internal/logging package for console and null implementations.
type Logger interface {
	// Verbose logs detailed diagnostic information.
	// Only logged when verbose mode is enabled.
	Verbose(format string, args ...interface{})

	// Info logs informational messages about normal operations.
	Info(format string, args ...interface{})

	// Error logs error messages.
	Error(format string, args ...interface{})
}

// nopLogger is used when a caller passes a nil Logger.
type nopLogger struct{}

func (nopLogger) Verbose(format string, args ...interface{}) {}
func (nopLogger) Info(format string, args ...interface{})    {}
func (nopLogger) Error(format string, args ...interface{})   {}

func orNopLogger(l Logger) Logger {
	if l == nil {
		return nopLogger{}
	}
	return l
}

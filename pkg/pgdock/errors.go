package pgdock

import (
	"errors"
	"strings"
)

// Sentinel errors classifying every failure the connector can surface.
// Callers distinguish failure classes with errors.Is().
//
// Example usage:
//
//	rows, err := pool.Query(ctx, sql)
//	if errors.Is(err, pgdock.ErrTimeout) {
//	    // The deadline elapsed; the server may still be working.
//	}
var (
	// ErrPool indicates a session could not be acquired from the pool.
	ErrPool = errors.New("connection pool error")

	// ErrQuery indicates the driver or server rejected a statement.
	ErrQuery = errors.New("query execution error")

	// ErrTimeout indicates a deadline elapsed before the operation completed.
	// The server-side operation is not guaranteed to have been cancelled.
	ErrTimeout = errors.New("operation timed out")

	// ErrTypeConversion indicates a value could not be classified, encoded,
	// or decoded.
	ErrTypeConversion = errors.New("type conversion error")

	// ErrConfig indicates the provided configuration is invalid.
	ErrConfig = errors.New("invalid configuration")

	// ErrConnection indicates session establishment failed.
	ErrConnection = errors.New("connection failed")

	// ErrClosed indicates an operation was attempted on a closed
	// Connection or Pool.
	ErrClosed = errors.New("connection closed")
)

// ExitCodeForError returns the appropriate process exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	errStr := err.Error()
	if strings.Contains(errStr, "unknown flag") ||
		strings.Contains(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "unknown command") ||
		strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "required flag") ||
		strings.Contains(errStr, "accepts ") {
		return ExitUsageError
	}

	switch {
	case errors.Is(err, ErrConfig):
		return ExitConfigError
	case errors.Is(err, ErrConnection), errors.Is(err, ErrPool), errors.Is(err, ErrClosed):
		return ExitConnectionError
	case errors.Is(err, ErrTimeout):
		return ExitTimeout
	case errors.Is(err, ErrTypeConversion):
		return ExitConversionError
	case errors.Is(err, ErrQuery):
		return ExitQueryError
	}

	// Driver errors that escaped classification still read as connection
	// problems to the operator.
	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}

package pgdock

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Operation completed successfully
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or connection string
	ExitConnectionError = 11 // Failed to connect or acquire a session
	ExitQueryError      = 12 // Statement execution failed
	ExitTimeout         = 13 // Deadline elapsed
	ExitConversionError = 14 // Parameter or result value conversion failed
)

const (
	// DefaultPort is the PostgreSQL server port used when a connection
	// string does not specify one.
	DefaultPort = 5432

	// DefaultUser is the database user used when a connection string does
	// not specify one.
	DefaultUser = "postgres"

	// DefaultDatabase is the database name used when a connection string
	// does not specify one.
	DefaultDatabase = "postgres"

	// DefaultPoolSize is the maximum number of concurrently open sessions
	// for a Pool built from a connection string.
	DefaultPoolSize = 10

	// DefaultConnectTimeout bounds session establishment (handshake + auth)
	// and pool acquisition waits.
	DefaultConnectTimeout = 30 * time.Second

	// DefaultStatementTimeout bounds any single statement's execution
	// wall time.
	DefaultStatementTimeout = 30 * time.Second

	// HealthCheckTimeout bounds IsHealthy's acquisition and round trip.
	// Deliberately independent of the configured statement timeout so a
	// generous statement budget does not mask a dead pool.
	HealthCheckTimeout = 5 * time.Second
)

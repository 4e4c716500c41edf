package pgdock

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Connector is a unified interface for establishing pooled database
// sessions. The standard username/password implementation lives here;
// cloud IAM implementations live in the cloudauth package.
type Connector interface {
	// Connect establishes a connection pool to the database.
	// The returned pool is closed by the owning Pool.
	Connect(ctx context.Context) (*pgxpool.Pool, error)
}

// StandardConnector implements Connector for username/password
// authentication.
type StandardConnector struct {
	config *Config
}

// NewStandardConnector creates a StandardConnector for the given config.
func NewStandardConnector(config *Config) *StandardConnector {
	return &StandardConnector{config: config}
}

// Connect establishes a connection pool using standard authentication.
// No retry: establishment failures surface to the caller immediately.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	poolConfig, err := poolConfig(c.config)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, WrapConnectError(err, c.config.Host, c.config.Port, c.config.Database)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, WrapConnectError(err, c.config.Host, c.config.Port, c.config.Database)
	}

	return pool, nil
}

var _ Connector = (*StandardConnector)(nil)

// poolConfig translates a Config into driver pool settings.
func poolConfig(cfg *Config) (*pgxpool.Config, error) {
	pc, err := pgxpool.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %v: %w", err, ErrConfig)
	}

	pc.MaxConns = int32(cfg.PoolSize)
	applyTLSOptions(pc.ConnConfig, cfg)
	return pc, nil
}

// connConfig translates a Config into single-session driver settings.
func connConfig(cfg *Config) (*pgx.ConnConfig, error) {
	cc, err := pgx.ParseConfig(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection config: %v: %w", err, ErrConfig)
	}

	applyTLSOptions(cc, cfg)
	return cc, nil
}

// applyTLSOptions adjusts the driver's TLS settings after the sslmode in
// the connection string has shaped them. TLS material construction itself
// is the driver's business.
func applyTLSOptions(cc *pgx.ConnConfig, cfg *Config) {
	if !cfg.AcceptInvalidCerts {
		return
	}
	if cc.TLSConfig != nil {
		cc.TLSConfig.InsecureSkipVerify = true
	}
	for _, fallback := range cc.Fallbacks {
		if fallback.TLSConfig != nil {
			fallback.TLSConfig.InsecureSkipVerify = true
		}
	}
}

// WrapConnectError wraps raw driver connection errors with actionable
// guidance. Used only at session establishment; the execution path keeps
// driver errors verbatim under ErrQuery.
func WrapConnectError(err error, host string, port uint16, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`%w: connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port
  - Firewall blocking the connection

Original error: %v`, ErrConnection, addr, host, port, err)

	case strings.Contains(errStr, "no such host") || strings.Contains(errStr, "no host"):
		return fmt.Errorf(`%w: cannot resolve host %q

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable

Original error: %v`, ErrConnection, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`%w: password authentication failed for database %q

Possible causes:
  - Wrong password (check $PGPASSWORD)
  - Wrong username
  - User does not have access to the database

Original error: %v`, ErrConnection, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out") ||
		strings.Contains(errStr, "context deadline exceeded"):
		return fmt.Errorf(`%w: connection to %s timed out

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %v`, ErrTimeout, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`%w: SSL/TLS negotiation failed

Possible causes:
  - Server requires SSL but ssl_mode is Disable
  - Certificate verification failed (AcceptInvalidCerts skips it)

Original error: %v`, ErrConnection, err)

	default:
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
}

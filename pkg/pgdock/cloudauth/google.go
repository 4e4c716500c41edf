package cloudauth

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgdock/pkg/pgdock"
)

// GoogleCloudSQLConnector implements pgdock.Connector for Google Cloud
// SQL using IAM database authentication via the Cloud SQL Go Connector.
//
// Implements io.Closer: the caller must Close() the connector after the
// pool it produced is closed, to release the dialer.
type GoogleCloudSQLConnector struct {
	cfg      *pgdock.Config
	instance string
	dialer   *cloudsqlconn.Dialer
}

// NewGoogleCloudSQLConnector creates a connector for Google Cloud SQL IAM
// authentication. instance is the instance connection name in
// project:region:instance form.
func NewGoogleCloudSQLConnector(cfg *pgdock.Config, instance string) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{cfg: cfg, instance: instance}
}

// Connect establishes a pool through the Cloud SQL dialer, which handles
// authentication and TLS itself.
func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("creating Cloud SQL dialer: %v: %w", err, pgdock.ErrConnection)
	}

	dsn := fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable",
		c.instance, c.cfg.User, c.cfg.Database)

	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("parsing connection config: %v: %w", err, pgdock.ErrConfig)
	}

	poolConfig.MaxConns = int32(c.cfg.PoolSize)
	poolConfig.ConnConfig.DialFunc = func(ctx context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(ctx, c.instance)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		dialer.Close()
		return nil, fmt.Errorf("%w: %v", pgdock.ErrConnection, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		dialer.Close()
		return nil, fmt.Errorf("%w: %v", pgdock.ErrConnection, err)
	}

	c.dialer = dialer
	return pool, nil
}

// Close releases the Cloud SQL dialer. Must be called after the pool
// returned by Connect is closed.
func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer != nil {
		c.dialer.Close()
		c.dialer = nil
	}
	return nil
}

var _ pgdock.Connector = (*GoogleCloudSQLConnector)(nil)

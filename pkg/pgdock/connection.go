package pgdock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/vvka-141/pgdock/internal/bridge"
)

// connState is the Connection lifecycle. Closed is terminal; there is no
// reopening.
type connState int

const (
	stateConnecting connState = iota
	stateOpen
	stateClosed
)

// watchInterval is how often the liveness watcher inspects the session.
const watchInterval = 30 * time.Second

// Connection is a single exclusive database session. Operations serialize
// on a session token, so concurrent calls on one Connection never race on
// the session; use a Pool for parallelism.
//
// The token is returned by the op goroutine itself, not by run after the
// deadline. A timed-out operation therefore keeps exclusive use of the
// session until it actually finishes, while its caller has already
// returned.
type Connection struct {
	mu        sync.Mutex
	state     connState
	sess      *pgx.Conn
	cfg       *Config
	runner    *bridge.Runner
	logger    Logger
	sem       chan struct{}
	watchQuit chan struct{}
}

// Connect establishes a single exclusive session. The TLS handshake and
// authentication must complete within the connect timeout; elapse yields
// ErrTimeout, any other handshake failure yields a connection error.
// logger may be nil.
func Connect(ctx context.Context, cfg *Config, logger Logger) (*Connection, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cc, err := connConfig(cfg)
	if err != nil {
		return nil, err
	}

	logger = orNopLogger(logger)
	runner := bridge.New()

	c := &Connection{
		state:     stateConnecting,
		cfg:       cfg,
		runner:    runner,
		logger:    logger,
		sem:       make(chan struct{}, 1),
		watchQuit: make(chan struct{}),
	}

	var sess *pgx.Conn
	err = runner.Run(ctx, cfg.ConnectTimeout, func(ctx context.Context) error {
		s, err := pgx.ConnectConfig(ctx, cc)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			// The caller already gave up; don't leak the session it will
			// never see.
			s.Close(context.Background())
			return ctx.Err()
		}
		sess = s
		return nil
	})
	if err != nil {
		runner.Close()
		if errors.Is(err, bridge.ErrDeadline) {
			return nil, fmt.Errorf("connection timed out after %s: %w", cfg.ConnectTimeout, ErrTimeout)
		}
		return nil, WrapConnectError(err, cfg.Host, cfg.Port, cfg.Database)
	}

	c.mu.Lock()
	c.sess = sess
	c.state = stateOpen
	c.mu.Unlock()

	go c.watch()

	logger.Verbose("connection open: %s", cfg)
	return c, nil
}

// ConnectURL establishes a single exclusive session from a connection URL.
func ConnectURL(ctx context.Context, connStr string, logger Logger) (*Connection, error) {
	cfg, err := ParseURL(connStr)
	if err != nil {
		return nil, err
	}
	return Connect(ctx, cfg, logger)
}

// watch periodically inspects the session for driver-reported death. A
// dead session is logged, never auto-closed: the Connection stays Open
// until the owner calls Close, and the next operation surfaces the
// failure.
func (c *Connection) watch() {
	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()

	reported := false
	for {
		select {
		case <-c.watchQuit:
			return
		case <-ticker.C:
			c.mu.Lock()
			dead := c.state == stateOpen && c.sess.IsClosed()
			c.mu.Unlock()
			if dead && !reported {
				reported = true
				c.logger.Error("session I/O has failed; close the connection explicitly")
			}
		}
	}
}

// session returns the live session or an error when the Connection is not
// Open. Callers must hold c.mu.
func (c *Connection) session() (*pgx.Conn, error) {
	switch c.state {
	case stateOpen:
		return c.sess, nil
	case stateClosed:
		return nil, fmt.Errorf("operation on closed connection: %w", ErrClosed)
	default:
		return nil, fmt.Errorf("connection not yet established: %w", ErrConnection)
	}
}

// run serializes an operation on the session under the statement timeout.
// The session token is taken here and handed to the op goroutine, which
// returns it only when the operation has actually finished; a deadline
// expiry returns control to the caller without freeing the session.
func (c *Connection) run(ctx context.Context, what string, op func(context.Context, *pgx.Conn) error) error {
	c.sem <- struct{}{}

	c.mu.Lock()
	sess, err := c.session()
	c.mu.Unlock()
	if err != nil {
		<-c.sem
		return err
	}

	err = c.runner.Run(ctx, c.cfg.StatementTimeout, func(ctx context.Context) error {
		defer func() { <-c.sem }()
		return op(ctx, sess)
	})
	switch {
	case errors.Is(err, bridge.ErrDeadline):
		return fmt.Errorf("%s timed out after %s: %w", what, c.cfg.StatementTimeout, ErrTimeout)
	case errors.Is(err, bridge.ErrRunnerClosed):
		return fmt.Errorf("%s aborted: %w", what, ErrClosed)
	default:
		return err
	}
}

// Query executes sql and returns all result rows decoded into the generic
// value form.
func (c *Connection) Query(ctx context.Context, sql string, params ...any) ([]Row, error) {
	args, err := EncodeParams(params)
	if err != nil {
		return nil, err
	}

	var out []Row
	err = c.run(ctx, "query", func(ctx context.Context, sess *pgx.Conn) error {
		rows, err := sess.Query(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("%v: %w", err, ErrQuery)
		}
		defer rows.Close()
		out, err = decodeRows(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Execute runs a statement that returns no rows and reports the
// affected-row count.
func (c *Connection) Execute(ctx context.Context, sql string, params ...any) (int64, error) {
	args, err := EncodeParams(params)
	if err != nil {
		return 0, err
	}

	var count int64
	err = c.run(ctx, "execute", func(ctx context.Context, sess *pgx.Conn) error {
		tag, err := sess.Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("%v: %w", err, ErrQuery)
		}
		count = tag.RowsAffected()
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// IsClosed reports whether the Connection has been closed.
func (c *Connection) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateClosed
}

// Close transitions the Connection to its terminal state and releases the
// session. It waits for any in-flight operation to finish with the
// session before tearing it down. Idempotent; never errors on repeat
// calls.
func (c *Connection) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.state == stateClosed {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	c.sem <- struct{}{}

	c.mu.Lock()
	if c.state == stateClosed {
		// Lost a race with a concurrent Close.
		c.mu.Unlock()
		<-c.sem
		return nil
	}
	c.state = stateClosed
	sess := c.sess
	c.sess = nil
	close(c.watchQuit)
	c.mu.Unlock()

	var err error
	if sess != nil {
		err = sess.Close(ctx)
	}
	c.runner.Close()
	<-c.sem
	c.logger.Verbose("connection closed")
	return err
}

// String describes the connection for logs.
func (c *Connection) String() string {
	return fmt.Sprintf("Connection(closed=%t)", c.IsClosed())
}

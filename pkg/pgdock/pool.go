package pgdock

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/vvka-141/pgdock/internal/bridge"
)

// Statement pairs SQL text with its parameters for ExecuteMany.
type Statement struct {
	SQL    string
	Params []any
}

// PoolStatus is a point-in-time snapshot of pool occupancy. Values may be
// stale by the time the caller reads them.
type PoolStatus struct {
	// Size is the number of currently open sessions.
	Size int
	// Available is the number of open sessions not checked out.
	Available int
	// Waiting is the number of callers currently inside session
	// acquisition. This over-counts momentarily: a caller handed an idle
	// session immediately is still counted for the duration of the
	// checkout, not only while blocked.
	Waiting int
}

// Pool manages a bounded set of database sessions shared across
// concurrent callers. Operations may run fully concurrently up to the
// configured size; beyond that, callers queue for a freed session.
//
// Safe for concurrent use.
type Pool struct {
	cfg     *Config
	pool    *pgxpool.Pool
	runner  *bridge.Runner
	logger  Logger
	waiting atomic.Int64
	closed  atomic.Bool
}

// NewPool creates a Pool using standard authentication. logger may be nil.
func NewPool(ctx context.Context, cfg *Config, logger Logger) (*Pool, error) {
	return NewPoolWithConnector(ctx, cfg, NewStandardConnector(cfg), logger)
}

// NewPoolWithConnector creates a Pool whose sessions are established by
// the given Connector. Used with the cloudauth connectors for IAM-based
// authentication.
func NewPoolWithConnector(ctx context.Context, cfg *Config, connector Connector, logger Logger) (*Pool, error) {
	if err := cfg.ValidateForPool(); err != nil {
		return nil, err
	}

	logger = orNopLogger(logger)
	runner := bridge.New()

	var pgPool *pgxpool.Pool
	err := runner.Run(ctx, cfg.ConnectTimeout, func(ctx context.Context) error {
		p, err := connector.Connect(ctx)
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			// The caller already gave up on this attempt; don't leak the
			// pool it will never see.
			p.Close()
			return ctx.Err()
		}
		pgPool = p
		return nil
	})
	if err != nil {
		runner.Close()
		if errors.Is(err, bridge.ErrDeadline) {
			return nil, fmt.Errorf("pool connection timed out after %s: %w", cfg.ConnectTimeout, ErrTimeout)
		}
		return nil, err
	}

	logger.Verbose("pool ready: %s", cfg)
	return &Pool{cfg: cfg, pool: pgPool, runner: runner, logger: logger}, nil
}

// NewPoolURL creates a Pool from a connection URL, with default pool size
// and statement timeout.
func NewPoolURL(ctx context.Context, connStr string, logger Logger) (*Pool, error) {
	cfg, err := ParseURL(connStr)
	if err != nil {
		return nil, err
	}
	return NewPool(ctx, cfg, logger)
}

// acquire checks a session out of the pool. Waits are bounded by the
// connect timeout rather than the statement timeout, so a slow statement
// budget cannot turn pool exhaustion into an unbounded hang.
//
// The returned session must be released by the op closure that uses it,
// never by the caller: a timed-out Run returns while the operation may
// still be mid-statement, and a caller-side release would hand a busy
// session back to the pool while the op goroutine is still on it.
func (p *Pool) acquire(ctx context.Context) (*pgxpool.Conn, error) {
	if p.closed.Load() {
		return nil, fmt.Errorf("pool is closed: %w", ErrClosed)
	}

	acqCtx, cancel := context.WithTimeout(ctx, p.cfg.ConnectTimeout)
	defer cancel()

	p.waiting.Add(1)
	defer p.waiting.Add(-1)

	conn, err := p.pool.Acquire(acqCtx)
	if err != nil {
		return nil, fmt.Errorf("acquiring session: %v: %w", err, ErrPool)
	}
	return conn, nil
}

// run executes op under the statement timeout, translating bridge
// sentinels into the public error taxonomy.
func (p *Pool) run(ctx context.Context, what string, op func(context.Context) error) error {
	return p.translate(what, p.cfg.StatementTimeout, p.runner.Run(ctx, p.cfg.StatementTimeout, op))
}

func (p *Pool) translate(what string, timeout time.Duration, err error) error {
	switch {
	case errors.Is(err, bridge.ErrDeadline):
		return fmt.Errorf("%s timed out after %s: %w", what, timeout, ErrTimeout)
	case errors.Is(err, bridge.ErrRunnerClosed):
		return fmt.Errorf("%s aborted: %w", what, ErrClosed)
	default:
		return err
	}
}

// execBounded runs a single statement under its own statement-timeout
// context. A statement-level expiry is reported as ErrTimeout with the
// driver error flattened to text, so it travels back through the op's
// own result instead of being mistaken for the whole operation expiring.
func (p *Pool) execBounded(ctx context.Context, exec func(context.Context) (pgconn.CommandTag, error)) (int64, error) {
	stmtCtx, cancel := context.WithTimeout(ctx, p.cfg.StatementTimeout)
	defer cancel()

	tag, err := exec(stmtCtx)
	if err != nil {
		if stmtCtx.Err() != nil && ctx.Err() == nil {
			return 0, fmt.Errorf("timed out after %s: %v: %w", p.cfg.StatementTimeout, err, ErrTimeout)
		}
		return 0, fmt.Errorf("%v: %w", err, ErrQuery)
	}
	return tag.RowsAffected(), nil
}

// Query executes sql and returns all result rows decoded into the generic
// value form.
func (p *Pool) Query(ctx context.Context, sql string, params ...any) ([]Row, error) {
	args, err := EncodeParams(params)
	if err != nil {
		return nil, err
	}

	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}

	var out []Row
	err = p.run(ctx, "query", func(ctx context.Context) error {
		defer conn.Release()
		rows, err := conn.Query(ctx, sql, args...)
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

// Execute runs a statement that returns no rows (INSERT, UPDATE, DELETE)
// and reports the affected-row count.
func (p *Pool) Execute(ctx context.Context, sql string, params ...any) (int64, error) {
	args, err := EncodeParams(params)
	if err != nil {
		return 0, err
	}

	conn, err := p.acquire(ctx)
	if err != nil {
		return 0, err
	}

	var count int64
	err = p.run(ctx, "execute", func(ctx context.Context) error {
		defer conn.Release()
		tag, err := conn.Exec(ctx, sql, args...)
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

// ExecuteMany runs all statements on one session inside a single
// transaction and returns the per-statement affected-row counts. The
// transaction commits only if every statement succeeds; the first failure
// aborts the call, rolls back, and surfaces that statement's error.
// Each statement is individually bounded by the statement timeout; the
// operation as a whole carries a proportional backstop so a driver that
// ignores cancellation cannot hang the caller forever.
//
// The entire transaction runs in one op goroutine, which owns the
// session, the transaction, and their cleanup. A timed-out call returns
// immediately while that goroutine drains, rolls back, and releases.
func (p *Pool) ExecuteMany(ctx context.Context, statements []Statement) ([]int64, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return nil, err
	}

	budget := p.cfg.StatementTimeout * time.Duration(len(statements)+2)
	counts := make([]int64, 0, len(statements))
	err = p.runner.Run(ctx, budget, func(ctx context.Context) error {
		defer conn.Release()

		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("beginning transaction: %v: %w", err, ErrQuery)
		}
		// No-op once committed.
		defer tx.Rollback(context.Background()) //nolint:errcheck

		for i, stmt := range statements {
			args, err := EncodeParams(stmt.Params)
			if err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
			count, err := p.execBounded(ctx, func(stmtCtx context.Context) (pgconn.CommandTag, error) {
				return tx.Exec(stmtCtx, stmt.SQL, args...)
			})
			if err != nil {
				return fmt.Errorf("statement %d: %w", i+1, err)
			}
			counts = append(counts, count)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("committing transaction: %v: %w", err, ErrQuery)
		}
		return nil
	})
	if err != nil {
		return nil, p.translate("transaction", budget, err)
	}
	return counts, nil
}

// ExecuteBatch prepares sql once on a single session, re-executes the
// prepared statement once per parameter set, and returns the summed
// affected-row count. Unlike ExecuteMany this is NOT wrapped in a
// transaction: each execution commits at the session's autocommit
// granularity, so a mid-batch failure leaves earlier executions applied
// and the partial total is returned alongside the error.
//
// Like ExecuteMany, the batch runs in one op goroutine that owns the
// session and the prepared statement. The running total is owned by that
// goroutine too; the caller reads it only after the op has finished,
// which is why a backstop expiry reports a zero total.
func (p *Pool) ExecuteBatch(ctx context.Context, sql string, paramsList [][]any) (int64, error) {
	conn, err := p.acquire(ctx)
	if err != nil {
		return 0, err
	}

	const stmtName = "pgdock_batch"
	budget := p.cfg.StatementTimeout * time.Duration(len(paramsList)+2)
	var total int64
	err = p.runner.Run(ctx, budget, func(ctx context.Context) error {
		defer conn.Release()

		if _, err := conn.Conn().Prepare(ctx, stmtName, sql); err != nil {
			return fmt.Errorf("preparing statement: %v: %w", err, ErrQuery)
		}
		defer conn.Conn().Deallocate(context.Background(), stmtName) //nolint:errcheck

		for i, params := range paramsList {
			args, err := EncodeParams(params)
			if err != nil {
				return fmt.Errorf("parameter set %d: %w", i+1, err)
			}
			count, err := p.execBounded(ctx, func(stmtCtx context.Context) (pgconn.CommandTag, error) {
				return conn.Exec(stmtCtx, stmtName, args...)
			})
			if err != nil {
				return fmt.Errorf("parameter set %d: %w", i+1, err)
			}
			total += count
		}
		return nil
	})
	switch {
	case errors.Is(err, bridge.ErrDeadline), errors.Is(err, bridge.ErrRunnerClosed):
		// The op may still be running and still owns total.
		return 0, p.translate("batch", budget, err)
	case err != nil:
		return total, err
	}
	return total, nil
}

// ExecuteRaw sends a verbatim, possibly multi-statement script to the
// server (schema migrations, bulk DDL). No parameter binding, no
// structured result.
func (p *Pool) ExecuteRaw(ctx context.Context, sql string) error {
	conn, err := p.acquire(ctx)
	if err != nil {
		return err
	}

	return p.run(ctx, "raw script", func(ctx context.Context) error {
		defer conn.Release()
		mrr := conn.Conn().PgConn().Exec(ctx, sql)
		if _, err := mrr.ReadAll(); err != nil {
			return fmt.Errorf("%v: %w", err, ErrQuery)
		}
		return nil
	})
}

// FetchOne executes sql and returns the first row, or nil when the result
// set is empty.
func (p *Pool) FetchOne(ctx context.Context, sql string, params ...any) (*Row, error) {
	rows, err := p.Query(ctx, sql, params...)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// IsHealthy acquires a session and performs a trivial round trip, bounded
// by HealthCheckTimeout regardless of the configured statement timeout.
// Any failure reports unhealthy; nothing is raised as an error.
func (p *Pool) IsHealthy(ctx context.Context) bool {
	if p.closed.Load() {
		return false
	}

	acqCtx, cancel := context.WithTimeout(ctx, HealthCheckTimeout)
	defer cancel()

	conn, err := p.pool.Acquire(acqCtx)
	if err != nil {
		return false
	}

	err = p.runner.Run(ctx, HealthCheckTimeout, func(ctx context.Context) error {
		defer conn.Release()
		var one int
		return conn.QueryRow(ctx, "SELECT 1").Scan(&one)
	})
	return err == nil
}

// Status returns a point-in-time snapshot of pool occupancy.
func (p *Pool) Status() PoolStatus {
	stat := p.pool.Stat()
	return PoolStatus{
		Size:      int(stat.TotalConns()),
		Available: int(stat.IdleConns()),
		Waiting:   int(p.waiting.Load()),
	}
}

// Config returns the configuration the pool was built with.
func (p *Pool) Config() *Config { return p.cfg }

// Close terminates the pool. In-flight operations may fail. Idempotent.
func (p *Pool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	p.runner.Close()
	p.pool.Close()
	p.logger.Verbose("pool closed")
}

// String describes the pool for logs.
func (p *Pool) String() string {
	s := p.Status()
	return fmt.Sprintf("Pool(size=%d, available=%d, waiting=%d)", s.Size, s.Available, s.Waiting)
}

var _ fmt.Stringer = (*Pool)(nil)

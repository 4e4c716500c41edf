package bridge

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by Runner.Run. Callers translate these into
// their own error taxonomy.
var (
	// ErrDeadline indicates the deadline elapsed before the operation
	// completed. The operation itself may still be running; Run does not
	// wait for it.
	ErrDeadline = errors.New("deadline elapsed")

	// ErrRunnerClosed indicates the Runner was closed while the operation
	// was in flight, or before it started.
	ErrRunnerClosed = errors.New("runner closed")
)

// Runner races operations against deadlines. Each Connection or Pool owns
// exactly one Runner and reuses it for every operation; closing the Runner
// fails all in-flight operations.
type Runner struct {
	base   context.Context
	cancel context.CancelFunc
}

// New creates a Runner.
func New() *Runner {
	base, cancel := context.WithCancel(context.Background())
	return &Runner{base: base, cancel: cancel}
}

// Run executes op and blocks until it completes, the timeout elapses, the
// caller's ctx is cancelled, or the Runner is closed, whichever happens
// first. op receives a context carrying the deadline.
//
// When the deadline fires first, Run returns ErrDeadline immediately. The
// operation's goroutine is left to drain on its own; there is no guarantee
// the remote side stopped working. Because of that, any resource the
// operation uses must be owned and released by the op closure itself, not
// by the caller after Run returns.
//
// op is always invoked, even on a closed Runner; it then receives an
// already-cancelled context. This guarantees closure-owned resources are
// released exactly once regardless of how Run exits.
func (r *Runner) Run(ctx context.Context, timeout time.Duration, op func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	// Closing the Runner tears down the operation context too, so a
	// context-honoring driver stops work instead of leaking.
	stop := context.AfterFunc(r.base, cancel)
	defer stop()

	done := make(chan error, 1)
	go func() {
		done <- op(opCtx)
	}()

	select {
	case err := <-done:
		return r.normalize(ctx, err)
	case <-opCtx.Done():
		// Give a completed op priority over a simultaneous expiry.
		select {
		case err := <-done:
			return r.normalize(ctx, err)
		default:
		}
		return r.expiryError(ctx)
	case <-r.base.Done():
		return ErrRunnerClosed
	}
}

// normalize maps a context expiry the driver surfaced as its own error
// back onto the Runner's sentinels.
func (r *Runner) normalize(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return r.expiryError(ctx)
	}
	return err
}

// expiryError decides which party's expiry fired: the Runner's close, the
// caller's context, or the per-operation deadline.
func (r *Runner) expiryError(ctx context.Context) error {
	if r.base.Err() != nil {
		return ErrRunnerClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrDeadline
}

// Close fails all in-flight operations and makes later Run calls report
// ErrRunnerClosed. Idempotent.
func (r *Runner) Close() {
	r.cancel()
}

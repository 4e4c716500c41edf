package bridge_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vvka-141/pgdock/internal/bridge"
)

func TestRunCompletes(t *testing.T) {
	r := bridge.New()
	defer r.Close()

	ran := false
	err := r.Run(context.Background(), time.Second, func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !ran {
		t.Error("op did not run")
	}
}

func TestRunPropagatesOpError(t *testing.T) {
	r := bridge.New()
	defer r.Close()

	boom := errors.New("boom")
	err := r.Run(context.Background(), time.Second, func(ctx context.Context) error {
		return boom
	})
	if !errors.Is(err, boom) {
		t.Errorf("Run error = %v, want boom", err)
	}
}

func TestRunDeadline(t *testing.T) {
	r := bridge.New()
	defer r.Close()

	release := make(chan struct{})
	defer close(release)

	start := time.Now()
	err := r.Run(context.Background(), 30*time.Millisecond, func(ctx context.Context) error {
		<-release
		return nil
	})
	elapsed := time.Since(start)

	if !errors.Is(err, bridge.ErrDeadline) {
		t.Fatalf("Run error = %v, want ErrDeadline", err)
	}
	// Returns promptly at the deadline even though the op never honors
	// its context.
	if elapsed > 500*time.Millisecond {
		t.Errorf("Run took %s after a 30ms deadline", elapsed)
	}
}

func TestRunDeadlineFromDriverStyleError(t *testing.T) {
	r := bridge.New()
	defer r.Close()

	// Drivers commonly wrap the context error instead of returning it
	// bare; the sentinel must still come out.
	err := r.Run(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return errors.Join(errors.New("conn busy"), ctx.Err())
	})
	if !errors.Is(err, bridge.ErrDeadline) {
		t.Errorf("Run error = %v, want ErrDeadline", err)
	}
}

func TestRunCallerCancellation(t *testing.T) {
	r := bridge.New()
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	release := make(chan struct{})
	defer close(release)

	err := r.Run(ctx, time.Minute, func(ctx context.Context) error {
		<-release
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run error = %v, want context.Canceled", err)
	}
}

func TestRunAfterClose(t *testing.T) {
	r := bridge.New()
	r.Close()

	// The op still runs on a closed runner, with a dead context, so any
	// resource it owns gets released.
	opCtxErr := make(chan error, 1)
	err := r.Run(context.Background(), time.Second, func(ctx context.Context) error {
		opCtxErr <- ctx.Err()
		return ctx.Err()
	})
	if !errors.Is(err, bridge.ErrRunnerClosed) {
		t.Errorf("Run error = %v, want ErrRunnerClosed", err)
	}
	select {
	case ctxErr := <-opCtxErr:
		if ctxErr == nil {
			t.Error("op context was live on a closed runner")
		}
	case <-time.After(time.Second):
		t.Fatal("op never ran")
	}
}

func TestRunDeadlineCleanupWaitsForOp(t *testing.T) {
	r := bridge.New()
	defer r.Close()

	// Cleanup deferred inside the op must run when the op finishes, not
	// when the caller's deadline fires.
	release := make(chan struct{})
	cleaned := make(chan struct{})
	err := r.Run(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		defer close(cleaned)
		<-release
		return nil
	})
	if !errors.Is(err, bridge.ErrDeadline) {
		t.Fatalf("Run error = %v, want ErrDeadline", err)
	}
	select {
	case <-cleaned:
		t.Fatal("closure cleanup ran before the op finished")
	default:
	}
	close(release)
	select {
	case <-cleaned:
	case <-time.After(time.Second):
		t.Fatal("closure cleanup never ran")
	}
}

func TestRunDeadlineResultOwnedByOp(t *testing.T) {
	r := bridge.New()
	defer r.Close()

	// After ErrDeadline the op goroutine still owns any captured result
	// variables; the caller may read them only once the op has finished.
	var total int64
	release := make(chan struct{})
	opDone := make(chan struct{})
	err := r.Run(context.Background(), 20*time.Millisecond, func(ctx context.Context) error {
		defer close(opDone)
		for i := 0; i < 3; i++ {
			total++
			select {
			case <-release:
				return nil
			case <-time.After(20 * time.Millisecond):
			}
		}
		return nil
	})
	if !errors.Is(err, bridge.ErrDeadline) {
		t.Fatalf("Run error = %v, want ErrDeadline", err)
	}

	close(release)
	select {
	case <-opDone:
	case <-time.After(time.Second):
		t.Fatal("op never finished")
	}
	if total == 0 {
		t.Error("op writes were lost")
	}
}

func TestCloseFailsInFlightOps(t *testing.T) {
	r := bridge.New()

	started := make(chan struct{})
	go func() {
		<-started
		r.Close()
	}()

	release := make(chan struct{})
	defer close(release)

	err := r.Run(context.Background(), time.Minute, func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	if !errors.Is(err, bridge.ErrRunnerClosed) {
		t.Errorf("Run error = %v, want ErrRunnerClosed", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	r := bridge.New()
	r.Close()
	r.Close()
}

func TestRunReusableAcrossOps(t *testing.T) {
	r := bridge.New()
	defer r.Close()

	for i := 0; i < 10; i++ {
		err := r.Run(context.Background(), time.Second, func(ctx context.Context) error {
			return nil
		})
		if err != nil {
			t.Fatalf("Run %d failed: %v", i, err)
		}
	}
}

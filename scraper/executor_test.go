package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/swimdata/go-scrape-swim/proxy"
)

func newTestExecutor(pool *proxy.Pool, proxyID string) *Executor {
	exec := NewExecutor(newTestConfig(), newTestLimiter(), pool, nil, proxyID)
	exec.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	exec.jitter = func(d time.Duration) time.Duration { return 0 }
	return exec
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	exec := newTestExecutor(nil, "")

	calls := 0
	err := exec.Do(context.Background(), "search", func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return ErrTimeout{Err: errors.New("slow upstream")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want success on the final attempt", err)
	}
	if calls != 3 {
		t.Errorf("action ran %d times, want 3", calls)
	}
}

func TestDoTerminalAfterBudget(t *testing.T) {
	exec := newTestExecutor(nil, "")

	calls := 0
	err := exec.Do(context.Background(), "next", func(ctx context.Context) error {
		calls++
		return ErrConnection{Err: errors.New("refused")}
	})

	var terminal *TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("Do() error = %v, want *TerminalError", err)
	}
	if calls != 3 {
		t.Errorf("action ran %d times, want exactly 3", calls)
	}
	if terminal.Attempts != 3 {
		t.Errorf("terminal attempts = %d, want 3", terminal.Attempts)
	}
	var conn ErrConnection
	if !errors.As(terminal.Err, &conn) {
		t.Errorf("terminal cause = %v, want the last connection error", terminal.Err)
	}
}

func TestDoStopsOnNonTransient(t *testing.T) {
	exec := newTestExecutor(nil, "")

	calls := 0
	err := exec.Do(context.Background(), "search", func(ctx context.Context) error {
		calls++
		return ErrNotFound{Err: fmt.Errorf("http status 404")}
	})

	var terminal *TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("Do() error = %v, want *TerminalError", err)
	}
	if calls != 1 {
		t.Errorf("not_found retried: action ran %d times, want 1", calls)
	}
}

func TestDoReportsProxyOutcomes(t *testing.T) {
	pool := proxy.NewPool()
	if !pool.Add("10.0.0.1:8080") {
		t.Fatal("adding proxy to pool")
	}
	exec := newTestExecutor(pool, "10.0.0.1:8080")

	err := exec.Do(context.Background(), "next", func(ctx context.Context) error {
		return ErrForbidden{Err: errors.New("blocked")}
	})
	if err == nil {
		t.Fatal("Do() = nil, want terminal error")
	}
	// Three attributable failures at -2 apiece cross the removal floor.
	if _, ok := pool.Score("10.0.0.1:8080"); ok {
		t.Error("proxy should have been removed at the score floor")
	}
	if pool.Len() != 0 {
		t.Errorf("pool size = %d after removal, want 0", pool.Len())
	}
}

func TestDoSuccessRestoresProxyScore(t *testing.T) {
	pool := proxy.NewPool()
	if !pool.Add("10.0.0.2:3128") {
		t.Fatal("adding proxy to pool")
	}
	exec := newTestExecutor(pool, "10.0.0.2:3128")

	calls := 0
	err := exec.Do(context.Background(), "search", func(ctx context.Context) error {
		calls++
		if calls == 1 {
			return ErrRateLimited{Err: errors.New("429")}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want success", err)
	}
	score, ok := pool.Score("10.0.0.2:3128")
	if !ok {
		t.Fatal("proxy missing from pool")
	}
	// One failure (-2) then one success (+1).
	if score != -1 {
		t.Errorf("proxy score = %d, want -1", score)
	}
}

func TestDoHonorsCancellation(t *testing.T) {
	exec := newTestExecutor(nil, "")
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	err := exec.Do(ctx, "search", func(ctx context.Context) error {
		calls++
		cancel()
		return ErrTimeout{Err: errors.New("slow")}
	})

	var terminal *TerminalError
	if !errors.As(err, &terminal) {
		t.Fatalf("Do() error = %v, want *TerminalError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("terminal cause = %v, want context.Canceled", terminal.Err)
	}
	if calls != 1 {
		t.Errorf("action ran %d times after cancellation, want 1", calls)
	}
}

package scraper

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/swimdata/go-scrape-swim/config"
	"github.com/swimdata/go-scrape-swim/proxy"
	"github.com/swimdata/go-scrape-swim/ratelimit"
)

// Executor runs navigation actions through the rate limiter with bounded
// retries. Every Do call ends in exactly one of two outcomes: the action
// succeeded within the attempt budget, or a TerminalError carrying the last
// failure. Successes and attributable failures are reported to the proxy
// pool so endpoint scores track observed behavior.
type Executor struct {
	limiter    *ratelimit.Limiter
	pool       *proxy.Pool
	metrics    *Metrics
	proxyID    string
	maxRetries int
	backoff    time.Duration
	backoffMax time.Duration

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(d time.Duration) time.Duration
}

// NewExecutor builds an executor for one session. pool may be nil when the
// run carries no proxies; proxyID may be empty when the session connects
// directly.
func NewExecutor(cfg *config.Config, limiter *ratelimit.Limiter, pool *proxy.Pool, metrics *Metrics, proxyID string) *Executor {
	return &Executor{
		limiter:    limiter,
		pool:       pool,
		metrics:    metrics,
		proxyID:    proxyID,
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.RetryBackoff,
		backoffMax: cfg.RetryBackoffMax,
		sleep:      sleepContext,
		jitter: func(d time.Duration) time.Duration {
			if d <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(d)))
		},
	}
}

// Do executes fn under the rate limiter, retrying transient failures with
// exponential backoff until the attempt budget is spent. The action label
// names the navigation step in logs, metrics, and terminal errors.
func (e *Executor) Do(ctx context.Context, action string, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		if err := e.limiter.Admit(ctx); err != nil {
			return &TerminalError{Action: action, Attempts: attempt, Err: err}
		}
		e.metrics.IncAdmitted()
		e.metrics.IncRequest("started")

		start := time.Now()
		err := fn(ctx)
		e.metrics.ObserveDuration(time.Since(start))

		if err == nil {
			e.metrics.IncRequest("succeeded")
			if e.pool != nil && e.proxyID != "" {
				e.pool.ReportSuccess(e.proxyID)
			}
			return nil
		}

		lastErr = err
		e.metrics.IncRequest("failed")
		e.metrics.IncError(errorTypeLabel(err))
		if e.pool != nil && e.proxyID != "" && IsProxyAttributable(err) {
			e.pool.ReportFailure(e.proxyID)
			e.metrics.SetProxyPoolSize(e.pool.Len())
		}

		if !IsTransient(err) {
			return &TerminalError{Action: action, Attempts: attempt, Err: err}
		}
		if attempt == e.maxRetries {
			break
		}

		delay := e.backoffFor(attempt)
		slog.Warn("retrying action",
			slog.String("action", action),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", delay),
			slog.String("error", err.Error()))
		e.metrics.IncRetries()
		if err := e.sleep(ctx, delay); err != nil {
			return &TerminalError{Action: action, Attempts: attempt, Err: err}
		}
	}
	return &TerminalError{Action: action, Attempts: e.maxRetries, Err: lastErr}
}

// backoffFor doubles the base delay per attempt, caps it, and adds random
// jitter up to half the delay so retries from parallel runs do not align.
func (e *Executor) backoffFor(attempt int) time.Duration {
	delay := e.backoff << (attempt - 1)
	if delay > e.backoffMax {
		delay = e.backoffMax
	}
	return delay + e.jitter(delay/2)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/swimdata/go-scrape-swim/config"
	"github.com/swimdata/go-scrape-swim/models"
	"github.com/swimdata/go-scrape-swim/proxy"
	"github.com/swimdata/go-scrape-swim/ratelimit"
)

// Orchestrator runs one source end to end: acquire a session, walk every
// target the adapter declares, normalize the rows, and report a summary.
// One run owns exactly one session; the session is released on every exit
// path, including panics unwinding through Run.
type Orchestrator struct {
	cfg     *config.Config
	limiter *ratelimit.Limiter
	pool    *proxy.Pool
	metrics *Metrics
	factory SessionFactory

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewOrchestrator wires an orchestrator. pool may be nil when the run
// connects directly.
func NewOrchestrator(cfg *config.Config, pool *proxy.Pool, metrics *Metrics, factory SessionFactory) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		limiter: ratelimit.New(cfg.RequestsPerMinute, cfg.RequestsPerHour),
		pool:    pool,
		metrics: metrics,
		factory: factory,
		sleep:   sleepContext,
		now:     time.Now,
	}
}

// Run scrapes every target of the adapter and returns the normalized batch
// plus a per-target summary. A target that fails mid-walk keeps its partial
// records and is recorded in the summary; only session acquisition failure
// aborts the run itself.
func (o *Orchestrator) Run(ctx context.Context, adapter SourceAdapter) ([]*models.Record, *models.Summary, error) {
	summary := &models.Summary{
		Source:    adapter.Name(),
		StartTime: o.now(),
	}

	sess, err := o.factory(ctx)
	if err != nil {
		summary.EndTime = o.now()
		return nil, summary, fmt.Errorf("acquire session: %w", err)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			slog.Warn("closing session", slog.String("error", cerr.Error()))
		}
	}()

	if o.pool != nil {
		o.metrics.SetProxyPoolSize(o.pool.Len())
	}

	exec := NewExecutor(o.cfg, o.limiter, o.pool, o.metrics, sess.ProxyID())
	walker := NewWalker(exec, o.cfg, o.metrics)

	targets := adapter.Targets(o.cfg)
	var records []*models.Record

	for i, target := range targets {
		if ctx.Err() != nil {
			slog.Warn("run cancelled",
				slog.String("source", adapter.Name()),
				slog.Int("targets_remaining", len(targets)-i))
			break
		}

		summary.TargetsAttempted++
		slog.Info("scraping target",
			slog.String("source", adapter.Name()),
			slog.String("target", target.Name))

		rows, cursor := walker.Run(ctx, sess, adapter, target)
		recs := NormalizeAll(rows, adapter.Name(), o.metrics)
		records = append(records, recs...)

		result := models.TargetResult{
			Target:  target.Name,
			Records: len(recs),
			Pages:   cursor.Pages,
			State:   cursor.State.String(),
		}
		if cursor.State == StateError {
			summary.ErrorCount++
			result.Err = cursor.Err.Error()
			slog.Error("target failed",
				slog.String("target", target.Name),
				slog.Int("pages", cursor.Pages),
				slog.Int("partial_records", len(recs)),
				slog.String("error", cursor.Err.Error()))
		} else {
			summary.TargetsSucceeded++
			slog.Info("target complete",
				slog.String("target", target.Name),
				slog.Int("pages", cursor.Pages),
				slog.Int("records", len(recs)))
		}
		summary.Targets = append(summary.Targets, result)
		summary.TotalRecords = len(records)

		if o.cfg.TotalRecordTarget > 0 && len(records) >= o.cfg.TotalRecordTarget {
			slog.Info("record target reached",
				slog.Int("records", len(records)),
				slog.Int("target", o.cfg.TotalRecordTarget))
			break
		}
		if i < len(targets)-1 && o.cfg.TargetDelay > 0 {
			if err := o.sleep(ctx, o.cfg.TargetDelay); err != nil {
				break
			}
		}
	}

	summary.EndTime = o.now()
	slog.Info("run finished",
		slog.String("source", adapter.Name()),
		slog.Int("targets_attempted", summary.TargetsAttempted),
		slog.Int("targets_succeeded", summary.TargetsSucceeded),
		slog.Int("errors", summary.ErrorCount),
		slog.Int("records", summary.TotalRecords),
		slog.Duration("elapsed", summary.EndTime.Sub(summary.StartTime)))
	return records, summary, nil
}

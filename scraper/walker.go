package scraper

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/swimdata/go-scrape-swim/config"
	"github.com/swimdata/go-scrape-swim/models"
)

// State tracks where a pagination walk stands.
type State int

const (
	StateInit State = iota
	StateHasMore
	StateNoMore
	StateError
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateHasMore:
		return "has_more"
	case StateNoMore:
		return "no_more"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// Cursor is the walk position handed back with the accumulated rows.
type Cursor struct {
	Pages int
	Rows  int
	State State
	Err   error
}

// Walker drives one adapter through a target's result pages: submit the
// search, extract each page, and follow next links until a stop condition.
// Rows gathered before a failure are always returned with the error cursor.
type Walker struct {
	exec      *Executor
	metrics   *Metrics
	settleMin time.Duration
	settleMax time.Duration

	sleep  func(ctx context.Context, d time.Duration) error
	jitter func(span time.Duration) time.Duration
}

// NewWalker builds a walker issuing navigation through exec.
func NewWalker(exec *Executor, cfg *config.Config, metrics *Metrics) *Walker {
	return &Walker{
		exec:      exec,
		metrics:   metrics,
		settleMin: cfg.SettleDelayMin,
		settleMax: cfg.SettleDelayMax,
		sleep:     sleepContext,
		jitter: func(span time.Duration) time.Duration {
			if span <= 0 {
				return 0
			}
			return time.Duration(rand.Int63n(int64(span)))
		},
	}
}

// Run walks one target. It stops when the source reports no further pages,
// a page yields zero rows, the page cap or record target is reached, or a
// navigation fails terminally. The cursor's state is StateNoMore on clean
// exhaustion and StateError on failure; rows already extracted survive both.
func (w *Walker) Run(ctx context.Context, sess Session, adapter SourceAdapter, target models.Target) ([]models.RawRow, Cursor) {
	cursor := Cursor{State: StateInit}
	var rows []models.RawRow

	err := w.exec.Do(ctx, adapter.Name()+"/search", func(ctx context.Context) error {
		return adapter.FillSearchForm(ctx, sess, target)
	})
	if err != nil {
		cursor.State = StateError
		cursor.Err = err
		return rows, cursor
	}

	for {
		pageRows, err := adapter.ExtractPage(ctx, sess)
		if err != nil {
			cursor.State = StateError
			cursor.Err = err
			return rows, cursor
		}
		cursor.Pages++
		w.metrics.IncPages()
		w.metrics.IncRows(len(pageRows))
		rows = append(rows, pageRows...)
		cursor.Rows = len(rows)
		cursor.State = StateHasMore

		slog.Debug("page extracted",
			slog.String("target", target.Name),
			slog.Int("page", cursor.Pages),
			slog.Int("rows", len(pageRows)))

		switch {
		case len(pageRows) == 0:
			cursor.State = StateNoMore
			return rows, cursor
		case target.MaxPages > 0 && cursor.Pages >= target.MaxPages:
			cursor.State = StateNoMore
			return rows, cursor
		case target.RecordTarget > 0 && len(rows) >= target.RecordTarget:
			cursor.State = StateNoMore
			return rows, cursor
		case !adapter.HasNextPage(ctx, sess):
			cursor.State = StateNoMore
			return rows, cursor
		}

		if err := w.settle(ctx); err != nil {
			cursor.State = StateError
			cursor.Err = err
			return rows, cursor
		}
		err = w.exec.Do(ctx, adapter.Name()+"/next", func(ctx context.Context) error {
			return adapter.NextPage(ctx, sess)
		})
		if err != nil {
			cursor.State = StateError
			cursor.Err = err
			return rows, cursor
		}
	}
}

// settle pauses between page loads so navigation pacing resembles a reader,
// not a crawler. The delay is drawn uniformly from the configured window.
func (w *Walker) settle(ctx context.Context) error {
	if w.settleMax <= 0 {
		return ctx.Err()
	}
	delay := w.settleMin + w.jitter(w.settleMax-w.settleMin)
	return w.sleep(ctx, delay)
}

// Package scraper implements the scrape orchestration core: rate-gated
// request execution with bounded retries, pagination walking, row
// normalization, and per-source run orchestration.
package scraper

import (
	"context"

	"github.com/PuerkitoBio/goquery"

	"github.com/swimdata/go-scrape-swim/config"
	"github.com/swimdata/go-scrape-swim/models"
)

// Session is the capability surface the core needs from the heavyweight
// network resource owned by one scrape run. The session package provides
// the production implementation.
type Session interface {
	Get(ctx context.Context, pageURL string) (*goquery.Document, error)
	PostForm(ctx context.Context, pageURL string, form map[string]string) (*goquery.Document, error)
	ProxyID() string
	Close() error
}

// SessionFactory acquires the session for one scrape run. Acquisition
// failure is fatal for the run; no scraping happens without a session.
type SessionFactory func(ctx context.Context) (Session, error)

// SourceAdapter is implemented once per external site. Adapters own the
// site-specific selectors and carry the "current page" between calls;
// FillSearchForm and NextPage perform navigation (and run under the
// request executor), ExtractPage and HasNextPage inspect the page the
// adapter last loaded.
type SourceAdapter interface {
	Name() string
	Targets(cfg *config.Config) []models.Target
	FillSearchForm(ctx context.Context, sess Session, target models.Target) error
	ExtractPage(ctx context.Context, sess Session) ([]models.RawRow, error)
	HasNextPage(ctx context.Context, sess Session) bool
	NextPage(ctx context.Context, sess Session) error
}

package scraper

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/swimdata/go-scrape-swim/config"
	"github.com/swimdata/go-scrape-swim/models"
	"github.com/swimdata/go-scrape-swim/ratelimit"
)

// fakeSession satisfies Session without touching the network. The fake
// adapters below keep their own page state, so the document returns are
// never inspected.
type fakeSession struct {
	proxyID string
	closed  int
}

func (s *fakeSession) Get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	return nil, nil
}

func (s *fakeSession) PostForm(ctx context.Context, pageURL string, form map[string]string) (*goquery.Document, error) {
	return nil, nil
}

func (s *fakeSession) ProxyID() string { return s.proxyID }

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

// fakeAdapter serves a fixed list of pages and can be told to fail the
// search or a specific next-page navigation.
type fakeAdapter struct {
	name    string
	pages   [][]models.RawRow
	targets []models.Target

	searchErrs []error // consumed one per FillSearchForm call
	nextErrAt  int     // 1-based page whose NextPage call fails
	nextErr    error

	idx         int
	searchCalls int
	nextCalls   int
}

func (a *fakeAdapter) Name() string { return a.name }

func (a *fakeAdapter) Targets(cfg *config.Config) []models.Target { return a.targets }

func (a *fakeAdapter) FillSearchForm(ctx context.Context, sess Session, target models.Target) error {
	a.searchCalls++
	a.idx = 0
	if len(a.searchErrs) > 0 {
		err := a.searchErrs[0]
		a.searchErrs = a.searchErrs[1:]
		return err
	}
	return nil
}

func (a *fakeAdapter) ExtractPage(ctx context.Context, sess Session) ([]models.RawRow, error) {
	if a.idx >= len(a.pages) {
		return nil, nil
	}
	return a.pages[a.idx], nil
}

func (a *fakeAdapter) HasNextPage(ctx context.Context, sess Session) bool {
	return a.idx < len(a.pages)-1
}

func (a *fakeAdapter) NextPage(ctx context.Context, sess Session) error {
	a.nextCalls++
	if a.nextErr != nil && a.idx+1 == a.nextErrAt {
		return a.nextErr
	}
	a.idx++
	return nil
}

// resultRow builds a raw row that survives normalization.
func resultRow(name, swimTime string) models.RawRow {
	return models.RawRow{
		Fields: map[string]string{
			models.FieldName:  name,
			models.FieldTime:  swimTime,
			models.FieldEvent: "100 Freestyle",
		},
		SourceURL: "https://example.test/results",
	}
}

// pagesOf builds n pages of rowsPerPage valid rows each.
func pagesOf(n, rowsPerPage int) [][]models.RawRow {
	pages := make([][]models.RawRow, n)
	for i := range pages {
		rows := make([]models.RawRow, rowsPerPage)
		for j := range rows {
			rows[j] = resultRow("Swimmer", "58.21")
		}
		pages[i] = rows
	}
	return pages
}

func newTestConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.MaxRetries = 3
	cfg.RetryBackoff = time.Millisecond
	cfg.RetryBackoffMax = 4 * time.Millisecond
	cfg.SettleDelayMin = 0
	cfg.SettleDelayMax = 0
	cfg.TargetDelay = 0
	cfg.RequestsPerMinute = 10000
	cfg.RequestsPerHour = 1000000
	return cfg
}

func newTestLimiter() *ratelimit.Limiter {
	return ratelimit.New(10000, 1000000)
}

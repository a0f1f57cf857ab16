// Package nisca adapts the NISCA national high school record listings.
// Records live on static pages, one per division, so each target is a
// single-page walk.
package nisca

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/swimdata/go-scrape-swim/config"
	"github.com/swimdata/go-scrape-swim/models"
	"github.com/swimdata/go-scrape-swim/scraper"
)

const recordTable = "table tbody tr"

// High school records are short-course yards.
const course = "SCY"

// Adapter holds the record page currently being extracted.
type Adapter struct {
	doc     *goquery.Document
	pageURL string
}

// New builds the adapter for one run.
func New(cfg *config.Config) *Adapter {
	return &Adapter{}
}

func (a *Adapter) Name() string { return "nisca" }

// Targets lists the record pages. MaxPages stays 1; the listings do not
// paginate.
func (a *Adapter) Targets(cfg *config.Config) []models.Target {
	pages := []struct {
		name string
		path string
	}{
		{"boys-records", "/records/boys"},
		{"girls-records", "/records/girls"},
	}
	targets := make([]models.Target, 0, len(pages))
	for _, page := range pages {
		targets = append(targets, models.Target{
			Name:     page.name,
			Params:   map[string]string{"path": page.path},
			MaxPages: 1,
		})
	}
	return targets
}

// FillSearchForm loads the target's record page. There is no form; the
// navigation is a plain fetch.
func (a *Adapter) FillSearchForm(ctx context.Context, sess scraper.Session, target models.Target) error {
	path := target.Params["path"]
	if path == "" {
		return fmt.Errorf("nisca: target %q has no page path", target.Name)
	}
	doc, err := sess.Get(ctx, path)
	if err != nil {
		return err
	}
	a.doc = doc
	a.pageURL = path
	return nil
}

// ExtractPage reads record rows: event, swimmer, school, time, year.
func (a *Adapter) ExtractPage(ctx context.Context, sess scraper.Session) ([]models.RawRow, error) {
	if a.doc == nil {
		return nil, fmt.Errorf("nisca: no page loaded")
	}

	var rows []models.RawRow
	a.doc.Find(recordTable).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 4 {
			return
		}
		fields := map[string]string{
			models.FieldEvent:  strings.TrimSpace(cells.Eq(0).Text()),
			models.FieldName:   strings.TrimSpace(cells.Eq(1).Text()),
			models.FieldTeam:   strings.TrimSpace(cells.Eq(2).Text()),
			models.FieldTime:   strings.TrimSpace(cells.Eq(3).Text()),
			models.FieldCourse: course,
		}
		if cells.Length() >= 5 {
			fields[models.FieldDate] = strings.TrimSpace(cells.Eq(4).Text())
		}
		rows = append(rows, models.RawRow{
			Fields:    fields,
			SourceURL: a.pageURL,
		})
	})
	return rows, nil
}

// HasNextPage always reports false; record listings are single pages.
func (a *Adapter) HasNextPage(ctx context.Context, sess scraper.Session) bool {
	return false
}

// NextPage is never reachable for a single-page source.
func (a *Adapter) NextPage(ctx context.Context, sess scraper.Session) error {
	return fmt.Errorf("nisca: record listings do not paginate")
}

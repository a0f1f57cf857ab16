// Package usaswimming adapts the USA Swimming individual times search.
// Searches are submitted per state and results are walked through the
// server-side pager.
package usaswimming

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/swimdata/go-scrape-swim/config"
	"github.com/swimdata/go-scrape-swim/models"
	"github.com/swimdata/go-scrape-swim/scraper"
)

const (
	searchPath  = "/times/individual-times-search"
	resultTable = "table.usas-table tbody tr"
	nextLink    = "a[rel='next'], ul.pagination li.next:not(.disabled) a"
)

// Adapter holds the current results page between navigation calls. One
// adapter serves one run; it is not safe for concurrent walks.
type Adapter struct {
	baseURL string
	doc     *goquery.Document
	pageURL string
}

// New builds the adapter for one run.
func New(cfg *config.Config) *Adapter {
	return &Adapter{baseURL: strings.TrimRight(cfg.BaseURL, "/")}
}

func (a *Adapter) Name() string { return "usaswimming" }

// Targets emits one search per configured state.
func (a *Adapter) Targets(cfg *config.Config) []models.Target {
	targets := make([]models.Target, 0, len(cfg.States))
	for _, state := range cfg.States {
		targets = append(targets, models.Target{
			Name:     state,
			Params:   map[string]string{"state": state},
			MaxPages: cfg.MaxPages,
		})
	}
	return targets
}

// FillSearchForm submits the times search for the target's state and keeps
// the first results page as the walk position.
func (a *Adapter) FillSearchForm(ctx context.Context, sess scraper.Session, target models.Target) error {
	form := map[string]string{
		"Command":       "search",
		"DistanceId":    "0",
		"StrokeId":      "0",
		"CourseId":      "0",
		"StateAbbr":     target.Params["state"],
		"StartAge":      "0",
		"EndAge":        "99",
		"MaxResults":    "100",
		"SortBy":        "EventSortOrder",
		"SortDirection": "asc",
	}
	for key, value := range target.Params {
		if key != "state" {
			form[key] = value
		}
	}

	doc, err := sess.PostForm(ctx, searchPath, form)
	if err != nil {
		return err
	}
	a.doc = doc
	a.pageURL = a.baseURL + searchPath
	return nil
}

// ExtractPage reads the result rows off the current page. Rows with too few
// cells are skipped here; value-level validation happens downstream.
func (a *Adapter) ExtractPage(ctx context.Context, sess scraper.Session) ([]models.RawRow, error) {
	if a.doc == nil {
		return nil, fmt.Errorf("usaswimming: no page loaded")
	}

	var rows []models.RawRow
	a.doc.Find(resultTable).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() < 7 {
			return
		}
		fields := map[string]string{
			models.FieldName:  cellText(cells, 0),
			models.FieldAge:   cellText(cells, 1),
			models.FieldTeam:  cellText(cells, 2),
			models.FieldEvent: cellText(cells, 3),
			models.FieldTime:  cellText(cells, 4),
			models.FieldMeet:  cellText(cells, 5),
			models.FieldDate:  cellText(cells, 6),
		}
		if cells.Length() >= 8 {
			fields[models.FieldCourse] = cellText(cells, 7)
		}
		rows = append(rows, models.RawRow{
			Fields:    fields,
			SourceURL: a.pageURL,
		})
	})
	return rows, nil
}

// HasNextPage reports whether the pager exposes a further page.
func (a *Adapter) HasNextPage(ctx context.Context, sess scraper.Session) bool {
	if a.doc == nil {
		return false
	}
	href, ok := a.nextHref()
	return ok && href != ""
}

// NextPage follows the pager link and replaces the walk position.
func (a *Adapter) NextPage(ctx context.Context, sess scraper.Session) error {
	href, ok := a.nextHref()
	if !ok || href == "" {
		return fmt.Errorf("usaswimming: no next page link")
	}
	doc, err := sess.Get(ctx, href)
	if err != nil {
		return err
	}
	a.doc = doc
	if strings.HasPrefix(href, "http") {
		a.pageURL = href
	} else {
		a.pageURL = a.baseURL + href
	}
	return nil
}

func (a *Adapter) nextHref() (string, bool) {
	return a.doc.Find(nextLink).First().Attr("href")
}

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(cells.Eq(i).Text())
}

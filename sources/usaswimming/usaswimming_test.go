package usaswimming

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/swimdata/go-scrape-swim/config"
	"github.com/swimdata/go-scrape-swim/models"
)

const pageOne = `<html><body>
<table class="usas-table"><tbody>
<tr>
  <td>Katie Smith</td><td>16</td><td>Mission Viejo</td>
  <td>100 Freestyle</td><td>58.21</td><td>Spring Invite</td>
  <td>03/15/2025</td><td>SCY</td>
</tr>
<tr>
  <td>Alex Ruiz</td><td>17</td><td>Santa Clara</td>
  <td>200 Freestyle</td><td>1:52.40</td><td>Spring Invite</td>
  <td>03/15/2025</td><td>SCY</td>
</tr>
<tr><td>malformed row</td></tr>
</tbody></table>
<ul class="pagination"><li class="next"><a rel="next" href="/times/individual-times-search?page=2">Next</a></li></ul>
</body></html>`

const pageTwo = `<html><body>
<table class="usas-table"><tbody>
<tr>
  <td>Jordan Lee</td><td>15</td><td>Austin Aquatics</td>
  <td>100 Backstroke</td><td>1:01.77</td><td>Spring Invite</td>
  <td>03/16/2025</td><td>SCY</td>
</tr>
</tbody></table>
</body></html>`

// stubSession serves canned pages; form submissions land on the first page.
type stubSession struct {
	pages    map[string]string
	lastForm map[string]string
}

func (s *stubSession) Get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	html, ok := s.pages[pageURL]
	if !ok {
		return nil, fmt.Errorf("no page for %s", pageURL)
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *stubSession) PostForm(ctx context.Context, pageURL string, form map[string]string) (*goquery.Document, error) {
	s.lastForm = form
	return s.Get(ctx, pageURL)
}

func (s *stubSession) ProxyID() string { return "" }
func (s *stubSession) Close() error    { return nil }

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "https://swim.test"
	return cfg
}

func TestTargetsPerState(t *testing.T) {
	cfg := testConfig()
	cfg.States = []string{"CA", "TX"}
	cfg.MaxPages = 3

	targets := New(cfg).Targets(cfg)
	if len(targets) != 2 {
		t.Fatalf("Targets() = %d entries, want 2", len(targets))
	}
	if targets[0].Name != "CA" || targets[0].Params["state"] != "CA" {
		t.Errorf("first target = %+v, want CA", targets[0])
	}
	if targets[1].MaxPages != 3 {
		t.Errorf("target MaxPages = %d, want 3", targets[1].MaxPages)
	}
}

func TestSearchSubmitsState(t *testing.T) {
	sess := &stubSession{pages: map[string]string{searchPath: pageOne}}
	adapter := New(testConfig())

	err := adapter.FillSearchForm(context.Background(), sess, models.Target{
		Name:   "CA",
		Params: map[string]string{"state": "CA"},
	})
	if err != nil {
		t.Fatalf("FillSearchForm() error = %v", err)
	}
	if sess.lastForm["StateAbbr"] != "CA" {
		t.Errorf("submitted state = %q, want CA", sess.lastForm["StateAbbr"])
	}
	if sess.lastForm["Command"] != "search" {
		t.Errorf("submitted command = %q, want search", sess.lastForm["Command"])
	}
}

func TestExtractPage(t *testing.T) {
	sess := &stubSession{pages: map[string]string{searchPath: pageOne}}
	adapter := New(testConfig())
	target := models.Target{Name: "CA", Params: map[string]string{"state": "CA"}}

	if err := adapter.FillSearchForm(context.Background(), sess, target); err != nil {
		t.Fatalf("FillSearchForm() error = %v", err)
	}
	rows, err := adapter.ExtractPage(context.Background(), sess)
	if err != nil {
		t.Fatalf("ExtractPage() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (malformed row dropped)", len(rows))
	}

	first := rows[0]
	if first.Get(models.FieldName) != "Katie Smith" {
		t.Errorf("name = %q, want Katie Smith", first.Get(models.FieldName))
	}
	if first.Get(models.FieldTime) != "58.21" {
		t.Errorf("time = %q, want 58.21", first.Get(models.FieldTime))
	}
	if first.Get(models.FieldCourse) != "SCY" {
		t.Errorf("course = %q, want SCY", first.Get(models.FieldCourse))
	}
	if first.SourceURL == "" {
		t.Error("row carries no source URL")
	}
}

func TestPagination(t *testing.T) {
	sess := &stubSession{pages: map[string]string{
		searchPath: pageOne,
		"/times/individual-times-search?page=2": pageTwo,
	}}
	adapter := New(testConfig())
	target := models.Target{Name: "CA", Params: map[string]string{"state": "CA"}}
	ctx := context.Background()

	if err := adapter.FillSearchForm(ctx, sess, target); err != nil {
		t.Fatalf("FillSearchForm() error = %v", err)
	}
	if !adapter.HasNextPage(ctx, sess) {
		t.Fatal("HasNextPage() = false on the first page, want true")
	}
	if err := adapter.NextPage(ctx, sess); err != nil {
		t.Fatalf("NextPage() error = %v", err)
	}

	rows, err := adapter.ExtractPage(ctx, sess)
	if err != nil {
		t.Fatalf("ExtractPage() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Get(models.FieldName) != "Jordan Lee" {
		t.Errorf("second page rows = %+v, want Jordan Lee", rows)
	}
	if adapter.HasNextPage(ctx, sess) {
		t.Error("HasNextPage() = true on the last page, want false")
	}
}

func TestExtractPageWithoutLoad(t *testing.T) {
	adapter := New(testConfig())
	if _, err := adapter.ExtractPage(context.Background(), &stubSession{}); err == nil {
		t.Error("ExtractPage() = nil error before any page load")
	}
}

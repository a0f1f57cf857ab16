package proxy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jarcoal/httpmock"
)

func TestAddRejectsMalformedEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry string
		want  bool
	}{
		{name: "valid", entry: "1.1.1.1:8080", want: true},
		{name: "valid with whitespace", entry: "  2.2.2.2:3128  ", want: true},
		{name: "missing port", entry: "3.3.3.3", want: false},
		{name: "empty", entry: "", want: false},
		{name: "bad port", entry: "4.4.4.4:notaport", want: false},
		{name: "port out of range", entry: "5.5.5.5:70000", want: false},
	}

	pool := NewPool()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pool.Add(tt.entry); got != tt.want {
				t.Errorf("Add(%q) = %v, want %v", tt.entry, got, tt.want)
			}
		})
	}
}

func TestAddIgnoresDuplicates(t *testing.T) {
	pool := NewPool()
	if !pool.Add("1.1.1.1:8080") {
		t.Fatalf("first add should succeed")
	}
	if pool.Add("1.1.1.1:8080") {
		t.Fatalf("duplicate add should be ignored")
	}
	if pool.Len() != 1 {
		t.Fatalf("pool size = %d, want 1", pool.Len())
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "proxies.txt")
	content := "1.1.1.1:8080\nnot-a-proxy\n2.2.2.2:8080\n\n2.2.2.2:8080\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	pool := NewPool()
	added, err := pool.LoadFromFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if added != 2 || pool.Len() != 2 {
		t.Fatalf("added=%d len=%d, want 2 and 2", added, pool.Len())
	}
}

func TestLoadFromURL(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/proxies",
		httpmock.NewStringResponder(200, "1.1.1.1:8080\n2.2.2.2:8080\n3.3.3.3:8080"))

	pool := NewPool()
	pool.SetTransport(transport)

	added, err := pool.LoadFromURL("http://example.test/proxies")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if added != 3 {
		t.Fatalf("added = %d, want 3", added)
	}
}

func TestLoadFromURLNon200(t *testing.T) {
	transport := httpmock.NewMockTransport()
	transport.RegisterResponder("GET", "http://example.test/proxies",
		httpmock.NewStringResponder(503, "unavailable"))

	pool := NewPool()
	pool.SetTransport(transport)

	if _, err := pool.LoadFromURL("http://example.test/proxies"); err == nil {
		t.Fatalf("expected error on non-200 response")
	}
}

func TestSelectEmptyPool(t *testing.T) {
	pool := NewPool()
	if _, ok := pool.Select(); ok {
		t.Fatalf("empty pool must not return a proxy")
	}
}

func TestSelectExcludesNegativeScores(t *testing.T) {
	pool := NewPool()
	pool.Add("1.1.1.1:8080")
	pool.Add("2.2.2.2:8080")
	pool.Add("3.3.3.3:8080")

	// Drive the first endpoint negative without reaching the floor.
	pool.ReportFailure("1.1.1.1:8080")

	for i := 0; i < 50; i++ {
		id, ok := pool.Select()
		if !ok {
			t.Fatalf("pool has usable endpoints")
		}
		if id == "1.1.1.1:8080" {
			t.Fatalf("negative-score endpoint was selected")
		}
	}
}

func TestScoreCapsAndFloor(t *testing.T) {
	pool := NewPool()

	for i := 0; i < 15; i++ {
		pool.ReportSuccess("1.1.1.1:8080")
	}
	if score, ok := pool.Score("1.1.1.1:8080"); !ok || score != 10 {
		t.Fatalf("score = %d (present=%v), want capped at 10", score, ok)
	}

	for i := 0; i < 3; i++ {
		pool.ReportFailure("1.1.1.1:8080")
	}
	if score, ok := pool.Score("1.1.1.1:8080"); !ok || score != 4 {
		t.Fatalf("score = %d (present=%v), want 4", score, ok)
	}
}

func TestFailingProxyIsRemovedForGood(t *testing.T) {
	pool := NewPool()
	pool.Add("1.1.1.1:8080")
	pool.Add("2.2.2.2:8080")

	// Three failures from zero: -2, -4, then through the floor.
	for i := 0; i < 3; i++ {
		pool.ReportFailure("1.1.1.1:8080")
	}

	if _, ok := pool.Score("1.1.1.1:8080"); ok {
		t.Fatalf("endpoint should have been removed at the floor")
	}
	if pool.Len() != 1 {
		t.Fatalf("pool size = %d, want 1", pool.Len())
	}

	// No mutation brings a removed endpoint back: not a recovered request,
	// not more failures, not re-adding it.
	pool.ReportSuccess("1.1.1.1:8080")
	if score, ok := pool.Score("1.1.1.1:8080"); ok {
		t.Fatalf("success report resurrected removed endpoint (score=%d)", score)
	}
	pool.ReportFailure("1.1.1.1:8080")
	if _, ok := pool.Score("1.1.1.1:8080"); ok {
		t.Fatalf("failure report resurrected removed endpoint")
	}
	if pool.Add("1.1.1.1:8080") {
		t.Fatalf("Add() accepted a removed endpoint")
	}
	if pool.Len() != 1 {
		t.Fatalf("pool size = %d after post-removal reports, want 1", pool.Len())
	}
	for i := 0; i < 50; i++ {
		if id, _ := pool.Select(); id == "1.1.1.1:8080" {
			t.Fatalf("removed endpoint was selected")
		}
	}
}

func TestLazyScoreCreation(t *testing.T) {
	pool := NewPool()
	pool.ReportSuccess("9.9.9.9:9090")
	if score, ok := pool.Score("9.9.9.9:9090"); !ok || score != 1 {
		t.Fatalf("score = %d (present=%v), want 1 after first success", score, ok)
	}
	if pool.Len() != 1 {
		t.Fatalf("endpoint reported on should join the pool")
	}
}

func TestDiscoverFromHTML(t *testing.T) {
	page := `<html><body><table><tbody>
		<tr><td>1.1.1.1</td><td>8080</td><td>US</td></tr>
		<tr><td>2.2.2.2</td><td>3128</td><td>DE</td></tr>
		<tr><td></td><td></td><td>bad row</td></tr>
		<tr><td>1.1.1.1</td><td>8080</td><td>dup</td></tr>
	</tbody></table></body></html>`

	transport := httpmock.NewMockTransport()
	resp := httpmock.NewStringResponse(200, page)
	resp.Header.Set("Content-Type", "text/html")
	transport.RegisterResponder("GET", "http://example.test/proxy-list",
		httpmock.ResponderFromResponse(resp))

	pool := NewPool()
	pool.SetTransport(transport)

	added, err := pool.DiscoverFromHTML("http://example.test/proxy-list")
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if added != 2 || pool.Len() != 2 {
		t.Fatalf("added=%d len=%d, want 2 and 2", added, pool.Len())
	}
}

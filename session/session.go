// Package session owns the network resource behind one scrape run: an HTTP
// client with cookie state, a rotated fingerprint, and an optional proxy
// drawn from the pool.
package session

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/swimdata/go-scrape-swim/config"
	"github.com/swimdata/go-scrape-swim/identity"
	"github.com/swimdata/go-scrape-swim/proxy"
	"github.com/swimdata/go-scrape-swim/scraper"
)

// Session is one live scraping session. Construct with Open, release with
// Close; every action on a closed session returns scraper.ErrSessionClosed.
type Session struct {
	http    *resty.Client
	baseURL *url.URL
	proxyID string

	mu     sync.Mutex
	closed bool
}

// Open acquires a session per cfg: fresh cookie jar, fingerprint from the
// identity pool, and a proxy from pool when one is usable. An exhausted
// pool degrades to a direct connection rather than failing the run.
func Open(cfg *config.Config, pool *proxy.Pool) (*Session, error) {
	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	client := resty.New()
	client.SetBaseURL(cfg.BaseURL)
	client.SetTimeout(cfg.Timeout)
	client.SetRedirectPolicy(resty.DomainCheckRedirectPolicy(baseURL.Hostname()))

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	client.SetCookieJar(jar)

	fp := identity.Next()
	client.SetHeader("User-Agent", fp.UserAgent)
	for key, value := range fp.Headers {
		client.SetHeader(key, value)
	}
	client.SetHeader("Referer", cfg.BaseURL)

	if cfg.Headless {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	proxyID := ""
	if pool != nil {
		if id, ok := pool.Select(); ok {
			client.SetProxy("http://" + id)
			proxyID = id
		} else {
			slog.Warn("proxy pool exhausted, connecting directly")
		}
	}

	slog.Debug("session opened",
		slog.String("base_url", cfg.BaseURL),
		slog.String("user_agent", fp.UserAgent),
		slog.String("proxy", proxyID))

	return &Session{
		http:    client,
		baseURL: baseURL,
		proxyID: proxyID,
	}, nil
}

// Factory adapts Open into the form the orchestrator injects.
func Factory(cfg *config.Config, pool *proxy.Pool) scraper.SessionFactory {
	return func(ctx context.Context) (scraper.Session, error) {
		return Open(cfg, pool)
	}
}

// Get fetches a page and parses it.
func (s *Session) Get(ctx context.Context, pageURL string) (*goquery.Document, error) {
	if err := s.live(); err != nil {
		return nil, err
	}
	res, err := s.http.R().SetContext(ctx).Get(pageURL)
	return s.document(res, err)
}

// PostForm submits a URL-encoded form and parses the response page.
func (s *Session) PostForm(ctx context.Context, pageURL string, form map[string]string) (*goquery.Document, error) {
	if err := s.live(); err != nil {
		return nil, err
	}
	values := url.Values{}
	for key, value := range form {
		values.Set(key, value)
	}
	res, err := s.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(values.Encode()).
		Post(pageURL)
	return s.document(res, err)
}

// ProxyID reports the proxy carrying this session, empty when direct.
func (s *Session) ProxyID() string { return s.proxyID }

// Close releases the session. Safe to call more than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.http.SetCloseConnection(true)
	return nil
}

// SetTransport swaps the underlying HTTP transport, for tests.
func (s *Session) SetTransport(rt http.RoundTripper) {
	s.http.SetTransport(rt)
}

func (s *Session) live() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return scraper.ErrSessionClosed
	}
	return nil
}

// document classifies transport and status failures, then parses the body.
func (s *Session) document(res *resty.Response, err error) (*goquery.Document, error) {
	if err != nil {
		return nil, scraper.ClassifyError(err, 0)
	}
	if res.IsError() {
		return nil, scraper.ClassifyError(nil, res.StatusCode())
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse page: %w", err)
	}
	return doc, nil
}

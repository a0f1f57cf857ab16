package proxy

import (
	"fmt"
	"log/slog"
	"net"
	"strings"

	"github.com/gocolly/colly/v2"
)

// DiscoverFromHTML scrapes host:port pairs out of an HTML proxy listing
// (the usual free-list layout: one table row per proxy, IP in the first
// column, port in the second). Returns the number of endpoints added.
func (p *Pool) DiscoverFromHTML(pageURL string) (int, error) {
	collector := colly.NewCollector()

	p.mu.Lock()
	if p.transport != nil {
		collector.WithTransport(p.transport)
	}
	p.mu.Unlock()

	added := 0
	collector.OnHTML("table tbody tr", func(e *colly.HTMLElement) {
		host := strings.TrimSpace(e.ChildText("td:nth-of-type(1)"))
		port := strings.TrimSpace(e.ChildText("td:nth-of-type(2)"))
		if host == "" || port == "" {
			return
		}
		if p.Add(net.JoinHostPort(host, port)) {
			added++
		}
	})

	if err := collector.Visit(pageURL); err != nil {
		return added, fmt.Errorf("visit proxy listing: %w", err)
	}
	collector.Wait()

	slog.Debug("proxy discovery finished",
		slog.String("url", pageURL),
		slog.Int("added", added),
	)
	return added, nil
}

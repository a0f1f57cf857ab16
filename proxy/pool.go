// Package proxy maintains a scored pool of outbound proxy endpoints.
package proxy

import (
	"bufio"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	scoreMax     = 10
	scoreMin     = -5
	successDelta = 1
	failureDelta = 2
)

// Pool owns a set of proxy endpoints ("host:port") and a performance score
// per endpoint. Scores start at zero, rise on reported successes, and fall
// on failures; an endpoint hitting the floor is removed for good. Removed
// endpoints are tombstoned so neither a late success report nor a re-Add
// brings them back.
type Pool struct {
	mu      sync.Mutex
	scores  map[string]int
	ids     []string
	removed map[string]struct{}

	transport http.RoundTripper
	timeout   time.Duration
}

// NewPool returns an empty pool.
func NewPool() *Pool {
	return &Pool{
		scores:  make(map[string]int),
		removed: make(map[string]struct{}),
		timeout: 20 * time.Second,
	}
}

// SetTransport overrides the HTTP transport used when loading proxy lists.
func (p *Pool) SetTransport(rt http.RoundTripper) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transport = rt
}

// Add inserts one endpoint. Malformed entries and duplicates are rejected.
func (p *Pool) Add(id string) bool {
	id = strings.TrimSpace(id)
	if !validEndpoint(id) {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.removed[id]; ok {
		return false
	}
	if _, ok := p.scores[id]; ok {
		return false
	}
	p.scores[id] = 0
	p.ids = append(p.ids, id)
	return true
}

// Len reports how many endpoints are currently in the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.ids)
}

// Score returns the current score for an endpoint still in the pool.
func (p *Pool) Score(id string) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	score, ok := p.scores[id]
	return score, ok
}

// LoadFromFile populates the pool from a file of host:port lines.
func (p *Pool) LoadFromFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open proxy list: %w", err)
	}
	defer f.Close()

	added := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if p.Add(scanner.Text()) {
			added++
		}
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("read proxy list: %w", err)
	}
	return added, nil
}

// LoadFromURL populates the pool from a URL serving host:port lines.
func (p *Pool) LoadFromURL(listURL string) (int, error) {
	p.mu.Lock()
	client := &http.Client{Transport: p.transport, Timeout: p.timeout}
	p.mu.Unlock()

	resp, err := client.Get(listURL)
	if err != nil {
		return 0, fmt.Errorf("fetch proxy list: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("fetch proxy list: status %d", resp.StatusCode)
	}

	added := 0
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		if p.Add(scanner.Text()) {
			added++
		}
	}
	if err := scanner.Err(); err != nil {
		return added, fmt.Errorf("read proxy list: %w", err)
	}
	return added, nil
}

// Select draws one endpoint uniformly from those with a non-negative score.
// ok is false when no usable endpoint exists; callers proceed without a
// proxy in that case.
func (p *Pool) Select() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := make([]string, 0, len(p.ids))
	for _, id := range p.ids {
		if p.scores[id] >= 0 {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[rand.Intn(len(candidates))], true
}

// ReportSuccess raises an endpoint's score, capped at the ceiling. Reports
// on a removed endpoint are dropped.
func (p *Pool) ReportSuccess(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.removed[id]; ok {
		return
	}
	score := p.scores[id] + successDelta
	if score > scoreMax {
		score = scoreMax
	}
	p.scores[id] = score
	p.ensureTrackedLocked(id)
}

// ReportFailure lowers an endpoint's score; hitting the floor removes the
// endpoint permanently.
func (p *Pool) ReportFailure(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.removed[id]; ok {
		return
	}
	score := p.scores[id] - failureDelta
	if score <= scoreMin {
		p.removeLocked(id)
		return
	}
	p.scores[id] = score
	p.ensureTrackedLocked(id)
}

func (p *Pool) ensureTrackedLocked(id string) {
	for _, existing := range p.ids {
		if existing == id {
			return
		}
	}
	p.ids = append(p.ids, id)
}

func (p *Pool) removeLocked(id string) {
	p.removed[id] = struct{}{}
	delete(p.scores, id)
	for i, existing := range p.ids {
		if existing == id {
			p.ids = append(p.ids[:i], p.ids[i+1:]...)
			return
		}
	}
}

func validEndpoint(id string) bool {
	host, port, err := net.SplitHostPort(id)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n > 0 && n <= 65535
}

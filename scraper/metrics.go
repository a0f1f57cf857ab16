package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scrape core.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	RowsExtracted     prometheus.Counter
	RowsSkipped       *prometheus.CounterVec
	RetriesTotal      prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
	ProxyPoolSize     prometheus.Gauge
	RateLimitWaits    prometheus.Counter
	PagesVisited      prometheus.Counter
	RecordsNormalized prometheus.Counter
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swimscrape_requests_total",
			Help: "Total outbound requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "swimscrape_request_duration_seconds",
			Help:    "Latency of outbound scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	rowsExtracted := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swimscrape_rows_extracted_total",
			Help: "Total raw rows extracted from result pages.",
		},
	)
	rowsSkipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swimscrape_rows_skipped_total",
			Help: "Total raw rows dropped during normalization by reason.",
		},
		[]string{"reason"},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swimscrape_retries_total",
			Help: "Total retry attempts made by the request executor.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swimscrape_errors_total",
			Help: "Total scraper errors by type.",
		},
		[]string{"error_type"},
	)
	proxyPoolSize := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "swimscrape_proxy_pool_size",
			Help: "Endpoints currently usable in the proxy pool.",
		},
	)
	rateLimitWaits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swimscrape_rate_limit_admissions_total",
			Help: "Requests admitted through the rate limiter.",
		},
	)
	pagesVisited := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swimscrape_pages_visited_total",
			Help: "Result pages visited across all pagination walks.",
		},
	)
	recordsNormalized := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "swimscrape_records_normalized_total",
			Help: "Raw rows successfully normalized into records.",
		},
	)

	registry.MustRegister(
		requests, requestDuration, rowsExtracted, rowsSkipped,
		retries, errorsTotal, proxyPoolSize, rateLimitWaits,
		pagesVisited, recordsNormalized,
	)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		RowsExtracted:     rowsExtracted,
		RowsSkipped:       rowsSkipped,
		RetriesTotal:      retries,
		ErrorsTotal:       errorsTotal,
		ProxyPoolSize:     proxyPoolSize,
		RateLimitWaits:    rateLimitWaits,
		PagesVisited:      pagesVisited,
		RecordsNormalized: recordsNormalized,
	}
}

// IncRequest increments the requests total counter for a phase.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records one request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRows adds to the extracted rows counter.
func (m *Metrics) IncRows(n int) {
	if m == nil {
		return
	}
	m.RowsExtracted.Add(float64(n))
}

// IncSkipped increments the skipped rows counter for a reason label.
func (m *Metrics) IncSkipped(reason string) {
	if m == nil {
		return
	}
	m.RowsSkipped.WithLabelValues(reason).Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// SetProxyPoolSize records the current pool size.
func (m *Metrics) SetProxyPoolSize(n int) {
	if m == nil {
		return
	}
	m.ProxyPoolSize.Set(float64(n))
}

// IncAdmitted increments the rate-limit admissions counter.
func (m *Metrics) IncAdmitted() {
	if m == nil {
		return
	}
	m.RateLimitWaits.Inc()
}

// IncPages increments the visited pages counter.
func (m *Metrics) IncPages() {
	if m == nil {
		return
	}
	m.PagesVisited.Inc()
}

// IncNormalized increments the normalized records counter.
func (m *Metrics) IncNormalized() {
	if m == nil {
		return
	}
	m.RecordsNormalized.Inc()
}

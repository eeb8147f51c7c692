// Package metrics exposes Prometheus collectors for the scrape service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Scrape outcomes.
const (
	OutcomeSuccess  = "success"
	OutcomeDegraded = "degraded"
	OutcomeFailure  = "failure"
)

var (
	scrapesTotal               *prometheus.CounterVec
	originStatusTotal          *prometheus.CounterVec
	scrapeDurationSeconds      *prometheus.HistogramVec
	logEntriesDroppedTotal     prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scrapesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapeurl_scrapes_total",
				Help: "Total number of scrapes, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		originStatusTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scrapeurl_origin_status_total",
				Help: "Origin HTTP statuses seen by successful scrapes, labeled by class (2xx, 4xx, ...).",
			},
			[]string{"class"},
		)

		scrapeDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scrapeurl_scrape_duration_seconds",
				Help:    "Histogram of scrape latencies, labeled by content branch.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"branch"},
		)

		logEntriesDroppedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scrapeurl_log_entries_dropped_total",
				Help: "Log entries discarded because a scrape's log buffer was full.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// StatusClass buckets an HTTP status into "1xx".."5xx", or "none" when no
// status was received.
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "none"
	}
	return strconv.Itoa(code/100) + "xx"
}

// ObserveScrape records one finished scrape. statusCode is ignored for
// failures.
func ObserveScrape(outcome, branch string, statusCode int, duration time.Duration) {
	scrapesTotal.WithLabelValues(outcome).Inc()
	if outcome != OutcomeFailure {
		originStatusTotal.WithLabelValues(StatusClass(statusCode)).Inc()
	}
	if branch == "" {
		branch = "none"
	}
	scrapeDurationSeconds.WithLabelValues(branch).Observe(duration.Seconds())
}

// ObserveLogDrops adds n discarded log entries.
func ObserveLogDrops(n int) {
	if n > 0 {
		logEntriesDroppedTotal.Add(float64(n))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

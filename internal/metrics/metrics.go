// Package metrics exposes Prometheus collectors for the lead service.
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

var (
	searchesTotal                  *prometheus.CounterVec
	providerRequestDurationSeconds *prometheus.HistogramVec
	pollChecksTotal                *prometheus.CounterVec
	candidatesStagedTotal          *prometheus.CounterVec
	leadsInsertedTotal             *prometheus.CounterVec
	leadsSkippedDuplicateTotal     *prometheus.CounterVec
	exportsTotal                   *prometheus.CounterVec
	httpRequestsTotal              *prometheus.CounterVec
	httpRequestDurationSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		searchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cafeleads_searches_total",
				Help: "Total number of searches, labeled by provider and outcome.",
			},
			[]string{"provider", "status"},
		)

		providerRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cafeleads_provider_request_duration_seconds",
				Help:    "Histogram of outbound provider request latencies.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"provider", "operation"},
		)

		pollChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cafeleads_poll_checks_total",
				Help: "Total number of remote job status checks, labeled by result.",
			},
			[]string{"result"},
		)

		candidatesStagedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cafeleads_candidates_staged_total",
				Help: "Total normalized, deduplicated candidates staged for review.",
			},
			[]string{"provider"},
		)

		leadsInsertedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cafeleads_leads_inserted_total",
				Help: "Total leads persisted after confirmation, labeled by source.",
			},
			[]string{"source"},
		)

		leadsSkippedDuplicateTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cafeleads_leads_skipped_duplicate_total",
				Help: "Total confirmed candidates skipped because the natural key already existed.",
			},
			[]string{"source"},
		)

		exportsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cafeleads_exports_total",
				Help: "Total spreadsheet export calls, labeled by outcome.",
			},
			[]string{"status"},
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
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 30, 120},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSearch increments the search counter for the given provider/outcome.
func ObserveSearch(provider, status string) {
	searchesTotal.WithLabelValues(provider, status).Inc()
}

// ObserveProviderRequest records the latency of one outbound provider call.
func ObserveProviderRequest(provider, operation string, duration time.Duration) {
	providerRequestDurationSeconds.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// ObservePollCheck counts one remote job status check.
func ObservePollCheck(result string) {
	pollChecksTotal.WithLabelValues(result).Inc()
}

// ObserveStaged adds the number of candidates staged for a provider.
func ObserveStaged(provider string, count int) {
	if count > 0 {
		candidatesStagedTotal.WithLabelValues(provider).Add(float64(count))
	}
}

// ObservePersist records insert/skip counts from one confirmation.
func ObservePersist(source string, inserted, skipped int) {
	if inserted > 0 {
		leadsInsertedTotal.WithLabelValues(source).Add(float64(inserted))
	}
	if skipped > 0 {
		leadsSkippedDuplicateTotal.WithLabelValues(source).Add(float64(skipped))
	}
}

// ObserveExport counts one export call outcome.
func ObserveExport(status string) {
	exportsTotal.WithLabelValues(status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

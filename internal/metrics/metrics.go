// Package metrics holds the Prometheus instruments for the discovery pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for pubspy.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Cache metrics
	cacheLookups *prometheus.CounterVec
	cacheEntries prometheus.Gauge

	// Search metrics
	searchRequests *prometheus.CounterVec
	searchDuration prometheus.Histogram
	searchHits     prometheus.Counter

	// Verification metrics
	verifications      *prometheus.CounterVec
	verifyDuration     *prometheus.HistogramVec
	discoveriesTotal   *prometheus.CounterVec
	discoveryDuration  prometheus.Histogram
	candidatesPerQuery prometheus.Histogram

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	configReloads *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates a metrics instance registered on its own registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubspy_cache_lookups_total",
				Help: "Cache lookups by TTL class and outcome (hit, miss, stale)",
			},
			[]string{"class", "outcome"},
		),
		cacheEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pubspy_cache_entries",
			Help: "Current number of entries held in the memory cache",
		}),

		searchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubspy_search_requests_total",
				Help: "Search provider requests by outcome",
			},
			[]string{"outcome"},
		),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pubspy_search_request_duration_seconds",
			Help:    "Search provider request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		searchHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pubspy_search_hits_total",
			Help: "Raw hits returned by the search provider",
		}),

		verifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubspy_verifications_total",
				Help: "Candidate verifications by resulting method",
			},
			[]string{"method"},
		),
		verifyDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pubspy_verification_duration_seconds",
				Help:    "Verification latency per verifier in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"verifier"},
		),
		discoveriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubspy_discoveries_total",
				Help: "Discovery runs by result source",
			},
			[]string{"source"},
		),
		discoveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pubspy_discovery_duration_seconds",
			Help:    "End-to-end discovery latency in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40, 80},
		}),
		candidatesPerQuery: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pubspy_discovery_candidates",
			Help:    "Candidates kept after deduplication per discovery",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 40},
		}),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubspy_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pubspy_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		configReloads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pubspy_config_reloads_total",
				Help: "Configuration reload attempts by status",
			},
			[]string{"status"},
		),

		registry: registry,
	}

	registry.MustRegister(
		m.cacheLookups,
		m.cacheEntries,
		m.searchRequests,
		m.searchDuration,
		m.searchHits,
		m.verifications,
		m.verifyDuration,
		m.discoveriesTotal,
		m.discoveryDuration,
		m.candidatesPerQuery,
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.configReloads,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RecordCacheLookup records a cache lookup outcome ("hit", "miss", "stale").
func (m *Metrics) RecordCacheLookup(class, outcome string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(class, outcome).Inc()
}

// SetCacheEntries updates the cache size gauge.
func (m *Metrics) SetCacheEntries(n int) {
	if m == nil {
		return
	}
	m.cacheEntries.Set(float64(n))
}

// RecordSearchRequest records one provider call.
func (m *Metrics) RecordSearchRequest(outcome string, hits int, duration time.Duration) {
	if m == nil {
		return
	}
	m.searchRequests.WithLabelValues(outcome).Inc()
	m.searchDuration.Observe(duration.Seconds())
	m.searchHits.Add(float64(hits))
}

// RecordVerification records the final method assigned to a candidate.
func (m *Metrics) RecordVerification(method string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(method).Inc()
}

// ObserveVerifier records the latency of a single verifier call.
func (m *Metrics) ObserveVerifier(verifier string, duration time.Duration) {
	if m == nil {
		return
	}
	m.verifyDuration.WithLabelValues(verifier).Observe(duration.Seconds())
}

// RecordDiscovery records a completed discovery run.
func (m *Metrics) RecordDiscovery(source string, candidates int, duration time.Duration) {
	if m == nil {
		return
	}
	m.discoveriesTotal.WithLabelValues(source).Inc()
	m.discoveryDuration.Observe(duration.Seconds())
	m.candidatesPerQuery.Observe(float64(candidates))
}

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, route, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordConfigReload records a configuration reload attempt.
func (m *Metrics) RecordConfigReload(status string) {
	if m == nil {
		return
	}
	m.configReloads.WithLabelValues(status).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/campusdesk/college-admin-api/internal/models"
)

const metricsNamespace = "college"

// MetricsService owns a private Prometheus registry. Every method is safe on
// a nil receiver so tests and tools can run without instrumentation.
type MetricsService struct {
	handler http.Handler

	httpDuration *prometheus.HistogramVec
	httpTotal    *prometheus.CounterVec
	cacheLookups *prometheus.CounterVec
	cacheLatency *prometheus.HistogramVec
	assigned     *prometheus.CounterVec
	rejected     *prometheus.CounterVec
	assignTime   prometheus.Histogram
	backlog      prometheus.Gauge

	// Mirrors of the counters above, read by Snapshot.
	requests    atomic.Uint64
	requestNano atomic.Uint64
	hits        atomic.Uint64
	misses      atomic.Uint64
	substitutes atomic.Uint64
	overrides   atomic.Uint64
}

func NewMetricsService() *MetricsService {
	m := &MetricsService{
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "request_duration_seconds",
			Help: "HTTP request latency by route template.",
		}, []string{"method", "path", "status"}),
		httpTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route template.",
		}, []string{"method", "path", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Subsystem: "cache", Name: "lookups_total",
			Help: "Read-through cache lookups by result.",
		}, []string{"result"}),
		cacheLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Subsystem: "cache", Name: "operation_seconds",
			Help:    "Redis round-trip time by operation.",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1},
		}, []string{"op"}),
		assigned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "substitute_assignments_total",
			Help: "Committed substitute assignments.",
		}, []string{"override"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace, Name: "substitute_assignments_rejected_total",
			Help: "Substitute assignments refused before commit, by reason.",
		}, []string{"reason"}),
		assignTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace, Name: "substitute_assign_duration_seconds",
			Help: "Wall time of an assignment including the locking transaction.",
		}),
		backlog: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace, Name: "lectures_needing_coverage",
			Help: "Lectures without cover in the last unfiltered listing.",
		}),
	}

	hitRatio := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: metricsNamespace, Subsystem: "cache", Name: "hit_ratio",
		Help: "Cache hits over all lookups since start.",
	}, m.hitRatio)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpDuration, m.httpTotal, m.cacheLookups, m.cacheLatency, hitRatio,
		m.assigned, m.rejected, m.assignTime, m.backlog,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpDuration.WithLabelValues(method, path, code).Observe(elapsed.Seconds())
	m.httpTotal.WithLabelValues(method, path, code).Inc()
	m.requests.Add(1)
	m.requestNano.Add(uint64(elapsed.Nanoseconds()))
}

// RecordCacheOperation counts one cache read.
func (m *MetricsService) RecordCacheOperation(hit bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("get").Observe(elapsed.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		m.hits.Add(1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	m.misses.Add(1)
}

func (m *MetricsService) ObserveCacheWrite(elapsed time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.WithLabelValues("set").Observe(elapsed.Seconds())
}

// RecordSubstitution counts a committed assignment.
func (m *MetricsService) RecordSubstitution(override bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.assigned.WithLabelValues(strconv.FormatBool(override)).Inc()
	m.assignTime.Observe(elapsed.Seconds())
	m.substitutes.Add(1)
	if override {
		m.overrides.Add(1)
	}
}

func (m *MetricsService) RecordRejectedAssignment(reason string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *MetricsService) SetCoverageBacklog(n int) {
	if m == nil {
		return
	}
	m.backlog.Set(float64(n))
}

// Snapshot summarises the process counters for the JSON metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	snap := models.SystemMetrics{
		CacheHitRatio:         m.hitRatio(),
		CacheHits:             m.hits.Load(),
		CacheMisses:           m.misses.Load(),
		RequestsTotal:         m.requests.Load(),
		SubstitutionsTotal:    m.substitutes.Load(),
		OverrideSubstitutions: m.overrides.Load(),
		Goroutines:            runtime.NumGoroutine(),
		GeneratedAt:           time.Now().UTC(),
	}
	if snap.RequestsTotal > 0 {
		snap.AverageRequestDurationMs = float64(m.requestNano.Load()) / float64(snap.RequestsTotal) / float64(time.Millisecond)
	}
	return snap
}

func (m *MetricsService) hitRatio() float64 {
	hits, misses := m.hits.Load(), m.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}

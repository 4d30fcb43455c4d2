package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
)

// Namespace prefixes every metric the platform exports.
const Namespace = "molprop"

var (
	httpDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	analysisDurationBuckets = []float64{.01, .05, .1, .5, 1, 5, 15, 60, 300}
	toolkitDurationBuckets = []float64{1, 5, 15, 60, 300, 900, 1800, 3600}
	tableRowBuckets        = []float64{10, 100, 1000, 10000, 100000, 1000000}
)

// Metrics holds every metric the platform exports.
type Metrics struct {
	collector *Collector

	// HTTP surface.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPActiveRequests  *prometheus.GaugeVec

	// Analyses (projection, pareto, mmp, sar, lookup, bioisostere).
	AnalysesTotal    *prometheus.CounterVec
	AnalysisDuration *prometheus.HistogramVec
	TableRowsLoaded  *prometheus.HistogramVec

	// Toolkit pipeline runs.
	RunsTotal           *prometheus.CounterVec
	ToolkitStepDuration *prometheus.HistogramVec
	ActiveRuns          *prometheus.GaugeVec

	// Job queue.
	JobsPublished *prometheus.CounterVec
	JobsConsumed  *prometheus.CounterVec

	// Caches.
	CacheHits   *prometheus.CounterVec
	CacheMisses *prometheus.CounterVec
}

// NewMetrics registers the platform's metric set on a fresh collector.
func NewMetrics(log logging.Logger) *Metrics {
	c := NewCollector(Namespace, log)
	return &Metrics{
		collector: c,

		HTTPRequestsTotal: c.Counter("http_requests_total",
			"HTTP requests served", "method", "path", "status"),
		HTTPRequestDuration: c.Histogram("http_request_duration_seconds",
			"HTTP request latency", httpDurationBuckets, "method", "path"),
		HTTPActiveRequests: c.Gauge("http_active_requests",
			"In-flight HTTP requests", "method"),

		AnalysesTotal: c.Counter("analyses_total",
			"Analyses executed", "kind", "outcome"),
		AnalysisDuration: c.Histogram("analysis_duration_seconds",
			"Analysis wall time", analysisDurationBuckets, "kind"),
		TableRowsLoaded: c.Histogram("table_rows_loaded",
			"Rows per loaded results table", tableRowBuckets, "format"),

		RunsTotal: c.Counter("runs_total",
			"Toolkit pipeline runs", "outcome"),
		ToolkitStepDuration: c.Histogram("toolkit_step_duration_seconds",
			"External toolkit step wall time", toolkitDurationBuckets, "step"),
		ActiveRuns: c.Gauge("active_runs",
			"Pipeline runs currently executing", "kind"),

		JobsPublished: c.Counter("jobs_published_total",
			"Analysis jobs enqueued", "kind"),
		JobsConsumed: c.Counter("jobs_consumed_total",
			"Analysis jobs dequeued by workers", "kind", "outcome"),

		CacheHits: c.Counter("cache_hits_total",
			"Cache hits", "cache"),
		CacheMisses: c.Counter("cache_misses_total",
			"Cache misses", "cache"),
	}
}

// Collector exposes the underlying registry for the /metrics handler.
func (m *Metrics) Collector() *Collector {
	return m.collector
}

// CacheHit counts a read served from the named cache.
func (m *Metrics) CacheHit(cache string) {
	m.CacheHits.WithLabelValues(cache).Inc()
}

// CacheMiss counts a read that fell through to the loader.
func (m *Metrics) CacheMiss(cache string) {
	m.CacheMisses.WithLabelValues(cache).Inc()
}

// ObserveAnalysis records one analysis execution.
func (m *Metrics) ObserveAnalysis(kind string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.AnalysesTotal.WithLabelValues(kind, outcome).Inc()
	m.AnalysisDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// RunStarted marks a run as in flight.
func (m *Metrics) RunStarted(kind string) {
	m.ActiveRuns.WithLabelValues(kind).Inc()
}

// RunFinished settles the in-flight gauge and counts the outcome.
func (m *Metrics) RunFinished(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.ActiveRuns.WithLabelValues(kind).Dec()
	m.RunsTotal.WithLabelValues(outcome).Inc()
}

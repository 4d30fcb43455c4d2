package prometheus

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
)

func TestNewMetricsRegistersAndCounts(t *testing.T) {
	m := NewMetrics(logging.NewNopLogger())

	m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/runs", "200").Inc()
	m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/runs", "200").Inc()

	got := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/runs", "200"))
	assert.Equal(t, 2.0, got)
}

func TestObserveAnalysisOutcomes(t *testing.T) {
	m := NewMetrics(logging.NewNopLogger())

	m.ObserveAnalysis("pareto", time.Now(), nil)
	m.ObserveAnalysis("pareto", time.Now(), assert.AnError)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("pareto", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AnalysesTotal.WithLabelValues("pareto", "error")))
}

func TestCollectorRegisterIsIdempotent(t *testing.T) {
	c := NewCollector("test", logging.NewNopLogger())

	a := c.Counter("things_total", "things", "kind")
	b := c.Counter("things_total", "things", "kind")
	assert.Same(t, a, b, "re-registering a name returns the original vector")
}

func TestHandlerServesMetrics(t *testing.T) {
	m := NewMetrics(logging.NewNopLogger())
	m.RunsTotal.WithLabelValues("succeeded").Inc()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Collector().Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "molprop_runs_total")
}

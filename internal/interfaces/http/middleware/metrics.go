package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/molprop/platform/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request counts, durations, and in-flight gauges.  The
// route template (not the raw URL) is used as the path label so IDs do not
// explode the cardinality.
func Metrics(m *prometheus.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		m.HTTPActiveRequests.WithLabelValues(method).Inc()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		m.HTTPActiveRequests.WithLabelValues(method).Dec()
		m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		m.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

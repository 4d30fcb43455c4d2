package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
)

// LoggingConfig tunes the request log middleware.
type LoggingConfig struct {
	// SkipPaths are high-frequency paths left out of the log.
	SkipPaths []string
	// SlowThreshold promotes slow requests to warnings.
	SlowThreshold time.Duration
}

// DefaultLoggingConfig skips the probe endpoints and flags requests slower
// than three seconds.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		SkipPaths:     []string{"/healthz", "/readyz", "/metrics"},
		SlowThreshold: 3 * time.Second,
	}
}

// RequestLogging logs one line per request: method, path, status, duration,
// and the request ID.  5xx log at error level, 4xx and slow requests at warn.
func RequestLogging(logger logging.Logger, cfg LoggingConfig) gin.HandlerFunc {
	skip := make(map[string]struct{}, len(cfg.SkipPaths))
	for _, p := range cfg.SkipPaths {
		skip[p] = struct{}{}
	}
	logger = logger.Named("http")

	return func(c *gin.Context) {
		if _, ok := skip[c.Request.URL.Path]; ok {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		status := c.Writer.Status()
		fields := []logging.Field{
			logging.String("method", c.Request.Method),
			logging.String("path", c.Request.URL.Path),
			logging.Int("status", status),
			logging.Duration("duration", elapsed),
			logging.Int("bytes", c.Writer.Size()),
			logging.String("request_id", GetRequestID(c)),
		}
		switch {
		case status >= 500:
			logger.Error("request failed", fields...)
		case status >= 400:
			logger.Warn("request rejected", fields...)
		case cfg.SlowThreshold > 0 && elapsed > cfg.SlowThreshold:
			logger.Warn("slow request", fields...)
		default:
			logger.Info("request", fields...)
		}
	}
}

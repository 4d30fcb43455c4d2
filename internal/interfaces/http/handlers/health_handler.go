package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/types/common"
)

const healthCheckTimeout = 5 * time.Second

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	checks  map[string]HealthCheck
	version string
	logger  logging.Logger
}

// NewHealthHandler wires the probe endpoints.  checks maps a dependency name
// to its ping; an empty map means readiness equals liveness.
func NewHealthHandler(version string, checks map[string]HealthCheck, log logging.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, version: version, logger: log.Named("health")}
}

// Liveness answers as long as the process is serving.
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": common.HealthOK, "version": h.version})
}

// Readiness pings every dependency and reports per-component status; any
// failure turns the overall answer into 503.
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	overall := common.HealthOK
	components := map[string]string{}
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			h.logger.Warn("dependency unhealthy",
				logging.String("component", name), logging.Err(err))
			components[name] = err.Error()
			overall = common.HealthDegraded
			continue
		}
		components[name] = string(common.HealthOK)
	}

	status := http.StatusOK
	if overall != common.HealthOK {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":     overall,
		"version":    h.version,
		"components": components,
	})
}

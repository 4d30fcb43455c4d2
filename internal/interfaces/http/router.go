// Package http assembles the dashboard API: routing, middleware, and the
// server lifecycle.
package http

import (
	"github.com/gin-gonic/gin"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/internal/infrastructure/monitoring/prometheus"
	"github.com/molprop/platform/internal/interfaces/http/handlers"
	"github.com/molprop/platform/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware the route tree needs.
type RouterConfig struct {
	Tables   *handlers.TableHandler
	Analyses *handlers.AnalysisHandler
	Runs     *handlers.RunHandler
	Health   *handlers.HealthHandler

	CORS    middleware.CORSConfig
	Logging middleware.LoggingConfig
	Metrics *prometheus.Metrics
	Logger  logging.Logger
}

// NewRouter builds the full route tree.
func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	r.Use(middleware.CORS(cfg.CORS))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}

	if cfg.Health != nil {
		r.GET("/healthz", cfg.Health.Liveness)
		r.GET("/readyz", cfg.Health.Readiness)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Collector().Handler()))
	}

	api := r.Group("/api/v1")
	{
		if cfg.Tables != nil {
			api.POST("/tables", cfg.Tables.Upload)
			api.GET("/tables/preview", cfg.Tables.Preview)
		}
		if cfg.Analyses != nil {
			analyses := api.Group("/analyses")
			analyses.POST("/visualize", cfg.Analyses.Visualize)
			analyses.POST("/pareto", cfg.Analyses.Pareto)
			analyses.POST("/mmp", cfg.Analyses.MMP)
			analyses.POST("/sar", cfg.Analyses.SAR)
			analyses.POST("/lookup", cfg.Analyses.Lookup)
			analyses.POST("/lookup/index", cfg.Analyses.LookupIndex)
			analyses.POST("/bioisostere", cfg.Analyses.Bioisostere)
			api.GET("/jobs/:id", cfg.Analyses.Job)
		}
		if cfg.Runs != nil {
			api.POST("/runs", cfg.Runs.Create)
			api.GET("/runs", cfg.Runs.List)
			api.GET("/runs/:id", cfg.Runs.Get)
			api.GET("/runs/:id/bundle", cfg.Runs.Bundle)
			api.DELETE("/runs/:id", cfg.Runs.Delete)
		}
	}
	return r
}

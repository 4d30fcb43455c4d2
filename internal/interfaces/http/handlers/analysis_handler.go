package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/internal/infrastructure/monitoring/prometheus"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	"github.com/molprop/platform/pkg/types/common"
)

// Runner interfaces are the application services, one per analysis.
type (
	VisualizeRunner interface {
		Run(ctx context.Context, req analysis.VisualizeRequest) (*analysis.VisualizeResult, error)
	}
	ParetoRunner interface {
		Run(ctx context.Context, req analysis.ParetoRequest) (*analysis.ParetoResult, error)
	}
	MMPRunner interface {
		Run(ctx context.Context, req analysis.MMPRequest) (*analysis.MMPResult, error)
	}
	SARRunner interface {
		Run(ctx context.Context, req analysis.SARRequest) (*analysis.SARResult, error)
	}
	LookupRunner interface {
		Run(ctx context.Context, req analysis.LookupRequest) (*analysis.LookupResult, error)
	}
	BioisostereRunner interface {
		Run(ctx context.Context, req analysis.BioisostereRequest) (*analysis.BioisostereResult, error)
	}
	RegistryIndexer interface {
		Index(ctx context.Context, req analysis.LookupIndexRequest) (*analysis.LookupIndexResult, error)
	}
)

// JobQueue publishes analysis jobs for the worker pool.
type JobQueue interface {
	Publish(ctx context.Context, job *analysis.Job) error
}

// JobStore records job lifecycle for status polling.
type JobStore interface {
	Create(ctx context.Context, job *analysis.Job) error
	GetByID(ctx context.Context, id string) (*analysis.Job, analysis.JobStatus, string, error)
}

// AnalysisServices groups the per-kind runners.
type AnalysisServices struct {
	Visualize   VisualizeRunner
	Pareto      ParetoRunner
	MMP         MMPRunner
	SAR         SARRunner
	Lookup      LookupRunner
	Bioisostere BioisostereRunner
	Registry    RegistryIndexer
}

// AnalysisHandler serves the analysis endpoints, synchronously by default
// and through the job queue when the client asks for async.
type AnalysisHandler struct {
	services AnalysisServices
	queue    JobQueue
	jobs     JobStore
	metrics  *prometheus.Metrics
	logger   logging.Logger
}

// NewAnalysisHandler wires the analysis endpoints.  queue, jobs, and metrics
// may be nil; async requests then answer 501.
func NewAnalysisHandler(services AnalysisServices, queue JobQueue, jobs JobStore, metrics *prometheus.Metrics, log logging.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		services: services,
		queue:    queue,
		jobs:     jobs,
		metrics:  metrics,
		logger:   log.Named("analyses"),
	}
}

func (h *AnalysisHandler) async(c *gin.Context) bool {
	return c.Query("async") == "true"
}

// enqueue persists and publishes one job, answering 202 with its ID.
func (h *AnalysisHandler) enqueue(c *gin.Context, job *analysis.Job) {
	if h.queue == nil {
		respondError(c, errors.New(errors.ErrCodeNotImplemented, "async execution requires the job queue"))
		return
	}
	job.ID = common.ID(uuid.NewString())
	job.SubmittedAt = time.Now().UTC()

	if h.jobs != nil {
		if err := h.jobs.Create(c.Request.Context(), job); err != nil {
			respondError(c, err)
			return
		}
	}
	if err := h.queue.Publish(c.Request.Context(), job); err != nil {
		respondError(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.JobsPublished.WithLabelValues(string(job.Kind)).Inc()
	}
	h.logger.Info("job enqueued",
		logging.String("job", string(job.ID)),
		logging.String("kind", string(job.Kind)))
	respond(c, http.StatusAccepted, gin.H{"job_id": job.ID, "status": analysis.JobQueued})
}

// Visualize projects a table to 2-D.
func (h *AnalysisHandler) Visualize(c *gin.Context) {
	var req analysis.VisualizeRequest
	if !bindJSON(c, &req) {
		return
	}
	if h.async(c) {
		h.enqueue(c, &analysis.Job{Kind: analysis.KindVisualize, Visualize: &req})
		return
	}
	result, err := h.services.Visualize.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// Pareto ranks compounds into non-dominated fronts.
func (h *AnalysisHandler) Pareto(c *gin.Context) {
	var req analysis.ParetoRequest
	if !bindJSON(c, &req) {
		return
	}
	if h.async(c) {
		h.enqueue(c, &analysis.Job{Kind: analysis.KindPareto, Pareto: &req})
		return
	}
	result, err := h.services.Pareto.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// MMP mines matched molecular pairs.
func (h *AnalysisHandler) MMP(c *gin.Context) {
	var req analysis.MMPRequest
	if !bindJSON(c, &req) {
		return
	}
	if h.async(c) {
		h.enqueue(c, &analysis.Job{Kind: analysis.KindMMP, MMP: &req})
		return
	}
	result, err := h.services.MMP.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// SAR summarizes scaffolds and flags activity cliffs.
func (h *AnalysisHandler) SAR(c *gin.Context) {
	var req analysis.SARRequest
	if !bindJSON(c, &req) {
		return
	}
	if h.async(c) {
		h.enqueue(c, &analysis.Job{Kind: analysis.KindSAR, SAR: &req})
		return
	}
	result, err := h.services.SAR.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// Lookup answers compound queries; always synchronous, it is interactive.
func (h *AnalysisHandler) Lookup(c *gin.Context) {
	var req analysis.LookupRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.services.Lookup.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// Bioisostere suggests fragment replacements; always synchronous.
func (h *AnalysisHandler) Bioisostere(c *gin.Context) {
	var req analysis.BioisostereRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.services.Bioisostere.Run(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// LookupIndex registers a table's compounds in the lookup registry.
func (h *AnalysisHandler) LookupIndex(c *gin.Context) {
	if h.services.Registry == nil {
		respondError(c, errors.New(errors.ErrCodeNotImplemented, "indexing requires a registry backend"))
		return
	}
	var req analysis.LookupIndexRequest
	if !bindJSON(c, &req) {
		return
	}
	result, err := h.services.Registry.Index(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// Job reports the status of a queued analysis.
func (h *AnalysisHandler) Job(c *gin.Context) {
	if h.jobs == nil {
		respondError(c, errors.New(errors.ErrCodeNotImplemented, "job tracking requires the database"))
		return
	}
	job, status, jobErr, err := h.jobs.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"job": job, "status": status, "error": jobErr})
}

package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/molprop/platform/internal/application/runs"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	"github.com/molprop/platform/pkg/types/common"
)

// PipelineRunner executes the generate workflow.
type PipelineRunner interface {
	Run(ctx context.Context, req analysis.PipelineRequest) (string, *analysis.PipelineResult, error)
}

// RunBrowser serves run listings and bundles; the runs application service
// satisfies it.
type RunBrowser interface {
	List(ctx context.Context, page common.Pagination) ([]runs.Summary, common.Pagination, error)
	Get(ctx context.Context, id string) (*runs.Detail, error)
	Bundle(ctx context.Context, id string) (io.ReadCloser, error)
	Delete(ctx context.Context, id string) error
}

// RunHandler serves the run endpoints.
type RunHandler struct {
	pipeline PipelineRunner
	browser  RunBrowser
	logger   logging.Logger
}

// NewRunHandler wires the run endpoints.  pipeline may be nil when the
// toolkit is not installed alongside the server.
func NewRunHandler(pipeline PipelineRunner, browser RunBrowser, log logging.Logger) *RunHandler {
	return &RunHandler{pipeline: pipeline, browser: browser, logger: log.Named("runs")}
}

// Create executes a pipeline over an already-uploaded input file.
func (h *RunHandler) Create(c *gin.Context) {
	if h.pipeline == nil {
		respondError(c, errors.New(errors.ErrCodeToolkitUnavailable, "pipeline execution is not configured"))
		return
	}
	var req analysis.PipelineRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.InputPath == "" {
		respondError(c, errors.New(errors.ErrCodeBadRequest, "input_path is required"))
		return
	}

	runID, result, err := h.pipeline.Run(c.Request.Context(), req)
	if err != nil {
		// Partial step output still helps debugging; ship it with the error.
		code := errors.GetCode(err)
		c.JSON(errors.HTTPStatusForCode(code), gin.H{
			"success": false,
			"run_id":  runID,
			"result":  result,
			"error":   gin.H{"code": string(code), "message": err.Error()},
		})
		return
	}
	respond(c, http.StatusCreated, gin.H{"run_id": runID, "result": result})
}

// List pages through runs, newest first.
func (h *RunHandler) List(c *gin.Context) {
	summaries, page, err := h.browser.List(c.Request.Context(), parsePagination(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondPage(c, http.StatusOK, summaries, page)
}

// Get returns one run with its metadata.
func (h *RunHandler) Get(c *gin.Context) {
	detail, err := h.browser.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, detail)
}

// Bundle streams the zipped run directory.
func (h *RunHandler) Bundle(c *gin.Context) {
	id := c.Param("id")
	body, err := h.browser.Bundle(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	defer body.Close()

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", `attachment; filename="`+id+`.zip"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, body); err != nil {
		h.logger.Warn("bundle stream interrupted",
			logging.String("run", id), logging.Err(err))
	}
}

// Delete removes a run everywhere it is stored.
func (h *RunHandler) Delete(c *gin.Context) {
	if err := h.browser.Delete(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

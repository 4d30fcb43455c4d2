package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/internal/application/runs"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	"github.com/molprop/platform/pkg/types/common"
)

type fakePipeline struct {
	runID  string
	result *analysis.PipelineResult
	err    error
	req    analysis.PipelineRequest
}

func (f *fakePipeline) Run(_ context.Context, req analysis.PipelineRequest) (string, *analysis.PipelineResult, error) {
	f.req = req
	return f.runID, f.result, f.err
}

type fakeBrowser struct {
	summaries []runs.Summary
	detail    *runs.Detail
	bundle    []byte
	deleted   []string
	err       error
}

func (f *fakeBrowser) List(_ context.Context, page common.Pagination) ([]runs.Summary, common.Pagination, error) {
	page.Normalize()
	page.Total = int64(len(f.summaries))
	return f.summaries, page, f.err
}

func (f *fakeBrowser) Get(context.Context, string) (*runs.Detail, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.detail, nil
}

func (f *fakeBrowser) Bundle(context.Context, string) (io.ReadCloser, error) {
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(bytes.NewReader(f.bundle)), nil
}

func (f *fakeBrowser) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func runRouter(h *RunHandler) *gin.Engine {
	r := gin.New()
	r.POST("/runs", h.Create)
	r.GET("/runs", h.List)
	r.GET("/runs/:id", h.Get)
	r.GET("/runs/:id/bundle", h.Bundle)
	r.DELETE("/runs/:id", h.Delete)
	return r
}

func TestRunCreate(t *testing.T) {
	pipe := &fakePipeline{
		runID: "run_20260830_120000_1",
		result: &analysis.PipelineResult{
			ResultsTable: "outputs/results.parquet",
			Steps:        []analysis.PipelineStep{{Name: "calc"}},
		},
	}
	h := NewRunHandler(pipe, &fakeBrowser{}, logging.NewNopLogger())

	w := postJSON(t, runRouter(h), "/runs", analysis.PipelineRequest{InputPath: "upload.smi"})

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "upload.smi", pipe.req.InputPath)
	assert.Contains(t, w.Body.String(), "run_20260830_120000_1")
	assert.Contains(t, w.Body.String(), "results.parquet")
}

func TestRunCreateRequiresInput(t *testing.T) {
	h := NewRunHandler(&fakePipeline{}, &fakeBrowser{}, logging.NewNopLogger())
	w := postJSON(t, runRouter(h), "/runs", analysis.PipelineRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunCreateUnconfigured(t *testing.T) {
	h := NewRunHandler(nil, &fakeBrowser{}, logging.NewNopLogger())
	w := postJSON(t, runRouter(h), "/runs", analysis.PipelineRequest{InputPath: "x.smi"})
	assert.Equal(t, errors.HTTPStatusForCode(errors.ErrCodeToolkitUnavailable), w.Code)
}

func TestRunCreateFailureCarriesPartialSteps(t *testing.T) {
	pipe := &fakePipeline{
		runID:  "run_x",
		result: &analysis.PipelineResult{Steps: []analysis.PipelineStep{{Name: "calc", ReturnCode: 2}}},
		err:    errors.New(errors.ErrCodeToolkitStepFailed, "calc exited with code 2"),
	}
	h := NewRunHandler(pipe, &fakeBrowser{}, logging.NewNopLogger())

	w := postJSON(t, runRouter(h), "/runs", analysis.PipelineRequest{InputPath: "x.smi"})

	assert.Equal(t, errors.HTTPStatusForCode(errors.ErrCodeToolkitStepFailed), w.Code)
	assert.Contains(t, w.Body.String(), "run_x")
	assert.Contains(t, w.Body.String(), `"return_code":2`)
}

func TestRunList(t *testing.T) {
	browser := &fakeBrowser{summaries: []runs.Summary{
		{ID: "run_b", Status: analysis.JobSucceeded},
		{ID: "run_a", Status: analysis.JobFailed},
	}}
	h := NewRunHandler(nil, browser, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/runs?page=1&page_size=10", nil)
	w := httptest.NewRecorder()
	runRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "run_b")
	assert.Contains(t, w.Body.String(), `"total":2`)
}

func TestRunGetNotFound(t *testing.T) {
	browser := &fakeBrowser{err: errors.Newf(errors.ErrCodeRunNotFound, "run missing")}
	h := NewRunHandler(nil, browser, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/runs/run_missing", nil)
	w := httptest.NewRecorder()
	runRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunBundleDownload(t *testing.T) {
	browser := &fakeBrowser{bundle: []byte("zip-bytes")}
	h := NewRunHandler(nil, browser, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodGet, "/runs/run_1/bundle", nil)
	w := httptest.NewRecorder()
	runRouter(h).ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/zip", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "run_1.zip")
	assert.Equal(t, "zip-bytes", w.Body.String())
}

func TestRunDelete(t *testing.T) {
	browser := &fakeBrowser{}
	h := NewRunHandler(nil, browser, logging.NewNopLogger())

	req := httptest.NewRequest(http.MethodDelete, "/runs/run_1", nil)
	w := httptest.NewRecorder()
	runRouter(h).ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"run_1"}, browser.deleted)
}

package client

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/molprop/platform/pkg/types/analysis"
	"github.com/molprop/platform/pkg/types/common"
)

// RunsClient calls the pipeline and run-browsing endpoints.
type RunsClient struct {
	client *Client
}

// RunSummary is one row in the run listing.
type RunSummary struct {
	ID        string             `json:"id"`
	Status    analysis.JobStatus `json:"status"`
	Kind      analysis.Kind      `json:"kind,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// RunDetail adds result locations and recorded metadata to a summary.
type RunDetail struct {
	RunSummary
	ResultsPath  string         `json:"results_path,omitempty"`
	BundleObject string         `json:"bundle_object,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// CreateRunResponse acknowledges a pipeline execution.
type CreateRunResponse struct {
	RunID  string                   `json:"run_id"`
	Result *analysis.PipelineResult `json:"result"`
}

// Create executes the toolkit pipeline over an uploaded input file.  The
// call returns when the pipeline finishes; poll List for long runs started
// asynchronously through the job queue instead.
func (r *RunsClient) Create(ctx context.Context, req analysis.PipelineRequest) (*CreateRunResponse, error) {
	var resp CreateRunResponse
	if err := r.client.post(ctx, "/api/v1/runs", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// List pages through runs, newest first.
func (r *RunsClient) List(ctx context.Context, page, pageSize int) ([]RunSummary, *common.Pagination, error) {
	path := fmt.Sprintf("/api/v1/runs?page=%d&page_size=%d", page, pageSize)
	var summaries []RunSummary
	pagination, err := r.client.doPage(ctx, "GET", path, &summaries)
	if err != nil {
		return nil, nil, err
	}
	return summaries, pagination, nil
}

// Get fetches one run's status and metadata.
func (r *RunsClient) Get(ctx context.Context, runID string) (*RunDetail, error) {
	var detail RunDetail
	path := fmt.Sprintf("/api/v1/runs/%s", url.PathEscape(runID))
	if err := r.client.get(ctx, path, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Bundle streams the run's zip archive.  The caller must close the reader.
func (r *RunsClient) Bundle(ctx context.Context, runID string) (io.ReadCloser, error) {
	path := fmt.Sprintf("/api/v1/runs/%s/bundle", url.PathEscape(runID))
	return r.client.raw(ctx, "GET", path)
}

// Delete removes a run directory and its records.
func (r *RunsClient) Delete(ctx context.Context, runID string) error {
	path := fmt.Sprintf("/api/v1/runs/%s", url.PathEscape(runID))
	return r.client.delete(ctx, path)
}

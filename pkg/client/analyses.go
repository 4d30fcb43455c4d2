package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/molprop/platform/pkg/types/analysis"
)

// AnalysesClient calls the analysis endpoints.
type AnalysesClient struct {
	client *Client
}

// JobTicket acknowledges an async submission.
type JobTicket struct {
	JobID  string             `json:"job_id"`
	Status analysis.JobStatus `json:"status"`
}

// JobState is the polled view of an async job.
type JobState struct {
	Job    *analysis.Job      `json:"job"`
	Status analysis.JobStatus `json:"status"`
	Error  string             `json:"error,omitempty"`
}

// Visualize projects a results table to 2-D synchronously.
func (a *AnalysesClient) Visualize(ctx context.Context, req analysis.VisualizeRequest) (*analysis.VisualizeResult, error) {
	var result analysis.VisualizeResult
	if err := a.client.post(ctx, "/api/v1/analyses/visualize", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// VisualizeAsync enqueues a projection job.
func (a *AnalysesClient) VisualizeAsync(ctx context.Context, req analysis.VisualizeRequest) (*JobTicket, error) {
	return a.enqueue(ctx, "/api/v1/analyses/visualize", req)
}

// Pareto ranks compounds into non-dominated fronts synchronously.
func (a *AnalysesClient) Pareto(ctx context.Context, req analysis.ParetoRequest) (*analysis.ParetoResult, error) {
	var result analysis.ParetoResult
	if err := a.client.post(ctx, "/api/v1/analyses/pareto", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ParetoAsync enqueues a Pareto ranking job.
func (a *AnalysesClient) ParetoAsync(ctx context.Context, req analysis.ParetoRequest) (*JobTicket, error) {
	return a.enqueue(ctx, "/api/v1/analyses/pareto", req)
}

// MMP mines matched molecular pairs synchronously.
func (a *AnalysesClient) MMP(ctx context.Context, req analysis.MMPRequest) (*analysis.MMPResult, error) {
	var result analysis.MMPResult
	if err := a.client.post(ctx, "/api/v1/analyses/mmp", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// MMPAsync enqueues a matched-pair mining job.
func (a *AnalysesClient) MMPAsync(ctx context.Context, req analysis.MMPRequest) (*JobTicket, error) {
	return a.enqueue(ctx, "/api/v1/analyses/mmp", req)
}

// SAR summarizes activity by scaffold synchronously.
func (a *AnalysesClient) SAR(ctx context.Context, req analysis.SARRequest) (*analysis.SARResult, error) {
	var result analysis.SARResult
	if err := a.client.post(ctx, "/api/v1/analyses/sar", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SARAsync enqueues a SAR summary job.
func (a *AnalysesClient) SARAsync(ctx context.Context, req analysis.SARRequest) (*JobTicket, error) {
	return a.enqueue(ctx, "/api/v1/analyses/sar", req)
}

// Lookup finds compounds by identifier, SMILES, or similarity.  Lookups are
// always synchronous.
func (a *AnalysesClient) Lookup(ctx context.Context, req analysis.LookupRequest) (*analysis.LookupResult, error) {
	var result analysis.LookupResult
	if err := a.client.post(ctx, "/api/v1/analyses/lookup", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// LookupIndex registers a table's compounds in the server's lookup registry
// so similarity queries can use the fingerprint index.
func (a *AnalysesClient) LookupIndex(ctx context.Context, req analysis.LookupIndexRequest) (*analysis.LookupIndexResult, error) {
	var result analysis.LookupIndexResult
	if err := a.client.post(ctx, "/api/v1/analyses/lookup/index", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Bioisostere suggests replacements for a query structure.  Suggestions are
// always synchronous.
func (a *AnalysesClient) Bioisostere(ctx context.Context, req analysis.BioisostereRequest) (*analysis.BioisostereResult, error) {
	var result analysis.BioisostereResult
	if err := a.client.post(ctx, "/api/v1/analyses/bioisostere", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Job polls the state of an async submission.
func (a *AnalysesClient) Job(ctx context.Context, jobID string) (*JobState, error) {
	var state JobState
	path := fmt.Sprintf("/api/v1/jobs/%s", url.PathEscape(jobID))
	if err := a.client.get(ctx, path, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (a *AnalysesClient) enqueue(ctx context.Context, path string, req interface{}) (*JobTicket, error) {
	var ticket JobTicket
	if err := a.client.post(ctx, path+"?async=true", req, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

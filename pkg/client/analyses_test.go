package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/pkg/types/analysis"
)

func TestVisualizeSync(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/analyses/visualize", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("async"))

		var req analysis.VisualizeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "results.csv", req.TablePath)

		okEnvelope(t, w, http.StatusOK, analysis.VisualizeResult{
			Method:    analysis.MethodPCA,
			NumPoints: 42,
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	result, err := c.Analyses().Visualize(context.Background(), analysis.VisualizeRequest{
		TablePath: "results.csv",
	})
	require.NoError(t, err)
	assert.Equal(t, 42, result.NumPoints)
	assert.Equal(t, analysis.MethodPCA, result.Method)
}

func TestVisualizeAsyncReturnsTicket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "true", r.URL.Query().Get("async"))
		okEnvelope(t, w, http.StatusAccepted, map[string]any{
			"job_id": "job-1", "status": "queued",
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	ticket, err := c.Analyses().VisualizeAsync(context.Background(), analysis.VisualizeRequest{
		TablePath: "results.csv",
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", ticket.JobID)
	assert.Equal(t, analysis.JobQueued, ticket.Status)
}

func TestJobPolling(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/jobs/job-9", r.URL.Path)
		okEnvelope(t, w, http.StatusOK, map[string]any{
			"job":    analysis.Job{ID: "job-9", Kind: analysis.KindPareto},
			"status": "failed",
			"error":  "column \"Potency\" not found",
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	state, err := c.Analyses().Job(context.Background(), "job-9")
	require.NoError(t, err)
	assert.Equal(t, analysis.JobFailed, state.Status)
	assert.Contains(t, state.Error, "Potency")
	assert.Equal(t, analysis.KindPareto, state.Job.Kind)
}

func TestLookupErrorSurfacesCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errEnvelope(t, w, http.StatusNotFound, "MOL_005", "no compound matches \"CPD-404\"")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Analyses().Lookup(context.Background(), analysis.LookupRequest{
		TablePath: "results.csv", Query: "CPD-404",
	})
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "MOL_005", apiErr.Code)
}

func TestLookupIndex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/analyses/lookup/index", r.URL.Path)

		var req analysis.LookupIndexRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "results.csv", req.TablePath)

		okEnvelope(t, w, http.StatusOK, analysis.LookupIndexResult{
			TablePath: "results.csv", NumIndexed: 118, NumSkipped: 2,
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	result, err := c.Analyses().LookupIndex(context.Background(), analysis.LookupIndexRequest{
		TablePath: "results.csv",
	})
	require.NoError(t, err)
	assert.Equal(t, 118, result.NumIndexed)
	assert.Equal(t, 2, result.NumSkipped)
}

func TestBioisostere(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/analyses/bioisostere", r.URL.Path)
		okEnvelope(t, w, http.StatusOK, analysis.BioisostereResult{
			Query: "CC(=O)O",
			Suggestions: []analysis.BioisostereSuggestion{
				{Product: "Cc1nnn[nH]1", Support: 90},
			},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	result, err := c.Analyses().Bioisostere(context.Background(), analysis.BioisostereRequest{
		SMILES: "CC(=O)O",
	})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)
	assert.Equal(t, "Cc1nnn[nH]1", result.Suggestions[0].Product)
}

package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tabletypes "github.com/molprop/platform/pkg/types/table"
)

func TestTablesUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tables", r.URL.Path)
		f, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, "results.csv", header.Filename)

		okEnvelope(t, w, http.StatusCreated, UploadResponse{
			Path: "/uploads/abc/results.csv",
			Info: tabletypes.Info{Format: tabletypes.FormatCSV, NumRows: 2},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "results.csv")
	require.NoError(t, os.WriteFile(path, []byte("Compound_ID,MW\nCPD-1,46.07\nCPD-2,60.10\n"), 0o644))

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := c.Tables().Upload(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/abc/results.csv", resp.Path)
	assert.Equal(t, 2, resp.Info.NumRows)
}

func TestTablesUploadReaderRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errEnvelope(t, w, http.StatusBadRequest, "TBL_002", "cannot parse table")
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Tables().UploadReader(context.Background(), "bad.csv", strings.NewReader("not,a\ntable"))
	require.Error(t, err)
	apiErr, ok := err.(*APIError)
	require.True(t, ok)
	assert.Equal(t, "TBL_002", apiErr.Code)
}

func TestTablesPreview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/tables/preview", r.URL.Path)
		assert.Equal(t, "/uploads/abc/results.csv", r.URL.Query().Get("path"))
		assert.Equal(t, "5", r.URL.Query().Get("rows"))

		okEnvelope(t, w, http.StatusOK, PreviewResponse{
			Info: tabletypes.Info{Format: tabletypes.FormatCSV, NumRows: 100},
			Preview: tabletypes.Preview{
				Columns: []string{"Compound_ID", "MW"},
				Rows:    [][]string{{"CPD-1", "46.07"}},
				Total:   100,
			},
		})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL)
	require.NoError(t, err)

	resp, err := c.Tables().Preview(context.Background(), "/uploads/abc/results.csv", 5)
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Info.NumRows)
	assert.Equal(t, []string{"Compound_ID", "MW"}, resp.Preview.Columns)
}

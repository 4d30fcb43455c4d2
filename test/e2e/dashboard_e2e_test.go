package e2e_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/pkg/client"
	"github.com/molprop/platform/pkg/types/analysis"
)

const sampleTable = "Compound_ID,SMILES,MW,LogP,Potency\n" +
	"CPD-001,CCO,46.07,-0.31,5.2\n" +
	"CPD-002,CCCO,60.10,0.25,6.1\n" +
	"CPD-003,CCCCO,74.12,0.88,6.8\n" +
	"CPD-004,c1ccccc1,78.11,2.13,4.4\n" +
	"CPD-005,Cc1ccccc1,92.14,2.73,5.0\n" +
	"CPD-006,CCc1ccccc1,106.17,3.15,5.5\n"

// uploadSample pushes the fixture table and returns its server-side path.
func uploadSample(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	local := filepath.Join(dir, "results.csv")
	require.NoError(t, os.WriteFile(local, []byte(sampleTable), 0o644))

	resp, err := env.sdk.Tables().Upload(context.Background(), local)
	require.NoError(t, err)
	require.NotEmpty(t, resp.Path)
	return resp.Path
}

func TestUploadAndPreview(t *testing.T) {
	path := uploadSample(t)

	preview, err := env.sdk.Tables().Preview(context.Background(), path, 3)
	require.NoError(t, err)
	assert.Equal(t, 6, preview.Info.NumRows)
	assert.Contains(t, preview.Preview.Columns, "SMILES")
	assert.Len(t, preview.Preview.Rows, 3)
}

func TestVisualizeOverUploadedTable(t *testing.T) {
	path := uploadSample(t)
	outDir := t.TempDir()

	result, err := env.sdk.Analyses().Visualize(context.Background(), analysis.VisualizeRequest{
		TablePath: path,
		OutDir:    outDir,
	})
	require.NoError(t, err)
	assert.Equal(t, 6, result.NumPoints)
	assert.FileExists(t, result.ProjectionCSV)
	assert.FileExists(t, result.ProjectionHTML)
}

func TestParetoOverUploadedTable(t *testing.T) {
	path := uploadSample(t)

	result, err := env.sdk.Analyses().Pareto(context.Background(), analysis.ParetoRequest{
		TablePath: path,
		Objectives: []analysis.Objective{
			{Column: "Potency", Direction: analysis.Maximize},
			{Column: "MW", Direction: analysis.Minimize},
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.FrontSizes)
	total := 0
	for _, n := range result.FrontSizes {
		total += n
	}
	assert.Equal(t, 6, total)
}

func TestLookupOverUploadedTable(t *testing.T) {
	path := uploadSample(t)

	result, err := env.sdk.Analyses().Lookup(context.Background(), analysis.LookupRequest{
		TablePath: path,
		Query:     "CPD-004",
	})
	require.NoError(t, err)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "c1ccccc1", result.Hits[0].SMILES)
}

func TestLookupMissingCompoundSurfacesCode(t *testing.T) {
	path := uploadSample(t)

	_, err := env.sdk.Analyses().Lookup(context.Background(), analysis.LookupRequest{
		TablePath: path,
		Query:     "CPD-404",
	})
	require.Error(t, err)
	apiErr, ok := err.(*client.APIError)
	require.True(t, ok)
	assert.Equal(t, "MOL_005", apiErr.Code)
	assert.True(t, apiErr.IsNotFound())
}

func TestBioisostereSuggestions(t *testing.T) {
	result, err := env.sdk.Analyses().Bioisostere(context.Background(), analysis.BioisostereRequest{
		SMILES: "CC(=O)O",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.Suggestions)
	assert.Equal(t, "Cc1nnn[nH]1", result.Suggestions[0].Product)
}

func TestAsyncWithoutQueueIsRejected(t *testing.T) {
	path := uploadSample(t)

	_, err := env.sdk.Analyses().VisualizeAsync(context.Background(), analysis.VisualizeRequest{
		TablePath: path,
	})
	require.Error(t, err)
	apiErr, ok := err.(*client.APIError)
	require.True(t, ok)
	assert.Equal(t, "COMMON_012", apiErr.Code)
}

func TestLookupIndexWithoutRegistryIsRejected(t *testing.T) {
	path := uploadSample(t)

	_, err := env.sdk.Analyses().LookupIndex(context.Background(), analysis.LookupIndexRequest{
		TablePath: path,
	})
	require.Error(t, err)
	apiErr, ok := err.(*client.APIError)
	require.True(t, ok)
	assert.Equal(t, "COMMON_012", apiErr.Code)
}

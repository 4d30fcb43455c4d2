package e2e_test

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/pkg/client"
	"github.com/molprop/platform/pkg/types/analysis"
)

// createRun executes one pipeline over a tiny SMILES file.
func createRun(t *testing.T) *client.CreateRunResponse {
	t.Helper()
	dir := t.TempDir()
	input := filepath.Join(dir, "compounds.smi")
	require.NoError(t, os.WriteFile(input, []byte("CCO ethanol\nCCCO propanol\n"), 0o644))

	resp, err := env.sdk.Runs().Create(context.Background(), analysis.PipelineRequest{
		InputPath: input,
		OutFormat: "csv",
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp.RunID)
	return resp
}

func TestPipelineRunThroughAPI(t *testing.T) {
	resp := createRun(t)

	require.NotNil(t, resp.Result)
	assert.NotEmpty(t, resp.Result.ResultsTable)
	require.NotEmpty(t, resp.Result.Steps)
	assert.Equal(t, "calc", resp.Result.Steps[0].Name)
	assert.Equal(t, 0, resp.Result.Steps[0].ReturnCode)

	// The stub calculator's table is a real table the analyses can read.
	preview, err := env.sdk.Tables().Preview(context.Background(), resp.Result.ResultsTable, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, preview.Info.NumRows)
}

func TestRunLifecycleThroughAPI(t *testing.T) {
	resp := createRun(t)
	ctx := context.Background()

	summaries, _, err := env.sdk.Runs().List(ctx, 1, 50)
	require.NoError(t, err)
	found := false
	for _, s := range summaries {
		if s.ID == resp.RunID {
			found = true
			assert.Equal(t, analysis.JobSucceeded, s.Status)
		}
	}
	assert.True(t, found, "created run should appear in the listing")

	detail, err := env.sdk.Runs().Get(ctx, resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", detail.Metadata["status"])
	assert.Equal(t, "pipeline", detail.Metadata["kind"])

	rd, err := env.sdk.Runs().Bundle(ctx, resp.RunID)
	require.NoError(t, err)
	data, err := io.ReadAll(rd)
	rd.Close()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := make([]string, 0, len(zr.File))
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "run.json")
	assert.Contains(t, names, "inputs/compounds.smi")

	require.NoError(t, env.sdk.Runs().Delete(ctx, resp.RunID))
	_, err = env.sdk.Runs().Get(ctx, resp.RunID)
	require.Error(t, err)
	apiErr, ok := err.(*client.APIError)
	require.True(t, ok)
	assert.Equal(t, "RUN_001", apiErr.Code)
}

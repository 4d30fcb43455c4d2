package run

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleBytes(t *testing.T) {
	rc, err := New(t.TempDir())
	require.NoError(t, err)

	_, err = rc.SaveInput("compounds.smi", []byte("CCO\n"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(rc.Outputs(), "results.csv"),
		[]byte("Compound_ID,MW\nCPD-001,46.07\n"), 0o644))
	_, err = rc.WriteMetadata(map[string]any{"analysis": "pipeline"})
	require.NoError(t, err)

	raw, err := rc.BundleBytes()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)

	names := map[string]string{}
	for _, f := range zr.File {
		r, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		r.Close()
		names[f.Name] = string(data)
	}

	assert.Contains(t, names, "inputs/compounds.smi")
	assert.Contains(t, names, "outputs/results.csv")
	assert.Contains(t, names, "run.json")
	assert.Equal(t, "CCO\n", names["inputs/compounds.smi"])
}

func TestBundleEmptyRun(t *testing.T) {
	rc, err := New(t.TempDir())
	require.NoError(t, err)

	raw, err := rc.BundleBytes()
	require.NoError(t, err)

	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	require.NoError(t, err)
	assert.Empty(t, zr.File, "empty run zips to an archive with no entries")
}

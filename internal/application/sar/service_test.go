package sar

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

func writeTable(t *testing.T, rows ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "results.csv")
	require.NoError(t, os.WriteFile(path, []byte(strings.Join(rows, "\n")+"\n"), 0o644))
	return path
}

func seriesTable(t *testing.T) string {
	return writeTable(t,
		"Compound_ID,SMILES,pIC50",
		"CPD-001,CCCCc1ccccc1,4.0",
		"CPD-002,CCCCCc1ccccc1,8.5",
		"CPD-003,CCc1ccccc1,5.0",
		"CPD-004,CCNCC,5.0",
	)
}

func TestRunGroupsScaffoldsAndFindsCliffs(t *testing.T) {
	svc := NewService(logging.NewNopLogger(), nil)

	res, err := svc.Run(context.Background(), analysis.SARRequest{
		TablePath:       seriesTable(t),
		ActivityColumn:  "pIC50",
		CliffSimilarity: 0.5,
		CliffDelta:      2.0,
	})
	require.NoError(t, err)

	require.Len(t, res.Scaffolds, 2, "phenyl series plus the acyclic amine")
	assert.Equal(t, "c1ccccc1", res.Scaffolds[0].Scaffold)
	assert.Equal(t, 3, res.Scaffolds[0].N)

	require.NotEmpty(t, res.Cliffs)
	assert.Equal(t, "CPD-001", res.Cliffs[0].LeftID, "less active side goes left")
	assert.Equal(t, "CPD-002", res.Cliffs[0].RightID)
	assert.InDelta(t, 4.5, res.Cliffs[0].Delta, 1e-12, "largest cliff sorts first")
}

func TestRunSkipsDirtyRows(t *testing.T) {
	svc := NewService(logging.NewNopLogger(), nil)
	path := writeTable(t,
		"Compound_ID,SMILES,pIC50",
		"CPD-001,CCc1ccccc1,6.0",
		"CPD-002,,7.0",
		"CPD-003,CCO,",
	)

	res, err := svc.Run(context.Background(), analysis.SARRequest{
		TablePath:      path,
		ActivityColumn: "pIC50",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.NumSkipped)
	assert.Len(t, res.Scaffolds, 1)
}

func TestRunWritesScaffoldTable(t *testing.T) {
	svc := NewService(logging.NewNopLogger(), nil)
	outPath := filepath.Join(t.TempDir(), "scaffolds.csv")

	res, err := svc.Run(context.Background(), analysis.SARRequest{
		TablePath:      seriesTable(t),
		ActivityColumn: "pIC50",
		OutPath:        outPath,
	})
	require.NoError(t, err)
	assert.Equal(t, outPath, res.OutPath)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "Scaffold,N,Mean,StdDev,Min,Max", lines[0])
	assert.Len(t, lines, 3)
}

func TestRunActivityColumnRequired(t *testing.T) {
	svc := NewService(logging.NewNopLogger(), nil)

	_, err := svc.Run(context.Background(), analysis.SARRequest{TablePath: seriesTable(t)})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSARActivityMissing))
}

func TestRunAllRowsDirty(t *testing.T) {
	svc := NewService(logging.NewNopLogger(), nil)
	path := writeTable(t,
		"Compound_ID,SMILES,pIC50",
		"CPD-001,!!!,6.0",
	)

	_, err := svc.Run(context.Background(), analysis.SARRequest{
		TablePath:      path,
		ActivityColumn: "pIC50",
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeSARNoScaffolds))
}

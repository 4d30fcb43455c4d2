package runs

import (
	"archive/zip"
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/internal/domain/run"
	"github.com/molprop/platform/internal/infrastructure/database/postgres/repositories"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	"github.com/molprop/platform/pkg/types/common"
)

type fakeReader struct {
	records map[string]*repositories.RunRecord
	deleted []string
}

func (f *fakeReader) GetByID(_ context.Context, id string) (*repositories.RunRecord, error) {
	if rec, ok := f.records[id]; ok {
		return rec, nil
	}
	return nil, errors.Newf(errors.ErrCodeRunNotFound, "run %s not found", id)
}

func (f *fakeReader) List(_ context.Context, _ common.Pagination) ([]*repositories.RunRecord, error) {
	return nil, nil
}

func (f *fakeReader) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeBundles struct {
	objects map[string][]byte
	removed []string
}

func (f *fakeBundles) Download(_ context.Context, runID string) (io.ReadCloser, error) {
	if data, ok := f.objects[runID]; ok {
		return io.NopCloser(bytes.NewReader(data)), nil
	}
	return nil, errors.Newf(errors.ErrCodeRunNotFound, "bundle for %s not found", runID)
}

func (f *fakeBundles) PresignedURL(_ context.Context, runID string) (string, error) {
	return "https://minio.local/bundles/" + runID + ".zip", nil
}

func (f *fakeBundles) Remove(_ context.Context, runID string) error {
	f.removed = append(f.removed, runID)
	return nil
}

func newRun(t *testing.T, baseDir string, meta map[string]any) run.Context {
	t.Helper()
	rc, err := run.New(baseDir)
	require.NoError(t, err)
	if meta != nil {
		_, err = rc.WriteMetadata(meta)
		require.NoError(t, err)
	}
	return rc
}

func TestListPagesNewestFirst(t *testing.T) {
	baseDir := t.TempDir()
	first := newRun(t, baseDir, map[string]any{"status": "succeeded", "kind": "pipeline"})
	time.Sleep(10 * time.Millisecond) // keep the embedded creation timestamps ordered
	second := newRun(t, baseDir, map[string]any{"status": "failed", "kind": "pipeline"})

	svc := NewService(baseDir, nil, nil, logging.NewNopLogger())
	summaries, page, err := svc.List(context.Background(), common.Pagination{})
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, second.ID(), summaries[0].ID, "newest first")
	assert.Equal(t, analysis.JobFailed, summaries[0].Status)
	assert.Equal(t, first.ID(), summaries[1].ID)
	assert.Equal(t, int64(2), page.Total)
}

func TestListPageBeyondEnd(t *testing.T) {
	baseDir := t.TempDir()
	newRun(t, baseDir, nil)

	svc := NewService(baseDir, nil, nil, logging.NewNopLogger())
	summaries, _, err := svc.List(context.Background(), common.Pagination{Page: 5, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, summaries)
}

func TestGetPrefersStoreRecord(t *testing.T) {
	baseDir := t.TempDir()
	rc := newRun(t, baseDir, map[string]any{"status": "running"})
	store := &fakeReader{records: map[string]*repositories.RunRecord{
		rc.ID(): {
			ID:           rc.ID(),
			Kind:         analysis.KindPipeline,
			Status:       analysis.JobSucceeded,
			ResultsPath:  "outputs/results.parquet",
			BundleObject: "bundles/" + rc.ID() + ".zip",
		},
	}}

	svc := NewService(baseDir, store, nil, logging.NewNopLogger())
	detail, err := svc.Get(context.Background(), rc.ID())
	require.NoError(t, err)
	assert.Equal(t, analysis.JobSucceeded, detail.Status, "database status wins over metadata")
	assert.Equal(t, "outputs/results.parquet", detail.ResultsPath)
	assert.Equal(t, "running", detail.Metadata["status"])
}

func TestGetUnknownRun(t *testing.T) {
	svc := NewService(t.TempDir(), nil, nil, logging.NewNopLogger())
	_, err := svc.Get(context.Background(), "run_nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRunNotFound))
}

func TestBundleFallsBackToDirectory(t *testing.T) {
	baseDir := t.TempDir()
	rc := newRun(t, baseDir, map[string]any{"status": "succeeded"})
	_, err := rc.SaveInput("compounds.smi", []byte("CCO\n"))
	require.NoError(t, err)

	svc := NewService(baseDir, nil, nil, logging.NewNopLogger())
	body, err := svc.Bundle(context.Background(), rc.ID())
	require.NoError(t, err)
	defer body.Close()

	data, err := io.ReadAll(body)
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	assert.True(t, names["inputs/compounds.smi"])
	assert.True(t, names[run.MetadataFile])
}

func TestBundlePrefersArchivedCopy(t *testing.T) {
	baseDir := t.TempDir()
	rc := newRun(t, baseDir, nil)
	bundles := &fakeBundles{objects: map[string][]byte{rc.ID(): []byte("archived-zip")}}

	svc := NewService(baseDir, nil, bundles, logging.NewNopLogger())
	body, err := svc.Bundle(context.Background(), rc.ID())
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "archived-zip", string(data))
}

func TestBundleURLWithoutStorage(t *testing.T) {
	svc := NewService(t.TempDir(), nil, nil, logging.NewNopLogger())
	_, err := svc.BundleURL(context.Background(), "run_x")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotImplemented))
}

func TestDeleteRemovesEverywhere(t *testing.T) {
	baseDir := t.TempDir()
	rc := newRun(t, baseDir, nil)
	store := &fakeReader{records: map[string]*repositories.RunRecord{}}
	bundles := &fakeBundles{}

	svc := NewService(baseDir, store, bundles, logging.NewNopLogger())
	require.NoError(t, svc.Delete(context.Background(), rc.ID()))

	_, statErr := os.Stat(rc.Dir)
	assert.True(t, os.IsNotExist(statErr))
	assert.Equal(t, []string{rc.ID()}, store.deleted)
	assert.Equal(t, []string{rc.ID()}, bundles.removed)
}

func TestPruneRespectsRetention(t *testing.T) {
	baseDir := t.TempDir()
	rc := newRun(t, baseDir, nil)

	svc := NewService(baseDir, nil, nil, logging.NewNopLogger())

	deleted, err := svc.Prune(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, deleted, "fresh runs survive")

	deleted, err = svc.Prune(context.Background(), time.Nanosecond)
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	_, statErr := os.Stat(rc.Dir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestPruneZeroRetentionKeepsAll(t *testing.T) {
	baseDir := t.TempDir()
	newRun(t, baseDir, nil)

	svc := NewService(baseDir, nil, nil, logging.NewNopLogger())
	deleted, err := svc.Prune(context.Background(), 0)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

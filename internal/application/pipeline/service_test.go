package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/internal/domain/run"
	"github.com/molprop/platform/internal/infrastructure/database/postgres/repositories"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

type fakeToolkit struct {
	availableErr error
	pipelineErr  error
	gotInput     string
	gotVisualize bool
	callViz      bool
}

func (f *fakeToolkit) Available() error { return f.availableErr }

func (f *fakeToolkit) Pipeline(ctx context.Context, rc run.Context, req analysis.PipelineRequest, visualize run.VisualizeFunc) (*analysis.PipelineResult, error) {
	f.gotInput = req.InputPath
	f.gotVisualize = visualize != nil
	if f.pipelineErr != nil {
		return &analysis.PipelineResult{}, f.pipelineErr
	}
	results := filepath.Join(rc.Outputs(), "results.parquet")
	if f.callViz && visualize != nil {
		if err := visualize(ctx, results, filepath.Join(rc.Outputs(), "viz")); err != nil {
			return nil, err
		}
	}
	return &analysis.PipelineResult{
		ResultsTable: results,
		Steps:        []analysis.PipelineStep{{Name: "calc", ReturnCode: 0}},
		LogTails:     map[string]string{"calc": "done"},
	}, nil
}

type fakeStore struct {
	created *repositories.RunRecord
	status  analysis.JobStatus
	results string
	bundle  string
}

func (f *fakeStore) Create(_ context.Context, rec *repositories.RunRecord) error {
	f.created = rec
	return nil
}

func (f *fakeStore) UpdateStatus(_ context.Context, _ string, status analysis.JobStatus, resultsPath, bundleObject string) error {
	f.status = status
	f.results = resultsPath
	f.bundle = bundleObject
	return nil
}

type fakeUploader struct {
	uploads int
	size    int
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, runID string, bundle []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.uploads++
	f.size = len(bundle)
	return "bundles/" + runID + ".zip", nil
}

type fakeMutex struct {
	acquired bool
	unlocked bool
}

func (f *fakeMutex) TryLock(context.Context) (bool, error) { return f.acquired, nil }
func (f *fakeMutex) Unlock(context.Context) error          { f.unlocked = true; return nil }

type fakeVisualizer struct {
	calls int
}

func (f *fakeVisualizer) Run(_ context.Context, req analysis.VisualizeRequest) (*analysis.VisualizeResult, error) {
	f.calls++
	return &analysis.VisualizeResult{}, nil
}

func writeInput(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "compounds.smi")
	require.NoError(t, os.WriteFile(path, []byte("CCO ethanol\n"), 0o644))
	return path
}

func TestRunHappyPath(t *testing.T) {
	baseDir := t.TempDir()
	tk := &fakeToolkit{}
	store := &fakeStore{}
	uploader := &fakeUploader{}
	mu := &fakeMutex{acquired: true}
	svc := NewService(baseDir, tk, &fakeVisualizer{}, Options{
		Store:          store,
		Bundles:        uploader,
		ArchiveBundles: true,
		Locks:          func(string) Mutex { return mu },
	}, logging.NewNopLogger())

	runID, res, err := svc.Run(context.Background(), analysis.PipelineRequest{
		InputPath: writeInput(t),
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, strings.HasPrefix(runID, "run_"))

	// input copied into the run directory before the toolkit sees it
	assert.Contains(t, tk.gotInput, filepath.Join(runID, "inputs", "compounds.smi"))
	assert.True(t, tk.gotVisualize, "projection bridge passed through")

	require.NotNil(t, store.created)
	assert.Equal(t, runID, store.created.ID)
	assert.Equal(t, analysis.KindPipeline, store.created.Kind)
	assert.Equal(t, analysis.JobSucceeded, store.status)
	assert.Equal(t, res.ResultsTable, store.results)
	assert.Equal(t, "bundles/"+runID+".zip", store.bundle)

	assert.Equal(t, 1, uploader.uploads)
	assert.Positive(t, uploader.size)
	assert.True(t, mu.unlocked)

	meta, err := run.Open(baseDir, runID)
	require.NoError(t, err)
	payload, err := meta.ReadMetadata()
	require.NoError(t, err)
	assert.Equal(t, "succeeded", payload["status"])
	assert.Equal(t, "pipeline", payload["kind"])
}

func TestRunToolkitFailure(t *testing.T) {
	tk := &fakeToolkit{pipelineErr: errors.New(errors.ErrCodeToolkitStepFailed, "calc exploded")}
	store := &fakeStore{}
	uploader := &fakeUploader{}
	svc := NewService(t.TempDir(), tk, nil, Options{
		Store:          store,
		Bundles:        uploader,
		ArchiveBundles: true,
	}, logging.NewNopLogger())

	_, _, err := svc.Run(context.Background(), analysis.PipelineRequest{InputPath: writeInput(t)})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolkitStepFailed))
	assert.Equal(t, analysis.JobFailed, store.status)
	assert.Zero(t, uploader.uploads, "failed runs are not archived")
}

func TestRunToolkitUnavailable(t *testing.T) {
	baseDir := t.TempDir()
	tk := &fakeToolkit{availableErr: errors.New(errors.ErrCodeToolkitUnavailable, "molprop-calc missing")}
	svc := NewService(baseDir, tk, nil, Options{}, logging.NewNopLogger())

	runID, _, err := svc.Run(context.Background(), analysis.PipelineRequest{InputPath: writeInput(t)})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeToolkitUnavailable))
	assert.Empty(t, runID)

	runs, err := run.List(baseDir)
	require.NoError(t, err)
	assert.Empty(t, runs, "no run directory for an unavailable toolkit")
}

func TestRunLockContention(t *testing.T) {
	tk := &fakeToolkit{}
	svc := NewService(t.TempDir(), tk, nil, Options{
		Locks: func(string) Mutex { return &fakeMutex{acquired: false} },
	}, logging.NewNopLogger())

	_, _, err := svc.Run(context.Background(), analysis.PipelineRequest{InputPath: writeInput(t)})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeConflict))
	assert.Empty(t, tk.gotInput, "toolkit never invoked under contention")
}

func TestRunMissingInput(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(t.TempDir(), &fakeToolkit{}, nil, Options{Store: store}, logging.NewNopLogger())

	_, _, err := svc.Run(context.Background(), analysis.PipelineRequest{
		InputPath: filepath.Join(t.TempDir(), "nope.smi"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
	assert.Equal(t, analysis.JobFailed, store.status)
}

func TestRunVisualizerBridged(t *testing.T) {
	viz := &fakeVisualizer{}
	tk := &fakeToolkit{callViz: true}
	svc := NewService(t.TempDir(), tk, viz, Options{}, logging.NewNopLogger())

	_, _, err := svc.Run(context.Background(), analysis.PipelineRequest{
		InputPath:    writeInput(t),
		RunVisualize: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, viz.calls)
}

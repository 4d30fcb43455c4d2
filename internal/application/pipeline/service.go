// Package pipeline drives the full generate workflow: a fresh run directory,
// the external toolkit steps, and archival of the finished run.
package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/molprop/platform/internal/domain/run"
	"github.com/molprop/platform/internal/infrastructure/database/postgres/repositories"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

// Toolkit is satisfied by run.Toolkit.
type Toolkit interface {
	Available() error
	Pipeline(ctx context.Context, rc run.Context, req analysis.PipelineRequest, visualize run.VisualizeFunc) (*analysis.PipelineResult, error)
}

// Visualizer is satisfied by the visualize application service; it renders
// the optional projection step against the freshly computed table.
type Visualizer interface {
	Run(ctx context.Context, req analysis.VisualizeRequest) (*analysis.VisualizeResult, error)
}

// RunStore is satisfied by the Postgres run repository.  A nil store means
// runs are tracked on the filesystem only.
type RunStore interface {
	Create(ctx context.Context, rec *repositories.RunRecord) error
	UpdateStatus(ctx context.Context, id string, status analysis.JobStatus, resultsPath, bundleObject string) error
}

// BundleUploader is satisfied by the MinIO bundle store.
type BundleUploader interface {
	Upload(ctx context.Context, runID string, bundle []byte) (string, error)
}

// Mutex is the slice of the Redis run mutex the pipeline needs.
type Mutex interface {
	TryLock(ctx context.Context) (bool, error)
	Unlock(ctx context.Context) error
}

// LockFactory builds a distributed mutex for one run.  A nil factory
// disables cross-process serialization.
type LockFactory func(runID string) Mutex

// Metrics is the sliver of instrumentation the service needs.
type Metrics interface {
	ObserveAnalysis(kind string, start time.Time, err error)
	RunStarted(kind string)
	RunFinished(kind string, err error)
}

// Options carries the optional collaborators.
type Options struct {
	Store          RunStore
	Bundles        BundleUploader
	ArchiveBundles bool
	Locks          LockFactory
	Metrics        Metrics
}

// Service executes pipelines into run directories.
type Service struct {
	baseDir    string
	toolkit    Toolkit
	visualizer Visualizer
	opts       Options
	logger     logging.Logger
}

// NewService wires a pipeline service over the runs base directory.
func NewService(baseDir string, toolkit Toolkit, visualizer Visualizer, opts Options, log logging.Logger) *Service {
	return &Service{
		baseDir:    baseDir,
		toolkit:    toolkit,
		visualizer: visualizer,
		opts:       opts,
		logger:     log.Named("pipeline"),
	}
}

// Run executes one pipeline request in a fresh run directory and returns the
// run ID alongside the step results.  The input file is copied into the run
// so the directory is self-contained.
func (s *Service) Run(ctx context.Context, req analysis.PipelineRequest) (runID string, result *analysis.PipelineResult, err error) {
	start := time.Now()
	if s.opts.Metrics != nil {
		s.opts.Metrics.RunStarted(string(analysis.KindPipeline))
	}
	defer func() {
		if s.opts.Metrics != nil {
			s.opts.Metrics.RunFinished(string(analysis.KindPipeline), err)
			s.opts.Metrics.ObserveAnalysis(string(analysis.KindPipeline), start, err)
		}
	}()
	if err = ctx.Err(); err != nil {
		return "", nil, errors.Wrap(err, errors.ErrCodeInternal, "pipeline canceled")
	}
	if err = s.toolkit.Available(); err != nil {
		return "", nil, err
	}

	rc, err := run.New(s.baseDir)
	if err != nil {
		return "", nil, err
	}
	runID = rc.ID()
	s.logger.Info("run created",
		logging.String("run", runID),
		logging.String("input", req.InputPath))

	if s.opts.Locks != nil {
		mu := s.opts.Locks(runID)
		ok, lockErr := mu.TryLock(ctx)
		if lockErr != nil {
			return runID, nil, lockErr
		}
		if !ok {
			return runID, nil, errors.Newf(errors.ErrCodeConflict, "run %s is already being processed", runID)
		}
		defer func() {
			if unlockErr := mu.Unlock(context.WithoutCancel(ctx)); unlockErr != nil {
				s.logger.Warn("cannot release run lock",
					logging.String("run", runID), logging.Err(unlockErr))
			}
		}()
	}

	if s.opts.Store != nil {
		createErr := s.opts.Store.Create(ctx, &repositories.RunRecord{
			ID:        runID,
			Kind:      analysis.KindPipeline,
			Status:    analysis.JobRunning,
			InputPath: req.InputPath,
		})
		if createErr != nil {
			// The directory already exists; keep going and let the
			// filesystem be the source of truth.
			s.logger.Warn("cannot record run", logging.String("run", runID), logging.Err(createErr))
		}
	}

	result, err = s.execute(ctx, rc, req)

	status := analysis.JobSucceeded
	if err != nil {
		status = analysis.JobFailed
	}
	resultsTable, bundleObject := "", ""
	if result != nil {
		resultsTable = result.ResultsTable
	}
	s.writeMetadata(rc, req, result, status)
	// Archive after the metadata lands so run.json travels with the bundle.
	if err == nil && s.opts.Bundles != nil && s.opts.ArchiveBundles {
		bundleObject = s.archive(ctx, rc)
	}
	if s.opts.Store != nil {
		if updErr := s.opts.Store.UpdateStatus(ctx, runID, status, resultsTable, bundleObject); updErr != nil {
			s.logger.Warn("cannot update run record",
				logging.String("run", runID), logging.Err(updErr))
		}
	}
	return runID, result, err
}

func (s *Service) execute(ctx context.Context, rc run.Context, req analysis.PipelineRequest) (*analysis.PipelineResult, error) {
	data, err := os.ReadFile(req.InputPath)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeBadRequest, "cannot read input %s", req.InputPath)
	}
	savedInput, err := rc.SaveInput(filepath.Base(req.InputPath), data)
	if err != nil {
		return nil, err
	}
	req.InputPath = savedInput

	var visualize run.VisualizeFunc
	if s.visualizer != nil {
		visualize = func(ctx context.Context, tablePath, outDir string) error {
			_, vizErr := s.visualizer.Run(ctx, analysis.VisualizeRequest{
				TablePath: tablePath,
				OutDir:    outDir,
			})
			return vizErr
		}
	}
	return s.toolkit.Pipeline(ctx, rc, req, visualize)
}

// archive zips the run and ships it to object storage.  Archive failures are
// logged, not fatal; the run directory remains available.
func (s *Service) archive(ctx context.Context, rc run.Context) string {
	bundle, err := rc.BundleBytes()
	if err != nil {
		s.logger.Warn("cannot bundle run", logging.String("run", rc.ID()), logging.Err(err))
		return ""
	}
	key, err := s.opts.Bundles.Upload(ctx, rc.ID(), bundle)
	if err != nil {
		s.logger.Warn("cannot upload bundle", logging.String("run", rc.ID()), logging.Err(err))
		return ""
	}
	return key
}

func (s *Service) writeMetadata(rc run.Context, req analysis.PipelineRequest, result *analysis.PipelineResult, status analysis.JobStatus) {
	payload := map[string]any{
		"kind":   string(analysis.KindPipeline),
		"status": string(status),
		"input":  req.InputPath,
	}
	if result != nil {
		payload["results_table"] = result.ResultsTable
		steps := make([]map[string]any, 0, len(result.Steps))
		for _, st := range result.Steps {
			steps = append(steps, map[string]any{
				"name":        st.Name,
				"return_code": st.ReturnCode,
				"skipped":     st.Skipped,
				"reason":      st.Reason,
			})
		}
		payload["steps"] = steps
	}
	if _, err := rc.WriteMetadata(payload); err != nil {
		s.logger.Warn("cannot write run metadata",
			logging.String("run", rc.ID()), logging.Err(err))
	}
}

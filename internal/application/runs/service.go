// Package runs serves run-directory browsing for the dashboard and CLI:
// listing, inspection, bundle download, and deletion.
package runs

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/molprop/platform/internal/domain/run"
	"github.com/molprop/platform/internal/infrastructure/database/postgres/repositories"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	"github.com/molprop/platform/pkg/types/common"
)

// RunReader is the query slice of the Postgres run repository.
type RunReader interface {
	GetByID(ctx context.Context, id string) (*repositories.RunRecord, error)
	List(ctx context.Context, page common.Pagination) ([]*repositories.RunRecord, error)
	Delete(ctx context.Context, id string) error
}

// BundleStore is the object-storage slice the service needs.
type BundleStore interface {
	Download(ctx context.Context, runID string) (io.ReadCloser, error)
	PresignedURL(ctx context.Context, runID string) (string, error)
	Remove(ctx context.Context, runID string) error
}

// Summary is one row of a run listing.
type Summary struct {
	ID        string             `json:"id"`
	Status    analysis.JobStatus `json:"status"`
	Kind      analysis.Kind      `json:"kind,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// Detail is a single run with its recorded metadata.
type Detail struct {
	Summary
	ResultsPath  string         `json:"results_path,omitempty"`
	BundleObject string         `json:"bundle_object,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Service browses runs.  The filesystem is authoritative; the database
// record, when present, contributes status and archive bookkeeping.
type Service struct {
	baseDir string
	store   RunReader
	bundles BundleStore
	logger  logging.Logger
}

// NewService wires a runs service.  store and bundles may be nil.
func NewService(baseDir string, store RunReader, bundles BundleStore, log logging.Logger) *Service {
	return &Service{baseDir: baseDir, store: store, bundles: bundles, logger: log.Named("runs")}
}

// List returns runs newest first, one page at a time.
func (s *Service) List(ctx context.Context, page common.Pagination) ([]Summary, common.Pagination, error) {
	if err := ctx.Err(); err != nil {
		return nil, page, errors.Wrap(err, errors.ErrCodeInternal, "list canceled")
	}
	contexts, err := run.List(s.baseDir)
	if err != nil {
		return nil, page, err
	}
	page.Total = int64(len(contexts))
	page.Normalize()

	offset := page.Offset()
	if offset >= len(contexts) {
		return nil, page, nil
	}
	end := offset + page.PageSize
	if end > len(contexts) {
		end = len(contexts)
	}

	summaries := make([]Summary, 0, end-offset)
	for _, rc := range contexts[offset:end] {
		summaries = append(summaries, s.summarize(ctx, rc))
	}
	return summaries, page, nil
}

// Get returns one run with its metadata payload.
func (s *Service) Get(ctx context.Context, id string) (*Detail, error) {
	rc, err := run.Open(s.baseDir, id)
	if err != nil {
		return nil, err
	}
	detail := &Detail{Summary: s.summarize(ctx, rc)}
	if meta, err := rc.ReadMetadata(); err == nil {
		detail.Metadata = meta
	}
	if s.store != nil {
		if rec, err := s.store.GetByID(ctx, id); err == nil {
			detail.ResultsPath = rec.ResultsPath
			detail.BundleObject = rec.BundleObject
		}
	}
	return detail, nil
}

// Bundle streams the zipped run.  An archived copy in object storage is
// preferred; otherwise the bundle is built from the directory on the fly.
func (s *Service) Bundle(ctx context.Context, id string) (io.ReadCloser, error) {
	rc, err := run.Open(s.baseDir, id)
	if err != nil {
		if s.bundles == nil {
			return nil, err
		}
		// The directory may have been retired after archival.
		return s.bundles.Download(ctx, id)
	}
	if s.bundles != nil {
		if body, err := s.bundles.Download(ctx, id); err == nil {
			return body, nil
		}
	}
	data, err := rc.BundleBytes()
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// BundleURL returns a presigned download link when the run is archived in
// object storage.
func (s *Service) BundleURL(ctx context.Context, id string) (string, error) {
	if s.bundles == nil {
		return "", errors.New(errors.ErrCodeNotImplemented, "object storage is not configured")
	}
	return s.bundles.PresignedURL(ctx, id)
}

// Delete removes the run directory, its database record, and any archived
// bundle.
func (s *Service) Delete(ctx context.Context, id string) error {
	rc, err := run.Open(s.baseDir, id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(rc.Dir); err != nil {
		return errors.Wrapf(err, errors.ErrCodeInternal, "cannot remove run %s", id)
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, id); err != nil && !errors.IsCode(err, errors.ErrCodeRunNotFound) {
			s.logger.Warn("cannot delete run record", logging.String("run", id), logging.Err(err))
		}
	}
	if s.bundles != nil {
		if err := s.bundles.Remove(ctx, id); err != nil {
			s.logger.Warn("cannot remove archived bundle", logging.String("run", id), logging.Err(err))
		}
	}
	s.logger.Info("run deleted", logging.String("run", id))
	return nil
}

// Prune deletes runs older than the retention window.  A zero retention
// keeps everything.
func (s *Service) Prune(ctx context.Context, retention time.Duration) (int, error) {
	if retention <= 0 {
		return 0, nil
	}
	contexts, err := run.List(s.baseDir)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-retention)
	deleted := 0
	for _, rc := range contexts {
		if rc.CreatedAt.After(cutoff) {
			continue
		}
		if err := s.Delete(ctx, rc.ID()); err != nil {
			s.logger.Warn("cannot prune run", logging.String("run", rc.ID()), logging.Err(err))
			continue
		}
		deleted++
	}
	return deleted, nil
}

func (s *Service) summarize(ctx context.Context, rc run.Context) Summary {
	sum := Summary{ID: rc.ID(), CreatedAt: rc.CreatedAt, Kind: analysis.KindPipeline}
	if s.store != nil {
		if rec, err := s.store.GetByID(ctx, rc.ID()); err == nil {
			sum.Status = rec.Status
			sum.Kind = rec.Kind
			return sum
		}
	}
	if meta, err := rc.ReadMetadata(); err == nil {
		if v, ok := meta["status"].(string); ok {
			sum.Status = analysis.JobStatus(v)
		}
		if v, ok := meta["kind"].(string); ok {
			sum.Kind = analysis.Kind(v)
		}
	}
	return sum
}

package repositories

import (
	"context"
	"time"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	"github.com/molprop/platform/pkg/types/common"
)

// RunRecord is the persisted view of an analysis run directory.  The run ID
// is the directory base name, so the filesystem and the database agree on
// identity.
type RunRecord struct {
	ID           string         `json:"id"`
	Kind         analysis.Kind  `json:"kind"`
	Status       analysis.JobStatus `json:"status"`
	InputPath    string         `json:"input_path,omitempty"`
	ResultsPath  string         `json:"results_path,omitempty"`
	BundleObject string         `json:"bundle_object,omitempty"` // object-store key of the zipped run
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// RunRepository stores run records.
type RunRepository struct {
	db     DB
	logger logging.Logger
}

// NewRunRepository wires a repository over the given pool or fake.
func NewRunRepository(db DB, log logging.Logger) *RunRepository {
	return &RunRepository{db: db, logger: log.Named("run_repo")}
}

const insertRunSQL = `
INSERT INTO runs (id, kind, status, input_path, results_path, bundle_object, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $7)
`

// Create persists a new run record.
func (r *RunRepository) Create(ctx context.Context, rec *RunRecord) error {
	if rec.ID == "" {
		return errors.InvalidParam("run record needs an id")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.Status == "" {
		rec.Status = analysis.JobQueued
	}
	_, err := r.db.Exec(ctx, insertRunSQL,
		rec.ID, string(rec.Kind), string(rec.Status),
		rec.InputPath, rec.ResultsPath, rec.BundleObject, rec.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot insert run record")
	}
	return nil
}

const updateRunStatusSQL = `
UPDATE runs SET status = $2, results_path = COALESCE(NULLIF($3, ''), results_path),
       bundle_object = COALESCE(NULLIF($4, ''), bundle_object), updated_at = $5
WHERE id = $1
`

// UpdateStatus advances a run's lifecycle, optionally recording the results
// table and bundle object produced along the way.
func (r *RunRepository) UpdateStatus(ctx context.Context, id string, status analysis.JobStatus, resultsPath, bundleObject string) error {
	tag, err := r.db.Exec(ctx, updateRunStatusSQL,
		id, string(status), resultsPath, bundleObject, time.Now().UTC())
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot update run record")
	}
	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeRunNotFound, "run %q not found", id)
	}
	return nil
}

const selectRunSQL = `
SELECT id, kind, status, input_path, results_path, bundle_object, created_at, updated_at
FROM runs WHERE id = $1
`

// GetByID loads one run record.
func (r *RunRepository) GetByID(ctx context.Context, id string) (*RunRecord, error) {
	var rec RunRecord
	err := r.db.QueryRow(ctx, selectRunSQL, id).Scan(
		&rec.ID, &rec.Kind, &rec.Status, &rec.InputPath,
		&rec.ResultsPath, &rec.BundleObject, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrCodeRunNotFound, "run not found")
	}
	return &rec, nil
}

const listRunsSQL = `
SELECT id, kind, status, input_path, results_path, bundle_object, created_at, updated_at
FROM runs ORDER BY created_at DESC LIMIT $1 OFFSET $2
`

// List pages run records, newest first.
func (r *RunRepository) List(ctx context.Context, page common.Pagination) ([]*RunRecord, error) {
	page.Normalize()
	rows, err := r.db.Query(ctx, listRunsSQL, page.PageSize, page.Offset())
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot list run records")
	}
	defer rows.Close()

	var out []*RunRecord
	for rows.Next() {
		var rec RunRecord
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.Status, &rec.InputPath,
			&rec.ResultsPath, &rec.BundleObject, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot scan run record")
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "run record iteration failed")
	}
	return out, nil
}

const deleteRunSQL = `DELETE FROM runs WHERE id = $1`

// Delete removes a run record, used by retention sweeps alongside directory
// cleanup.
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, deleteRunSQL, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot delete run record")
	}
	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeRunNotFound, "run %q not found", id)
	}
	return nil
}

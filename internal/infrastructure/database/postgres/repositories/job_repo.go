package repositories

import (
	"context"
	"encoding/json"
	"time"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

// JobRepository stores queued analysis jobs and their lifecycle.  The full
// job envelope is kept as JSON so the worker can resume exactly what the
// dashboard submitted.
type JobRepository struct {
	db     DB
	logger logging.Logger
}

// NewJobRepository wires a repository over the given pool or fake.
func NewJobRepository(db DB, log logging.Logger) *JobRepository {
	return &JobRepository{db: db, logger: log.Named("job_repo")}
}

const insertJobSQL = `
INSERT INTO analysis_jobs (id, run_id, kind, status, payload, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6)
`

// Create persists a freshly submitted job.
func (r *JobRepository) Create(ctx context.Context, job *analysis.Job) error {
	if job.ID == "" {
		return errors.InvalidParam("job needs an id")
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "cannot encode job payload")
	}
	submitted := job.SubmittedAt
	if submitted.IsZero() {
		submitted = time.Now().UTC()
	}
	_, err = r.db.Exec(ctx, insertJobSQL,
		string(job.ID), job.RunID, string(job.Kind), string(analysis.JobQueued), payload, submitted)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot insert job")
	}
	return nil
}

const updateJobStatusSQL = `
UPDATE analysis_jobs SET status = $2, error = NULLIF($3, ''), completed_at = $4
WHERE id = $1
`

// SetStatus records a job transition; completedAt may be zero for the
// running state.
func (r *JobRepository) SetStatus(ctx context.Context, id string, status analysis.JobStatus, jobErr string) error {
	var completed any
	if status == analysis.JobSucceeded || status == analysis.JobFailed {
		completed = time.Now().UTC()
	}
	tag, err := r.db.Exec(ctx, updateJobStatusSQL, id, string(status), jobErr, completed)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot update job status")
	}
	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeNotFound, "job %q not found", id)
	}
	return nil
}

const selectJobSQL = `
SELECT payload, status, COALESCE(error, '') FROM analysis_jobs WHERE id = $1
`

// GetByID loads a job envelope plus its current status.
func (r *JobRepository) GetByID(ctx context.Context, id string) (*analysis.Job, analysis.JobStatus, string, error) {
	var (
		payload []byte
		status  string
		jobErr  string
	)
	err := r.db.QueryRow(ctx, selectJobSQL, id).Scan(&payload, &status, &jobErr)
	if err != nil {
		return nil, "", "", notFoundOr(err, errors.ErrCodeNotFound, "job not found")
	}
	var job analysis.Job
	if err := json.Unmarshal(payload, &job); err != nil {
		return nil, "", "", errors.Wrap(err, errors.ErrCodeSerialization, "cannot decode job payload")
	}
	return &job, analysis.JobStatus(status), jobErr, nil
}

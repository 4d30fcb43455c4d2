package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	"github.com/molprop/platform/pkg/types/common"
)

func TestRunRepositoryCreate(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("INSERT 0 1")}
	repo := NewRunRepository(db, logging.NewNopLogger())

	rec := &RunRecord{ID: "run_20250101_120000_1735732800", Kind: analysis.KindPipeline}
	require.NoError(t, repo.Create(context.Background(), rec))

	require.Len(t, db.execArgs, 1)
	args := db.execArgs[0]
	assert.Equal(t, rec.ID, args[0])
	assert.Equal(t, string(analysis.KindPipeline), args[1])
	assert.Equal(t, string(analysis.JobQueued), args[2], "empty status defaults to queued")
	assert.False(t, rec.CreatedAt.IsZero(), "created_at is stamped on insert")
}

func TestRunRepositoryCreateRequiresID(t *testing.T) {
	repo := NewRunRepository(&fakeDB{}, logging.NewNopLogger())

	err := repo.Create(context.Background(), &RunRecord{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestRunRepositoryUpdateStatus(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 1")}
	repo := NewRunRepository(db, logging.NewNopLogger())

	err := repo.UpdateStatus(context.Background(), "run_x", analysis.JobSucceeded, "outputs/results.parquet", "bundles/run_x.zip")
	require.NoError(t, err)

	args := db.execArgs[0]
	assert.Equal(t, "run_x", args[0])
	assert.Equal(t, string(analysis.JobSucceeded), args[1])
	assert.Equal(t, "outputs/results.parquet", args[2])
	assert.Equal(t, "bundles/run_x.zip", args[3])
}

func TestRunRepositoryUpdateStatusNotFound(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("UPDATE 0")}
	repo := NewRunRepository(db, logging.NewNopLogger())

	err := repo.UpdateStatus(context.Background(), "missing", analysis.JobFailed, "", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRunNotFound))
}

func TestRunRepositoryGetByID(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	db := &fakeDB{row: &fakeRow{values: []any{
		"run_y", "visualize", "succeeded",
		"inputs/table.csv", "outputs/results.csv", "", now, now,
	}}}
	repo := NewRunRepository(db, logging.NewNopLogger())

	rec, err := repo.GetByID(context.Background(), "run_y")
	require.NoError(t, err)
	assert.Equal(t, "run_y", rec.ID)
	assert.Equal(t, analysis.KindVisualize, rec.Kind)
	assert.Equal(t, analysis.JobSucceeded, rec.Status)
	assert.Equal(t, "inputs/table.csv", rec.InputPath)
	assert.Equal(t, now, rec.CreatedAt)
}

func TestRunRepositoryGetByIDNotFound(t *testing.T) {
	db := &fakeDB{row: &fakeRow{err: pgx.ErrNoRows}}
	repo := NewRunRepository(db, logging.NewNopLogger())

	_, err := repo.GetByID(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRunNotFound))
}

func TestRunRepositoryList(t *testing.T) {
	now := time.Now().UTC()
	db := &fakeDB{queryRows: &fakeRows{rows: [][]any{
		{"run_b", "pareto", "succeeded", "", "outputs/results.csv", "", now, now},
		{"run_a", "mmp", "failed", "", "", "", now.Add(-time.Hour), now.Add(-time.Hour)},
	}}}
	repo := NewRunRepository(db, logging.NewNopLogger())

	out, err := repo.List(context.Background(), common.Pagination{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "run_b", out[0].ID)
	assert.Equal(t, analysis.KindMMP, out[1].Kind)

	args := db.execArgs[0]
	assert.Equal(t, 20, args[0], "page size passed as limit")
	assert.Equal(t, 0, args[1], "first page starts at offset zero")
}

func TestRunRepositoryDeleteNotFound(t *testing.T) {
	db := &fakeDB{execTag: pgconn.NewCommandTag("DELETE 0")}
	repo := NewRunRepository(db, logging.NewNopLogger())

	err := repo.Delete(context.Background(), "gone")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeRunNotFound))
}

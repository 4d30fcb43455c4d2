// Package repositories implements PostgreSQL persistence for run and job
// records.  Repositories accept a narrow query interface so tests can run
// against hand-written fakes instead of a live database.
package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/molprop/platform/pkg/errors"
)

// DB is the subset of pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// notFoundOr maps pgx's no-rows sentinel onto a domain not-found error and
// wraps anything else as a database failure.
func notFoundOr(err error, code errors.ErrorCode, msg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return errors.New(code, msg)
	}
	return errors.Wrap(err, errors.ErrCodeDatabaseError, msg)
}

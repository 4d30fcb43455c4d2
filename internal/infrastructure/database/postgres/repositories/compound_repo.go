package repositories

import (
	"context"
	"time"

	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
)

// CompoundRecord registers one compound from an indexed results table.  The
// (source_table, compound_id) pair is the identity: re-indexing a table
// replaces its rows.
type CompoundRecord struct {
	CompoundID  string    `json:"compound_id"`
	SourceTable string    `json:"source_table"`
	SMILES      string    `json:"smiles"`
	SMILESKey   string    `json:"smiles_key"` // normalized structure key
	CreatedAt   time.Time `json:"created_at"`
}

// CompoundRepository stores the compound registry backing similarity lookup.
type CompoundRepository struct {
	db     DB
	logger logging.Logger
}

// NewCompoundRepository wires a repository over the given pool or fake.
func NewCompoundRepository(db DB, log logging.Logger) *CompoundRepository {
	return &CompoundRepository{db: db, logger: log.Named("compound_repo")}
}

const upsertCompoundSQL = `
INSERT INTO compounds (compound_id, source_table, smiles, smiles_key, created_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (source_table, compound_id)
DO UPDATE SET smiles = EXCLUDED.smiles, smiles_key = EXCLUDED.smiles_key
`

// UpsertBatch registers a batch of compounds, replacing earlier rows from
// the same source table.
func (r *CompoundRepository) UpsertBatch(ctx context.Context, records []CompoundRecord) error {
	now := time.Now().UTC()
	for i := range records {
		rec := &records[i]
		if rec.CompoundID == "" || rec.SourceTable == "" {
			return errors.InvalidParam("compound record needs an id and a source table")
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		_, err := r.db.Exec(ctx, upsertCompoundSQL,
			rec.CompoundID, rec.SourceTable, rec.SMILES, rec.SMILESKey, rec.CreatedAt)
		if err != nil {
			return errors.Wrapf(err, errors.ErrCodeDatabaseError,
				"cannot upsert compound %s", rec.CompoundID)
		}
	}
	return nil
}

const getCompoundSQL = `
SELECT compound_id, source_table, smiles, smiles_key, created_at
FROM compounds
WHERE source_table = $1 AND compound_id = $2
`

// Get fetches one registered compound.
func (r *CompoundRepository) Get(ctx context.Context, sourceTable, compoundID string) (*CompoundRecord, error) {
	var rec CompoundRecord
	err := r.db.QueryRow(ctx, getCompoundSQL, sourceTable, compoundID).Scan(
		&rec.CompoundID, &rec.SourceTable, &rec.SMILES, &rec.SMILESKey, &rec.CreatedAt)
	if err != nil {
		return nil, notFoundOr(err, errors.ErrCodeCompoundNotFound,
			"compound "+compoundID+" is not registered")
	}
	return &rec, nil
}

const listBySourceSQL = `
SELECT compound_id, source_table, smiles, smiles_key, created_at
FROM compounds
WHERE source_table = $1
ORDER BY compound_id
`

// ListBySource returns every compound registered from one table.
func (r *CompoundRepository) ListBySource(ctx context.Context, sourceTable string) ([]CompoundRecord, error) {
	rows, err := r.db.Query(ctx, listBySourceSQL, sourceTable)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot list compounds")
	}
	defer rows.Close()

	var records []CompoundRecord
	for rows.Next() {
		var rec CompoundRecord
		if err := rows.Scan(&rec.CompoundID, &rec.SourceTable, &rec.SMILES, &rec.SMILESKey, &rec.CreatedAt); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot scan compound row")
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "compound listing failed")
	}
	return records, nil
}

const deleteBySourceSQL = `DELETE FROM compounds WHERE source_table = $1`

// DeleteBySource drops every compound registered from one table.
func (r *CompoundRepository) DeleteBySource(ctx context.Context, sourceTable string) error {
	if _, err := r.db.Exec(ctx, deleteBySourceSQL, sourceTable); err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "cannot delete compounds")
	}
	return nil
}

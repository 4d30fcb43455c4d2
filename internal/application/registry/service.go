// Package registry populates the compound registry behind similarity lookup:
// Postgres rows for bookkeeping and Milvus fingerprints for search.
package registry

import (
	"context"
	"time"

	"github.com/molprop/platform/internal/domain/molecule"
	"github.com/molprop/platform/internal/domain/run"
	"github.com/molprop/platform/internal/domain/table"
	"github.com/molprop/platform/internal/infrastructure/database/postgres/repositories"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/internal/infrastructure/search/milvus"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	tabletypes "github.com/molprop/platform/pkg/types/table"
)

// CompoundStore is satisfied by the Postgres compound repository.
type CompoundStore interface {
	UpsertBatch(ctx context.Context, records []repositories.CompoundRecord) error
	DeleteBySource(ctx context.Context, sourceTable string) error
}

// VectorIndex is the slice of the Milvus fingerprint index the registry
// needs.
type VectorIndex interface {
	Upsert(ctx context.Context, entries []milvus.Entry) error
}

// Metrics is the sliver of instrumentation the service needs.
type Metrics interface {
	ObserveAnalysis(kind string, start time.Time, err error)
}

// Service indexes results tables into the registry.  Either backend may be
// absent; indexing into neither is an error.
type Service struct {
	logger  logging.Logger
	metrics Metrics
	store   CompoundStore
	index   VectorIndex
}

// NewService wires the registry over its optional backends.
func NewService(log logging.Logger, metrics Metrics, store CompoundStore, index VectorIndex) *Service {
	return &Service{logger: log.Named("registry"), metrics: metrics, store: store, index: index}
}

// Index registers every parseable compound in the table.  Rows whose SMILES
// cannot be fingerprinted are counted as skipped, not fatal.
func (s *Service) Index(ctx context.Context, req analysis.LookupIndexRequest) (result *analysis.LookupIndexResult, err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAnalysis(string(analysis.KindLookup), start, err)
		}
	}()
	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "index canceled")
	}
	if s.store == nil && s.index == nil {
		return nil, errors.New(errors.ErrCodeLookupIndexFailed,
			"no registry backend configured; similarity lookups fall back to table scans")
	}

	t, err := table.Read(req.TablePath)
	if err != nil {
		return nil, err
	}
	idCol := req.IDColumn
	if idCol == "" {
		idCol = tabletypes.DefaultIDColumn
	}
	smilesCol := req.SMILESColumn
	if smilesCol == "" {
		smilesCol = tabletypes.DefaultSMILESColumn
	}
	ids, err := t.Strings(idCol)
	if err != nil {
		return nil, err
	}
	smiles, err := t.Strings(smilesCol)
	if err != nil {
		return nil, err
	}

	var (
		records []repositories.CompoundRecord
		entries []milvus.Entry
		skipped int
	)
	for i := range ids {
		fp, fpErr := molecule.CircularFingerprint(smiles[i],
			molecule.DefaultFingerprintRadius, molecule.DefaultFingerprintBits)
		if fpErr != nil {
			skipped++
			continue
		}
		records = append(records, repositories.CompoundRecord{
			CompoundID:  ids[i],
			SourceTable: req.TablePath,
			SMILES:      smiles[i],
			SMILESKey:   molecule.NormalizeKey(smiles[i]),
		})
		entries = append(entries, milvus.Entry{
			CompoundID:  ids[i],
			SMILES:      smiles[i],
			Fingerprint: fp.ToBytes(),
		})
	}
	if len(records) == 0 {
		return nil, errors.Newf(errors.ErrCodeLookupIndexFailed,
			"no parseable structures in column %q", smilesCol)
	}

	if s.store != nil {
		// Re-indexing replaces the table's rows wholesale.
		if err = s.store.DeleteBySource(ctx, req.TablePath); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeLookupIndexFailed, "cannot clear old registry rows")
		}
		if err = s.store.UpsertBatch(ctx, records); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeLookupIndexFailed, "cannot register compounds")
		}
	}
	if s.index != nil {
		if err = s.index.Upsert(ctx, entries); err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeLookupIndexFailed, "cannot index fingerprints")
		}
	}

	s.logger.Info("table indexed",
		logging.String("table", req.TablePath),
		logging.Int("indexed", len(records)),
		logging.Int("skipped", skipped))
	return &analysis.LookupIndexResult{
		TablePath:  req.TablePath,
		NumIndexed: len(records),
		NumSkipped: skipped,
	}, nil
}

// IndexRun registers the results table of a completed run.  Runs without a
// results table (reports-only pipelines, for example) index nothing.
func (s *Service) IndexRun(ctx context.Context, rc run.Context) error {
	meta, err := rc.ReadMetadata()
	if err != nil {
		return err
	}
	tablePath, _ := meta["results_table"].(string)
	if tablePath == "" {
		return nil
	}
	_, err = s.Index(ctx, analysis.LookupIndexRequest{TablePath: tablePath})
	return err
}

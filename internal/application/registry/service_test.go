package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/internal/domain/run"
	"github.com/molprop/platform/internal/infrastructure/database/postgres/repositories"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/internal/infrastructure/search/milvus"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
)

type fakeStore struct {
	deleted   []string
	upserted  []repositories.CompoundRecord
	deleteErr error
	upsertErr error
}

func (f *fakeStore) DeleteBySource(_ context.Context, sourceTable string) error {
	f.deleted = append(f.deleted, sourceTable)
	return f.deleteErr
}

func (f *fakeStore) UpsertBatch(_ context.Context, records []repositories.CompoundRecord) error {
	f.upserted = append(f.upserted, records...)
	return f.upsertErr
}

type fakeIndex struct {
	entries []milvus.Entry
	err     error
}

func (f *fakeIndex) Upsert(_ context.Context, entries []milvus.Entry) error {
	f.entries = append(f.entries, entries...)
	return f.err
}

func writeRegistryTable(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "compounds.csv")
	content := "Compound_ID,SMILES,MW\n" +
		"CPD-001,CCO,46.07\n" +
		"CPD-002,not-a-structure,0.0\n" +
		"CPD-003,c1ccccc1,78.11\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIndexUpsertsStoreAndVectorIndex(t *testing.T) {
	store := &fakeStore{}
	index := &fakeIndex{}
	svc := NewService(logging.NewNopLogger(), nil, store, index)

	path := writeRegistryTable(t)
	result, err := svc.Index(context.Background(), analysis.LookupIndexRequest{TablePath: path})
	require.NoError(t, err)

	assert.Equal(t, 2, result.NumIndexed)
	assert.Equal(t, 1, result.NumSkipped)
	assert.Equal(t, path, result.TablePath)

	require.Equal(t, []string{path}, store.deleted)
	require.Len(t, store.upserted, 2)
	assert.Equal(t, "CPD-001", store.upserted[0].CompoundID)
	assert.Equal(t, path, store.upserted[0].SourceTable)
	assert.NotEmpty(t, store.upserted[0].SMILESKey)

	require.Len(t, index.entries, 2)
	assert.Equal(t, "CPD-003", index.entries[1].CompoundID)
	assert.Equal(t, "c1ccccc1", index.entries[1].SMILES)
	assert.NotEmpty(t, index.entries[1].Fingerprint)
}

func TestIndexWithStoreOnly(t *testing.T) {
	store := &fakeStore{}
	svc := NewService(logging.NewNopLogger(), nil, store, nil)

	result, err := svc.Index(context.Background(), analysis.LookupIndexRequest{TablePath: writeRegistryTable(t)})
	require.NoError(t, err)
	assert.Equal(t, 2, result.NumIndexed)
	assert.Len(t, store.upserted, 2)
}

func TestIndexRequiresABackend(t *testing.T) {
	svc := NewService(logging.NewNopLogger(), nil, nil, nil)

	_, err := svc.Index(context.Background(), analysis.LookupIndexRequest{TablePath: writeRegistryTable(t)})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLookupIndexFailed, errors.GetCode(err))
}

func TestIndexCustomColumns(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "renamed.csv")
	content := "mol_id,structure\nX-1,CCN\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	index := &fakeIndex{}
	svc := NewService(logging.NewNopLogger(), nil, nil, index)

	result, err := svc.Index(context.Background(), analysis.LookupIndexRequest{
		TablePath:    path,
		IDColumn:     "mol_id",
		SMILESColumn: "structure",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.NumIndexed)
	assert.Equal(t, "X-1", index.entries[0].CompoundID)
}

func TestIndexMissingColumnFails(t *testing.T) {
	svc := NewService(logging.NewNopLogger(), nil, &fakeStore{}, nil)

	_, err := svc.Index(context.Background(), analysis.LookupIndexRequest{
		TablePath:    writeRegistryTable(t),
		SMILESColumn: "Structure",
	})
	require.Error(t, err)
}

func TestIndexNoParseableStructures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.csv")
	content := "Compound_ID,SMILES\nCPD-001,???\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	svc := NewService(logging.NewNopLogger(), nil, &fakeStore{}, nil)
	_, err := svc.Index(context.Background(), analysis.LookupIndexRequest{TablePath: path})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLookupIndexFailed, errors.GetCode(err))
}

func TestIndexRunUsesRunMetadata(t *testing.T) {
	rc, err := run.New(t.TempDir())
	require.NoError(t, err)
	path := writeRegistryTable(t)
	_, err = rc.WriteMetadata(map[string]any{"results_table": path})
	require.NoError(t, err)

	store := &fakeStore{}
	svc := NewService(logging.NewNopLogger(), nil, store, nil)

	require.NoError(t, svc.IndexRun(context.Background(), rc))
	assert.Len(t, store.upserted, 2)
	assert.Equal(t, path, store.upserted[0].SourceTable)
}

func TestIndexRunWithoutResultsTable(t *testing.T) {
	rc, err := run.New(t.TempDir())
	require.NoError(t, err)
	_, err = rc.WriteMetadata(map[string]any{"status": "succeeded"})
	require.NoError(t, err)

	store := &fakeStore{}
	svc := NewService(logging.NewNopLogger(), nil, store, nil)

	require.NoError(t, svc.IndexRun(context.Background(), rc))
	assert.Empty(t, store.upserted)
}

func TestIndexStoreFailureSurfacesCode(t *testing.T) {
	store := &fakeStore{upsertErr: assert.AnError}
	svc := NewService(logging.NewNopLogger(), nil, store, nil)

	_, err := svc.Index(context.Background(), analysis.LookupIndexRequest{TablePath: writeRegistryTable(t)})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLookupIndexFailed, errors.GetCode(err))
}

func TestIndexVectorFailureSurfacesCode(t *testing.T) {
	index := &fakeIndex{err: assert.AnError}
	svc := NewService(logging.NewNopLogger(), nil, nil, index)

	_, err := svc.Index(context.Background(), analysis.LookupIndexRequest{TablePath: writeRegistryTable(t)})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeLookupIndexFailed, errors.GetCode(err))
}

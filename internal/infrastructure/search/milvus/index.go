package milvus

import (
	"context"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/molprop/platform/internal/config"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
)

const (
	collectionSuffix = "fingerprints"
	idField          = "compound_id"
	smilesField      = "smiles"
	vectorField      = "fingerprint"

	defaultTopK  = 10
	binIvfNlist  = 128
	binIvfNprobe = 16
)

// milvusAPI is the slice of client.Client the index uses, fakeable in tests.
type milvusAPI interface {
	HasCollection(ctx context.Context, name string) (bool, error)
	CreateCollection(ctx context.Context, schema *entity.Schema, shardsNum int32, opts ...client.CreateCollectionOption) error
	CreateIndex(ctx context.Context, collName, fieldName string, idx entity.Index, async bool, opts ...client.IndexOption) error
	LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error
	Insert(ctx context.Context, collName, partitionName string, columns ...entity.Column) (entity.Column, error)
	Flush(ctx context.Context, collName string, async bool, opts ...client.FlushOption) error
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
	Close() error
}

// The SDK client must satisfy milvusAPI; signatures here must track it.
var _ milvusAPI = (client.Client)(nil)

// Hit is one similarity-search neighbor.  Similarity is Tanimoto, derived
// from the Jaccard distance Milvus reports on binary vectors.
type Hit struct {
	CompoundID string  `json:"compound_id"`
	SMILES     string  `json:"smiles"`
	Similarity float64 `json:"similarity"`
}

// Entry is one fingerprint to index.
type Entry struct {
	CompoundID  string
	SMILES      string
	Fingerprint []byte
}

// FingerprintIndex stores packed circular fingerprints in Milvus for
// approximate nearest-neighbor similarity lookup.
type FingerprintIndex struct {
	api        milvusAPI
	collection string
	dim        int
	topK       int
	logger     logging.Logger
}

// NewFingerprintIndex connects to Milvus and ensures the fingerprint
// collection exists and is loaded.
func NewFingerprintIndex(ctx context.Context, cfg config.MilvusConfig, log logging.Logger) (*FingerprintIndex, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	c, err := client.NewClient(connectCtx, client.Config{Address: cfg.Addr})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrCodeInternal, "cannot connect to milvus at %s", cfg.Addr)
	}

	idx := &FingerprintIndex{
		api:        c,
		collection: cfg.CollectionPrefix + collectionSuffix,
		dim:        cfg.FingerprintBits,
		topK:       cfg.DefaultTopK,
		logger:     log.Named("fingerprint_index"),
	}
	if idx.topK <= 0 {
		idx.topK = defaultTopK
	}
	if err := idx.ensureCollection(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return idx, nil
}

func (x *FingerprintIndex) ensureCollection(ctx context.Context) error {
	exists, err := x.api.HasCollection(ctx, x.collection)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot check fingerprint collection")
	}
	if !exists {
		schema := entity.NewSchema().
			WithName(x.collection).
			WithDescription("packed circular fingerprints for similarity lookup").
			WithField(entity.NewField().
				WithName(idField).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(256).
				WithIsPrimaryKey(true)).
			WithField(entity.NewField().
				WithName(smilesField).
				WithDataType(entity.FieldTypeVarChar).
				WithMaxLength(4096)).
			WithField(entity.NewField().
				WithName(vectorField).
				WithDataType(entity.FieldTypeBinaryVector).
				WithDim(int64(x.dim)))
		if err := x.api.CreateCollection(ctx, schema, 1); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "cannot create fingerprint collection")
		}
		binIdx, err := entity.NewIndexBinIvfFlat(entity.JACCARD, binIvfNlist)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "cannot build fingerprint index config")
		}
		if err := x.api.CreateIndex(ctx, x.collection, vectorField, binIdx, false); err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "cannot create fingerprint index")
		}
		x.logger.Info("created fingerprint collection",
			logging.String("collection", x.collection),
			logging.Int("dim", x.dim),
		)
	}
	if err := x.api.LoadCollection(ctx, x.collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot load fingerprint collection")
	}
	return nil
}

// Upsert indexes a batch of fingerprints.  Entries whose fingerprint length
// does not match the collection dimension are rejected.
func (x *FingerprintIndex) Upsert(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]string, len(entries))
	smiles := make([]string, len(entries))
	vectors := make([][]byte, len(entries))
	for i, e := range entries {
		if len(e.Fingerprint)*8 != x.dim {
			return errors.Newf(errors.ErrCodeFingerprintDimMismatch,
				"fingerprint for %q has %d bits, index expects %d",
				e.CompoundID, len(e.Fingerprint)*8, x.dim)
		}
		ids[i] = e.CompoundID
		smiles[i] = e.SMILES
		vectors[i] = e.Fingerprint
	}

	_, err := x.api.Insert(ctx, x.collection, "",
		entity.NewColumnVarChar(idField, ids),
		entity.NewColumnVarChar(smilesField, smiles),
		entity.NewColumnBinaryVector(vectorField, x.dim, vectors),
	)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot insert fingerprints")
	}
	if err := x.api.Flush(ctx, x.collection, false); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "cannot flush fingerprint collection")
	}
	return nil
}

// Search returns the topK nearest neighbors of one packed fingerprint.
func (x *FingerprintIndex) Search(ctx context.Context, fingerprint []byte, topK int) ([]Hit, error) {
	if len(fingerprint)*8 != x.dim {
		return nil, errors.Newf(errors.ErrCodeFingerprintDimMismatch,
			"query fingerprint has %d bits, index expects %d", len(fingerprint)*8, x.dim)
	}
	if topK <= 0 {
		topK = x.topK
	}
	sp, err := entity.NewIndexBinIvfFlatSearchParam(binIvfNprobe)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "cannot build search params")
	}

	results, err := x.api.Search(ctx, x.collection, nil, "",
		[]string{smilesField},
		[]entity.Vector{entity.BinaryVector(fingerprint)},
		vectorField, entity.JACCARD, topK, sp)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSimilarityFailed, "fingerprint search failed")
	}

	var hits []Hit
	for _, res := range results {
		idCol, _ := res.IDs.(*entity.ColumnVarChar)
		var smilesCol *entity.ColumnVarChar
		for _, f := range res.Fields {
			if f.Name() == smilesField {
				smilesCol, _ = f.(*entity.ColumnVarChar)
			}
		}
		for i := 0; i < res.ResultCount; i++ {
			hit := Hit{
				// Jaccard distance to Tanimoto similarity.
				Similarity: 1 - float64(res.Scores[i]),
			}
			if idCol != nil {
				hit.CompoundID, _ = idCol.ValueByIdx(i)
			}
			if smilesCol != nil {
				hit.SMILES, _ = smilesCol.ValueByIdx(i)
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// Close releases the Milvus connection.
func (x *FingerprintIndex) Close() error {
	return x.api.Close()
}

// Package lookup answers compound queries against a results table: by
// identifier, by SMILES substring, or by fingerprint similarity.
package lookup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/molprop/platform/internal/domain/molecule"
	"github.com/molprop/platform/internal/domain/table"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/internal/infrastructure/search/milvus"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	tabletypes "github.com/molprop/platform/pkg/types/table"
)

const (
	// DefaultThreshold filters similarity hits when the request leaves it
	// unset.
	DefaultThreshold = 0.7
	// DefaultMaxResults caps hits when the request leaves it unset.
	DefaultMaxResults = 25

	cacheTTL = 10 * time.Minute
)

// Metrics is the sliver of instrumentation the service needs.
type Metrics interface {
	ObserveAnalysis(kind string, start time.Time, err error)
}

// ResultCache is satisfied by the Redis cache; repeated dashboard queries
// against the same table short-circuit here.
type ResultCache interface {
	GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error
}

// FingerprintSearcher is satisfied by the Milvus fingerprint index.  When
// absent the service falls back to a linear scan of the table.
type FingerprintSearcher interface {
	Search(ctx context.Context, fingerprint []byte, topK int) ([]milvus.Hit, error)
}

// Service answers lookup queries.
type Service struct {
	logger   logging.Logger
	metrics  Metrics
	cache    ResultCache
	searcher FingerprintSearcher
}

// NewService wires a lookup service.  metrics, cache and searcher may each
// be nil.
func NewService(log logging.Logger, metrics Metrics, cache ResultCache, searcher FingerprintSearcher) *Service {
	return &Service{logger: log.Named("lookup"), metrics: metrics, cache: cache, searcher: searcher}
}

// Run resolves one lookup query.
func (s *Service) Run(ctx context.Context, req analysis.LookupRequest) (result *analysis.LookupResult, err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAnalysis(string(analysis.KindLookup), start, err)
		}
	}()
	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "lookup canceled")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, errors.New(errors.ErrCodeLookupQueryInvalid, "lookup query is empty")
	}

	if s.cache == nil {
		return s.resolve(ctx, req)
	}
	var cached analysis.LookupResult
	err = s.cache.GetOrSet(ctx, cacheKey(req), &cached, cacheTTL, func(ctx context.Context) (any, error) {
		return s.resolve(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	return &cached, nil
}

func (s *Service) resolve(ctx context.Context, req analysis.LookupRequest) (*analysis.LookupResult, error) {
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
	maxResults := req.MaxResults
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}

	switch req.Mode {
	case analysis.LookupByID, "":
		return s.byID(t, idCol, smilesCol, req.Query, maxResults)
	case analysis.LookupBySMILES:
		return s.bySMILES(t, idCol, smilesCol, req.Query, maxResults)
	case analysis.LookupBySimilarity:
		return s.bySimilarity(ctx, t, idCol, smilesCol, req, maxResults)
	default:
		return nil, errors.Newf(errors.ErrCodeLookupQueryInvalid, "unknown lookup mode %q", req.Mode)
	}
}

func (s *Service) byID(t *table.Table, idCol, smilesCol, query string, maxResults int) (*analysis.LookupResult, error) {
	ids, err := t.Strings(idCol)
	if err != nil {
		return nil, err
	}
	result := &analysis.LookupResult{Mode: analysis.LookupByID}
	for i, id := range ids {
		if id != query {
			continue
		}
		hit := analysis.LookupHit{ID: id, Row: t.Row(i)}
		hit.SMILES = hit.Row[smilesCol]
		result.Hits = append(result.Hits, hit)
		if len(result.Hits) >= maxResults {
			break
		}
	}
	if len(result.Hits) == 0 {
		return nil, errors.Newf(errors.ErrCodeCompoundNotFound, "no compound with id %q", query)
	}
	return result, nil
}

// bySMILES matches the normalized query exactly first, then falls back to
// substring containment.
func (s *Service) bySMILES(t *table.Table, idCol, smilesCol, query string, maxResults int) (*analysis.LookupResult, error) {
	ids, err := t.Strings(idCol)
	if err != nil {
		return nil, err
	}
	smiles, err := t.Strings(smilesCol)
	if err != nil {
		return nil, err
	}
	normQuery := molecule.NormalizeKey(query)

	result := &analysis.LookupResult{Mode: analysis.LookupBySMILES}
	appendHit := func(i int) {
		hit := analysis.LookupHit{ID: ids[i], SMILES: smiles[i], Row: t.Row(i)}
		result.Hits = append(result.Hits, hit)
	}
	for i := range smiles {
		if molecule.NormalizeKey(smiles[i]) == normQuery {
			appendHit(i)
			if len(result.Hits) >= maxResults {
				return result, nil
			}
		}
	}
	if len(result.Hits) == 0 {
		for i := range smiles {
			if strings.Contains(smiles[i], query) {
				appendHit(i)
				if len(result.Hits) >= maxResults {
					break
				}
			}
		}
	}
	if len(result.Hits) == 0 {
		return nil, errors.Newf(errors.ErrCodeCompoundNotFound, "no compound matching %q", query)
	}
	return result, nil
}

func (s *Service) bySimilarity(ctx context.Context, t *table.Table, idCol, smilesCol string, req analysis.LookupRequest, maxResults int) (*analysis.LookupResult, error) {
	threshold := req.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	queryFP, err := molecule.CircularFingerprint(req.Query,
		molecule.DefaultFingerprintRadius, molecule.DefaultFingerprintBits)
	if err != nil {
		return nil, err
	}

	if s.searcher != nil {
		result, err := s.indexSimilarity(ctx, t, idCol, queryFP, threshold, maxResults)
		if err == nil {
			return result, nil
		}
		if errors.IsCode(err, errors.ErrCodeCompoundNotFound) {
			return nil, err
		}
		s.logger.Warn("index search failed, falling back to table scan", logging.Err(err))
	}
	return s.scanSimilarity(t, idCol, smilesCol, queryFP, threshold, maxResults)
}

func (s *Service) indexSimilarity(ctx context.Context, t *table.Table, idCol string, queryFP *molecule.Fingerprint, threshold float64, maxResults int) (*analysis.LookupResult, error) {
	hits, err := s.searcher.Search(ctx, queryFP.ToBytes(), maxResults)
	if err != nil {
		return nil, err
	}
	rows := map[string]int{}
	if ids, err := t.Strings(idCol); err == nil {
		for i, id := range ids {
			rows[id] = i
		}
	}

	result := &analysis.LookupResult{Mode: analysis.LookupBySimilarity}
	for _, h := range hits {
		if h.Similarity < threshold {
			continue
		}
		hit := analysis.LookupHit{ID: h.CompoundID, SMILES: h.SMILES, Similarity: h.Similarity}
		if i, ok := rows[h.CompoundID]; ok {
			hit.Row = t.Row(i)
		}
		result.Hits = append(result.Hits, hit)
	}
	if len(result.Hits) == 0 {
		return nil, errors.Newf(errors.ErrCodeCompoundNotFound,
			"no compound within similarity %.2f", threshold)
	}
	return result, nil
}

func (s *Service) scanSimilarity(t *table.Table, idCol, smilesCol string, queryFP *molecule.Fingerprint, threshold float64, maxResults int) (*analysis.LookupResult, error) {
	ids, err := t.Strings(idCol)
	if err != nil {
		return nil, err
	}
	smiles, err := t.Strings(smilesCol)
	if err != nil {
		return nil, err
	}

	result := &analysis.LookupResult{Mode: analysis.LookupBySimilarity}
	for i := range smiles {
		fp, err := molecule.CircularFingerprint(smiles[i],
			molecule.DefaultFingerprintRadius, molecule.DefaultFingerprintBits)
		if err != nil {
			continue
		}
		sim, err := molecule.Tanimoto(queryFP, fp)
		if err != nil || sim < threshold {
			continue
		}
		result.Hits = append(result.Hits, analysis.LookupHit{
			ID: ids[i], SMILES: smiles[i], Similarity: sim, Row: t.Row(i),
		})
	}
	sort.SliceStable(result.Hits, func(a, b int) bool {
		return result.Hits[a].Similarity > result.Hits[b].Similarity
	})
	if len(result.Hits) > maxResults {
		result.Hits = result.Hits[:maxResults]
	}
	if len(result.Hits) == 0 {
		return nil, errors.Newf(errors.ErrCodeCompoundNotFound,
			"no compound within similarity %.2f", threshold)
	}
	return result, nil
}

// cacheKey folds the full request into a stable key.
func cacheKey(req analysis.LookupRequest) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s|%s|%g|%d",
		req.TablePath, req.Mode, req.Query, req.IDColumn, req.SMILESColumn,
		req.Threshold, req.MaxResults)))
	return "lookup:" + hex.EncodeToString(sum[:8])
}

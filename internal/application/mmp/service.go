// Package mmp discovers matched molecular pairs in a results table and
// aggregates them into ranked transforms.
package mmp

import (
	"context"
	"strconv"
	"time"

	"github.com/molprop/platform/internal/domain/mmp"
	"github.com/molprop/platform/internal/domain/table"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	tabletypes "github.com/molprop/platform/pkg/types/table"
)

// Metrics is the sliver of instrumentation the service needs.
type Metrics interface {
	ObserveAnalysis(kind string, start time.Time, err error)
}

// Service runs matched-pair analysis over results tables.
type Service struct {
	logger  logging.Logger
	metrics Metrics
}

// NewService wires an MMP service.  metrics may be nil.
func NewService(log logging.Logger, metrics Metrics) *Service {
	return &Service{logger: log.Named("mmp"), metrics: metrics}
}

// Run finds pairs sharing a single-cut core, aggregates transforms, and
// optionally writes the pair list as a table.
func (s *Service) Run(ctx context.Context, req analysis.MMPRequest) (result *analysis.MMPResult, err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAnalysis(string(analysis.KindMMP), start, err)
		}
	}()
	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "mmp analysis canceled")
	}
	if req.Property == "" {
		return nil, errors.New(errors.ErrCodeMMPPropertyMissing, "mmp analysis needs a property column")
	}

	compounds, skipped, err := loadCompounds(req)
	if err != nil {
		return nil, err
	}

	pairs, pairSkipped := mmp.FindPairs(compounds)
	minPairs := req.MinPairs
	if minPairs <= 0 {
		minPairs = mmp.DefaultMinPairs
	}
	transforms, err := mmp.Aggregate(pairs, minPairs)
	if err != nil {
		return nil, err
	}

	result = &analysis.MMPResult{
		Property:   req.Property,
		Pairs:      pairs,
		Transforms: transforms,
		NumSkipped: skipped + pairSkipped,
	}
	if req.OutPath != "" {
		if err = writePairs(pairs, req.OutPath); err != nil {
			return nil, err
		}
		result.OutPath = req.OutPath
	}

	s.logger.Info("matched pairs discovered",
		logging.Int("pairs", len(pairs)),
		logging.Int("transforms", len(transforms)),
		logging.Int("skipped", result.NumSkipped),
	)
	return result, nil
}

// loadCompounds reads id, smiles and property columns; rows with missing
// structure or property are counted and skipped here, unparseable SMILES are
// skipped inside pair discovery.
func loadCompounds(req analysis.MMPRequest) ([]mmp.Compound, int, error) {
	t, err := table.Read(req.TablePath)
	if err != nil {
		return nil, 0, err
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
		return nil, 0, err
	}
	smiles, err := t.Strings(smilesCol)
	if err != nil {
		return nil, 0, err
	}
	values, nulls, err := t.Floats(req.Property)
	if err != nil {
		return nil, 0, err
	}

	var (
		compounds []mmp.Compound
		skipped   int
	)
	for i := range ids {
		if smiles[i] == "" || nulls[i] {
			skipped++
			continue
		}
		compounds = append(compounds, mmp.Compound{ID: ids[i], SMILES: smiles[i], Value: values[i]})
	}
	return compounds, skipped, nil
}

func writePairs(pairs []analysis.MMPPair, outPath string) error {
	out, err := table.New([]string{"Left_ID", "Right_ID", "Core", "Left_Frag", "Right_Frag", "Delta"})
	if err != nil {
		return err
	}
	for _, p := range pairs {
		row := []string{
			p.LeftID, p.RightID, p.Core, p.LeftFrag, p.RightFrag,
			strconv.FormatFloat(p.Delta, 'g', -1, 64),
		}
		if err := out.AppendRow(row); err != nil {
			return err
		}
	}
	out.Finalize()
	return table.Write(out, outPath)
}

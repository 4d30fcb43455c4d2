// Package sar summarizes structure-activity relationships: scaffold groups
// with activity statistics, plus activity-cliff detection.
package sar

import (
	"context"
	"strconv"
	"time"

	"github.com/molprop/platform/internal/domain/sar"
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

// Service runs SAR summaries over results tables.
type Service struct {
	logger  logging.Logger
	metrics Metrics
}

// NewService wires a SAR service.  metrics may be nil.
func NewService(log logging.Logger, metrics Metrics) *Service {
	return &Service{logger: log.Named("sar"), metrics: metrics}
}

// Run groups compounds by scaffold and detects activity cliffs, optionally
// writing the scaffold summary as a table.
func (s *Service) Run(ctx context.Context, req analysis.SARRequest) (result *analysis.SARResult, err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAnalysis(string(analysis.KindSAR), start, err)
		}
	}()
	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "sar analysis canceled")
	}
	if req.ActivityColumn == "" {
		return nil, errors.New(errors.ErrCodeSARActivityMissing, "sar analysis needs an activity column")
	}

	compounds, skipped, err := loadCompounds(req)
	if err != nil {
		return nil, err
	}

	scaffolds, groupSkipped, err := sar.GroupByScaffold(compounds)
	if err != nil {
		return nil, err
	}

	minSim := req.CliffSimilarity
	if minSim <= 0 {
		minSim = sar.DefaultCliffSimilarity
	}
	minDelta := req.CliffDelta
	if minDelta <= 0 {
		minDelta = sar.DefaultCliffDelta
	}
	cliffs := sar.FindCliffs(compounds, minSim, minDelta)

	result = &analysis.SARResult{
		ActivityColumn: req.ActivityColumn,
		Scaffolds:      scaffolds,
		Cliffs:         cliffs,
		NumSkipped:     skipped + groupSkipped,
	}
	if req.OutPath != "" {
		if err = writeScaffolds(scaffolds, req.OutPath); err != nil {
			return nil, err
		}
		result.OutPath = req.OutPath
	}

	s.logger.Info("sar summary built",
		logging.Int("scaffolds", len(scaffolds)),
		logging.Int("cliffs", len(cliffs)),
		logging.Int("skipped", result.NumSkipped),
	)
	return result, nil
}

func loadCompounds(req analysis.SARRequest) ([]sar.Compound, int, error) {
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
	activity, nulls, err := t.Floats(req.ActivityColumn)
	if err != nil {
		return nil, 0, err
	}

	var (
		compounds []sar.Compound
		skipped   int
	)
	for i := range ids {
		if smiles[i] == "" || nulls[i] {
			skipped++
			continue
		}
		compounds = append(compounds, sar.Compound{ID: ids[i], SMILES: smiles[i], Activity: activity[i]})
	}
	return compounds, skipped, nil
}

func writeScaffolds(scaffolds []analysis.ScaffoldSummary, outPath string) error {
	out, err := table.New([]string{"Scaffold", "N", "Mean", "StdDev", "Min", "Max"})
	if err != nil {
		return err
	}
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, sc := range scaffolds {
		row := []string{sc.Scaffold, strconv.Itoa(sc.N), f(sc.Mean), f(sc.StdDev), f(sc.Min), f(sc.Max)}
		if err := out.AppendRow(row); err != nil {
			return err
		}
	}
	out.Finalize()
	return table.Write(out, outPath)
}

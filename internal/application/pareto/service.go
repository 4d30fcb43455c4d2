// Package pareto ranks table rows into Pareto fronts over user-chosen
// objective columns and annotates the table with the result.
package pareto

import (
	"context"
	"strconv"
	"time"

	"github.com/molprop/platform/internal/domain/pareto"
	"github.com/molprop/platform/internal/domain/table"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	tabletypes "github.com/molprop/platform/pkg/types/table"
)

// RankColumn is the column appended to annotated output tables.  Rank 0
// means the row was excluded (missing objective values).
const RankColumn = "Pareto_Rank"

// Metrics is the sliver of instrumentation the service needs.
type Metrics interface {
	ObserveAnalysis(kind string, start time.Time, err error)
}

// Service extracts Pareto fronts from results tables.
type Service struct {
	logger  logging.Logger
	metrics Metrics
}

// NewService wires a Pareto service.  metrics may be nil.
func NewService(log logging.Logger, metrics Metrics) *Service {
	return &Service{logger: log.Named("pareto"), metrics: metrics}
}

// Run ranks the table's rows and, when OutPath is set, writes the table back
// out with a Pareto_Rank column appended.
func (s *Service) Run(ctx context.Context, req analysis.ParetoRequest) (result *analysis.ParetoResult, err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAnalysis(string(analysis.KindPareto), start, err)
		}
	}()
	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "pareto analysis canceled")
	}

	if err = pareto.ValidateObjectives(req.Objectives); err != nil {
		return nil, err
	}
	idCol := req.IDColumn
	if idCol == "" {
		idCol = tabletypes.DefaultIDColumn
	}

	t, err := table.Read(req.TablePath)
	if err != nil {
		return nil, err
	}

	points, err := buildPoints(t, idCol, req.Objectives)
	if err != nil {
		return nil, err
	}

	ranked, frontSizes := pareto.Rank(points, req.MaxRank)

	result = &analysis.ParetoResult{
		Objectives: req.Objectives,
		Points:     make([]analysis.ParetoPoint, len(ranked)),
		FrontSizes: frontSizes,
	}
	for i, r := range ranked {
		// Orient is its own inverse; applying it again restores the
		// raw column values for reporting.
		result.Points[i] = analysis.ParetoPoint{
			ID:     r.ID,
			Rank:   r.Rank,
			Values: pareto.Orient(r.Values, req.Objectives),
		}
	}

	if req.OutPath != "" {
		if err = writeAnnotated(t, ranked, req.OutPath); err != nil {
			return nil, err
		}
		result.OutPath = req.OutPath
	}

	s.logger.Info("pareto fronts extracted",
		logging.Int("rows", len(ranked)),
		logging.Int("fronts", len(frontSizes)),
	)
	return result, nil
}

// buildPoints reads the oriented objective values row by row.  Orientation
// negates minimized columns so domination is a single comparison.
func buildPoints(t *table.Table, idCol string, objectives []analysis.Objective) ([]pareto.Point, error) {
	columns := make([][]float64, len(objectives))
	for j, obj := range objectives {
		values, _, err := t.Floats(obj.Column)
		if err != nil {
			return nil, err
		}
		columns[j] = values
	}
	ids, err := t.Strings(idCol)
	if err != nil {
		ids = make([]string, t.NumRows())
		for i := range ids {
			ids[i] = strconv.Itoa(i)
		}
	}

	points := make([]pareto.Point, t.NumRows())
	for i := range points {
		values := make([]float64, len(objectives))
		for j := range objectives {
			values[j] = columns[j][i]
		}
		points[i] = pareto.Point{ID: ids[i], Values: pareto.Orient(values, objectives)}
	}
	return points, nil
}

func writeAnnotated(t *table.Table, ranked []pareto.Ranked, outPath string) error {
	cells := make([]string, len(ranked))
	for i, r := range ranked {
		cells[i] = strconv.Itoa(r.Rank)
	}
	if err := t.AddColumn(RankColumn, cells); err != nil {
		return err
	}
	return table.Write(t, outPath)
}

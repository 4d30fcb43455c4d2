// Package visualize projects a results table's numeric columns to 2-D and
// renders the interactive scatter plot the dashboard and CLI both serve.
package visualize

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/molprop/platform/internal/domain/projection"
	"github.com/molprop/platform/internal/domain/table"
	"github.com/molprop/platform/internal/infrastructure/monitoring/logging"
	"github.com/molprop/platform/pkg/errors"
	"github.com/molprop/platform/pkg/types/analysis"
	tabletypes "github.com/molprop/platform/pkg/types/table"
)

const (
	// ProjectionCSVName and ProjectionHTMLName are the artifact names
	// written into the output directory.
	ProjectionCSVName  = "projection.csv"
	ProjectionHTMLName = "projection.html"
)

// Metrics is the sliver of instrumentation the service needs.
type Metrics interface {
	ObserveAnalysis(kind string, start time.Time, err error)
}

// Service runs projections over results tables.
type Service struct {
	logger  logging.Logger
	metrics Metrics
}

// NewService wires a visualization service.  metrics may be nil.
func NewService(log logging.Logger, metrics Metrics) *Service {
	return &Service{logger: log.Named("visualize"), metrics: metrics}
}

// Run loads the table, projects it, and writes projection.csv plus
// projection.html into the request's output directory.
func (s *Service) Run(ctx context.Context, req analysis.VisualizeRequest) (result *analysis.VisualizeResult, err error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveAnalysis(string(analysis.KindVisualize), start, err)
		}
	}()
	if err = ctx.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "visualization canceled")
	}

	method, err := projection.ParseMethod(string(req.Method))
	if err != nil {
		return nil, err
	}
	idCol := req.IDColumn
	if idCol == "" {
		idCol = tabletypes.DefaultIDColumn
	}
	seed := req.Seed
	if seed == 0 {
		seed = projection.DefaultSeed
	}

	t, err := table.Read(req.TablePath)
	if err != nil {
		return nil, err
	}

	columns, err := selectColumns(t, req.Columns, idCol)
	if err != nil {
		return nil, err
	}
	matrix, err := buildMatrix(t, columns)
	if err != nil {
		return nil, err
	}

	emb, err := projection.Project(method, matrix, seed)
	if err != nil {
		return nil, err
	}

	ids := rowIDs(t, idCol)
	points, err := s.scatterPoints(t, ids, emb, req.ColorBy)
	if err != nil {
		return nil, err
	}

	csvPath := filepath.Join(req.OutDir, ProjectionCSVName)
	htmlPath := filepath.Join(req.OutDir, ProjectionHTMLName)

	axis := strings.ToUpper(string(method))
	if err = writeProjectionCSV(csvPath, idCol, axis, ids, emb); err != nil {
		return nil, err
	}
	title := fmt.Sprintf("%s projection (%d compounds)", axis, len(emb.X))
	if err = projection.WriteScatterHTML(htmlPath, title, axis+"_1", axis+"_2", points); err != nil {
		return nil, err
	}

	s.logger.Info("projection written",
		logging.String("method", string(method)),
		logging.Int("points", len(emb.X)),
		logging.String("out_dir", req.OutDir),
	)
	return &analysis.VisualizeResult{
		Method:            analysis.ProjectionMethod(method),
		ProjectionCSV:     csvPath,
		ProjectionHTML:    htmlPath,
		NumPoints:         len(emb.X),
		ColumnsUsed:       columns,
		ExplainedVariance: emb.ExplainedVariance,
	}, nil
}

// selectColumns resolves the feature columns: the request's explicit list,
// or every numeric column except the identifier.
func selectColumns(t *table.Table, requested []string, idCol string) ([]string, error) {
	if len(requested) > 0 {
		for _, name := range requested {
			if !t.HasColumn(name) {
				return nil, errors.Newf(errors.ErrCodeColumnNotFound,
					"column %q not in table; numeric columns are %v", name, t.NumericColumns())
			}
		}
		return requested, nil
	}
	var columns []string
	for _, name := range t.NumericColumns() {
		if name != idCol {
			columns = append(columns, name)
		}
	}
	if len(columns) == 0 {
		return nil, errors.New(errors.ErrCodeProjectionNoNumeric, "table has no numeric columns to project")
	}
	return columns, nil
}

func buildMatrix(t *table.Table, columns []string) ([][]float64, error) {
	matrix := make([][]float64, t.NumRows())
	for i := range matrix {
		matrix[i] = make([]float64, len(columns))
	}
	for j, name := range columns {
		// Null cells already carry NaN.
		values, _, err := t.Floats(name)
		if err != nil {
			return nil, err
		}
		for i := range values {
			matrix[i][j] = values[i]
		}
	}
	return matrix, nil
}

func rowIDs(t *table.Table, idCol string) []string {
	if ids, err := t.Strings(idCol); err == nil {
		return ids
	}
	ids := make([]string, t.NumRows())
	for i := range ids {
		ids[i] = strconv.Itoa(i)
	}
	return ids
}

func (s *Service) scatterPoints(t *table.Table, ids []string, emb *projection.Embedding, colorBy string) ([]projection.ScatterPoint, error) {
	points := make([]projection.ScatterPoint, len(emb.X))
	for i := range points {
		points[i] = projection.ScatterPoint{ID: ids[i], X: emb.X[i], Y: emb.Y[i], Label: ids[i]}
	}
	if colorBy == "" {
		return points, nil
	}
	if !t.HasColumn(colorBy) {
		return nil, errors.Newf(errors.ErrCodeColumnNotFound, "color column %q not in table", colorBy)
	}

	if values, _, err := t.Floats(colorBy); err == nil {
		lo, hi := math.Inf(1), math.Inf(-1)
		for _, v := range values {
			if !math.IsNaN(v) {
				lo = math.Min(lo, v)
				hi = math.Max(hi, v)
			}
		}
		for i := range points {
			points[i].Color = projection.GradientColor(values[i], lo, hi)
			points[i].Label = fmt.Sprintf("%s: %s=%s", ids[i], colorBy, formatFloat(values[i]))
		}
		return points, nil
	}

	// Text column: one palette color per distinct category.
	cells, err := t.Strings(colorBy)
	if err != nil {
		return nil, err
	}
	categories := map[string]int{}
	for i, cell := range cells {
		idx, seen := categories[cell]
		if !seen {
			idx = len(categories)
			categories[cell] = idx
		}
		points[i].Color = projection.CategoryColor(idx)
		points[i].Label = fmt.Sprintf("%s: %s=%s", ids[i], colorBy, cell)
	}
	return points, nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// writeProjectionCSV writes id, <AXIS>_1, <AXIS>_2 rows next to the plot.
func writeProjectionCSV(path, idCol, axis string, ids []string, emb *projection.Embedding) error {
	out, err := table.New([]string{idCol, axis + "_1", axis + "_2"})
	if err != nil {
		return err
	}
	for i := range emb.X {
		row := []string{
			ids[i],
			strconv.FormatFloat(emb.X[i], 'g', -1, 64),
			strconv.FormatFloat(emb.Y[i], 'g', -1, 64),
		}
		if err := out.AppendRow(row); err != nil {
			return err
		}
	}
	out.Finalize()
	return table.Write(out, path)
}

package projection

import (
	"fmt"
	"html/template"
	"math"
	"os"
	"path/filepath"

	"github.com/molprop/platform/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Scatter Plot Output
// ─────────────────────────────────────────────────────────────────────────────

// ScatterPoint is one rendered marker.  Color is any CSS color; the Label
// appears as the hover tooltip.
type ScatterPoint struct {
	ID    string
	X     float64
	Y     float64
	Color string
	Label string
}

// plotWidth and plotHeight are the SVG viewport in pixels.
const (
	plotWidth  = 900
	plotHeight = 640
	plotMargin = 50
)

type plotPoint struct {
	CX    float64
	CY    float64
	Color string
	Label string
}

type plotData struct {
	Title  string
	XLabel string
	YLabel string
	Width  int
	Height int
	Points []plotPoint
}

var scatterTemplate = template.Must(template.New("scatter").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; margin: 2em; background: #fafafa; }
svg { background: #fff; border: 1px solid #ddd; }
circle { opacity: 0.75; }
circle:hover { opacity: 1; stroke: #333; }
.axis { fill: #555; font-size: 13px; }
</style>
</head>
<body>
<h2>{{.Title}}</h2>
<svg width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
<text class="axis" x="{{.Width}}" y="{{.Height}}" text-anchor="end" dx="-6" dy="-6">{{.XLabel}}</text>
<text class="axis" x="0" y="0" transform="rotate(-90)" text-anchor="end" dx="-6" dy="14">{{.YLabel}}</text>
{{- range .Points}}
<circle cx="{{printf "%.1f" .CX}}" cy="{{printf "%.1f" .CY}}" r="4" fill="{{.Color}}"><title>{{.Label}}</title></circle>
{{- end}}
</svg>
</body>
</html>
`))

// WriteScatterHTML renders points into a self-contained HTML file.  The file
// needs no external assets so it can be zipped into a run bundle and opened
// anywhere.
func WriteScatterHTML(path, title, xLabel, yLabel string, points []ScatterPoint) error {
	data := plotData{
		Title:  title,
		XLabel: xLabel,
		YLabel: yLabel,
		Width:  plotWidth,
		Height: plotHeight,
		Points: make([]plotPoint, 0, len(points)),
	}

	minX, maxX := math.Inf(1), math.Inf(-1)
	minY, maxY := math.Inf(1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	spanX := maxX - minX
	if spanX == 0 {
		spanX = 1
	}
	spanY := maxY - minY
	if spanY == 0 {
		spanY = 1
	}

	innerW := float64(plotWidth - 2*plotMargin)
	innerH := float64(plotHeight - 2*plotMargin)
	for _, p := range points {
		color := p.Color
		if color == "" {
			color = "#4477aa"
		}
		data.Points = append(data.Points, plotPoint{
			CX:    plotMargin + (p.X-minX)/spanX*innerW,
			CY:    plotMargin + (1-(p.Y-minY)/spanY)*innerH, // SVG y grows downward
			Color: color,
			Label: p.Label,
		})
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrCodePlotWriteFailed, "cannot create plot directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodePlotWriteFailed, "cannot create plot file")
	}
	defer f.Close()
	if err := scatterTemplate.Execute(f, data); err != nil {
		return errors.Wrap(err, errors.ErrCodePlotWriteFailed, "cannot render plot")
	}
	return nil
}

// GradientColor maps a value in [min, max] onto a blue-to-red ramp for
// numeric color-by columns.  NaN renders gray.
func GradientColor(v, min, max float64) string {
	if math.IsNaN(v) {
		return "#bbbbbb"
	}
	t := 0.5
	if max > min {
		t = (v - min) / (max - min)
	}
	r := int(68 + t*(204-68))
	g := int(119 + t*(51-119))
	b := int(170 + t*(68-170))
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// CategoryColor cycles a qualitative palette for text color-by columns.
func CategoryColor(index int) string {
	palette := []string{
		"#4477aa", "#ee6677", "#228833", "#ccbb44",
		"#66ccee", "#aa3377", "#bbbbbb", "#222255",
	}
	if index < 0 {
		index = -index
	}
	return palette[index%len(palette)]
}

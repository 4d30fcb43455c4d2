// Package projection reduces the numeric columns of a results table to two
// dimensions for visualization.  Two methods are offered: exact PCA over the
// standardized feature matrix, and a lightweight seeded neighbor embedding in
// the spirit of UMAP.  Both are deterministic for a fixed input and seed.
package projection

import (
	"math"

	"github.com/molprop/platform/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Methods
// ─────────────────────────────────────────────────────────────────────────────

// Method selects the dimensionality-reduction algorithm.
type Method string

const (
	MethodPCA  Method = "pca"
	MethodUMAP Method = "umap"
)

// DefaultMethod is used when a request leaves the method empty.
const DefaultMethod = MethodPCA

// DefaultSeed feeds the neighbor embedding's generator when none is given.
const DefaultSeed int64 = 42

// IsValid reports whether the method is implemented.
func (m Method) IsValid() bool {
	return m == MethodPCA || m == MethodUMAP
}

// ParseMethod validates a user-supplied method string.
func ParseMethod(s string) (Method, error) {
	if s == "" {
		return DefaultMethod, nil
	}
	m := Method(s)
	if !m.IsValid() {
		return "", errors.Newf(errors.ErrCodeProjectionMethodUnknown,
			"unknown projection method %q (want pca or umap)", s)
	}
	return m, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Embedding
// ─────────────────────────────────────────────────────────────────────────────

// MinRows is the smallest table a projection accepts; below this there is no
// geometry to show.
const MinRows = 3

// Embedding is a 2-D layout of the input rows.
type Embedding struct {
	X []float64
	Y []float64

	// ExplainedVariance holds the fraction of total variance captured by
	// each output axis.  Populated by PCA only.
	ExplainedVariance []float64
}

// Project reduces a row-major feature matrix to two dimensions.  The matrix
// must already contain only finite or NaN values; NaN cells are imputed with
// the column mean during standardization.
func Project(method Method, data [][]float64, seed int64) (*Embedding, error) {
	if !method.IsValid() {
		return nil, errors.Newf(errors.ErrCodeProjectionMethodUnknown,
			"unknown projection method %q", string(method))
	}
	if len(data) < MinRows {
		return nil, errors.Newf(errors.ErrCodeProjectionTooFewRows,
			"projection needs at least %d rows, got %d", MinRows, len(data))
	}
	if len(data[0]) == 0 {
		return nil, errors.New(errors.ErrCodeProjectionNoNumeric, "feature matrix has no columns")
	}

	std := Standardize(data)
	switch method {
	case MethodPCA:
		return pcaEmbed(std)
	case MethodUMAP:
		return umapEmbed(std, seed)
	}
	return nil, errors.New(errors.ErrCodeProjectionFailed, "unreachable method dispatch")
}

// ─────────────────────────────────────────────────────────────────────────────
// Standardization
// ─────────────────────────────────────────────────────────────────────────────

// Standardize returns a copy of the matrix with each column centered to mean
// zero and scaled to unit variance.  NaN cells are imputed with the column
// mean (zero after centering).  Constant columns are centered but not scaled.
func Standardize(data [][]float64) [][]float64 {
	rows := len(data)
	if rows == 0 {
		return nil
	}
	dims := len(data[0])

	mean := make([]float64, dims)
	count := make([]int, dims)
	for _, row := range data {
		for j, v := range row {
			if !math.IsNaN(v) {
				mean[j] += v
				count[j]++
			}
		}
	}
	for j := range mean {
		if count[j] > 0 {
			mean[j] /= float64(count[j])
		}
	}

	variance := make([]float64, dims)
	for _, row := range data {
		for j, v := range row {
			if !math.IsNaN(v) {
				d := v - mean[j]
				variance[j] += d * d
			}
		}
	}
	scale := make([]float64, dims)
	for j := range variance {
		if count[j] > 1 {
			variance[j] /= float64(count[j] - 1)
		}
		if variance[j] > 0 {
			scale[j] = 1 / math.Sqrt(variance[j])
		} else {
			scale[j] = 1
		}
	}

	out := make([][]float64, rows)
	for i, row := range data {
		out[i] = make([]float64, dims)
		for j, v := range row {
			if math.IsNaN(v) {
				out[i][j] = 0
			} else {
				out[i][j] = (v - mean[j]) * scale[j]
			}
		}
	}
	return out
}

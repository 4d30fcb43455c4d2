package projection

import (
	"math"
	"sort"

	"github.com/molprop/platform/pkg/errors"
)

// ─────────────────────────────────────────────────────────────────────────────
// Principal Component Analysis
// ─────────────────────────────────────────────────────────────────────────────

// jacobiSweeps bounds the eigen decomposition; covariance matrices of
// property tables are small (tens of columns) and converge in a handful of
// sweeps.
const jacobiSweeps = 100

const jacobiEps = 1e-12

// pcaEmbed projects standardized data onto its two leading principal
// components.  With a single input column the second axis is zero.
func pcaEmbed(std [][]float64) (*Embedding, error) {
	rows := len(std)
	dims := len(std[0])

	cov := covariance(std)
	values, vectors, err := jacobiEigen(cov)
	if err != nil {
		return nil, err
	}

	// order components by descending eigenvalue
	order := make([]int, dims)
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return values[order[a]] > values[order[b]] })

	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}

	emb := &Embedding{
		X:                 make([]float64, rows),
		Y:                 make([]float64, rows),
		ExplainedVariance: []float64{0, 0},
	}
	for axis := 0; axis < 2 && axis < dims; axis++ {
		comp := order[axis]
		if total > 0 && values[comp] > 0 {
			emb.ExplainedVariance[axis] = values[comp] / total
		}
		for i := 0; i < rows; i++ {
			score := 0.0
			for j := 0; j < dims; j++ {
				score += std[i][j] * vectors[j][comp]
			}
			if axis == 0 {
				emb.X[i] = score
			} else {
				emb.Y[i] = score
			}
		}
	}
	return emb, nil
}

// covariance computes the sample covariance matrix of row-major data that is
// already centered.
func covariance(data [][]float64) [][]float64 {
	rows := len(data)
	dims := len(data[0])
	cov := make([][]float64, dims)
	for i := range cov {
		cov[i] = make([]float64, dims)
	}
	denom := float64(rows - 1)
	if denom < 1 {
		denom = 1
	}
	for j := 0; j < dims; j++ {
		for k := j; k < dims; k++ {
			sum := 0.0
			for i := 0; i < rows; i++ {
				sum += data[i][j] * data[i][k]
			}
			cov[j][k] = sum / denom
			cov[k][j] = cov[j][k]
		}
	}
	return cov
}

// jacobiEigen diagonalizes a symmetric matrix with cyclic Jacobi rotations.
// It returns the eigenvalues and the matrix of column eigenvectors.
func jacobiEigen(m [][]float64) ([]float64, [][]float64, error) {
	n := len(m)
	a := make([][]float64, n)
	v := make([][]float64, n)
	for i := 0; i < n; i++ {
		a[i] = append([]float64(nil), m[i]...)
		v[i] = make([]float64, n)
		v[i][i] = 1
	}

	for sweep := 0; sweep < jacobiSweeps; sweep++ {
		off := 0.0
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				off += a[i][j] * a[i][j]
			}
		}
		if off < jacobiEps {
			break
		}
		for p := 0; p < n-1; p++ {
			for q := p + 1; q < n; q++ {
				if math.Abs(a[p][q]) < jacobiEps {
					continue
				}
				theta := (a[q][q] - a[p][p]) / (2 * a[p][q])
				t := math.Copysign(1, theta) / (math.Abs(theta) + math.Sqrt(theta*theta+1))
				c := 1 / math.Sqrt(t*t+1)
				s := t * c

				for k := 0; k < n; k++ {
					akp := a[k][p]
					akq := a[k][q]
					a[k][p] = c*akp - s*akq
					a[k][q] = s*akp + c*akq
				}
				for k := 0; k < n; k++ {
					apk := a[p][k]
					aqk := a[q][k]
					a[p][k] = c*apk - s*aqk
					a[q][k] = s*apk + c*aqk
				}
				for k := 0; k < n; k++ {
					vkp := v[k][p]
					vkq := v[k][q]
					v[k][p] = c*vkp - s*vkq
					v[k][q] = s*vkp + c*vkq
				}
			}
		}
	}

	values := make([]float64, n)
	for i := 0; i < n; i++ {
		values[i] = a[i][i]
		if math.IsNaN(values[i]) || math.IsInf(values[i], 0) {
			return nil, nil, errors.New(errors.ErrCodeProjectionFailed,
				"eigen decomposition diverged")
		}
	}
	return values, v, nil
}

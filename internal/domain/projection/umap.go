package projection

import (
	"math"
	"math/rand"
	"sort"
)

// ─────────────────────────────────────────────────────────────────────────────
// Neighbor Embedding
// ─────────────────────────────────────────────────────────────────────────────

// Tuning for the simplified neighbor embedding.  The layout is initialized
// from PCA and refined by attracting each point toward its near neighbors
// and pushing it away from sampled non-neighbors, with a decaying step size.
const (
	umapNeighbors       = 15
	umapEpochs          = 200
	umapInitialStep     = 0.1
	umapNegativeSamples = 5
	umapMinDistSq       = 1e-9
	umapMinScale        = 1e-6
)

// umapEmbed computes a seeded 2-D neighbor embedding of standardized data.
// It is not the reference UMAP algorithm: it keeps the parts that matter for
// a property-space overview (local neighborhoods stay together, clusters
// separate) and drops the fuzzy-simplicial machinery.
func umapEmbed(std [][]float64, seed int64) (*Embedding, error) {
	rows := len(std)

	k := umapNeighbors
	if k >= rows {
		k = rows - 1
	}
	// Attraction weights fall off on each row's own nearest-neighbor scale,
	// so a far "neighbor" from another cluster exerts no pull even when k
	// spans the whole dataset.
	neighbors, weights := weightedNeighbors(std, k)

	// PCA gives a deterministic global shape; the refinement below only
	// adjusts local structure.
	init, err := pcaEmbed(std)
	if err != nil {
		return nil, err
	}
	x := append([]float64(nil), init.X...)
	y := append([]float64(nil), init.Y...)

	rng := rand.New(rand.NewSource(seed))
	for epoch := 0; epoch < umapEpochs; epoch++ {
		step := umapInitialStep * (1 - float64(epoch)/float64(umapEpochs))
		for i := 0; i < rows; i++ {
			wsum := 0.0
			for _, w := range weights[i] {
				wsum += w
			}
			if wsum > 0 {
				// normalized pull moves i at most step toward the weighted
				// centroid of its neighborhood
				pull := step / wsum
				for s, j := range neighbors[i] {
					w := weights[i][s]
					x[i] += pull * w * (x[j] - x[i])
					y[i] += pull * w * (y[j] - y[i])
				}
			}
			for s := 0; s < umapNegativeSamples; s++ {
				j := rng.Intn(rows)
				if j == i {
					continue
				}
				dx := x[i] - x[j]
				dy := y[i] - y[j]
				distSq := dx*dx + dy*dy
				if distSq < umapMinDistSq {
					distSq = umapMinDistSq
				}
				// bounded by step; decays with distance so far pairs are
				// left alone
				push := step / (1 + distSq)
				x[i] += push * dx
				y[i] += push * dy
			}
		}
	}

	return &Embedding{X: x, Y: y}, nil
}

// weightedNeighbors returns, for each row, the indices of its k nearest rows
// by Euclidean distance plus Gaussian attraction weights on the row's local
// scale (its nearest-neighbor distance).
func weightedNeighbors(data [][]float64, k int) ([][]int, [][]float64) {
	rows := len(data)
	idx := make([][]int, rows)
	weights := make([][]float64, rows)
	type cand struct {
		idx  int
		dist float64
	}
	for i := 0; i < rows; i++ {
		cands := make([]cand, 0, rows-1)
		for j := 0; j < rows; j++ {
			if i == j {
				continue
			}
			cands = append(cands, cand{idx: j, dist: euclideanSq(data[i], data[j])})
		}
		sort.Slice(cands, func(a, b int) bool {
			if cands[a].dist != cands[b].dist {
				return cands[a].dist < cands[b].dist
			}
			return cands[a].idx < cands[b].idx
		})
		n := k
		if n > len(cands) {
			n = len(cands)
		}
		scaleSq := umapMinScale
		if n > 0 && cands[0].dist > scaleSq {
			scaleSq = cands[0].dist
		}
		idx[i] = make([]int, n)
		weights[i] = make([]float64, n)
		for s := 0; s < n; s++ {
			idx[i][s] = cands[s].idx
			weights[i][s] = math.Exp(-cands[s].dist / (2 * scaleSq))
		}
	}
	return idx, weights
}

func euclideanSq(a, b []float64) float64 {
	sum := 0.0
	for j := range a {
		d := a[j] - b[j]
		if math.IsNaN(d) {
			continue
		}
		sum += d * d
	}
	return sum
}

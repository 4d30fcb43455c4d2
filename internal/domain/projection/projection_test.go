package projection

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/molprop/platform/pkg/errors"
)

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("")
	require.NoError(t, err)
	assert.Equal(t, MethodPCA, m)

	m, err = ParseMethod("umap")
	require.NoError(t, err)
	assert.Equal(t, MethodUMAP, m)

	_, err = ParseMethod("tsne")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeProjectionMethodUnknown))
}

func TestProjectTooFewRows(t *testing.T) {
	_, err := Project(MethodPCA, [][]float64{{1, 2}, {3, 4}}, DefaultSeed)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeProjectionTooFewRows))
}

func TestStandardize(t *testing.T) {
	data := [][]float64{{1, 10}, {2, 20}, {3, 30}}
	std := Standardize(data)

	for j := 0; j < 2; j++ {
		sum := 0.0
		for i := range std {
			sum += std[i][j]
		}
		assert.InDelta(t, 0, sum, 1e-9, "column %d should be centered", j)
	}
	// unit sample variance
	varSum := 0.0
	for i := range std {
		varSum += std[i][0] * std[i][0]
	}
	assert.InDelta(t, 1, varSum/2, 1e-9)
}

func TestStandardizeImputesNaN(t *testing.T) {
	data := [][]float64{{1}, {math.NaN()}, {3}}
	std := Standardize(data)
	// the NaN cell becomes the column mean, which is zero after centering
	assert.Equal(t, 0.0, std[1][0])
	assert.False(t, math.IsNaN(std[0][0]))
}

func TestStandardizeConstantColumn(t *testing.T) {
	data := [][]float64{{5, 1}, {5, 2}, {5, 3}}
	std := Standardize(data)
	for i := range std {
		assert.Equal(t, 0.0, std[i][0])
	}
}

func TestPCARecoversDominantAxis(t *testing.T) {
	// points along y=x with slight noise on the orthogonal axis; the first
	// component must capture nearly all variance
	data := [][]float64{
		{1, 1.05}, {2, 1.9}, {3, 3.1}, {4, 3.95}, {5, 5.02}, {6, 6.0},
	}
	emb, err := Project(MethodPCA, data, DefaultSeed)
	require.NoError(t, err)

	require.Len(t, emb.ExplainedVariance, 2)
	assert.Greater(t, emb.ExplainedVariance[0], 0.95)
	assert.Less(t, emb.ExplainedVariance[1], 0.05)
	assert.Len(t, emb.X, len(data))
	assert.Len(t, emb.Y, len(data))

	// endpoints of the line must land at opposite extremes of the axis
	assert.Less(t, emb.X[0]*emb.X[5], 0.0)
}

func TestPCASingleColumn(t *testing.T) {
	data := [][]float64{{1}, {2}, {3}, {4}}
	emb, err := Project(MethodPCA, data, DefaultSeed)
	require.NoError(t, err)
	for _, y := range emb.Y {
		assert.Equal(t, 0.0, y)
	}
}

func TestPCADeterministic(t *testing.T) {
	data := [][]float64{{1, 4, 2}, {2, 1, 9}, {5, 3, 1}, {7, 2, 4}}
	a, err := Project(MethodPCA, data, DefaultSeed)
	require.NoError(t, err)
	b, err := Project(MethodPCA, data, DefaultSeed)
	require.NoError(t, err)
	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.Y, b.Y)
}

func TestUMAPSeededAndDeterministic(t *testing.T) {
	data := [][]float64{
		{0, 0}, {0.1, 0}, {0, 0.1},
		{10, 10}, {10.1, 10}, {10, 10.1},
	}
	a, err := Project(MethodUMAP, data, 42)
	require.NoError(t, err)
	b, err := Project(MethodUMAP, data, 42)
	require.NoError(t, err)
	assert.Equal(t, a.X, b.X)
	assert.Equal(t, a.Y, b.Y)
	assert.Nil(t, a.ExplainedVariance)
}

func TestUMAPKeepsClustersApart(t *testing.T) {
	data := [][]float64{
		{0, 0}, {0.1, 0.1}, {0.2, 0},
		{10, 10}, {10.1, 10.1}, {10.2, 10},
	}
	emb, err := Project(MethodUMAP, data, 42)
	require.NoError(t, err)

	intra := dist2(emb, 0, 1)
	inter := dist2(emb, 0, 3)
	assert.Greater(t, inter, intra)
}

func dist2(e *Embedding, i, j int) float64 {
	dx := e.X[i] - e.X[j]
	dy := e.Y[i] - e.Y[j]
	return dx*dx + dy*dy
}

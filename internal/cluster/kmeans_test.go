package cluster_test

import (
	"testing"

	"github.com/tigerroll/gridpulse/internal/cluster"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardScale(t *testing.T) {
	scaled := cluster.StandardScale([][]float64{
		{1, 100},
		{2, 100},
		{3, 100},
	})
	require.Len(t, scaled, 3)

	// First column: mean 2, population std sqrt(2/3).
	assert.InDelta(t, 0.0, scaled[1][0], 1e-12)
	assert.InDelta(t, -scaled[2][0], scaled[0][0], 1e-12)

	// Zero-variance column maps to zeros instead of dividing by zero.
	for i := range scaled {
		assert.Zero(t, scaled[i][1])
	}
}

func TestStandardScaleEmpty(t *testing.T) {
	assert.Nil(t, cluster.StandardScale(nil))
}

func TestKMeansRejectsTooFewRows(t *testing.T) {
	km := cluster.NewKMeans(3, 100)
	_, err := km.FitPredict([][]float64{{1}, {2}})
	assert.Error(t, err)
}

func TestKMeansSeparatesObviousGroups(t *testing.T) {
	matrix := [][]float64{
		{0, 0}, {0.1, 0.1}, {0.2, 0},
		{10, 10}, {10.1, 10.2}, {9.9, 10},
		{-10, 10}, {-10.1, 9.8}, {-9.9, 10.1},
	}
	km := cluster.NewKMeans(3, 100)
	labels, err := km.FitPredict(matrix)
	require.NoError(t, err)
	require.Len(t, labels, len(matrix))

	// Rows within a group share a label; groups get distinct labels.
	assert.Equal(t, labels[0], labels[1])
	assert.Equal(t, labels[0], labels[2])
	assert.Equal(t, labels[3], labels[4])
	assert.Equal(t, labels[3], labels[5])
	assert.Equal(t, labels[6], labels[7])
	assert.Equal(t, labels[6], labels[8])
	assert.NotEqual(t, labels[0], labels[3])
	assert.NotEqual(t, labels[0], labels[6])
	assert.NotEqual(t, labels[3], labels[6])
}

func TestKMeansDeterministic(t *testing.T) {
	matrix := [][]float64{
		{1, 2}, {1.5, 1.8}, {5, 8}, {8, 8}, {1, 0.6}, {9, 11}, {0.5, 1}, {7.5, 9},
	}
	km := cluster.NewKMeans(3, 100)

	first, err := km.FitPredict(matrix)
	require.NoError(t, err)
	second, err := km.FitPredict(matrix)
	require.NoError(t, err)
	assert.Equal(t, first, second, "seeded runs must label identically")
}

func TestKMeansIdenticalRows(t *testing.T) {
	// All rows coincide; seeding degenerates but must still terminate.
	matrix := [][]float64{{1, 1}, {1, 1}, {1, 1}, {1, 1}}
	km := cluster.NewKMeans(3, 100)
	labels, err := km.FitPredict(matrix)
	require.NoError(t, err)
	assert.Len(t, labels, 4)
}

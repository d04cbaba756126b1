package analysis_test

import (
	"testing"
	"time"

	"github.com/tigerroll/gridpulse/internal/analysis"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPearsonPerfectCorrelation(t *testing.T) {
	x := []float64{1, 2, 3, 4}

	r, ok := analysis.Pearson(x, []float64{2, 4, 6, 8})
	require.True(t, ok)
	assert.InDelta(t, 1.0, r, 1e-12)

	r, ok = analysis.Pearson(x, []float64{8, 6, 4, 2})
	require.True(t, ok)
	assert.InDelta(t, -1.0, r, 1e-12)
}

func TestPearsonUndefined(t *testing.T) {
	// Constant series has zero variance.
	_, ok := analysis.Pearson([]float64{1, 2, 3}, []float64{5, 5, 5})
	assert.False(t, ok)

	// Fewer than two samples.
	_, ok = analysis.Pearson([]float64{1}, []float64{2})
	assert.False(t, ok)

	// Length mismatch.
	_, ok = analysis.Pearson([]float64{1, 2}, []float64{1, 2, 3})
	assert.False(t, ok)
}

func TestCorrelationTableLongFormat(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	cols := []analysis.CorrelationColumn{
		{Name: "solar_mw", Values: []float64{1, 2, 3}},
		{Name: "wind_mw", Values: []float64{3, 2, 1}},
	}

	rows := analysis.CorrelationTable(cols, now)
	require.Len(t, rows, 4)

	byPair := map[[2]string]float64{}
	for _, r := range rows {
		byPair[[2]string{r.FeatureX, r.FeatureY}] = r.CorrelationValue
		assert.Equal(t, now, r.UpdatedAt)
	}
	assert.InDelta(t, 1.0, byPair[[2]string{"solar_mw", "solar_mw"}], 1e-12)
	assert.InDelta(t, 1.0, byPair[[2]string{"wind_mw", "wind_mw"}], 1e-12)
	assert.InDelta(t, -1.0, byPair[[2]string{"solar_mw", "wind_mw"}], 1e-12)
	assert.InDelta(t, -1.0, byPair[[2]string{"wind_mw", "solar_mw"}], 1e-12)
}

func TestCorrelationTableOmitsUndefinedPairs(t *testing.T) {
	cols := []analysis.CorrelationColumn{
		{Name: "solar_mw", Values: []float64{1, 2, 3}},
		{Name: "gas_mw", Values: []float64{4, 4, 4}},
	}

	rows := analysis.CorrelationTable(cols, time.Now())
	// Only the two self-pairs survive; the constant column pairs are
	// undefined and dropped.
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.Equal(t, r.FeatureX, r.FeatureY)
		assert.InDelta(t, 1.0, r.CorrelationValue, 1e-12)
	}
}

func TestMinMaxScale(t *testing.T) {
	out := analysis.MinMaxScale([]float64{10, 20, 40})
	require.Len(t, out, 3)
	assert.InDelta(t, 0.0, out[0], 1e-12)
	assert.InDelta(t, 1.0/3.0, out[1], 1e-12)
	assert.InDelta(t, 1.0, out[2], 1e-12)
}

func TestMinMaxScaleConstantSeries(t *testing.T) {
	out := analysis.MinMaxScale([]float64{7, 7, 7})
	assert.Equal(t, []float64{0, 0, 0}, out)
}

func TestMinMaxScaleEmpty(t *testing.T) {
	assert.Nil(t, analysis.MinMaxScale(nil))
}

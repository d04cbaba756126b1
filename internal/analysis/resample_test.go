package analysis_test

import (
	"testing"
	"time"

	"github.com/tigerroll/gridpulse/internal/analysis"
	"github.com/tigerroll/gridpulse/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestResampleEmpty(t *testing.T) {
	assert.Nil(t, analysis.Resample(nil))
}

func TestResampleAveragesWithinHour(t *testing.T) {
	ms := []entity.Measurement{
		{Timestamp: ts("2025-06-01T10:05:00Z"), SolarMW: 100, WindMW: 10, GasMW: 1},
		{Timestamp: ts("2025-06-01T10:35:00Z"), SolarMW: 300, WindMW: 30, GasMW: 3},
	}
	grid := analysis.Resample(ms)
	require.Len(t, grid, 1)
	assert.Equal(t, ts("2025-06-01T10:00:00Z"), grid[0].Timestamp)
	assert.InDelta(t, 200.0, grid[0].SolarMW, 1e-9)
	assert.InDelta(t, 20.0, grid[0].WindMW, 1e-9)
	assert.InDelta(t, 2.0, grid[0].GasMW, 1e-9)
}

func TestResampleInterpolatesInteriorGap(t *testing.T) {
	// Hours 10 and 13 observed, 11 and 12 missing. The two-hour gap must
	// be filled linearly between 100 and 400.
	ms := []entity.Measurement{
		{Timestamp: ts("2025-06-01T10:00:00Z"), SolarMW: 100},
		{Timestamp: ts("2025-06-01T13:00:00Z"), SolarMW: 400},
	}
	grid := analysis.Resample(ms)
	require.Len(t, grid, 4)
	assert.InDelta(t, 100.0, grid[0].SolarMW, 1e-9)
	assert.InDelta(t, 200.0, grid[1].SolarMW, 1e-9)
	assert.InDelta(t, 300.0, grid[2].SolarMW, 1e-9)
	assert.InDelta(t, 400.0, grid[3].SolarMW, 1e-9)
}

func TestResampleGridCoversEveryHour(t *testing.T) {
	ms := []entity.Measurement{
		{Timestamp: ts("2025-06-01T00:10:00Z"), SolarMW: 1},
		{Timestamp: ts("2025-06-01T05:50:00Z"), SolarMW: 7},
	}
	grid := analysis.Resample(ms)
	require.Len(t, grid, 6)
	for i, p := range grid {
		assert.Equal(t, ts("2025-06-01T00:00:00Z").Add(time.Duration(i)*time.Hour), p.Timestamp)
	}
}

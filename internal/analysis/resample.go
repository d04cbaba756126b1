// Package analysis implements the feature pipeline: resampling raw
// measurements onto a uniform hourly grid, seasonal decomposition of the
// solar signal, cross-feature correlation, and per-run normalization.
package analysis

import (
	"math"
	"time"

	"github.com/tigerroll/gridpulse/internal/domain/entity"
)

// HourlyPoint is one row of the resampled hourly grid.
type HourlyPoint struct {
	Timestamp time.Time
	SolarMW   float64
	WindMW    float64
	GasMW     float64
}

// Resample buckets measurements onto a strict hourly grid by averaging all
// samples that fall into each hour, then linearly interpolates interior
// gaps. Edge gaps with no neighboring observation on one side fill to 0.
// Input must be timestamp-ascending; output covers every hour between the
// first and last observed bucket inclusive.
func Resample(ms []entity.Measurement) []HourlyPoint {
	if len(ms) == 0 {
		return nil
	}

	type bucket struct {
		solar, wind, gas float64
		count            int
	}
	buckets := make(map[time.Time]*bucket)
	for i := range ms {
		hour := ms[i].Timestamp.UTC().Truncate(time.Hour)
		b, ok := buckets[hour]
		if !ok {
			b = &bucket{}
			buckets[hour] = b
		}
		b.solar += ms[i].SolarMW
		b.wind += ms[i].WindMW
		b.gas += ms[i].GasMW
		b.count++
	}

	first := ms[0].Timestamp.UTC().Truncate(time.Hour)
	last := ms[len(ms)-1].Timestamp.UTC().Truncate(time.Hour)
	n := int(last.Sub(first)/time.Hour) + 1

	grid := make([]HourlyPoint, n)
	solar := make([]float64, n)
	wind := make([]float64, n)
	gas := make([]float64, n)
	for i := 0; i < n; i++ {
		ts := first.Add(time.Duration(i) * time.Hour)
		grid[i] = HourlyPoint{Timestamp: ts}
		if b, ok := buckets[ts]; ok {
			solar[i] = b.solar / float64(b.count)
			wind[i] = b.wind / float64(b.count)
			gas[i] = b.gas / float64(b.count)
		} else {
			solar[i] = math.NaN()
			wind[i] = math.NaN()
			gas[i] = math.NaN()
		}
	}

	interpolateLinear(solar)
	interpolateLinear(wind)
	interpolateLinear(gas)

	for i := 0; i < n; i++ {
		grid[i].SolarMW = solar[i]
		grid[i].WindMW = wind[i]
		grid[i].GasMW = gas[i]
	}
	return grid
}

// interpolateLinear fills NaN runs in place. Interior runs are linearly
// interpolated between the bounding known values; leading and trailing runs
// have no bound on one side and fill to 0.
func interpolateLinear(v []float64) {
	n := len(v)
	i := 0
	for i < n {
		if !math.IsNaN(v[i]) {
			i++
			continue
		}

		runStart := i
		for i < n && math.IsNaN(v[i]) {
			i++
		}
		runEnd := i // first index past the run

		if runStart == 0 || runEnd == n {
			for j := runStart; j < runEnd; j++ {
				v[j] = 0
			}
			continue
		}

		lo := v[runStart-1]
		hi := v[runEnd]
		span := float64(runEnd - runStart + 1)
		for j := runStart; j < runEnd; j++ {
			frac := float64(j-runStart+1) / span
			v[j] = lo + (hi-lo)*frac
		}
	}
}

package analysis

import (
	"fmt"
	"math"
)

// Decomposition holds the additive decomposition of a series. All three
// slices have the length of the input; positions where the centered moving
// average is undefined (the half-window at each edge) carry 0 in Trend and
// Residual.
type Decomposition struct {
	Trend    []float64
	Seasonal []float64
	Residual []float64
}

// Decompose performs additive seasonal decomposition with the given period:
// trend via a centered moving average, seasonal via phase-wise means of the
// detrended series re-centered to zero, residual as the remainder. Requires
// at least two full periods of data.
func Decompose(values []float64, period int) (*Decomposition, error) {
	n := len(values)
	if period < 2 {
		return nil, fmt.Errorf("decomposition period must be at least 2, got %d", period)
	}
	if n < 2*period {
		return nil, fmt.Errorf("decomposition needs at least %d observations, got %d", 2*period, n)
	}

	trend := movingAverageTrend(values, period)

	// Phase-wise means of the detrended series, only where the trend is
	// defined.
	sums := make([]float64, period)
	counts := make([]int, period)
	for i := 0; i < n; i++ {
		if math.IsNaN(trend[i]) {
			continue
		}
		phase := i % period
		sums[phase] += values[i] - trend[i]
		counts[phase]++
	}

	phaseMeans := make([]float64, period)
	var total float64
	for p := 0; p < period; p++ {
		if counts[p] > 0 {
			phaseMeans[p] = sums[p] / float64(counts[p])
		}
		total += phaseMeans[p]
	}
	// Re-center so the seasonal component sums to zero over one period.
	center := total / float64(period)
	for p := 0; p < period; p++ {
		phaseMeans[p] -= center
	}

	d := &Decomposition{
		Trend:    make([]float64, n),
		Seasonal: make([]float64, n),
		Residual: make([]float64, n),
	}
	for i := 0; i < n; i++ {
		d.Seasonal[i] = phaseMeans[i%period]
		if math.IsNaN(trend[i]) {
			d.Trend[i] = 0
			d.Residual[i] = 0
		} else {
			d.Trend[i] = trend[i]
			d.Residual[i] = values[i] - trend[i] - d.Seasonal[i]
		}
	}
	return d, nil
}

// movingAverageTrend computes the centered moving average of window size
// period. For an even period the average of two adjacent period-length
// windows is used, which weights the two boundary samples by half. Edge
// positions without a full window are NaN.
func movingAverageTrend(values []float64, period int) []float64 {
	n := len(values)
	trend := make([]float64, n)
	for i := range trend {
		trend[i] = math.NaN()
	}

	half := period / 2
	if period%2 == 1 {
		for i := half; i < n-half; i++ {
			var sum float64
			for j := i - half; j <= i+half; j++ {
				sum += values[j]
			}
			trend[i] = sum / float64(period)
		}
		return trend
	}

	for i := half; i < n-half; i++ {
		sum := 0.5*values[i-half] + 0.5*values[i+half]
		for j := i - half + 1; j <= i+half-1; j++ {
			sum += values[j]
		}
		trend[i] = sum / float64(period)
	}
	return trend
}

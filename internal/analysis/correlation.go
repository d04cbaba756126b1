package analysis

import (
	"math"
	"time"

	"github.com/tigerroll/gridpulse/internal/domain/entity"
)

// Pearson computes the Pearson correlation coefficient of two equal-length
// series. It returns (0, false) when either series has zero variance or
// fewer than two samples, in which case the coefficient is undefined.
func Pearson(x, y []float64) (float64, bool) {
	n := len(x)
	if n < 2 || n != len(y) {
		return 0, false
	}

	var sumX, sumY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
	}
	meanX := sumX / float64(n)
	meanY := sumY / float64(n)

	var cov, varX, varY float64
	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		cov += dx * dy
		varX += dx * dx
		varY += dy * dy
	}
	if varX == 0 || varY == 0 {
		return 0, false
	}

	r := cov / math.Sqrt(varX*varY)
	// Clamp rounding spill just past the valid range.
	if r > 1 {
		r = 1
	} else if r < -1 {
		r = -1
	}
	return r, true
}

// CorrelationColumn pairs a feature name with its series.
type CorrelationColumn struct {
	Name   string
	Values []float64
}

// CorrelationTable computes the pairwise Pearson correlation of the given
// columns in long format: one row per ordered pair, self-pairs included
// with value 1.0. Pairs whose coefficient is undefined are omitted.
func CorrelationTable(columns []CorrelationColumn, now time.Time) []entity.Correlation {
	var rows []entity.Correlation
	for _, cx := range columns {
		for _, cy := range columns {
			var value float64
			if cx.Name == cy.Name {
				value = 1.0
			} else {
				r, ok := Pearson(cx.Values, cy.Values)
				if !ok {
					continue
				}
				value = r
			}
			rows = append(rows, entity.Correlation{
				FeatureX:         cx.Name,
				FeatureY:         cy.Name,
				CorrelationValue: value,
				UpdatedAt:        now,
			})
		}
	}
	return rows
}

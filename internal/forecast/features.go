package forecast

import (
	"fmt"
	"time"

	"github.com/tigerroll/gridpulse/internal/domain/entity"
	"github.com/tigerroll/gridpulse/internal/domain/schema"
	"github.com/tigerroll/gridpulse/internal/support/exception"
)

// BuildFeatureVector derives the model input vector for the newest row of a
// timestamp-ascending analysis window. It needs at least 25 rows so the
// newest row has a complete lag-24 history. The returned anchor is the
// newest row's timestamp; forecast horizons count forward from it.
//
// The vector layout follows the positions in package schema. That ordering
// is the contract the model was fitted against; it is never rederived here.
func BuildFeatureVector(window []entity.AnalysisResult) ([]float64, time.Time, error) {
	if len(window) < schema.ForecastHorizons+1 {
		return nil, time.Time{}, fmt.Errorf("window has %d rows, need %d: %w",
			len(window), schema.ForecastHorizons+1, exception.ErrInsufficientData)
	}

	last := len(window) - 1
	latest := window[last]
	anchor := latest.Timestamp.UTC()

	vector := make([]float64, schema.FeatureCount)
	vector[schema.FeatureSolarNormalized] = latest.SolarNormalized
	vector[schema.FeatureSolarTrend] = latest.SolarTrend
	vector[schema.FeatureSolarSeasonal] = latest.SolarSeasonal
	vector[schema.FeatureHourOfDay] = float64(anchor.Hour())
	// Monday=0 through Sunday=6, the convention the model was trained with.
	vector[schema.FeatureDayOfWeek] = float64((int(anchor.Weekday()) + 6) % 7)
	vector[schema.FeatureSolarLag1] = window[last-1].SolarMW
	vector[schema.FeatureSolarLag24] = window[last-24].SolarMW

	return vector, anchor, nil
}

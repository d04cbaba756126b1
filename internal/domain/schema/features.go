// Package schema pins the feature-vector contract shared by the feature
// construction code and the forecasting model.
//
// The model was fitted against exactly this ordering. Reordering entries
// silently produces wrong predictions with no error signal, so both sides
// import these constants instead of hardcoding parallel literals, and the
// ordering is locked by a golden-vector regression test.
package schema

// Feature vector positions. The order is a versioned contract; never
// reorder without refitting the model and bumping FeatureSchemaVersion.
const (
	FeatureSolarNormalized = iota
	FeatureSolarTrend
	FeatureSolarSeasonal
	FeatureHourOfDay
	FeatureDayOfWeek
	FeatureSolarLag1
	FeatureSolarLag24

	// FeatureCount is the fixed length of the model input vector.
	FeatureCount = 7
)

// FeatureSchemaVersion identifies the feature ordering the current model
// artifact was fitted against.
const FeatureSchemaVersion = 1

// FeatureNames maps vector positions to their column names, in contract
// order.
var FeatureNames = [FeatureCount]string{
	"solar_normalized",
	"solar_trend",
	"solar_seasonal",
	"hour",
	"day_of_week",
	"solar_mw_lag1",
	"solar_mw_lag24",
}

// ForecastHorizons is the number of future hourly steps each forecast run
// produces.
const ForecastHorizons = 24

package entity

import "time"

// AnalysisResult is one resampled hourly row of the derived feature table.
// The table is replaced wholesale (truncate + bulk insert) on every feature
// pipeline run; rows are never individually updated.
//
// SolarNormalized and WindNormalized are min-max scaled against the current
// run's window only, so they are not comparable across runs.
type AnalysisResult struct {
	Timestamp       time.Time `gorm:"column:datetime;primaryKey"`
	SolarMW         float64   `gorm:"column:solar_mw"`
	WindMW          float64   `gorm:"column:wind_mw"`
	GasMW           float64   `gorm:"column:gas_mw"`
	SolarTrend      float64   `gorm:"column:solar_trend"`
	SolarSeasonal   float64   `gorm:"column:solar_seasonal"`
	SolarResidual   float64   `gorm:"column:solar_residual"`
	SolarNormalized float64   `gorm:"column:solar_normalized"`
	WindNormalized  float64   `gorm:"column:wind_normalized"`
}

// TableName specifies the table name for AnalysisResult.
func (AnalysisResult) TableName() string {
	return "electricity_analysis_results"
}

// Correlation is one ordered feature pair of the Pearson correlation matrix
// in long format. Self-pairs carry value 1.0. Fully replaced each run.
type Correlation struct {
	ID               uint      `gorm:"column:id;primaryKey;autoIncrement"`
	FeatureX         string    `gorm:"column:feature_x"`
	FeatureY         string    `gorm:"column:feature_y"`
	CorrelationValue float64   `gorm:"column:correlation_value"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for Correlation.
func (Correlation) TableName() string {
	return "electricity_correlations"
}

// AnalysisSnapshot is the Parquet export shape of one analysis row.
// Timestamps are epoch milliseconds as parquet-go expects for
// TIMESTAMP_MILLIS columns.
type AnalysisSnapshot struct {
	Timestamp       int64   `gorm:"column:datetime" parquet:"name=datetime,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	SolarMW         float64 `gorm:"column:solar_mw" parquet:"name=solar_mw,type=DOUBLE"`
	WindMW          float64 `gorm:"column:wind_mw" parquet:"name=wind_mw,type=DOUBLE"`
	GasMW           float64 `gorm:"column:gas_mw" parquet:"name=gas_mw,type=DOUBLE"`
	SolarTrend      float64 `gorm:"column:solar_trend" parquet:"name=solar_trend,type=DOUBLE"`
	SolarSeasonal   float64 `gorm:"column:solar_seasonal" parquet:"name=solar_seasonal,type=DOUBLE"`
	SolarResidual   float64 `gorm:"column:solar_residual" parquet:"name=solar_residual,type=DOUBLE"`
	SolarNormalized float64 `gorm:"column:solar_normalized" parquet:"name=solar_normalized,type=DOUBLE"`
	WindNormalized  float64 `gorm:"column:wind_normalized" parquet:"name=wind_normalized,type=DOUBLE"`
}

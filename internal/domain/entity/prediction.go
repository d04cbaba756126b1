package entity

import "time"

// SolarPrediction is one forecast horizon step. Each forecast pipeline run
// appends exactly 24 rows (horizons 1..24 relative to the anchor row);
// prior forecasts for overlapping target times are retained, never
// reconciled; readers filter to the relevant set.
type SolarPrediction struct {
	ID             uint      `gorm:"column:id;primaryKey;autoIncrement"`
	PredictionTime time.Time `gorm:"column:prediction_time"`
	TargetTime     time.Time `gorm:"column:target_time"`
	PredictedMW    float64   `gorm:"column:predicted_solar_mw"`
	// ClusterID is assigned in bulk by the clustering pipeline; nil means
	// unassigned.
	ClusterID *int      `gorm:"column:cluster_id"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

// TableName specifies the table name for SolarPrediction.
func (SolarPrediction) TableName() string {
	return "solar_predictions"
}

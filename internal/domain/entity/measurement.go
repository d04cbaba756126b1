// Package entity defines the persisted data model of GridPulse.
package entity

import "time"

// Measurement is one raw telemetry row for the configured grid zone, keyed
// by its UTC timestamp. Re-ingesting a timestamp overwrites prior values
// (upsert-on-conflict); numeric fields are never persisted as NULL.
type Measurement struct {
	Timestamp       time.Time `gorm:"column:datetime;primaryKey"`
	Zone            string    `gorm:"column:zone"`
	CarbonIntensity float64   `gorm:"column:carbon_intensity"`
	SolarMW         float64   `gorm:"column:solar_mw"`
	WindMW          float64   `gorm:"column:wind_mw"`
	GasMW           float64   `gorm:"column:gas_mw"`
	HydroMW         float64   `gorm:"column:hydro_mw"`
	BiomassMW       float64   `gorm:"column:biomass_mw"`
	NuclearMW       float64   `gorm:"column:nuclear_mw"`
	GeothermalMW    float64   `gorm:"column:geothermal_mw"`
	UnknownMW       float64   `gorm:"column:unknown_mw"`
	// ClusterID is assigned in bulk by the clustering pipeline; nil means
	// unassigned.
	ClusterID *int `gorm:"column:cluster_id"`
}

// TableName specifies the table name for Measurement.
func (Measurement) TableName() string {
	return "electricity_measurements"
}

// Package repository provides the GORM repositories backing the GridPulse
// pipelines and the serving layer.
package repository

import (
	"context"
	"time"

	"gorm.io/gorm/clause"

	"github.com/tigerroll/gridpulse/internal/database"
	"github.com/tigerroll/gridpulse/internal/domain/entity"
)

// MeasurementRepository is the store interface for raw telemetry rows.
type MeasurementRepository interface {
	// Upsert writes one measurement; a conflicting timestamp is overwritten
	// with the new values (idempotent per key).
	Upsert(ctx context.Context, m *entity.Measurement) error
	// UpsertBatch writes a batch of measurements with the same conflict
	// semantics as Upsert.
	UpsertBatch(ctx context.Context, ms []entity.Measurement) error
	// LatestTimestamp returns the newest stored timestamp for the zone, or
	// nil when the store is empty.
	LatestTimestamp(ctx context.Context, zone string) (*time.Time, error)
	// ListAscending returns all measurements ordered by timestamp ascending.
	ListAscending(ctx context.Context) ([]entity.Measurement, error)
	// ListSince returns measurements at or after the given instant,
	// ascending.
	ListSince(ctx context.Context, since time.Time) ([]entity.Measurement, error)
	// Latest returns the newest measurement, or nil when the store is empty.
	Latest(ctx context.Context) (*entity.Measurement, error)
}

type gormMeasurementRepository struct {
	conn *database.Connection
}

// NewMeasurementRepository creates a MeasurementRepository over the given
// connection.
func NewMeasurementRepository(conn *database.Connection) MeasurementRepository {
	return &gormMeasurementRepository{conn: conn}
}

// measurementUpdateColumns are the columns refreshed when an ingested
// timestamp already exists.
var measurementUpdateColumns = []string{
	"carbon_intensity", "solar_mw", "wind_mw", "gas_mw", "hydro_mw",
	"biomass_mw", "nuclear_mw", "geothermal_mw", "unknown_mw",
}

func (r *gormMeasurementRepository) Upsert(ctx context.Context, m *entity.Measurement) error {
	db := r.conn.DB().WithContext(ctx)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "datetime"}},
		DoUpdates: clause.AssignmentColumns(measurementUpdateColumns),
	}).Create(m)
	return result.Error
}

func (r *gormMeasurementRepository) UpsertBatch(ctx context.Context, ms []entity.Measurement) error {
	if len(ms) == 0 {
		return nil
	}
	db := r.conn.DB().WithContext(ctx)
	result := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "datetime"}},
		DoUpdates: clause.AssignmentColumns(measurementUpdateColumns),
	}).CreateInBatches(ms, 500)
	return result.Error
}

func (r *gormMeasurementRepository) LatestTimestamp(ctx context.Context, zone string) (*time.Time, error) {
	var m entity.Measurement
	db := r.conn.DB().WithContext(ctx)
	result := db.Where("zone = ?", zone).Order("datetime DESC").Limit(1).Find(&m)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	ts := m.Timestamp
	return &ts, nil
}

func (r *gormMeasurementRepository) ListAscending(ctx context.Context) ([]entity.Measurement, error) {
	var ms []entity.Measurement
	db := r.conn.DB().WithContext(ctx)
	if err := db.Order("datetime ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return ms, nil
}

func (r *gormMeasurementRepository) ListSince(ctx context.Context, since time.Time) ([]entity.Measurement, error) {
	var ms []entity.Measurement
	db := r.conn.DB().WithContext(ctx)
	if err := db.Where("datetime >= ?", since).Order("datetime ASC").Find(&ms).Error; err != nil {
		return nil, err
	}
	return ms, nil
}

func (r *gormMeasurementRepository) Latest(ctx context.Context) (*entity.Measurement, error) {
	var m entity.Measurement
	db := r.conn.DB().WithContext(ctx)
	result := db.Order("datetime DESC").Limit(1).Find(&m)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return &m, nil
}

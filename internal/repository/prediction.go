package repository

import (
	"context"
	"time"

	"github.com/tigerroll/gridpulse/internal/database"
	"github.com/tigerroll/gridpulse/internal/domain/entity"
)

// PredictionRepository is the append-only store interface for forecast rows.
type PredictionRepository interface {
	// AppendBatch appends forecast rows. Prior forecasts for overlapping
	// target times are retained; nothing is reconciled here.
	AppendBatch(ctx context.Context, rows []entity.SolarPrediction) error
	// ListUpcoming returns predictions with target_time at or after the
	// given instant, ascending.
	ListUpcoming(ctx context.Context, from time.Time) ([]entity.SolarPrediction, error)
	// ListAll returns every prediction row, id-ascending.
	ListAll(ctx context.Context) ([]entity.SolarPrediction, error)
}

type gormPredictionRepository struct {
	conn *database.Connection
}

// NewPredictionRepository creates a PredictionRepository over the given
// connection.
func NewPredictionRepository(conn *database.Connection) PredictionRepository {
	return &gormPredictionRepository{conn: conn}
}

func (r *gormPredictionRepository) AppendBatch(ctx context.Context, rows []entity.SolarPrediction) error {
	if len(rows) == 0 {
		return nil
	}
	db := r.conn.DB().WithContext(ctx)
	return db.CreateInBatches(rows, 100).Error
}

func (r *gormPredictionRepository) ListUpcoming(ctx context.Context, from time.Time) ([]entity.SolarPrediction, error) {
	var rows []entity.SolarPrediction
	db := r.conn.DB().WithContext(ctx)
	if err := db.Where("target_time >= ?", from).Order("target_time ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormPredictionRepository) ListAll(ctx context.Context) ([]entity.SolarPrediction, error) {
	var rows []entity.SolarPrediction
	db := r.conn.DB().WithContext(ctx)
	if err := db.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tigerroll/gridpulse/internal/database"
	"github.com/tigerroll/gridpulse/internal/domain/entity"
)

// AnalysisRepository is the store interface for the derived feature table
// and the correlation table. Both are fully replaced on every feature
// pipeline run; the replace is scoped inside one transaction so concurrent
// readers never observe a transient empty table.
type AnalysisRepository interface {
	// ReplaceResults atomically swaps the analysis table contents for rows.
	ReplaceResults(ctx context.Context, rows []entity.AnalysisResult) error
	// ReplaceCorrelations atomically swaps the correlation table contents.
	ReplaceCorrelations(ctx context.Context, rows []entity.Correlation) error
	// RecentWindow returns the newest n analysis rows, timestamp-descending.
	RecentWindow(ctx context.Context, n int) ([]entity.AnalysisResult, error)
	// ListSince returns analysis rows at or after the given instant, ascending.
	ListSince(ctx context.Context, since time.Time) ([]entity.AnalysisResult, error)
	// ListCorrelations returns all correlation rows.
	ListCorrelations(ctx context.Context) ([]entity.Correlation, error)
	// ListAllAscending returns all analysis rows, timestamp-ascending.
	ListAllAscending(ctx context.Context) ([]entity.AnalysisResult, error)
}

type gormAnalysisRepository struct {
	conn *database.Connection
	txm  *database.TxManager
}

// NewAnalysisRepository creates an AnalysisRepository over the given
// connection.
func NewAnalysisRepository(conn *database.Connection, txm *database.TxManager) AnalysisRepository {
	return &gormAnalysisRepository{conn: conn, txm: txm}
}

func (r *gormAnalysisRepository) ReplaceResults(ctx context.Context, rows []entity.AnalysisResult) error {
	return r.txm.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entity.AnalysisResult{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (r *gormAnalysisRepository) ReplaceCorrelations(ctx context.Context, rows []entity.Correlation) error {
	return r.txm.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&entity.Correlation{}).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.CreateInBatches(rows, 500).Error
	})
}

func (r *gormAnalysisRepository) RecentWindow(ctx context.Context, n int) ([]entity.AnalysisResult, error) {
	var rows []entity.AnalysisResult
	db := r.conn.DB().WithContext(ctx)
	if err := db.Order("datetime DESC").Limit(n).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormAnalysisRepository) ListSince(ctx context.Context, since time.Time) ([]entity.AnalysisResult, error) {
	var rows []entity.AnalysisResult
	db := r.conn.DB().WithContext(ctx)
	if err := db.Where("datetime >= ?", since).Order("datetime ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormAnalysisRepository) ListCorrelations(ctx context.Context) ([]entity.Correlation, error) {
	var rows []entity.Correlation
	db := r.conn.DB().WithContext(ctx)
	if err := db.Order("feature_x ASC, feature_y ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *gormAnalysisRepository) ListAllAscending(ctx context.Context) ([]entity.AnalysisResult, error) {
	var rows []entity.AnalysisResult
	db := r.conn.DB().WithContext(ctx)
	if err := db.Order("datetime ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

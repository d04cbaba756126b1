package database

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"
)

// TxManager starts, commits and rolls back transactions on one connection.
// Every replace-or-upsert unit in the pipelines runs through it, committed
// or rolled back as a whole.
type TxManager struct {
	conn *Connection
}

// NewTxManager creates a TxManager bound to the given connection.
func NewTxManager(conn *Connection) *TxManager {
	return &TxManager{conn: conn}
}

// Begin starts a new transaction and returns its *gorm.DB handle.
func (m *TxManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (*gorm.DB, error) {
	db := m.conn.DB().WithContext(ctx)

	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}

	tx := db.Begin(txOpts)
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", tx.Error)
	}
	return tx, nil
}

// Commit commits the given transaction.
func (m *TxManager) Commit(tx *gorm.DB) error {
	return tx.Commit().Error
}

// Rollback rolls back the given transaction.
func (m *TxManager) Rollback(tx *gorm.DB) error {
	return tx.Rollback().Error
}

// WithinTx runs fn inside one transaction. Any error from fn (or a panic)
// rolls the whole transaction back; otherwise it is committed.
func (m *TxManager) WithinTx(ctx context.Context, fn func(tx *gorm.DB) error) (err error) {
	tx, err := m.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = m.Rollback(tx)
			panic(r)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := m.Rollback(tx); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	return m.Commit(tx)
}

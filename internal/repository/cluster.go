package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/tigerroll/gridpulse/internal/database"
)

// ClusterAssignment is one staged (key, cluster id) pair. Key is the
// canonical textual representation of the target row's key column; for
// timestamp keys use FormatTimestampKey so the join matches the store's
// text rendering.
type ClusterAssignment struct {
	Key       string
	ClusterID int
}

// FormatTimestampKey renders a timestamp key in the canonical text form the
// bulk updater joins on. The store persists timezone-naive UTC timestamps,
// so the rendering must carry no zone suffix.
func FormatTimestampKey(ts time.Time) string {
	return ts.UTC().Format("2006-01-02 15:04:05")
}

// ClusterRepository applies cluster labels in bulk via a temporary side
// table: stage the (key, cluster_id) pairs, join-update the target table
// from the side table inside one transaction, then drop the side table.
// Any failure rolls back the whole transaction; no partial labeling.
type ClusterRepository interface {
	// ApplyAssignments bulk-applies labels to table. keyColumn names the
	// join key; rows whose key is absent from assignments are unchanged.
	ApplyAssignments(ctx context.Context, table, keyColumn string, assignments []ClusterAssignment) (int64, error)
}

type gormClusterRepository struct {
	conn *database.Connection
	txm  *database.TxManager
}

// NewClusterRepository creates a ClusterRepository over the given connection.
func NewClusterRepository(conn *database.Connection, txm *database.TxManager) ClusterRepository {
	return &gormClusterRepository{conn: conn, txm: txm}
}

// stagedPair is the row shape of the temporary side table.
type stagedPair struct {
	RowKey    string `gorm:"column:row_key"`
	ClusterID int    `gorm:"column:cluster_id"`
}

func (r *gormClusterRepository) ApplyAssignments(ctx context.Context, table, keyColumn string, assignments []ClusterAssignment) (int64, error) {
	if len(assignments) == 0 {
		return 0, nil
	}

	tempTable := fmt.Sprintf("temp_%s_clusters", table)
	var updated int64

	err := r.txm.WithinTx(ctx, func(tx *gorm.DB) error {
		if err := tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", tempTable)).Error; err != nil {
			return err
		}
		if err := tx.Exec(fmt.Sprintf("CREATE TABLE %s (row_key TEXT, cluster_id INTEGER)", tempTable)).Error; err != nil {
			return err
		}

		staged := make([]stagedPair, 0, len(assignments))
		for _, a := range assignments {
			staged = append(staged, stagedPair{RowKey: a.Key, ClusterID: a.ClusterID})
		}
		if err := tx.Table(tempTable).CreateInBatches(staged, 500).Error; err != nil {
			return err
		}

		update, err := joinUpdateSQL(r.conn.Type(), table, tempTable, keyColumn)
		if err != nil {
			return err
		}
		result := tx.Exec(update)
		if result.Error != nil {
			return result.Error
		}
		updated = result.RowsAffected

		return tx.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", tempTable)).Error
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// joinUpdateSQL builds the dialect-specific join-update statement. The key
// comparison goes through a text cast so timestamp-typed key columns join
// against the staged textual keys without a type mismatch.
func joinUpdateSQL(dbType, table, tempTable, keyColumn string) (string, error) {
	switch dbType {
	case "postgres":
		return fmt.Sprintf(
			"UPDATE %s AS main SET cluster_id = temp.cluster_id FROM %s AS temp WHERE CAST(main.%s AS TEXT) = temp.row_key",
			table, tempTable, keyColumn), nil
	case "mysql":
		return fmt.Sprintf(
			"UPDATE %s AS main JOIN %s AS temp ON CAST(main.%s AS CHAR) = temp.row_key SET main.cluster_id = temp.cluster_id",
			table, tempTable, keyColumn), nil
	case "sqlite":
		return fmt.Sprintf(
			"UPDATE %s SET cluster_id = (SELECT temp.cluster_id FROM %s AS temp WHERE CAST(%s.%s AS TEXT) = temp.row_key) "+
				"WHERE EXISTS (SELECT 1 FROM %s AS temp WHERE CAST(%s.%s AS TEXT) = temp.row_key)",
			table, tempTable, table, keyColumn, tempTable, table, keyColumn), nil
	default:
		return "", fmt.Errorf("unsupported database type for bulk cluster update: %s", dbType)
	}
}

package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tigerroll/gridpulse/internal/database"
	"github.com/tigerroll/gridpulse/internal/repository"
)

func setupClusterMock(t *testing.T) (sqlmock.Sqlmock, repository.ClusterRepository) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	conn := database.NewConnection(gormDB, database.Config{Type: "postgres"}, "mock")
	txm := database.NewTxManager(conn)
	return mock, repository.NewClusterRepository(conn, txm)
}

func TestFormatTimestampKey(t *testing.T) {
	loc := time.FixedZone("JST", 9*3600)
	ts := time.Date(2025, 6, 1, 9, 30, 0, 0, loc)
	assert.Equal(t, "2025-06-01 00:30:00", repository.FormatTimestampKey(ts))
}

func TestApplyAssignmentsEmptyIsNoOp(t *testing.T) {
	mock, repo := setupClusterMock(t)

	updated, err := repo.ApplyAssignments(context.Background(), "electricity_measurements", "datetime", nil)
	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyAssignmentsStagesAndJoinUpdates(t *testing.T) {
	mock, repo := setupClusterMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS temp_electricity_measurements_clusters`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE temp_electricity_measurements_clusters \(row_key TEXT, cluster_id INTEGER\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "temp_electricity_measurements_clusters"`).
		WithArgs("2025-06-01 00:00:00", 0, "2025-06-01 01:00:00", 2).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`UPDATE electricity_measurements AS main SET cluster_id = temp\.cluster_id FROM temp_electricity_measurements_clusters AS temp WHERE CAST\(main\.datetime AS TEXT\) = temp\.row_key`).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(`DROP TABLE IF EXISTS temp_electricity_measurements_clusters`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	assignments := []repository.ClusterAssignment{
		{Key: "2025-06-01 00:00:00", ClusterID: 0},
		{Key: "2025-06-01 01:00:00", ClusterID: 2},
	}
	updated, err := repo.ApplyAssignments(context.Background(), "electricity_measurements", "datetime", assignments)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyAssignmentsRollsBackOnUpdateFailure(t *testing.T) {
	mock, repo := setupClusterMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DROP TABLE IF EXISTS temp_solar_predictions_clusters`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE TABLE temp_solar_predictions_clusters \(row_key TEXT, cluster_id INTEGER\)`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO "temp_solar_predictions_clusters"`).
		WithArgs("1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE solar_predictions AS main`).
		WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	_, err := repo.ApplyAssignments(context.Background(), "solar_predictions", "id",
		[]repository.ClusterAssignment{{Key: "1", ClusterID: 1}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deadlock")
	assert.NoError(t, mock.ExpectationsWereMet())
}

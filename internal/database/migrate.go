package database

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/gridpulse/internal/support/logger"
)

const migrationsTable = "gridpulse_schema_migrations"

// getDatabaseDriver builds a migrate/v4 driver for the connection's dialect.
func getDatabaseDriver(conn *Connection) (migratedb.Driver, error) {
	sqlDB, err := conn.DB().DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	switch conn.Type() {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: migrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: migrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: migrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", conn.Type())
	}
}

// Migrate applies all pending migrations from migrationFS for the
// connection's dialect. Migration SQL is organized per dialect under
// path/<dialect>.
func Migrate(conn *Connection, migrationFS fs.FS, path string) error {
	dialectPath := path + "/" + conn.Type()
	logger.Infof("Applying schema migrations (path: %s)", dialectPath)

	sourceDriver, err := iofs.New(migrationFS, dialectPath)
	if err != nil {
		return fmt.Errorf("failed to create iofs source driver for path %s: %w", dialectPath, err)
	}

	dbDriver, err := getDatabaseDriver(conn)
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, conn.Type(), dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return fmt.Errorf("failed to read migration version: %w", err)
	}
	logger.Infof("Schema is at migration version %d (dirty: %v)", version, dirty)
	return nil
}

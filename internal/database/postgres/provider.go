// Package postgres registers the PostgreSQL dialector with the database
// package's registry.
package postgres

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/gridpulse/internal/database"
)

func init() {
	database.RegisterDialector("postgres", func(cfg database.Config) (gorm.Dialector, error) {
		dsn, err := cfg.DSN()
		if err != nil {
			return nil, err
		}
		return postgres.Open(dsn), nil
	})
}

// Package sqlite registers the SQLite dialector with the database package's
// registry.
package sqlite

import (
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/gridpulse/internal/database"
)

func init() {
	database.RegisterDialector("sqlite", func(cfg database.Config) (gorm.Dialector, error) {
		dsn, err := cfg.DSN()
		if err != nil {
			return nil, err
		}
		return sqlite.Open(dsn), nil
	})
}

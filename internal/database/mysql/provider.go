// Package mysql registers the MySQL dialector with the database package's
// registry.
package mysql

import (
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/gridpulse/internal/database"
)

func init() {
	database.RegisterDialector("mysql", func(cfg database.Config) (gorm.Dialector, error) {
		dsn, err := cfg.DSN()
		if err != nil {
			return nil, err
		}
		return mysql.Open(dsn), nil
	})
}

package database

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appconfig "github.com/tigerroll/gridpulse/internal/config"
	"github.com/tigerroll/gridpulse/internal/support/logger"
)

// DialectorFactory produces a gorm.Dialector from a datasource Config.
type DialectorFactory func(cfg Config) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
// The per-dialect subpackages call this from their init functions.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory retrieves the DialectorFactory for the specified DB type.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// gormWriter redirects GORM log output into the application logger.
type gormWriter struct{}

// Printf implements the gormlogger.Writer interface.
func (w *gormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if strings.Contains(msg, "SELECT") || strings.Contains(msg, "INSERT") ||
		strings.Contains(msg, "UPDATE") || strings.Contains(msg, "DELETE") {
		logger.Debugf("[GORM] %s", msg)
	} else {
		logger.Infof("[GORM] %s", msg)
	}
}

// newGormLogger builds a gorm logger whose level mirrors the app log level.
func newGormLogger(level string) gormlogger.Interface {
	var gormLevel gormlogger.LogLevel
	switch appconfig.LogLevel(strings.ToUpper(level)) {
	case appconfig.LogLevelSilent:
		gormLevel = gormlogger.Silent
	case appconfig.LogLevelError:
		gormLevel = gormlogger.Error
	case appconfig.LogLevelWarn:
		gormLevel = gormlogger.Warn
	case appconfig.LogLevelInfo, appconfig.LogLevelDebug:
		gormLevel = gormlogger.Info
	default:
		gormLevel = gormlogger.Silent
	}

	return gormlogger.New(&gormWriter{}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLevel,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

// Connection wraps an established *gorm.DB together with its datasource
// configuration and name.
type Connection struct {
	db   *gorm.DB
	cfg  Config
	name string
}

// Open establishes a connection for the given datasource configuration using
// the registered dialector for its type, applies pool settings, and bridges
// GORM logging into the application logger.
func Open(cfg Config, name string, logLevel string) (*Connection, error) {
	factory, err := GetDialectorFactory(cfg.Type)
	if err != nil {
		return nil, err
	}
	dialector, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build dialector for '%s': %w", name, err)
	}

	gormDB, err := gorm.Open(dialector, &gorm.Config{Logger: newGormLogger(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to open database '%s': %w", name, err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying *sql.DB for '%s': %w", name, err)
	}
	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}

	logger.Infof("Established DB connection '%s' (%s)", name, cfg.Type)
	return &Connection{db: gormDB, cfg: cfg, name: name}, nil
}

// NewConnection wraps an already-open *gorm.DB. Used by tests that open
// sqlmock- or sqlite-backed sessions directly.
func NewConnection(db *gorm.DB, cfg Config, name string) *Connection {
	return &Connection{db: db, cfg: cfg, name: name}
}

// DB returns the underlying *gorm.DB session.
func (c *Connection) DB() *gorm.DB {
	return c.db
}

// Type returns the database type of this connection.
func (c *Connection) Type() string {
	return c.cfg.Type
}

// Name returns the datasource name of this connection.
func (c *Connection) Name() string {
	return c.name
}

// Config returns the datasource configuration of this connection.
func (c *Connection) Config() Config {
	return c.cfg
}

// Close closes the underlying connection pool.
func (c *Connection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	logger.Infof("Closing database connection '%s'...", c.name)
	return sqlDB.Close()
}

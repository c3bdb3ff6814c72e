package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/castlemilk/shorted.com.au-sub001/internal/config"
	"github.com/castlemilk/shorted.com.au-sub001/internal/domain"
	"github.com/castlemilk/shorted.com.au-sub001/internal/logger"
	"github.com/cenkalti/backoff/v5"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDB opens the configured database, applies pool settings and runs the
// schema migration when enabled.
// Parameters:
//   - cfg: database configuration including driver and connection settings.
// Returns:
//   - *gorm.DB: ready database handle.
//   - error: non-nil if connecting or migrating fails.
func InitDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	}

	var db *gorm.DB
	var err error

	switch cfg.Driver {
	case "postgres":
		db, err = openPostgres(cfg, gormCfg)
	case "sqlite":
		db, err = openSQLite(cfg, gormCfg)
	default:
		logger.Warn("Unknown database driver %q, falling back to sqlite", cfg.Driver)
		db, err = openSQLite(cfg, gormCfg)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if cfg.AutoMigrate {
		if err := db.AutoMigrate(
			&domain.Symbol{},
			&domain.PricePoint{},
			&domain.SyncRun{},
		); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	logger.Info("Database initialized with driver %q", cfg.Driver)
	return db, nil
}

// openPostgres connects to PostgreSQL, retrying the initial dial with
// exponential backoff so a sync scheduled right after a database restart
// does not die on one refused connection.
func openPostgres(cfg *config.DatabaseConfig, gormCfg *gorm.Config) (*gorm.DB, error) {
	dsn := cfg.DSN()

	connect := func() (*gorm.DB, error) {
		// PreferSimpleProtocol: transaction poolers reject the implicit
		// prepared statements pgx uses otherwise.
		return gorm.Open(postgres.New(postgres.Config{
			DSN:                  dsn,
			PreferSimpleProtocol: true,
		}), gormCfg)
	}

	db, err := backoff.Retry(context.Background(), connect,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(30*time.Second),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Warn("PostgreSQL connect failed, retrying in %s: %v", next, err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	return db, nil
}

// openSQLite opens the SQLite file, creating its directory first.
func openSQLite(cfg *config.DatabaseConfig, gormCfg *gorm.Config) (*gorm.DB, error) {
	if cfg.Path != "" && cfg.URL == "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN()), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SQLite: %w", err)
	}

	// WAL keeps the API readable while a sync invocation writes.
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA foreign_keys=ON")

	return db, nil
}

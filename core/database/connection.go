package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AzielCF/az-remind/core/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Database wraps the process-wide connection. The GORM handle serves the
// model-based repositories; SQL exposes the underlying *sql.DB for the
// repositories that speak SQL directly. Both share one pool.
type Database struct {
	Gorm *gorm.DB

	sqlDB     *sql.DB
	closeOnce sync.Once
}

var (
	openOnce sync.Once
	shared   *Database
	openErr  error
)

// Open returns the shared process-wide database, performing the open
// sequence exactly once. Concurrent callers block until the first open
// completes and all receive the same handle (or the same error); the handle
// is never opened twice.
func Open(cfg *config.Config) (*Database, error) {
	openOnce.Do(func() {
		shared, openErr = New(cfg)
	})
	return shared, openErr
}

// New initializes a database connection based on the provided configuration.
// Unlike Open it always constructs a fresh handle; tests use it directly.
func New(cfg *config.Config) (*Database, error) {
	return NewWithPath(cfg, cfg.Database.Name)
}

// NewWithPath allows opening a secondary database file (for SQLite) with the
// same global settings.
func NewWithPath(cfg *config.Config, path string) (*Database, error) {
	var dialector gorm.Dialector
	isSQLite := cfg.Database.Driver == "sqlite" || cfg.Database.Driver == ""

	switch {
	case cfg.Database.Driver == "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable TimeZone=UTC",
			cfg.Database.Host,
			cfg.Database.User,
			cfg.Database.Password,
			path, // Path acts as dbname in Postgres
			cfg.Database.Port,
		)
		dialector = postgres.Open(dsn)
	case isSQLite:
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000&_txlock=immediate", path)
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	logLevel := logger.Silent
	if cfg.App.Debug {
		logLevel = logger.Info
	}
	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database (%s): %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB instance: %w", err)
	}

	if isSQLite {
		// Writers serialize through the one connection; WAL still lets the
		// re-used connection read while a transaction is open elsewhere.
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		sqlDB.SetConnMaxLifetime(time.Hour)

		for _, pragma := range []string{
			"PRAGMA synchronous = NORMAL",
			"PRAGMA cache_size = -2000",
		} {
			if _, err := sqlDB.Exec(pragma); err != nil {
				_ = sqlDB.Close()
				return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
			}
		}
	} else {
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return &Database{Gorm: db, sqlDB: sqlDB}, nil
}

// SQL returns the underlying *sql.DB for repositories that bypass GORM.
func (d *Database) SQL() *sql.DB {
	return d.sqlDB
}

// Close releases the handle. Safe to call more than once.
func (d *Database) Close() error {
	var err error
	d.closeOnce.Do(func() {
		err = d.sqlDB.Close()
	})
	return err
}

package config

import (
	"path/filepath"
	"time"
)

// Config holds all application configuration in a structured way.
type Config struct {
	App       AppConfig
	Paths     PathsConfig
	Database  DatabaseConfig
	Scheduler SchedulerConfig
}

type AppConfig struct {
	Version     string
	Debug       bool
	Environment string
}

type PathsConfig struct {
	BaseDir string
}

type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Name     string // File path for SQLite, DB Name for Postgres
}

type SchedulerConfig struct {
	// PollInterval is the safety re-poll period of the dispatch worker; the
	// worker otherwise sleeps adaptively until the next pending date.
	PollInterval time.Duration
	// RetryBaseDelay is the base backoff applied when the store reports lock
	// contention.
	RetryBaseDelay time.Duration
	MaxRetries     int
}

// Global provides access to the loaded configuration globally.
var Global *Config

// LoadConfig loads configuration from Environment Variables or defaults.
func LoadConfig() (*Config, error) {
	baseDir := getEnv("APP_BASE_DIR", "storages")

	appCfg := AppConfig{
		Version:     "v1.2.0",
		Debug:       getEnvBool("APP_DEBUG", false),
		Environment: getEnv("APP_ENV", "development"),
	}

	pathsCfg := PathsConfig{
		BaseDir: baseDir,
	}

	dbCfg := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", "sqlite"),
		Name:     getEnv("DB_NAME", filepath.Join(baseDir, "reminders.db")),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
	}

	schedCfg := SchedulerConfig{
		PollInterval:   getEnvDuration("SCHEDULER_POLL_INTERVAL", 5*time.Minute),
		RetryBaseDelay: getEnvDuration("DB_RETRY_BASE_DELAY", time.Second),
		MaxRetries:     getEnvInt("DB_MAX_RETRIES", 3),
	}

	cfg := &Config{
		App:       appCfg,
		Paths:     pathsCfg,
		Database:  dbCfg,
		Scheduler: schedCfg,
	}

	Global = cfg
	return cfg, nil
}

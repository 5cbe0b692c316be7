package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

type Config struct {
	Port    string
	GinMode string

	DBDriver          string
	SQLitePath        string
	DatabaseURL       string
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool

	SessionSecret string

	CacheDir    string
	CacheMaxAge time.Duration

	SweepSchedule string

	LogLevel  string
	LogFormat string
}

// LoadConfig reads envFile (if present) into the process environment and builds a
// Config from it. Variables already set in the environment win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := Config{
		Port:          getEnv("PORT", "5000"),
		GinMode:       getEnv("GIN_MODE", "release"),
		DBDriver:      getEnv("DB_DRIVER", DriverSQLite),
		SQLitePath:    getEnv("SQLITE_DB", "notion-lite.db"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		MongoURI:      os.Getenv("MONGODB_URI"),
		MongoDatabase: getEnv("MONGODB_DATABASE", "notion-lite"),
		SessionSecret: os.Getenv("SESSION_SECRET"),
		CacheDir:      getEnv("CACHE_DIR", "cache"),
		SweepSchedule: os.Getenv("SWEEP_SCHEDULE"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogFormat:     getEnv("LOG_FORMAT", "json"),
	}

	tx, err := strconv.ParseBool(getEnv("MONGODB_TRANSACTIONS", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("MONGODB_TRANSACTIONS: %w", err)
	}
	cfg.MongoTransactions = tx

	maxAge, err := time.ParseDuration(getEnv("CACHE_MAX_AGE", "1h"))
	if err != nil {
		return Config{}, fmt.Errorf("CACHE_MAX_AGE: %w", err)
	}
	cfg.CacheMaxAge = maxAge

	return cfg, nil
}

// Validate checks that the settings needed by the selected driver are present.
func (c Config) Validate() error {
	switch c.DBDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_DB not set")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL not set")
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return errors.New("MONGODB_URI not set")
		}
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", c.DBDriver)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

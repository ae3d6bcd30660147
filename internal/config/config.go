package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/juju/errors"
	"github.com/juju/loggo"

	"refractory-tracker/internal/reconcile"
	"refractory-tracker/internal/sweep"
)

var logger = loggo.GetLogger("config")

const (
	defaultDSN         = "host=localhost user=postgres password=postgres dbname=refractory port=5432 sslmode=disable"
	defaultCORSOrigins = "http://localhost:3000"
)

type Config struct {
	HTTPPort    string
	DBDriver    string // postgres or sqlite
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string

	DocumentPath    string // where PO documents are written
	DocumentBaseURL string

	RedisAddr     string // empty disables the dashboard cache
	RedisPassword string
	RedisDB       int

	LoginRate           string // ulule limiter format, e.g. 10-M
	SweepInterval       time.Duration
	UrgentThresholdDays int
	LogLevel            string
}

// Load reads the environment, after merging an optional .env file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debugf("no .env file loaded: %v", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a variable lookup.
func FromEnv(lookup func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		HTTPPort:        get("HTTP_PORT", "8080"),
		DBDriver:        strings.ToLower(get("DB_DRIVER", "postgres")),
		DatabaseDSN:     get("DATABASE_DSN", defaultDSN),
		JWTSecret:       get("JWT_SECRET", ""),
		CORSOrigins:     get("CORS_ALLOWED_ORIGINS", defaultCORSOrigins),
		DocumentPath:    get("DOCUMENT_PATH", "./documents"),
		DocumentBaseURL: get("DOCUMENT_BASE_URL", "/documents"),
		RedisAddr:       get("REDIS_ADDR", ""),
		RedisPassword:   get("REDIS_PASSWORD", ""),
		LoginRate:       get("LOGIN_RATE", "10-M"),
		LogLevel:        get("LOG_LEVEL", "<root>=INFO"),
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return nil, errors.NotValidf("REDIS_DB %q", lookup("REDIS_DB"))
	}
	if cfg.SweepInterval, err = time.ParseDuration(get("SWEEP_INTERVAL", sweep.DefaultInterval.String())); err != nil || cfg.SweepInterval <= 0 {
		return nil, errors.NotValidf("SWEEP_INTERVAL %q", lookup("SWEEP_INTERVAL"))
	}
	threshold := get("URGENT_THRESHOLD_DAYS", strconv.Itoa(reconcile.DefaultUrgentThresholdDays))
	if cfg.UrgentThresholdDays, err = strconv.Atoi(threshold); err != nil || cfg.UrgentThresholdDays < 0 {
		return nil, errors.NotValidf("URGENT_THRESHOLD_DAYS %q", threshold)
	}

	if cfg.JWTSecret == "" {
		return nil, errors.NotValidf("missing JWT_SECRET")
	}
	if len(cfg.JWTSecret) < 32 {
		return nil, errors.NotValidf("JWT_SECRET shorter than 32 characters")
	}
	switch cfg.DBDriver {
	case "postgres", "sqlite":
	default:
		return nil, errors.NotValidf("DB_DRIVER %q", cfg.DBDriver)
	}

	if cfg.DBDriver == "postgres" && cfg.DatabaseDSN == defaultDSN {
		logger.Warningf("DATABASE_DSN is the local default, set it for production")
	}
	if cfg.CORSOrigins == defaultCORSOrigins {
		logger.Warningf("CORS_ALLOWED_ORIGINS is the local default, set it for production")
	}
	return cfg, nil
}

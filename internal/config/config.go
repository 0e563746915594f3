// Package config reads the application settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	AuthModeNone = "none"
	AuthModeDev  = "dev"

	TotalsModeRecompute = "recompute"
	TotalsModeAdditive  = "additive"

	// DefaultUserID - пользователь для AUTH_MODE=none.
	DefaultUserID = "default"
)

// Config содержит конфигурацию приложения
type Config struct {
	Env      string // local | staging | production
	Port     int
	LogLevel string

	// Database
	DatabaseURL       string // runtime connection (resolved: pooled > url > direct)
	DatabaseURLRaw    string // DATABASE_URL as provided
	DatabaseURLPooled string // DATABASE_URL_POOLED as provided
	DatabaseURLDirect string // for migrations / DDL (may be empty)
	SQLitePath        string // embedded store, used when no Postgres URL is set
	CatalogSeedPath   string // YAML meal list loaded into memory/sqlite catalogs

	RunMigrationsOnStartup bool

	// CORS
	CORSAllowedOrigins   []string
	CORSAllowCredentials bool

	// Rate Limiting
	RateLimitRPS   int
	RateLimitBurst int

	Blob BlobConfig

	ReportsMaxRangeDays int

	// Authentication
	AuthMode      string // none | dev
	AuthRequired  bool
	JWTSecret     string
	JWTIssuer     string
	JWTTTLMinutes int

	// CronSecret protects POST /v1/cron/daily-reset. Empty disables the route.
	CronSecret string

	// Ledger
	LedgerTotalsMode     string // recompute | additive
	LedgerMaxRetries     int
	AnalyticsDefaultDays int

	// Warnings collected while loading; logged by the caller once a logger exists.
	Warnings []string
}

// Load загружает конфигурацию из переменных окружения
func Load() *Config {
	cfg := &Config{}

	// APP_ENV (fallback to ENV for backward compat, default: local)
	cfg.Env = os.Getenv("APP_ENV")
	if cfg.Env == "" {
		cfg.Env = os.Getenv("ENV")
	}
	if cfg.Env == "" {
		cfg.Env = "local"
	}

	cfg.Port = envInt("PORT", 8080)

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(os.Getenv("LOG_LEVEL")))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}

	// ---------- Database ----------
	// Priority: DATABASE_URL_POOLED > DATABASE_URL > DATABASE_URL_DIRECT
	cfg.DatabaseURLPooled = strings.TrimSpace(os.Getenv("DATABASE_URL_POOLED"))
	cfg.DatabaseURLRaw = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.DatabaseURLDirect = strings.TrimSpace(os.Getenv("DATABASE_URL_DIRECT"))
	cfg.DatabaseURL = firstNonEmpty(cfg.DatabaseURLPooled, cfg.DatabaseURLRaw, cfg.DatabaseURLDirect)
	cfg.SQLitePath = strings.TrimSpace(os.Getenv("SQLITE_PATH"))
	cfg.CatalogSeedPath = strings.TrimSpace(os.Getenv("CATALOG_SEED_PATH"))

	cfg.RunMigrationsOnStartup = parseBoolEnv("RUN_MIGRATIONS_ON_STARTUP")

	// ---------- CORS ----------
	cfg.CORSAllowedOrigins = parseCORSOrigins(os.Getenv("CORS_ALLOWED_ORIGINS"), cfg.Env)
	cfg.CORSAllowCredentials = parseBoolEnv("CORS_ALLOW_CREDENTIALS")

	// ---------- Rate Limiting ----------
	cfg.RateLimitRPS = envInt("RATE_LIMIT_RPS", 0)
	cfg.RateLimitBurst = envInt("RATE_LIMIT_BURST", 0)

	// ---------- Blob / S3 ----------
	presignTTL := envInt("S3_PRESIGN_TTL_SECONDS", 900)
	if presignTTL <= 0 {
		presignTTL = 900
	}
	cfg.Blob = BlobConfig{
		Mode: cfg.enumEnv("BLOB_MODE", BlobModeLocal, BlobModeLocal, BlobModeS3, BlobModeAuto),
		S3: S3Config{
			Endpoint:          strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
			Region:            strings.TrimSpace(os.Getenv("S3_REGION")),
			Bucket:            strings.TrimSpace(os.Getenv("S3_BUCKET")),
			AccessKeyID:       strings.TrimSpace(os.Getenv("S3_ACCESS_KEY_ID")),
			SecretAccessKey:   strings.TrimSpace(os.Getenv("S3_SECRET_ACCESS_KEY")),
			PresignTTLSeconds: presignTTL,
			UsePathStyle:      parseBoolEnv("S3_USE_PATH_STYLE"),
		},
	}

	cfg.ReportsMaxRangeDays = envInt("REPORTS_MAX_RANGE_DAYS", 90)
	if cfg.ReportsMaxRangeDays <= 0 {
		cfg.ReportsMaxRangeDays = 90
	}

	// ---------- Auth ----------
	cfg.AuthMode = cfg.enumEnv("AUTH_MODE", AuthModeNone, AuthModeNone, AuthModeDev)
	cfg.AuthRequired = cfg.AuthMode != AuthModeNone && parseBoolEnv("AUTH_REQUIRED")

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "change_me"
	}
	if cfg.JWTSecret == "change_me" && cfg.Env != "local" {
		cfg.warnf("JWT_SECRET is set to 'change_me' in non-local environment")
	}
	cfg.JWTIssuer = os.Getenv("JWT_ISSUER")
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "meal-hub"
	}
	// JWT_TTL_MINUTES (default: 10080 = 7 days)
	cfg.JWTTTLMinutes = envInt("JWT_TTL_MINUTES", 10080)
	if cfg.JWTTTLMinutes <= 0 {
		cfg.JWTTTLMinutes = 10080
	}

	cfg.CronSecret = strings.TrimSpace(os.Getenv("CRON_SECRET"))

	// ---------- Ledger ----------
	cfg.LedgerTotalsMode = cfg.enumEnv("LEDGER_TOTALS_MODE", TotalsModeRecompute, TotalsModeRecompute, TotalsModeAdditive)
	cfg.LedgerMaxRetries = envInt("LEDGER_MAX_RETRIES", 3)
	if cfg.LedgerMaxRetries < 0 {
		cfg.LedgerMaxRetries = 3
	}
	cfg.AnalyticsDefaultDays = envInt("ANALYTICS_DEFAULT_DAYS", 30)
	if cfg.AnalyticsDefaultDays < 1 || cfg.AnalyticsDefaultDays > 365 {
		cfg.warnf("ANALYTICS_DEFAULT_DAYS=%d out of range, fallback to 30", cfg.AnalyticsDefaultDays)
		cfg.AnalyticsDefaultDays = 30
	}

	return cfg
}

// Validate returns fatal misconfigurations. Only staging/production are checked.
func (c *Config) Validate() error {
	if c.Env == "local" {
		return nil
	}
	if c.AuthMode != AuthModeNone && c.JWTSecret == "change_me" {
		return fmt.Errorf("JWT_SECRET must be set when AUTH_MODE=%s in %s", c.AuthMode, c.Env)
	}
	if c.DatabaseURL == "" && c.SQLitePath == "" {
		return fmt.Errorf("DATABASE_URL (or SQLITE_PATH) is required in %s", c.Env)
	}
	return nil
}

func (c *Config) warnf(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

// enumEnv reads key, lower-cased; unknown values fall back to def with a warning.
func (c *Config) enumEnv(key, def string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if v == "" {
		return def
	}
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	c.warnf("unknown %s=%q, fallback to %s", key, v, def)
	return def
}

// parseCORSOrigins parses CORS_ALLOWED_ORIGINS env var.
// In local mode, defaults to localhost origins if empty.
func parseCORSOrigins(raw, env string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if env == "local" {
			return []string{"http://localhost:3000", "http://localhost:8081"}
		}
		return nil // prod: deny by default
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// envInt reads an int env var with a default value.
func envInt(key string, defaultVal int) int {
	s := strings.TrimSpace(os.Getenv(key))
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func parseBoolEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "on"
}

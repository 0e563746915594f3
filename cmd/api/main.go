package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"go.uber.org/zap"

	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/internal/dbmigrate"
	"github.com/fdg312/meal-hub/internal/httpserver"
	"github.com/fdg312/meal-hub/internal/logging"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	for _, w := range cfg.Warnings {
		logger.Warn("config", zap.String("warning", w))
	}
	logStartupBanner(logger, cfg)

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RunMigrationsOnStartup && cfg.DatabaseURL != "" {
		target, _, err := dbmigrate.SelectTarget(cfg, true)
		if err != nil {
			logger.Fatal("startup migrations", zap.Error(err))
		}
		logger.Info("startup migrations", zap.String("command", "up"), zap.String("using", target.Source))
		if err := dbmigrate.Run(ctx, "up", target, logger); err != nil {
			logger.Fatal("startup migrations failed", zap.Error(err))
		}
	}

	server, err := httpserver.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("server init failed", zap.Error(err))
	}
	defer server.Close()

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}

// logStartupBanner logs the resolved configuration once. Secrets are only
// reported as set / not set.
func logStartupBanner(logger *zap.Logger, cfg *config.Config) {
	logger.Info("meal hub api",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("database_url", describeDBURL(cfg)),
		zap.String("sqlite_path", nonEmptyOrDash(cfg.SQLitePath)),
		zap.Bool("migrations_on_startup", cfg.RunMigrationsOnStartup),
		zap.String("auth_mode", cfg.AuthMode),
		zap.Bool("auth_required", cfg.AuthRequired),
		zap.String("jwt_secret", secretStatus(cfg.JWTSecret, "change_me")),
		zap.String("cron_secret", setOrNot(cfg.CronSecret)),
		zap.String("ledger_totals_mode", cfg.LedgerTotalsMode),
		zap.Int("ledger_max_retries", cfg.LedgerMaxRetries),
		zap.String("blob_mode", cfg.Blob.Mode),
		zap.Strings("cors_origins", cfg.CORSAllowedOrigins),
		zap.Int("rate_limit_rps", cfg.RateLimitRPS),
	)
}

// ---- helpers (no secrets) ----

func setOrNot(v string) string {
	if strings.TrimSpace(v) == "" {
		return "not set"
	}
	return "set"
}

func nonEmptyOrDash(v string) string {
	if strings.TrimSpace(v) == "" {
		return "-"
	}
	return v
}

func secretStatus(v, insecureDefault string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return "not set"
	}
	if v == insecureDefault {
		return fmt.Sprintf("set (DEFAULT, insecure '%s')", insecureDefault)
	}
	return "set (custom)"
}

func describeDBURL(cfg *config.Config) string {
	switch {
	case cfg.DatabaseURL == "" && cfg.SQLitePath != "":
		return "not set (sqlite)"
	case cfg.DatabaseURL == "":
		return "not set (in-memory)"
	case cfg.DatabaseURLPooled != "" && cfg.DatabaseURL == cfg.DatabaseURLPooled:
		return "set (via DATABASE_URL_POOLED)"
	}
	return "set"
}

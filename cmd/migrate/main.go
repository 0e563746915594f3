package main

import (
	"context"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fdg312/meal-hub/internal/config"
	"github.com/fdg312/meal-hub/internal/dbmigrate"
	"github.com/fdg312/meal-hub/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var requireDirect bool

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply meal-hub database migrations (Postgres or SQLite)",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().BoolVar(&requireDirect, "require-direct", false, "only accept DATABASE_URL_DIRECT")

	short := map[string]string{
		"up":      "Apply all pending migrations",
		"down":    "Roll back the latest migration",
		"status":  "Print migration status",
		"version": "Print the current schema version",
	}
	for _, command := range dbmigrate.Commands {
		root.AddCommand(&cobra.Command{
			Use:   command,
			Short: short[command],
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return run(cmd.Context(), command, requireDirect)
			},
		})
	}
	return root
}

func run(ctx context.Context, command string, requireDirect bool) error {
	cfg := config.Load()
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger init: %w", err)
	}
	defer logger.Sync()

	target, warning, err := dbmigrate.SelectTarget(cfg, requireDirect)
	if err != nil {
		return err
	}
	if warning != "" {
		logger.Warn("migrate", zap.String("warning", warning))
	}

	logger.Info("migrate", zap.String("command", command), zap.String("dialect", target.Dialect), zap.String("using", target.Source))
	if err := dbmigrate.Run(ctx, command, target, logger); err != nil {
		return err
	}
	logger.Info("migrate completed", zap.String("command", command))
	return nil
}

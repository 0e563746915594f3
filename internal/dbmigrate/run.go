// Package dbmigrate applies the embedded goose migrations.
package dbmigrate

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/fdg312/meal-hub/migrations"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

// goose держит FS, dialect и logger в глобальном состоянии.
var gooseMu sync.Mutex

// Commands supported by cmd/migrate.
var Commands = []string{"up", "down", "status", "version"}

// Run opens the target database and runs a goose command against it.
func Run(ctx context.Context, command string, target Target, logger *zap.Logger) error {
	if target.DSN == "" {
		return fmt.Errorf("database URL is empty")
	}

	driver := "pgx"
	if target.Dialect == DialectSQLite {
		driver = "sqlite"
	}

	db, err := sql.Open(driver, target.DSN)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return Migrate(ctx, db, target.Dialect, command, logger)
}

// Migrate runs command on an already opened database. logger may be nil.
func Migrate(ctx context.Context, db *sql.DB, dialect, command string, logger *zap.Logger) error {
	gooseDialect, dir, err := gooseParams(dialect)
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	if logger != nil {
		goose.SetLogger(zap.NewStdLog(logger.Named("goose")))
	} else {
		goose.SetLogger(goose.NopLogger())
	}
	if err := goose.SetDialect(gooseDialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, dir); err != nil {
		return fmt.Errorf("goose %s failed: %w", command, err)
	}
	return nil
}

func gooseParams(dialect string) (gooseDialect, dir string, err error) {
	switch dialect {
	case DialectPostgres, "":
		return "postgres", "postgres", nil
	case DialectSQLite:
		return "sqlite3", "sqlite", nil
	default:
		return "", "", fmt.Errorf("unsupported dialect %q", dialect)
	}
}

package dbmigrate

import (
	"fmt"

	"github.com/fdg312/meal-hub/internal/config"
)

// Target is the database a migration command runs against.
type Target struct {
	Dialect string
	DSN     string
	Source  string // env variable the DSN came from
}

// SelectTarget selects the database for migrations.
// Priority: DIRECT > DATABASE_URL > POOLED (with warning) > SQLITE_PATH.
// If requireDirect is true, only DATABASE_URL_DIRECT is accepted.
func SelectTarget(cfg *config.Config, requireDirect bool) (target Target, warning string, err error) {
	if requireDirect {
		if cfg.DatabaseURLDirect == "" {
			return Target{}, "", fmt.Errorf("DATABASE_URL_DIRECT is required for DDL/migrations")
		}
		return Target{Dialect: DialectPostgres, DSN: cfg.DatabaseURLDirect, Source: "DATABASE_URL_DIRECT"}, "", nil
	}

	switch {
	case cfg.DatabaseURLDirect != "":
		return Target{Dialect: DialectPostgres, DSN: cfg.DatabaseURLDirect, Source: "DATABASE_URL_DIRECT"}, "", nil
	case cfg.DatabaseURLRaw != "":
		return Target{Dialect: DialectPostgres, DSN: cfg.DatabaseURLRaw, Source: "DATABASE_URL"}, "", nil
	case cfg.DatabaseURLPooled != "":
		return Target{Dialect: DialectPostgres, DSN: cfg.DatabaseURLPooled, Source: "DATABASE_URL_POOLED"},
			"using pooled connection for DDL is not recommended; set DATABASE_URL_DIRECT", nil
	case cfg.SQLitePath != "":
		return Target{Dialect: DialectSQLite, DSN: cfg.SQLitePath, Source: "SQLITE_PATH"}, "", nil
	}

	return Target{}, "", fmt.Errorf("no database configured (set DATABASE_URL_DIRECT, DATABASE_URL or SQLITE_PATH)")
}

package dbmigrate

import (
	"testing"

	"github.com/fdg312/meal-hub/internal/config"
)

func TestSelectTarget_Priority(t *testing.T) {
	cfg := &config.Config{
		DatabaseURLDirect: "postgres://direct",
		DatabaseURLRaw:    "postgres://url",
		DatabaseURLPooled: "postgres://pooled",
		SQLitePath:        "/tmp/meal-hub.db",
	}

	target, warning, err := SelectTarget(cfg, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.DSN != "postgres://direct" || target.Source != "DATABASE_URL_DIRECT" || target.Dialect != DialectPostgres {
		t.Fatalf("expected direct URL, got %+v", target)
	}
	if warning != "" {
		t.Fatalf("unexpected warning: %q", warning)
	}
}

func TestSelectTarget_FallbackToDatabaseURL(t *testing.T) {
	cfg := &config.Config{
		DatabaseURLRaw:    "postgres://url",
		DatabaseURLPooled: "postgres://pooled",
	}

	target, warning, err := SelectTarget(cfg, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.DSN != "postgres://url" || target.Source != "DATABASE_URL" {
		t.Fatalf("expected DATABASE_URL, got %+v", target)
	}
	if warning != "" {
		t.Fatalf("unexpected warning: %q", warning)
	}
}

func TestSelectTarget_PooledWarning(t *testing.T) {
	cfg := &config.Config{
		DatabaseURLPooled: "postgres://pooled",
	}

	target, warning, err := SelectTarget(cfg, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.DSN != "postgres://pooled" || target.Source != "DATABASE_URL_POOLED" {
		t.Fatalf("expected pooled URL, got %+v", target)
	}
	if warning == "" {
		t.Fatal("expected warning for pooled DDL usage")
	}
}

func TestSelectTarget_SQLite(t *testing.T) {
	cfg := &config.Config{SQLitePath: "/data/meal-hub.db"}

	target, _, err := SelectTarget(cfg, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Dialect != DialectSQLite || target.DSN != "/data/meal-hub.db" {
		t.Fatalf("expected sqlite target, got %+v", target)
	}
}

func TestSelectTarget_RequireDirect(t *testing.T) {
	cfg := &config.Config{
		DatabaseURLRaw:    "postgres://url",
		DatabaseURLPooled: "postgres://pooled",
	}

	if _, _, err := SelectTarget(cfg, true); err == nil {
		t.Fatal("expected error when direct is required but missing")
	}
}

func TestSelectTarget_NothingConfigured(t *testing.T) {
	if _, _, err := SelectTarget(&config.Config{}, false); err == nil {
		t.Fatal("expected error without any database")
	}
}

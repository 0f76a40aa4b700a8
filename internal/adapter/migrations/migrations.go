// Package migrations holds the companies schema for every supported backend.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed sql
var files embed.FS

var dialects = map[string]goose.Dialect{
	"postgres":  goose.DialectPostgres,
	"sqlite":    goose.DialectSQLite3,
	"mysql":     goose.DialectMySQL,
	"sqlserver": goose.DialectMSSQL,
}

// Up applies all pending migrations for driver ("postgres", "sqlite", "mysql" or "sqlserver").
func Up(ctx context.Context, db *sql.DB, driver string, logger *zap.Logger) error {
	dialect, ok := dialects[driver]
	if !ok {
		return fmt.Errorf("no migrations for driver %q", driver)
	}
	fsys, err := fs.Sub(files, "sql/"+driver)
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		logger.Info("Applied migration", zap.String("driver", driver), zap.String("source", r.Source.Path), zap.Duration("duration", r.Duration))
	}
	return nil
}

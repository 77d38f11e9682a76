// Package backend selects the storage implementation named in the configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/hongminglow/citizen-portal/internal/config"
	"github.com/hongminglow/citizen-portal/internal/storage"
	"github.com/hongminglow/citizen-portal/internal/storage/postgres"
	"github.com/hongminglow/citizen-portal/internal/storage/sqlite"
)

// Open connects to the configured database and applies the schema.
func Open(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.DatabaseDriver {
	case config.DriverPostgres:
		store, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, nil
	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

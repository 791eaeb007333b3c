// Package backend opens the storage backend selected in the configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/fpachecos/dashboard-faturas/internal/config"
	"github.com/fpachecos/dashboard-faturas/internal/store"
	"github.com/fpachecos/dashboard-faturas/internal/store/filestore"
	"github.com/fpachecos/dashboard-faturas/internal/store/postgres"
	"github.com/fpachecos/dashboard-faturas/internal/store/supabase"
)

// Open returns the backend named by cfg.Backend. Relative file-backend
// directories are resolved against root.
func Open(ctx context.Context, cfg config.StorageConfig, root string) (store.Backend, error) {
	switch cfg.Backend {
	case "", config.BackendFile:
		dir := config.Resolve(root, cfg.DataDir)
		if dir == "" {
			dir = config.Resolve(root, "data")
		}
		return filestore.New(dir), nil
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend: %s is not set", config.EnvDatabaseURL)
		}
		s, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres backend: %w", err)
		}
		return s, nil
	case config.BackendSupabase:
		s, err := supabase.New(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseSchema)
		if err != nil {
			return nil, fmt.Errorf("supabase backend: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

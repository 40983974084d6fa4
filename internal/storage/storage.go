// Package storage picks and opens the repository backend named in the
// config. Both binaries go through Open so they always agree on where the
// data lives.
package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/zzzxajak-prog/FitnessApp/internal/config"
	"github.com/zzzxajak-prog/FitnessApp/internal/repository"
	"github.com/zzzxajak-prog/FitnessApp/internal/repository/jsonfile"
	sqliteRepo "github.com/zzzxajak-prog/FitnessApp/internal/repository/sqlite"
)

// Open returns the configured store. The caller must Close it.
func Open(cfg config.Config, logger *slog.Logger) (repository.Store, error) {
	switch cfg.Storage {
	case config.StorageJSON, "":
		store, err := jsonfile.New(cfg.DataDir, logger)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		return store, nil

	case config.StorageSQLite:
		path := cfg.SQLitePath()
		// os.MkdirAll creates all parent directories if needed (like `mkdir -p`).
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("storage: creating database directory: %w", err)
		}
		db, err := sqliteRepo.New(path, logger)
		if err != nil {
			return nil, fmt.Errorf("storage: %w", err)
		}
		return db, nil

	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Storage)
	}
}

// Describe returns where cfg's data lives, for log lines.
func Describe(cfg config.Config) string {
	if cfg.Storage == config.StorageSQLite {
		return cfg.SQLitePath()
	}
	return cfg.DataDir
}

package cmd

import (
	"fmt"
	"log/slog"

	"github.com/corpusd/corpusd/db"
	"github.com/corpusd/corpusd/internal/config"
)

// executeMigrate runs all pending database migrations and exits.
func executeMigrate() error {
	logger := initLogger()
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	logger.Info("migrations applied")
	return nil
}

package main

import (
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/at-ishikawa/leakdrill/internal/config"
	"github.com/at-ishikawa/leakdrill/internal/database"
	"github.com/at-ishikawa/leakdrill/internal/store"
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// openStore loads the configuration and opens the configured store.
// The returned close function is never nil.
func openStore() (*config.Config, store.Store, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	s, db, err := database.OpenStore(cfg.Database)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("database.OpenStore() > %w", err)
	}
	return cfg, s, func() { closeDB(db) }, nil
}

func closeDB(db *sqlx.DB) {
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
}

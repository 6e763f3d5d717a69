package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sagarc03/ossd"
	"github.com/sagarc03/ossd/config"
	"github.com/sagarc03/ossd/database"
	"github.com/sagarc03/ossd/filesystem"
)

// buildEngine wires the metadata repo and content store into an engine
// from the loaded configuration. The returned cleanup closes the database
// connection and the storage root.
func buildEngine(ctx context.Context, cfg *config.Config) (*ossd.Engine, func(), error) {
	repo, closeDB, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	slog.Info("connected to database", "type", cfg.Database.Type, "table", cfg.Database.Table)

	if err = os.MkdirAll(cfg.Storage.Path, 0o750); err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("create storage directory: %w", err)
	}

	root, err := os.OpenRoot(cfg.Storage.Path)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("open storage root: %w", err)
	}

	store := filesystem.NewStore(root)

	engine, err := ossd.NewEngine(repo, store, ossd.EngineConfig{
		CleanupTimeout: time.Duration(cfg.Engine.CleanupTimeout) * time.Second,
	})
	if err != nil {
		_ = root.Close()
		closeDB()
		return nil, nil, fmt.Errorf("create engine: %w", err)
	}

	cleanup := func() {
		_ = root.Close()
		closeDB()
	}

	return engine, cleanup, nil
}

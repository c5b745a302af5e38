package cmd

import (
	"context"
	"errors"

	"github.com/ixra/ixra-api/internal/config"
	"github.com/ixra/ixra-api/internal/core/store"
)

var errMemoryStore = errors.New("store.driver is memory: rate limits live inside the running server and leads are not stored; configure libsql or postgres to inspect them")

// openStore connects to the configured SQL store and applies migrations.
func openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	if cfg.Store.Driver == config.StoreMemory {
		return nil, errMemoryStore
	}

	db, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// openConfiguredStore loads config and opens the SQL store for admin commands.
func openConfiguredStore(ctx context.Context) (*store.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return openStore(ctx, cfg)
}

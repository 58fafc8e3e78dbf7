package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
)

// initStorage initializes the storage service with proper path expansion.
func initStorage(ctx context.Context) (service.Storage, error) {
	// Get database path from config
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = config.DefaultDatabasePath()
	}

	// Expand tilde and environment variables
	dbPath = config.ExpandPath(dbPath)

	// Initialize storage
	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newEngine builds a journal engine using the configured worker settings.
func newEngine(store service.Storage) *engine.JournalEngine {
	return engine.NewWithConfig(store, engine.Config{
		Workers:       viper.GetInt("engine.workers"),
		CreateRetries: viper.GetInt("engine.create_retries"),
	})
}

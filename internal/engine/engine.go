// Package engine turns stored payments into balanced journal entries and
// drives journal batches through their lifecycle.
package engine

import (
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/service"
)

// JournalEngine orchestrates mapping resolution, entry generation and batch
// aggregation over a Storage.
type JournalEngine struct {
	storage       service.Storage
	now           func() time.Time
	workers       int
	createRetries int
}

// Config holds configuration options for the journal engine.
type Config struct {
	// Workers bounds how many transactions are attached concurrently.
	Workers int
	// CreateRetries bounds attempts to open a draft batch when racing
	// another caller.
	CreateRetries int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Workers:       4,
		CreateRetries: 3,
	}
}

// New creates a new journal engine with the default configuration.
func New(storage service.Storage) *JournalEngine {
	return NewWithConfig(storage, DefaultConfig())
}

// NewWithConfig creates a new journal engine with custom configuration.
func NewWithConfig(storage service.Storage, config Config) *JournalEngine {
	defaults := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.CreateRetries <= 0 {
		config.CreateRetries = defaults.CreateRetries
	}

	return &JournalEngine{
		storage:       storage,
		now:           time.Now,
		workers:       config.Workers,
		createRetries: config.CreateRetries,
	}
}

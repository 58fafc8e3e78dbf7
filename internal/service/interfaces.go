// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Program mapping operations
	GetProgramMapping(ctx context.Context, programName string) (*model.ProgramMapping, error)
	GetProgramMappings(ctx context.Context) ([]model.ProgramMapping, error)
	SaveProgramMapping(ctx context.Context, mapping *model.ProgramMapping) error
	DeleteProgramMapping(ctx context.Context, programName string) error

	// Transaction operations
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetUnprocessedTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransactionsByBatch(ctx context.Context, batchID string) ([]model.Transaction, error)
	GetTransactionByPaymentID(ctx context.Context, paymentID string) (*model.Transaction, error)

	// Journal entry operations
	AttachTransaction(ctx context.Context, batchID, transactionID string, entries []model.JournalEntry) error
	GetEntriesByBatch(ctx context.Context, batchID string) ([]model.JournalEntryLine, error)

	// Batch operations
	GetDraftBatches(ctx context.Context) ([]model.JournalBatch, error)
	GetBatch(ctx context.Context, id string) (*model.JournalBatch, error)
	ListBatches(ctx context.Context, filter BatchFilter) ([]model.JournalBatch, error)
	CreateDraftBatch(ctx context.Context, batch *model.JournalBatch) error
	ExtendDraftBatch(ctx context.Context, id string, count int, amount int64, at time.Time) (*model.JournalBatch, error)
	RecalculateBatchTotals(ctx context.Context, id string, at time.Time) (*model.JournalBatch, error)
	CompleteBatch(ctx context.Context, id string, at time.Time) (*model.JournalBatch, error)
	CancelBatch(ctx context.Context, id string) (*CancelResult, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// BatchFilter defines filtering options for batch queries.
type BatchFilter struct {
	Status model.BatchStatus
	Limit  int
}

// CancelResult reports what a batch cancellation rolled back.
type CancelResult struct {
	BatchID           string
	EntriesDeleted    int
	TransactionsReset int
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

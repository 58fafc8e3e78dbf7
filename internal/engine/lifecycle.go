package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
)

// ErrNoEntries reports a batch with nothing to export. It matches common.ErrNotFound.
var ErrNoEntries = fmt.Errorf("%w: no journal entries found for this batch", common.ErrNotFound)

// CompleteBatch closes a draft batch. Completed batches accept no further
// transactions and their totals are frozen.
func (e *JournalEngine) CompleteBatch(ctx context.Context, batchID string) (*model.JournalBatch, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, fmt.Errorf("%w: batch id is required", common.ErrNotFound)
	}

	batch, err := e.storage.CompleteBatch(ctx, batchID, e.now().UTC())
	if err != nil {
		return nil, err
	}

	slog.Info("Completed journal batch",
		"batch_id", batch.ID,
		"total_transactions", batch.TotalTransactions,
		"total_amount", batch.TotalAmount)
	return batch, nil
}

// CancelBatch deletes a draft batch with its entries and returns its
// transactions to the pending pool.
func (e *JournalEngine) CancelBatch(ctx context.Context, batchID string) (*service.CancelResult, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, fmt.Errorf("%w: batch id is required", common.ErrNotFound)
	}

	result, err := e.storage.CancelBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	slog.Info("Canceled journal batch",
		"batch_id", batchID,
		"entries_deleted", result.EntriesDeleted,
		"transactions_reset", result.TransactionsReset)
	return result, nil
}

// BatchEntries loads a batch and its entries for export.
func (e *JournalEngine) BatchEntries(ctx context.Context, batchID string) (*model.JournalBatch, []model.JournalEntryLine, error) {
	if strings.TrimSpace(batchID) == "" {
		return nil, nil, fmt.Errorf("%w: batch id is required", common.ErrNotFound)
	}

	batch, err := e.storage.GetBatch(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}

	lines, err := e.storage.GetEntriesByBatch(ctx, batchID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load journal entries: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil, ErrNoEntries
	}

	return batch, lines, nil
}

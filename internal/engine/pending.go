package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// PendingSummary lists the transactions the next batch run would pick up.
type PendingSummary struct {
	Transactions []model.Transaction
	TotalAmount  int64
}

// PendingTransactions returns the pending transactions newest first.
func (e *JournalEngine) PendingTransactions(ctx context.Context) (*PendingSummary, error) {
	unprocessed, err := e.storage.GetUnprocessedTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending transactions: %w", err)
	}

	pending := make([]model.Transaction, 0, len(unprocessed))
	for _, txn := range unprocessed {
		if txn.IsPending() {
			pending = append(pending, txn)
		}
	}

	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})

	return &PendingSummary{
		Transactions: pending,
		TotalAmount:  model.SumAmounts(pending),
	}, nil
}

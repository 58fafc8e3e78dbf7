package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// SyncResult summarizes a payment sync.
type SyncResult struct {
	Source   string
	Fetched  int
	Inserted int
	Skipped  int
}

// SyncPayments fetches payments from source and stores the ones not seen
// before as pending transactions.
func (e *JournalEngine) SyncPayments(ctx context.Context, source PaymentSource) (*SyncResult, error) {
	payments, err := source.FetchPayments(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrPaymentSource, source.Name(), err)
	}

	result := &SyncResult{Source: source.Name(), Fetched: len(payments)}

	transactions := make([]model.Transaction, 0, len(payments))
	seen := make(map[string]bool, len(payments))
	for _, p := range payments {
		if strings.TrimSpace(p.PaymentID) == "" {
			slog.Warn("Skipping payment without ID", "source", source.Name())
			continue
		}
		if seen[p.PaymentID] {
			continue
		}
		seen[p.PaymentID] = true
		transactions = append(transactions, toTransaction(p))
	}

	if len(transactions) > 0 {
		inserted, err := e.storage.SaveTransactions(ctx, transactions)
		if err != nil {
			return nil, fmt.Errorf("failed to save transactions: %w", err)
		}
		result.Inserted = inserted
	}
	result.Skipped = result.Fetched - result.Inserted

	slog.Info("Synced payments",
		"source", result.Source,
		"fetched", result.Fetched,
		"inserted", result.Inserted,
		"skipped", result.Skipped)

	return result, nil
}

func toTransaction(p model.Payment) model.Transaction {
	program := p.ProgramName
	if strings.TrimSpace(program) == "" {
		program = model.UnknownProgram
	}

	return model.Transaction{
		PaymentID:   p.PaymentID,
		ProgramName: program,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      p.Status,
		CreatedAt:   p.Created,
	}
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// AggregationResult summarizes a create-or-extend batch run.
type AggregationResult struct {
	Batch        *model.JournalBatch
	ErrorDetails []string
	Processed    int
	Errors       int
	Created      bool
}

// attachFailure records one transaction that could not be attached.
type attachFailure struct {
	err   error
	txn   model.Transaction
	index int
}

// CreateOrExtendBatch moves every pending transaction into the draft batch,
// creating the draft when none exists. Each transaction is attached
// independently; failures are reported in the result and leave the
// transaction pending for a later run. Returns common.ErrNoPendingTransactions
// without touching any batch when nothing is pending.
func (e *JournalEngine) CreateOrExtendBatch(ctx context.Context) (*AggregationResult, error) {
	pending, err := e.storage.GetUnprocessedTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil, common.ErrNoPendingTransactions
	}

	slog.Info("Aggregating pending transactions", "count", len(pending))

	batch, created, err := e.openDraft(ctx, pending)
	if err != nil {
		return nil, err
	}

	result := &AggregationResult{Batch: batch, Created: created}

	failures := e.attachAll(ctx, batch.ID, pending)
	result.Errors = len(failures)
	result.Processed = len(pending) - len(failures)
	for _, f := range failures {
		result.ErrorDetails = append(result.ErrorDetails,
			fmt.Sprintf("Error processing transaction %s: %v", f.txn.ID, f.err))
	}

	// The upfront totals assumed every transaction would attach.
	recalculated, err := e.storage.RecalculateBatchTotals(ctx, batch.ID, e.now().UTC())
	if err != nil {
		return result, fmt.Errorf("failed to recalculate batch totals: %w", err)
	}
	result.Batch = recalculated

	slog.Info("Journal batch updated",
		"batch_id", recalculated.ID,
		"created", created,
		"processed", result.Processed,
		"errors", result.Errors,
		"total_transactions", recalculated.TotalTransactions,
		"total_amount", recalculated.TotalAmount)

	return result, nil
}

// openDraft extends the existing draft batch by the pending set or creates
// one seeded from it.
func (e *JournalEngine) openDraft(ctx context.Context, pending []model.Transaction) (*model.JournalBatch, bool, error) {
	count := len(pending)
	amount := model.SumAmounts(pending)

	for attempt := 1; attempt <= e.createRetries; attempt++ {
		now := e.now().UTC()

		drafts, err := e.storage.GetDraftBatches(ctx)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load draft batches: %w", err)
		}

		switch len(drafts) {
		case 0:
			batch := &model.JournalBatch{
				Name:              model.BatchName(now, count),
				TotalTransactions: count,
				TotalAmount:       amount,
				CreatedAt:         now,
			}
			err := e.storage.CreateDraftBatch(ctx, batch)
			if errors.Is(err, common.ErrDuplicateEntry) {
				slog.Debug("Draft batch created concurrently, retrying", "attempt", attempt)
				continue
			}
			if err != nil {
				return nil, false, fmt.Errorf("failed to create draft batch: %w", err)
			}
			return batch, true, nil

		case 1:
			batch, err := e.storage.ExtendDraftBatch(ctx, drafts[0].ID, count, amount, now)
			if errors.Is(err, common.ErrNotFound) {
				slog.Debug("Draft batch closed concurrently, retrying",
					"batch_id", drafts[0].ID,
					"attempt", attempt)
				continue
			}
			if err != nil {
				return nil, false, fmt.Errorf("failed to extend draft batch: %w", err)
			}
			return batch, false, nil

		default:
			return nil, false, fmt.Errorf("%w: found %d", common.ErrMultipleDraftBatches, len(drafts))
		}
	}

	return nil, false, fmt.Errorf("failed to open a draft batch after %d attempts", e.createRetries)
}

// attachAll resolves, generates and attaches each transaction on a bounded
// worker pool. Failures are returned in input order.
func (e *JournalEngine) attachAll(ctx context.Context, batchID string, pending []model.Transaction) []attachFailure {
	var (
		mu       sync.Mutex
		failures []attachFailure
	)
	resolver := NewResolver(newMappingMemo(e.storage))

	p := pool.New().WithMaxGoroutines(e.workers)
	for i, txn := range pending {
		p.Go(func() {
			if err := e.attach(ctx, resolver, batchID, txn); err != nil {
				slog.Warn("Failed to attach transaction",
					"transaction_id", txn.ID,
					"payment_id", txn.PaymentID,
					"error", err)
				mu.Lock()
				failures = append(failures, attachFailure{index: i, txn: txn, err: err})
				mu.Unlock()
			}
		})
	}
	p.Wait()

	sort.Slice(failures, func(a, b int) bool {
		return failures[a].index < failures[b].index
	})
	return failures
}

func (e *JournalEngine) attach(ctx context.Context, resolver *Resolver, batchID string, txn model.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !txn.IsPending() {
		return fmt.Errorf("transaction %s is already in batch %s", txn.ID, txn.BatchID)
	}

	mapping := resolver.Resolve(ctx, txn.ProgramName)
	debit, credit := GenerateEntries(txn, mapping)

	return e.storage.AttachTransaction(ctx, batchID, txn.ID, []model.JournalEntry{debit, credit})
}

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
)

func createDraft(t *testing.T, store *SQLiteStorage, count int, amount int64) *model.JournalBatch {
	t.Helper()
	batch := &model.JournalBatch{
		Name:              model.BatchName(time.Now(), count),
		TotalTransactions: count,
		TotalAmount:       amount,
	}
	require.NoError(t, store.CreateDraftBatch(context.Background(), batch))
	return batch
}

func TestSQLiteStorage_CreateDraftBatch(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := createDraft(t, store, 2, 3000)
	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, model.BatchDraft, batch.Status)

	got, err := store.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, batch.Name, got.Name)
	assert.Equal(t, 2, got.TotalTransactions)
	assert.Equal(t, int64(3000), got.TotalAmount)
	assert.Nil(t, got.CompletedAt)

	t.Run("second draft rejected", func(t *testing.T) {
		err := store.CreateDraftBatch(ctx, &model.JournalBatch{Name: "another"})
		assert.ErrorIs(t, err, common.ErrDuplicateEntry)

		drafts, err := store.GetDraftBatches(ctx)
		require.NoError(t, err)
		assert.Len(t, drafts, 1)
	})

	t.Run("draft allowed once previous completed", func(t *testing.T) {
		_, err := store.CompleteBatch(ctx, batch.ID, time.Now())
		require.NoError(t, err)

		next := createDraft(t, store, 1, 100)
		assert.NotEqual(t, batch.ID, next.ID)
	})

	t.Run("invalid batch", func(t *testing.T) {
		assert.ErrorIs(t, store.CreateDraftBatch(ctx, nil), ErrNilParameter)
		assert.ErrorIs(t, store.CreateDraftBatch(ctx, &model.JournalBatch{}), ErrInvalidBatch)
	})
}

func TestSQLiteStorage_ExtendDraftBatch(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	batch := createDraft(t, store, 2, 3000)
	day := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	extended, err := store.ExtendDraftBatch(ctx, batch.ID, 3, 4500, day)
	require.NoError(t, err)
	assert.Equal(t, 5, extended.TotalTransactions)
	assert.Equal(t, int64(7500), extended.TotalAmount)
	assert.Equal(t, "Journal Entry 2026-03-14 - 5 transactions", extended.Name)

	got, err := store.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, extended.Name, got.Name)

	completed, err := store.CompleteBatch(ctx, batch.ID, day)
	require.NoError(t, err)

	_, err = store.ExtendDraftBatch(ctx, batch.ID, 1, 100, day)
	assert.ErrorIs(t, err, common.ErrNotFound)

	got, err = store.GetBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, completed.TotalTransactions, got.TotalTransactions, "completed batch totals must not change")
	assert.Equal(t, completed.TotalAmount, got.TotalAmount)
}

func TestSQLiteStorage_RecalculateBatchTotals(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	stored := seedTransactions(t, store, createTestTransactions(3, "Yoga"))
	// Seeded with inflated totals, as after a partially failed run.
	batch := createDraft(t, store, 3, 6000)

	for _, txn := range stored[:2] {
		require.NoError(t, store.AttachTransaction(ctx, batch.ID, txn.ID, balancedEntries(txn)))
	}

	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	got, err := store.RecalculateBatchTotals(ctx, batch.ID, day)
	require.NoError(t, err)
	assert.Equal(t, 2, got.TotalTransactions)
	assert.Equal(t, stored[0].Amount+stored[1].Amount, got.TotalAmount)
	assert.Equal(t, "Journal Entry 2026-03-14 - 2 transactions", got.Name)

	t.Run("completed batch unchanged", func(t *testing.T) {
		_, err := store.CompleteBatch(ctx, batch.ID, day)
		require.NoError(t, err)

		_, err = store.db.ExecContext(ctx, `UPDATE journal_batches SET total_amount = 1 WHERE id = ?`, batch.ID)
		require.NoError(t, err)

		got, err := store.RecalculateBatchTotals(ctx, batch.ID, day)
		require.NoError(t, err)
		assert.Equal(t, int64(1), got.TotalAmount)
	})

	t.Run("missing batch", func(t *testing.T) {
		_, err := store.RecalculateBatchTotals(ctx, "missing", day)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestSQLiteStorage_CompleteBatch(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	stored := seedTransactions(t, store, createTestTransactions(3, "Yoga"))
	// The upfront totals count all three; only two get attached.
	batch := createDraft(t, store, 3, model.SumAmounts(stored))
	for _, txn := range stored[:2] {
		require.NoError(t, store.AttachTransaction(ctx, batch.ID, txn.ID, balancedEntries(txn)))
	}
	at := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

	completed, err := store.CompleteBatch(ctx, batch.ID, at)
	require.NoError(t, err)
	assert.Equal(t, model.BatchCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	assert.True(t, completed.CompletedAt.Equal(at))
	assert.Equal(t, 2, completed.TotalTransactions)
	assert.Equal(t, stored[0].Amount+stored[1].Amount, completed.TotalAmount)

	err = store.AttachTransaction(ctx, batch.ID, stored[2].ID, balancedEntries(stored[2]))
	assert.ErrorIs(t, err, common.ErrBatchNotDraft)

	_, err = store.CompleteBatch(ctx, batch.ID, at)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.CompleteBatch(ctx, "missing", at)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestSQLiteStorage_CancelBatch(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	stored := seedTransactions(t, store, createTestTransactions(3, "Yoga"))
	batch := createDraft(t, store, 3, 6000)
	for _, txn := range stored {
		require.NoError(t, store.AttachTransaction(ctx, batch.ID, txn.ID, balancedEntries(txn)))
	}

	result, err := store.CancelBatch(ctx, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, &service.CancelResult{BatchID: batch.ID, EntriesDeleted: 6, TransactionsReset: 3}, result)

	_, err = store.GetBatch(ctx, batch.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	pending, err := store.GetUnprocessedTransactions(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	var entries int
	require.NoError(t, store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM journal_entries`).Scan(&entries))
	assert.Zero(t, entries)

	t.Run("twice", func(t *testing.T) {
		_, err := store.CancelBatch(ctx, batch.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("completed batch", func(t *testing.T) {
		completed := createDraft(t, store, 0, 0)
		_, err := store.CompleteBatch(ctx, completed.ID, time.Now())
		require.NoError(t, err)

		_, err = store.CancelBatch(ctx, completed.ID)
		assert.ErrorIs(t, err, common.ErrNotFound)

		_, err = store.GetBatch(ctx, completed.ID)
		assert.NoError(t, err)
	})
}

func TestSQLiteStorage_ListBatches(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	first := createDraft(t, store, 1, 100)
	_, err := store.CompleteBatch(ctx, first.ID, time.Now())
	require.NoError(t, err)

	second := &model.JournalBatch{Name: "second", CreatedAt: first.CreatedAt.Add(time.Minute)}
	require.NoError(t, store.CreateDraftBatch(ctx, second))

	tests := []struct {
		name    string
		filter  service.BatchFilter
		wantIDs []string
	}{
		{name: "all newest first", wantIDs: []string{second.ID, first.ID}},
		{name: "drafts", filter: service.BatchFilter{Status: model.BatchDraft}, wantIDs: []string{second.ID}},
		{name: "completed", filter: service.BatchFilter{Status: model.BatchCompleted}, wantIDs: []string{first.ID}},
		{name: "limit", filter: service.BatchFilter{Limit: 1}, wantIDs: []string{second.ID}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			batches, err := store.ListBatches(ctx, tt.filter)
			require.NoError(t, err)

			ids := make([]string, len(batches))
			for i, b := range batches {
				ids[i] = b.ID
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

func TestSQLiteStorage_SaveTransactions(t *testing.T) {
	tests := []struct {
		setup        func(*testing.T, *SQLiteStorage)
		name         string
		transactions []model.Transaction
		wantInserted int
		wantPending  int
		wantErr      error
	}{
		{
			name:         "save new transactions",
			transactions: createTestTransactions(3, "Yoga"),
			wantInserted: 3,
			wantPending:  3,
		},
		{
			name: "existing payment IDs are skipped",
			setup: func(t *testing.T, s *SQLiteStorage) {
				t.Helper()
				_, err := s.SaveTransactions(context.Background(), createTestTransactions(2, "Yoga"))
				require.NoError(t, err)
			},
			transactions: createTestTransactions(3, "Yoga"),
			wantInserted: 1,
			wantPending:  3,
		},
		{
			name: "duplicates within one call insert once",
			transactions: append(
				createTestTransactions(1, "Yoga"),
				createTestTransactions(1, "Yoga")...,
			),
			wantInserted: 1,
			wantPending:  1,
		},
		{
			name:         "empty slice",
			transactions: []model.Transaction{},
			wantErr:      ErrEmptySlice,
		},
		{
			name:         "nil slice",
			transactions: nil,
			wantErr:      ErrNilParameter,
		},
		{
			name:         "missing payment ID",
			transactions: []model.Transaction{{ProgramName: "Yoga", Amount: 100}},
			wantErr:      ErrInvalidTransaction,
		},
		{
			name:         "negative amount",
			transactions: []model.Transaction{{PaymentID: "ch_1", Amount: -1}},
			wantErr:      ErrInvalidTransaction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, cleanup := createTestStorage(t)
			defer cleanup()
			ctx := context.Background()

			if tt.setup != nil {
				tt.setup(t, store)
			}

			inserted, err := store.SaveTransactions(ctx, tt.transactions)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantInserted, inserted)

			pending, err := store.GetUnprocessedTransactions(ctx)
			require.NoError(t, err)
			assert.Len(t, pending, tt.wantPending)
			for _, txn := range pending {
				assert.False(t, txn.Processed)
				assert.Empty(t, txn.BatchID)
				assert.NotEmpty(t, txn.ID)
			}
		})
	}
}

func TestSQLiteStorage_SaveTransactionsIgnoresProcessedFlag(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(1, "Yoga")
	txns[0].Processed = true
	txns[0].BatchID = "not-a-batch"

	_, err := store.SaveTransactions(ctx, txns)
	require.NoError(t, err)

	got, err := store.GetTransactionByPaymentID(ctx, txns[0].PaymentID)
	require.NoError(t, err)
	assert.False(t, got.Processed)
	assert.Empty(t, got.BatchID)
}

func TestSQLiteStorage_GetUnprocessedTransactionsOrder(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(3, "Yoga")
	// Save newest first; results come back oldest first.
	_, err := store.SaveTransactions(ctx, []model.Transaction{txns[2], txns[0], txns[1]})
	require.NoError(t, err)

	pending, err := store.GetUnprocessedTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, txns[0].PaymentID, pending[0].PaymentID)
	assert.Equal(t, txns[1].PaymentID, pending[1].PaymentID)
	assert.Equal(t, txns[2].PaymentID, pending[2].PaymentID)
	assert.Equal(t, int64(1000), pending[0].Amount)
	assert.Equal(t, "usd", pending[0].Currency)
}

func TestSQLiteStorage_GetTransactionByPaymentID(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.GetTransactionByPaymentID(ctx, "ch_missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.GetTransactionByPaymentID(ctx, " ")
	assert.ErrorIs(t, err, ErrEmptyString)
}

func TestSQLiteStorage_GetTransactionsByBatch(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	stored := seedTransactions(t, store, createTestTransactions(3, "Yoga"))
	batch := &model.JournalBatch{Name: "Journal Entry", TotalTransactions: 2}
	require.NoError(t, store.CreateDraftBatch(ctx, batch))

	for _, txn := range stored[:2] {
		require.NoError(t, store.AttachTransaction(ctx, batch.ID, txn.ID, balancedEntries(txn)))
	}

	attached, err := store.GetTransactionsByBatch(ctx, batch.ID)
	require.NoError(t, err)
	require.Len(t, attached, 2)
	for _, txn := range attached {
		assert.True(t, txn.Processed)
		assert.Equal(t, batch.ID, txn.BatchID)
	}

	pending, err := store.GetUnprocessedTransactions(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, stored[2].ID, pending[0].ID)
}

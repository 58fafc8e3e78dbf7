package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
)

var fixedNow = time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)

func newTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	db, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func newTestEngine(store service.Storage) *JournalEngine {
	e := New(store)
	e.now = func() time.Time { return fixedNow }
	return e
}

func savePending(t *testing.T, store service.Storage, program string, amounts ...int64) []model.Transaction {
	t.Helper()
	ctx := context.Background()

	txns := make([]model.Transaction, len(amounts))
	for i, amount := range amounts {
		txns[i] = model.Transaction{
			PaymentID:   fmt.Sprintf("ch_%s_%d_%d", program, amount, i),
			ProgramName: program,
			Amount:      amount,
			Currency:    "usd",
			Status:      "succeeded",
		}
	}
	_, err := store.SaveTransactions(ctx, txns)
	require.NoError(t, err)
	return txns
}

func saveMapping(t *testing.T, store service.Storage, program string) *model.ProgramMapping {
	t.Helper()
	mapping := &model.ProgramMapping{
		ProgramName: program,
		Debit:       model.AccountCode{Entity: "10", Org: "100", Funding: "2000", Activity: "ED", Subactivity: "01", NaturalClass: "1010"},
		Credit:      model.AccountCode{Entity: "10", Org: "100", Funding: "2000", Activity: "ED", Subactivity: "01", NaturalClass: "4010"},
	}
	require.NoError(t, store.SaveProgramMapping(context.Background(), mapping))
	return mapping
}

// requireTotalsMatch checks batch totals against the transactions that reference it.
func requireTotalsMatch(t *testing.T, store service.Storage, batchID string) *model.JournalBatch {
	t.Helper()
	ctx := context.Background()

	batch, err := store.GetBatch(ctx, batchID)
	require.NoError(t, err)

	attached, err := store.GetTransactionsByBatch(ctx, batchID)
	require.NoError(t, err)

	require.Equal(t, len(attached), batch.TotalTransactions)
	require.Equal(t, model.SumAmounts(attached), batch.TotalAmount)
	return batch
}

// flakyStorage wraps a Storage and injects failures.
type flakyStorage struct {
	service.Storage
	failAttach    map[string]error
	drafts        func(ctx context.Context) ([]model.JournalBatch, error)
	beforeAttach  func(ctx context.Context, batchID string)
	mappingCalls  map[string]int
	attachCalls   []string
	hiddenDrafts  int
	mu            sync.Mutex
	failMappingIO bool
}

func (f *flakyStorage) AttachTransaction(ctx context.Context, batchID, transactionID string, entries []model.JournalEntry) error {
	if f.beforeAttach != nil {
		f.beforeAttach(ctx, batchID)
	}

	f.mu.Lock()
	f.attachCalls = append(f.attachCalls, transactionID)
	err := f.failAttach[transactionID]
	f.mu.Unlock()

	if err != nil {
		return err
	}
	return f.Storage.AttachTransaction(ctx, batchID, transactionID, entries)
}

func (f *flakyStorage) GetDraftBatches(ctx context.Context) ([]model.JournalBatch, error) {
	if f.drafts != nil {
		return f.drafts(ctx)
	}
	f.mu.Lock()
	hide := f.hiddenDrafts > 0
	if hide {
		f.hiddenDrafts--
	}
	f.mu.Unlock()

	if hide {
		return nil, nil
	}
	return f.Storage.GetDraftBatches(ctx)
}

func (f *flakyStorage) GetProgramMapping(ctx context.Context, programName string) (*model.ProgramMapping, error) {
	f.mu.Lock()
	if f.mappingCalls == nil {
		f.mappingCalls = make(map[string]int)
	}
	f.mappingCalls[programName]++
	f.mu.Unlock()

	if f.failMappingIO {
		return nil, fmt.Errorf("database is locked")
	}
	return f.Storage.GetProgramMapping(ctx, programName)
}

// MockPaymentSource is a test implementation of PaymentSource with call tracking.
type MockPaymentSource struct {
	err      error
	payments []model.Payment
	calls    int
	mu       sync.Mutex
}

func (m *MockPaymentSource) FetchPayments(_ context.Context) ([]model.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.payments, nil
}

func (m *MockPaymentSource) Name() string {
	return "mock"
}

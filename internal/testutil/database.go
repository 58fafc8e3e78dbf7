// Package testutil provides test databases seeded with program mappings and
// pending transactions.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/storage"
	"github.com/Veraticus/the-books-must-balance/internal/testutil/mappings"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage  *storage.SQLiteStorage
	t        *testing.T
	Mappings mappings.Mappings
}

// SetupTestDB creates a new in-memory test database holding the given
// mappings. It automatically handles migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t,
//		mappings.NewBuilder(t).
//			WithBasicPrograms().
//			Build(),
//	)
func SetupTestDB(t *testing.T, seed mappings.Mappings) *TestDB {
	t.Helper()

	// Create in-memory SQLite storage
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	// Register cleanup
	t.Cleanup(func() {
		_ = store.Close()
	})

	// Run migrations
	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	for i := range seed {
		if err := store.SaveProgramMapping(ctx, &seed[i]); err != nil {
			t.Fatalf("failed to seed mapping %q: %v", seed[i].ProgramName, err)
		}
	}

	return &TestDB{
		Storage:  store,
		Mappings: seed,
		t:        t,
	}
}

// SetupTestDBWithBuilder creates a test database using a mapping builder.
//
// Example:
//
//	db := testutil.SetupTestDBWithBuilder(t, func(b mappings.Builder) mappings.Builder {
//		return b.WithBasicPrograms().WithUnmappedCredit(mappings.ProgramDonations)
//	})
func SetupTestDBWithBuilder(t *testing.T, configure func(mappings.Builder) mappings.Builder) *TestDB {
	t.Helper()

	builder := mappings.NewBuilder(t)
	if configure != nil {
		builder = configure(builder)
	}
	return SetupTestDB(t, builder.Build())
}

// SeedTransactions stores pending transactions for the given payments and
// returns them as stored.
func (db *TestDB) SeedTransactions(payments ...model.Payment) []model.Transaction {
	db.t.Helper()
	ctx := context.Background()

	transactions := make([]model.Transaction, 0, len(payments))
	for _, p := range payments {
		transactions = append(transactions, model.Transaction{
			PaymentID:   p.PaymentID,
			ProgramName: p.ProgramName,
			Amount:      p.Amount,
			Currency:    p.Currency,
			Status:      p.Status,
			CreatedAt:   p.Created,
		})
	}

	if _, err := db.Storage.SaveTransactions(ctx, transactions); err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}

	pending, err := db.Storage.GetUnprocessedTransactions(ctx)
	if err != nil {
		db.t.Fatalf("failed to load seeded transactions: %v", err)
	}
	return pending
}

// Payment builds a succeeded USD payment.
func Payment(id string, program mappings.ProgramName, cents int64) model.Payment {
	return model.Payment{
		PaymentID:   id,
		ProgramName: program.String(),
		Amount:      cents,
		Currency:    "usd",
		Status:      "succeeded",
	}
}

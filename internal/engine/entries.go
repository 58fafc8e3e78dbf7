package engine

import (
	"github.com/google/uuid"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// GenerateEntries builds the balanced debit/credit pair for a transaction.
// Both entries carry the full transaction amount. Unmapped results produce
// blank account codes. The batch ID is assigned when the pair is attached.
func GenerateEntries(txn model.Transaction, result model.MappingResult) (debit, credit model.JournalEntry) {
	debitCode, creditCode := result.Codes()

	debit = model.JournalEntry{
		ID:            uuid.NewString(),
		TransactionID: txn.ID,
		EntryType:     model.EntryDebit,
		AccountCode:   debitCode,
		Amount:        txn.Amount,
	}
	credit = model.JournalEntry{
		ID:            uuid.NewString(),
		TransactionID: txn.ID,
		EntryType:     model.EntryCredit,
		AccountCode:   creditCode,
		Amount:        txn.Amount,
	}
	return debit, credit
}

package model

import "time"

// EntryType is the side of a ledger posting.
type EntryType string

// Entry type constants.
const (
	EntryDebit  EntryType = "debit"
	EntryCredit EntryType = "credit"
)

// JournalEntry is one side of a balanced ledger posting.
type JournalEntry struct {
	CreatedAt     time.Time
	ID            string
	TransactionID string
	BatchID       string
	EntryType     EntryType
	AccountCode   AccountCode
	Amount        int64 // minor units
}

// JournalEntryLine is a journal entry joined with its transaction's program.
type JournalEntryLine struct {
	ProgramName string
	JournalEntry
}

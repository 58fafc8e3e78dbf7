package model

import (
	"fmt"
	"time"
)

// BatchStatus is the lifecycle state of a journal batch.
type BatchStatus string

// Batch status constants. Canceled batches are deleted rather than stored.
const (
	BatchDraft     BatchStatus = "draft"
	BatchCompleted BatchStatus = "completed"
)

// JournalBatch groups the journal entries of a set of transactions.
type JournalBatch struct {
	CreatedAt         time.Time
	CompletedAt       *time.Time
	ID                string
	Name              string
	Status            BatchStatus
	TotalAmount       int64 // minor units
	TotalTransactions int
}

// IsDraft reports whether the batch is still open.
func (b *JournalBatch) IsDraft() bool {
	return b.Status == BatchDraft
}

// BatchName renders the display name for a batch on the given day.
func BatchName(day time.Time, totalTransactions int) string {
	return fmt.Sprintf("Journal Entry %s - %d transactions", day.Format("2006-01-02"), totalTransactions)
}

package model

import "time"

// UnknownProgram is used when a payment carries no program name.
const UnknownProgram = "Unknown Program"

// Payment is a payment record as delivered by a payment source.
type Payment struct {
	Created     time.Time
	PaymentID   string
	ProgramName string
	Currency    string
	Status      string
	Amount      int64 // minor units
}

// Transaction is a stored payment awaiting or having received journal entries.
// Processed and BatchID are always set and cleared together.
type Transaction struct {
	CreatedAt   time.Time
	ID          string
	PaymentID   string
	ProgramName string
	Currency    string
	Status      string
	BatchID     string
	Amount      int64 // minor units
	Processed   bool
}

// IsPending reports whether the transaction can be aggregated into a batch.
func (t *Transaction) IsPending() bool {
	return !t.Processed && t.BatchID == ""
}

// SumAmounts totals the amounts of the given transactions.
func SumAmounts(transactions []Transaction) int64 {
	var total int64
	for _, txn := range transactions {
		total += txn.Amount
	}
	return total
}

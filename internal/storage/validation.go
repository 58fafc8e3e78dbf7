package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidMapping     = errors.New("invalid program mapping")
	ErrInvalidEntry       = errors.New("invalid journal entry")
	ErrInvalidBatch       = errors.New("invalid journal batch")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if strings.TrimSpace(txn.PaymentID) == "" {
		return fmt.Errorf("%w: missing payment ID", ErrInvalidTransaction)
	}
	if txn.Amount < 0 {
		return fmt.Errorf("%w: negative amount %d", ErrInvalidTransaction, txn.Amount)
	}
	return nil
}

// validateMapping validates a program mapping. The program name is stored
// verbatim, but at least one side must carry account codes.
func validateMapping(mapping *model.ProgramMapping) error {
	if mapping == nil {
		return fmt.Errorf("%w: mapping", ErrNilParameter)
	}
	if strings.TrimSpace(mapping.ProgramName) == "" {
		return fmt.Errorf("%w: missing program name", ErrInvalidMapping)
	}
	if mapping.Debit.IsBlank() && mapping.Credit.IsBlank() {
		return fmt.Errorf("%w: debit and credit codes are both blank", ErrInvalidMapping)
	}
	return nil
}

// validateEntries checks that the entries for one transaction balance.
func validateEntries(transactionID string, entries []model.JournalEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("%w: entries", ErrEmptySlice)
	}

	var debits, credits int64
	for i, entry := range entries {
		if entry.TransactionID != transactionID {
			return fmt.Errorf("%w: entry %d belongs to transaction %q", ErrInvalidEntry, i, entry.TransactionID)
		}
		if entry.Amount < 0 {
			return fmt.Errorf("%w: entry %d has negative amount", ErrInvalidEntry, i)
		}
		switch entry.EntryType {
		case model.EntryDebit:
			debits += entry.Amount
		case model.EntryCredit:
			credits += entry.Amount
		default:
			return fmt.Errorf("%w: entry %d has type %q", ErrInvalidEntry, i, entry.EntryType)
		}
	}

	if debits != credits {
		return fmt.Errorf("%w: debits %d do not equal credits %d", ErrInvalidEntry, debits, credits)
	}
	return nil
}

// validateBatch validates a journal batch before insertion.
func validateBatch(batch *model.JournalBatch) error {
	if batch == nil {
		return fmt.Errorf("%w: batch", ErrNilParameter)
	}
	if strings.TrimSpace(batch.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidBatch)
	}
	if batch.TotalTransactions < 0 || batch.TotalAmount < 0 {
		return fmt.Errorf("%w: negative totals", ErrInvalidBatch)
	}
	return nil
}

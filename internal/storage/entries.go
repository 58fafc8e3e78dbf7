package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// ErrAlreadyProcessed is returned when a transaction was attached to a batch
// by another caller first.
var ErrAlreadyProcessed = errors.New("transaction already processed")

// AttachTransaction records the journal entries for a transaction and marks it
// processed under batchID, atomically. The batch must still be a draft and the
// transaction must still be unprocessed; otherwise nothing is written.
func (s *SQLiteStorage) AttachTransaction(ctx context.Context, batchID, transactionID string, entries []model.JournalEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return err
	}
	if err := validateString(transactionID, "transactionID"); err != nil {
		return err
	}
	if err := validateEntries(transactionID, entries); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.attachTransactionTx(ctx, tx, batchID, transactionID, entries)
	})
}

func (s *SQLiteStorage) attachTransactionTx(ctx context.Context, tx *sql.Tx, batchID, transactionID string, entries []model.JournalEntry) error {
	if err := requireDraft(ctx, tx, batchID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO journal_entries (
			id, transaction_id, batch_id,
			entity, org, funding, activity, subactivity, natural_class,
			amount, entry_type, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	for i := range entries {
		entry := &entries[i]
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = now
		}
		entry.BatchID = batchID

		code := entry.AccountCode
		if _, err := stmt.ExecContext(ctx,
			entry.ID, entry.TransactionID, entry.BatchID,
			code.Entity, code.Org, code.Funding, code.Activity, code.Subactivity, code.NaturalClass,
			entry.Amount, string(entry.EntryType), entry.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert %s entry: %w", entry.EntryType, err)
		}
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET processed = 1, batch_id = ?
		WHERE id = ? AND processed = 0
	`, batchID, transactionID)
	if err != nil {
		return fmt.Errorf("failed to mark transaction processed: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM transactions WHERE id = ?)`, transactionID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check transaction existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("%w: transaction %s", common.ErrNotFound, transactionID)
		}
		return fmt.Errorf("%w: %s", ErrAlreadyProcessed, transactionID)
	}

	return nil
}

// requireDraft fails unless batchID names a draft batch.
func requireDraft(ctx context.Context, q queryable, batchID string) error {
	var status model.BatchStatus
	err := q.QueryRowContext(ctx, `SELECT status FROM journal_batches WHERE id = ?`, batchID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: batch %s", common.ErrNotFound, batchID)
	}
	if err != nil {
		return fmt.Errorf("failed to get batch status: %w", err)
	}
	if status != model.BatchDraft {
		return fmt.Errorf("%w: batch %s is %s", common.ErrBatchNotDraft, batchID, status)
	}
	return nil
}

// GetEntriesByBatch returns the entries of a batch in insertion order, each
// joined with its transaction's program name.
func (s *SQLiteStorage) GetEntriesByBatch(ctx context.Context, batchID string) ([]model.JournalEntryLine, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT
			je.id, je.transaction_id, je.batch_id,
			je.entity, je.org, je.funding, je.activity, je.subactivity, je.natural_class,
			je.amount, je.entry_type, je.created_at,
			COALESCE(t.program_name, '')
		FROM journal_entries je
		LEFT JOIN transactions t ON t.id = je.transaction_id
		WHERE je.batch_id = ?
		ORDER BY je.rowid
	`, batchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal entries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var lines []model.JournalEntryLine
	for rows.Next() {
		var line model.JournalEntryLine
		var batch sql.NullString
		code := &line.AccountCode
		err := rows.Scan(
			&line.ID, &line.TransactionID, &batch,
			&code.Entity, &code.Org, &code.Funding, &code.Activity, &code.Subactivity, &code.NaturalClass,
			&line.Amount, &line.EntryType, &line.CreatedAt,
			&line.ProgramName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan journal entry: %w", err)
		}
		line.BatchID = batch.String
		lines = append(lines, line)
	}

	return lines, rows.Err()
}

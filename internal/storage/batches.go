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
	"github.com/Veraticus/the-books-must-balance/internal/service"
)

const batchColumns = `id, name, status, total_transactions, total_amount, created_at, completed_at`

// GetDraftBatches returns every draft batch, newest first. More than one
// result means the database was edited outside this application.
func (s *SQLiteStorage) GetDraftBatches(ctx context.Context) ([]model.JournalBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryBatches(ctx, s.db, `
		SELECT `+batchColumns+`
		FROM journal_batches
		WHERE status = 'draft'
		ORDER BY created_at DESC
	`)
}

// GetBatch retrieves a batch by ID.
func (s *SQLiteStorage) GetBatch(ctx context.Context, id string) (*model.JournalBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}
	return getBatchTx(ctx, s.db, id)
}

func getBatchTx(ctx context.Context, q queryable, id string) (*model.JournalBatch, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+batchColumns+`
		FROM journal_batches
		WHERE id = ?
	`, id)

	batch, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: batch %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get batch: %w", err)
	}
	return batch, nil
}

// ListBatches returns batches newest first, optionally filtered by status.
func (s *SQLiteStorage) ListBatches(ctx context.Context, filter service.BatchFilter) ([]model.JournalBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `SELECT ` + batchColumns + ` FROM journal_batches`
	var args []any
	if filter.Status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	return s.queryBatches(ctx, s.db, query, args...)
}

// CreateDraftBatch inserts a new draft batch. If another draft already exists
// the insert violates the single-draft index and common.ErrDuplicateEntry is
// returned.
func (s *SQLiteStorage) CreateDraftBatch(ctx context.Context, batch *model.JournalBatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBatch(batch); err != nil {
		return err
	}

	if batch.ID == "" {
		batch.ID = uuid.NewString()
	}
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = time.Now()
	}
	batch.Status = model.BatchDraft
	batch.CompletedAt = nil

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO journal_batches (`+batchColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, NULL)
	`, batch.ID, batch.Name, string(batch.Status), batch.TotalTransactions, batch.TotalAmount, batch.CreatedAt)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: a draft batch already exists", common.ErrDuplicateEntry)
	}
	if err != nil {
		return fmt.Errorf("failed to create batch: %w", err)
	}
	return nil
}

// ExtendDraftBatch atomically adds count and amount to a draft batch's totals
// and renames it for the given day.
func (s *SQLiteStorage) ExtendDraftBatch(ctx context.Context, id string, count int, amount int64, at time.Time) (*model.JournalBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var batch *model.JournalBatch
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE journal_batches
			SET total_transactions = total_transactions + ?,
				total_amount = total_amount + ?
			WHERE id = ? AND status = 'draft'
		`, count, amount, id)
		if err != nil {
			return fmt.Errorf("failed to extend batch: %w", err)
		}
		if err := requireAffected(result, id); err != nil {
			return err
		}

		batch, err = renameBatchTx(ctx, tx, id, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// RecalculateBatchTotals recomputes a draft batch's totals from the
// transactions that reference it. Completed batches are returned unchanged.
func (s *SQLiteStorage) RecalculateBatchTotals(ctx context.Context, id string, at time.Time) (*model.JournalBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var batch *model.JournalBatch
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE journal_batches
			SET total_transactions = (SELECT COUNT(*) FROM transactions WHERE batch_id = ?1),
				total_amount = (SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE batch_id = ?1)
			WHERE id = ?1 AND status = 'draft'
		`, id)
		if err != nil {
			return fmt.Errorf("failed to recalculate batch totals: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			batch, err = getBatchTx(ctx, tx, id)
			return err
		}

		batch, err = renameBatchTx(ctx, tx, id, at)
		return err
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// CompleteBatch moves a draft batch to completed, freezing its totals at the
// count and sum of the transactions attached at that moment. Missing and
// already completed batches yield common.ErrNotFound.
func (s *SQLiteStorage) CompleteBatch(ctx context.Context, id string, at time.Time) (*model.JournalBatch, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	var batch *model.JournalBatch
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE journal_batches
			SET status = 'completed',
				completed_at = ?1,
				total_transactions = (SELECT COUNT(*) FROM transactions WHERE batch_id = ?2),
				total_amount = (SELECT COALESCE(SUM(amount), 0) FROM transactions WHERE batch_id = ?2)
			WHERE id = ?2 AND status = 'draft'
		`, at, id)
		if err != nil {
			return fmt.Errorf("failed to complete batch: %w", err)
		}
		if err := requireAffected(result, id); err != nil {
			return err
		}

		batch, err = getBatchTx(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// CancelBatch deletes a draft batch and its entries and returns its
// transactions to the unprocessed pool, all in one database transaction.
func (s *SQLiteStorage) CancelBatch(ctx context.Context, id string) (*service.CancelResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	result := &service.CancelResult{BatchID: id}
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		return s.cancelBatchTx(ctx, tx, id, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *SQLiteStorage) cancelBatchTx(ctx context.Context, tx *sql.Tx, id string, result *service.CancelResult) error {
	if err := requireDraft(ctx, tx, id); err != nil {
		if errors.Is(err, common.ErrBatchNotDraft) {
			return fmt.Errorf("%w: draft batch %s", common.ErrNotFound, id)
		}
		return err
	}

	deleted, err := tx.ExecContext(ctx, `DELETE FROM journal_entries WHERE batch_id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete journal entries: %w", err)
	}
	entries, err := deleted.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	reset, err := tx.ExecContext(ctx, `
		UPDATE transactions
		SET processed = 0, batch_id = NULL
		WHERE batch_id = ?
	`, id)
	if err != nil {
		return fmt.Errorf("failed to reset transactions: %w", err)
	}
	transactions, err := reset.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM journal_batches WHERE id = ? AND status = 'draft'`, id); err != nil {
		return fmt.Errorf("failed to delete batch: %w", err)
	}

	result.EntriesDeleted = int(entries)
	result.TransactionsReset = int(transactions)
	return nil
}

// renameBatchTx regenerates a batch name from its current count.
func renameBatchTx(ctx context.Context, tx *sql.Tx, id string, at time.Time) (*model.JournalBatch, error) {
	batch, err := getBatchTx(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	batch.Name = model.BatchName(at, batch.TotalTransactions)
	if _, err := tx.ExecContext(ctx, `UPDATE journal_batches SET name = ? WHERE id = ?`, batch.Name, id); err != nil {
		return nil, fmt.Errorf("failed to rename batch: %w", err)
	}
	return batch, nil
}

func requireAffected(result sql.Result, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: draft batch %s", common.ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteStorage) queryBatches(ctx context.Context, q queryable, query string, args ...any) ([]model.JournalBatch, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query batches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var batches []model.JournalBatch
	for rows.Next() {
		batch, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan batch: %w", err)
		}
		batches = append(batches, *batch)
	}

	return batches, rows.Err()
}

func scanBatch(row rowScanner) (*model.JournalBatch, error) {
	var batch model.JournalBatch
	var completedAt sql.NullTime

	err := row.Scan(
		&batch.ID,
		&batch.Name,
		&batch.Status,
		&batch.TotalTransactions,
		&batch.TotalAmount,
		&batch.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if completedAt.Valid {
		t := completedAt.Time
		batch.CompletedAt = &t
	}
	return &batch, nil
}

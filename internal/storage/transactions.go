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

const transactionColumns = `id, payment_id, program_name, amount, currency, status, processed, batch_id, created_at`

// SaveTransactions inserts transactions that are not yet stored, keyed by
// payment ID. It returns the number of rows actually inserted. New rows are
// always unprocessed regardless of the input's Processed and BatchID fields.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	var inserted int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := s.saveTransactionsTx(ctx, tx, transactions)
		inserted = n
		return err
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, tx *sql.Tx, transactions []model.Transaction) (int, error) {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			id, payment_id, program_name, amount, currency, status, processed, batch_id, created_at
		) VALUES (?, ?, ?, ?, ?, ?, 0, NULL, ?)
		ON CONFLICT(payment_id) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now()
	inserted := 0
	for i := range transactions {
		txn := &transactions[i]
		if txn.ID == "" {
			txn.ID = uuid.NewString()
		}
		if txn.CreatedAt.IsZero() {
			txn.CreatedAt = now
		}

		result, err := stmt.ExecContext(ctx,
			txn.ID, txn.PaymentID, txn.ProgramName, txn.Amount,
			txn.Currency, txn.Status, txn.CreatedAt,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert transaction %s: %w", txn.PaymentID, err)
		}

		n, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += int(n)
	}

	return inserted, nil
}

// GetUnprocessedTransactions returns every transaction not yet attached to a batch.
func (s *SQLiteStorage) GetUnprocessedTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	return s.queryTransactions(ctx, s.db, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE processed = 0
		ORDER BY created_at, rowid
	`)
}

// GetTransactionsByBatch returns the transactions attached to a batch.
func (s *SQLiteStorage) GetTransactionsByBatch(ctx context.Context, batchID string) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(batchID, "batchID"); err != nil {
		return nil, err
	}

	return s.queryTransactions(ctx, s.db, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE batch_id = ?
		ORDER BY created_at, rowid
	`, batchID)
}

// GetTransactionByPaymentID looks up a transaction by its external payment ID.
func (s *SQLiteStorage) GetTransactionByPaymentID(ctx context.Context, paymentID string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(paymentID, "paymentID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE payment_id = ?
	`, paymentID)

	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: payment %s", common.ErrNotFound, paymentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return txn, nil
}

func (s *SQLiteStorage) queryTransactions(ctx context.Context, q queryable, query string, args ...any) ([]model.Transaction, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}

	return transactions, rows.Err()
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var batchID sql.NullString

	err := row.Scan(
		&txn.ID,
		&txn.PaymentID,
		&txn.ProgramName,
		&txn.Amount,
		&txn.Currency,
		&txn.Status,
		&txn.Processed,
		&batchID,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	txn.BatchID = batchID.String
	return &txn, nil
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS program_mappings (
					program_name TEXT PRIMARY KEY,
					debit_entity TEXT NOT NULL DEFAULT '',
					debit_org TEXT NOT NULL DEFAULT '',
					debit_funding TEXT NOT NULL DEFAULT '',
					debit_activity TEXT NOT NULL DEFAULT '',
					debit_subactivity TEXT NOT NULL DEFAULT '',
					debit_natural_class TEXT NOT NULL DEFAULT '',
					credit_entity TEXT NOT NULL DEFAULT '',
					credit_org TEXT NOT NULL DEFAULT '',
					credit_funding TEXT NOT NULL DEFAULT '',
					credit_activity TEXT NOT NULL DEFAULT '',
					credit_subactivity TEXT NOT NULL DEFAULT '',
					credit_natural_class TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,

				`CREATE TABLE IF NOT EXISTS journal_batches (
					id TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					status TEXT NOT NULL CHECK (status IN ('draft', 'completed')),
					total_transactions INTEGER NOT NULL DEFAULT 0,
					total_amount INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL,
					completed_at DATETIME
				)`,
				`CREATE INDEX idx_journal_batches_created_at ON journal_batches(created_at)`,

				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					payment_id TEXT UNIQUE NOT NULL,
					program_name TEXT NOT NULL DEFAULT '',
					amount INTEGER NOT NULL,
					currency TEXT NOT NULL DEFAULT '',
					status TEXT NOT NULL DEFAULT '',
					processed BOOLEAN NOT NULL DEFAULT 0,
					batch_id TEXT REFERENCES journal_batches(id),
					created_at DATETIME NOT NULL,
					CHECK ((processed = 0 AND batch_id IS NULL) OR (processed = 1 AND batch_id IS NOT NULL))
				)`,
				`CREATE INDEX idx_transactions_processed ON transactions(processed)`,
				`CREATE INDEX idx_transactions_batch_id ON transactions(batch_id)`,

				`CREATE TABLE IF NOT EXISTS journal_entries (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL REFERENCES transactions(id),
					batch_id TEXT REFERENCES journal_batches(id),
					entity TEXT NOT NULL DEFAULT '',
					org TEXT NOT NULL DEFAULT '',
					funding TEXT NOT NULL DEFAULT '',
					activity TEXT NOT NULL DEFAULT '',
					subactivity TEXT NOT NULL DEFAULT '',
					natural_class TEXT NOT NULL DEFAULT '',
					amount INTEGER NOT NULL,
					entry_type TEXT NOT NULL CHECK (entry_type IN ('debit', 'credit')),
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_journal_entries_batch_id ON journal_entries(batch_id)`,
				`CREATE INDEX idx_journal_entries_transaction_id ON journal_entries(transaction_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Allow at most one draft journal batch",
		Up: func(tx *sql.Tx) error {
			var drafts int
			if err := tx.QueryRow(`SELECT COUNT(*) FROM journal_batches WHERE status = 'draft'`).Scan(&drafts); err != nil {
				return fmt.Errorf("failed to count draft batches: %w", err)
			}
			if drafts > 1 {
				return fmt.Errorf("found %d draft batches; cancel or complete all but one before migrating", drafts)
			}

			if _, err := tx.Exec(`
				CREATE UNIQUE INDEX idx_journal_batches_single_draft
				ON journal_batches(status) WHERE status = 'draft'
			`); err != nil {
				return fmt.Errorf("failed to create single draft index: %w", err)
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Maintain updated_at on program mappings",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TRIGGER update_program_mappings_timestamp
				AFTER UPDATE ON program_mappings
				FOR EACH ROW
				WHEN NEW.updated_at = OLD.updated_at
				BEGIN
					UPDATE program_mappings SET updated_at = CURRENT_TIMESTAMP WHERE program_name = NEW.program_name;
				END
			`); err != nil {
				return fmt.Errorf("failed to create updated_at trigger: %w", err)
			}

			slog.Info("Added updated_at trigger to program mappings")
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

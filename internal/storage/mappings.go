package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

const mappingColumns = `program_name,
	debit_entity, debit_org, debit_funding, debit_activity, debit_subactivity, debit_natural_class,
	credit_entity, credit_org, credit_funding, credit_activity, credit_subactivity, credit_natural_class,
	created_at, updated_at`

// GetProgramMapping retrieves the mapping for an exact program name.
// It returns common.ErrNotFound when no mapping exists.
func (s *SQLiteStorage) GetProgramMapping(ctx context.Context, programName string) (*model.ProgramMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(programName, "programName"); err != nil {
		return nil, err
	}

	return s.getProgramMappingTx(ctx, s.db, programName)
}

func (s *SQLiteStorage) getProgramMappingTx(ctx context.Context, q queryable, programName string) (*model.ProgramMapping, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+mappingColumns+`
		FROM program_mappings
		WHERE program_name = ?
	`, programName)

	mapping, err := scanMapping(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: mapping for program %q", common.ErrNotFound, programName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get program mapping: %w", err)
	}

	return mapping, nil
}

// GetProgramMappings retrieves every mapping ordered by program name.
func (s *SQLiteStorage) GetProgramMappings(ctx context.Context) ([]model.ProgramMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+mappingColumns+`
		FROM program_mappings
		ORDER BY program_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query program mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.ProgramMapping
	for rows.Next() {
		mapping, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan program mapping: %w", err)
		}
		mappings = append(mappings, *mapping)
	}

	return mappings, rows.Err()
}

// SaveProgramMapping inserts or replaces the mapping for a program.
func (s *SQLiteStorage) SaveProgramMapping(ctx context.Context, mapping *model.ProgramMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMapping(mapping); err != nil {
		return err
	}

	now := time.Now()
	if mapping.CreatedAt.IsZero() {
		mapping.CreatedAt = now
	}
	mapping.UpdatedAt = now

	d, c := mapping.Debit, mapping.Credit
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO program_mappings (`+mappingColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(program_name) DO UPDATE SET
			debit_entity = excluded.debit_entity,
			debit_org = excluded.debit_org,
			debit_funding = excluded.debit_funding,
			debit_activity = excluded.debit_activity,
			debit_subactivity = excluded.debit_subactivity,
			debit_natural_class = excluded.debit_natural_class,
			credit_entity = excluded.credit_entity,
			credit_org = excluded.credit_org,
			credit_funding = excluded.credit_funding,
			credit_activity = excluded.credit_activity,
			credit_subactivity = excluded.credit_subactivity,
			credit_natural_class = excluded.credit_natural_class,
			updated_at = excluded.updated_at
	`, mapping.ProgramName,
		d.Entity, d.Org, d.Funding, d.Activity, d.Subactivity, d.NaturalClass,
		c.Entity, c.Org, c.Funding, c.Activity, c.Subactivity, c.NaturalClass,
		mapping.CreatedAt, mapping.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save program mapping: %w", err)
	}

	return nil
}

// DeleteProgramMapping removes the mapping for a program.
func (s *SQLiteStorage) DeleteProgramMapping(ctx context.Context, programName string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(programName, "programName"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		DELETE FROM program_mappings WHERE program_name = ?
	`, programName)
	if err != nil {
		return fmt.Errorf("failed to delete program mapping: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return common.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMapping(row rowScanner) (*model.ProgramMapping, error) {
	var m model.ProgramMapping
	err := row.Scan(
		&m.ProgramName,
		&m.Debit.Entity, &m.Debit.Org, &m.Debit.Funding,
		&m.Debit.Activity, &m.Debit.Subactivity, &m.Debit.NaturalClass,
		&m.Credit.Entity, &m.Credit.Org, &m.Credit.Funding,
		&m.Credit.Activity, &m.Credit.Subactivity, &m.Credit.NaturalClass,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

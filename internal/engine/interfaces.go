package engine

import (
	"context"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// PaymentSource defines the contract for fetching payments from an external system.
type PaymentSource interface {
	FetchPayments(ctx context.Context) ([]model.Payment, error)
	Name() string
}

// MappingStore looks up program mappings by exact program name.
type MappingStore interface {
	GetProgramMapping(ctx context.Context, programName string) (*model.ProgramMapping, error)
}

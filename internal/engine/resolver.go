package engine

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Resolver maps program names to account code pairs.
type Resolver struct {
	store MappingStore
}

// NewResolver creates a resolver backed by store.
func NewResolver(store MappingStore) *Resolver {
	return &Resolver{store: store}
}

// Resolve looks up the mapping for programName. It never fails: a missing
// mapping or a failed lookup both yield an unmapped result, and entries are
// still generated with blank codes.
func (r *Resolver) Resolve(ctx context.Context, programName string) model.MappingResult {
	mapping, err := r.store.GetProgramMapping(ctx, programName)
	switch {
	case err == nil:
		return model.Mapped(*mapping)
	case errors.Is(err, common.ErrNotFound):
		slog.Warn("No mapping found for program", "program", programName)
	default:
		slog.Warn("Mapping lookup failed, using blank codes",
			"program", programName,
			"error", err)
	}
	return model.Unmapped(programName)
}

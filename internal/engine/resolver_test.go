package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolver_Resolve(t *testing.T) {
	store := newTestStorage(t)
	mapping := saveMapping(t, store, "Summer Camp")
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		result := NewResolver(store).Resolve(ctx, "Summer Camp")
		assert.True(t, result.Found)
		assert.Equal(t, mapping.Debit, result.Debit)
		assert.Equal(t, mapping.Credit, result.Credit)
	})

	t.Run("not found", func(t *testing.T) {
		result := NewResolver(store).Resolve(ctx, "summer camp")
		assert.False(t, result.Found)
		assert.Equal(t, "summer camp", result.ProgramName)
		debit, credit := result.Codes()
		assert.True(t, debit.IsBlank())
		assert.True(t, credit.IsBlank())
	})

	t.Run("empty program name", func(t *testing.T) {
		result := NewResolver(store).Resolve(ctx, "")
		assert.False(t, result.Found)
	})

	t.Run("lookup failure is treated as unmapped", func(t *testing.T) {
		flaky := &flakyStorage{Storage: store, failMappingIO: true}
		result := NewResolver(flaky).Resolve(ctx, "Summer Camp")
		assert.False(t, result.Found)
	})
}

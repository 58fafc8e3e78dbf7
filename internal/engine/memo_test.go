package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/common"
)

func TestMappingMemo(t *testing.T) {
	store := newTestStorage(t)
	saveMapping(t, store, "A")
	ctx := context.Background()

	t.Run("concurrent lookups query once", func(t *testing.T) {
		flaky := &flakyStorage{Storage: store}
		memo := newMappingMemo(flaky)

		var wg sync.WaitGroup
		for range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				mapping, err := memo.GetProgramMapping(ctx, "A")
				assert.NoError(t, err)
				assert.Equal(t, "A", mapping.ProgramName)
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, flaky.mappingCalls["A"])
	})

	t.Run("not found is remembered", func(t *testing.T) {
		flaky := &flakyStorage{Storage: store}
		memo := newMappingMemo(flaky)

		for range 3 {
			_, err := memo.GetProgramMapping(ctx, "B")
			assert.ErrorIs(t, err, common.ErrNotFound)
		}
		assert.Equal(t, 1, flaky.mappingCalls["B"])
	})

	t.Run("lookup failures are retried", func(t *testing.T) {
		flaky := &flakyStorage{Storage: store, failMappingIO: true}
		memo := newMappingMemo(flaky)

		_, err := memo.GetProgramMapping(ctx, "A")
		require.Error(t, err)
		assert.NotErrorIs(t, err, common.ErrNotFound)

		flaky.failMappingIO = false
		mapping, err := memo.GetProgramMapping(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, "A", mapping.ProgramName)
		assert.Equal(t, 2, flaky.mappingCalls["A"])
	})

	t.Run("returned mappings are copies", func(t *testing.T) {
		memo := newMappingMemo(store)

		first, err := memo.GetProgramMapping(ctx, "A")
		require.NoError(t, err)
		first.Debit.Entity = "99"

		second, err := memo.GetProgramMapping(ctx, "A")
		require.NoError(t, err)
		assert.Equal(t, "10", second.Debit.Entity)
	})
}

package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/testutil/mappings"
)

func TestSetupTestDBWithBuilder(t *testing.T) {
	db := SetupTestDBWithBuilder(t, func(b mappings.Builder) mappings.Builder {
		return b.WithBasicPrograms()
	})

	stored, err := db.Storage.GetProgramMappings(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 3)

	camp, err := db.Storage.GetProgramMapping(context.Background(), mappings.ProgramSummerCamp.String())
	require.NoError(t, err)
	assert.Equal(t, mappings.CampRevenue, camp.Credit)
}

func TestSeedTransactions(t *testing.T) {
	db := SetupTestDB(t, nil)

	pending := db.SeedTransactions(
		Payment("ch_1", mappings.ProgramSummerCamp, 1000),
		Payment("ch_2", mappings.ProgramUnmapped, 2500),
	)

	require.Len(t, pending, 2)
	for _, txn := range pending {
		assert.True(t, txn.IsPending())
		assert.NotEmpty(t, txn.ID)
	}
}

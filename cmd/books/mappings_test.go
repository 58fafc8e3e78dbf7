package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

func TestParseAccountCode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    model.AccountCode
		wantErr bool
	}{
		{
			name:  "full code",
			input: "10-200-3000-A1-S1-4100",
			want:  model.AccountCode{Entity: "10", Org: "200", Funding: "3000", Activity: "A1", Subactivity: "S1", NaturalClass: "4100"},
		},
		{
			name:  "empty segments",
			input: "10-200--A1--4100",
			want:  model.AccountCode{Entity: "10", Org: "200", Activity: "A1", NaturalClass: "4100"},
		},
		{
			name:  "blank",
			input: "  ",
			want:  model.AccountCode{},
		},
		{
			name:    "too few segments",
			input:   "10-200",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAccountCode(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, common.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatAccountCode(t *testing.T) {
	assert.Equal(t, "(blank)", formatAccountCode(model.AccountCode{}))
	assert.Equal(t, "10-----4100", formatAccountCode(model.AccountCode{Entity: "10", NaturalClass: "4100"}))
}

func TestMappingsCmds(t *testing.T) {
	dbPath := newDBPath(t)

	out, err := runBooks(t, dbPath, "", "mappings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No program mappings yet")

	out, err = runBooks(t, dbPath, "", "mappings", "set", "Camp", "--debit", "10-200-3000-A1-S1-1100")
	require.NoError(t, err)
	assert.Contains(t, out, `Mapped "Camp"`)

	out, err = runBooks(t, dbPath, "", "mappings", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Camp")
	assert.Contains(t, out, "10-200-3000-A1-S1-1100")
	assert.Contains(t, out, "(blank)")

	_, err = runBooks(t, dbPath, "", "mappings", "set", "Art", "--credit", "1-2")
	assert.ErrorIs(t, err, common.ErrInvalidConfig)

	out, err = runBooks(t, dbPath, "", "mappings", "delete", "Camp")
	require.NoError(t, err)
	assert.Contains(t, out, `Deleted mapping for "Camp"`)

	_, err = runBooks(t, dbPath, "", "mappings", "delete", "Camp")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUnmappedCmd(t *testing.T) {
	dbPath := newDBPath(t)

	out, err := runBooks(t, dbPath, "", "unmapped")
	require.NoError(t, err)
	assert.Contains(t, out, "Every pending program has a mapping")

	seedTransactions(t, dbPath, txn("ch_1", "Camp", 1000), txn("ch_2", "Art", 500))
	_, err = runBooks(t, dbPath, "", "mappings", "set", "Art", "--debit", "10-----1100")
	require.NoError(t, err)

	out, err = runBooks(t, dbPath, "", "unmapped")
	require.NoError(t, err)
	assert.Contains(t, out, "1 programs have no mapping:")
	assert.Contains(t, out, "  - Camp")
	assert.NotContains(t, out, "  - Art")
}

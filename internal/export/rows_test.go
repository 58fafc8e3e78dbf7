package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

func line(txnID, program string, kind model.EntryType, amount int64, code model.AccountCode) model.JournalEntryLine {
	return model.JournalEntryLine{
		ProgramName: program,
		JournalEntry: model.JournalEntry{
			TransactionID: txnID,
			EntryType:     kind,
			Amount:        amount,
			AccountCode:   code,
		},
	}
}

func TestBuildRows(t *testing.T) {
	debit := model.AccountCode{Entity: "10", Org: "100", Funding: "2000", Activity: "ED", Subactivity: "01", NaturalClass: "1010"}
	credit := model.AccountCode{Entity: "10", Org: "100", Funding: "2000", Activity: "ED", Subactivity: "01", NaturalClass: "4010"}

	lines := []model.JournalEntryLine{
		line("t1", "Yoga", model.EntryDebit, 500, debit),
		line("t2", "", model.EntryDebit, 1234, model.AccountCode{}),
		line("t1", "Yoga", model.EntryCredit, 500, credit),
		line("t2", "", model.EntryCredit, 1234, model.AccountCode{}),
	}

	rows := BuildRows(lines)
	require.Len(t, rows, 6)

	assert.Equal(t, debit, rows[0].Code)
	assert.True(t, rows[0].Debit.Valid)
	assert.Equal(t, "5", rows[0].Debit.Decimal.String())
	assert.False(t, rows[0].Credit.Valid)
	assert.Equal(t, "Yoga", rows[0].Description)

	assert.Equal(t, credit, rows[1].Code)
	assert.False(t, rows[1].Debit.Valid)
	assert.Equal(t, "5", rows[1].Credit.Decimal.String())

	assert.True(t, rows[2].IsSeparator())

	assert.Equal(t, model.UnknownProgram, rows[3].Description)
	assert.Equal(t, "12.34", rows[3].Debit.Decimal.String())
	assert.True(t, rows[3].Code.IsBlank())
	assert.Equal(t, "12.34", rows[4].Credit.Decimal.String())
	assert.True(t, rows[5].IsSeparator())
}

func TestBuildRows_Empty(t *testing.T) {
	assert.Empty(t, BuildRows(nil))
}

func TestRow_Values(t *testing.T) {
	rows := BuildRows([]model.JournalEntryLine{
		line("t1", "Camp", model.EntryDebit, 1999, model.AccountCode{Entity: "10", NaturalClass: "1010"}),
	})

	assert.Equal(t, []any{"10", "", "", "", "", "1010", 19.99, "", "Camp"}, rows[0].Values())
	assert.Len(t, rows[1].Values(), len(Headers))
}

func TestMajorUnits(t *testing.T) {
	tests := []struct {
		want  string
		cents int64
	}{
		{cents: 0, want: "0"},
		{cents: 1, want: "0.01"},
		{cents: 1500, want: "15"},
		{cents: 123456, want: "1234.56"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MajorUnits(tt.cents).String())
	}
}

func TestFileName(t *testing.T) {
	now := time.Date(2026, 7, 9, 23, 0, 0, 0, time.UTC)

	tests := []struct {
		batch *model.JournalBatch
		name  string
		want  string
	}{
		{
			name:  "batch name sanitized",
			batch: &model.JournalBatch{Name: "Journal Entry 2026-07-09 - 3 transactions"},
			want:  "Journal_Entry_2026_07_09___3_transactions.xlsx",
		},
		{name: "no batch", batch: nil, want: "journal_entries_2026-07-09.xlsx"},
		{name: "unnamed batch", batch: &model.JournalBatch{}, want: "journal_entries_2026-07-09.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FileName(tt.batch, now))
		})
	}
}

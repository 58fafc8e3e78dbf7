// Package export renders journal batch entries as spreadsheet rows and files.
package export

import (
	"regexp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Headers are the column titles of an exported journal, in order.
var Headers = []string{
	"Entity",
	"Org",
	"Funding",
	"Activity",
	"Subactivity",
	"Natural Class",
	"Debit",
	"Credit",
	"Line Description",
}

// Row is one exported journal line. A zero Row is a separator.
type Row struct {
	Debit       decimal.NullDecimal
	Credit      decimal.NullDecimal
	Description string
	Code        model.AccountCode
}

// IsSeparator reports whether the row is a blank separator.
func (r Row) IsSeparator() bool {
	return r == Row{}
}

// Values returns the row's cells in Headers order. Amounts are float64 so
// spreadsheets treat them as numbers; absent amounts are empty strings.
func (r Row) Values() []any {
	values := make([]any, 0, len(Headers))
	for _, segment := range r.Code.Segments() {
		values = append(values, segment)
	}
	return append(values, amountCell(r.Debit), amountCell(r.Credit), r.Description)
}

func amountCell(d decimal.NullDecimal) any {
	if !d.Valid {
		return ""
	}
	return d.Decimal.InexactFloat64()
}

// BuildRows converts entry lines into export rows. Entries are grouped by
// transaction in first-seen order and every group is followed by a blank
// separator row.
func BuildRows(lines []model.JournalEntryLine) []Row {
	var order []string
	groups := make(map[string][]model.JournalEntryLine)
	for _, line := range lines {
		if _, ok := groups[line.TransactionID]; !ok {
			order = append(order, line.TransactionID)
		}
		groups[line.TransactionID] = append(groups[line.TransactionID], line)
	}

	rows := make([]Row, 0, len(lines)+len(order))
	for _, id := range order {
		for _, line := range groups[id] {
			rows = append(rows, toRow(line))
		}
		rows = append(rows, Row{})
	}
	return rows
}

func toRow(line model.JournalEntryLine) Row {
	description := line.ProgramName
	if description == "" {
		description = model.UnknownProgram
	}

	amount := decimal.NewNullDecimal(MajorUnits(line.Amount))
	row := Row{Code: line.AccountCode, Description: description}
	switch line.EntryType {
	case model.EntryDebit:
		row.Debit = amount
	case model.EntryCredit:
		row.Credit = amount
	}
	return row
}

// MajorUnits converts an amount in cents to currency units.
func MajorUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

var unsafeFileChars = regexp.MustCompile(`[^a-zA-Z0-9]`)

// FileName returns the download name for a batch export. Without a batch it
// falls back to a dated default.
func FileName(batch *model.JournalBatch, now time.Time) string {
	if batch == nil || batch.Name == "" {
		return "journal_entries_" + now.UTC().Format("2006-01-02") + ".xlsx"
	}
	return unsafeFileChars.ReplaceAllString(batch.Name, "_") + ".xlsx"
}

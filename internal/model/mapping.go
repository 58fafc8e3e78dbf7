package model

import "time"

// ProgramMapping translates a payment program into a debit/credit account pair.
// ProgramName is matched exactly, including case and whitespace.
type ProgramMapping struct {
	CreatedAt   time.Time
	UpdatedAt   time.Time
	ProgramName string
	Debit       AccountCode
	Credit      AccountCode
}

// MappingResult is the outcome of resolving a program name.
// A result with Found set to false carries no account codes; callers that need
// codes regardless use Codes, which yields blanks for a missing mapping.
type MappingResult struct {
	ProgramName string
	Debit       AccountCode
	Credit      AccountCode
	Found       bool
}

// Mapped builds a result for a configured mapping.
func Mapped(m ProgramMapping) MappingResult {
	return MappingResult{
		ProgramName: m.ProgramName,
		Debit:       m.Debit,
		Credit:      m.Credit,
		Found:       true,
	}
}

// Unmapped builds a result for a program without a mapping.
func Unmapped(programName string) MappingResult {
	return MappingResult{ProgramName: programName}
}

// Codes returns the debit and credit codes, blank when no mapping was found.
func (r MappingResult) Codes() (debit, credit AccountCode) {
	if !r.Found {
		return AccountCode{}, AccountCode{}
	}
	return r.Debit, r.Credit
}

// Package mappings builds program mappings for tests.
//
// Example usage:
//
//	seed := mappings.NewBuilder(t).
//		WithBasicPrograms().
//		WithMapping(mappings.ProgramArtClub, debit, credit).
//		Build()
package mappings

import (
	"testing"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// Builder provides a fluent interface for constructing test mappings.
type Builder interface {
	// WithMapping adds or replaces a mapping for program.
	WithMapping(program ProgramName, debit, credit model.AccountCode) Builder

	// WithUnmappedCredit adds a mapping whose credit side is blank.
	WithUnmappedCredit(program ProgramName) Builder

	// WithBasicPrograms maps the programs most tests use to standard codes.
	WithBasicPrograms() Builder

	// Build returns the mappings in the order they were first added.
	Build() Mappings
}

// ProgramName is a strongly-typed program name.
type ProgramName string

// String returns the string representation of the program name.
func (p ProgramName) String() string {
	return string(p)
}

// Common program names used across tests.
const (
	ProgramSummerCamp ProgramName = "Summer Camp"
	ProgramArtClub    ProgramName = "Art Club"
	ProgramSwimTeam   ProgramName = "Swim Team"
	ProgramDonations  ProgramName = "Donations"
	// ProgramUnmapped is never given a mapping.
	ProgramUnmapped ProgramName = "Robotics"
)

// Standard account codes.
var (
	CashAccount = model.AccountCode{Entity: "10", Org: "100", Funding: "0000", Activity: "000", Subactivity: "00", NaturalClass: "1010"}
	CampRevenue = model.AccountCode{Entity: "10", Org: "200", Funding: "3000", Activity: "CMP", Subactivity: "01", NaturalClass: "4100"}
	ArtRevenue  = model.AccountCode{Entity: "10", Org: "200", Funding: "3000", Activity: "ART", Subactivity: "01", NaturalClass: "4100"}
	SwimRevenue = model.AccountCode{Entity: "10", Org: "210", Funding: "3000", Activity: "SWM", Subactivity: "02", NaturalClass: "4200"}
)

// Mappings represents a collection of test mappings.
type Mappings []model.ProgramMapping

// Find returns the mapping for program, or nil if not found.
func (m Mappings) Find(program ProgramName) *model.ProgramMapping {
	for i := range m {
		if m[i].ProgramName == program.String() {
			return &m[i]
		}
	}
	return nil
}

// MustFind returns the mapping for program, or fails the test if not found.
func (m Mappings) MustFind(t *testing.T, program ProgramName) model.ProgramMapping {
	t.Helper()
	mapping := m.Find(program)
	if mapping == nil {
		t.Fatalf("mapping %q not found in test data", program)
	}
	return *mapping
}

type mappingBuilder struct {
	t        *testing.T
	byName   map[ProgramName]model.ProgramMapping
	programs []ProgramName
}

// NewBuilder creates a new mapping builder for the given test.
func NewBuilder(t *testing.T) Builder {
	t.Helper()
	return &mappingBuilder{
		t:      t,
		byName: make(map[ProgramName]model.ProgramMapping),
	}
}

func (b *mappingBuilder) WithMapping(program ProgramName, debit, credit model.AccountCode) Builder {
	if debit.IsBlank() && credit.IsBlank() {
		b.t.Fatalf("mapping %q needs at least one account code", program)
	}
	if _, ok := b.byName[program]; !ok {
		b.programs = append(b.programs, program)
	}
	b.byName[program] = model.ProgramMapping{
		ProgramName: program.String(),
		Debit:       debit,
		Credit:      credit,
	}
	return b
}

func (b *mappingBuilder) WithUnmappedCredit(program ProgramName) Builder {
	return b.WithMapping(program, CashAccount, model.AccountCode{})
}

func (b *mappingBuilder) WithBasicPrograms() Builder {
	return b.
		WithMapping(ProgramSummerCamp, CashAccount, CampRevenue).
		WithMapping(ProgramArtClub, CashAccount, ArtRevenue).
		WithMapping(ProgramSwimTeam, CashAccount, SwimRevenue)
}

func (b *mappingBuilder) Build() Mappings {
	result := make(Mappings, 0, len(b.programs))
	for _, program := range b.programs {
		result = append(result, b.byName[program])
	}
	return result
}

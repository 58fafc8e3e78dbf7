// Package model defines the core domain models used throughout the application.
package model

// AccountCode is a six-segment chart-of-accounts code identifying a ledger account.
type AccountCode struct {
	Entity       string
	Org          string
	Funding      string
	Activity     string
	Subactivity  string
	NaturalClass string
}

// IsBlank reports whether every segment is empty.
func (c AccountCode) IsBlank() bool {
	return c == AccountCode{}
}

// Segments returns the code segments in ledger column order.
func (c AccountCode) Segments() []string {
	return []string{c.Entity, c.Org, c.Funding, c.Activity, c.Subactivity, c.NaturalClass}
}

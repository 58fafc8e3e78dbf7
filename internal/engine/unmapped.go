package engine

import (
	"context"
	"fmt"
	"sort"
)

// FindUnmappedPrograms returns the sorted distinct program names of pending
// transactions that have no mapping.
func (e *JournalEngine) FindUnmappedPrograms(ctx context.Context) ([]string, error) {
	pending, err := e.storage.GetUnprocessedTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending transactions: %w", err)
	}

	mappings, err := e.storage.GetProgramMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load program mappings: %w", err)
	}

	mapped := make(map[string]bool, len(mappings))
	for _, m := range mappings {
		mapped[m.ProgramName] = true
	}

	seen := make(map[string]bool)
	programs := []string{}
	for _, txn := range pending {
		if mapped[txn.ProgramName] || seen[txn.ProgramName] {
			continue
		}
		seen[txn.ProgramName] = true
		programs = append(programs, txn.ProgramName)
	}

	sort.Strings(programs)
	return programs, nil
}

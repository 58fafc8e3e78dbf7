package engine

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// mappingMemo remembers mapping lookups for a single aggregation run, so a
// program shared by many pending transactions is queried once. Lookup
// failures other than not-found are not remembered.
type mappingMemo struct {
	store   MappingStore
	group   singleflight.Group
	results map[string]*model.ProgramMapping
	mu      sync.Mutex
}

func newMappingMemo(store MappingStore) *mappingMemo {
	return &mappingMemo{
		store:   store,
		results: make(map[string]*model.ProgramMapping),
	}
}

// GetProgramMapping implements MappingStore.
func (m *mappingMemo) GetProgramMapping(ctx context.Context, programName string) (*model.ProgramMapping, error) {
	m.mu.Lock()
	mapping, ok := m.results[programName]
	m.mu.Unlock()

	if !ok {
		v, err, _ := m.group.Do(programName, func() (any, error) {
			m.mu.Lock()
			done, ok := m.results[programName]
			m.mu.Unlock()
			if ok {
				return done, nil
			}

			found, err := m.store.GetProgramMapping(ctx, programName)
			if err != nil && !errors.Is(err, common.ErrNotFound) {
				return nil, err
			}

			m.mu.Lock()
			m.results[programName] = found
			m.mu.Unlock()
			return found, nil
		})
		if err != nil {
			return nil, err
		}
		mapping, _ = v.(*model.ProgramMapping)
	}

	if mapping == nil {
		return nil, common.ErrNotFound
	}
	clone := *mapping
	return &clone, nil
}

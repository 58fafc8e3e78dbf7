package sheets

import (
	"context"
	"sync"

	"github.com/Veraticus/the-books-must-balance/internal/export"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// MockWriter is a mock batch writer for testing.
type MockWriter struct {
	WriteBatchFunc func(ctx context.Context, batch *model.JournalBatch, rows []export.Row) (string, error)
	LastBatch      *model.JournalBatch
	WriteCalls     []WriteCall
	LastRows       []export.Row
	WriteCallCount int
	mu             sync.Mutex
}

// WriteCall represents a single call to WriteBatch.
type WriteCall struct {
	Error   error
	Batch   *model.JournalBatch
	Rows    []export.Row
	SheetID string
}

// NewMockWriter creates a new mock writer.
func NewMockWriter() *MockWriter {
	return &MockWriter{
		WriteCalls: make([]WriteCall, 0),
	}
}

// WriteBatch records the call and returns the configured result.
func (m *MockWriter) WriteBatch(ctx context.Context, batch *model.JournalBatch, rows []export.Row) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount++
	m.LastBatch = batch
	m.LastRows = rows

	id := "mock-spreadsheet"
	var err error
	if m.WriteBatchFunc != nil {
		id, err = m.WriteBatchFunc(ctx, batch, rows)
	}

	m.WriteCalls = append(m.WriteCalls, WriteCall{
		Batch:   batch,
		Rows:    rows,
		SheetID: id,
		Error:   err,
	})

	return id, err
}

// Reset clears all recorded calls.
func (m *MockWriter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteCallCount = 0
	m.WriteCalls = make([]WriteCall, 0)
	m.LastBatch = nil
	m.LastRows = nil
}

// GetWriteCalls returns a copy of all write calls.
func (m *MockWriter) GetWriteCalls() []WriteCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]WriteCall, len(m.WriteCalls))
	copy(calls, m.WriteCalls)
	return calls
}

// SetWriteError configures the mock to fail every WriteBatch call with err.
func (m *MockWriter) SetWriteError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.WriteBatchFunc = func(_ context.Context, _ *model.JournalBatch, _ []export.Row) (string, error) {
		return "", err
	}
}

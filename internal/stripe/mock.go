package stripe

import (
	"context"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// MockClient is a mock payment source for testing.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	FetchPaymentsFn func(ctx context.Context) ([]model.Payment, error)

	// Call tracking
	FetchPaymentsCalls int
}

// NewMockClient creates a new mock Stripe client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Name identifies the payment source.
func (m *MockClient) Name() string {
	return "stripe"
}

// FetchPayments implements engine.PaymentSource.
func (m *MockClient) FetchPayments(ctx context.Context) ([]model.Payment, error) {
	m.FetchPaymentsCalls++

	if m.FetchPaymentsFn != nil {
		return m.FetchPaymentsFn(ctx)
	}

	// Default behavior: return empty slice
	return []model.Payment{}, nil
}

package plaid

import (
	"context"

	"github.com/Veraticus/the-books-must-balance/internal/model"
)

// MockClient is a mock Plaid payment source for testing.
type MockClient struct {
	FetchPaymentsFn    func(ctx context.Context) ([]model.Payment, error)
	FetchPaymentsCalls int
}

// NewMockClient creates a new mock Plaid client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// Name identifies the payment source.
func (m *MockClient) Name() string {
	return "plaid"
}

// FetchPayments implements engine.PaymentSource.
func (m *MockClient) FetchPayments(ctx context.Context) ([]model.Payment, error) {
	m.FetchPaymentsCalls++
	if m.FetchPaymentsFn != nil {
		return m.FetchPaymentsFn(ctx)
	}
	return []model.Payment{}, nil
}

package plaid

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

func validConfig() Config {
	return Config{
		ClientID:    "test-client-id",
		Secret:      "test-secret",
		Environment: "sandbox",
		AccessToken: "test-token",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		modify  func(*Config)
		wantErr error
		name    string
	}{
		{name: "valid sandbox", modify: func(*Config) {}},
		{name: "valid production", modify: func(c *Config) { c.Environment = "production" }},
		{name: "missing client ID", modify: func(c *Config) { c.ClientID = "" }, wantErr: common.ErrMissingConfig},
		{name: "missing secret", modify: func(c *Config) { c.Secret = "" }, wantErr: common.ErrMissingConfig},
		{name: "missing access token", modify: func(c *Config) { c.AccessToken = "" }, wantErr: common.ErrMissingConfig},
		{name: "unknown environment", modify: func(c *Config) { c.Environment = "development" }, wantErr: common.ErrInvalidConfig},
		{name: "negative days", modify: func(c *Config) { c.Days = -1 }, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.modify(&cfg)

			err := cfg.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(validConfig())
	require.NoError(t, err)
	assert.Equal(t, "plaid", client.Name())
	assert.Equal(t, DefaultDays, client.days)
	assert.Equal(t, "test-token", client.accessToken)

	cfg := validConfig()
	cfg.Days = 7
	client, err = NewClient(cfg)
	require.NoError(t, err)
	assert.Equal(t, 7, client.days)

	_, err = NewClient(Config{ClientID: "only-id"})
	assert.Error(t, err)
}

func transaction(id, date, merchant, name string, amount float64, pending bool) plaid.Transaction {
	var pt plaid.Transaction
	pt.SetTransactionId(id)
	pt.SetDate(date)
	pt.SetName(name)
	if merchant != "" {
		pt.SetMerchantName(merchant)
	}
	pt.SetAmount(amount)
	pt.SetPending(pending)
	pt.SetIsoCurrencyCode("USD")
	return pt
}

func TestToPayments(t *testing.T) {
	payments := toPayments([]plaid.Transaction{
		transaction("tx-deposit", "2024-01-20", "", "SUMMER CAMP LLC 123456789", -125.00, false),
		transaction("tx-merchant", "2024-01-21", "Art Club", "ONLINE TRANSFER", -40.005, false),
		transaction("tx-withdrawal", "2024-01-22", "Starbucks", "STARBUCKS", 5.50, false),
		transaction("tx-pending", "2024-01-23", "", "DEPOSIT", -10, true),
		transaction("tx-bad-date", "yesterday", "", "DEPOSIT", -10, false),
	})

	require.Len(t, payments, 2)

	assert.Equal(t, model.Payment{
		PaymentID:   "tx-deposit",
		ProgramName: "Summer Camp",
		Amount:      12500,
		Currency:    "usd",
		Status:      "posted",
		Created:     time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
	}, payments[0])

	assert.Equal(t, "tx-merchant", payments[1].PaymentID)
	assert.Equal(t, "Art Club", payments[1].ProgramName)
	assert.Equal(t, int64(4001), payments[1].Amount)
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "title cases", input: "SUMMER CAMP", expected: "Summer Camp"},
		{name: "strips reference number", input: "SWIM TEAM 9876543210", expected: "Swim Team"},
		{name: "keeps short numbers", input: "TEAM 42", expected: "Team 42"},
		{name: "strips stacked suffixes", input: "ACME CO INC", expected: "Acme"},
		{name: "capitalizes after punctuation", input: "o'brien-smith", expected: "O'Brien-Smith"},
		{name: "collapses whitespace", input: "  ART   CLUB  ", expected: "Art Club"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanName(tt.input))
		})
	}
}

func TestProgramName_Unknown(t *testing.T) {
	assert.Equal(t, model.UnknownProgram, programName(transaction("tx", "2024-01-01", "", "   ", -1, false)))
}

func TestClassifyError_NonPlaid(t *testing.T) {
	err := classifyError(errors.New("connection reset"))
	assert.ErrorContains(t, err, "failed to fetch transactions")
}

func TestMockClient(t *testing.T) {
	mock := NewMockClient()

	payments, err := mock.FetchPayments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, payments)

	mock.FetchPaymentsFn = func(context.Context) ([]model.Payment, error) {
		return nil, assert.AnError
	}
	_, err = mock.FetchPayments(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 2, mock.FetchPaymentsCalls)
	assert.Equal(t, "plaid", mock.Name())
}

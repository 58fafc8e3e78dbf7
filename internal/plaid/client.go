// Package plaid fetches bank deposits from the Plaid API as payments.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
)

// pageSize is Plaid's maximum page size for /transactions/get.
const pageSize = int32(500)

// DefaultDays is how far back FetchPayments looks when Config.Days is unset.
const DefaultDays = 30

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	AccessToken string
	Days        int
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("%w: plaid client ID is required", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("%w: plaid secret is required", common.ErrMissingConfig)
	}
	if c.AccessToken == "" {
		return fmt.Errorf("%w: plaid access token is required", common.ErrMissingConfig)
	}

	switch c.Environment {
	case "sandbox", "production":
	default:
		return fmt.Errorf("%w: plaid environment must be sandbox or production", common.ErrInvalidConfig)
	}

	if c.Days < 0 {
		return fmt.Errorf("%w: plaid days must not be negative", common.ErrInvalidConfig)
	}
	return nil
}

// Client fetches deposits from one linked Plaid item.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	now         func() time.Time
	retryOpts   service.RetryOptions
	accessToken string
	days        int
}

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	days := cfg.Days
	if days == 0 {
		days = DefaultDays
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		days:        days,
		now:         time.Now,
		logger:      slog.Default().With("component", "plaid"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// Name identifies the payment source.
func (c *Client) Name() string {
	return "plaid"
}

// FetchPayments returns the posted deposits of the configured look-back
// window. Withdrawals and pending transactions are skipped.
func (c *Client) FetchPayments(ctx context.Context) ([]model.Payment, error) {
	end := c.now().UTC()
	start := end.AddDate(0, 0, -c.days)

	c.logger.Info("Fetching transactions from Plaid",
		"start_date", start.Format(time.DateOnly),
		"end_date", end.Format(time.DateOnly))

	var all []plaid.Transaction
	for offset := int32(0); ; offset += pageSize {
		var page []plaid.Transaction
		err := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(c.accessToken, start.Format(time.DateOnly), end.Format(time.DateOnly))
			request.SetOptions(plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			})

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return classifyError(err)
			}
			page = resp.GetTransactions()
			return nil
		}, c.retryOpts)
		if err != nil {
			return nil, err
		}

		all = append(all, page...)
		if len(page) < int(pageSize) {
			break
		}
	}

	payments := toPayments(all)
	c.logger.Info("Fetched deposits from Plaid", "transactions", len(all), "deposits", len(payments))
	return payments, nil
}

// toPayments keeps posted inflows. Plaid reports money in as negative amounts.
func toPayments(transactions []plaid.Transaction) []model.Payment {
	payments := make([]model.Payment, 0, len(transactions))
	for _, pt := range transactions {
		if pt.GetPending() || pt.GetAmount() >= 0 {
			continue
		}

		created, err := time.Parse(time.DateOnly, pt.GetDate())
		if err != nil {
			slog.Warn("Skipping Plaid transaction with unreadable date", "transaction_id", pt.GetTransactionId(), "date", pt.GetDate())
			continue
		}

		currency := strings.ToLower(pt.GetIsoCurrencyCode())
		if currency == "" {
			currency = "usd"
		}

		payments = append(payments, model.Payment{
			PaymentID:   pt.GetTransactionId(),
			ProgramName: programName(pt),
			Amount:      decimal.NewFromFloat(-pt.GetAmount()).Shift(2).Round(0).IntPart(),
			Currency:    currency,
			Status:      "posted",
			Created:     created,
		})
	}
	return payments
}

// programName prefers the merchant name, then the raw description.
func programName(pt plaid.Transaction) string {
	name := pt.GetMerchantName()
	if name == "" {
		name = pt.GetName()
	}
	if name = cleanName(name); name != "" {
		return name
	}
	return model.UnknownProgram
}

var legalSuffixes = []string{" Llc", " Inc", " Corp", " Corporation", " Company", " Co", " Ltd", " Limited"}

// cleanName title-cases a bank description and strips trailing reference
// numbers and legal suffixes, so one payer's deposits share a program name.
func cleanName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		runes := []rune(word)
		for j := range runes {
			if j == 0 || !unicode.IsLetter(runes[j-1]) {
				runes[j] = unicode.ToUpper(runes[j])
			}
		}
		words[i] = string(runes)
	}

	if n := len(words); n > 1 && len(words[n-1]) > 5 && isAllDigits(words[n-1]) {
		words = words[:n-1]
	}
	name = strings.Join(words, " ")

	for trimmed := true; trimmed; {
		trimmed = false
		for _, suffix := range legalSuffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSuffix(name, suffix)
				trimmed = true
			}
		}
	}
	return strings.TrimSpace(name)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// classifyError marks rate limits retryable and everything else permanent.
func classifyError(err error) error {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return fmt.Errorf("failed to fetch transactions: %w", err)
	}
	if plaidErr.ErrorCode == "RATE_LIMIT_EXCEEDED" {
		return &common.RetryableError{Err: fmt.Errorf("%w: %s", common.ErrRateLimit, plaidErr.ErrorMessage), Retryable: true}
	}
	return common.Permanent(fmt.Errorf("plaid API error: %s - %s", plaidErr.ErrorCode, plaidErr.ErrorMessage))
}

// Package stripe fetches payments from the Stripe API.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/service"
)

const (
	// DefaultLimit is how many charges one sync reads.
	DefaultLimit = 100

	programMetadataKey = "program_name"
	programCustomField = "program"
)

// Config holds Stripe API configuration.
type Config struct {
	SecretKey string
	// BaseURL overrides the API endpoint, mainly for tests.
	BaseURL string
	Limit   int64
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.SecretKey == "" {
		return fmt.Errorf("%w: stripe secret key is required", common.ErrMissingConfig)
	}
	if c.Limit < 0 {
		return fmt.Errorf("%w: stripe limit cannot be negative", common.ErrInvalidConfig)
	}
	return nil
}

// Client reads recent charges and resolves the program each one paid for.
type Client struct {
	api       *client.API
	logger    *slog.Logger
	retryOpts service.RetryOptions
	limit     int64
}

// NewClient creates a new Stripe client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	limit := cfg.Limit
	if limit == 0 {
		limit = DefaultLimit
	}

	backendConfig := &stripeapi.BackendConfig{
		// Retries are handled by WithRetry.
		MaxNetworkRetries: stripeapi.Int64(0),
		LeveledLogger:     &stripeapi.LeveledLogger{Level: stripeapi.LevelError},
	}
	if cfg.BaseURL != "" {
		backendConfig.URL = stripeapi.String(cfg.BaseURL)
	}

	api := client.New(cfg.SecretKey, &stripeapi.Backends{
		API:     stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendConfig),
		Connect: stripeapi.GetBackendWithConfig(stripeapi.ConnectBackend, backendConfig),
		Uploads: stripeapi.GetBackendWithConfig(stripeapi.UploadsBackend, backendConfig),
	})

	return &Client{
		api:    api,
		limit:  limit,
		logger: slog.Default().With("component", "stripe"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// Name identifies the payment source.
func (c *Client) Name() string {
	return "stripe"
}

// FetchPayments returns the most recent charges as payments. Refunded
// charges are skipped.
func (c *Client) FetchPayments(ctx context.Context) ([]model.Payment, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	c.logger.Info("Fetching charges from Stripe", "limit", c.limit)

	var charges []*stripeapi.Charge
	err := common.WithRetry(ctx, func() error {
		list, err := c.listCharges(ctx)
		if err != nil {
			return classifyError(err)
		}
		charges = list
		return nil
	}, c.retryOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list charges: %w", err)
	}

	payments := make([]model.Payment, 0, len(charges))
	for _, ch := range charges {
		if ch.Refunded {
			c.logger.Debug("Skipping refunded charge", "charge_id", ch.ID)
			continue
		}

		payments = append(payments, model.Payment{
			PaymentID:   ch.ID,
			ProgramName: c.programName(ctx, ch),
			Amount:      ch.Amount,
			Currency:    string(ch.Currency),
			Status:      string(ch.Status),
			Created:     time.Unix(ch.Created, 0).UTC(),
		})
	}

	c.logger.Info("Fetched charges", "charges", len(charges), "payments", len(payments))

	return payments, nil
}

func (c *Client) listCharges(ctx context.Context) ([]*stripeapi.Charge, error) {
	params := &stripeapi.ChargeListParams{}
	params.Context = ctx
	params.Limit = stripeapi.Int64(c.limit)
	params.Single = true
	params.AddExpand("data.payment_intent")

	var charges []*stripeapi.Charge
	iter := c.api.Charges.List(params)
	for iter.Next() && int64(len(charges)) < c.limit {
		charges = append(charges, iter.Charge())
	}
	return charges, iter.Err()
}

// programName looks for the program in payment intent metadata, then charge
// metadata, then the checkout session's "program" custom field.
func (c *Client) programName(ctx context.Context, ch *stripeapi.Charge) string {
	pi := ch.PaymentIntent
	if pi == nil {
		return model.UnknownProgram
	}

	if name := strings.TrimSpace(pi.Metadata[programMetadataKey]); name != "" {
		return name
	}
	if name := strings.TrimSpace(ch.Metadata[programMetadataKey]); name != "" {
		return name
	}

	if pi.LatestCharge != nil && pi.ID != "" {
		name, err := c.sessionProgram(ctx, pi.ID)
		if err != nil {
			c.logger.Warn("Could not fetch checkout session", "payment_intent", pi.ID, "error", err)
		} else if name != "" {
			return name
		}
	}

	c.logger.Debug("No program name found, using default", "charge_id", ch.ID)
	return model.UnknownProgram
}

func (c *Client) sessionProgram(ctx context.Context, paymentIntentID string) (string, error) {
	params := &stripeapi.CheckoutSessionListParams{
		PaymentIntent: stripeapi.String(paymentIntentID),
	}
	params.Context = ctx
	params.Limit = stripeapi.Int64(1)
	params.Single = true

	var name string
	err := common.WithRetry(ctx, func() error {
		iter := c.api.CheckoutSessions.List(params)
		if iter.Next() {
			name = customFieldText(iter.CheckoutSession(), programCustomField)
		}
		return classifyError(iter.Err())
	}, c.retryOpts)

	return name, err
}

func customFieldText(session *stripeapi.CheckoutSession, key string) string {
	for _, field := range session.CustomFields {
		if field != nil && field.Key == key && field.Text != nil {
			return strings.TrimSpace(field.Text.Value)
		}
	}
	return ""
}

// classifyError marks rate limits retryable and client errors permanent.
func classifyError(err error) error {
	if err == nil {
		return nil
	}

	var stripeErr *stripeapi.Error
	if errors.As(err, &stripeErr) {
		switch {
		case stripeErr.HTTPStatusCode == http.StatusTooManyRequests:
			return &common.RetryableError{Err: fmt.Errorf("%w: %w", common.ErrRateLimit, err), Retryable: true}
		case stripeErr.HTTPStatusCode >= 400 && stripeErr.HTTPStatusCode < 500:
			return common.Permanent(fmt.Errorf("stripe API error: %s - %s", stripeErr.Code, stripeErr.Msg))
		}
	}

	return err
}

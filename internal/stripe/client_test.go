package stripe

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	stripeapi "github.com/stripe/stripe-go/v79"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
)

const chargesJSON = `{
  "object": "list",
  "url": "/v1/charges",
  "has_more": false,
  "data": [
    {
      "id": "ch_pi_meta",
      "object": "charge",
      "amount": 5000,
      "currency": "usd",
      "status": "succeeded",
      "created": 1777900000,
      "refunded": false,
      "metadata": {"program_name": "Charge Program"},
      "payment_intent": {
        "id": "pi_1",
        "object": "payment_intent",
        "metadata": {"program_name": "Summer Camp"}
      }
    },
    {
      "id": "ch_charge_meta",
      "object": "charge",
      "amount": 2500,
      "currency": "usd",
      "status": "succeeded",
      "created": 1777900100,
      "refunded": false,
      "metadata": {"program_name": "Art Club"},
      "payment_intent": {
        "id": "pi_2",
        "object": "payment_intent",
        "metadata": {}
      }
    },
    {
      "id": "ch_session",
      "object": "charge",
      "amount": 1200,
      "currency": "usd",
      "status": "succeeded",
      "created": 1777900200,
      "refunded": false,
      "metadata": {},
      "payment_intent": {
        "id": "pi_3",
        "object": "payment_intent",
        "metadata": {},
        "latest_charge": "ch_session"
      }
    },
    {
      "id": "ch_refunded",
      "object": "charge",
      "amount": 900,
      "currency": "usd",
      "status": "succeeded",
      "created": 1777900300,
      "refunded": true,
      "metadata": {"program_name": "Art Club"}
    },
    {
      "id": "ch_no_intent",
      "object": "charge",
      "amount": 700,
      "currency": "usd",
      "status": "succeeded",
      "created": 1777900400,
      "refunded": false,
      "metadata": {}
    }
  ]
}`

const sessionsJSON = `{
  "object": "list",
  "url": "/v1/checkout/sessions",
  "has_more": false,
  "data": [
    {
      "id": "cs_1",
      "object": "checkout.session",
      "custom_fields": [
        {"key": "other", "type": "text", "text": {"value": "ignored"}},
        {"key": "program", "type": "text", "text": {"value": "Robotics"}}
      ]
    }
  ]
}`

type fakeStripe struct {
	requests      []string
	chargesStatus int
	mu            sync.Mutex
}

func (f *fakeStripe) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.URL.Path+"?"+r.URL.RawQuery)
	status := f.chargesStatus
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/v1/charges":
		if status != 0 {
			w.WriteHeader(status)
			_, _ = io.WriteString(w, `{"error": {"type": "invalid_request_error", "code": "bad", "message": "nope"}}`)
			return
		}
		_, _ = io.WriteString(w, chargesJSON)
	case "/v1/checkout/sessions":
		_, _ = io.WriteString(w, sessionsJSON)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error": {"type": "invalid_request_error", "message": "unknown"}}`)
	}
}

func newTestClient(t *testing.T, fake *fakeStripe) *Client {
	t.Helper()

	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	c, err := NewClient(Config{SecretKey: "sk_test_123", BaseURL: server.URL})
	require.NoError(t, err)
	c.retryOpts.InitialDelay = time.Millisecond
	c.retryOpts.MaxDelay = time.Millisecond
	return c
}

func TestClient_FetchPayments(t *testing.T) {
	fake := &fakeStripe{}
	c := newTestClient(t, fake)

	payments, err := c.FetchPayments(context.Background())
	require.NoError(t, err)
	require.Len(t, payments, 4, "refunded charge is skipped")

	byID := make(map[string]model.Payment)
	for _, p := range payments {
		byID[p.PaymentID] = p
	}
	assert.NotContains(t, byID, "ch_refunded")

	assert.Equal(t, "Summer Camp", byID["ch_pi_meta"].ProgramName, "payment intent metadata wins")
	assert.Equal(t, "Art Club", byID["ch_charge_meta"].ProgramName)
	assert.Equal(t, "Robotics", byID["ch_session"].ProgramName)
	assert.Equal(t, model.UnknownProgram, byID["ch_no_intent"].ProgramName)

	first := byID["ch_pi_meta"]
	assert.Equal(t, int64(5000), first.Amount)
	assert.Equal(t, "usd", first.Currency)
	assert.Equal(t, "succeeded", first.Status)
	assert.Equal(t, time.Unix(1777900000, 0).UTC(), first.Created)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.NotEmpty(t, fake.requests)
	assert.Contains(t, fake.requests[0], "expand")
	assert.Contains(t, fake.requests[0], "limit=100")
}

func TestClient_FetchPayments_ClientErrorIsPermanent(t *testing.T) {
	fake := &fakeStripe{chargesStatus: http.StatusBadRequest}
	c := newTestClient(t, fake)

	_, err := c.FetchPayments(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, common.ErrMaxRetries)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Len(t, fake.requests, 1)
}

func TestClient_FetchPayments_RateLimitRetried(t *testing.T) {
	fake := &fakeStripe{chargesStatus: http.StatusTooManyRequests}
	c := newTestClient(t, fake)

	_, err := c.FetchPayments(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrMaxRetries)
	assert.ErrorIs(t, err, common.ErrRateLimit)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Len(t, fake.requests, 3)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		wantErr error
		name    string
		config  Config
	}{
		{name: "valid", config: Config{SecretKey: "sk_test"}},
		{name: "missing key", config: Config{}, wantErr: common.ErrMissingConfig},
		{name: "negative limit", config: Config{SecretKey: "sk_test", Limit: -1}, wantErr: common.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestClassifyError(t *testing.T) {
	assert.NoError(t, classifyError(nil))

	plain := errors.New("connection reset")
	assert.Equal(t, plain, classifyError(plain))

	rateLimited := classifyError(&stripeapi.Error{HTTPStatusCode: http.StatusTooManyRequests, Msg: "slow down"})
	assert.True(t, common.IsRetryable(rateLimited))
	assert.ErrorIs(t, rateLimited, common.ErrRateLimit)

	badRequest := classifyError(&stripeapi.Error{HTTPStatusCode: http.StatusBadRequest, Msg: "bad"})
	assert.False(t, common.IsRetryable(badRequest))
}

func TestCustomFieldText(t *testing.T) {
	session := &stripeapi.CheckoutSession{
		CustomFields: []*stripeapi.CheckoutSessionCustomField{
			{Key: "program"},
			{Key: "program", Text: &stripeapi.CheckoutSessionCustomFieldText{Value: " Chess "}},
		},
	}
	assert.Equal(t, "Chess", customFieldText(session, "program"))
	assert.Empty(t, customFieldText(session, "missing"))
}

func TestMockClient(t *testing.T) {
	m := NewMockClient()
	payments, err := m.FetchPayments(context.Background())
	require.NoError(t, err)
	assert.Empty(t, payments)

	m.FetchPaymentsFn = func(context.Context) ([]model.Payment, error) {
		return nil, assert.AnError
	}
	_, err = m.FetchPayments(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 2, m.FetchPaymentsCalls)
	assert.Equal(t, "stripe", m.Name())
}

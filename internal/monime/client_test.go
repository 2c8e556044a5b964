package monime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/config"
	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.MonimeConfig{
		BaseURL: server.URL + "/",
		APIKey:  "test-key",
		SpaceID: "space-1",
	}, zap.NewNop())
}

func TestCreatePayment(t *testing.T) {
	var gotReq *http.Request
	var gotBody CreatePaymentRequest

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotReq = r
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{
			"success": true,
			"result": {
				"id": "pay_abc123",
				"status": "pending",
				"reference": "FT-PAY-AAAABBBBCCCC",
				"amount": {"currency": "SLE", "value": 450000},
				"checkoutUrl": "https://checkout.monime.io/pay_abc123"
			}
		}`))
	})

	payment, err := client.CreatePayment(context.Background(), CreatePaymentRequest{
		Amount:      Amount{Currency: "SLE", Value: 450000},
		PhoneNumber: "23276123456",
		Provider:    "orange_money",
		Reference:   "FT-PAY-AAAABBBBCCCC",
	})
	require.NoError(t, err)

	assert.Equal(t, "pay_abc123", payment.ID)
	assert.Equal(t, "pending", payment.Status)
	assert.Equal(t, int64(450000), payment.Amount.Value)
	assert.Equal(t, "https://checkout.monime.io/pay_abc123", payment.CheckoutURL)

	assert.Equal(t, http.MethodPost, gotReq.Method)
	assert.Equal(t, "/v1/payments", gotReq.URL.Path)
	assert.Equal(t, "Bearer test-key", gotReq.Header.Get("Authorization"))
	assert.Equal(t, "space-1", gotReq.Header.Get("Monime-Space-Id"))
	assert.Equal(t, "FT-PAY-AAAABBBBCCCC", gotReq.Header.Get("Idempotency-Key"))
	assert.Equal(t, "FT-PAY-AAAABBBBCCCC", gotBody.Reference)
}

func TestVerifyPayment(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/payments/FT-PAY-AAAABBBBCCCC", r.URL.Path)
		// Read calls carry no idempotency key
		assert.Empty(t, r.Header.Get("Idempotency-Key"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"success": true,
			"result": {"id": "pay_abc123", "status": "completed", "reference": "FT-PAY-AAAABBBBCCCC"}
		}`))
	})

	payment, err := client.VerifyPayment(context.Background(), "FT-PAY-AAAABBBBCCCC")
	require.NoError(t, err)
	assert.Equal(t, "completed", payment.Status)
	assert.Equal(t, domain.PaymentStatusCompleted, payment.DomainStatus())
}

func TestVerifyPayment_NotFound(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.VerifyPayment(context.Background(), "FT-PAY-MISSING00000")
	var notFound *errors.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestServerErrorIsUnavailable(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.CreatePayment(context.Background(), CreatePaymentRequest{Reference: "FT-PAY-AAAABBBBCCCC"})
	var unavailable *errors.ErrProviderUnavailable
	require.ErrorAs(t, err, &unavailable)
}

func TestTransportErrorIsUnavailable(t *testing.T) {
	client := NewClient(config.MonimeConfig{
		BaseURL: "http://127.0.0.1:1",
		APIKey:  "test-key",
		SpaceID: "space-1",
	}, zap.NewNop())

	_, err := client.VerifyPayment(context.Background(), "FT-PAY-AAAABBBBCCCC")
	var unavailable *errors.ErrProviderUnavailable
	require.ErrorAs(t, err, &unavailable)
}

func TestRejectedEnvelope(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "messages": [{"code": "invalid_phone", "message": "unknown subscriber"}]}`))
	})

	_, err := client.CreatePayment(context.Background(), CreatePaymentRequest{Reference: "FT-PAY-AAAABBBBCCCC"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown subscriber")
}

func TestDomainStatusUnknownMapsToProcessing(t *testing.T) {
	payment := &Payment{Status: "authorized"}
	assert.Equal(t, domain.PaymentStatusProcessing, payment.DomainStatus())

	payment = &Payment{Status: "failed"}
	assert.Equal(t, domain.PaymentStatusFailed, payment.DomainStatus())
}

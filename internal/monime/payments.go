package monime

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/farmtrust/paymentsapi/internal/domain"
)

// Amount is Monime's money shape: whole Leones, no cents scaling
type Amount struct {
	Currency string `json:"currency"`
	Value    int64  `json:"value"`
}

// Customer identifies the paying buyer on the provider side
type Customer struct {
	Name  string `json:"name,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// CreatePaymentRequest is the body for creating a mobile-money charge
type CreatePaymentRequest struct {
	Amount      Amount   `json:"amount"`
	PhoneNumber string   `json:"phoneNumber"`
	Provider    string   `json:"provider"`
	Reference   string   `json:"reference"`
	Description string   `json:"description,omitempty"`
	Customer    Customer `json:"customer,omitempty"`
}

// Payment is the provider's view of a charge
type Payment struct {
	ID          string     `json:"id"`
	Status      string     `json:"status"`
	Reference   string     `json:"reference"`
	Amount      Amount     `json:"amount"`
	Fee         *Amount    `json:"fee,omitempty"`
	CheckoutURL string     `json:"checkoutUrl,omitempty"`
	ExpiresAt   *time.Time `json:"expiresAt,omitempty"`
	CreatedAt   *time.Time `json:"createTime,omitempty"`
}

// DomainStatus maps the provider status onto the local payment status.
// Unknown provider statuses are reported as processing so a later verify
// can settle them, never as a terminal state.
func (p *Payment) DomainStatus() domain.PaymentStatus {
	s := domain.PaymentStatus(p.Status)
	if !s.IsValid() {
		return domain.PaymentStatusProcessing
	}
	return s
}

// CreatePayment creates a mobile-money charge. The payment reference is sent
// as the idempotency key, so a client retry with the same reference cannot
// create a duplicate provider-side charge.
func (c *Client) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	var payment Payment
	if err := c.do(ctx, http.MethodPost, "/v1/payments", req.Reference, req, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// VerifyPayment fetches the current provider status for a reference
func (c *Client) VerifyPayment(ctx context.Context, reference string) (*Payment, error) {
	var payment Payment
	path := "/v1/payments/" + url.PathEscape(reference)
	if err := c.do(ctx, http.MethodGet, path, "", nil, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

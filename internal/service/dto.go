package service

import (
	"time"

	"github.com/google/uuid"

	"github.com/farmtrust/paymentsapi/internal/domain"
)

// CreateOrderRequest represents the order submission payload
type CreateOrderRequest struct {
	Items    []OrderItemInput `json:"items" binding:"required,min=1"`
	Delivery DeliveryInput    `json:"delivery" binding:"required"`
	// Total is the client-computed total, recorded for display only.
	// The authoritative total is always recomputed server-side.
	Total int64 `json:"total"`
}

type OrderItemInput struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required,min=1"`
}

type DeliveryInput struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Phone     string `json:"phone" binding:"required"`
	Address   string `json:"address" binding:"required"`
	District  string `json:"district" binding:"required"`
	City      string `json:"city"`
	Notes     string `json:"notes"`
}

// InitializePaymentRequest represents the payment initiation payload
type InitializePaymentRequest struct {
	OrderID       string `json:"order_id" binding:"required"`
	PaymentMethod string `json:"payment_method" binding:"required"`
	PhoneNumber   string `json:"phone_number" binding:"required"`
}

// PaymentHandle is returned to the buyer after initiation; the buyer
// completes the charge on their phone, then the outcome arrives via
// webhook or verify.
type PaymentHandle struct {
	Reference         string     `json:"reference"`
	ProviderPaymentID string     `json:"provider_payment_id"`
	CheckoutURL       string     `json:"checkout_url,omitempty"`
	ExpiresAt         *time.Time `json:"expires_at,omitempty"`
	Amount            int64      `json:"amount"`
	Currency          string     `json:"currency"`
}

// ReconciliationOutcome is the result of applying a remote payment status
// to local order and escrow state. Changed is false when the idempotency
// guard short-circuited a duplicate notification.
type ReconciliationOutcome struct {
	OrderID       uuid.UUID            `json:"order_id"`
	OrderNumber   string               `json:"order_number"`
	Reference     string               `json:"reference"`
	OrderStatus   domain.OrderStatus   `json:"order_status"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	EscrowStatus  domain.EscrowStatus  `json:"escrow_status,omitempty"`
	Changed       bool                 `json:"changed"`
}

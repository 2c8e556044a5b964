package domain

import (
	"time"

	"github.com/google/uuid"
)

// Currency is the only currency the marketplace settles in.
// Amounts are whole Leones (integer), never fractional cents.
const Currency = "SLE"

// Order represents a buyer order
type Order struct {
	ID            uuid.UUID
	OrderNumber   string
	BuyerID       uuid.UUID
	Items         []OrderItem
	Delivery      DeliveryAddress
	Subtotal      int64
	Total         int64
	Currency      string
	Status        OrderStatus
	PaymentStatus PaymentStatus
	Payment       *Payment
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// OrderItem is a line item with a price snapshot taken at order time
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	Name      string
	UnitPrice int64
	Quantity  int
	Subtotal  int64
	CreatedAt time.Time
}

// DeliveryAddress holds structured delivery info, stored as JSONB
type DeliveryAddress struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	District  string `json:"district"`
	City      string `json:"city"`
	Notes     string `json:"notes,omitempty"`
}

// Payment is the order's payment sub-record, mutated only by payment
// initiation and reconciliation.
type Payment struct {
	OrderID           uuid.UUID
	Provider          string
	Method            PaymentMethod
	Reference         string
	ProviderPaymentID string
	Status            PaymentStatus
	Amount            int64
	Currency          string
	CustomerPhone     string
	AdminNotes        *string
	InitiatedAt       time.Time
	CompletedAt       *time.Time
	UpdatedAt         time.Time
}

// Escrow tracks funds held against an order from funding through
// release or refund, independent of the provider's own bookkeeping.
// One escrow per order; the amount never changes after creation.
type Escrow struct {
	ID         uuid.UUID
	OrderID    uuid.UUID
	Reference  string
	Amount     int64
	Currency   string
	Status     EscrowStatus
	FundedAt   *time.Time
	ReleasedAt *time.Time
	RefundedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Product is the stock surface of the catalog. Price and availability
// reads plus the atomic reserve/release stock mutations live here; the
// rest of the catalog is managed elsewhere.
type Product struct {
	ID        uuid.UUID
	Name      string
	UnitPrice int64
	Quantity  int
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ServiceKey is a hashed operational API key for non-buyer surfaces
// (pending-payment sweep, internal tools).
type ServiceKey struct {
	ID        uuid.UUID
	Name      string
	KeyHash   string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

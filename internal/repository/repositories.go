package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/farmtrust/paymentsapi/internal/domain"
)

// OrderRepository persists orders with their line items, delivery info
// and payment sub-record
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
	UpsertPayment(ctx context.Context, payment *domain.Payment) error
	UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status domain.PaymentStatus, completedAt *time.Time, adminNotes *string) error
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error)
	List(ctx context.Context, limit, offset int) ([]*domain.Order, error)
	ListUnresolvedPayments(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error)
}

// EscrowRepository persists the escrow ledger. Transition applies a
// conditional update (guarded on the expected current status) and reports
// whether the row actually moved, which makes duplicate triggers safe.
type EscrowRepository interface {
	Create(ctx context.Context, escrow *domain.Escrow) error
	GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error)
	Transition(ctx context.Context, orderID uuid.UUID, from, to domain.EscrowStatus, at time.Time) (bool, error)
	Stats(ctx context.Context) (*domain.EscrowStats, error)
}

// ProductRepository is the stock surface. Reserve must decrement
// atomically relative to concurrent reservations for the same product.
type ProductRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Reserve(ctx context.Context, productID uuid.UUID, quantity int) error
	Release(ctx context.Context, productID uuid.UUID, quantity int) error
}

// ServiceKeyRepository stores hashed operational API keys
type ServiceKeyRepository interface {
	Create(ctx context.Context, key *domain.ServiceKey) error
	ListActive(ctx context.Context) ([]domain.ServiceKey, error)
	VerifyKey(ctx context.Context, key string) (*domain.ServiceKey, error)
}

// Repositories aggregates all repositories
type Repositories struct {
	Order      OrderRepository
	Escrow     EscrowRepository
	Product    ProductRepository
	ServiceKey ServiceKeyRepository
}

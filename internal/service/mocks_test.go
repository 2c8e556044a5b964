package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/internal/monime"
	"github.com/farmtrust/paymentsapi/internal/repository"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

// memStore is an in-memory backing store shared by the fake repositories.
// The fakes implement the same guarded-update semantics as the Postgres
// layer so transition and idempotency behavior can be exercised without a
// database.
type memStore struct {
	mu       sync.Mutex
	orders   map[uuid.UUID]*domain.Order
	escrows  map[uuid.UUID]*domain.Escrow
	products map[uuid.UUID]*domain.Product
}

func newMemStore() *memStore {
	return &memStore{
		orders:   make(map[uuid.UUID]*domain.Order),
		escrows:  make(map[uuid.UUID]*domain.Escrow),
		products: make(map[uuid.UUID]*domain.Product),
	}
}

func newTestRepos(store *memStore) *repository.Repositories {
	return &repository.Repositories{
		Order:   &memOrderRepo{store: store},
		Escrow:  &memEscrowRepo{store: store},
		Product: &memProductRepo{store: store},
	}
}

type memOrderRepo struct {
	store *memStore

	// createErr forces Create to fail, for compensation tests
	createErr error
	// updateStatusErr and updatePaymentStatusErr force single writes to
	// fail, for partial-failure retry tests
	updateStatusErr        error
	updatePaymentStatusErr error
}

func (r *memOrderRepo) Create(_ context.Context, order *domain.Order) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order.CreatedAt = time.Now()
	r.store.orders[order.ID] = order
	return nil
}

func (r *memOrderRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	return order, nil
}

func (r *memOrderRepo) GetByPaymentReference(_ context.Context, reference string) (*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	for _, order := range r.store.orders {
		if order.Payment != nil && order.Payment.Reference == reference {
			return order, nil
		}
	}
	return nil, &errors.ErrNotFound{Resource: "order", ID: reference}
}

func (r *memOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, status domain.OrderStatus) error {
	if r.updateStatusErr != nil {
		return r.updateStatusErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[id]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	order.Status = status
	return nil
}

func (r *memOrderRepo) UpsertPayment(_ context.Context, payment *domain.Payment) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[payment.OrderID]
	if !ok {
		return &errors.ErrNotFound{Resource: "order", ID: payment.OrderID.String()}
	}
	order.Payment = payment
	order.PaymentStatus = payment.Status
	return nil
}

func (r *memOrderRepo) UpdatePaymentStatus(_ context.Context, orderID uuid.UUID, status domain.PaymentStatus, completedAt *time.Time, adminNotes *string) error {
	if r.updatePaymentStatusErr != nil {
		return r.updatePaymentStatusErr
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	order, ok := r.store.orders[orderID]
	if !ok || order.Payment == nil {
		return &errors.ErrNotFound{Resource: "payment", ID: orderID.String()}
	}
	order.Payment.Status = status
	order.PaymentStatus = status
	if completedAt != nil {
		order.Payment.CompletedAt = completedAt
	}
	if adminNotes != nil {
		notes := *adminNotes
		order.Payment.AdminNotes = &notes
	}
	return nil
}

func (r *memOrderRepo) ListByBuyer(_ context.Context, buyerID uuid.UUID, limit, _ int) ([]*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.store.orders {
		if order.BuyerID == buyerID && len(out) < limit {
			out = append(out, order)
		}
	}
	return out, nil
}

func (r *memOrderRepo) List(_ context.Context, limit, _ int) ([]*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.store.orders {
		if len(out) < limit {
			out = append(out, order)
		}
	}
	return out, nil
}

func (r *memOrderRepo) ListByStatus(_ context.Context, status domain.OrderStatus, limit, _ int) ([]*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.store.orders {
		if order.Status == status && len(out) < limit {
			out = append(out, order)
		}
	}
	return out, nil
}

func (r *memOrderRepo) ListUnresolvedPayments(_ context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var out []*domain.Order
	for _, order := range r.store.orders {
		if order.Status != domain.OrderStatusPendingPayment || order.Payment == nil {
			continue
		}
		if order.Payment.Status != domain.PaymentStatusPending && order.Payment.Status != domain.PaymentStatusProcessing {
			continue
		}
		if !order.Payment.InitiatedAt.Before(olderThan) {
			continue
		}
		if len(out) < limit {
			out = append(out, order)
		}
	}
	return out, nil
}

type memEscrowRepo struct {
	store *memStore
}

func (r *memEscrowRepo) Create(_ context.Context, escrow *domain.Escrow) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, exists := r.store.escrows[escrow.OrderID]; exists {
		return &errors.ErrValidation{Field: "order_id", Message: "escrow already exists"}
	}
	escrow.ID = uuid.New()
	escrow.CreatedAt = time.Now()
	r.store.escrows[escrow.OrderID] = escrow
	return nil
}

func (r *memEscrowRepo) GetByOrderID(_ context.Context, orderID uuid.UUID) (*domain.Escrow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	escrow, ok := r.store.escrows[orderID]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "escrow", ID: orderID.String()}
	}
	return escrow, nil
}

func (r *memEscrowRepo) Transition(_ context.Context, orderID uuid.UUID, from, to domain.EscrowStatus, at time.Time) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	escrow, ok := r.store.escrows[orderID]
	if !ok || escrow.Status != from {
		return false, nil
	}
	escrow.Status = to
	switch to {
	case domain.EscrowStatusFunded:
		escrow.FundedAt = &at
	case domain.EscrowStatusReleasedToVendor:
		escrow.ReleasedAt = &at
	case domain.EscrowStatusRefundedToBuyer:
		escrow.RefundedAt = &at
	}
	return true, nil
}

func (r *memEscrowRepo) Stats(_ context.Context) (*domain.EscrowStats, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	stats := &domain.EscrowStats{}
	for _, escrow := range r.store.escrows {
		stats.TotalCount++
		stats.TotalAmount += escrow.Amount
		switch escrow.Status {
		case domain.EscrowStatusPending:
			stats.PendingCount++
			stats.PendingAmount += escrow.Amount
		case domain.EscrowStatusFunded:
			stats.FundedCount++
			stats.FundedAmount += escrow.Amount
		case domain.EscrowStatusReleasedToVendor:
			stats.ReleasedCount++
			stats.ReleasedAmount += escrow.Amount
		case domain.EscrowStatusRefundedToBuyer:
			stats.RefundedCount++
			stats.RefundedAmount += escrow.Amount
		}
	}
	return stats, nil
}

type memProductRepo struct {
	store *memStore
}

func (r *memProductRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	product, ok := r.store.products[id]
	if !ok {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	return product, nil
}

func (r *memProductRepo) Reserve(_ context.Context, productID uuid.UUID, quantity int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	product, ok := r.store.products[productID]
	if !ok || !product.IsActive {
		return &errors.ErrNotFound{Resource: "product", ID: productID.String()}
	}
	if product.Quantity < quantity {
		return &errors.ErrInsufficientStock{
			ProductID: productID.String(),
			Requested: quantity,
			Available: product.Quantity,
		}
	}
	product.Quantity -= quantity
	return nil
}

func (r *memProductRepo) Release(_ context.Context, productID uuid.UUID, quantity int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	product, ok := r.store.products[productID]
	if !ok {
		return &errors.ErrNotFound{Resource: "product", ID: productID.String()}
	}
	product.Quantity += quantity
	return nil
}

// mockProvider is a function-field fake for the Monime client
type mockProvider struct {
	createFunc func(ctx context.Context, req monime.CreatePaymentRequest) (*monime.Payment, error)
	verifyFunc func(ctx context.Context, reference string) (*monime.Payment, error)

	createCalls []monime.CreatePaymentRequest
}

func (m *mockProvider) CreatePayment(ctx context.Context, req monime.CreatePaymentRequest) (*monime.Payment, error) {
	m.createCalls = append(m.createCalls, req)
	return m.createFunc(ctx, req)
}

func (m *mockProvider) VerifyPayment(ctx context.Context, reference string) (*monime.Payment, error) {
	return m.verifyFunc(ctx, reference)
}

// recordingNotifier counts notifications per kind
type recordingNotifier struct {
	completed int
	failed    int
	cancelled int
}

func (n *recordingNotifier) PaymentCompleted(context.Context, uuid.UUID, string) {
	n.completed++
}

func (n *recordingNotifier) PaymentFailed(context.Context, uuid.UUID, string) {
	n.failed++
}

func (n *recordingNotifier) OrderCancelled(context.Context, uuid.UUID, string) {
	n.cancelled++
}

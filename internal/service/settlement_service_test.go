package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

// seedSettledOrder puts an order and its escrow into the given states,
// bypassing the payment flow.
func seedSettledOrder(store *memStore, orderStatus domain.OrderStatus, escrowStatus domain.EscrowStatus) *domain.Order {
	order := seedOrder(store, uuid.New(), 450000)
	order.Status = orderStatus
	store.escrows[order.ID] = &domain.Escrow{
		ID:        uuid.New(),
		OrderID:   order.ID,
		Reference: GeneratePaymentReference(order.ID),
		Amount:    order.Total,
		Currency:  order.Currency,
		Status:    escrowStatus,
	}
	return order
}

func TestConfirmDelivery(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	svc := NewSettlementService(newTestRepos(store), notifier, zap.NewNop())

	order := seedSettledOrder(store, domain.OrderStatusShipped, domain.EscrowStatusFunded)

	updated, err := svc.ConfirmDelivery(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, updated.Status)
	assert.Equal(t, domain.EscrowStatusReleasedToVendor, store.escrows[order.ID].Status)
	assert.NotNil(t, store.escrows[order.ID].ReleasedAt)
}

func TestConfirmDelivery_UnfundedEscrow(t *testing.T) {
	store := newMemStore()
	svc := NewSettlementService(newTestRepos(store), &recordingNotifier{}, zap.NewNop())

	order := seedSettledOrder(store, domain.OrderStatusShipped, domain.EscrowStatusPending)

	_, err := svc.ConfirmDelivery(context.Background(), order.ID)
	var transErr *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, "escrow", transErr.Entity)
}

func TestConfirmDelivery_BeforeShipment(t *testing.T) {
	store := newMemStore()
	svc := NewSettlementService(newTestRepos(store), &recordingNotifier{}, zap.NewNop())

	order := seedSettledOrder(store, domain.OrderStatusPendingPayment, domain.EscrowStatusPending)

	_, err := svc.ConfirmDelivery(context.Background(), order.ID)
	var transErr *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, "order", transErr.Entity)
}

func TestMarkDisputed(t *testing.T) {
	store := newMemStore()
	svc := NewSettlementService(newTestRepos(store), &recordingNotifier{}, zap.NewNop())

	order := seedSettledOrder(store, domain.OrderStatusDelivered, domain.EscrowStatusFunded)

	updated, err := svc.MarkDisputed(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDisputed, updated.Status)

	// Settlement is frozen while disputed
	assert.Equal(t, domain.EscrowStatusFunded, store.escrows[order.ID].Status)

	// A completed order can no longer be disputed
	done := seedSettledOrder(store, domain.OrderStatusCompleted, domain.EscrowStatusReleasedToVendor)
	_, err = svc.MarkDisputed(context.Background(), done.ID)
	var transErr *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transErr)
}

func TestResolveDispute(t *testing.T) {
	tests := []struct {
		name       string
		outcome    domain.DisputeOutcome
		wantOrder  domain.OrderStatus
		wantEscrow domain.EscrowStatus
		cancelled  int
	}{
		{
			name:       "release to vendor",
			outcome:    domain.DisputeOutcomeRelease,
			wantOrder:  domain.OrderStatusCompleted,
			wantEscrow: domain.EscrowStatusReleasedToVendor,
		},
		{
			name:       "refund to buyer",
			outcome:    domain.DisputeOutcomeRefund,
			wantOrder:  domain.OrderStatusCancelled,
			wantEscrow: domain.EscrowStatusRefundedToBuyer,
			cancelled:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			notifier := &recordingNotifier{}
			svc := NewSettlementService(newTestRepos(store), notifier, zap.NewNop())

			order := seedSettledOrder(store, domain.OrderStatusDisputed, domain.EscrowStatusFunded)

			updated, err := svc.ResolveDispute(context.Background(), order.ID, tt.outcome)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOrder, updated.Status)
			assert.Equal(t, tt.wantEscrow, store.escrows[order.ID].Status)
			assert.Equal(t, tt.cancelled, notifier.cancelled)
		})
	}
}

func TestResolveDispute_NotDisputed(t *testing.T) {
	store := newMemStore()
	svc := NewSettlementService(newTestRepos(store), &recordingNotifier{}, zap.NewNop())

	order := seedSettledOrder(store, domain.OrderStatusConfirmed, domain.EscrowStatusFunded)

	_, err := svc.ResolveDispute(context.Background(), order.ID, domain.DisputeOutcomeRelease)
	var transErr *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transErr)

	_, err = svc.ResolveDispute(context.Background(), order.ID, domain.DisputeOutcome("split"))
	var valErr *errors.ErrValidation
	require.ErrorAs(t, err, &valErr)
}

func TestCancelOrder(t *testing.T) {
	store := newMemStore()
	notifier := &recordingNotifier{}
	svc := NewSettlementService(newTestRepos(store), notifier, zap.NewNop())

	order := seedSettledOrder(store, domain.OrderStatusPaymentFailed, domain.EscrowStatusPending)
	productID := order.Items[0].ProductID
	store.products[productID].Quantity--
	stockBefore := store.products[productID].Quantity

	updated, err := svc.CancelOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, updated.Status)
	assert.Equal(t, domain.EscrowStatusRefundedToBuyer, store.escrows[order.ID].Status)
	assert.Equal(t, stockBefore+1, store.products[productID].Quantity)
	assert.Equal(t, 1, notifier.cancelled)
}

func TestCancelOrder_NoEscrowYet(t *testing.T) {
	store := newMemStore()
	svc := NewSettlementService(newTestRepos(store), &recordingNotifier{}, zap.NewNop())

	order := seedOrder(store, uuid.New(), 100000)

	updated, err := svc.CancelOrder(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, updated.Status)
}

func TestCancelOrder_FundedEscrowRejected(t *testing.T) {
	store := newMemStore()
	svc := NewSettlementService(newTestRepos(store), &recordingNotifier{}, zap.NewNop())

	order := seedSettledOrder(store, domain.OrderStatusConfirmed, domain.EscrowStatusFunded)

	_, err := svc.CancelOrder(context.Background(), order.ID)
	var transErr *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, "escrow", transErr.Entity)

	assert.Equal(t, domain.OrderStatusConfirmed, store.orders[order.ID].Status)
	assert.Equal(t, domain.EscrowStatusFunded, store.escrows[order.ID].Status)
}

func TestCancelOrder_CompletedRejected(t *testing.T) {
	store := newMemStore()
	svc := NewSettlementService(newTestRepos(store), &recordingNotifier{}, zap.NewNop())

	order := seedSettledOrder(store, domain.OrderStatusCompleted, domain.EscrowStatusReleasedToVendor)

	_, err := svc.CancelOrder(context.Background(), order.ID)
	var transErr *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, "order", transErr.Entity)
}

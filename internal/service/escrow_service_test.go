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

func seedEscrow(store *memStore, status domain.EscrowStatus, amount int64) *domain.Escrow {
	escrow := &domain.Escrow{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		Reference: GeneratePaymentReference(uuid.New()),
		Amount:    amount,
		Currency:  domain.Currency,
		Status:    status,
	}
	store.escrows[escrow.OrderID] = escrow
	return escrow
}

func TestEscrowFund(t *testing.T) {
	store := newMemStore()
	svc := NewEscrowService(newTestRepos(store), zap.NewNop())
	escrow := seedEscrow(store, domain.EscrowStatusPending, 450000)

	funded, err := svc.Fund(context.Background(), escrow.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusFunded, funded.Status)
	assert.NotNil(t, funded.FundedAt)

	// Funding twice is a duplicate trigger, not an error
	firstFundedAt := funded.FundedAt
	again, err := svc.Fund(context.Background(), escrow.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusFunded, again.Status)
	assert.Equal(t, firstFundedAt, again.FundedAt)
}

func TestEscrowRelease_RequiresFunding(t *testing.T) {
	store := newMemStore()
	svc := NewEscrowService(newTestRepos(store), zap.NewNop())
	escrow := seedEscrow(store, domain.EscrowStatusPending, 450000)

	_, err := svc.Release(context.Background(), escrow.OrderID)
	var transErr *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transErr)
	assert.Equal(t, "escrow", transErr.Entity)
	assert.Equal(t, string(domain.EscrowStatusPending), transErr.From)

	require.Equal(t, domain.EscrowStatusPending, store.escrows[escrow.OrderID].Status)
}

func TestEscrowRefund(t *testing.T) {
	store := newMemStore()
	svc := NewEscrowService(newTestRepos(store), zap.NewNop())

	// From funded, after a dispute
	funded := seedEscrow(store, domain.EscrowStatusFunded, 100000)
	refunded, err := svc.Refund(context.Background(), funded.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusRefundedToBuyer, refunded.Status)
	assert.NotNil(t, refunded.RefundedAt)

	// Directly from pending, cancellation before funds arrived
	pending := seedEscrow(store, domain.EscrowStatusPending, 200000)
	refunded, err = svc.Refund(context.Background(), pending.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.EscrowStatusRefundedToBuyer, refunded.Status)
}

func TestEscrowSettledStatesAreTerminal(t *testing.T) {
	store := newMemStore()
	svc := NewEscrowService(newTestRepos(store), zap.NewNop())

	refunded := seedEscrow(store, domain.EscrowStatusRefundedToBuyer, 100000)
	_, err := svc.Release(context.Background(), refunded.OrderID)
	var transErr *errors.ErrInvalidStateTransition
	require.ErrorAs(t, err, &transErr)

	released := seedEscrow(store, domain.EscrowStatusReleasedToVendor, 100000)
	_, err = svc.Refund(context.Background(), released.OrderID)
	require.ErrorAs(t, err, &transErr)
	_, err = svc.Fund(context.Background(), released.OrderID)
	require.ErrorAs(t, err, &transErr)
}

func TestEscrowUnknownOrder(t *testing.T) {
	store := newMemStore()
	svc := NewEscrowService(newTestRepos(store), zap.NewNop())

	_, err := svc.Fund(context.Background(), uuid.New())
	var notFound *errors.ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestEscrowStats(t *testing.T) {
	store := newMemStore()
	svc := NewEscrowService(newTestRepos(store), zap.NewNop())

	seedEscrow(store, domain.EscrowStatusPending, 100000)
	seedEscrow(store, domain.EscrowStatusFunded, 200000)
	seedEscrow(store, domain.EscrowStatusReleasedToVendor, 300000)
	seedEscrow(store, domain.EscrowStatusReleasedToVendor, 400000)
	seedEscrow(store, domain.EscrowStatusRefundedToBuyer, 500000)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.TotalCount)
	assert.Equal(t, int64(1500000), stats.TotalAmount)
	assert.Equal(t, 1, stats.PendingCount)
	assert.Equal(t, 2, stats.ReleasedCount)
	assert.Equal(t, int64(700000), stats.ReleasedAmount)
	assert.Equal(t, 1, stats.RefundedCount)

	// Rates only count settled escrows
	assert.InDelta(t, 2.0/3.0, stats.ReleaseRate(), 1e-9)
	assert.InDelta(t, 1.0/3.0, stats.RefundRate(), 1e-9)
}

func TestEscrowStatsEmpty(t *testing.T) {
	store := newMemStore()
	svc := NewEscrowService(newTestRepos(store), zap.NewNop())

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalCount)
	assert.Zero(t, stats.ReleaseRate())
	assert.Zero(t, stats.RefundRate())
}

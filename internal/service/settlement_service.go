package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/internal/notify"
	"github.com/farmtrust/paymentsapi/internal/repository"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

// settlementService orchestrates the settlement lifecycle across orders,
// escrows and stock. It owns no state of its own; every entry point is a
// sequence of guarded calls into the other services.
type settlementService struct {
	repos    *repository.Repositories
	escrows  *escrowService
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewSettlementService creates a new settlement coordinator
func NewSettlementService(repos *repository.Repositories, notifier notify.Notifier, logger *zap.Logger) *settlementService {
	return &settlementService{
		repos:    repos,
		escrows:  NewEscrowService(repos, logger),
		notifier: notifier,
		logger:   logger,
	}
}

// ConfirmDelivery is the delivery-confirmation entry point: the order is
// marked delivered, the escrow is released to the vendor and the order
// completes.
func (s *settlementService) ConfirmDelivery(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusDelivered {
		if !order.Status.CanTransitionTo(domain.OrderStatusDelivered) {
			return nil, &errors.ErrInvalidStateTransition{
				Entity: "order", From: string(order.Status), To: string(domain.OrderStatusDelivered),
			}
		}
		if err := s.repos.Order.UpdateStatus(ctx, orderID, domain.OrderStatusDelivered); err != nil {
			return nil, err
		}
	}

	if _, err := s.escrows.Release(ctx, orderID); err != nil {
		return nil, err
	}

	if err := s.repos.Order.UpdateStatus(ctx, orderID, domain.OrderStatusCompleted); err != nil {
		return nil, err
	}

	s.logger.Info("Delivery confirmed, escrow released",
		zap.String("order_id", orderID.String()),
		zap.String("order_number", order.OrderNumber),
	)

	return s.repos.Order.GetByID(ctx, orderID)
}

// MarkDisputed flags an order as disputed, freezing settlement until an
// operator resolves it
func (s *settlementService) MarkDisputed(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(domain.OrderStatusDisputed) {
		return nil, &errors.ErrInvalidStateTransition{
			Entity: "order", From: string(order.Status), To: string(domain.OrderStatusDisputed),
		}
	}

	if err := s.repos.Order.UpdateStatus(ctx, orderID, domain.OrderStatusDisputed); err != nil {
		return nil, err
	}

	return s.repos.Order.GetByID(ctx, orderID)
}

// ResolveDispute is the dispute-resolution entry point: the escrow is
// settled according to the outcome and the order leaves the disputed state.
func (s *settlementService) ResolveDispute(ctx context.Context, orderID uuid.UUID, outcome domain.DisputeOutcome) (*domain.Order, error) {
	if !outcome.IsValid() {
		return nil, &errors.ErrValidation{Field: "outcome", Message: "outcome must be release or refund"}
	}

	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusDisputed {
		return nil, &errors.ErrInvalidStateTransition{
			Entity: "order", From: string(order.Status), To: "resolved",
		}
	}

	var finalStatus domain.OrderStatus
	switch outcome {
	case domain.DisputeOutcomeRelease:
		if _, err := s.escrows.Release(ctx, orderID); err != nil {
			return nil, err
		}
		finalStatus = domain.OrderStatusCompleted
	case domain.DisputeOutcomeRefund:
		if _, err := s.escrows.Refund(ctx, orderID); err != nil {
			return nil, err
		}
		finalStatus = domain.OrderStatusCancelled
	}

	if err := s.repos.Order.UpdateStatus(ctx, orderID, finalStatus); err != nil {
		return nil, err
	}

	s.logger.Info("Dispute resolved",
		zap.String("order_id", orderID.String()),
		zap.String("outcome", string(outcome)),
	)

	if finalStatus == domain.OrderStatusCancelled {
		s.notifier.OrderCancelled(ctx, order.BuyerID, order.OrderNumber)
	}

	return s.repos.Order.GetByID(ctx, orderID)
}

// CancelOrder cancels an order that has not settled: allowed only while the
// escrow is still pending (unfunded) or absent, or after a failed payment.
// A funded escrow must go through dispute refund, never a direct cancel.
func (s *settlementService) CancelOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Status.CanTransitionTo(domain.OrderStatusCancelled) {
		return nil, &errors.ErrInvalidStateTransition{
			Entity: "order", From: string(order.Status), To: string(domain.OrderStatusCancelled),
		}
	}

	escrow, err := s.repos.Escrow.GetByOrderID(ctx, orderID)
	if err != nil {
		if _, ok := err.(*errors.ErrNotFound); !ok {
			return nil, err
		}
		escrow = nil
	}
	if escrow != nil && escrow.Status != domain.EscrowStatusPending {
		return nil, &errors.ErrInvalidStateTransition{
			Entity: "escrow", From: string(escrow.Status), To: string(domain.EscrowStatusRefundedToBuyer),
		}
	}

	if err := s.repos.Order.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil {
		return nil, err
	}

	// Compensating actions: reserved stock goes back, an unfunded escrow
	// refunds directly without passing through funded
	for _, item := range order.Items {
		if err := s.repos.Product.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to release stock on cancellation",
				zap.String("order_id", orderID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err),
			)
		}
	}
	if escrow != nil {
		if _, err := s.escrows.Refund(ctx, orderID); err != nil {
			return nil, err
		}
	}

	s.notifier.OrderCancelled(ctx, order.BuyerID, order.OrderNumber)

	return s.repos.Order.GetByID(ctx, orderID)
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/internal/repository"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

type escrowService struct {
	repos  *repository.Repositories
	logger *zap.Logger
}

// NewEscrowService creates a new escrow service
func NewEscrowService(repos *repository.Repositories, logger *zap.Logger) *escrowService {
	return &escrowService{
		repos:  repos,
		logger: logger,
	}
}

// Fund moves a pending escrow to funded. Calling it again once funded is a
// no-op success; any other state is a transition error. The conditional
// update in the repository is what makes a racing duplicate safe.
func (s *escrowService) Fund(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error) {
	return s.transition(ctx, orderID, domain.EscrowStatusFunded,
		domain.EscrowStatusPending)
}

// Release settles a funded escrow to the vendor. Fires on delivery
// confirmation; releasing an already released escrow is a no-op success.
func (s *escrowService) Release(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error) {
	return s.transition(ctx, orderID, domain.EscrowStatusReleasedToVendor,
		domain.EscrowStatusFunded)
}

// Refund settles the escrow back to the buyer: from funded after a dispute,
// or directly from pending when the order is cancelled before funding.
func (s *escrowService) Refund(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error) {
	return s.transition(ctx, orderID, domain.EscrowStatusRefundedToBuyer,
		domain.EscrowStatusFunded, domain.EscrowStatusPending)
}

// Stats returns the escrow aggregation for dashboard consumption
func (s *escrowService) Stats(ctx context.Context) (*domain.EscrowStats, error) {
	return s.repos.Escrow.Stats(ctx)
}

func (s *escrowService) transition(ctx context.Context, orderID uuid.UUID, to domain.EscrowStatus, fromCandidates ...domain.EscrowStatus) (*domain.Escrow, error) {
	now := time.Now()

	for _, from := range fromCandidates {
		moved, err := s.repos.Escrow.Transition(ctx, orderID, from, to, now)
		if err != nil {
			return nil, err
		}
		if moved {
			s.logger.Info("Escrow transitioned",
				zap.String("order_id", orderID.String()),
				zap.String("from", string(from)),
				zap.String("to", string(to)),
			)
			return s.repos.Escrow.GetByOrderID(ctx, orderID)
		}
	}

	// No candidate matched: either the transition already happened
	// (duplicate trigger, fine) or the escrow is in a state this
	// transition must never leave.
	escrow, err := s.repos.Escrow.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if escrow.Status == to {
		return escrow, nil
	}

	return nil, &errors.ErrInvalidStateTransition{
		Entity: "escrow",
		From:   string(escrow.Status),
		To:     string(to),
	}
}

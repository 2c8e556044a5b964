package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/config"
	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/internal/monime"
	"github.com/farmtrust/paymentsapi/internal/notify"
	"github.com/farmtrust/paymentsapi/internal/repository"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

// ProviderClient is the slice of the Monime client the payment service uses
type ProviderClient interface {
	CreatePayment(ctx context.Context, req monime.CreatePaymentRequest) (*monime.Payment, error)
	VerifyPayment(ctx context.Context, reference string) (*monime.Payment, error)
}

// sierraLeoneMobile matches national mobile numbers with an optional
// +232/232/0 prefix ahead of the 8 significant digits.
var sierraLeoneMobile = regexp.MustCompile(`^(?:\+?232|0)?([2-9]\d{7})$`)

type paymentService struct {
	repos    *repository.Repositories
	client   ProviderClient
	cfg      config.MonimeConfig
	notifier notify.Notifier
	logger   *zap.Logger
}

// NewPaymentService creates a new payment service
func NewPaymentService(repos *repository.Repositories, client ProviderClient, cfg config.MonimeConfig, notifier notify.Notifier, logger *zap.Logger) *paymentService {
	return &paymentService{
		repos:    repos,
		client:   client,
		cfg:      cfg,
		notifier: notifier,
		logger:   logger,
	}
}

// GeneratePaymentReference derives the payment reference from the order id.
// The same order always yields the same reference, so a client retry cannot
// mint a second provider-side charge: the reference doubles as the provider
// idempotency key.
func GeneratePaymentReference(orderID uuid.UUID) string {
	sum := sha256.Sum256([]byte(orderID.String()))
	return "FT-PAY-" + strings.ToUpper(hex.EncodeToString(sum[:])[:12])
}

// NormalizePhoneNumber validates a Sierra Leone mobile number and returns
// the canonical 232XXXXXXXX form
func NormalizePhoneNumber(phone string) (string, error) {
	trimmed := strings.TrimSpace(phone)
	match := sierraLeoneMobile.FindStringSubmatch(trimmed)
	if match == nil {
		return "", &errors.ErrValidation{Field: "phone_number", Message: "not a valid Sierra Leone mobile number"}
	}
	return "232" + match[1], nil
}

// InitializePayment creates a mobile-money charge for the order and records
// the pending payment sub-record plus a pending escrow of the same amount.
// Nothing is written locally unless the provider call succeeds. Only the
// order's buyer may initiate its payment.
func (s *paymentService) InitializePayment(ctx context.Context, buyerID uuid.UUID, req InitializePaymentRequest) (*PaymentHandle, error) {
	if missing := s.cfg.MissingCredentials(); len(missing) > 0 {
		return nil, &errors.ErrProviderNotConfigured{Missing: missing}
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return nil, &errors.ErrValidation{Field: "order_id", Message: "invalid order id"}
	}

	method := domain.PaymentMethod(req.PaymentMethod)
	if !method.IsValid() {
		return nil, &errors.ErrValidation{Field: "payment_method", Message: "unsupported payment method"}
	}

	phone, err := NormalizePhoneNumber(req.PhoneNumber)
	if err != nil {
		return nil, err
	}

	order, err := s.repos.Order.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != buyerID {
		return nil, &errors.ErrNotFound{Resource: "order", ID: req.OrderID}
	}

	switch order.Status {
	case domain.OrderStatusConfirmed, domain.OrderStatusShipped,
		domain.OrderStatusDelivered, domain.OrderStatusCompleted:
		return nil, &errors.ErrOrderAlreadyPaid{OrderID: order.ID.String()}
	case domain.OrderStatusCancelled, domain.OrderStatusDisputed:
		return nil, &errors.ErrInvalidStateTransition{
			Entity: "order", From: string(order.Status), To: string(domain.OrderStatusPendingPayment),
		}
	}
	if order.Payment != nil {
		switch order.Payment.Status {
		case domain.PaymentStatusCompleted:
			return nil, &errors.ErrOrderAlreadyPaid{OrderID: order.ID.String()}
		case domain.PaymentStatusPending, domain.PaymentStatusProcessing:
			return nil, &errors.ErrPaymentAlreadyPending{OrderID: order.ID.String()}
		}
	}

	reference := GeneratePaymentReference(order.ID)

	providerPayment, err := s.client.CreatePayment(ctx, monime.CreatePaymentRequest{
		Amount:      monime.Amount{Currency: order.Currency, Value: order.Total},
		PhoneNumber: phone,
		Provider:    string(method),
		Reference:   reference,
		Description: fmt.Sprintf("FarmTrust order %s", order.OrderNumber),
		Customer: monime.Customer{
			Name:  strings.TrimSpace(order.Delivery.FirstName + " " + order.Delivery.LastName),
			Phone: phone,
		},
	})
	if err != nil {
		// Provider failure: surface without any local write so the
		// buyer can retry with the same reference
		return nil, err
	}

	payment := &domain.Payment{
		OrderID:           order.ID,
		Provider:          "monime",
		Method:            method,
		Reference:         reference,
		ProviderPaymentID: providerPayment.ID,
		Status:            domain.PaymentStatusPending,
		Amount:            order.Total,
		Currency:          order.Currency,
		CustomerPhone:     phone,
		InitiatedAt:       time.Now(),
	}
	if err := s.repos.Order.UpsertPayment(ctx, payment); err != nil {
		return nil, err
	}

	// One escrow per order. A retry after a failed attempt reuses the
	// existing pending escrow instead of creating a second row.
	if _, err := s.repos.Escrow.GetByOrderID(ctx, order.ID); err != nil {
		if _, ok := err.(*errors.ErrNotFound); !ok {
			return nil, err
		}
		escrow := &domain.Escrow{
			OrderID:   order.ID,
			Reference: reference,
			Amount:    order.Total,
			Currency:  order.Currency,
			Status:    domain.EscrowStatusPending,
		}
		if err := s.repos.Escrow.Create(ctx, escrow); err != nil {
			return nil, err
		}
	}

	if order.Status != domain.OrderStatusPendingPayment {
		if err := s.repos.Order.UpdateStatus(ctx, order.ID, domain.OrderStatusPendingPayment); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Payment initiated",
		zap.String("order_id", order.ID.String()),
		zap.String("reference", reference),
		zap.String("method", string(method)),
		zap.Int64("amount", order.Total),
	)

	return &PaymentHandle{
		Reference:         reference,
		ProviderPaymentID: providerPayment.ID,
		CheckoutURL:       providerPayment.CheckoutURL,
		ExpiresAt:         providerPayment.ExpiresAt,
		Amount:            order.Total,
		Currency:          order.Currency,
	}, nil
}

// VerifyPayment resolves the payment outcome by asking the provider for the
// current status of the reference, then applies it exactly once. A provider
// failure leaves local state untouched and is retryable.
func (s *paymentService) VerifyPayment(ctx context.Context, reference string) (*ReconciliationOutcome, error) {
	order, err := s.repos.Order.GetByPaymentReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	providerPayment, err := s.client.VerifyPayment(ctx, reference)
	if err != nil {
		return nil, err
	}

	return s.applyRemoteStatus(ctx, order, providerPayment.DomainStatus(), nil)
}

// ReconcileRemoteStatus applies a status delivered by the provider webhook.
// Same guarded path as an explicit verify, no provider round trip.
func (s *paymentService) ReconcileRemoteStatus(ctx context.Context, reference string, remote domain.PaymentStatus) (*ReconciliationOutcome, error) {
	if !remote.IsValid() {
		return nil, &errors.ErrValidation{Field: "status", Message: "unknown payment status"}
	}

	order, err := s.repos.Order.GetByPaymentReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	return s.applyRemoteStatus(ctx, order, remote, nil)
}

// ManualReconcile lets an operator force a payment status with attached
// notes, bypassing provider verification. It still goes through the same
// idempotency-guarded transition logic.
func (s *paymentService) ManualReconcile(ctx context.Context, reference string, status domain.PaymentStatus, notes string) (*ReconciliationOutcome, error) {
	if !status.IsValid() {
		return nil, &errors.ErrValidation{Field: "status", Message: "unknown payment status"}
	}

	order, err := s.repos.Order.GetByPaymentReference(ctx, reference)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Manual reconciliation",
		zap.String("reference", reference),
		zap.String("status", string(status)),
		zap.String("notes", notes),
	)

	return s.applyRemoteStatus(ctx, order, status, &notes)
}

// applyRemoteStatus applies a remote payment status to order and escrow
// state. Exactly-once application rests on two rules: the stored payment
// status is the idempotency key, and it is written only after the order
// and escrow writes succeed. A repeated signal with the same status is a
// no-op; a retry after a partial write failure finds the key unchanged
// and re-runs the remaining writes, each of which is itself guarded.
func (s *paymentService) applyRemoteStatus(ctx context.Context, order *domain.Order, remote domain.PaymentStatus, adminNotes *string) (*ReconciliationOutcome, error) {
	if order.Payment == nil {
		return nil, &errors.ErrNotFound{Resource: "payment", ID: order.ID.String()}
	}

	outcome := &ReconciliationOutcome{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Reference:     order.Payment.Reference,
		OrderStatus:   order.Status,
		PaymentStatus: order.Payment.Status,
	}
	if escrow, err := s.repos.Escrow.GetByOrderID(ctx, order.ID); err == nil {
		outcome.EscrowStatus = escrow.Status
	}

	if order.Payment.Status == remote {
		return outcome, nil
	}

	// Provider signals carry no ordering guarantee. Once the stored
	// status is terminal, a contradicting webhook or verify is stale and
	// must not regress settled state. Manual reconciliation is the only
	// path allowed past this point.
	if adminNotes == nil && order.Payment.Status.IsTerminal() {
		s.logger.Warn("Ignoring stale provider status",
			zap.String("reference", order.Payment.Reference),
			zap.String("stored", string(order.Payment.Status)),
			zap.String("remote", string(remote)),
		)
		return outcome, nil
	}

	now := time.Now()

	switch remote {
	case domain.PaymentStatusCompleted:
		if order.Status != domain.OrderStatusConfirmed {
			if !order.Status.CanTransitionTo(domain.OrderStatusConfirmed) {
				s.logger.Warn("Completed payment cannot confirm order",
					zap.String("order_id", order.ID.String()),
					zap.String("order_status", string(order.Status)),
				)
				return outcome, nil
			}
			if err := s.repos.Order.UpdateStatus(ctx, order.ID, domain.OrderStatusConfirmed); err != nil {
				return nil, err
			}
		}
		// Funding is conditioned on the escrow still being pending; a
		// second completed notification that raced past the status guard
		// cannot re-fund.
		moved, err := s.repos.Escrow.Transition(ctx, order.ID,
			domain.EscrowStatusPending, domain.EscrowStatusFunded, now)
		if err != nil {
			return nil, err
		}
		if moved {
			outcome.EscrowStatus = domain.EscrowStatusFunded
		} else {
			s.logger.Warn("Escrow already funded, skipping",
				zap.String("order_id", order.ID.String()),
			)
		}
		if err := s.repos.Order.UpdatePaymentStatus(ctx, order.ID, remote, &now, adminNotes); err != nil {
			return nil, err
		}
		outcome.OrderStatus = domain.OrderStatusConfirmed
		outcome.PaymentStatus = remote
		outcome.Changed = true
		s.notifier.PaymentCompleted(ctx, order.BuyerID, order.OrderNumber)

	case domain.PaymentStatusFailed:
		if order.Status != domain.OrderStatusPaymentFailed {
			if !order.Status.CanTransitionTo(domain.OrderStatusPaymentFailed) {
				s.logger.Warn("Failed payment cannot move order",
					zap.String("order_id", order.ID.String()),
					zap.String("order_status", string(order.Status)),
				)
				return outcome, nil
			}
			if err := s.repos.Order.UpdateStatus(ctx, order.ID, domain.OrderStatusPaymentFailed); err != nil {
				return nil, err
			}
		}
		// Escrow stays pending: no funds ever arrived
		if err := s.repos.Order.UpdatePaymentStatus(ctx, order.ID, remote, nil, adminNotes); err != nil {
			return nil, err
		}
		outcome.OrderStatus = domain.OrderStatusPaymentFailed
		outcome.PaymentStatus = remote
		outcome.Changed = true
		s.notifier.PaymentFailed(ctx, order.BuyerID, order.OrderNumber)

	case domain.PaymentStatusCancelled:
		if order.Status != domain.OrderStatusCancelled {
			if !order.Status.CanTransitionTo(domain.OrderStatusCancelled) {
				s.logger.Warn("Cancelled payment cannot move order",
					zap.String("order_id", order.ID.String()),
					zap.String("order_status", string(order.Status)),
				)
				return outcome, nil
			}
			if err := s.repos.Order.UpdateStatus(ctx, order.ID, domain.OrderStatusCancelled); err != nil {
				return nil, err
			}
			// Release only on the transition into cancelled so a retry
			// does not restock twice
			s.releaseOrderStock(ctx, order)
		}
		if moved, err := s.repos.Escrow.Transition(ctx, order.ID,
			domain.EscrowStatusPending, domain.EscrowStatusRefundedToBuyer, now); err != nil {
			return nil, err
		} else if moved {
			outcome.EscrowStatus = domain.EscrowStatusRefundedToBuyer
		}
		if err := s.repos.Order.UpdatePaymentStatus(ctx, order.ID, remote, nil, adminNotes); err != nil {
			return nil, err
		}
		outcome.OrderStatus = domain.OrderStatusCancelled
		outcome.PaymentStatus = remote
		outcome.Changed = true
		s.notifier.OrderCancelled(ctx, order.BuyerID, order.OrderNumber)

	case domain.PaymentStatusProcessing:
		// Intermediate signal: payment status only, no order or escrow change
		if err := s.repos.Order.UpdatePaymentStatus(ctx, order.ID, remote, nil, adminNotes); err != nil {
			return nil, err
		}
		outcome.PaymentStatus = remote
		outcome.Changed = true

	case domain.PaymentStatusPending:
		// Remote still pending, nothing to apply
	}

	return outcome, nil
}

// SweepUnresolved re-verifies payments that have sat in pending/processing
// since before the cutoff. Returns how many orders changed state.
func (s *paymentService) SweepUnresolved(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	orders, err := s.repos.Order.ListUnresolvedPayments(ctx, olderThan, limit)
	if err != nil {
		return 0, err
	}

	changed := 0
	for _, order := range orders {
		if order.Payment == nil {
			continue
		}
		outcome, err := s.VerifyPayment(ctx, order.Payment.Reference)
		if err != nil {
			s.logger.Warn("Sweep verification failed",
				zap.String("reference", order.Payment.Reference),
				zap.Error(err),
			)
			continue
		}
		if outcome.Changed {
			changed++
		}
	}

	return changed, nil
}

func (s *paymentService) releaseOrderStock(ctx context.Context, order *domain.Order) {
	for _, item := range order.Items {
		if err := s.repos.Product.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.Error("Failed to release stock on cancellation",
				zap.String("order_id", order.ID.String()),
				zap.String("product_id", item.ProductID.String()),
				zap.Error(err),
			)
		}
	}
}

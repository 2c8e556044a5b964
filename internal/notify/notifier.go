package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier sends templated messages to buyers. Delivery is handled by the
// notification subsystem; callers fire and forget, errors are swallowed.
type Notifier interface {
	PaymentCompleted(ctx context.Context, buyerID uuid.UUID, orderNumber string)
	PaymentFailed(ctx context.Context, buyerID uuid.UUID, orderNumber string)
	OrderCancelled(ctx context.Context, buyerID uuid.UUID, orderNumber string)
}

type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier returns a notifier that only records the intent. Used
// until the real notification subsystem is wired.
func NewLogNotifier(logger *zap.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) PaymentCompleted(ctx context.Context, buyerID uuid.UUID, orderNumber string) {
	n.logger.Info("notify: payment completed",
		zap.String("buyer_id", buyerID.String()),
		zap.String("order_number", orderNumber),
	)
}

func (n *logNotifier) PaymentFailed(ctx context.Context, buyerID uuid.UUID, orderNumber string) {
	n.logger.Info("notify: payment failed",
		zap.String("buyer_id", buyerID.String()),
		zap.String("order_number", orderNumber),
	)
}

func (n *logNotifier) OrderCancelled(ctx context.Context, buyerID uuid.UUID, orderNumber string) {
	n.logger.Info("notify: order cancelled",
		zap.String("buyer_id", buyerID.String()),
		zap.String("order_number", orderNumber),
	)
}

package domain

// OrderStatus represents the primary order lifecycle
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusPendingPayment OrderStatus = "pending_payment"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCompleted      OrderStatus = "completed"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusPaymentFailed  OrderStatus = "payment_failed"
	OrderStatusDisputed       OrderStatus = "disputed"
)

// IsValid checks if the order status is valid
func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending,
		OrderStatusPendingPayment,
		OrderStatusConfirmed,
		OrderStatusShipped,
		OrderStatusDelivered,
		OrderStatusCompleted,
		OrderStatusCancelled,
		OrderStatusPaymentFailed,
		OrderStatusDisputed:
		return true
	default:
		return false
	}
}

// CanTransitionTo checks if a status transition is valid
func (s OrderStatus) CanTransitionTo(newStatus OrderStatus) bool {
	switch s {
	case OrderStatusPending:
		return newStatus == OrderStatusPendingPayment ||
			newStatus == OrderStatusCancelled
	case OrderStatusPendingPayment:
		return newStatus == OrderStatusConfirmed ||
			newStatus == OrderStatusPaymentFailed ||
			newStatus == OrderStatusCancelled
	case OrderStatusPaymentFailed:
		// Buyer may retry payment or give up
		return newStatus == OrderStatusPendingPayment ||
			newStatus == OrderStatusConfirmed ||
			newStatus == OrderStatusCancelled
	case OrderStatusConfirmed:
		return newStatus == OrderStatusShipped ||
			newStatus == OrderStatusDisputed ||
			newStatus == OrderStatusCancelled
	case OrderStatusShipped:
		return newStatus == OrderStatusDelivered ||
			newStatus == OrderStatusDisputed
	case OrderStatusDelivered:
		return newStatus == OrderStatusCompleted ||
			newStatus == OrderStatusDisputed
	case OrderStatusDisputed:
		return newStatus == OrderStatusCompleted ||
			newStatus == OrderStatusCancelled
	case OrderStatusCompleted, OrderStatusCancelled:
		return false // Terminal states
	default:
		return false
	}
}

// PaymentStatus represents the status of the payment sub-record,
// mirroring the provider's transaction states.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusCompleted  PaymentStatus = "completed"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
)

// IsValid checks if the payment status is valid
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending,
		PaymentStatusProcessing,
		PaymentStatusCompleted,
		PaymentStatusFailed,
		PaymentStatusCancelled:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the provider will not move the payment further
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusCompleted ||
		s == PaymentStatusFailed ||
		s == PaymentStatusCancelled
}

// EscrowStatus represents the escrow state machine
type EscrowStatus string

const (
	EscrowStatusPending          EscrowStatus = "pending"
	EscrowStatusFunded           EscrowStatus = "funded"
	EscrowStatusReleasedToVendor EscrowStatus = "released_to_vendor"
	EscrowStatusRefundedToBuyer  EscrowStatus = "refunded_to_buyer"
)

// IsValid checks if the escrow status is valid
func (s EscrowStatus) IsValid() bool {
	switch s {
	case EscrowStatusPending,
		EscrowStatusFunded,
		EscrowStatusReleasedToVendor,
		EscrowStatusRefundedToBuyer:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the escrow reached a settlement sink
func (s EscrowStatus) IsTerminal() bool {
	return s == EscrowStatusReleasedToVendor || s == EscrowStatusRefundedToBuyer
}

// CanTransitionTo checks if an escrow transition is valid.
// Funding is the only path to release; a pending escrow may be refunded
// directly when the order is cancelled before funds arrive.
func (s EscrowStatus) CanTransitionTo(newStatus EscrowStatus) bool {
	switch s {
	case EscrowStatusPending:
		return newStatus == EscrowStatusFunded ||
			newStatus == EscrowStatusRefundedToBuyer
	case EscrowStatusFunded:
		return newStatus == EscrowStatusReleasedToVendor ||
			newStatus == EscrowStatusRefundedToBuyer
	case EscrowStatusReleasedToVendor, EscrowStatusRefundedToBuyer:
		return false // Terminal states
	default:
		return false
	}
}

// PaymentMethod is a supported mobile-money rail
type PaymentMethod string

const (
	PaymentMethodOrangeMoney PaymentMethod = "orange_money"
	PaymentMethodAfrimoney   PaymentMethod = "afrimoney"
)

// IsValid checks if the payment method is supported
func (m PaymentMethod) IsValid() bool {
	return m == PaymentMethodOrangeMoney || m == PaymentMethodAfrimoney
}

// DisputeOutcome is the result of an admin dispute resolution
type DisputeOutcome string

const (
	DisputeOutcomeRelease DisputeOutcome = "release"
	DisputeOutcomeRefund  DisputeOutcome = "refund"
)

// IsValid checks if the dispute outcome is valid
func (o DisputeOutcome) IsValid() bool {
	return o == DisputeOutcomeRelease || o == DisputeOutcomeRefund
}

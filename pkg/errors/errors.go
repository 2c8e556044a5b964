package errors

import "fmt"

// ErrNotFound indicates a resource does not exist
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrUnauthorized indicates missing or invalid credentials
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	return e.Message
}

// ErrValidation indicates a malformed or incomplete request field
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// ErrInvalidStateTransition indicates a disallowed lifecycle transition
type ErrInvalidStateTransition struct {
	Entity string
	From   string
	To     string
}

func (e *ErrInvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid %s transition from %s to %s", e.Entity, e.From, e.To)
}

// ErrInsufficientStock indicates a reservation request exceeds available stock
type ErrInsufficientStock struct {
	ProductID string
	Requested int
	Available int
}

func (e *ErrInsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ErrOrderAlreadyPaid indicates payment initiation against a settled order
type ErrOrderAlreadyPaid struct {
	OrderID string
}

func (e *ErrOrderAlreadyPaid) Error() string {
	return fmt.Sprintf("order %s is already paid", e.OrderID)
}

// ErrPaymentAlreadyPending indicates an in-flight payment for the order
type ErrPaymentAlreadyPending struct {
	OrderID string
}

func (e *ErrPaymentAlreadyPending) Error() string {
	return fmt.Sprintf("order %s already has a pending payment", e.OrderID)
}

// ErrProviderNotConfigured indicates missing provider credentials.
// This is an operational/deployment fault and is never retried automatically.
type ErrProviderNotConfigured struct {
	Missing []string
}

func (e *ErrProviderNotConfigured) Error() string {
	return fmt.Sprintf("payment provider is not configured, missing: %v", e.Missing)
}

// ErrProviderUnavailable indicates a transient provider failure (timeout, 5xx).
// Safe to retry with the same payment reference.
type ErrProviderUnavailable struct {
	Operation string
	Cause     error
}

func (e *ErrProviderUnavailable) Error() string {
	return fmt.Sprintf("payment provider unavailable during %s: %v", e.Operation, e.Cause)
}

func (e *ErrProviderUnavailable) Unwrap() error {
	return e.Cause
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

type orderRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewOrderRepository creates a new order repository
func NewOrderRepository(db *sql.DB, logger *zap.Logger) *orderRepository {
	return &orderRepository{
		db:     db,
		logger: logger,
	}
}

const orderColumns = `id, order_number, buyer_id, delivery, subtotal, total, currency, status, payment_status, created_at, updated_at`

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	now := time.Now()
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = now
	}

	deliveryJSON, err := json.Marshal(order.Delivery)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		r.logger.Error("Failed to begin order transaction", zap.Error(err))
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO orders (id, order_number, buyer_id, delivery, subtotal, total, currency, status, payment_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err = tx.ExecContext(ctx, query,
		order.ID,
		order.OrderNumber,
		order.BuyerID,
		deliveryJSON,
		order.Subtotal,
		order.Total,
		order.Currency,
		order.Status,
		string(order.PaymentStatus),
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert order", zap.Error(err))
		return err
	}

	itemQuery := `
		INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity, subtotal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}

		_, err = tx.ExecContext(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.UnitPrice,
			item.Quantity,
			item.Subtotal,
			item.CreatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to insert order item", zap.Error(err))
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		r.logger.Error("Failed to commit order transaction", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get order by ID", zap.Error(err))
		return nil, err
	}

	if err := r.loadDetails(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) GetByPaymentReference(ctx context.Context, reference string) (*domain.Order, error) {
	query := `
		SELECT ` + prefixedOrderColumns("o") + `
		FROM orders o
		JOIN order_payments p ON p.order_id = o.id
		WHERE p.reference = $1
	`

	order, err := r.scanOrder(r.db.QueryRowContext(ctx, query, reference))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "order", ID: reference}
	}
	if err != nil {
		r.logger.Error("Failed to get order by payment reference", zap.Error(err))
		return nil, err
	}

	if err := r.loadDetails(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error {
	query := `UPDATE orders SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		r.logger.Error("Failed to update order status", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "order", ID: id.String()}
	}

	return nil
}

func (r *orderRepository) UpsertPayment(ctx context.Context, payment *domain.Payment) error {
	now := time.Now()
	if payment.InitiatedAt.IsZero() {
		payment.InitiatedAt = now
	}
	payment.UpdatedAt = now

	// A re-initiated payment for the same order replaces the sub-record
	// in place; the deterministic reference stays the same.
	query := `
		INSERT INTO order_payments (order_id, provider, method, reference, provider_payment_id, status, amount, currency, customer_phone, admin_notes, initiated_at, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (order_id) DO UPDATE SET
			provider = EXCLUDED.provider,
			method = EXCLUDED.method,
			reference = EXCLUDED.reference,
			provider_payment_id = EXCLUDED.provider_payment_id,
			status = EXCLUDED.status,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			customer_phone = EXCLUDED.customer_phone,
			initiated_at = EXCLUDED.initiated_at,
			completed_at = EXCLUDED.completed_at,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.OrderID,
		payment.Provider,
		payment.Method,
		payment.Reference,
		payment.ProviderPaymentID,
		payment.Status,
		payment.Amount,
		payment.Currency,
		payment.CustomerPhone,
		payment.AdminNotes,
		payment.InitiatedAt,
		payment.CompletedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert order payment", zap.Error(err))
		return err
	}

	mirror := `UPDATE orders SET payment_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, mirror, payment.OrderID, payment.Status, now); err != nil {
		r.logger.Error("Failed to mirror payment status on order", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) UpdatePaymentStatus(ctx context.Context, orderID uuid.UUID, status domain.PaymentStatus, completedAt *time.Time, adminNotes *string) error {
	now := time.Now()

	query := `
		UPDATE order_payments
		SET status = $2,
			completed_at = COALESCE($3, completed_at),
			admin_notes = COALESCE($4, admin_notes),
			updated_at = $5
		WHERE order_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, orderID, status, completedAt, adminNotes, now)
	if err != nil {
		r.logger.Error("Failed to update payment status", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "payment", ID: orderID.String()}
	}

	mirror := `UPDATE orders SET payment_status = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, mirror, orderID, status, now); err != nil {
		r.logger.Error("Failed to mirror payment status on order", zap.Error(err))
		return err
	}

	return nil
}

func (r *orderRepository) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE buyer_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, buyerID, limit, offset)
}

func (r *orderRepository) List(ctx context.Context, limit, offset int) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	return r.list(ctx, query, limit, offset)
}

func (r *orderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus, limit, offset int) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, status, limit, offset)
}

// ListUnresolvedPayments returns orders stuck in pending_payment whose
// payment was initiated before the cutoff and never reached a terminal
// provider status. Consumed by the sweep tool.
func (r *orderRepository) ListUnresolvedPayments(ctx context.Context, olderThan time.Time, limit int) ([]*domain.Order, error) {
	query := `
		SELECT ` + prefixedOrderColumns("o") + `
		FROM orders o
		JOIN order_payments p ON p.order_id = o.id
		WHERE o.status = $1
		  AND p.status IN ($2, $3)
		  AND p.initiated_at < $4
		ORDER BY p.initiated_at ASC
		LIMIT $5
	`
	return r.list(ctx, query,
		domain.OrderStatusPendingPayment,
		domain.PaymentStatusPending,
		domain.PaymentStatusProcessing,
		olderThan,
		limit,
	)
}

func (r *orderRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list orders", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		order, err := r.scanOrder(rows)
		if err != nil {
			r.logger.Error("Failed to scan order row", zap.Error(err))
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		if err := r.loadDetails(ctx, order); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *orderRepository) scanOrder(row rowScanner) (*domain.Order, error) {
	var order domain.Order
	var deliveryJSON []byte
	var paymentStatus sql.NullString

	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.BuyerID,
		&deliveryJSON,
		&order.Subtotal,
		&order.Total,
		&order.Currency,
		&order.Status,
		&paymentStatus,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(deliveryJSON, &order.Delivery); err != nil {
		return nil, err
	}
	if paymentStatus.Valid {
		order.PaymentStatus = domain.PaymentStatus(paymentStatus.String)
	}

	return &order, nil
}

func (r *orderRepository) loadDetails(ctx context.Context, order *domain.Order) error {
	itemQuery := `
		SELECT id, order_id, product_id, name, unit_price, quantity, subtotal, created_at
		FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, itemQuery, order.ID)
	if err != nil {
		r.logger.Error("Failed to load order items", zap.Error(err))
		return err
	}
	defer rows.Close()

	order.Items = order.Items[:0]
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Name,
			&item.UnitPrice,
			&item.Quantity,
			&item.Subtotal,
			&item.CreatedAt,
		); err != nil {
			return err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	paymentQuery := `
		SELECT order_id, provider, method, reference, provider_payment_id, status, amount, currency, customer_phone, admin_notes, initiated_at, completed_at, updated_at
		FROM order_payments
		WHERE order_id = $1
	`

	var payment domain.Payment
	var adminNotes sql.NullString
	var completedAt sql.NullTime

	err = r.db.QueryRowContext(ctx, paymentQuery, order.ID).Scan(
		&payment.OrderID,
		&payment.Provider,
		&payment.Method,
		&payment.Reference,
		&payment.ProviderPaymentID,
		&payment.Status,
		&payment.Amount,
		&payment.Currency,
		&payment.CustomerPhone,
		&adminNotes,
		&payment.InitiatedAt,
		&completedAt,
		&payment.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		r.logger.Error("Failed to load order payment", zap.Error(err))
		return err
	}

	if adminNotes.Valid {
		payment.AdminNotes = &adminNotes.String
	}
	if completedAt.Valid {
		payment.CompletedAt = &completedAt.Time
	}
	order.Payment = &payment

	return nil
}

func prefixedOrderColumns(alias string) string {
	return alias + `.id, ` + alias + `.order_number, ` + alias + `.buyer_id, ` + alias + `.delivery, ` +
		alias + `.subtotal, ` + alias + `.total, ` + alias + `.currency, ` + alias + `.status, ` +
		alias + `.payment_status, ` + alias + `.created_at, ` + alias + `.updated_at`
}

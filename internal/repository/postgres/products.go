package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

type productRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewProductRepository creates a new product repository
func NewProductRepository(db *sql.DB, logger *zap.Logger) *productRepository {
	return &productRepository{
		db:     db,
		logger: logger,
	}
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, name, unit_price, quantity, is_active, created_at, updated_at
		FROM products
		WHERE id = $1
	`

	var product domain.Product
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&product.ID,
		&product.Name,
		&product.UnitPrice,
		&product.Quantity,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "product", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get product by ID", zap.Error(err))
		return nil, err
	}

	return &product, nil
}

// Reserve decrements stock with a single conditional update. The quantity
// check and the decrement happen in one statement, so two concurrent
// reservations for the last unit cannot both succeed.
func (r *productRepository) Reserve(ctx context.Context, productID uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET quantity = quantity - $2, updated_at = $3
		WHERE id = $1 AND is_active = true AND quantity >= $2
	`

	result, err := r.db.ExecContext(ctx, query, productID, quantity, time.Now())
	if err != nil {
		r.logger.Error("Failed to reserve stock", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	// Zero rows: either the product is gone/inactive or stock ran short.
	// Re-read to tell the caller which, so the buyer gets an actionable error.
	product, err := r.GetByID(ctx, productID)
	if err != nil {
		return err
	}
	if !product.IsActive {
		return &errors.ErrNotFound{Resource: "product", ID: productID.String()}
	}

	return &errors.ErrInsufficientStock{
		ProductID: productID.String(),
		Requested: quantity,
		Available: product.Quantity,
	}
}

// Release puts reserved stock back. Compensating action for cancellation
// and partial order-creation failure.
func (r *productRepository) Release(ctx context.Context, productID uuid.UUID, quantity int) error {
	query := `
		UPDATE products
		SET quantity = quantity + $2, updated_at = $3
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query, productID, quantity, time.Now())
	if err != nil {
		r.logger.Error("Failed to release stock", zap.Error(err))
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return &errors.ErrNotFound{Resource: "product", ID: productID.String()}
	}

	return nil
}

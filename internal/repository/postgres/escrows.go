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

type escrowRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewEscrowRepository creates a new escrow repository
func NewEscrowRepository(db *sql.DB, logger *zap.Logger) *escrowRepository {
	return &escrowRepository{
		db:     db,
		logger: logger,
	}
}

func (r *escrowRepository) Create(ctx context.Context, escrow *domain.Escrow) error {
	now := time.Now()
	if escrow.ID == uuid.Nil {
		escrow.ID = uuid.New()
	}
	if escrow.CreatedAt.IsZero() {
		escrow.CreatedAt = now
	}
	if escrow.UpdatedAt.IsZero() {
		escrow.UpdatedAt = now
	}

	query := `
		INSERT INTO escrows (id, order_id, reference, amount, currency, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		escrow.ID,
		escrow.OrderID,
		escrow.Reference,
		escrow.Amount,
		escrow.Currency,
		escrow.Status,
		escrow.CreatedAt,
		escrow.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create escrow", zap.Error(err))
		return err
	}

	return nil
}

func (r *escrowRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*domain.Escrow, error) {
	query := `
		SELECT id, order_id, reference, amount, currency, status, funded_at, released_at, refunded_at, created_at, updated_at
		FROM escrows
		WHERE order_id = $1
	`

	var escrow domain.Escrow
	var fundedAt, releasedAt, refundedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&escrow.ID,
		&escrow.OrderID,
		&escrow.Reference,
		&escrow.Amount,
		&escrow.Currency,
		&escrow.Status,
		&fundedAt,
		&releasedAt,
		&refundedAt,
		&escrow.CreatedAt,
		&escrow.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "escrow", ID: orderID.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get escrow by order ID", zap.Error(err))
		return nil, err
	}

	if fundedAt.Valid {
		escrow.FundedAt = &fundedAt.Time
	}
	if releasedAt.Valid {
		escrow.ReleasedAt = &releasedAt.Time
	}
	if refundedAt.Valid {
		escrow.RefundedAt = &refundedAt.Time
	}

	return &escrow, nil
}

// Transition moves the escrow from one status to another with a conditional
// update. The WHERE clause on the current status is the concurrency guard:
// two racing triggers for the same transition cannot both succeed. Returns
// false when the row was not in the expected state.
func (r *escrowRepository) Transition(ctx context.Context, orderID uuid.UUID, from, to domain.EscrowStatus, at time.Time) (bool, error) {
	var stampColumn string
	switch to {
	case domain.EscrowStatusFunded:
		stampColumn = "funded_at"
	case domain.EscrowStatusReleasedToVendor:
		stampColumn = "released_at"
	case domain.EscrowStatusRefundedToBuyer:
		stampColumn = "refunded_at"
	default:
		return false, &errors.ErrInvalidStateTransition{Entity: "escrow", From: string(from), To: string(to)}
	}

	query := `
		UPDATE escrows
		SET status = $3, ` + stampColumn + ` = $4, updated_at = $4
		WHERE order_id = $1 AND status = $2
	`

	result, err := r.db.ExecContext(ctx, query, orderID, from, to, at)
	if err != nil {
		r.logger.Error("Failed to transition escrow", zap.Error(err))
		return false, err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rows > 0, nil
}

func (r *escrowRepository) Stats(ctx context.Context) (*domain.EscrowStats, error) {
	query := `
		SELECT status, COUNT(*), COALESCE(SUM(amount), 0)
		FROM escrows
		GROUP BY status
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query escrow stats", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var stats domain.EscrowStats
	for rows.Next() {
		var status domain.EscrowStatus
		var count int
		var amount int64

		if err := rows.Scan(&status, &count, &amount); err != nil {
			return nil, err
		}

		stats.TotalCount += count
		stats.TotalAmount += amount

		switch status {
		case domain.EscrowStatusPending:
			stats.PendingCount = count
			stats.PendingAmount = amount
		case domain.EscrowStatusFunded:
			stats.FundedCount = count
			stats.FundedAmount = amount
		case domain.EscrowStatusReleasedToVendor:
			stats.ReleasedCount = count
			stats.ReleasedAmount = amount
		case domain.EscrowStatusRefundedToBuyer:
			stats.RefundedCount = count
			stats.RefundedAmount = amount
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &stats, nil
}

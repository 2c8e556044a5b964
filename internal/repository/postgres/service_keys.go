package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/pkg/errors"
)

type serviceKeyRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewServiceKeyRepository creates a new service key repository
func NewServiceKeyRepository(db *sql.DB, logger *zap.Logger) *serviceKeyRepository {
	return &serviceKeyRepository{
		db:     db,
		logger: logger,
	}
}

func (r *serviceKeyRepository) Create(ctx context.Context, key *domain.ServiceKey) error {
	now := time.Now()
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}
	if key.CreatedAt.IsZero() {
		key.CreatedAt = now
	}
	if key.UpdatedAt.IsZero() {
		key.UpdatedAt = now
	}

	query := `
		INSERT INTO service_keys (id, name, key_hash, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.ExecContext(ctx, query,
		key.ID,
		key.Name,
		key.KeyHash,
		key.IsActive,
		key.CreatedAt,
		key.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create service key", zap.Error(err))
		return err
	}

	return nil
}

func (r *serviceKeyRepository) ListActive(ctx context.Context) ([]domain.ServiceKey, error) {
	query := `
		SELECT id, name, key_hash, is_active, created_at, updated_at
		FROM service_keys
		WHERE is_active = true
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		r.logger.Error("Failed to list service keys", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var keys []domain.ServiceKey
	for rows.Next() {
		var key domain.ServiceKey
		if err := rows.Scan(
			&key.ID,
			&key.Name,
			&key.KeyHash,
			&key.IsActive,
			&key.CreatedAt,
			&key.UpdatedAt,
		); err != nil {
			continue
		}
		keys = append(keys, key)
	}

	return keys, rows.Err()
}

// VerifyKey finds the active service key whose bcrypt hash matches the
// presented key. Keys are stored hashed, so every active row has to be
// compared; the table stays small enough for that to be fine.
func (r *serviceKeyRepository) VerifyKey(ctx context.Context, key string) (*domain.ServiceKey, error) {
	keys, err := r.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	for i := range keys {
		if err := bcrypt.CompareHashAndPassword([]byte(keys[i].KeyHash), []byte(key)); err == nil {
			return &keys[i], nil
		}
	}

	return nil, &errors.ErrUnauthorized{Message: "invalid service key"}
}

package postgres

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/repository"
)

// NewRepositories creates all PostgreSQL-backed repositories
func NewRepositories(db *sql.DB, logger *zap.Logger) *repository.Repositories {
	return &repository.Repositories{
		Order:      NewOrderRepository(db, logger),
		Escrow:     NewEscrowRepository(db, logger),
		Product:    NewProductRepository(db, logger),
		ServiceKey: NewServiceKeyRepository(db, logger),
	}
}

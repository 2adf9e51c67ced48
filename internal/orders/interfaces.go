package orders

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/db/models"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/pagination"
)

// Repository defines persistence operations for the order store.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	// FindByIDForUpdate loads the order under a row lock so state-machine
	// preconditions read freshly committed state, not a stale copy.
	FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	ListByShop(ctx context.Context, shopID uuid.UUID, params pagination.Params, filters ShopOrderFilters) (*OrderPage, error)
	FindPendingRefunds(ctx context.Context, limit int) ([]models.Order, error)
	Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error
}

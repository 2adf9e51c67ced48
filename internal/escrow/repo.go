package escrow

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/db/models"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
)

// Repository defines persistence operations for the escrow settlement trail.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.EscrowEvent) error
	Exists(ctx context.Context, orderID uuid.UUID, eventType enums.EscrowEventType) (bool, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.EscrowEvent, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an escrow repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.EscrowEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) Exists(ctx context.Context, orderID uuid.UUID, eventType enums.EscrowEventType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.EscrowEvent{}).
		Where("order_id = ? AND type = ?", orderID, eventType).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.EscrowEvent, error) {
	var events []models.EscrowEvent
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
)

// EscrowEvent is one entry in an order's append-only settlement trail.
// Events are never updated or deleted.
type EscrowEvent struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	BuyerID     uuid.UUID             `gorm:"column:buyer_id;type:uuid;not null"`
	ShopID      uuid.UUID             `gorm:"column:shop_id;type:uuid;not null"`
	ActorUserID uuid.UUID             `gorm:"column:actor_user_id;type:uuid;not null"`
	Type        enums.EscrowEventType `gorm:"column:type;type:escrow_event_type;not null"`
	AmountCents int                   `gorm:"column:amount_cents;not null"`
	Metadata    json.RawMessage       `gorm:"column:metadata;type:jsonb"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

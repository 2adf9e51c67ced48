package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is one purchased product line within an order.
type OrderItem struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID  `gorm:"column:order_id;type:uuid;not null"`
	ProductID      uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	Name           string     `gorm:"column:name;not null"`
	UnitPriceCents int        `gorm:"column:unit_price_cents;not null"`
	Quantity       int        `gorm:"column:quantity;not null;default:1"`
	GameID         *uuid.UUID `gorm:"column:game_id;type:uuid"`
	GameName       *string    `gorm:"column:game_name"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

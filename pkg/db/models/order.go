package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/types"
)

// Order is the authoritative record for one purchase's fulfillment and
// escrow settlement lifecycle. Orders are created by the checkout
// collaborator and are never deleted.
//
// The legacy flat credential fields (Email/Username/Password/AdditionalInfo)
// always mirror DeliveredItems[0]; both representations are written together
// by the delivery path and must never be mutated independently.
type Order struct {
	ID       uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID  uuid.UUID `gorm:"column:buyer_id;type:uuid;not null"`
	ShopID   uuid.UUID `gorm:"column:shop_id;type:uuid;not null"`
	ShopName string    `gorm:"column:shop_name;not null"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	TotalCents       int `gorm:"column:total_cents;not null"`
	PlatformFeeCents int `gorm:"column:platform_fee_cents;not null;default:0"`
	SellerCents      int `gorm:"column:seller_cents;not null;default:0"`

	PaymentIntentID string  `gorm:"column:payment_intent_id;not null"`
	TransferID      *string `gorm:"column:transfer_id"`

	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	Status        enums.OrderStatus   `gorm:"column:status;type:order_status;not null;default:'pending'"`

	DeliveredItems types.DeliveredItems `gorm:"column:delivered_items;type:jsonb;serializer:json"`
	Email          *string              `gorm:"column:email"`
	Username       *string              `gorm:"column:username"`
	Password       *string              `gorm:"column:password"`
	AdditionalInfo *string              `gorm:"column:additional_info"`

	GameCodeDeliveredAt *time.Time `gorm:"column:game_code_delivered_at"`
	BuyerConfirmed      bool       `gorm:"column:buyer_confirmed;not null;default:false"`
	BuyerConfirmedAt    *time.Time `gorm:"column:buyer_confirmed_at"`

	SellerNotes *string `gorm:"column:seller_notes"`

	RefundStatus      enums.RefundStatus `gorm:"column:refund_status;type:refund_status;not null;default:'none'"`
	RefundAmountCents *int               `gorm:"column:refund_amount_cents"`
	RefundID          *string            `gorm:"column:refund_id"`
	RefundError       *string            `gorm:"column:refund_error"`
	CancelReason      *string            `gorm:"column:cancel_reason"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalUnits returns the delivery slot count the order requires: the sum of
// all line item quantities.
func (o Order) TotalUnits() int {
	units := 0
	for _, item := range o.Items {
		qty := item.Quantity
		if qty <= 0 {
			qty = 1
		}
		units += qty
	}
	return units
}

// Delivered reports whether credentials were ever recorded for this order.
func (o Order) Delivered() bool {
	return o.GameCodeDeliveredAt != nil
}

// PayoutEligible reports whether the seller amount may be released: the buyer
// has attested the product works and the order was not cancelled.
func (o Order) PayoutEligible() bool {
	return o.BuyerConfirmed && o.Status != enums.OrderStatusCancelled
}

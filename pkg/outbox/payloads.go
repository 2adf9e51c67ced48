package outbox

import (
	"time"

	"github.com/google/uuid"
)

// OrderDeliveredData is published when a seller records credential delivery.
type OrderDeliveredData struct {
	OrderID     uuid.UUID `json:"orderId"`
	BuyerID     uuid.UUID `json:"buyerId"`
	ShopID      uuid.UUID `json:"shopId"`
	ItemCount   int       `json:"itemCount"`
	DeliveredAt time.Time `json:"deliveredAt"`
}

// OrderConfirmedData is published when the buyer confirms receipt, which is
// the escrow release signal for the seller payout pipeline.
type OrderConfirmedData struct {
	OrderID     uuid.UUID `json:"orderId"`
	BuyerID     uuid.UUID `json:"buyerId"`
	ShopID      uuid.UUID `json:"shopId"`
	SellerCents int64     `json:"sellerCents"`
	ConfirmedAt time.Time `json:"confirmedAt"`
}

// OrderCancelledData is published when an order is cancelled, with or
// without an in-flight refund.
type OrderCancelledData struct {
	OrderID      uuid.UUID `json:"orderId"`
	BuyerID      uuid.UUID `json:"buyerId"`
	ShopID       uuid.UUID `json:"shopId"`
	Reason       string    `json:"reason,omitempty"`
	RefundStatus string    `json:"refundStatus"`
	CancelledAt  time.Time `json:"cancelledAt"`
}

// RefundSettledData is published when a refund reaches a terminal state at
// the payment gateway.
type RefundSettledData struct {
	OrderID       uuid.UUID `json:"orderId"`
	RefundID      string    `json:"refundId"`
	Status        string    `json:"status"`
	AmountCents   int64     `json:"amountCents"`
	FailureReason string    `json:"failureReason,omitempty"`
}

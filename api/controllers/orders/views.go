package orders

import (
	"time"

	"github.com/google/uuid"

	internalorders "github.com/ThanaboonChantasawat/wow-key-store-backend/internal/orders"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/db/models"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/types"
)

// OrderView is the wire shape for one order. The flat credential fields
// mirror deliveredItems[0] exactly as stored; clients predating multi-unit
// delivery read only those.
type OrderView struct {
	ID       uuid.UUID `json:"id"`
	BuyerID  uuid.UUID `json:"buyerId"`
	ShopID   uuid.UUID `json:"shopId"`
	ShopName string    `json:"shopName"`

	Items []OrderItemView `json:"items"`

	TotalCents       int `json:"totalCents"`
	PlatformFeeCents int `json:"platformFeeCents"`
	SellerCents      int `json:"sellerCents"`

	PaymentStatus enums.PaymentStatus `json:"paymentStatus"`
	Status        enums.OrderStatus   `json:"status"`

	DeliveredItems types.DeliveredItems `json:"deliveredItems,omitempty"`
	Email          *string              `json:"email,omitempty"`
	Username       *string              `json:"username,omitempty"`
	Password       *string              `json:"password,omitempty"`
	AdditionalInfo *string              `json:"additionalInfo,omitempty"`

	GameCodeDeliveredAt *time.Time `json:"gameCodeDeliveredAt,omitempty"`
	BuyerConfirmed      bool       `json:"buyerConfirmed"`
	BuyerConfirmedAt    *time.Time `json:"buyerConfirmedAt,omitempty"`

	SellerNotes *string `json:"sellerNotes,omitempty"`

	RefundStatus      enums.RefundStatus `json:"refundStatus"`
	RefundAmountCents *int               `json:"refundAmountCents,omitempty"`
	RefundID          *string            `json:"refundId,omitempty"`
	RefundError       *string            `json:"refundError,omitempty"`
	CancelReason      *string            `json:"cancelReason,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type OrderItemView struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"productId"`
	Name           string     `json:"name"`
	UnitPriceCents int        `json:"unitPriceCents"`
	Quantity       int        `json:"quantity"`
	GameID         *uuid.UUID `json:"gameId,omitempty"`
	GameName       *string    `json:"gameName,omitempty"`
}

// OrderListView is one cursor page of orders.
type OrderListView struct {
	Orders          []OrderView `json:"orders"`
	NextCursor      string      `json:"nextCursor,omitempty"`
	HasMore         bool        `json:"hasMore"`
	SuppressedCount int         `json:"suppressedCount,omitempty"`
}

// ConfirmReceiptView reports the idempotent confirmation outcome.
type ConfirmReceiptView struct {
	Order            OrderView `json:"order"`
	AlreadyConfirmed bool      `json:"alreadyConfirmed"`
}

// CancelView reports the cancellation and, when attempted, the refund outcome.
type CancelView struct {
	Order  OrderView   `json:"order"`
	Refund *RefundView `json:"refund,omitempty"`
}

type RefundView struct {
	Status   enums.RefundStatus `json:"status"`
	RefundID string             `json:"refundId,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// BulkCancelView aggregates per-order outcomes of a bulk cancellation.
type BulkCancelView struct {
	SuccessCount int      `json:"successCount"`
	FailCount    int      `json:"failCount"`
	Errors       []string `json:"errors,omitempty"`
}

// EscrowEventView is one entry of an order's settlement trail.
type EscrowEventView struct {
	ID          uuid.UUID             `json:"id"`
	OrderID     uuid.UUID             `json:"orderId"`
	Type        enums.EscrowEventType `json:"type"`
	AmountCents int                   `json:"amountCents"`
	CreatedAt   time.Time             `json:"createdAt"`
}

func orderViewFrom(order models.Order) OrderView {
	items := make([]OrderItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, OrderItemView{
			ID:             item.ID,
			ProductID:      item.ProductID,
			Name:           item.Name,
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			GameID:         item.GameID,
			GameName:       item.GameName,
		})
	}
	return OrderView{
		ID:                  order.ID,
		BuyerID:             order.BuyerID,
		ShopID:              order.ShopID,
		ShopName:            order.ShopName,
		Items:               items,
		TotalCents:          order.TotalCents,
		PlatformFeeCents:    order.PlatformFeeCents,
		SellerCents:         order.SellerCents,
		PaymentStatus:       order.PaymentStatus,
		Status:              order.Status,
		DeliveredItems:      order.DeliveredItems,
		Email:               order.Email,
		Username:            order.Username,
		Password:            order.Password,
		AdditionalInfo:      order.AdditionalInfo,
		GameCodeDeliveredAt: order.GameCodeDeliveredAt,
		BuyerConfirmed:      order.BuyerConfirmed,
		BuyerConfirmedAt:    order.BuyerConfirmedAt,
		SellerNotes:         order.SellerNotes,
		RefundStatus:        order.RefundStatus,
		RefundAmountCents:   order.RefundAmountCents,
		RefundID:            order.RefundID,
		RefundError:         order.RefundError,
		CancelReason:        order.CancelReason,
		CreatedAt:           order.CreatedAt,
		UpdatedAt:           order.UpdatedAt,
	}
}

func orderViewsFrom(orders []models.Order) []OrderView {
	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, orderViewFrom(order))
	}
	return views
}

func cancelViewFrom(result *internalorders.CancelResult) CancelView {
	view := CancelView{Order: orderViewFrom(*result.Order)}
	if result.RefundAttempted {
		view.Refund = &RefundView{
			Status:   result.RefundStatus,
			RefundID: result.RefundID,
			Error:    result.RefundError,
		}
	}
	return view
}

func escrowEventViewsFrom(events []models.EscrowEvent) []EscrowEventView {
	views := make([]EscrowEventView, 0, len(events))
	for _, event := range events {
		views = append(views, EscrowEventView{
			ID:          event.ID,
			OrderID:     event.OrderID,
			Type:        event.Type,
			AmountCents: event.AmountCents,
			CreatedAt:   event.CreatedAt,
		})
	}
	return views
}

package orders

import (
	"github.com/google/uuid"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/db/models"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/types"
)

// Actor is the verified caller identity supplied by the auth middleware.
// Every operation takes it explicitly; there is no ambient user context.
type Actor struct {
	UserID uuid.UUID
	ShopID *uuid.UUID
	Role   enums.ActorRole
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.ActorRoleAdmin
}

// OwnsShop reports whether the actor is a seller acting for the given shop.
func (a Actor) OwnsShop(shopID uuid.UUID) bool {
	return a.Role == enums.ActorRoleSeller && a.ShopID != nil && *a.ShopID == shopID
}

// RecordDeliveryInput carries a seller's credential payload for an order.
type RecordDeliveryInput struct {
	OrderID     uuid.UUID
	Actor       Actor
	Items       types.DeliveredItems
	SellerNotes *string
}

// ConfirmReceiptResult reports the confirmation outcome. AlreadyConfirmed is
// a normal result, not an error: the gate is idempotent.
type ConfirmReceiptResult struct {
	Order            *models.Order
	AlreadyConfirmed bool
}

// CancelInput identifies the order to cancel and who asked.
type CancelInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Reason  string
}

// CancelResult distinguishes "rejected before any state change" from
// "cancelled but the refund degraded": the order is always cancelled when
// err is nil, and the refund fields say what happened downstream.
type CancelResult struct {
	Order           *models.Order
	RefundAttempted bool
	RefundStatus    enums.RefundStatus
	RefundID        string
	RefundError     string
}

// BulkCancelInput drives the sequential bulk coordinator.
type BulkCancelInput struct {
	OrderIDs []uuid.UUID
	Actor    Actor
	Reason   string
}

// BulkCancelResult aggregates per-order outcomes. Partial success is a
// normal, reportable outcome; the coordinator never fails the whole batch.
type BulkCancelResult struct {
	SuccessCount int
	FailCount    int
	Errors       []string
}

// SellerNotesInput updates the free-text notes on an order.
type SellerNotesInput struct {
	OrderID uuid.UUID
	Actor   Actor
	Notes   string
}

// ShopOrderFilters narrows the seller-facing order list.
type ShopOrderFilters struct {
	Status           *enums.OrderStatus
	AwaitingDelivery bool
	PaymentStatus    *enums.PaymentStatus
}

// OrderPage is one cursor page of orders.
type OrderPage struct {
	Orders     []models.Order
	NextCursor string
	HasMore    bool
}

// BuyerOrderList is the reconciled buyer view: duplicates created by
// checkout retries are suppressed before pagination is applied.
type BuyerOrderList struct {
	Orders          []models.Order
	NextCursor      string
	HasMore         bool
	SuppressedCount int
}

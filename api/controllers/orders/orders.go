package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/api/middleware"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/api/responses"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/api/validators"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/internal/escrow"
	internalorders "github.com/ThanaboonChantasawat/wow-key-store-backend/internal/orders"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
	pkgerrors "github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/errors"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/logger"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/pagination"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/types"
)

type deliveredItemBody struct {
	Index          int    `json:"index" validate:"min=0"`
	ItemName       string `json:"itemName" validate:"max=255"`
	Email          string `json:"email" validate:"max=255"`
	Username       string `json:"username" validate:"max=255"`
	Password       string `json:"password" validate:"max=1024"`
	AdditionalInfo string `json:"additionalInfo" validate:"max=4096"`
}

type recordDeliveryBody struct {
	DeliveredItems []deliveredItemBody `json:"deliveredItems" validate:"required,min=1,max=100,dive"`
	SellerNotes    *string             `json:"sellerNotes" validate:"omitempty,max=2000"`
}

type cancelBody struct {
	Reason string `json:"reason" validate:"max=500"`
}

type bulkCancelBody struct {
	OrderIDs []string `json:"orderIds" validate:"required,min=1,max=100,dive,uuid"`
	Reason   string   `json:"reason" validate:"max=500"`
}

type sellerNotesBody struct {
	Notes string `json:"notes" validate:"required,max=2000"`
}

// BuyerList returns the reconciled buyer order page.
func BuyerList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.ListBuyerOrders(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, OrderListView{
			Orders:          orderViewsFrom(list.Orders),
			NextCursor:      list.NextCursor,
			HasMore:         list.HasMore,
			SuppressedCount: list.SuppressedCount,
		})
	}
}

// SellerList returns the seller-perspective order page for the actor's shop.
func SellerList(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := parseShopFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListShopOrders(r.Context(), actor, params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, OrderListView{
			Orders:     orderViewsFrom(page.Orders),
			NextCursor: page.NextCursor,
			HasMore:    page.HasMore,
		})
	}
}

// Detail returns one order after the service enforces ownership.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderViewFrom(*order))
	}
}

// RecordDelivery records the seller's credential payload for an order.
func RecordDelivery(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body recordDeliveryBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make(types.DeliveredItems, 0, len(body.DeliveredItems))
		for _, item := range body.DeliveredItems {
			items = append(items, types.DeliveredItem{
				Index:          item.Index,
				ItemName:       item.ItemName,
				Email:          item.Email,
				Username:       item.Username,
				Password:       item.Password,
				AdditionalInfo: item.AdditionalInfo,
			})
		}

		order, err := svc.RecordDelivery(r.Context(), internalorders.RecordDeliveryInput{
			OrderID:     orderID,
			Actor:       actor,
			Items:       items,
			SellerNotes: body.SellerNotes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderViewFrom(*order))
	}
}

// ConfirmReceipt marks the order's credentials as verified by the buyer.
func ConfirmReceipt(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ConfirmReceipt(r.Context(), orderID, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, ConfirmReceiptView{
			Order:            orderViewFrom(*result.Order),
			AlreadyConfirmed: result.AlreadyConfirmed,
		})
	}
}

// CancelOrder cancels one order and reports the refund outcome when a
// captured payment required one.
func CancelOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body cancelBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Cancel(r.Context(), internalorders.CancelInput{
			OrderID: orderID,
			Actor:   actor,
			Reason:  body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, cancelViewFrom(result))
	}
}

// BulkCancel cancels a batch of orders sequentially and always reports
// aggregate counts, never a batch-level failure.
func BulkCancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body bulkCancelBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderIDs := make([]uuid.UUID, 0, len(body.OrderIDs))
		for _, raw := range body.OrderIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id").WithDetails(map[string]any{"orderId": raw}))
				return
			}
			orderIDs = append(orderIDs, id)
		}

		result, err := svc.BulkCancel(r.Context(), internalorders.BulkCancelInput{
			OrderIDs: orderIDs,
			Actor:    actor,
			Reason:   body.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, BulkCancelView{
			SuccessCount: result.SuccessCount,
			FailCount:    result.FailCount,
			Errors:       result.Errors,
		})
	}
}

// SellerNotes updates the free-text notes on a non-cancelled order.
func SellerNotes(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body sellerNotesBody
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.UpdateSellerNotes(r.Context(), internalorders.SellerNotesInput{
			OrderID: orderID,
			Actor:   actor,
			Notes:   body.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, orderViewFrom(*order))
	}
}

// EscrowTrail returns the settlement trail for one order. Read access is
// enforced the same way as the order detail.
func EscrowTrail(svc internalorders.Service, escrowSvc escrow.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseOrderID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := svc.GetOrder(r.Context(), orderID, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		events, err := escrowSvc.Trail(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, escrowEventViewsFrom(events))
	}
}

func actorFromRequest(r *http.Request) (internalorders.Actor, error) {
	rawUser := middleware.UserIDFromContext(r.Context())
	if rawUser == "" {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	userID, err := uuid.Parse(rawUser)
	if err != nil {
		return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user identity")
	}

	role := enums.ActorRole(middleware.RoleFromContext(r.Context()))
	if !role.IsValid() {
		return internalorders.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "unknown actor role")
	}

	actor := internalorders.Actor{UserID: userID, Role: role}
	if rawShop := middleware.ShopIDFromContext(r.Context()); rawShop != "" {
		shopID, err := uuid.Parse(rawShop)
		if err != nil {
			return internalorders.Actor{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid shop identity")
		}
		actor.ShopID = &shopID
	}
	return actor, nil
}

func parseOrderID(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "orderId"))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order id")
	}
	return orderID, nil
}

func parsePagination(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
	}, nil
}

func parseShopFilters(r *http.Request) (internalorders.ShopOrderFilters, error) {
	filters := internalorders.ShopOrderFilters{}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.OrderStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").WithDetails(map[string]any{"status": raw})
		}
		filters.Status = &status
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("payment_status")); raw != "" {
		status := enums.PaymentStatus(raw)
		if !status.IsValid() {
			return filters, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").WithDetails(map[string]any{"payment_status": raw})
		}
		filters.PaymentStatus = &status
	}

	filters.AwaitingDelivery = strings.EqualFold(strings.TrimSpace(r.URL.Query().Get("awaiting_delivery")), "true")

	return filters, nil
}

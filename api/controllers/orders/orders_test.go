package orders

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/api/middleware"
	internalorders "github.com/ThanaboonChantasawat/wow-key-store-backend/internal/orders"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/db/models"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
	pkgerrors "github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/errors"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/pagination"
)

type stubOrdersService struct {
	getOrder        func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error)
	listBuyer       func(ctx context.Context, actor internalorders.Actor, params pagination.Params) (*internalorders.BuyerOrderList, error)
	listShop        func(ctx context.Context, actor internalorders.Actor, params pagination.Params, filters internalorders.ShopOrderFilters) (*internalorders.OrderPage, error)
	recordDelivery  func(ctx context.Context, input internalorders.RecordDeliveryInput) (*models.Order, error)
	confirmReceipt  func(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*internalorders.ConfirmReceiptResult, error)
	cancel          func(ctx context.Context, input internalorders.CancelInput) (*internalorders.CancelResult, error)
	bulkCancel      func(ctx context.Context, input internalorders.BulkCancelInput) (*internalorders.BulkCancelResult, error)
	updateNotes     func(ctx context.Context, input internalorders.SellerNotesInput) (*models.Order, error)
	reconcileLimits []int
}

func (s *stubOrdersService) GetOrder(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*models.Order, error) {
	if s.getOrder != nil {
		return s.getOrder(ctx, orderID, actor)
	}
	return &models.Order{ID: orderID}, nil
}

func (s *stubOrdersService) ListBuyerOrders(ctx context.Context, actor internalorders.Actor, params pagination.Params) (*internalorders.BuyerOrderList, error) {
	if s.listBuyer != nil {
		return s.listBuyer(ctx, actor, params)
	}
	return &internalorders.BuyerOrderList{}, nil
}

func (s *stubOrdersService) ListShopOrders(ctx context.Context, actor internalorders.Actor, params pagination.Params, filters internalorders.ShopOrderFilters) (*internalorders.OrderPage, error) {
	if s.listShop != nil {
		return s.listShop(ctx, actor, params, filters)
	}
	return &internalorders.OrderPage{}, nil
}

func (s *stubOrdersService) RecordDelivery(ctx context.Context, input internalorders.RecordDeliveryInput) (*models.Order, error) {
	if s.recordDelivery != nil {
		return s.recordDelivery(ctx, input)
	}
	return &models.Order{ID: input.OrderID}, nil
}

func (s *stubOrdersService) ConfirmReceipt(ctx context.Context, orderID uuid.UUID, actor internalorders.Actor) (*internalorders.ConfirmReceiptResult, error) {
	if s.confirmReceipt != nil {
		return s.confirmReceipt(ctx, orderID, actor)
	}
	return &internalorders.ConfirmReceiptResult{Order: &models.Order{ID: orderID}}, nil
}

func (s *stubOrdersService) Cancel(ctx context.Context, input internalorders.CancelInput) (*internalorders.CancelResult, error) {
	if s.cancel != nil {
		return s.cancel(ctx, input)
	}
	return &internalorders.CancelResult{Order: &models.Order{ID: input.OrderID}}, nil
}

func (s *stubOrdersService) BulkCancel(ctx context.Context, input internalorders.BulkCancelInput) (*internalorders.BulkCancelResult, error) {
	if s.bulkCancel != nil {
		return s.bulkCancel(ctx, input)
	}
	return &internalorders.BulkCancelResult{}, nil
}

func (s *stubOrdersService) UpdateSellerNotes(ctx context.Context, input internalorders.SellerNotesInput) (*models.Order, error) {
	if s.updateNotes != nil {
		return s.updateNotes(ctx, input)
	}
	return &models.Order{ID: input.OrderID}, nil
}

func (s *stubOrdersService) ReconcilePendingRefunds(ctx context.Context, limit int) (int, error) {
	s.reconcileLimits = append(s.reconcileLimits, limit)
	return 0, nil
}

func authedRequest(method, target string, body string, userID uuid.UUID, role enums.ActorRole, shopID *uuid.UUID) *http.Request {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := middleware.WithUserID(req.Context(), userID.String())
	ctx = middleware.WithRole(ctx, string(role))
	if shopID != nil {
		ctx = middleware.WithShopID(ctx, shopID.String())
	}
	return req.WithContext(ctx)
}

func withOrderIDParam(req *http.Request, orderID uuid.UUID) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add("orderId", orderID.String())
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestBuyerListPassesActorAndParams(t *testing.T) {
	buyerID := uuid.New()
	svc := &stubOrdersService{
		listBuyer: func(_ context.Context, actor internalorders.Actor, params pagination.Params) (*internalorders.BuyerOrderList, error) {
			if actor.UserID != buyerID {
				t.Fatalf("unexpected actor %s", actor.UserID)
			}
			if actor.Role != enums.ActorRoleBuyer {
				t.Fatalf("unexpected role %s", actor.Role)
			}
			if params.Limit != 5 {
				t.Fatalf("unexpected limit %d", params.Limit)
			}
			return &internalorders.BuyerOrderList{
				Orders:          []models.Order{{ID: uuid.New(), BuyerID: buyerID}},
				SuppressedCount: 2,
			}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/buyer/orders?limit=5", "", buyerID, enums.ActorRoleBuyer, nil)
	resp := httptest.NewRecorder()
	BuyerList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data OrderListView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data.Orders) != 1 {
		t.Fatalf("expected one order in response")
	}
	if envelope.Data.SuppressedCount != 2 {
		t.Fatalf("expected suppressed count passthrough, got %d", envelope.Data.SuppressedCount)
	}
}

func TestBuyerListRejectsAnonymous(t *testing.T) {
	svc := &stubOrdersService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/buyer/orders", nil)
	resp := httptest.NewRecorder()
	BuyerList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRecordDeliveryMapsBody(t *testing.T) {
	orderID := uuid.New()
	shopID := uuid.New()
	sellerID := uuid.New()
	svc := &stubOrdersService{
		recordDelivery: func(_ context.Context, input internalorders.RecordDeliveryInput) (*models.Order, error) {
			if input.OrderID != orderID {
				t.Fatalf("unexpected order id %s", input.OrderID)
			}
			if len(input.Items) != 2 {
				t.Fatalf("expected 2 delivery slots got %d", len(input.Items))
			}
			if input.Items[1].Password != "hunter2" {
				t.Fatalf("slot payload not mapped")
			}
			if input.SellerNotes == nil || *input.SellerNotes != "second key emailed" {
				t.Fatalf("seller notes not mapped")
			}
			return &models.Order{ID: orderID, Status: enums.OrderStatusCompleted}, nil
		},
	}

	body := `{"deliveredItems":[{"index":0,"email":"a@b.c","password":"s3cret"},{"index":1,"username":"smurf","password":"hunter2"}],"sellerNotes":"second key emailed"}`
	req := authedRequest(http.MethodPost, "/api/v1/seller/orders/"+orderID.String()+"/delivery", body, sellerID, enums.ActorRoleSeller, &shopID)
	req = withOrderIDParam(req, orderID)
	resp := httptest.NewRecorder()
	RecordDelivery(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data OrderView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != enums.OrderStatusCompleted {
		t.Fatalf("expected completed status got %s", envelope.Data.Status)
	}
}

func TestRecordDeliveryRejectsEmptyPayload(t *testing.T) {
	orderID := uuid.New()
	shopID := uuid.New()
	svc := &stubOrdersService{}

	req := authedRequest(http.MethodPost, "/api/v1/seller/orders/"+orderID.String()+"/delivery", `{"deliveredItems":[]}`, uuid.New(), enums.ActorRoleSeller, &shopID)
	req = withOrderIDParam(req, orderID)
	resp := httptest.NewRecorder()
	RecordDelivery(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestConfirmReceiptReportsIdempotentOutcome(t *testing.T) {
	orderID := uuid.New()
	buyerID := uuid.New()
	svc := &stubOrdersService{
		confirmReceipt: func(_ context.Context, gotID uuid.UUID, actor internalorders.Actor) (*internalorders.ConfirmReceiptResult, error) {
			if gotID != orderID {
				t.Fatalf("unexpected order id %s", gotID)
			}
			return &internalorders.ConfirmReceiptResult{
				Order:            &models.Order{ID: orderID, BuyerConfirmed: true},
				AlreadyConfirmed: true,
			}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/buyer/orders/"+orderID.String()+"/confirm", "", buyerID, enums.ActorRoleBuyer, nil)
	req = withOrderIDParam(req, orderID)
	resp := httptest.NewRecorder()
	ConfirmReceipt(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}

	var envelope struct {
		Data ConfirmReceiptView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !envelope.Data.AlreadyConfirmed {
		t.Fatalf("expected alreadyConfirmed=true")
	}
}

func TestCancelOrderSurfacesRefundOutcome(t *testing.T) {
	orderID := uuid.New()
	buyerID := uuid.New()
	svc := &stubOrdersService{
		cancel: func(_ context.Context, input internalorders.CancelInput) (*internalorders.CancelResult, error) {
			if input.Reason != "bought twice" {
				t.Fatalf("reason not mapped: %q", input.Reason)
			}
			return &internalorders.CancelResult{
				Order:           &models.Order{ID: orderID, Status: enums.OrderStatusCancelled},
				RefundAttempted: true,
				RefundStatus:    enums.RefundStatusSucceeded,
				RefundID:        "sq-refund-1",
			}, nil
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/buyer/orders/"+orderID.String()+"/cancel", `{"reason":"bought twice"}`, buyerID, enums.ActorRoleBuyer, nil)
	req = withOrderIDParam(req, orderID)
	resp := httptest.NewRecorder()
	CancelOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data CancelView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Refund == nil || envelope.Data.Refund.Status != enums.RefundStatusSucceeded {
		t.Fatalf("expected refund outcome in response")
	}
	if envelope.Data.Refund.RefundID != "sq-refund-1" {
		t.Fatalf("expected refund id passthrough")
	}
}

func TestCancelOrderMapsStateConflict(t *testing.T) {
	orderID := uuid.New()
	svc := &stubOrdersService{
		cancel: func(_ context.Context, _ internalorders.CancelInput) (*internalorders.CancelResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is not cancellable")
		},
	}

	req := authedRequest(http.MethodPost, "/api/v1/buyer/orders/"+orderID.String()+"/cancel", "{}", uuid.New(), enums.ActorRoleBuyer, nil)
	req = withOrderIDParam(req, orderID)
	resp := httptest.NewRecorder()
	CancelOrder(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeStateConflict) {
		t.Fatalf("expected STATE_CONFLICT got %s", payload.Error.Code)
	}
}

func TestBulkCancelReportsPartialFailure(t *testing.T) {
	buyerID := uuid.New()
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	svc := &stubOrdersService{
		bulkCancel: func(_ context.Context, input internalorders.BulkCancelInput) (*internalorders.BulkCancelResult, error) {
			if len(input.OrderIDs) != 3 {
				t.Fatalf("expected 3 order ids got %d", len(input.OrderIDs))
			}
			return &internalorders.BulkCancelResult{
				SuccessCount: 2,
				FailCount:    1,
				Errors:       []string{ids[2].String() + ": order is not cancellable"},
			}, nil
		},
	}

	body := `{"orderIds":["` + ids[0].String() + `","` + ids[1].String() + `","` + ids[2].String() + `"]}`
	req := authedRequest(http.MethodPost, "/api/v1/buyer/orders/bulk-cancel", body, buyerID, enums.ActorRoleBuyer, nil)
	resp := httptest.NewRecorder()
	BulkCancel(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var envelope struct {
		Data BulkCancelView `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.SuccessCount != 2 || envelope.Data.FailCount != 1 {
		t.Fatalf("unexpected counts %+v", envelope.Data)
	}
	if len(envelope.Data.Errors) != 1 {
		t.Fatalf("expected one error message")
	}
}

func TestBulkCancelRejectsMalformedID(t *testing.T) {
	svc := &stubOrdersService{}
	req := authedRequest(http.MethodPost, "/api/v1/buyer/orders/bulk-cancel", `{"orderIds":["nope"]}`, uuid.New(), enums.ActorRoleBuyer, nil)
	resp := httptest.NewRecorder()
	BulkCancel(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSellerListParsesFilters(t *testing.T) {
	shopID := uuid.New()
	svc := &stubOrdersService{
		listShop: func(_ context.Context, actor internalorders.Actor, _ pagination.Params, filters internalorders.ShopOrderFilters) (*internalorders.OrderPage, error) {
			if actor.ShopID == nil || *actor.ShopID != shopID {
				t.Fatalf("shop id not propagated")
			}
			if filters.Status == nil || *filters.Status != enums.OrderStatusProcessing {
				t.Fatalf("status filter not parsed")
			}
			if !filters.AwaitingDelivery {
				t.Fatalf("awaiting_delivery filter not parsed")
			}
			return &internalorders.OrderPage{}, nil
		},
	}

	req := authedRequest(http.MethodGet, "/api/v1/seller/orders?status=processing&awaiting_delivery=true", "", uuid.New(), enums.ActorRoleSeller, &shopID)
	resp := httptest.NewRecorder()
	SellerList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestSellerListRejectsUnknownStatus(t *testing.T) {
	shopID := uuid.New()
	svc := &stubOrdersService{}
	req := authedRequest(http.MethodGet, "/api/v1/seller/orders?status=shipped", "", uuid.New(), enums.ActorRoleSeller, &shopID)
	resp := httptest.NewRecorder()
	SellerList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

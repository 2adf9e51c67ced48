package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/internal/escrow"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/db/models"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
	pkgerrors "github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/errors"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/logger"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/outbox"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/pagination"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/square"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/types"
)

// bulkCancelErrorLimit bounds how many per-order error messages the bulk
// coordinator carries back to the caller.
const bulkCancelErrorLimit = 5

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service owns the order fulfillment and escrow settlement lifecycle.
type Service interface {
	GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	ListBuyerOrders(ctx context.Context, actor Actor, params pagination.Params) (*BuyerOrderList, error)
	ListShopOrders(ctx context.Context, actor Actor, params pagination.Params, filters ShopOrderFilters) (*OrderPage, error)
	RecordDelivery(ctx context.Context, input RecordDeliveryInput) (*models.Order, error)
	ConfirmReceipt(ctx context.Context, orderID uuid.UUID, actor Actor) (*ConfirmReceiptResult, error)
	Cancel(ctx context.Context, input CancelInput) (*CancelResult, error)
	BulkCancel(ctx context.Context, input BulkCancelInput) (*BulkCancelResult, error)
	UpdateSellerNotes(ctx context.Context, input SellerNotesInput) (*models.Order, error)
	ReconcilePendingRefunds(ctx context.Context, limit int) (int, error)
}

type service struct {
	repo            Repository
	tx              txRunner
	gateway         square.Gateway
	escrow          escrow.Service
	outbox          outboxPublisher
	logg            *logger.Logger
	duplicateWindow time.Duration
	now             func() time.Time
}

// NewService builds the order service with its required collaborators.
func NewService(repo Repository, tx txRunner, gateway square.Gateway, escrowSvc escrow.Service, outboxSvc outboxPublisher, logg *logger.Logger, duplicateWindow time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if escrowSvc == nil {
		return nil, fmt.Errorf("escrow service required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if duplicateWindow <= 0 {
		return nil, fmt.Errorf("duplicate window must be positive")
	}
	return &service{
		repo:            repo,
		tx:              tx,
		gateway:         gateway,
		escrow:          escrowSvc,
		outbox:          outboxSvc,
		logg:            logg,
		duplicateWindow: duplicateWindow,
		now:             time.Now,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeRead(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListBuyerOrders(ctx context.Context, actor Actor, params pagination.Params) (*BuyerOrderList, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	all, err := s.repo.ListByBuyer(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list buyer orders")
	}

	// Duplicate suppression runs over the full order set before pagination,
	// otherwise a suppressed row would shift page boundaries between calls.
	kept, suppressed := reconcileDuplicates(all, s.duplicateWindow)

	list := &BuyerOrderList{SuppressedCount: suppressed}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	start := 0
	if cursor != nil {
		for i, o := range kept {
			if o.CreatedAt.Before(cursor.CreatedAt) ||
				(o.CreatedAt.Equal(cursor.CreatedAt) && o.ID.String() < cursor.ID.String()) {
				start = i
				break
			}
			start = len(kept)
		}
	}

	limit := pagination.NormalizeLimit(params.Limit)
	end := start + limit
	if end >= len(kept) {
		end = len(kept)
	} else {
		list.HasMore = true
	}
	list.Orders = kept[start:end]
	if list.HasMore && len(list.Orders) > 0 {
		last := list.Orders[len(list.Orders)-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return list, nil
}

func (s *service) ListShopOrders(ctx context.Context, actor Actor, params pagination.Params, filters ShopOrderFilters) (*OrderPage, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.ShopID == nil || *actor.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	page, err := s.repo.ListByShop(ctx, *actor.ShopID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shop orders")
	}
	return page, nil
}

func (s *service) RecordDelivery(ctx context.Context, input RecordDeliveryInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForUpdate(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !input.Actor.OwnsShop(order.ShopID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to shop")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
		}

		items, err := normalizeDeliverySlots(input.Items, order.TotalUnits())
		if err != nil {
			return err
		}

		now := s.now()
		updates := map[string]any{
			"delivered_items": items,
			"updated_at":      now,
		}
		mirrorLegacyFields(updates, items)
		if input.SellerNotes != nil {
			updates["seller_notes"] = strings.TrimSpace(*input.SellerNotes)
		}

		firstDelivery := false
		if items.AnyDelivered() {
			// Delivery is a point of no return: any non-empty slot forces the
			// order to completed, whatever the caller intended.
			updates["status"] = enums.OrderStatusCompleted
			if order.GameCodeDeliveredAt == nil {
				updates["game_code_delivered_at"] = now
				firstDelivery = true
			}
		}

		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist delivery")
		}

		applyDeliveryUpdates(order, items, updates)
		result = order

		if !firstDelivery {
			return nil
		}
		if err := s.escrow.Record(ctx, tx, enums.EscrowEventHoldCreated, escrow.RecordInput{
			Order:       order,
			ActorUserID: input.Actor.UserID,
			AmountCents: order.SellerCents,
		}); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDelivered,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: outbox.OrderDeliveredData{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				ShopID:      order.ShopID,
				ItemCount:   len(items),
				DeliveredAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) ConfirmReceipt(ctx context.Context, orderID uuid.UUID, actor Actor) (*ConfirmReceiptResult, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *ConfirmReceiptResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForUpdate(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}
		if order.BuyerConfirmed {
			// One-way gate, replays are a no-op.
			result = &ConfirmReceiptResult{Order: order, AlreadyConfirmed: true}
			return nil
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
		}
		if order.GameCodeDeliveredAt == nil {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order has not been delivered")
		}

		now := s.now()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"buyer_confirmed":    true,
			"buyer_confirmed_at": now,
			"updated_at":         now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist confirmation")
		}
		order.BuyerConfirmed = true
		order.BuyerConfirmedAt = &now
		result = &ConfirmReceiptResult{Order: order}

		if err := s.escrow.Record(ctx, tx, enums.EscrowEventFundsReleased, escrow.RecordInput{
			Order:       order,
			ActorUserID: actor.UserID,
			AmountCents: order.SellerCents,
		}); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderConfirmed,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: outbox.OrderConfirmedData{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				ShopID:      order.ShopID,
				SellerCents: int64(order.SellerCents),
				ConfirmedAt: now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Cancel(ctx context.Context, input CancelInput) (*CancelResult, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var (
		cancelled      *models.Order
		refundRequired bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForUpdate(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.BuyerID != input.Actor.UserID && !input.Actor.IsAdmin() {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
		}
		if !order.Status.Cancellable() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled")
		}

		now := s.now()
		updates := map[string]any{
			"status":     enums.OrderStatusCancelled,
			"updated_at": now,
		}
		if reason := strings.TrimSpace(input.Reason); reason != "" {
			updates["cancel_reason"] = reason
		}
		refundRequired = order.PaymentStatus == enums.PaymentStatusCompleted
		if refundRequired {
			updates["refund_status"] = enums.RefundStatusPending
			updates["refund_amount_cents"] = order.TotalCents
		}
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist cancellation")
		}

		order.Status = enums.OrderStatusCancelled
		if reason := strings.TrimSpace(input.Reason); reason != "" {
			order.CancelReason = &reason
		}
		if refundRequired {
			order.RefundStatus = enums.RefundStatusPending
			amount := order.TotalCents
			order.RefundAmountCents = &amount
		}
		cancelled = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: outbox.OrderCancelledData{
				OrderID:      order.ID,
				BuyerID:      order.BuyerID,
				ShopID:       order.ShopID,
				Reason:       strings.TrimSpace(input.Reason),
				RefundStatus: string(order.RefundStatus),
				CancelledAt:  now,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	result := &CancelResult{Order: cancelled}
	if !refundRequired {
		return result, nil
	}

	// The cancellation is already committed. Whatever the gateway does next
	// is recorded on the order for support follow-up, never rolled back.
	result.RefundAttempted = true
	s.executeRefund(ctx, cancelled, input.Actor, result)
	return result, nil
}

// executeRefund calls the gateway and persists the outcome as a separate
// update. A gateway failure marks the refund failed; it never un-cancels.
func (s *service) executeRefund(ctx context.Context, order *models.Order, actor Actor, result *CancelResult) {
	refund, err := s.gateway.RefundPayment(ctx, square.RefundParams{
		PaymentID:      order.PaymentIntentID,
		AmountCents:    int64(order.TotalCents),
		Currency:       "USD",
		Reason:         "order cancelled",
		IdempotencyKey: fmt.Sprintf("refund-%s", order.ID),
	})
	if err != nil {
		msg := err.Error()
		result.RefundStatus = enums.RefundStatusFailed
		result.RefundError = msg
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		s.logg.Error(logCtx, "refund failed", err)
		if updateErr := s.repo.Update(ctx, order.ID, map[string]any{
			"refund_status": enums.RefundStatusFailed,
			"refund_error":  msg,
		}); updateErr != nil {
			s.logg.Error(logCtx, "persist refund failure", updateErr)
		}
		order.RefundStatus = enums.RefundStatusFailed
		order.RefundError = &msg
		return
	}

	result.RefundStatus = refund.Status
	result.RefundID = refund.RefundID
	updates := map[string]any{
		"refund_status": refund.Status,
		"refund_id":     refund.RefundID,
	}
	if refund.Status == enums.RefundStatusFailed && refund.FailureReason != "" {
		updates["refund_error"] = refund.FailureReason
		result.RefundError = refund.FailureReason
	}
	if err := s.repo.Update(ctx, order.ID, updates); err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "persist refund outcome", err)
	}
	order.RefundStatus = refund.Status
	refundID := refund.RefundID
	order.RefundID = &refundID

	if refund.Status == enums.RefundStatusSucceeded {
		s.recordRefundSettled(ctx, order, actor, refund)
	}
}

// recordRefundSettled appends the escrow trail entry and emits the settled
// event once a refund reaches its terminal succeeded state.
func (s *service) recordRefundSettled(ctx context.Context, order *models.Order, actor Actor, refund *square.RefundResult) {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.escrow.Record(ctx, tx, enums.EscrowEventFundsRefunded, escrow.RecordInput{
			Order:       order,
			ActorUserID: actor.UserID,
			AmountCents: order.TotalCents,
		}); err != nil {
			return err
		}
		return s.outbox.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundSettled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(actor),
			Data: outbox.RefundSettledData{
				OrderID:     order.ID,
				RefundID:    refund.RefundID,
				Status:      string(refund.Status),
				AmountCents: int64(order.TotalCents),
			},
		})
	})
	if err != nil {
		s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "record refund settlement", err)
	}
}

func (s *service) BulkCancel(ctx context.Context, input BulkCancelInput) (*BulkCancelResult, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if len(input.OrderIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order ids required")
	}

	result := &BulkCancelResult{}
	var combined error
	// Sequential on purpose: one gateway rate limit or transient failure
	// must not fan out across the batch via parallel load.
	for _, orderID := range input.OrderIDs {
		err := s.cancelForBulk(ctx, orderID, input.Actor, input.Reason)
		if err == nil {
			result.SuccessCount++
			continue
		}
		result.FailCount++
		combined = multierr.Append(combined, fmt.Errorf("order %s: %w", orderID, err))
		if len(result.Errors) < bulkCancelErrorLimit {
			result.Errors = append(result.Errors, fmt.Sprintf("order %s: %s", orderID, err.Error()))
		}
	}
	if combined != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"success_count": result.SuccessCount,
			"fail_count":    result.FailCount,
		})
		s.logg.Warn(logCtx, "bulk cancel completed with failures")
	}
	return result, nil
}

// cancelForBulk mirrors Cancel but additionally requires the order to be in
// processing state, matching what bulk selection offers.
func (s *service) cancelForBulk(ctx context.Context, orderID uuid.UUID, actor Actor, reason string) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return err
	}
	if order.BuyerID != actor.UserID && !actor.IsAdmin() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to buyer")
	}
	if order.Status != enums.OrderStatusProcessing {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only processing orders can be bulk cancelled")
	}
	_, err = s.Cancel(ctx, CancelInput{OrderID: orderID, Actor: actor, Reason: reason})
	return err
}

func (s *service) UpdateSellerNotes(ctx context.Context, input SellerNotesInput) (*models.Order, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	var result *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.loadOrderForUpdate(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !input.Actor.OwnsShop(order.ShopID) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to shop")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled")
		}

		notes := strings.TrimSpace(input.Notes)
		now := s.now()
		if err := repo.Update(ctx, order.ID, map[string]any{
			"seller_notes": notes,
			"updated_at":   now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist seller notes")
		}
		order.SellerNotes = &notes
		result = order

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSellerNotesSet,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Actor:         buildActor(input.Actor),
			Data: map[string]any{
				"orderId": order.ID,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReconcilePendingRefunds polls the gateway for refunds that returned as
// asynchronous/pending at cancel time and settles those that have reached a
// terminal state. Returns the number of orders settled.
func (s *service) ReconcilePendingRefunds(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 50
	}
	pending, err := s.repo.FindPendingRefunds(ctx, limit)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pending refunds")
	}

	settled := 0
	for i := range pending {
		order := pending[i]
		if order.RefundID == nil {
			continue
		}
		refund, err := s.gateway.GetRefund(ctx, *order.RefundID)
		if err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "poll refund", err)
			continue
		}
		if !refund.Status.IsSettled() {
			continue
		}

		updates := map[string]any{"refund_status": refund.Status}
		if refund.Status == enums.RefundStatusFailed && refund.FailureReason != "" {
			updates["refund_error"] = refund.FailureReason
		}
		if err := s.repo.Update(ctx, order.ID, updates); err != nil {
			s.logg.Error(s.logg.WithOrderID(ctx, order.ID.String()), "persist refund reconciliation", err)
			continue
		}
		order.RefundStatus = refund.Status
		if refund.Status == enums.RefundStatusSucceeded {
			actor := Actor{UserID: order.BuyerID, Role: enums.ActorRoleBuyer}
			s.recordRefundSettled(ctx, &order, actor, refund)
		}
		settled++
	}
	return settled, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) loadOrderForUpdate(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	order, err := repo.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func authorizeRead(order *models.Order, actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if actor.IsAdmin() {
		return nil
	}
	if order.BuyerID == actor.UserID {
		return nil
	}
	if actor.OwnsShop(order.ShopID) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "order is not visible to caller")
}

// normalizeDeliverySlots validates the payload shape: exactly one slot per
// purchased unit, indexes forming 0..N-1.
func normalizeDeliverySlots(items types.DeliveredItems, totalUnits int) (types.DeliveredItems, error) {
	if len(items) != totalUnits {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("delivery payload must contain %d slots, got %d", totalUnits, len(items)))
	}
	normalized := make(types.DeliveredItems, len(items))
	copy(normalized, items)
	sort.SliceStable(normalized, func(i, j int) bool {
		return normalized[i].Index < normalized[j].Index
	})
	for i, slot := range normalized {
		if slot.Index != i {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery slot indexes must be unique and contiguous")
		}
	}
	return normalized, nil
}

// mirrorLegacyFields keeps the flat credential columns in lockstep with
// deliveredItems[0]. Both representations are always written together.
func mirrorLegacyFields(updates map[string]any, items types.DeliveredItems) {
	var first types.DeliveredItem
	if len(items) > 0 {
		first = items[0]
	}
	updates["email"] = nilIfEmpty(first.Email)
	updates["username"] = nilIfEmpty(first.Username)
	updates["password"] = nilIfEmpty(first.Password)
	updates["additional_info"] = nilIfEmpty(first.AdditionalInfo)
}

func applyDeliveryUpdates(order *models.Order, items types.DeliveredItems, updates map[string]any) {
	order.DeliveredItems = items
	if len(items) > 0 {
		order.Email = nilIfEmpty(items[0].Email)
		order.Username = nilIfEmpty(items[0].Username)
		order.Password = nilIfEmpty(items[0].Password)
		order.AdditionalInfo = nilIfEmpty(items[0].AdditionalInfo)
	}
	if status, ok := updates["status"].(enums.OrderStatus); ok {
		order.Status = status
	}
	if deliveredAt, ok := updates["game_code_delivered_at"].(time.Time); ok {
		order.GameCodeDeliveredAt = &deliveredAt
	}
	if notes, ok := updates["seller_notes"].(string); ok {
		order.SellerNotes = &notes
	}
}

func nilIfEmpty(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func buildActor(actor Actor) *outbox.ActorRef {
	ref := &outbox.ActorRef{
		UserID: actor.UserID,
		Role:   string(actor.Role),
	}
	if actor.ShopID != nil {
		ref.ShopID = actor.ShopID
	}
	return ref
}

package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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

type stubOrdersRepo struct {
	orders    map[uuid.UUID]*models.Order
	updateErr error
}

func newStubOrdersRepo(orders ...*models.Order) *stubOrdersRepo {
	repo := &stubOrdersRepo{orders: make(map[uuid.UUID]*models.Order)}
	for _, o := range orders {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		repo.orders[o.ID] = o
	}
	return repo
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[orderID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (s *stubOrdersRepo) FindByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	return s.FindByID(ctx, orderID)
}

func (s *stubOrdersRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	for _, o := range s.orders {
		if o.BuyerID == buyerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubOrdersRepo) ListByShop(ctx context.Context, shopID uuid.UUID, params pagination.Params, filters ShopOrderFilters) (*OrderPage, error) {
	page := &OrderPage{}
	for _, o := range s.orders {
		if o.ShopID == shopID {
			page.Orders = append(page.Orders, *o)
		}
	}
	return page, nil
}

func (s *stubOrdersRepo) FindPendingRefunds(ctx context.Context, limit int) ([]models.Order, error) {
	var out []models.Order
	for _, o := range s.orders {
		if o.RefundStatus == enums.RefundStatusPending && o.RefundID != nil {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *stubOrdersRepo) Update(ctx context.Context, orderID uuid.UUID, updates map[string]any) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	order, ok := s.orders[orderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range updates {
		switch key {
		case "status":
			order.Status = value.(enums.OrderStatus)
		case "delivered_items":
			order.DeliveredItems = value.(types.DeliveredItems)
		case "email":
			order.Email = toStringPtr(value)
		case "username":
			order.Username = toStringPtr(value)
		case "password":
			order.Password = toStringPtr(value)
		case "additional_info":
			order.AdditionalInfo = toStringPtr(value)
		case "game_code_delivered_at":
			t := value.(time.Time)
			order.GameCodeDeliveredAt = &t
		case "buyer_confirmed":
			order.BuyerConfirmed = value.(bool)
		case "buyer_confirmed_at":
			t := value.(time.Time)
			order.BuyerConfirmedAt = &t
		case "seller_notes":
			notes := value.(string)
			order.SellerNotes = &notes
		case "cancel_reason":
			reason := value.(string)
			order.CancelReason = &reason
		case "refund_status":
			order.RefundStatus = value.(enums.RefundStatus)
		case "refund_amount_cents":
			amount := value.(int)
			order.RefundAmountCents = &amount
		case "refund_id":
			id := value.(string)
			order.RefundID = &id
		case "refund_error":
			msg := value.(string)
			order.RefundError = &msg
		case "updated_at":
			order.UpdatedAt = value.(time.Time)
		}
	}
	return nil
}

func toStringPtr(value any) *string {
	if value == nil {
		return nil
	}
	if ptr, ok := value.(*string); ok {
		return ptr
	}
	s := value.(string)
	return &s
}

type refundCall struct {
	params square.RefundParams
}

type stubGateway struct {
	refundCalls  []refundCall
	refundResult *square.RefundResult
	refundErr    error
	getResult    *square.RefundResult
	getErr       error
}

func (s *stubGateway) RefundPayment(ctx context.Context, params square.RefundParams) (*square.RefundResult, error) {
	s.refundCalls = append(s.refundCalls, refundCall{params: params})
	if s.refundErr != nil {
		return nil, s.refundErr
	}
	if s.refundResult != nil {
		return s.refundResult, nil
	}
	return &square.RefundResult{RefundID: "ref_" + uuid.NewString()[:8], Status: enums.RefundStatusSucceeded}, nil
}

func (s *stubGateway) GetRefund(ctx context.Context, refundID string) (*square.RefundResult, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.getResult != nil {
		return s.getResult, nil
	}
	return &square.RefundResult{RefundID: refundID, Status: enums.RefundStatusPending}, nil
}

type escrowRecord struct {
	eventType enums.EscrowEventType
	orderID   uuid.UUID
	amount    int
}

type stubEscrowService struct {
	records []escrowRecord
	err     error
}

func (s *stubEscrowService) Record(ctx context.Context, tx *gorm.DB, eventType enums.EscrowEventType, input escrow.RecordInput) error {
	if s.err != nil {
		return s.err
	}
	s.records = append(s.records, escrowRecord{eventType: eventType, orderID: input.Order.ID, amount: input.AmountCents})
	return nil
}

func (s *stubEscrowService) Trail(ctx context.Context, orderID uuid.UUID) ([]models.EscrowEvent, error) {
	return nil, nil
}

func (s *stubEscrowService) Split(totalCents int) escrow.Split {
	return escrow.ComputeSplit(totalCents, 500)
}

type stubOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (s *stubOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, event)
	return nil
}

func (s *stubOutboxPublisher) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range s.events {
		if existing.EventType == event.EventType && existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	return s.Emit(ctx, tx, event)
}

func (s *stubOutboxPublisher) eventTypes() []enums.OutboxEventType {
	out := make([]enums.OutboxEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fixture struct {
	repo    *stubOrdersRepo
	gateway *stubGateway
	escrow  *stubEscrowService
	outbox  *stubOutboxPublisher
	svc     Service
}

func newFixture(t *testing.T, orders ...*models.Order) *fixture {
	t.Helper()
	f := &fixture{
		repo:    newStubOrdersRepo(orders...),
		gateway: &stubGateway{},
		escrow:  &stubEscrowService{},
		outbox:  &stubOutboxPublisher{},
	}
	logg := logger.New(logger.Options{ServiceName: "orders-test", Level: logger.ParseLevel("error")})
	svc, err := NewService(f.repo, stubTxRunner{}, f.gateway, f.escrow, f.outbox, logg, 30*time.Minute)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func buyerActor(order *models.Order) Actor {
	return Actor{UserID: order.BuyerID, Role: enums.ActorRoleBuyer}
}

func sellerActor(order *models.Order) Actor {
	shopID := order.ShopID
	return Actor{UserID: uuid.New(), ShopID: &shopID, Role: enums.ActorRoleSeller}
}

func newProcessingOrder() *models.Order {
	return &models.Order{
		ID:              uuid.New(),
		BuyerID:         uuid.New(),
		ShopID:          uuid.New(),
		ShopName:        "Azeroth Keys",
		TotalCents:      20000,
		SellerCents:     19000,
		PaymentIntentID: "pi_" + uuid.NewString()[:8],
		PaymentStatus:   enums.PaymentStatusCompleted,
		Status:          enums.OrderStatusProcessing,
		Items: []models.OrderItem{
			{ID: uuid.New(), ProductID: uuid.New(), Name: "WoW Classic Key", UnitPriceCents: 10000, Quantity: 2},
		},
		CreatedAt: time.Now().Add(-time.Hour),
	}
}

func TestRecordDeliveryForcesCompletion(t *testing.T) {
	order := newProcessingOrder()
	f := newFixture(t, order)

	result, err := f.svc.RecordDelivery(context.Background(), RecordDeliveryInput{
		OrderID: order.ID,
		Actor:   sellerActor(order),
		Items: types.DeliveredItems{
			{Index: 0, Email: "a@x.com", Password: "pw1"},
			{Index: 1, Email: "a@x.com", Password: "pw2"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusCompleted, result.Status)
	require.NotNil(t, result.GameCodeDeliveredAt)
	assert.False(t, result.BuyerConfirmed)

	stored := f.repo.orders[order.ID]
	assert.Equal(t, enums.OrderStatusCompleted, stored.Status)
	require.NotNil(t, stored.GameCodeDeliveredAt)

	// Legacy flat fields mirror slot 0.
	require.NotNil(t, stored.Email)
	assert.Equal(t, "a@x.com", *stored.Email)
	require.NotNil(t, stored.Password)
	assert.Equal(t, "pw1", *stored.Password)

	require.Len(t, f.escrow.records, 1)
	assert.Equal(t, enums.EscrowEventHoldCreated, f.escrow.records[0].eventType)
	assert.Equal(t, 19000, f.escrow.records[0].amount)
	assert.Contains(t, f.outbox.eventTypes(), enums.EventOrderDelivered)
}

func TestRecordDeliveryIsIdempotentOverwrite(t *testing.T) {
	order := newProcessingOrder()
	f := newFixture(t, order)
	seller := sellerActor(order)

	payload := types.DeliveredItems{
		{Index: 0, Email: "a@x.com", Password: "typo"},
		{Index: 1, Email: "a@x.com", Password: "pw2"},
	}
	_, err := f.svc.RecordDelivery(context.Background(), RecordDeliveryInput{OrderID: order.ID, Actor: seller, Items: payload})
	require.NoError(t, err)
	firstDeliveredAt := *f.repo.orders[order.ID].GameCodeDeliveredAt

	payload[0].Password = "pw1"
	_, err = f.svc.RecordDelivery(context.Background(), RecordDeliveryInput{OrderID: order.ID, Actor: seller, Items: payload})
	require.NoError(t, err)

	stored := f.repo.orders[order.ID]
	assert.Equal(t, "pw1", stored.DeliveredItems[0].Password)
	assert.True(t, stored.GameCodeDeliveredAt.Equal(firstDeliveredAt), "delivery timestamp is set once")
	assert.Len(t, f.escrow.records, 1, "hold recorded only on first delivery")
}

func TestRecordDeliveryValidatesSlotCount(t *testing.T) {
	order := newProcessingOrder()
	f := newFixture(t, order)

	_, err := f.svc.RecordDelivery(context.Background(), RecordDeliveryInput{
		OrderID: order.ID,
		Actor:   sellerActor(order),
		Items:   types.DeliveredItems{{Index: 0, Password: "pw"}},
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestRecordDeliveryAllEmptySlotsDoesNotComplete(t *testing.T) {
	order := newProcessingOrder()
	f := newFixture(t, order)

	result, err := f.svc.RecordDelivery(context.Background(), RecordDeliveryInput{
		OrderID: order.ID,
		Actor:   sellerActor(order),
		Items:   types.DeliveredItems{{Index: 0}, {Index: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, result.Status)
	assert.Nil(t, result.GameCodeDeliveredAt)
}

func TestRecordDeliveryRejectsWrongShop(t *testing.T) {
	order := newProcessingOrder()
	f := newFixture(t, order)
	otherShop := uuid.New()

	_, err := f.svc.RecordDelivery(context.Background(), RecordDeliveryInput{
		OrderID: order.ID,
		Actor:   Actor{UserID: uuid.New(), ShopID: &otherShop, Role: enums.ActorRoleSeller},
		Items:   types.DeliveredItems{{Index: 0, Password: "pw"}, {Index: 1}},
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestRecordDeliveryRejectsCancelledOrder(t *testing.T) {
	order := newProcessingOrder()
	order.Status = enums.OrderStatusCancelled
	f := newFixture(t, order)

	_, err := f.svc.RecordDelivery(context.Background(), RecordDeliveryInput{
		OrderID: order.ID,
		Actor:   sellerActor(order),
		Items:   types.DeliveredItems{{Index: 0, Password: "pw"}, {Index: 1}},
	})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestConfirmReceiptIsIdempotent(t *testing.T) {
	order := newProcessingOrder()
	deliveredAt := time.Now().Add(-10 * time.Minute)
	order.Status = enums.OrderStatusCompleted
	order.GameCodeDeliveredAt = &deliveredAt
	f := newFixture(t, order)

	first, err := f.svc.ConfirmReceipt(context.Background(), order.ID, buyerActor(order))
	require.NoError(t, err)
	assert.False(t, first.AlreadyConfirmed)
	assert.True(t, first.Order.BuyerConfirmed)
	confirmedAt := *f.repo.orders[order.ID].BuyerConfirmedAt

	second, err := f.svc.ConfirmReceipt(context.Background(), order.ID, buyerActor(order))
	require.NoError(t, err)
	assert.True(t, second.AlreadyConfirmed)
	assert.True(t, f.repo.orders[order.ID].BuyerConfirmedAt.Equal(confirmedAt))

	require.Len(t, f.escrow.records, 1)
	assert.Equal(t, enums.EscrowEventFundsReleased, f.escrow.records[0].eventType)
	assert.Equal(t, 19000, f.escrow.records[0].amount)
}

func TestConfirmReceiptRequiresDelivery(t *testing.T) {
	order := newProcessingOrder()
	f := newFixture(t, order)

	_, err := f.svc.ConfirmReceipt(context.Background(), order.ID, buyerActor(order))
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

func TestConfirmReceiptRejectsNonBuyer(t *testing.T) {
	order := newProcessingOrder()
	deliveredAt := time.Now()
	order.GameCodeDeliveredAt = &deliveredAt
	f := newFixture(t, order)

	_, err := f.svc.ConfirmReceipt(context.Background(), order.ID, Actor{UserID: uuid.New(), Role: enums.ActorRoleBuyer})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeForbidden))
}

func TestCancelWithCapturedPaymentRefundsFullAmount(t *testing.T) {
	order := newProcessingOrder()
	f := newFixture(t, order)

	result, err := f.svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   buyerActor(order),
		Reason:  "changed my mind",
	})
	require.NoError(t, err)

	assert.True(t, result.RefundAttempted)
	assert.Equal(t, enums.RefundStatusSucceeded, result.RefundStatus)
	assert.NotEmpty(t, result.RefundID)

	stored := f.repo.orders[order.ID]
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	assert.Equal(t, enums.RefundStatusSucceeded, stored.RefundStatus)
	require.NotNil(t, stored.RefundAmountCents)
	assert.Equal(t, order.TotalCents, *stored.RefundAmountCents)

	require.Len(t, f.gateway.refundCalls, 1)
	call := f.gateway.refundCalls[0]
	assert.Equal(t, order.PaymentIntentID, call.params.PaymentID)
	assert.Equal(t, int64(order.TotalCents), call.params.AmountCents)

	emitted := f.outbox.eventTypes()
	assert.Contains(t, emitted, enums.EventOrderCancelled)
	assert.Contains(t, emitted, enums.EventRefundSettled)
}

func TestCancelWithoutCapturedPaymentSkipsRefund(t *testing.T) {
	order := newProcessingOrder()
	order.PaymentStatus = enums.PaymentStatusPending
	f := newFixture(t, order)

	result, err := f.svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, Actor: buyerActor(order)})
	require.NoError(t, err)

	assert.False(t, result.RefundAttempted)
	assert.Empty(t, f.gateway.refundCalls)

	stored := f.repo.orders[order.ID]
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	assert.Equal(t, enums.RefundStatusNone, stored.RefundStatus)
	assert.Nil(t, stored.RefundAmountCents)
}

func TestCancelAfterDeliveryIsRejected(t *testing.T) {
	order := newProcessingOrder()
	deliveredAt := time.Now()
	order.Status = enums.OrderStatusCompleted
	order.GameCodeDeliveredAt = &deliveredAt
	f := newFixture(t, order)

	_, err := f.svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, Actor: buyerActor(order)})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, enums.OrderStatusCompleted, f.repo.orders[order.ID].Status)
	assert.Empty(t, f.gateway.refundCalls)
}

func TestCancelSurvivesRefundFailure(t *testing.T) {
	order := newProcessingOrder()
	f := newFixture(t, order)
	f.gateway.refundErr = errors.New("gateway timeout")

	result, err := f.svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, Actor: buyerActor(order)})
	require.NoError(t, err, "refund failure must not fail the cancellation")

	assert.True(t, result.RefundAttempted)
	assert.Equal(t, enums.RefundStatusFailed, result.RefundStatus)
	assert.Contains(t, result.RefundError, "gateway timeout")

	stored := f.repo.orders[order.ID]
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	assert.Equal(t, enums.RefundStatusFailed, stored.RefundStatus)
	require.NotNil(t, stored.RefundError)
}

func TestCancelPendingRefundStaysPending(t *testing.T) {
	order := newProcessingOrder()
	f := newFixture(t, order)
	f.gateway.refundResult = &square.RefundResult{RefundID: "ref_async", Status: enums.RefundStatusPending}

	result, err := f.svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, Actor: buyerActor(order)})
	require.NoError(t, err)

	assert.Equal(t, enums.RefundStatusPending, result.RefundStatus)
	stored := f.repo.orders[order.ID]
	assert.Equal(t, enums.RefundStatusPending, stored.RefundStatus)
	require.NotNil(t, stored.RefundID)
	assert.Equal(t, "ref_async", *stored.RefundID)
	assert.NotContains(t, f.outbox.eventTypes(), enums.EventRefundSettled)
}

func TestCancelAllowsAdmin(t *testing.T) {
	order := newProcessingOrder()
	f := newFixture(t, order)

	_, err := f.svc.Cancel(context.Background(), CancelInput{
		OrderID: order.ID,
		Actor:   Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, f.repo.orders[order.ID].Status)
}

func TestBulkCancelAggregatesPartialFailure(t *testing.T) {
	buyer := uuid.New()
	processing := newProcessingOrder()
	processing.BuyerID = buyer
	completed := newProcessingOrder()
	completed.BuyerID = buyer
	completed.Status = enums.OrderStatusCompleted
	pending := newProcessingOrder()
	pending.BuyerID = buyer
	pending.Status = enums.OrderStatusPending

	f := newFixture(t, processing, completed, pending)

	result, err := f.svc.BulkCancel(context.Background(), BulkCancelInput{
		OrderIDs: []uuid.UUID{processing.ID, completed.ID, pending.ID},
		Actor:    Actor{UserID: buyer, Role: enums.ActorRoleBuyer},
	})
	require.NoError(t, err, "bulk cancel never raises a batch-level failure")

	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 2, result.FailCount)
	assert.Equal(t, 3, result.SuccessCount+result.FailCount)
	assert.NotEmpty(t, result.Errors)

	assert.Equal(t, enums.OrderStatusCancelled, f.repo.orders[processing.ID].Status)
	assert.Equal(t, enums.OrderStatusCompleted, f.repo.orders[completed.ID].Status)
	// Pending orders are excluded from bulk action even though single cancel
	// would accept them.
	assert.Equal(t, enums.OrderStatusPending, f.repo.orders[pending.ID].Status)
}

func TestBulkCancelContinuesAfterFailure(t *testing.T) {
	buyer := uuid.New()
	first := newProcessingOrder()
	first.BuyerID = buyer
	first.Status = enums.OrderStatusCompleted
	second := newProcessingOrder()
	second.BuyerID = buyer

	f := newFixture(t, first, second)

	result, err := f.svc.BulkCancel(context.Background(), BulkCancelInput{
		OrderIDs: []uuid.UUID{first.ID, second.ID},
		Actor:    Actor{UserID: buyer, Role: enums.ActorRoleBuyer},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessCount)
	assert.Equal(t, 1, result.FailCount)
	assert.Equal(t, enums.OrderStatusCancelled, f.repo.orders[second.ID].Status)
}

func TestUpdateSellerNotes(t *testing.T) {
	order := newProcessingOrder()
	order.Status = enums.OrderStatusCompleted
	f := newFixture(t, order)

	result, err := f.svc.UpdateSellerNotes(context.Background(), SellerNotesInput{
		OrderID: order.ID,
		Actor:   sellerActor(order),
		Notes:   "activate via battle.net",
	})
	require.NoError(t, err)
	require.NotNil(t, result.SellerNotes)
	assert.Equal(t, "activate via battle.net", *result.SellerNotes)
	assert.Contains(t, f.outbox.eventTypes(), enums.EventSellerNotesSet)
}

func TestReconcilePendingRefunds(t *testing.T) {
	order := newProcessingOrder()
	order.Status = enums.OrderStatusCancelled
	order.RefundStatus = enums.RefundStatusPending
	refundID := "ref_async"
	order.RefundID = &refundID
	amount := order.TotalCents
	order.RefundAmountCents = &amount

	f := newFixture(t, order)
	f.gateway.getResult = &square.RefundResult{RefundID: refundID, Status: enums.RefundStatusSucceeded}

	settled, err := f.svc.ReconcilePendingRefunds(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, settled)

	stored := f.repo.orders[order.ID]
	assert.Equal(t, enums.RefundStatusSucceeded, stored.RefundStatus)
	require.Len(t, f.escrow.records, 1)
	assert.Equal(t, enums.EscrowEventFundsRefunded, f.escrow.records[0].eventType)
}

func TestReconcilePendingRefundsLeavesUnsettled(t *testing.T) {
	order := newProcessingOrder()
	order.Status = enums.OrderStatusCancelled
	order.RefundStatus = enums.RefundStatusPending
	refundID := "ref_async"
	order.RefundID = &refundID

	f := newFixture(t, order)
	f.gateway.getResult = &square.RefundResult{RefundID: refundID, Status: enums.RefundStatusPending}

	settled, err := f.svc.ReconcilePendingRefunds(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 0, settled)
	assert.Equal(t, enums.RefundStatusPending, f.repo.orders[order.ID].RefundStatus)
}

// Full walkthrough of the delivered-confirmed-locked path.
func TestFulfillmentScenario(t *testing.T) {
	order := newProcessingOrder()
	f := newFixture(t, order)
	seller := sellerActor(order)
	buyer := buyerActor(order)

	delivered, err := f.svc.RecordDelivery(context.Background(), RecordDeliveryInput{
		OrderID: order.ID,
		Actor:   seller,
		Items: types.DeliveredItems{
			{Index: 0, Email: "a@x.com", Password: "pw1"},
			{Index: 1, Email: "a@x.com", Password: "pw2"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, delivered.Status)
	assert.NotNil(t, delivered.GameCodeDeliveredAt)
	assert.False(t, delivered.BuyerConfirmed)

	confirmed, err := f.svc.ConfirmReceipt(context.Background(), order.ID, buyer)
	require.NoError(t, err)
	assert.True(t, confirmed.Order.BuyerConfirmed)
	assert.True(t, confirmed.Order.PayoutEligible())

	_, err = f.svc.Cancel(context.Background(), CancelInput{OrderID: order.ID, Actor: buyer})
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeStateConflict))
}

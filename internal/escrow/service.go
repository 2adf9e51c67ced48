package escrow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/db"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/db/models"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
	pkgerrors "github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/errors"
)

// Split is the platform/seller division of an order total.
type Split struct {
	TotalCents       int
	PlatformFeeCents int
	SellerCents      int
}

// RecordInput identifies the order context for one trail entry.
type RecordInput struct {
	Order       *models.Order
	ActorUserID uuid.UUID
	AmountCents int
	Metadata    any
}

// Service maintains the append-only escrow trail for orders. Each event type
// is recorded at most once per order; replays are silent no-ops.
type Service interface {
	Record(ctx context.Context, tx *gorm.DB, eventType enums.EscrowEventType, input RecordInput) error
	Trail(ctx context.Context, orderID uuid.UUID) ([]models.EscrowEvent, error)
	Split(totalCents int) Split
}

type service struct {
	repo           Repository
	platformFeeBPS int
}

// NewService builds the escrow trail service.
func NewService(repo Repository, platformFeeBPS int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("escrow repository required")
	}
	if platformFeeBPS < 0 || platformFeeBPS > 10000 {
		return nil, fmt.Errorf("platform fee bps out of range: %d", platformFeeBPS)
	}
	return &service{repo: repo, platformFeeBPS: platformFeeBPS}, nil
}

// ComputeSplit divides a total into platform fee and seller amount using
// basis points. The fee rounds half-up and the seller gets the remainder, so
// the two parts always sum to the total.
func ComputeSplit(totalCents, platformFeeBPS int) Split {
	total := decimal.NewFromInt(int64(totalCents))
	fee := total.
		Mul(decimal.NewFromInt(int64(platformFeeBPS))).
		Div(decimal.NewFromInt(10000)).
		Round(0)
	feeCents := int(fee.IntPart())
	if feeCents > totalCents {
		feeCents = totalCents
	}
	return Split{
		TotalCents:       totalCents,
		PlatformFeeCents: feeCents,
		SellerCents:      totalCents - feeCents,
	}
}

// Split computes the configured fee division for a total.
func (s *service) Split(totalCents int) Split {
	return ComputeSplit(totalCents, s.platformFeeBPS)
}

func (s *service) Record(ctx context.Context, tx *gorm.DB, eventType enums.EscrowEventType, input RecordInput) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if input.Order == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "order required")
	}
	if !eventType.IsValid() {
		return pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("invalid escrow event type %q", eventType))
	}

	repo := s.repo.WithTx(tx)
	exists, err := repo.Exists(ctx, input.Order.ID, eventType)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check escrow trail")
	}
	if exists {
		return nil
	}

	event := &models.EscrowEvent{
		OrderID:     input.Order.ID,
		BuyerID:     input.Order.BuyerID,
		ShopID:      input.Order.ShopID,
		ActorUserID: input.ActorUserID,
		Type:        eventType,
		AmountCents: input.AmountCents,
	}
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode escrow metadata")
		}
		event.Metadata = raw
	}

	if err := repo.Create(ctx, event); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_escrow_events_order_type") {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record escrow event")
	}
	return nil
}

func (s *service) Trail(ctx context.Context, orderID uuid.UUID) ([]models.EscrowEvent, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	events, err := s.repo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load escrow trail")
	}
	return events, nil
}

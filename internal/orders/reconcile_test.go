package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/db/models"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/pagination"
)

func orderWithProducts(status enums.OrderStatus, createdAt time.Time, productIDs ...uuid.UUID) models.Order {
	items := make([]models.OrderItem, 0, len(productIDs))
	for _, pid := range productIDs {
		items = append(items, models.OrderItem{ID: uuid.New(), ProductID: pid, Quantity: 1})
	}
	return models.Order{
		ID:        uuid.New(),
		BuyerID:   uuid.New(),
		ShopID:    uuid.New(),
		Status:    status,
		Items:     items,
		CreatedAt: createdAt,
	}
}

func TestReconcileSuppressesCheckoutRetryDuplicate(t *testing.T) {
	t0 := time.Now().Add(-2 * time.Hour)
	productA := uuid.New()
	productB := uuid.New()

	cancelled := orderWithProducts(enums.OrderStatusCancelled, t0, productA, productB)
	// Same products in a different line-item order still match.
	successful := orderWithProducts(enums.OrderStatusProcessing, t0.Add(10*time.Minute), productB, productA)

	kept, suppressed := reconcileDuplicates([]models.Order{cancelled, successful}, 30*time.Minute)

	assert.Equal(t, 1, suppressed)
	require.Len(t, kept, 1)
	assert.Equal(t, successful.ID, kept[0].ID)
}

func TestReconcileKeepsCancelledOutsideWindow(t *testing.T) {
	t0 := time.Now().Add(-2 * time.Hour)
	productA := uuid.New()
	productB := uuid.New()

	cancelled := orderWithProducts(enums.OrderStatusCancelled, t0, productA, productB)
	successful := orderWithProducts(enums.OrderStatusCompleted, t0.Add(40*time.Minute), productB, productA)

	kept, suppressed := reconcileDuplicates([]models.Order{cancelled, successful}, 30*time.Minute)

	assert.Equal(t, 0, suppressed)
	assert.Len(t, kept, 2)
}

func TestReconcileKeepsCancelledWithDifferentItems(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	cancelled := orderWithProducts(enums.OrderStatusCancelled, t0, uuid.New())
	successful := orderWithProducts(enums.OrderStatusCompleted, t0.Add(5*time.Minute), uuid.New())

	kept, suppressed := reconcileDuplicates([]models.Order{cancelled, successful}, 30*time.Minute)

	assert.Equal(t, 0, suppressed)
	assert.Len(t, kept, 2)
}

func TestReconcileNeverMatchesEmptyItemSets(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	cancelled := orderWithProducts(enums.OrderStatusCancelled, t0)
	successful := orderWithProducts(enums.OrderStatusProcessing, t0.Add(5*time.Minute))

	kept, suppressed := reconcileDuplicates([]models.Order{cancelled, successful}, 30*time.Minute)

	assert.Equal(t, 0, suppressed)
	assert.Len(t, kept, 2, "empty item sets must not be treated as duplicates")
}

func TestReconcileWindowIsSymmetric(t *testing.T) {
	t0 := time.Now().Add(-2 * time.Hour)
	productA := uuid.New()

	// Cancelled order created after the successful one.
	successful := orderWithProducts(enums.OrderStatusCompleted, t0, productA)
	cancelled := orderWithProducts(enums.OrderStatusCancelled, t0.Add(12*time.Minute), productA)

	kept, suppressed := reconcileDuplicates([]models.Order{successful, cancelled}, 30*time.Minute)

	assert.Equal(t, 1, suppressed)
	assert.Len(t, kept, 1)
}

func TestReconcileQuantityDoesNotAffectMatch(t *testing.T) {
	t0 := time.Now().Add(-time.Hour)
	productA := uuid.New()

	cancelled := orderWithProducts(enums.OrderStatusCancelled, t0, productA)
	cancelled.Items[0].Quantity = 1
	successful := orderWithProducts(enums.OrderStatusProcessing, t0.Add(5*time.Minute), productA)
	successful.Items[0].Quantity = 3

	kept, suppressed := reconcileDuplicates([]models.Order{cancelled, successful}, 30*time.Minute)

	// Matching is over the line-item product multiset, not unit counts.
	assert.Equal(t, 1, suppressed)
	assert.Len(t, kept, 1)
}

func TestListBuyerOrdersAppliesReconciliation(t *testing.T) {
	t0 := time.Now().Add(-2 * time.Hour)
	buyer := uuid.New()
	productA := uuid.New()

	cancelled := orderWithProducts(enums.OrderStatusCancelled, t0, productA)
	cancelled.BuyerID = buyer
	successful := orderWithProducts(enums.OrderStatusProcessing, t0.Add(10*time.Minute), productA)
	successful.BuyerID = buyer
	unrelated := orderWithProducts(enums.OrderStatusCancelled, t0.Add(-3*time.Hour), uuid.New())
	unrelated.BuyerID = buyer

	f := newFixture(t, &cancelled, &successful, &unrelated)

	list, err := f.svc.ListBuyerOrders(context.Background(), Actor{UserID: buyer, Role: enums.ActorRoleBuyer}, pagination.Params{})
	require.NoError(t, err)

	assert.Equal(t, 1, list.SuppressedCount)
	require.Len(t, list.Orders, 2)
	for _, o := range list.Orders {
		assert.NotEqual(t, cancelled.ID, o.ID)
	}
}

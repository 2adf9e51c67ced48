package orders

import (
	"sort"
	"strings"
	"time"

	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/db/models"
	"github.com/ThanaboonChantasawat/wow-key-store-backend/pkg/enums"
)

// reconcileDuplicates hides cancelled orders that are near-certain checkout
// retry artifacts of a successful order. A cancelled order is suppressed iff
// some processing/completed order was created within the window AND carries
// exactly the same sorted multiset of product ids (non-empty).
//
// This is a heuristic, not a foreign-key relationship. False negatives
// (showing a real duplicate) are preferred over false positives (hiding a
// distinct cancelled order), so both bounds are strict.
func reconcileDuplicates(orders []models.Order, window time.Duration) (kept []models.Order, suppressed int) {
	type successKey struct {
		createdAt time.Time
		products  string
	}

	var successes []successKey
	for _, o := range orders {
		if o.Status == enums.OrderStatusProcessing || o.Status == enums.OrderStatusCompleted {
			successes = append(successes, successKey{
				createdAt: o.CreatedAt,
				products:  productMultisetKey(o),
			})
		}
	}

	kept = make([]models.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status != enums.OrderStatusCancelled {
			kept = append(kept, o)
			continue
		}
		key := productMultisetKey(o)
		if key == "" {
			kept = append(kept, o)
			continue
		}
		matched := false
		for _, s := range successes {
			if s.products != key {
				continue
			}
			delta := o.CreatedAt.Sub(s.createdAt)
			if delta < 0 {
				delta = -delta
			}
			if delta < window {
				matched = true
				break
			}
		}
		if matched {
			suppressed++
			continue
		}
		kept = append(kept, o)
	}
	return kept, suppressed
}

// productMultisetKey returns the sorted product ids of an order's line items
// joined into a comparable string, or "" when the order has no items.
func productMultisetKey(order models.Order) string {
	if len(order.Items) == 0 {
		return ""
	}
	ids := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID.String())
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}

package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder       OutboxAggregateType = "order"
	AggregateEscrowEvent OutboxAggregateType = "escrow_event"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateEscrowEvent,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderDelivered OutboxEventType = "order_delivered"
	EventOrderConfirmed OutboxEventType = "order_confirmed"
	EventOrderCancelled OutboxEventType = "order_cancelled"
	EventRefundSettled  OutboxEventType = "refund_settled"
	EventSellerNotesSet OutboxEventType = "seller_notes_set"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderDelivered,
	EventOrderConfirmed,
	EventOrderCancelled,
	EventRefundSettled,
	EventSellerNotesSet,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

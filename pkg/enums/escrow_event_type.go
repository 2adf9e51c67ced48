package enums

import "fmt"

// EscrowEventType labels the append-only settlement trail of a single order.
type EscrowEventType string

const (
	EscrowEventHoldCreated   EscrowEventType = "hold_created"
	EscrowEventFundsReleased EscrowEventType = "funds_released"
	EscrowEventFundsRefunded EscrowEventType = "funds_refunded"
	// payout_sent rows are written by the payout worker; this service only
	// reads them back on the trail endpoint.
	EscrowEventPayoutSent EscrowEventType = "payout_sent"
)

var validEscrowEventTypes = []EscrowEventType{
	EscrowEventHoldCreated,
	EscrowEventFundsReleased,
	EscrowEventFundsRefunded,
	EscrowEventPayoutSent,
}

// String implements fmt.Stringer.
func (t EscrowEventType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known EscrowEventType.
func (t EscrowEventType) IsValid() bool {
	for _, candidate := range validEscrowEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseEscrowEventType converts raw input into an EscrowEventType.
func ParseEscrowEventType(value string) (EscrowEventType, error) {
	for _, candidate := range validEscrowEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid escrow event type %q", value)
}

package types

import "strings"

// DeliveredItem is one unit's credential slot within an order's delivery
// payload, indexed 0..N-1 across all line items by quantity.
type DeliveredItem struct {
	Index          int    `json:"index"`
	ItemName       string `json:"itemName,omitempty"`
	Email          string `json:"email,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`
	AdditionalInfo string `json:"additionalInfo,omitempty"`
}

// Empty reports whether the slot carries no credential data, meaning the unit
// has not been delivered yet.
func (d DeliveredItem) Empty() bool {
	return strings.TrimSpace(d.Email) == "" &&
		strings.TrimSpace(d.Username) == "" &&
		strings.TrimSpace(d.Password) == "" &&
		strings.TrimSpace(d.AdditionalInfo) == ""
}

// DeliveredItems is stored as a jsonb column on orders.
type DeliveredItems []DeliveredItem

// AnyDelivered reports whether at least one slot carries credentials.
func (items DeliveredItems) AnyDelivered() bool {
	for _, item := range items {
		if !item.Empty() {
			return true
		}
	}
	return false
}

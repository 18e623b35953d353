package enums

import "fmt"

// GroupOrderStatus tracks the lifecycle of a group order.
type GroupOrderStatus string

const (
	GroupOrderStatusActive        GroupOrderStatus = "active"
	GroupOrderStatusTargetReached GroupOrderStatus = "target_reached"
	GroupOrderStatusOrdered       GroupOrderStatus = "ordered"
	GroupOrderStatusDelivered     GroupOrderStatus = "delivered"
	GroupOrderStatusCancelled     GroupOrderStatus = "cancelled"
)

var validGroupOrderStatuses = []GroupOrderStatus{
	GroupOrderStatusActive,
	GroupOrderStatusTargetReached,
	GroupOrderStatusOrdered,
	GroupOrderStatusDelivered,
	GroupOrderStatusCancelled,
}

// String implements fmt.Stringer.
func (g GroupOrderStatus) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GroupOrderStatus.
func (g GroupOrderStatus) IsValid() bool {
	for _, candidate := range validGroupOrderStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further mutation.
func (g GroupOrderStatus) IsTerminal() bool {
	return g == GroupOrderStatusDelivered || g == GroupOrderStatusCancelled
}

// ParseGroupOrderStatus converts raw input into a GroupOrderStatus.
func ParseGroupOrderStatus(value string) (GroupOrderStatus, error) {
	for _, candidate := range validGroupOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid group order status %q", value)
}

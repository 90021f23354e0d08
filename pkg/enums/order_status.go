package enums

import (
	"fmt"
	"strings"
)

// OrderStatus is the fulfilment state shared by orders and tracking entries.
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusProcessing     OrderStatus = "processing"
	OrderStatusPacked         OrderStatus = "packed"
	OrderStatusShipped        OrderStatus = "shipped"
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusReturned       OrderStatus = "returned"
)

// OrderWorkflow is the linear fulfilment path. Cancelled and returned branch off it.
var OrderWorkflow = []OrderStatus{
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusProcessing,
	OrderStatusPacked,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

var validOrderStatuses = append(append([]OrderStatus{}, OrderWorkflow...), OrderStatusCancelled, OrderStatusReturned)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:        "Pending",
	OrderStatusConfirmed:      "Confirmed",
	OrderStatusProcessing:     "Processing",
	OrderStatusPacked:         "Packed",
	OrderStatusShipped:        "Shipped",
	OrderStatusOutForDelivery: "Out for Delivery",
	OrderStatusDelivered:      "Delivered",
	OrderStatusCancelled:      "Cancelled",
	OrderStatusReturned:       "Returned",
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// Label returns the display name, falling back to the pending label for unknown values.
func (s OrderStatus) Label() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return orderStatusLabels[OrderStatusPending]
}

// Step returns the position on the workflow path, or -1 for side branches and unknown values.
func (s OrderStatus) Step() int {
	for i, candidate := range OrderWorkflow {
		if candidate == s {
			return i
		}
	}
	return -1
}

// IsTerminal reports whether no further transition is allowed.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusReturned
}

// CanTransitionTracking reports whether a tracking entry with status to may follow one with
// status from. An empty from means no history yet and is read as pending.
func CanTransitionTracking(from, to OrderStatus) bool {
	if from == "" {
		from = OrderStatusPending
	}
	if !from.IsValid() || !to.IsValid() {
		return false
	}
	if from == to {
		return true
	}
	switch to {
	case OrderStatusCancelled:
		return !from.IsTerminal()
	case OrderStatusReturned:
		return from == OrderStatusDelivered
	}
	if from.IsTerminal() {
		return false
	}
	return to.Step() > from.Step()
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

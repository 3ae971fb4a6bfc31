package enums

import "fmt"

// OrderStatus tracks the lifecycle of a storefront order.
type OrderStatus string

const (
	OrderStatusPending          OrderStatus = "pending"
	OrderStatusPaymentConfirmed OrderStatus = "payment_confirmed"
	OrderStatusPaymentFailed    OrderStatus = "payment_failed"
	OrderStatusShipped          OrderStatus = "shipped"
	OrderStatusInTransit        OrderStatus = "in_transit"
	OrderStatusDelivered        OrderStatus = "delivered"
	OrderStatusReturned         OrderStatus = "returned"
	OrderStatusCancelled        OrderStatus = "cancelled"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaymentConfirmed,
	OrderStatusPaymentFailed,
	OrderStatusShipped,
	OrderStatusInTransit,
	OrderStatusDelivered,
	OrderStatusReturned,
	OrderStatusCancelled,
}

// String implements fmt.Stringer.
func (o OrderStatus) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderStatus.
func (o OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}

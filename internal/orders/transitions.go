package orders

import "github.com/tecbunny/tecbunny-backend/pkg/enums"

// statusTransitions is the only authority on order lifecycle moves.
// Cancellation is reachable from every pre-shipment state; once an
// order ships it can only move forward to delivered or returned.
var statusTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending: {
		enums.OrderStatusPaymentConfirmed,
		enums.OrderStatusPaymentFailed,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPaymentConfirmed: {
		enums.OrderStatusShipped,
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusPaymentFailed: {
		enums.OrderStatusCancelled,
	},
	enums.OrderStatusShipped: {
		enums.OrderStatusInTransit,
	},
	enums.OrderStatusInTransit: {
		enums.OrderStatusDelivered,
		enums.OrderStatusReturned,
	},
	enums.OrderStatusDelivered: {},
	enums.OrderStatusReturned:  {},
	enums.OrderStatusCancelled: {},
}

// CanTransition reports whether an order may move between the two states.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, candidate := range statusTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further moves.
func IsTerminal(status enums.OrderStatus) bool {
	return len(statusTransitions[status]) == 0
}

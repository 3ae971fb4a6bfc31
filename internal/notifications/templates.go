package notifications

import (
	"fmt"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/money"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
)

// WhatsApp template names registered with the Business account.
const (
	templateOrderPlaced    = "tb_order_placed"
	templatePaymentSuccess = "tb_payment_success"
	templatePaymentFailed  = "tb_payment_failed"
	templateOrderUpdate    = "tb_order_update"
)

// rendered is the channel-agnostic content for one event. The email
// channel uses Subject and TextBody, WhatsApp sends the named template
// with the body parameters.
type rendered struct {
	Template       string
	Subject        string
	TextBody       string
	WhatsAppParams []string
}

func renderOrderCreated(event payloads.OrderCreatedEvent) rendered {
	total := money.FormatINR(event.Total)
	return rendered{
		Template: templateOrderPlaced,
		Subject:  fmt.Sprintf("Order %s received", event.OrderNumber),
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nWe have received your order %s for %s (%d items). Complete the payment to confirm it.\n\nTrack it anytime with your order number.\n\nTecBunny",
			event.CustomerName, event.OrderNumber, total, event.ItemCount),
		WhatsAppParams: []string{event.CustomerName, event.OrderNumber, total},
	}
}

func renderPaymentSucceeded(event payloads.PaymentSucceededEvent) rendered {
	amount := money.FormatINR(event.Amount)
	return rendered{
		Template: templatePaymentSuccess,
		Subject:  fmt.Sprintf("Payment received for order %s", event.OrderNumber),
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nYour payment of %s for order %s is confirmed. We are preparing your shipment.\n\nTecBunny",
			event.CustomerName, amount, event.OrderNumber),
		WhatsAppParams: []string{event.CustomerName, amount, event.OrderNumber},
	}
}

func renderPaymentFailed(event payloads.PaymentFailedEvent) rendered {
	amount := money.FormatINR(event.Amount)
	return rendered{
		Template: templatePaymentFailed,
		Subject:  fmt.Sprintf("Payment failed for order %s", event.OrderNumber),
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nThe payment of %s for order %s did not go through. No amount was captured. You can retry the payment from your orders page.\n\nTecBunny",
			event.CustomerName, amount, event.OrderNumber),
		WhatsAppParams: []string{event.CustomerName, amount, event.OrderNumber},
	}
}

func renderOrderStatusChanged(event payloads.OrderStatusChangedEvent) rendered {
	phrase := statusPhrase(event.To)
	return rendered{
		Template: templateOrderUpdate,
		Subject:  fmt.Sprintf("Order %s %s", event.OrderNumber, phrase),
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nYour order %s %s.\n\nTecBunny",
			event.CustomerName, event.OrderNumber, phrase),
		WhatsAppParams: []string{event.CustomerName, event.OrderNumber, phrase},
	}
}

func statusPhrase(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusShipped:
		return "has been shipped"
	case enums.OrderStatusInTransit:
		return "is on its way"
	case enums.OrderStatusDelivered:
		return "has been delivered"
	case enums.OrderStatusReturned:
		return "has been returned"
	case enums.OrderStatusCancelled:
		return "has been cancelled"
	default:
		return fmt.Sprintf("is now %s", status)
	}
}

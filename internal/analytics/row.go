package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
)

// OrderEventRow is one fact in the order_events BigQuery table.
type OrderEventRow struct {
	EventID         string    `bigquery:"event_id"`
	EventType       string    `bigquery:"event_type"`
	OrderID         string    `bigquery:"order_id"`
	OrderNumber     string    `bigquery:"order_number"`
	Status          *string   `bigquery:"status"`
	Total           *float64  `bigquery:"total"`
	AgentAttributed bool      `bigquery:"agent_attributed"`
	Provider        *string   `bigquery:"provider"`
	OccurredAt      time.Time `bigquery:"occurred_at"`
}

// buildRow flattens a domain event into the fact schema. Unknown event
// types are the caller's responsibility to filter first.
func buildRow(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (*OrderEventRow, error) {
	row := &OrderEventRow{
		EventID:    envelope.EventID,
		EventType:  string(eventType),
		OccurredAt: envelope.OccurredAt,
	}

	switch eventType {
	case enums.EventOrderCreated:
		var payload payloads.OrderCreatedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode order created payload: %w", err)
		}
		row.OrderID = payload.OrderID.String()
		row.OrderNumber = payload.OrderNumber
		row.Status = statusPtr(enums.OrderStatusPending)
		row.Total = totalPtr(payload.Total.InexactFloat64())
		row.AgentAttributed = payload.AgentID != nil

	case enums.EventOrderStatusChanged:
		var payload payloads.OrderStatusChangedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode status change payload: %w", err)
		}
		row.OrderID = payload.OrderID.String()
		row.OrderNumber = payload.OrderNumber
		row.Status = statusPtr(payload.To)

	case enums.EventOrderCancelled:
		var payload payloads.OrderCancelledEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode cancellation payload: %w", err)
		}
		row.OrderID = payload.OrderID.String()
		row.OrderNumber = payload.OrderNumber
		row.Status = statusPtr(enums.OrderStatusCancelled)

	case enums.EventPaymentSucceeded:
		var payload payloads.PaymentSucceededEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode payment success payload: %w", err)
		}
		row.OrderID = payload.OrderID.String()
		row.OrderNumber = payload.OrderNumber
		row.Status = statusPtr(enums.OrderStatusPaymentConfirmed)
		row.Total = totalPtr(payload.Amount.InexactFloat64())
		row.AgentAttributed = payload.AgentID != nil
		provider := string(payload.Provider)
		row.Provider = &provider

	case enums.EventPaymentFailed:
		var payload payloads.PaymentFailedEvent
		if err := json.Unmarshal(envelope.Data, &payload); err != nil {
			return nil, fmt.Errorf("decode payment failure payload: %w", err)
		}
		row.OrderID = payload.OrderID.String()
		row.OrderNumber = payload.OrderNumber
		row.Status = statusPtr(enums.OrderStatusPaymentFailed)
		row.Total = totalPtr(payload.Amount.InexactFloat64())
		provider := string(payload.Provider)
		row.Provider = &provider

	default:
		return nil, fmt.Errorf("unsupported event type %q", eventType)
	}

	if row.OrderID == "00000000-0000-0000-0000-000000000000" {
		return nil, fmt.Errorf("payload missing order id")
	}
	return row, nil
}

func statusPtr(status enums.OrderStatus) *string {
	value := string(status)
	return &value
}

func totalPtr(value float64) *float64 {
	return &value
}

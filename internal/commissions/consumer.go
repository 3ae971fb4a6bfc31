package commissions

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	pkgerrors "github.com/tecbunny/tecbunny-backend/pkg/errors"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/idempotency"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
)

const commissionConsumer = "commission-awards"

type awarder interface {
	Award(ctx context.Context, input AwardInput) (*models.Commission, error)
}

// Consumer watches domain events and awards referral commission for
// successful payments on agent-attributed orders.
type Consumer struct {
	service      awarder
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the commission award consumer.
func NewConsumer(service Service, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if service == nil {
		return nil, fmt.Errorf("commissions service required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("commission subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		service:      service,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventPaymentSucceeded) {
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, commissionConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.PaymentSucceededEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payment payload", err)
		_ = c.idempotency.Delete(ctx, commissionConsumer, eventID)
		return processResult{nack: true}
	}

	if payload.AgentID == nil {
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"order_id": payload.OrderID.String(),
		"agent_id": payload.AgentID.String(),
	})

	commission, err := c.service.Award(ctx, AwardInput{
		OrderID:    payload.OrderID,
		AgentID:    *payload.AgentID,
		OrderTotal: payload.Amount,
	})
	if err != nil {
		if !retryable(err) {
			c.logg.Error(logCtx, "commission award rejected", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "commission award failed", err)
		_ = c.idempotency.Delete(ctx, commissionConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"commission_id": commission.ID.String(),
		"points":        commission.Points.String(),
	}), "commission awarded")
	return processResult{ack: true}
}

// retryable separates transient dependency failures from payloads that
// can never succeed. Redelivering the latter would loop forever.
func retryable(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return true
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound:
		return false
	default:
		return true
	}
}

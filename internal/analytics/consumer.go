package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/idempotency"
)

const (
	analyticsConsumer = "analytics-sink"

	insertAttempts  uint64 = 3
	insertRetryBase        = 500 * time.Millisecond
)

type tableInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// Consumer appends order and payment facts to BigQuery.
type Consumer struct {
	inserter     tableInserter
	table        string
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
	retryBase    time.Duration
}

// NewConsumer builds the analytics sink consumer.
func NewConsumer(inserter tableInserter, table string, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if inserter == nil {
		return nil, fmt.Errorf("bigquery inserter required")
	}
	if strings.TrimSpace(table) == "" {
		return nil, fmt.Errorf("bigquery table name required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("analytics subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		inserter:     inserter,
		table:        strings.TrimSpace(table),
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
		retryBase:    insertRetryBase,
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

func handledEvent(eventType string) (enums.OutboxEventType, bool) {
	switch typed := enums.OutboxEventType(eventType); typed {
	case enums.EventOrderCreated,
		enums.EventOrderStatusChanged,
		enums.EventOrderCancelled,
		enums.EventPaymentSucceeded,
		enums.EventPaymentFailed:
		return typed, true
	default:
		return "", false
	}
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	})

	eventType, ok := handledEvent(msg.Attributes["event_type"])
	if !ok {
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, analyticsConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	row, err := buildRow(eventType, envelope)
	if err != nil {
		// A payload that cannot be flattened will never succeed.
		c.logg.Error(logCtx, "skipping malformed analytics payload", err)
		return processResult{ack: true}
	}

	if err := c.insertWithRetry(ctx, row); err != nil {
		c.logg.Error(logCtx, "analytics insert failed", err)
		_ = c.idempotency.Delete(ctx, analyticsConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(c.logg.WithFields(logCtx, map[string]any{
		"order_id": row.OrderID,
	}), "order fact ingested")
	return processResult{ack: true}
}

// insertWithRetry bounds streaming-insert retries so a flaky backend
// does not hold the message forever; redelivery picks up from here.
func (c *Consumer) insertWithRetry(ctx context.Context, row *OrderEventRow) error {
	backoff := retry.WithMaxRetries(insertAttempts, retry.NewExponential(c.retryBase))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.inserter.InsertRows(ctx, c.table, []any{row}); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

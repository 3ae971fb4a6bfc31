package media

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/idempotency"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
)

const cleanupConsumer = "media-cleanup"

type objectRemover interface {
	DeleteObject(ctx context.Context, bucket, object string) error
}

// CleanupConsumer removes bucket objects for deleted media rows. The
// GCS client treats a missing object as success so redelivery is safe.
type CleanupConsumer struct {
	remover      objectRemover
	bucket       string
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewCleanupConsumer builds the media cleanup consumer.
func NewCleanupConsumer(remover objectRemover, bucket string, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*CleanupConsumer, error) {
	if remover == nil {
		return nil, fmt.Errorf("object remover required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("media bucket required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("media subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &CleanupConsumer{
		remover:      remover,
		bucket:       bucket,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *CleanupConsumer) Run(ctx context.Context) error {
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

func (c *CleanupConsumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	if eventType != string(enums.EventMediaDeleted) {
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

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, cleanupConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload payloads.MediaDeletedEvent
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse media payload", err)
		return processResult{ack: true}
	}
	if payload.ObjectKey == "" {
		c.logg.Error(logCtx, "media payload missing object key", fmt.Errorf("empty object_key"))
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"media_id":   payload.MediaID.String(),
		"object_key": payload.ObjectKey,
	})

	if err := c.remover.DeleteObject(ctx, c.bucket, payload.ObjectKey); err != nil {
		c.logg.Error(logCtx, "bucket object delete failed", err)
		_ = c.idempotency.Delete(ctx, cleanupConsumer, eventID)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "media object removed")
	return processResult{ack: true}
}

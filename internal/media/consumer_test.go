package media

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/idempotency"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
)

type stubObjectRemover struct {
	deleted []string
	err     error
}

func (s *stubObjectRemover) DeleteObject(ctx context.Context, bucket, object string) error {
	if s.err != nil {
		return s.err
	}
	s.deleted = append(s.deleted, bucket+"/"+object)
	return nil
}

type memoryIdemStore struct {
	keys map[string]struct{}
}

func newMemoryIdemStore() *memoryIdemStore {
	return &memoryIdemStore{keys: map[string]struct{}{}}
}

func (m *memoryIdemStore) Get(context.Context, string) (string, error) { return "", nil }

func (m *memoryIdemStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.keys[key]; ok {
		return false, nil
	}
	m.keys[key] = struct{}{}
	return true, nil
}

func (m *memoryIdemStore) IdempotencyKey(scope, id string) string {
	return "tb:idempotency:" + scope + ":" + id
}

func (m *memoryIdemStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.keys, key)
	}
	return nil
}

func newCleanupConsumerForTest(t *testing.T, remover *stubObjectRemover) *CleanupConsumer {
	t.Helper()

	manager, err := idempotency.NewManager(newMemoryIdemStore(), time.Hour)
	require.NoError(t, err)
	return &CleanupConsumer{
		remover:     remover,
		bucket:      "tecbunny-media",
		idempotency: manager,
		logg:        logger.New(logger.Options{ServiceName: "test"}),
	}
}

func mediaDeletedMessage(t *testing.T, objectKey string) *pubsub.Message {
	t.Helper()

	payload := payloads.MediaDeletedEvent{
		MediaID:   uuid.New(),
		ProductID: uuid.New(),
		ObjectKey: objectKey,
	}
	data, err := json.Marshal(payload)
	require.NoError(t, err)

	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	return &pubsub.Message{
		Data:       body,
		Attributes: map[string]string{"event_type": string(enums.EventMediaDeleted)},
	}
}

func TestCleanupRemovesBucketObject(t *testing.T) {
	remover := &stubObjectRemover{}
	consumer := newCleanupConsumerForTest(t, remover)

	key := "products/" + uuid.NewString() + "/front.png"
	result := consumer.process(context.Background(), mediaDeletedMessage(t, key))
	require.True(t, result.ack)
	require.Equal(t, []string{"tecbunny-media/" + key}, remover.deleted)
}

func TestCleanupIgnoresOtherEvents(t *testing.T) {
	remover := &stubObjectRemover{}
	consumer := newCleanupConsumerForTest(t, remover)

	msg := &pubsub.Message{
		Data:       []byte(`{}`),
		Attributes: map[string]string{"event_type": string(enums.EventOrderCreated)},
	}
	result := consumer.process(context.Background(), msg)
	require.True(t, result.ack)
	require.Empty(t, remover.deleted)
}

func TestCleanupDuplicateDeliveryDeletesOnce(t *testing.T) {
	remover := &stubObjectRemover{}
	consumer := newCleanupConsumerForTest(t, remover)

	msg := mediaDeletedMessage(t, "products/x/one.png")
	require.True(t, consumer.process(context.Background(), msg).ack)
	require.True(t, consumer.process(context.Background(), msg).ack)
	require.Len(t, remover.deleted, 1)
}

func TestCleanupNacksOnStorageFailure(t *testing.T) {
	remover := &stubObjectRemover{err: errors.New("storage unavailable")}
	consumer := newCleanupConsumerForTest(t, remover)

	msg := mediaDeletedMessage(t, "products/x/two.png")
	result := consumer.process(context.Background(), msg)
	require.True(t, result.nack)

	// Redelivery after recovery must reach storage again.
	remover.err = nil
	retry := consumer.process(context.Background(), msg)
	require.True(t, retry.ack)
	require.Len(t, remover.deleted, 1)
}

func TestCleanupAcksMalformedPayload(t *testing.T) {
	remover := &stubObjectRemover{}
	consumer := newCleanupConsumerForTest(t, remover)

	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"object_key":""}`),
	}
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	msg := &pubsub.Message{
		Data:       body,
		Attributes: map[string]string{"event_type": string(enums.EventMediaDeleted)},
	}
	result := consumer.process(context.Background(), msg)
	require.True(t, result.ack)
	require.Empty(t, remover.deleted)
}

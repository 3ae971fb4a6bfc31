package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/tecbunny/tecbunny-backend/pkg/enums"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/idempotency"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/payloads"
)

type stubInserter struct {
	rows      []any
	failCount int
	calls     int
}

func (s *stubInserter) InsertRows(ctx context.Context, table string, rows []any) error {
	s.calls++
	if s.calls <= s.failCount {
		return errors.New("backend unavailable")
	}
	s.rows = append(s.rows, rows...)
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

func newSinkForTest(t *testing.T, inserter *stubInserter) *Consumer {
	t.Helper()

	manager, err := idempotency.NewManager(newMemoryIdemStore(), time.Hour)
	require.NoError(t, err)
	return &Consumer{
		inserter:    inserter,
		table:       "order_events",
		idempotency: manager,
		logg:        logger.New(logger.Options{ServiceName: "test"}),
		retryBase:   time.Millisecond,
	}
}

func domainMessage(t *testing.T, eventType enums.OutboxEventType, payload any) *pubsub.Message {
	t.Helper()

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
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func TestSinkFlattensPaymentSuccess(t *testing.T) {
	inserter := &stubInserter{}
	sink := newSinkForTest(t, inserter)

	agentID := uuid.New()
	orderID := uuid.New()
	msg := domainMessage(t, enums.EventPaymentSucceeded, payloads.PaymentSucceededEvent{
		OrderID:     orderID,
		OrderNumber: "TB-ABCD2345",
		Provider:    enums.PaymentProviderRazorpay,
		Amount:      decimal.RequireFromString("1499.00"),
		AgentID:     &agentID,
		CompletedAt: time.Now().UTC(),
	})

	result := sink.process(context.Background(), msg)
	require.True(t, result.ack)
	require.Len(t, inserter.rows, 1)

	row, ok := inserter.rows[0].(*OrderEventRow)
	require.True(t, ok)
	require.Equal(t, orderID.String(), row.OrderID)
	require.Equal(t, string(enums.OrderStatusPaymentConfirmed), *row.Status)
	require.InDelta(t, 1499.00, *row.Total, 0.001)
	require.True(t, row.AgentAttributed)
	require.Equal(t, string(enums.PaymentProviderRazorpay), *row.Provider)
}

func TestSinkFlattensStatusChange(t *testing.T) {
	inserter := &stubInserter{}
	sink := newSinkForTest(t, inserter)

	msg := domainMessage(t, enums.EventOrderStatusChanged, payloads.OrderStatusChangedEvent{
		OrderID:     uuid.New(),
		OrderNumber: "TB-EFGH6789",
		From:        enums.OrderStatusPaymentConfirmed,
		To:          enums.OrderStatusShipped,
		ChangedAt:   time.Now().UTC(),
	})

	result := sink.process(context.Background(), msg)
	require.True(t, result.ack)
	require.Len(t, inserter.rows, 1)

	row := inserter.rows[0].(*OrderEventRow)
	require.Equal(t, string(enums.OrderStatusShipped), *row.Status)
	require.Nil(t, row.Total)
	require.Nil(t, row.Provider)
}

func TestSinkIgnoresUnhandledEvents(t *testing.T) {
	inserter := &stubInserter{}
	sink := newSinkForTest(t, inserter)

	msg := domainMessage(t, enums.EventContactReceived, payloads.ContactReceivedEvent{
		MessageID: uuid.New(),
	})
	result := sink.process(context.Background(), msg)
	require.True(t, result.ack)
	require.Empty(t, inserter.rows)
}

func TestSinkAcksMalformedPayload(t *testing.T) {
	inserter := &stubInserter{}
	sink := newSinkForTest(t, inserter)

	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(`{"order_id":"not-a-uuid"`),
	}
	body, err := json.Marshal(envelope)
	require.NoError(t, err)

	msg := &pubsub.Message{
		Data:       body,
		Attributes: map[string]string{"event_type": string(enums.EventOrderCreated)},
	}
	result := sink.process(context.Background(), msg)
	require.True(t, result.ack)
	require.Empty(t, inserter.rows)
}

func TestSinkRetriesTransientInsertFailure(t *testing.T) {
	inserter := &stubInserter{failCount: 1}
	sink := newSinkForTest(t, inserter)

	msg := domainMessage(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{
		OrderID:     uuid.New(),
		OrderNumber: "TB-JKLM1234",
		Total:       decimal.RequireFromString("999.00"),
		ItemCount:   1,
		PlacedAt:    time.Now().UTC(),
	})

	result := sink.process(context.Background(), msg)
	require.True(t, result.ack)
	require.Len(t, inserter.rows, 1)
	require.Equal(t, 2, inserter.calls)
}

func TestSinkNacksWhenRetriesExhausted(t *testing.T) {
	inserter := &stubInserter{failCount: 10}
	sink := newSinkForTest(t, inserter)

	msg := domainMessage(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{
		OrderID:     uuid.New(),
		OrderNumber: "TB-NPQR5678",
		Total:       decimal.RequireFromString("999.00"),
		ItemCount:   1,
		PlacedAt:    time.Now().UTC(),
	})

	result := sink.process(context.Background(), msg)
	require.True(t, result.nack)
	require.Empty(t, inserter.rows)

	// Idempotency reset means a later redelivery still lands the row.
	inserter.failCount = 0
	retryResult := sink.process(context.Background(), msg)
	require.True(t, retryResult.ack)
	require.Len(t, inserter.rows, 1)
}

func TestSinkDuplicateDeliveryInsertsOnce(t *testing.T) {
	inserter := &stubInserter{}
	sink := newSinkForTest(t, inserter)

	msg := domainMessage(t, enums.EventOrderCancelled, payloads.OrderCancelledEvent{
		OrderID:     uuid.New(),
		OrderNumber: "TB-STUV9012",
		CancelledAt: time.Now().UTC(),
	})
	require.True(t, sink.process(context.Background(), msg).ack)
	require.True(t, sink.process(context.Background(), msg).ack)
	require.Len(t, inserter.rows, 1)
}

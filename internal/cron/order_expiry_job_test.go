package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tecbunny/tecbunny-backend/internal/orders"
	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
)

type fakePendingReader struct {
	orders     []models.Order
	lastCutoff time.Time
	err        error
}

func (f *fakePendingReader) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	f.lastCutoff = cutoff
	if f.err != nil {
		return nil, f.err
	}
	return f.orders, nil
}

type fakeCanceller struct {
	inputs  []orders.CancelInput
	failFor map[uuid.UUID]error
}

func (f *fakeCanceller) Cancel(ctx context.Context, input orders.CancelInput) (*models.Order, error) {
	f.inputs = append(f.inputs, input)
	if err, ok := f.failFor[input.OrderID]; ok {
		return nil, err
	}
	return &models.Order{ID: input.OrderID}, nil
}

func newOrderExpiryJob(t *testing.T, reader *fakePendingReader, canceller *fakeCanceller) *orderExpiryJob {
	t.Helper()
	jobIface, err := NewOrderExpiryJob(OrderExpiryJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		Reader: reader,
		Orders: canceller,
		TTL:    30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewOrderExpiryJob: %v", err)
	}
	job, ok := jobIface.(*orderExpiryJob)
	if !ok {
		t.Fatalf("expected orderExpiryJob, got %T", jobIface)
	}
	return job
}

func TestOrderExpiryJobCancelsStaleOrders(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	reader := &fakePendingReader{orders: []models.Order{
		{ID: uuid.New(), OrderNumber: "TB-AAAA1111"},
		{ID: uuid.New(), OrderNumber: "TB-BBBB2222"},
	}}
	canceller := &fakeCanceller{}
	job := newOrderExpiryJob(t, reader, canceller)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	expectedCutoff := now.Add(-30 * time.Minute)
	if !reader.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, reader.lastCutoff)
	}
	if len(canceller.inputs) != 2 {
		t.Fatalf("expected 2 cancellations, got %d", len(canceller.inputs))
	}
	if canceller.inputs[0].ActorRole != "system" {
		t.Fatalf("expected system actor, got %q", canceller.inputs[0].ActorRole)
	}
	if canceller.inputs[0].ActorUserID != nil {
		t.Fatal("expected no actor user for system cancellation")
	}
}

func TestOrderExpiryJobContinuesPastFailures(t *testing.T) {
	stuck := uuid.New()
	healthy := uuid.New()
	reader := &fakePendingReader{orders: []models.Order{
		{ID: stuck, OrderNumber: "TB-CCCC3333"},
		{ID: healthy, OrderNumber: "TB-DDDD4444"},
	}}
	canceller := &fakeCanceller{failFor: map[uuid.UUID]error{stuck: errors.New("row locked")}}
	job := newOrderExpiryJob(t, reader, canceller)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(canceller.inputs) != 2 {
		t.Fatalf("expected both orders attempted, got %d", len(canceller.inputs))
	}
}

func TestOrderExpiryJobPropagatesReaderError(t *testing.T) {
	reader := &fakePendingReader{err: errors.New("db down")}
	job := newOrderExpiryJob(t, reader, &fakeCanceller{})

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

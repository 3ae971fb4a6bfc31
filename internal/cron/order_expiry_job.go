package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/tecbunny/tecbunny-backend/internal/orders"
	"github.com/tecbunny/tecbunny-backend/pkg/db/models"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
)

const defaultPendingOrderTTL = 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type pendingOrderReader interface {
	ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error)
}

type orderCanceller interface {
	Cancel(ctx context.Context, input orders.CancelInput) (*models.Order, error)
}

// OrderExpiryJobParams configure the stale order sweeper.
type OrderExpiryJobParams struct {
	Logger *logger.Logger
	Reader pendingOrderReader
	Orders orderCanceller
	TTL    time.Duration
}

// NewOrderExpiryJob builds the job that cancels orders whose payment
// never arrived. Cancellation restores the reserved stock.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("pending order reader required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders service required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingOrderTTL
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		reader: params.Reader,
		orders: params.Orders,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	reader pendingOrderReader
	orders orderCanceller
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.ttl)
	stale, err := j.reader.ListPendingBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("query stale pending orders: %w", err)
	}

	var errs []error
	cancelled := 0
	for _, order := range stale {
		_, err := j.orders.Cancel(ctx, orders.CancelInput{
			OrderID:   order.ID,
			Reason:    "payment window expired",
			ActorRole: "system",
		})
		if err != nil {
			// One stuck order must not block the rest of the sweep.
			logCtx := j.logg.WithFields(ctx, map[string]any{
				"order_id":     order.ID.String(),
				"order_number": order.OrderNumber,
			})
			j.logg.Error(logCtx, "order expiry cancellation failed", err)
			errs = append(errs, fmt.Errorf("cancel order %s: %w", order.ID, err))
			continue
		}
		cancelled++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"stale":     len(stale),
		"cancelled": cancelled,
	})
	j.logg.Info(logCtx, "order expiry sweep complete")
	return multierr.Combine(errs...)
}

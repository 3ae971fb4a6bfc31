package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/tecbunny/tecbunny-backend/internal/payments"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
)

const (
	reconcileAttempts  uint64 = 3
	reconcileRetryBase        = 2 * time.Second
)

type paymentReconciler interface {
	Reconcile(ctx context.Context) (*payments.ReconcileResult, error)
}

// PaymentReconcileJobParams configure the gateway reconciliation job.
type PaymentReconcileJobParams struct {
	Logger   *logger.Logger
	Payments paymentReconciler
}

// NewPaymentReconcileJob builds the job that resolves transactions the
// gateway never called back about.
func NewPaymentReconcileJob(params PaymentReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payments service required")
	}
	return &paymentReconcileJob{
		logg:      params.Logger,
		payments:  params.Payments,
		retryBase: reconcileRetryBase,
	}, nil
}

type paymentReconcileJob struct {
	logg      *logger.Logger
	payments  paymentReconciler
	retryBase time.Duration
}

func (j *paymentReconcileJob) Name() string { return "payment-reconcile" }

func (j *paymentReconcileJob) Run(ctx context.Context) error {
	var result *payments.ReconcileResult
	backoff := retry.WithMaxRetries(reconcileAttempts, retry.NewExponential(j.retryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		sweep, err := j.payments.Reconcile(ctx)
		if err != nil {
			return retry.RetryableError(err)
		}
		result = sweep
		return nil
	})
	if err != nil {
		return fmt.Errorf("payment reconciliation: %w", err)
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"checked":  result.Checked,
		"resolved": result.Resolved,
	})
	j.logg.Info(logCtx, "payment reconciliation complete")
	return nil
}

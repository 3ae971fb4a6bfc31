package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tecbunny/tecbunny-backend/internal/cron"
	"github.com/tecbunny/tecbunny-backend/internal/notifications"
	"github.com/tecbunny/tecbunny-backend/internal/orders"
	"github.com/tecbunny/tecbunny-backend/internal/payments"
	"github.com/tecbunny/tecbunny-backend/internal/settings"
	"github.com/tecbunny/tecbunny-backend/pkg/config"
	"github.com/tecbunny/tecbunny-backend/pkg/db"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/metrics"
	"github.com/tecbunny/tecbunny-backend/pkg/migrate"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/redis"
)

const lockKeyFormat = "tecbunny:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gormDB := dbClient.DB()
	outboxRepo := outbox.NewRepository(gormDB)
	outboxSvc := outbox.NewService(outboxRepo, logg)

	settingsService, err := settings.NewService(settings.NewRepository(gormDB))
	exitOnError(logg, "settings service", err)

	ordersRepo := orders.NewRepository(gormDB)
	ordersService, err := orders.NewService(ordersRepo, dbClient, outboxSvc)
	exitOnError(logg, "orders service", err)

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:              payments.NewRepository(gormDB),
		TransactionRunner: dbClient,
		Outbox:            outboxSvc,
		Settings:          settingsService,
		Orders:            ordersService,
		Logger:            logg,
		Config: payments.Config{
			PublicBaseURL: cfg.App.PublicBaseURL,
			StorefrontURL: cfg.App.StorefrontURL,
		},
	})
	exitOnError(logg, "payments service", err)

	reconcileJob, err := cron.NewPaymentReconcileJob(cron.PaymentReconcileJobParams{
		Logger:   logg,
		Payments: paymentsService,
	})
	exitOnError(logg, "payment reconcile job", err)

	expiryJob, err := cron.NewOrderExpiryJob(cron.OrderExpiryJobParams{
		Logger: logg,
		Reader: ordersRepo,
		Orders: ordersService,
		TTL:    cfg.Cron.PendingOrderTTL,
	})
	exitOnError(logg, "order expiry job", err)

	retentionJob, err := cron.NewOutboxRetentionJob(cron.OutboxRetentionJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: outboxRepo,
		Retention:  retentionDays(cfg.Cron.OutboxRetention),
	})
	exitOnError(logg, "outbox retention job", err)

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:     logg,
		DB:         dbClient,
		Repository: notifications.NewRepository(gormDB),
		Retention:  retentionDays(cfg.Cron.NotificationRetention),
	})
	exitOnError(logg, "notification cleanup job", err)

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	exitOnError(logg, "cron lock", err)

	registry := cron.NewRegistry(reconcileJob, expiryJob, retentionJob, cleanupJob)
	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	exitOnError(logg, "cron service", err)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func retentionDays(d time.Duration) int {
	return int(d / (24 * time.Hour))
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}

func exitOnError(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}

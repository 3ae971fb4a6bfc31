package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/tecbunny/tecbunny-backend/internal/commissions"
	"github.com/tecbunny/tecbunny-backend/internal/media"
	"github.com/tecbunny/tecbunny-backend/internal/notifications"
	"github.com/tecbunny/tecbunny-backend/internal/settings"
	"github.com/tecbunny/tecbunny-backend/pkg/config"
	"github.com/tecbunny/tecbunny-backend/pkg/db"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/mailer"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox/idempotency"
	"github.com/tecbunny/tecbunny-backend/pkg/pubsub"
	"github.com/tecbunny/tecbunny-backend/pkg/redis"
	"github.com/tecbunny/tecbunny-backend/pkg/storage/gcs"
	"github.com/tecbunny/tecbunny-backend/pkg/whatsapp"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "failed to close database client", err)
		}
	}()

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "failed to close redis client", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(context.Background(), cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "failed to close pubsub client", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(ctx, "failed to close gcs client", err)
		}
	}()

	mailClient, err := mailer.New(mailer.Config{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		FromAddress: cfg.SMTP.FromAddress,
		FromName:    cfg.SMTP.FromName,
	})
	requireResource(ctx, logg, "mailer", err)

	whatsappClient, err := whatsapp.NewClient(whatsapp.Config{
		AccessToken:   cfg.WhatsApp.AccessToken,
		PhoneNumberID: cfg.WhatsApp.PhoneNumberID,
		BaseURL:       cfg.WhatsApp.BaseURL,
	})
	requireResource(ctx, logg, "whatsapp", err)

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	gormDB := dbClient.DB()

	settingsService, err := settings.NewService(settings.NewRepository(gormDB))
	requireResource(ctx, logg, "settings service", err)

	notificationService, err := notifications.NewService(notifications.ServiceParams{
		Repository: notifications.NewRepository(gormDB),
		Email:      mailClient,
		WhatsApp:   whatsappClient,
		Recipients: settingsService,
		Logger:     logg,
	})
	requireResource(ctx, logg, "notification service", err)

	notificationConsumer, err := notifications.NewConsumer(
		notificationService,
		pubsubClient.NotificationSubscription(),
		manager,
		logg,
	)
	requireResource(ctx, logg, "notification consumer", err)

	commissionService, err := commissions.NewService(
		commissions.NewRepository(gormDB),
		dbClient,
		settingsService,
	)
	requireResource(ctx, logg, "commission service", err)

	commissionConsumer, err := commissions.NewConsumer(
		commissionService,
		pubsubClient.CommissionSubscription(),
		manager,
		logg,
	)
	requireResource(ctx, logg, "commission consumer", err)

	mediaCleanupConsumer, err := media.NewCleanupConsumer(
		gcsClient,
		cfg.GCS.BucketName,
		pubsubClient.MediaCleanupSubscription(),
		manager,
		logg,
	)
	requireResource(ctx, logg, "media cleanup consumer", err)

	service, err := NewService(ServiceParams{
		Config:               cfg,
		Logger:               logg,
		DB:                   dbClient,
		Redis:                redisClient,
		PubSub:               pubsubClient,
		GCS:                  gcsClient,
		NotificationConsumer: notificationConsumer,
		CommissionConsumer:   commissionConsumer,
		MediaCleanupConsumer: mediaCleanupConsumer,
	})
	requireResource(ctx, logg, "worker service", err)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "worker ready")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker failed", err)
		os.Exit(1)
	}
	logg.Info(runCtx, "worker shutting down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/tecbunny/tecbunny-backend/api/routes"
	"github.com/tecbunny/tecbunny-backend/internal/agents"
	"github.com/tecbunny/tecbunny-backend/internal/auth"
	"github.com/tecbunny/tecbunny-backend/internal/catalog"
	"github.com/tecbunny/tecbunny-backend/internal/contact"
	"github.com/tecbunny/tecbunny-backend/internal/media"
	"github.com/tecbunny/tecbunny-backend/internal/orders"
	"github.com/tecbunny/tecbunny-backend/internal/payments"
	"github.com/tecbunny/tecbunny-backend/internal/settings"
	"github.com/tecbunny/tecbunny-backend/internal/users"
	"github.com/tecbunny/tecbunny-backend/pkg/auth/session"
	"github.com/tecbunny/tecbunny-backend/pkg/bigquery"
	"github.com/tecbunny/tecbunny-backend/pkg/config"
	"github.com/tecbunny/tecbunny-backend/pkg/db"
	"github.com/tecbunny/tecbunny-backend/pkg/logger"
	"github.com/tecbunny/tecbunny-backend/pkg/mailer"
	"github.com/tecbunny/tecbunny-backend/pkg/migrate"
	"github.com/tecbunny/tecbunny-backend/pkg/outbox"
	"github.com/tecbunny/tecbunny-backend/pkg/redis"
	"github.com/tecbunny/tecbunny-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap gcs", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing gcs", err)
		}
	}()

	bqClient, err := bigquery.NewClient(context.Background(), cfg.GCP, cfg.BigQuery, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap bigquery", err)
		os.Exit(1)
	}
	defer func() {
		if err := bqClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing bigquery", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	mailClient, err := mailer.New(mailer.Config{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		FromAddress: cfg.SMTP.FromAddress,
		FromName:    cfg.SMTP.FromName,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create mailer", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	usersRepo := users.NewRepository(gormDB)
	usersService, err := users.NewService(usersRepo)
	exitOnError(logg, "users service", err)

	settingsService, err := settings.NewService(settings.NewRepository(gormDB))
	exitOnError(logg, "settings service", err)

	authService, err := auth.NewService(auth.ServiceParams{
		Users:       usersRepo,
		Sessions:    sessionManager,
		OTPStore:    redisClient,
		Email:       mailClient,
		JWTConfig:   cfg.JWT,
		PasswordCfg: cfg.Password,
	})
	exitOnError(logg, "auth service", err)

	catalogService, err := catalog.NewService(catalog.NewRepository(gormDB))
	exitOnError(logg, "catalog service", err)

	ordersService, err := orders.NewService(orders.NewRepository(gormDB), dbClient, outboxSvc)
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

	agentsService, err := agents.NewService(agents.NewRepository(gormDB), dbClient, outboxSvc)
	exitOnError(logg, "agents service", err)

	contactService, err := contact.NewService(contact.NewRepository(gormDB), dbClient, outboxSvc)
	exitOnError(logg, "contact service", err)

	mediaService, err := media.NewService(media.ServiceParams{
		Repository: media.NewRepository(gormDB),
		Tx:         dbClient,
		Outbox:     outboxSvc,
		Signer:     gcsClient,
		Bucket:     cfg.GCS.BucketName,
		UploadTTL:  cfg.GCS.UploadURLExpiry,
	})
	exitOnError(logg, "media service", err)

	router := routes.NewRouter(routes.RouterParams{
		Config:   cfg,
		Logger:   logg,
		DB:       dbClient,
		Redis:    redisClient,
		GCS:      gcsClient,
		BigQuery: bqClient,
		Sessions: sessionManager,
		Auth:     authService,
		Catalog:  catalogService,
		Orders:   ordersService,
		Payments: paymentsService,
		Agents:   agentsService,
		Contact:  contactService,
		Media:    mediaService,
		Settings: settingsService,
		Users:    usersService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shut down gracefully")
	}
}

func exitOnError(logg *logger.Logger, what string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+what, err)
	os.Exit(1)
}

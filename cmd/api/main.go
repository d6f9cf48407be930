package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aurelion-labs/identra-backend/api/routes"
	"github.com/aurelion-labs/identra-backend/internal/billing"
	"github.com/aurelion-labs/identra-backend/internal/catalog"
	"github.com/aurelion-labs/identra-backend/internal/notifications"
	"github.com/aurelion-labs/identra-backend/internal/orgsubs"
	"github.com/aurelion-labs/identra-backend/internal/plans"
	"github.com/aurelion-labs/identra-backend/internal/projector"
	"github.com/aurelion-labs/identra-backend/internal/repo"
	stripewebhook "github.com/aurelion-labs/identra-backend/internal/webhooks/stripe"
	"github.com/aurelion-labs/identra-backend/pkg/config"
	"github.com/aurelion-labs/identra-backend/pkg/db"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
	"github.com/aurelion-labs/identra-backend/pkg/metrics"
	"github.com/aurelion-labs/identra-backend/pkg/migrate"
	"github.com/aurelion-labs/identra-backend/pkg/redis"
	pkgstripe "github.com/aurelion-labs/identra-backend/pkg/stripe"
)

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

	stripeClient, err := pkgstripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	gdb := dbClient.DB()
	catalogRepo := catalog.NewRepository(gdb)
	orgSubsRepo := orgsubs.NewRepository(gdb)
	auditRepo := stripewebhook.NewAuditRepository(gdb)
	billingRepo := billing.NewRepository(gdb)
	plansRepo := plans.NewRepository(gdb)
	projectorRepo := projector.NewRepository(gdb)
	notificationsRepo := notifications.NewRepository(gdb)

	webhookMetrics := metrics.NewWebhookMetrics(prometheus.DefaultRegisterer)

	billingService, err := billing.NewService(billing.ServiceParams{
		Repo:    billingRepo,
		Catalog: catalogRepo,
		OrgSubs: orgSubsRepo,
		Stripe:  billing.NewStripeClient(stripeClient),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create billing service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo: notificationsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	plansService, err := plans.NewService(plans.ServiceParams{
		Repo:   plansRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create plans service", err)
		os.Exit(1)
	}

	projectorService, err := projector.NewService(projector.ServiceParams{
		Repo:    projectorRepo,
		OrgSubs: orgSubsRepo,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create projector service", err)
		os.Exit(1)
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Catalog:           catalogRepo,
		OrgSubs:           orgSubsRepo,
		Audit:             auditRepo,
		TransactionRunner: repo.NewBase(gdb),
		Logger:            logg,
		Metrics:           webhookMetrics,
		GracePeriodDays:   cfg.Billing.DefaultGracePeriodDays,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	webhookGuard, err := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Billing.WebhookIdempotencyTTL, "stripe-webhook")
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"stripe_env": stripeClient.Environment(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			billingService,
			notificationsService,
			plansService,
			projectorService,
			stripeClient,
			webhookService,
			webhookGuard,
		),
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-shutdownCtx.Done()
		graceCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}

package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aurelion-labs/identra-backend/api/controllers"
	billingcontrollers "github.com/aurelion-labs/identra-backend/api/controllers/billing"
	webhookcontrollers "github.com/aurelion-labs/identra-backend/api/controllers/webhooks"
	"github.com/aurelion-labs/identra-backend/api/middleware"
	billingsvc "github.com/aurelion-labs/identra-backend/internal/billing"
	"github.com/aurelion-labs/identra-backend/internal/notifications"
	"github.com/aurelion-labs/identra-backend/internal/plans"
	"github.com/aurelion-labs/identra-backend/internal/projector"
	stripewebhook "github.com/aurelion-labs/identra-backend/internal/webhooks/stripe"
	"github.com/aurelion-labs/identra-backend/pkg/config"
	"github.com/aurelion-labs/identra-backend/pkg/db"
	"github.com/aurelion-labs/identra-backend/pkg/logger"
	"github.com/aurelion-labs/identra-backend/pkg/redis"
	"github.com/aurelion-labs/identra-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	billingService *billingsvc.Service,
	notificationsService *notifications.Service,
	plansService *plans.Service,
	projectorService *projector.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeWebhookGuard *stripewebhook.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeWebhookGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Post("/token", controllers.IssueToken(projectorService, cfg.JWT, logg))

		r.Route("/billing", func(r chi.Router) {
			r.Get("/catalog", billingcontrollers.Catalog(billingService, logg))
			r.Post("/checkout", billingcontrollers.CreateCheckout(billingService, logg))
			r.Post("/portal", billingcontrollers.CreatePortal(billingService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationID}/read", controllers.MarkNotificationRead(notificationsService, logg))
		})

		r.Route("/plans", func(r chi.Router) {
			r.Get("/grants", controllers.ListPlanGrants(plansService, logg))
			r.Post("/grants", controllers.GrantPlan(plansService, logg))
			r.Delete("/grants", controllers.RevokePlan(plansService, logg))
		})
	})

	return r
}

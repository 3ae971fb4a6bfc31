package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tecbunny/tecbunny-backend/api/controllers"
	"github.com/tecbunny/tecbunny-backend/api/middleware"
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
	"github.com/tecbunny/tecbunny-backend/pkg/redis"
	"github.com/tecbunny/tecbunny-backend/pkg/storage/gcs"
)

// RouterParams bundles everything the HTTP surface depends on.
type RouterParams struct {
	Config *config.Config
	Logger *logger.Logger

	DB       db.Pinger
	Redis    *redis.Client
	GCS      gcs.Pinger
	BigQuery bigquery.Pinger

	Sessions session.AccessSessionChecker

	Auth     auth.Service
	Catalog  catalog.Service
	Orders   orders.Service
	Payments payments.Service
	Agents   agents.Service
	Contact  contact.Service
	Media    media.Service
	Settings settings.Service
	Users    users.Service
}

// NewRouter builds the full API surface.
func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)
	otpPolicy := middleware.NewAuthRateLimitPolicy(
		"otp",
		cfg.AuthRateLimit.OTPWindow,
		cfg.AuthRateLimit.OTPIPLimit,
		cfg.AuthRateLimit.OTPEmailLimit,
	)
	paymentPolicy := middleware.NewRateLimitPolicy(
		"payment",
		cfg.PaymentRateLimit.Window,
		cfg.PaymentRateLimit.UserLimit,
		cfg.PaymentRateLimit.IPLimit,
	)
	contactPolicy := middleware.NewRateLimitPolicy(
		"contact",
		cfg.ContactRateLimit.Window,
		0,
		cfg.ContactRateLimit.IPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Redis, p.GCS, p.BigQuery))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, p.Redis, logg)).
				Post("/register", controllers.AuthRegister(p.Auth, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, p.Redis, logg)).
				Post("/login", controllers.AuthLogin(p.Auth, logg))
			r.Route("/otp", func(r chi.Router) {
				r.Use(middleware.AuthRateLimit(otpPolicy, p.Redis, logg))
				r.Post("/request", controllers.AuthOTPRequest(p.Auth, logg))
				r.Post("/verify", controllers.AuthOTPVerify(p.Auth, logg))
			})
			r.Post("/refresh", controllers.AuthRefresh(p.Auth, logg))
			r.With(middleware.Auth(cfg.JWT, p.Sessions, logg)).
				Post("/logout", controllers.AuthLogout(p.Auth, cfg.JWT, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(p.Catalog, logg))
			r.Get("/{slug}", controllers.ProductBySlug(p.Catalog, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/track/{orderNumber}", controllers.OrderTrack(p.Orders, logg))

			// Placement allows guest checkout; the replay guard needs
			// the optional identity for its scope key.
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth(cfg.JWT, p.Sessions, logg))
				r.Use(middleware.Idempotency(p.Redis, logg))
				r.Post("/", controllers.OrderCreate(p.Orders, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
				r.Get("/", controllers.OrderList(p.Orders, logg))
				r.Get("/{orderId}", controllers.OrderDetail(p.Orders, logg))
			})
		})

		r.Route("/payments", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(middleware.OptionalAuth(cfg.JWT, p.Sessions, logg))
				r.Use(middleware.RateLimit(paymentPolicy, p.Redis, logg))
				r.Use(middleware.Idempotency(p.Redis, logg))
				r.Post("/initiate", controllers.PaymentInitiate(p.Payments, logg))
			})
			r.With(middleware.Auth(cfg.JWT, p.Sessions, logg)).
				Get("/{paymentId}", controllers.PaymentDetail(p.Payments, p.Orders, logg))
		})

		r.Route("/webhooks/payments", func(r chi.Router) {
			r.Post("/phonepe", controllers.PhonePeWebhook(p.Payments, logg))
			r.Post("/razorpay", controllers.RazorpayWebhook(p.Payments, logg))
			r.Post("/paytm", controllers.PaytmWebhook(p.Payments, logg))
		})

		r.With(middleware.RateLimit(contactPolicy, p.Redis, logg)).
			Post("/contact", controllers.ContactCreate(p.Contact, logg))

		r.Route("/agents", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Post("/apply", controllers.AgentApply(p.Agents, logg))

			r.Route("/me", func(r chi.Router) {
				r.Use(middleware.RequireRole("agent", logg))
				r.Get("/", controllers.AgentProfile(p.Agents, logg))
				r.Get("/commissions", controllers.AgentCommissions(p.Agents, logg))
				r.Post("/redemptions", controllers.AgentRedemptionCreate(p.Agents, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, p.Sessions, logg))
			r.Use(middleware.RequireRole("admin", logg))

			r.Route("/orders", func(r chi.Router) {
				r.Get("/", controllers.AdminOrderList(p.Orders, logg))
				r.Get("/{orderId}", controllers.AdminOrderDetail(p.Orders, logg))
				r.Patch("/{orderId}/status", controllers.AdminOrderStatus(p.Orders, logg))
			})

			r.Route("/products", func(r chi.Router) {
				r.Post("/", controllers.AdminProductCreate(p.Catalog, logg))
				r.Patch("/{productId}", controllers.AdminProductUpdate(p.Catalog, logg))
				r.Post("/{productId}/stock", controllers.AdminProductStock(p.Catalog, logg))
				r.Post("/{productId}/media", controllers.AdminMediaAttach(p.Media, logg))
				r.Post("/{productId}/media/presign", controllers.AdminMediaPresign(p.Media, logg))
			})
			r.Delete("/media/{mediaId}", controllers.AdminMediaDelete(p.Media, logg))

			r.Route("/agents", func(r chi.Router) {
				r.Get("/", controllers.AdminAgentList(p.Agents, logg))
				r.Post("/{agentId}/decision", controllers.AdminAgentDecision(p.Agents, logg))
			})
			r.Route("/redemptions", func(r chi.Router) {
				r.Get("/", controllers.AdminRedemptionList(p.Agents, logg))
				r.Post("/{redemptionId}/decision", controllers.AdminRedemptionDecision(p.Agents, logg))
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/{key}", controllers.AdminSettingGet(p.Settings, logg))
				r.Put("/{key}", controllers.AdminSettingPut(p.Settings, logg))
			})

			r.Route("/contact-messages", func(r chi.Router) {
				r.Get("/", controllers.AdminContactList(p.Contact, logg))
				r.Patch("/{messageId}", controllers.AdminContactStatus(p.Contact, logg))
			})

			r.Route("/users", func(r chi.Router) {
				r.Get("/", controllers.AdminUserList(p.Users, logg))
				r.Patch("/{userId}/mfa", controllers.AdminUserMFA(p.Users, logg))
			})
		})
	})

	return r
}

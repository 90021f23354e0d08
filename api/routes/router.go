package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/raamul-storefront/api/controllers"
	"github.com/angelmondragon/raamul-storefront/api/middleware"
	"github.com/angelmondragon/raamul-storefront/internal/sandbox"
	"github.com/angelmondragon/raamul-storefront/pkg/config"
	"github.com/angelmondragon/raamul-storefront/pkg/logger"
	"github.com/angelmondragon/raamul-storefront/pkg/metrics"
	pkgredis "github.com/angelmondragon/raamul-storefront/pkg/redis"
)

// Params wires the sandbox API.
type Params struct {
	Config      *config.Config
	Logger      *logger.Logger
	Backend     *sandbox.Backend
	Idempotency pkgredis.IdempotencyStore
	Registry    *prometheus.Registry
}

func NewRouter(params Params) http.Handler {
	cfg, logg, b := params.Config, params.Logger, params.Backend
	if logg == nil {
		logg = logger.Nop()
	}
	registry := params.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	idempotent := middleware.Idempotency(params.Idempotency, logg)

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(metrics.NewRequestMetrics(registry, metrics.SubsystemSandbox)),
	)

	r.Get("/health/live", controllers.HealthLive(cfg))
	r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", controllers.HealthLive(cfg))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", controllers.AuthSignup(b, logg))
			r.Post("/login", controllers.AuthLogin(b, logg))
			r.Post("/forgot-password", controllers.AuthForgotPassword(b, logg))
			r.Get("/verify-reset-token/{token}", controllers.AuthVerifyResetToken(b, logg))
			r.Post("/reset-password", controllers.AuthResetPassword(b, logg))
			r.Get("/verify-email/{token}", controllers.AuthVerifyEmail(b, logg))
		})

		r.Get("/products", controllers.ProductList(b))
		r.Get("/products/sku/{sku}", controllers.ProductBySKU(b, logg))
		r.Get("/products/{id}", controllers.ProductDetail(b, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(b.TokenConfig(), b, logg))

			r.Get("/auth/verify", controllers.AuthVerify(b, logg))
			r.Post("/auth/change-password", controllers.AuthChangePassword(b, logg))
			r.Post("/auth/resend-verification", controllers.AuthResendVerification(b, logg))
			r.Get("/auth/verification-status", controllers.AuthVerificationStatus(b, logg))

			r.With(idempotent).Post("/orders", controllers.OrderCreate(b, logg))
			r.Get("/orders", controllers.OrderList(b))
			r.Get("/orders/order-id/{orderId}", controllers.OrderByOrderID(b, logg))
			r.Get("/orders/customer/{customerId}", controllers.OrdersForCustomer(b, logg))
			r.Get("/orders/{id}", controllers.OrderDetail(b, logg))

			r.With(idempotent).Post("/payments/initiate", controllers.PaymentInitiate(b, logg))
			r.Get("/payments/status/{checkoutRequestId}", controllers.PaymentStatus(b, logg))
			r.Get("/payments/order/{orderId}", controllers.PaymentsForOrder(b, logg))
			r.Get("/payments/user/{userId}", controllers.PaymentsForUser(b, logg))
			r.Get("/payments/{id}", controllers.PaymentDetail(b, logg))
			r.Patch("/payments/{id}/cancel", controllers.PaymentCancel(b, logg))

			r.Get("/tracking/order/{orderId}", controllers.TrackingForOrder(b, logg))
			r.Get("/tracking/order/{orderId}/latest", controllers.TrackingLatest(b, logg))

			r.Get("/users/profile", controllers.UserProfile(b, logg))
			r.Get("/users/{id}", controllers.UserDetail(b, logg))
			r.Put("/users/{id}", controllers.UserUpdate(b, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(logg))

				r.Post("/products", controllers.ProductCreate(b, logg))
				r.Put("/products/{id}", controllers.ProductUpdate(b, logg))
				r.Delete("/products/{id}", controllers.ProductDelete(b, logg))

				r.Put("/orders/{id}", controllers.OrderUpdate(b, logg))
				r.Delete("/orders/{id}", controllers.OrderDelete(b, logg))

				r.Get("/payments", controllers.PaymentList(b))
				r.Get("/payments/statistics/all", controllers.PaymentStatistics(b))

				r.Post("/tracking", controllers.TrackingCreate(b, logg))
				r.Get("/tracking", controllers.TrackingList(b))
				r.Delete("/tracking/{id}", controllers.TrackingDelete(b, logg))

				r.Get("/users", controllers.UserList(b))
				r.Get("/users/stats", controllers.UserStats(b))
				r.Post("/users", controllers.UserCreate(b, logg))
				r.Patch("/users/{id}/status", controllers.UserSetStatus(b, logg))
				r.Delete("/users/{id}", controllers.UserDelete(b, logg))
			})
		})
	})

	return r
}

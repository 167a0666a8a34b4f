package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/angelmondragon/cheetah-storefront/api/controllers"
	ordercontrollers "github.com/angelmondragon/cheetah-storefront/api/controllers/orders"
	reviewcontrollers "github.com/angelmondragon/cheetah-storefront/api/controllers/reviews"
	"github.com/angelmondragon/cheetah-storefront/api/middleware"
	"github.com/angelmondragon/cheetah-storefront/internal/auth"
	product "github.com/angelmondragon/cheetah-storefront/internal/products"
	"github.com/angelmondragon/cheetah-storefront/internal/reviews"
	"github.com/angelmondragon/cheetah-storefront/internal/sales"
	"github.com/angelmondragon/cheetah-storefront/pkg/auth/session"
	"github.com/angelmondragon/cheetah-storefront/pkg/config"
	"github.com/angelmondragon/cheetah-storefront/pkg/db"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
	"github.com/angelmondragon/cheetah-storefront/pkg/redis"
)

const tracerOperation = "cheetah-api"

// NewRouter builds the storefront REST API. redisClient and revocations may be
// nil; auth rate limiting and idempotent replay are then skipped and logout
// becomes client-side only.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	revocations session.RevocationChecker,
	httpMetrics *metrics.HTTPMetrics,
	gatherer prometheus.Gatherer,
	authService auth.Service,
	productService product.Service,
	orderService sales.Service,
	reviewService reviews.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	var (
		idempotency redis.IdempotencyStore
		deps        = map[string]controllers.Pinger{"database": dbP, "redis": nil}
	)
	if redisClient != nil {
		idempotency = redisClient
		deps["redis"] = redisClient
	}

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

	health := func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps))
	}
	r.Route("/health", health)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}

	requireAuth := middleware.Auth(cfg.JWT, revocations, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, revocations, logg)
	replay := middleware.Idempotency(idempotency, logg)

	r.Route("/api", func(r chi.Router) {
		r.Route("/health", health)

		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).Post("/login", controllers.AuthLogin(authService, logg))
			r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg), replay).Post("/register", controllers.AuthRegister(authService, logg))
			r.With(requireAuth).Get("/me", controllers.AuthMe(authService, logg))
			r.With(requireAuth).Post("/logout", controllers.AuthLogout(authService, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ProductList(productService, logg))
			r.Get("/search", controllers.ProductSearch(productService, logg))
			r.Get("/{productId}", controllers.ProductDetail(productService, logg))
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", controllers.CategoryList(productService, logg))
			r.Get("/{categoryId}/products", controllers.CategoryProducts(productService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth, replay)
				r.Post("/", ordercontrollers.Place(orderService, logg))
				r.Get("/{orderId}", ordercontrollers.Detail(orderService, logg))
				r.Get("/{orderId}/tracking", ordercontrollers.Tracking(orderService, logg))
			})

			r.With(requireAuth).Get("/user", ordercontrollers.Mine(orderService, logg))

			r.With(requireAuth, middleware.RequireRole(logg, enums.UserRoleAdmin)).
				Get("/", ordercontrollers.List(orderService, logg))
			r.With(requireAuth, middleware.RequireRole(logg, enums.UserRoleAdmin, enums.UserRoleDelivery), replay).
				Patch("/{orderId}/status", ordercontrollers.UpdateStatus(orderService, logg))
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/user/{userId}", reviewcontrollers.ByUser(reviewService, logg))
			r.With(replay).Post("/", reviewcontrollers.Create(reviewService, logg))
			r.Put("/{reviewId}", reviewcontrollers.Update(reviewService, logg))
			r.Delete("/{reviewId}", reviewcontrollers.Delete(reviewService, logg))
		})
	})

	return otelhttp.NewHandler(r, tracerOperation)
}

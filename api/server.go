package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/cheetah-storefront/api/routes"
	"github.com/angelmondragon/cheetah-storefront/internal/auth"
	product "github.com/angelmondragon/cheetah-storefront/internal/products"
	"github.com/angelmondragon/cheetah-storefront/internal/reviews"
	"github.com/angelmondragon/cheetah-storefront/internal/sales"
	"github.com/angelmondragon/cheetah-storefront/internal/users"
	"github.com/angelmondragon/cheetah-storefront/pkg/auth/session"
	"github.com/angelmondragon/cheetah-storefront/pkg/config"
	"github.com/angelmondragon/cheetah-storefront/pkg/db"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
	"github.com/angelmondragon/cheetah-storefront/pkg/redis"
	"github.com/angelmondragon/cheetah-storefront/pkg/security"
)

// HandlerParams carries the infrastructure the API is assembled from. Redis
// and the metrics registry are optional.
type HandlerParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       *db.Client
	Redis    *redis.Client
	Hasher   *security.Hasher
	Registry *prometheus.Registry
	Now      func() time.Time
}

// NewHandler builds the services and returns the HTTP handler that cmd/api
// wires into its server.
func NewHandler(params HandlerParams) (http.Handler, error) {
	if params.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("database client is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	hasher := params.Hasher
	if hasher == nil {
		hasher = security.NewHasher(params.Config.Password)
	}

	var (
		registerer prometheus.Registerer
		gatherer   prometheus.Gatherer
	)
	if params.Registry != nil {
		registerer = params.Registry
		gatherer = params.Registry
	}
	httpMetrics := metrics.NewHTTPMetrics(registerer)

	authParams := auth.ServiceParams{
		UserRepo:  users.NewRepository(params.DB.DB()),
		Hasher:    hasher,
		JWTConfig: params.Config.JWT,
		Now:       params.Now,
	}
	var revocations session.RevocationChecker
	if params.Redis != nil {
		list, err := session.NewRevocations(params.Redis)
		if err != nil {
			return nil, fmt.Errorf("revocation list: %w", err)
		}
		authParams.Revocations = list
		revocations = list
	}
	authService, err := auth.NewService(authParams)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	productService, err := product.NewService(product.NewRepository(params.DB.DB()))
	if err != nil {
		return nil, fmt.Errorf("product service: %w", err)
	}

	orderService, err := sales.NewService(sales.ServiceParams{
		DB:      params.DB,
		Logger:  logg,
		Metrics: httpMetrics,
		Now:     params.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}

	reviewService, err := reviews.NewService(reviews.ServiceParams{
		DB:     params.DB,
		Logger: logg,
		Now:    params.Now,
	})
	if err != nil {
		return nil, fmt.Errorf("review service: %w", err)
	}

	var dbPinger db.Pinger = params.DB
	return routes.NewRouter(
		params.Config,
		logg,
		dbPinger,
		params.Redis,
		revocations,
		httpMetrics,
		gatherer,
		authService,
		productService,
		orderService,
		reviewService,
	), nil
}

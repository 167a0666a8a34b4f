// Package storefront assembles the client-side storefront: persisted cart,
// catalogue lookups, reconciliation, checkout, orders, reviews and the session, all
// sharing one API client and one key-value backend.
package storefront

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/angelmondragon/cheetah-storefront/internal/cart"
	"github.com/angelmondragon/cheetah-storefront/internal/catalog"
	"github.com/angelmondragon/cheetah-storefront/internal/checkout"
	"github.com/angelmondragon/cheetah-storefront/internal/orders"
	"github.com/angelmondragon/cheetah-storefront/internal/session"
	"github.com/angelmondragon/cheetah-storefront/pkg/apiclient"
	"github.com/angelmondragon/cheetah-storefront/pkg/config"
	"github.com/angelmondragon/cheetah-storefront/pkg/db"
	"github.com/angelmondragon/cheetah-storefront/pkg/kvstore"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
	"github.com/angelmondragon/cheetah-storefront/pkg/migrate"
	pkgredis "github.com/angelmondragon/cheetah-storefront/pkg/redis"
)

// Storefront is the assembled client.
type Storefront struct {
	API        *apiclient.Client
	Cart       *cart.Store
	Reconciler *cart.Reconciler
	Catalog    catalog.Service
	Reviews    catalog.ReviewService
	Orders     orders.Service
	Session    *session.Store
	Auth       session.Service

	logg    *logger.Logger
	closers []func() error
}

type settings struct {
	logg       *logger.Logger
	registerer prometheus.Registerer
	httpClient *http.Client
	kv         kvstore.Store
}

// Option customises assembly.
type Option func(*settings)

// WithLogger overrides the logger built from configuration.
func WithLogger(logg *logger.Logger) Option {
	return func(s *settings) { s.logg = logg }
}

// WithRegisterer registers client metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *settings) { s.registerer = reg }
}

// WithHTTPClient overrides the API transport.
func WithHTTPClient(client *http.Client) Option {
	return func(s *settings) { s.httpClient = client }
}

// WithStore bypasses the configured cart backend.
func WithStore(kv kvstore.Store) Option {
	return func(s *settings) { s.kv = kv }
}

// New wires every storefront component from cfg.
func New(ctx context.Context, cfg *config.ClientConfig, opts ...Option) (*Storefront, error) {
	if cfg == nil {
		return nil, fmt.Errorf("client config required")
	}
	st := settings{}
	for _, opt := range opts {
		opt(&st)
	}
	if st.logg == nil {
		level := logger.ParseLevel(cfg.App.LogLevel)
		if cfg.API.EnableLogging {
			level = logger.ParseLevel("debug")
		}
		st.logg = logger.New(logger.Options{ServiceName: "storefront", Level: level, WarnStack: cfg.App.LogWarnStack})
	}

	sf := &Storefront{logg: st.logg}
	kv := st.kv
	if kv == nil {
		var err error
		kv, err = sf.openBackend(ctx, cfg)
		if err != nil {
			_ = sf.Close()
			return nil, err
		}
	}

	clientMetrics := metrics.NewClientMetrics(st.registerer)

	sessionStore, err := session.NewStore(kv)
	if err != nil {
		_ = sf.Close()
		return nil, err
	}
	sf.Session = sessionStore

	apiOpts := []apiclient.Option{
		apiclient.WithTokenSource(sessionStore),
		apiclient.WithLogger(st.logg, cfg.API.EnableLogging),
	}
	if st.httpClient != nil {
		apiOpts = append(apiOpts, apiclient.WithHTTPClient(st.httpClient))
	} else {
		apiOpts = append(apiOpts, apiclient.WithTimeout(cfg.API.Timeout))
	}
	sf.API = apiclient.New(cfg.API.BaseURL, apiOpts...)

	if sf.Catalog, err = catalog.NewService(sf.API, catalog.Options{
		Mock:                     cfg.API.EnableMock,
		FallbackOnTransportError: cfg.API.FallbackOnTransportError,
		Logger:                   st.logg,
		Metrics:                  clientMetrics,
	}); err != nil {
		_ = sf.Close()
		return nil, err
	}

	if sf.Reviews, err = catalog.NewReviewService(sf.API, catalog.Options{
		Mock:                     cfg.API.EnableMock,
		FallbackOnTransportError: cfg.API.FallbackOnTransportError,
		Logger:                   st.logg,
		Metrics:                  clientMetrics,
	}); err != nil {
		_ = sf.Close()
		return nil, err
	}

	if sf.Cart, err = cart.NewStore(kv, st.logg); err != nil {
		_ = sf.Close()
		return nil, err
	}
	if sf.Reconciler, err = cart.NewReconciler(sf.Cart, sf.Catalog,
		cart.WithLogger(st.logg),
		cart.WithMetrics(clientMetrics),
	); err != nil {
		_ = sf.Close()
		return nil, err
	}

	if sf.Orders, err = orders.NewService(sf.API, orders.Options{
		Mock:                     cfg.API.EnableMock,
		FallbackOnTransportError: cfg.API.FallbackOnTransportError,
		Logger:                   st.logg,
		Metrics:                  clientMetrics,
	}); err != nil {
		_ = sf.Close()
		return nil, err
	}

	if sf.Auth, err = session.NewService(sf.API, sessionStore, session.Options{
		DevMode: cfg.App.IsDev(),
		Mock:    cfg.API.EnableMock,
		Logger:  st.logg,
		Metrics: clientMetrics,
	}); err != nil {
		_ = sf.Close()
		return nil, err
	}
	return sf, nil
}

// NewCheckout starts a fresh checkout session over the shared cart.
func (s *Storefront) NewCheckout() (*checkout.Flow, error) {
	return checkout.New(s.Reconciler, s.Cart, s.Orders, s.logg)
}

// Close releases backend connections.
func (s *Storefront) Close() error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i]())
	}
	s.closers = nil
	return err
}

func (s *Storefront) openBackend(ctx context.Context, cfg *config.ClientConfig) (kvstore.Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Cart.Backend)) {
	case config.CartBackendMemory:
		return kvstore.NewMemory(), nil
	case config.CartBackendFile:
		return kvstore.NewFile(cfg.Cart.FilePath)
	case config.CartBackendRedis:
		if !cfg.Redis.Enabled() {
			return nil, fmt.Errorf("%s=%s requires %s", config.EnvCartBackend, config.CartBackendRedis, config.EnvRedisURL)
		}
		client, err := pkgredis.New(ctx, cfg.Redis, s.logg)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		return kvstore.NewRedis(client, cfg.Cart.Namespace, 0), nil
	case config.CartBackendSQL:
		client, err := db.New(ctx, cfg.DB, s.logg)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		sqlDB, err := client.DB().DB()
		if err != nil {
			return nil, err
		}
		if err := migrate.Up(ctx, sqlDB, client.Driver()); err != nil {
			return nil, fmt.Errorf("migrate storage schema: %w", err)
		}
		return kvstore.NewSQL(client.DB(), cfg.Cart.Namespace), nil
	default:
		return nil, fmt.Errorf("unknown cart backend %q", cfg.Cart.Backend)
	}
}

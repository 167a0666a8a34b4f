package catalog

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/cheetah-storefront/pkg/apiclient"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

const serviceName = "catalog"

// Lookup resolves one product id to its authoritative record.
type Lookup interface {
	Product(ctx context.Context, id string) (types.Product, error)
}

// Service exposes the catalogue reads the storefront performs.
type Service interface {
	Lookup
	List(ctx context.Context, filters Filters) (types.ProductPage, enums.Outcome, error)
	Search(ctx context.Context, query string, filters Filters) (types.ProductPage, enums.Outcome, error)
	Categories(ctx context.Context) ([]types.Category, enums.Outcome, error)
	ByCategory(ctx context.Context, categoryID string, filters Filters) (types.ProductPage, enums.Outcome, error)
}

// Filters narrows product listings.
type Filters struct {
	Category string
	Page     int
	Limit    int
}

func (f Filters) values() url.Values {
	v := url.Values{}
	if c := strings.TrimSpace(f.Category); c != "" {
		v.Set("category", c)
	}
	if f.Page > 0 {
		v.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		v.Set("limit", strconv.Itoa(f.Limit))
	}
	return v
}

type getter interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
}

// Options selects mock and fallback behaviour.
type Options struct {
	// Mock answers every call from the canned catalogue without touching the network.
	Mock bool
	// FallbackOnTransportError substitutes canned listings when the API is unreachable.
	// Single-product lookups never fall back: a made-up price must not reach a cart total.
	FallbackOnTransportError bool
	Logger                   *logger.Logger
	Metrics                  *metrics.ClientMetrics
}

type service struct {
	api   getter
	opts  Options
	logg  *logger.Logger
	group singleflight.Group
}

// NewService builds the catalogue client on top of the REST client.
func NewService(api getter, opts Options) (Service, error) {
	if api == nil && !opts.Mock {
		return nil, fmt.Errorf("api client required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{api: api, opts: opts, logg: logg}, nil
}

// Product fetches one product. Concurrent lookups of the same id share a
// single request.
func (s *service) Product(ctx context.Context, id string) (types.Product, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return types.Product{}, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if s.opts.Mock {
		s.opts.Metrics.IncFallback(serviceName, "product", metrics.ReasonMock)
		return mockProduct(id), nil
	}

	// the shared request outlives any one caller; each caller still honours
	// its own cancellation
	shared := context.WithoutCancel(ctx)
	ch := s.group.DoChan(id, func() (any, error) {
		var product types.Product
		if err := s.api.Get(shared, "/products/"+apiclient.PathEscape(id), nil, &product); err != nil {
			return types.Product{}, err
		}
		return product, nil
	})
	select {
	case <-ctx.Done():
		return types.Product{}, pkgerrors.Wrap(pkgerrors.CodeTransport, ctx.Err(), "GET /products/"+id)
	case res := <-ch:
		if res.Err != nil {
			return types.Product{}, res.Err
		}
		return res.Val.(types.Product), nil
	}
}

func (s *service) List(ctx context.Context, filters Filters) (types.ProductPage, enums.Outcome, error) {
	return s.page(ctx, "list", "/products", filters.values(), func() types.ProductPage {
		return mockListing(filters.Category)
	})
}

func (s *service) Search(ctx context.Context, query string, filters Filters) (types.ProductPage, enums.Outcome, error) {
	values := filters.values()
	values.Set("q", strings.TrimSpace(query))
	return s.page(ctx, "search", "/products/search", values, func() types.ProductPage {
		return mockSearch(query)
	})
}

func (s *service) ByCategory(ctx context.Context, categoryID string, filters Filters) (types.ProductPage, enums.Outcome, error) {
	categoryID = strings.TrimSpace(categoryID)
	if categoryID == "" {
		return types.ProductPage{}, enums.OutcomeFailed, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	filters.Category = ""
	path := "/categories/" + apiclient.PathEscape(categoryID) + "/products"
	return s.page(ctx, "by_category", path, filters.values(), func() types.ProductPage {
		return mockByCategory(categoryID)
	})
}

func (s *service) Categories(ctx context.Context) ([]types.Category, enums.Outcome, error) {
	if s.opts.Mock {
		s.opts.Metrics.IncFallback(serviceName, "categories", metrics.ReasonMock)
		return mockCategories(), enums.OutcomeDegraded, nil
	}
	var categories []types.Category
	err := s.api.Get(ctx, "/categories", nil, &categories)
	if err == nil {
		return categories, enums.OutcomeSuccess, nil
	}
	if s.shouldFallback(ctx, "categories", err) {
		return mockCategories(), enums.OutcomeDegraded, nil
	}
	return nil, enums.OutcomeFailed, err
}

func (s *service) page(ctx context.Context, operation, path string, query url.Values, canned func() types.ProductPage) (types.ProductPage, enums.Outcome, error) {
	if s.opts.Mock {
		s.opts.Metrics.IncFallback(serviceName, operation, metrics.ReasonMock)
		return canned(), enums.OutcomeDegraded, nil
	}
	var page types.ProductPage
	err := s.api.Get(ctx, path, query, &page)
	if err == nil {
		return page, enums.OutcomeSuccess, nil
	}
	if s.shouldFallback(ctx, operation, err) {
		return canned(), enums.OutcomeDegraded, nil
	}
	return types.ProductPage{}, enums.OutcomeFailed, err
}

func (s *service) shouldFallback(ctx context.Context, operation string, err error) bool {
	if !s.opts.FallbackOnTransportError || !pkgerrors.IsTransport(err) {
		return false
	}
	ctx = s.logg.WithField(ctx, "operation", operation)
	s.logg.Warn(ctx, "catalog api unreachable, serving canned data")
	s.opts.Metrics.IncFallback(serviceName, operation, metrics.ReasonTransport)
	return true
}

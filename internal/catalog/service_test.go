package catalog

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

type stubGetter struct {
	mu    sync.Mutex
	calls []string
	query []url.Values
	err   error
	fill  func(path string, out any)
}

func (s *stubGetter) Get(_ context.Context, path string, query url.Values, out any) error {
	s.mu.Lock()
	s.calls = append(s.calls, path)
	s.query = append(s.query, query)
	s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.fill != nil {
		s.fill(path, out)
	}
	return nil
}

func transportErr() error {
	return pkgerrors.New(pkgerrors.CodeTransport, "dial tcp: connection refused")
}

func TestNewServiceRequiresClientUnlessMock(t *testing.T) {
	_, err := NewService(nil, Options{})
	require.Error(t, err)

	svc, err := NewService(nil, Options{Mock: true})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestProductFetchesByID(t *testing.T) {
	api := &stubGetter{fill: func(path string, out any) {
		p := out.(*types.Product)
		p.ID = "42"
		p.Name = "Desk Lamp"
		p.Price = decimal.RequireFromString("12.50")
	}}
	svc, err := NewService(api, Options{})
	require.NoError(t, err)

	product, err := svc.Product(context.Background(), " 42 ")
	require.NoError(t, err)
	assert.Equal(t, "Desk Lamp", product.Name)
	assert.Equal(t, []string{"/products/42"}, api.calls)
}

type blockingGetter struct {
	arrived chan struct{}
	release chan struct{}
	mu      sync.Mutex
	hits    int
	ctxErrs []error
}

func (b *blockingGetter) Get(ctx context.Context, _ string, _ url.Values, out any) error {
	b.mu.Lock()
	b.hits++
	first := b.hits == 1
	b.mu.Unlock()
	if first {
		close(b.arrived)
	}
	<-b.release
	b.mu.Lock()
	b.ctxErrs = append(b.ctxErrs, ctx.Err())
	b.mu.Unlock()
	out.(*types.Product).Name = "Desk Lamp"
	return nil
}

func TestProductSharedLookupSurvivesCallerCancellation(t *testing.T) {
	api := &blockingGetter{arrived: make(chan struct{}), release: make(chan struct{})}
	svc, err := NewService(api, Options{})
	require.NoError(t, err)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.Product(firstCtx, "42")
		firstErr <- err
	}()
	<-api.arrived

	type result struct {
		product types.Product
		err     error
	}
	second := make(chan result, 1)
	go func() {
		product, err := svc.Product(context.Background(), "42")
		second <- result{product: product, err: err}
	}()

	cancel()
	err = <-firstErr
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, pkgerrors.IsTransport(err))

	close(api.release)
	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, "Desk Lamp", got.product.Name)

	api.mu.Lock()
	defer api.mu.Unlock()
	for _, ctxErr := range api.ctxErrs {
		assert.NoError(t, ctxErr)
	}
}

func TestProductEscapesID(t *testing.T) {
	api := &stubGetter{}
	svc, _ := NewService(api, Options{})
	_, err := svc.Product(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "/products/a%2Fb", api.calls[0])
}

func TestProductRejectsEmptyID(t *testing.T) {
	svc, _ := NewService(&stubGetter{}, Options{})
	_, err := svc.Product(context.Background(), "  ")
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestProductNeverFallsBackOnTransportError(t *testing.T) {
	api := &stubGetter{err: transportErr()}
	svc, _ := NewService(api, Options{FallbackOnTransportError: true})

	_, err := svc.Product(context.Background(), "1")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsTransport(err))
}

func TestProductMockMode(t *testing.T) {
	api := &stubGetter{}
	svc, _ := NewService(api, Options{Mock: true})

	known, err := svc.Product(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, "Sample Product 2", known.Name)
	assert.True(t, known.Price.Equal(decimal.RequireFromString("19.99")))

	unknown, err := svc.Product(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, types.ID("abc"), unknown.ID)
	assert.Equal(t, "Sample Product", unknown.Name)
	assert.Empty(t, api.calls)
}

func TestListSendsFilters(t *testing.T) {
	api := &stubGetter{fill: func(path string, out any) {
		page := out.(*types.ProductPage)
		page.Total = 3
		page.Page = 2
	}}
	svc, _ := NewService(api, Options{})

	page, outcome, err := svc.List(context.Background(), Filters{Category: "books", Page: 2, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, "/products", api.calls[0])
	assert.Equal(t, "books", api.query[0].Get("category"))
	assert.Equal(t, "2", api.query[0].Get("page"))
	assert.Equal(t, "5", api.query[0].Get("limit"))
}

func TestListFallsBackOnTransportError(t *testing.T) {
	api := &stubGetter{err: transportErr()}
	svc, _ := NewService(api, Options{FallbackOnTransportError: true})

	page, outcome, err := svc.List(context.Background(), Filters{Category: "clothing"})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Sample Product 2", page.Products[0].Name)
}

func TestListDoesNotFallBackOnRejection(t *testing.T) {
	api := &stubGetter{err: pkgerrors.New(pkgerrors.CodeValidation, "bad page")}
	svc, _ := NewService(api, Options{FallbackOnTransportError: true})

	_, outcome, err := svc.List(context.Background(), Filters{})
	require.Error(t, err)
	assert.Equal(t, enums.OutcomeFailed, outcome)
}

func TestListWithoutFallbackSurfacesTransportError(t *testing.T) {
	api := &stubGetter{err: transportErr()}
	svc, _ := NewService(api, Options{})

	_, outcome, err := svc.List(context.Background(), Filters{})
	require.Error(t, err)
	assert.Equal(t, enums.OutcomeFailed, outcome)
}

func TestSearchMockFiltersByName(t *testing.T) {
	svc, _ := NewService(nil, Options{Mock: true})

	page, outcome, err := svc.Search(context.Background(), "product 1", Filters{})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
	require.Len(t, page.Products, 1)
	assert.Equal(t, types.ID("1"), page.Products[0].ID)
}

func TestSearchSendsQuery(t *testing.T) {
	api := &stubGetter{}
	svc, _ := NewService(api, Options{})

	_, _, err := svc.Search(context.Background(), " lamp ", Filters{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, "/products/search", api.calls[0])
	assert.Equal(t, "lamp", api.query[0].Get("q"))
	assert.Equal(t, "10", api.query[0].Get("limit"))
}

func TestCategoriesFallback(t *testing.T) {
	api := &stubGetter{err: transportErr()}
	svc, _ := NewService(api, Options{FallbackOnTransportError: true})

	categories, outcome, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
	require.Len(t, categories, 3)
	assert.Equal(t, "books", categories[2].Slug)
}

func TestByCategory(t *testing.T) {
	api := &stubGetter{}
	svc, _ := NewService(api, Options{})

	_, _, err := svc.ByCategory(context.Background(), "", Filters{})
	require.Error(t, err)

	_, outcome, err := svc.ByCategory(context.Background(), "3", Filters{Category: "ignored", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
	assert.Equal(t, "/categories/3/products", api.calls[0])
	assert.Empty(t, api.query[0].Get("category"))

	mock, _ := NewService(nil, Options{Mock: true})
	page, _, err := mock.ByCategory(context.Background(), "books", Filters{})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "books", page.Products[0].Category)
}

package cart

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

type stubLookup struct {
	products map[string]types.Product
	delays   map[string]time.Duration
	fail     map[string]bool
}

func (s stubLookup) Product(_ context.Context, id string) (types.Product, error) {
	if d := s.delays[id]; d > 0 {
		time.Sleep(d)
	}
	if s.fail[id] {
		return types.Product{}, errors.New("lookup failed")
	}
	p, ok := s.products[id]
	if !ok {
		return types.Product{}, errors.New("not found")
	}
	return p, nil
}

func product(id, name, price string) types.Product {
	return types.Product{ID: types.ID(id), Name: name, Price: decimal.RequireFromString(price)}
}

func TestNewReconcilerRequiresDependencies(t *testing.T) {
	store, _ := newTestStore(t)
	_, err := NewReconciler(nil, stubLookup{})
	require.Error(t, err)
	_, err = NewReconciler(store, nil)
	require.Error(t, err)
}

func TestMaterializeEmptyCart(t *testing.T) {
	store, _ := newTestStore(t)
	r, err := NewReconciler(store, stubLookup{})
	require.NoError(t, err)

	view := r.Materialize(context.Background())
	assert.True(t, view.IsEmpty())
	assert.True(t, view.Total().IsZero())
	assert.Equal(t, enums.OutcomeSuccess, view.Outcome)
}

func TestMaterializeComputesTotal(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	store.Add(ctx, "1", 2)

	r, _ := NewReconciler(store, stubLookup{products: map[string]types.Product{
		"1": product("1", "Lamp", "10.00"),
	}})
	view := r.Materialize(ctx)

	require.Len(t, view.Lines, 1)
	assert.True(t, view.Lines[0].Resolved)
	assert.Equal(t, "Lamp", view.Lines[0].Name)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.True(t, view.Total().Equal(decimal.RequireFromString("20.00")))
}

func TestMaterializeKeepsFailedLines(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	store.Add(ctx, "1", 1)
	store.Add(ctx, "2", 4)

	reg := prometheus.NewRegistry()
	r, _ := NewReconciler(store, stubLookup{
		products: map[string]types.Product{"1": product("1", "Lamp", "9.99")},
		fail:     map[string]bool{"2": true},
	}, WithMetrics(metrics.NewClientMetrics(reg)))

	view := r.Materialize(ctx)
	require.Len(t, view.Lines, 2)
	assert.Equal(t, enums.OutcomeDegraded, view.Outcome)

	assert.True(t, view.Lines[0].Resolved)
	assert.False(t, view.Lines[1].Resolved)
	assert.Equal(t, types.ID("2"), view.Lines[1].ID)
	assert.Equal(t, 4, view.Lines[1].Quantity)
	assert.Empty(t, view.Lines[1].Name)
	assert.True(t, view.Total().Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 5, view.Count())
}

func TestMaterializeOrderIsPositional(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	for _, id := range []string{"a", "b", "c", "d"} {
		store.AddOne(ctx, id)
	}

	r, _ := NewReconciler(store, stubLookup{
		products: map[string]types.Product{
			"a": product("a", "A", "1"),
			"b": product("b", "B", "2"),
			"c": product("c", "C", "3"),
			"d": product("d", "D", "4"),
		},
		delays: map[string]time.Duration{"a": 30 * time.Millisecond, "b": 20 * time.Millisecond, "c": 10 * time.Millisecond},
	}, WithConcurrency(4))

	view := r.Materialize(ctx)
	names := make([]string, 0, len(view.Lines))
	for _, line := range view.Lines {
		names = append(names, line.Name)
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, names)
	assert.True(t, view.Total().Equal(decimal.NewFromInt(10)))
}

func TestTotalIgnoresUnresolvedPrices(t *testing.T) {
	lines := []MaterializedLine{
		{Product: product("1", "A", "5.50"), Quantity: 2, Resolved: true},
		{Product: product("2", "B", "100"), Quantity: 1, Resolved: false},
		{Product: types.Product{ID: "3"}, Quantity: 3, Resolved: true},
	}
	assert.True(t, Total(lines).Equal(decimal.RequireFromString("11.00")))
}

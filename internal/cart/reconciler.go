package cart

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/cheetah-storefront/internal/catalog"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

const defaultLookupConcurrency = 8

type lineReader interface {
	Lines(ctx context.Context) ([]Line, enums.Outcome)
}

// MaterializedLine is a persisted line joined with the current product
// record. When the lookup failed only ID and Quantity are set and Resolved
// is false.
type MaterializedLine struct {
	types.Product
	Quantity int  `json:"quantity"`
	Resolved bool `json:"resolved"`
}

// LineTotal is price * quantity, zero for unresolved lines.
func (l MaterializedLine) LineTotal() decimal.Decimal {
	if !l.Resolved || l.Quantity < 1 {
		return decimal.Zero
	}
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// View is one reconciliation pass over the cart.
type View struct {
	Lines   []MaterializedLine
	Outcome enums.Outcome
}

// Total sums the view's line totals.
func (v View) Total() decimal.Decimal {
	return Total(v.Lines)
}

// IsEmpty reports whether the cart had no lines.
func (v View) IsEmpty() bool {
	return len(v.Lines) == 0
}

// Count sums the quantities of every line, resolved or not.
func (v View) Count() int {
	n := 0
	for _, line := range v.Lines {
		n += line.Quantity
	}
	return n
}

// Total sums price * quantity over lines; unresolved lines contribute zero.
func Total(lines []MaterializedLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.LineTotal())
	}
	return total
}

// ReconcilerOption tunes a Reconciler.
type ReconcilerOption func(*Reconciler)

// WithConcurrency caps the number of in-flight product lookups.
func WithConcurrency(n int) ReconcilerOption {
	return func(r *Reconciler) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the reconciler logger.
func WithLogger(logg *logger.Logger) ReconcilerOption {
	return func(r *Reconciler) {
		if logg != nil {
			r.logg = logg
		}
	}
}

// WithMetrics records unresolved lines.
func WithMetrics(m *metrics.ClientMetrics) ReconcilerOption {
	return func(r *Reconciler) {
		r.metrics = m
	}
}

// Reconciler joins the persisted cart against the catalogue.
type Reconciler struct {
	store       lineReader
	lookup      catalog.Lookup
	concurrency int
	logg        *logger.Logger
	metrics     *metrics.ClientMetrics
}

// NewReconciler wires the cart store and product lookup.
func NewReconciler(store lineReader, lookup catalog.Lookup, opts ...ReconcilerOption) (*Reconciler, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if lookup == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	r := &Reconciler{
		store:       store,
		lookup:      lookup,
		concurrency: defaultLookupConcurrency,
		logg:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Materialize looks up every cart line concurrently and returns them in
// persisted order. A failed lookup degrades its own line and never the batch.
func (r *Reconciler) Materialize(ctx context.Context) View {
	lines, outcome := r.store.Lines(ctx)
	if len(lines) == 0 {
		return View{Lines: []MaterializedLine{}, Outcome: outcome}
	}

	out := make([]MaterializedLine, len(lines))
	failed := make([]bool, len(lines))

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, line := range lines {
		g.Go(func() error {
			product, err := r.lookup.Product(ctx, string(line.ProductID))
			if err != nil {
				lctx := r.logg.WithFields(ctx, map[string]any{
					"product_id": string(line.ProductID),
					"error":      err.Error(),
				})
				r.logg.Warn(lctx, "product lookup failed, keeping bare cart line")
				out[i] = MaterializedLine{
					Product:  types.Product{ID: line.ProductID},
					Quantity: line.Quantity,
				}
				failed[i] = true
				return nil
			}
			product.ID = line.ProductID
			out[i] = MaterializedLine{Product: product, Quantity: line.Quantity, Resolved: true}
			return nil
		})
	}
	_ = g.Wait()

	degraded := 0
	for _, f := range failed {
		if f {
			degraded++
		}
	}
	if degraded > 0 {
		r.metrics.AddDegradedLines("materialize", degraded)
		outcome = enums.Worst(outcome, enums.OutcomeDegraded)
	}
	return View{Lines: out, Outcome: outcome}
}

package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/kvstore"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

// StorageKey is the key the cart document is persisted under.
const StorageKey = "cart"

// Line is one persisted cart entry. Only identity and quantity are kept;
// everything priced or displayed comes from the catalogue.
type Line struct {
	ProductID types.ID `json:"id"`
	Quantity  int      `json:"quantity"`
}

// Store is the persisted cart. Every mutation is a read-modify-write of the
// whole document; the mutex only serialises writers inside this process.
type Store struct {
	kv   kvstore.Store
	logg *logger.Logger

	mu      sync.Mutex
	subject subject
}

// NewStore binds the cart to a key-value backend.
func NewStore(kv kvstore.Store, logg *logger.Logger) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv store required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Store{kv: kv, logg: logg}, nil
}

// AddOne adds a single unit of the product.
func (s *Store) AddOne(ctx context.Context, productID string) enums.Outcome {
	return s.Add(ctx, productID, 1)
}

// Add increments the product's quantity, inserting the line when missing.
// Non-positive quantities are ignored.
func (s *Store) Add(ctx context.Context, productID string, quantity int) enums.Outcome {
	id := normalizeID(productID)
	if id == "" || quantity < 1 {
		return enums.OutcomeSuccess
	}
	return s.mutate(ctx, "add", func(lines []Line) ([]Line, bool) {
		for i := range lines {
			if lines[i].ProductID == id {
				lines[i].Quantity += quantity
				return lines, true
			}
		}
		return append(lines, Line{ProductID: id, Quantity: quantity}), true
	})
}

// Remove deletes the product's line if present.
func (s *Store) Remove(ctx context.Context, productID string) enums.Outcome {
	id := normalizeID(productID)
	return s.mutate(ctx, "remove", func(lines []Line) ([]Line, bool) {
		for i := range lines {
			if lines[i].ProductID == id {
				return append(lines[:i], lines[i+1:]...), true
			}
		}
		return lines, false
	})
}

// SetQuantity overwrites the quantity of an existing line. A quantity below
// one leaves the cart untouched; removal is Remove's job.
func (s *Store) SetQuantity(ctx context.Context, productID string, quantity int) enums.Outcome {
	if quantity < 1 {
		return enums.OutcomeSuccess
	}
	id := normalizeID(productID)
	return s.mutate(ctx, "set_quantity", func(lines []Line) ([]Line, bool) {
		for i := range lines {
			if lines[i].ProductID == id {
				if lines[i].Quantity == quantity {
					return lines, false
				}
				lines[i].Quantity = quantity
				return lines, true
			}
		}
		return lines, false
	})
}

// Clear removes the whole cart document.
func (s *Store) Clear(ctx context.Context) enums.Outcome {
	s.mu.Lock()
	err := s.kv.Delete(ctx, StorageKey)
	s.mu.Unlock()
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "operation", "clear"), "clear cart", err)
		return enums.OutcomeFailed
	}
	s.subject.publish(0)
	return enums.OutcomeSuccess
}

// Lines returns the persisted lines in insertion order. A missing document is
// an empty cart; an unreadable one is an empty cart tagged degraded.
func (s *Store) Lines(ctx context.Context) ([]Line, enums.Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	lines, outcome, err := s.load(ctx)
	if err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "read cart, treating as empty")
		return []Line{}, enums.OutcomeDegraded
	}
	return lines, outcome
}

// Count returns the total number of units in the cart, zero when the cart
// cannot be read.
func (s *Store) Count(ctx context.Context) (int, enums.Outcome) {
	lines, outcome := s.Lines(ctx)
	return countOf(lines), outcome
}

// Subscribe registers fn to receive the new unit count after every
// successful mutation. The returned func unregisters it.
func (s *Store) Subscribe(fn func(count int)) func() {
	return s.subject.subscribe(fn)
}

func (s *Store) mutate(ctx context.Context, operation string, fn func([]Line) ([]Line, bool)) enums.Outcome {
	s.mu.Lock()
	lines, _, err := s.load(ctx)
	if err != nil {
		s.mu.Unlock()
		s.logg.Error(s.logg.WithField(ctx, "operation", operation), "read cart before write", err)
		return enums.OutcomeFailed
	}
	next, changed := fn(lines)
	if !changed {
		s.mu.Unlock()
		return enums.OutcomeSuccess
	}
	err = s.save(ctx, next)
	s.mu.Unlock()

	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "operation", operation), "persist cart", err)
		return enums.OutcomeFailed
	}
	s.subject.publish(countOf(next))
	return enums.OutcomeSuccess
}

// load returns an error only when the backend could not be read. A corrupt
// document is an empty cart tagged degraded so the next write replaces it.
func (s *Store) load(ctx context.Context) ([]Line, enums.Outcome, error) {
	raw, err := s.kv.Get(ctx, StorageKey)
	switch {
	case errors.Is(err, kvstore.ErrNotFound):
		return []Line{}, enums.OutcomeSuccess, nil
	case errors.Is(err, kvstore.ErrCorrupt):
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "parse cart store, treating as empty")
		return []Line{}, enums.OutcomeDegraded, nil
	case err != nil:
		return nil, enums.OutcomeFailed, err
	}
	if strings.TrimSpace(raw) == "" {
		return []Line{}, enums.OutcomeSuccess, nil
	}

	var stored []Line
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "parse cart, treating as empty")
		return []Line{}, enums.OutcomeDegraded, nil
	}
	return sanitize(stored), enums.OutcomeSuccess, nil
}

func (s *Store) save(ctx context.Context, lines []Line) error {
	if lines == nil {
		lines = []Line{}
	}
	payload, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return s.kv.Set(ctx, StorageKey, string(payload))
}

// sanitize drops non-positive quantities and merges duplicate ids written by
// older clients, keeping the position of the first occurrence.
func sanitize(stored []Line) []Line {
	lines := make([]Line, 0, len(stored))
	index := make(map[types.ID]int, len(stored))
	for _, line := range stored {
		line.ProductID = types.ID(normalizeID(string(line.ProductID)))
		if line.ProductID == "" || line.Quantity < 1 {
			continue
		}
		if i, ok := index[line.ProductID]; ok {
			lines[i].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(lines)
		lines = append(lines, line)
	}
	return lines
}

func countOf(lines []Line) int {
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return total
}

func normalizeID(id string) types.ID {
	return types.ID(strings.TrimSpace(id))
}

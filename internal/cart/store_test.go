package cart

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	"github.com/angelmondragon/cheetah-storefront/pkg/kvstore"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

type failingKV struct {
	getErr      error
	getFailures int
	setErr      error
	raw         string
}

func (f *failingKV) Get(context.Context, string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	if f.getFailures > 0 {
		f.getFailures--
		return "", errors.New("i/o timeout")
	}
	if f.raw == "" {
		return "", kvstore.ErrNotFound
	}
	return f.raw, nil
}

func (f *failingKV) Set(_ context.Context, _ string, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.raw = value
	return nil
}

func (f *failingKV) Delete(context.Context, string) error {
	f.raw = ""
	return nil
}

func newTestStore(t *testing.T) (*Store, *kvstore.Memory) {
	t.Helper()
	kv := kvstore.NewMemory()
	store, err := NewStore(kv, nil)
	require.NoError(t, err)
	return store, kv
}

func TestNewStoreRequiresBackend(t *testing.T) {
	_, err := NewStore(nil, nil)
	require.Error(t, err)
}

func TestAddInsertsThenIncrements(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)

	assert.Equal(t, enums.OutcomeSuccess, store.AddOne(ctx, "1"))
	assert.Equal(t, enums.OutcomeSuccess, store.Add(ctx, "2", 3))
	assert.Equal(t, enums.OutcomeSuccess, store.Add(ctx, "1", 2))

	lines, outcome := store.Lines(ctx)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
	assert.Equal(t, []Line{{ProductID: "1", Quantity: 3}, {ProductID: "2", Quantity: 3}}, lines)

	raw, err := kv.Get(ctx, StorageKey)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"1","quantity":3},{"id":"2","quantity":3}]`, raw)
}

func TestAddIgnoresNonPositiveQuantity(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	store.Add(ctx, "1", 0)
	store.Add(ctx, "1", -4)
	store.Add(ctx, "  ", 1)

	count, _ := store.Count(ctx)
	assert.Equal(t, 0, count)
}

func TestSetQuantityBelowOneIsNoop(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	store.Add(ctx, "1", 2)

	store.SetQuantity(ctx, "1", 0)
	store.SetQuantity(ctx, "1", -1)

	lines, _ := store.Lines(ctx)
	assert.Equal(t, []Line{{ProductID: "1", Quantity: 2}}, lines)

	store.SetQuantity(ctx, "1", 5)
	store.SetQuantity(ctx, "missing", 5)
	lines, _ = store.Lines(ctx)
	assert.Equal(t, []Line{{ProductID: "1", Quantity: 5}}, lines)
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	store, kv := newTestStore(t)
	store.Add(ctx, "1", 1)
	store.Add(ctx, "2", 1)

	store.Remove(ctx, "1")
	store.Remove(ctx, "unknown")
	lines, _ := store.Lines(ctx)
	assert.Equal(t, []Line{{ProductID: "2", Quantity: 1}}, lines)

	assert.Equal(t, enums.OutcomeSuccess, store.Clear(ctx))
	_, err := kv.Get(ctx, StorageKey)
	assert.ErrorIs(t, err, kvstore.ErrNotFound)
	count, outcome := store.Count(ctx)
	assert.Equal(t, 0, count)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
}

func TestCorruptDocumentReadsAsEmpty(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{raw: "{not json"}
	store, err := NewStore(kv, nil)
	require.NoError(t, err)

	count, outcome := store.Count(ctx)
	assert.Equal(t, 0, count)
	assert.Equal(t, enums.OutcomeDegraded, outcome)

	assert.Equal(t, enums.OutcomeSuccess, store.AddOne(ctx, "7"))
	lines, outcome := store.Lines(ctx)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
	assert.Equal(t, []Line{{ProductID: "7", Quantity: 1}}, lines)
}

func TestReadFailureReadsAsEmpty(t *testing.T) {
	store, _ := NewStore(&failingKV{getErr: errors.New("disk gone")}, nil)
	count, outcome := store.Count(context.Background())
	assert.Equal(t, 0, count)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
}

func TestMutationAbortsWhenReadFails(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{raw: `[{"id":"1","quantity":3},{"id":"2","quantity":5}]`}
	store, err := NewStore(kv, nil)
	require.NoError(t, err)

	var published []int
	store.Subscribe(func(count int) { published = append(published, count) })

	kv.getFailures = 1
	assert.Equal(t, enums.OutcomeFailed, store.AddOne(ctx, "9"))
	assert.JSONEq(t, `[{"id":"1","quantity":3},{"id":"2","quantity":5}]`, kv.raw)
	assert.Empty(t, published)

	assert.Equal(t, enums.OutcomeSuccess, store.AddOne(ctx, "9"))
	lines, outcome := store.Lines(ctx)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
	assert.Equal(t, []Line{{ProductID: "1", Quantity: 3}, {ProductID: "2", Quantity: 5}, {ProductID: "9", Quantity: 1}}, lines)
}

func TestCorruptBackendDocumentIsReplaced(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(&failingKV{getErr: kvstore.ErrCorrupt}, nil)
	require.NoError(t, err)

	_, outcome := store.Lines(ctx)
	assert.Equal(t, enums.OutcomeDegraded, outcome)
	assert.Equal(t, enums.OutcomeSuccess, store.AddOne(ctx, "4"))
}

func TestWriteFailureIsAbsorbed(t *testing.T) {
	store, _ := NewStore(&failingKV{setErr: errors.New("read-only")}, nil)
	assert.Equal(t, enums.OutcomeFailed, store.AddOne(context.Background(), "1"))
}

func TestLegacyDocumentIsSanitized(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{raw: `[{"id":1,"quantity":2},{"id":"2","quantity":0},{"id":"1","quantity":1},{"id":"3","quantity":-2}]`}
	store, _ := NewStore(kv, nil)

	lines, outcome := store.Lines(ctx)
	assert.Equal(t, enums.OutcomeSuccess, outcome)
	assert.Equal(t, []Line{{ProductID: types.ID("1"), Quantity: 3}}, lines)
}

func TestSubscribeReceivesCounts(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	var seen []int
	unsubscribe := store.Subscribe(func(count int) { seen = append(seen, count) })

	store.Add(ctx, "1", 2)
	store.AddOne(ctx, "2")
	store.SetQuantity(ctx, "2", 0)
	store.Remove(ctx, "1")
	store.Clear(ctx)
	unsubscribe()
	unsubscribe()
	store.AddOne(ctx, "3")

	assert.Equal(t, []int{2, 3, 1, 0}, seen)
}

func TestRandomOperationsKeepInvariants(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)
	rng := rand.New(rand.NewSource(42))
	ids := []string{"1", "2", "3", "4"}

	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		qty := rng.Intn(7) - 3
		switch rng.Intn(3) {
		case 0:
			store.Add(ctx, id, qty)
		case 1:
			store.Remove(ctx, id)
		default:
			store.SetQuantity(ctx, id, qty)
		}

		lines, _ := store.Lines(ctx)
		sum := 0
		seen := map[types.ID]bool{}
		for _, line := range lines {
			require.GreaterOrEqual(t, line.Quantity, 1)
			require.False(t, seen[line.ProductID], "duplicate line %s", line.ProductID)
			seen[line.ProductID] = true
			sum += line.Quantity
		}
		count, _ := store.Count(ctx)
		require.Equal(t, sum, count)
	}
}

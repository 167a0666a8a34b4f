package kvstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	file, err := NewFile(filepath.Join(t.TempDir(), "nested", "storage.json"))
	require.NoError(t, err)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&Entry{}))

	return map[string]Store{
		"memory": NewMemory(),
		"file":   file,
		"sql":    NewSQL(conn, "storefront"),
		"redis":  NewRedis(newFakeRedis(), "storefront", 0),
	}
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "cart")
			require.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, store.Set(ctx, "cart", `[{"id":"1","quantity":1}]`))
			got, err := store.Get(ctx, "cart")
			require.NoError(t, err)
			assert.Equal(t, `[{"id":"1","quantity":1}]`, got)

			require.NoError(t, store.Set(ctx, "cart", `[]`))
			got, err = store.Get(ctx, "cart")
			require.NoError(t, err)
			assert.Equal(t, `[]`, got)

			require.NoError(t, store.Set(ctx, "token", "abc"))
			require.NoError(t, store.Delete(ctx, "cart"))
			_, err = store.Get(ctx, "cart")
			require.ErrorIs(t, err, ErrNotFound)

			token, err := store.Get(ctx, "token")
			require.NoError(t, err)
			assert.Equal(t, "abc", token)

			require.NoError(t, store.Delete(ctx, "missing"))
		})
	}
}

func TestFileSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")

	first, err := NewFile(path)
	require.NoError(t, err)
	require.NoError(t, first.Set(ctx, "cart", "persisted"))

	second, err := NewFile(path)
	require.NoError(t, err)
	got, err := second.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "persisted", got)
}

func TestFileCorruptDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "storage.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	store, err := NewFile(path)
	require.NoError(t, err)

	_, err = store.Get(ctx, "cart")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, store.Set(ctx, "cart", "fresh"))
	got, err := store.Get(ctx, "cart")
	require.NoError(t, err)
	assert.Equal(t, "fresh", got)
}

func TestSQLNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	conn, err := gorm.Open(sqlite.Open("file:TestSQLNamespacesAreIsolated?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, conn.AutoMigrate(&Entry{}))

	a := NewSQL(conn, "a")
	b := NewSQL(conn, "b")
	require.NoError(t, a.Set(ctx, "cart", "from-a"))

	_, err = b.Get(ctx, "cart")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisUsesNamespacedKeysAndTTL(t *testing.T) {
	ctx := context.Background()
	fake := newFakeRedis()
	store := NewRedis(fake, "storefront", time.Hour)

	require.NoError(t, store.Set(ctx, "cart", "v"))
	assert.Equal(t, "v", fake.data["test:storefront:cart"])
	assert.Equal(t, time.Hour, fake.ttls["test:storefront:cart"])
}

type fakeRedis struct {
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeRedis) StorageKey(namespace, key string) string {
	return "test:" + namespace + ":" + key
}

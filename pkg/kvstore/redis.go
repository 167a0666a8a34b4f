package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of pkg/redis.Client the Redis backend needs.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	StorageKey(namespace, key string) string
}

// Redis stores values as plain strings under namespaced keys.
type Redis struct {
	client    RedisClient
	namespace string
	ttl       time.Duration
}

// NewRedis builds a Redis-backed store. A zero ttl keeps values until deleted.
func NewRedis(client RedisClient, namespace string, ttl time.Duration) *Redis {
	return &Redis{client: client, namespace: namespace, ttl: ttl}
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	value, err := r.client.Get(ctx, r.client.StorageKey(r.namespace, key))
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.client.StorageKey(r.namespace, key), value, r.ttl)
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.client.StorageKey(r.namespace, key))
}

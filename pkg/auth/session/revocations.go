// Package session tracks signed-out access tokens so a logout takes effect
// before the token expires.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	redisclient "github.com/angelmondragon/cheetah-storefront/pkg/redis"
	redislib "github.com/redis/go-redis/v9"
)

const revokedMarker = "1"

type revocationStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

type revocationKeyer interface {
	RevokedTokenKey(jti string) string
}

// RevocationChecker exposes the read-only surface needed by middleware.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// Revocations records revoked token ids in Redis until the token would have
// expired anyway.
type Revocations struct {
	store revocationStore
	keyer revocationKeyer
}

// NewRevocations constructs a revocation list backed by Redis.
func NewRevocations(client *redisclient.Client) (*Revocations, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &Revocations{store: client, keyer: client}, nil
}

// Revoke marks jti as signed out. expiresAt bounds how long the marker lives;
// a token that has already expired needs no marker.
func (r *Revocations) Revoke(ctx context.Context, jti string, expiresAt, now time.Time) error {
	if strings.TrimSpace(jti) == "" {
		return fmt.Errorf("token id is required")
	}
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return nil
	}
	return r.store.Set(ctx, r.keyer.RevokedTokenKey(jti), revokedMarker, ttl)
}

// IsRevoked reports whether jti was signed out.
func (r *Revocations) IsRevoked(ctx context.Context, jti string) (bool, error) {
	if strings.TrimSpace(jti) == "" {
		return false, fmt.Errorf("token id is required")
	}
	if _, err := r.store.Get(ctx, r.keyer.RevokedTokenKey(jti)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

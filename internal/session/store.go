package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/angelmondragon/cheetah-storefront/pkg/kvstore"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

// Storage keys for the persisted session.
const (
	TokenKey = "token"
	UserKey  = "user"
)

// Store persists the bearer token and the signed-in user next to the cart.
// It satisfies apiclient.TokenSource.
type Store struct {
	kv kvstore.Store
}

// NewStore binds the session to a key-value backend.
func NewStore(kv kvstore.Store) (*Store, error) {
	if kv == nil {
		return nil, fmt.Errorf("kv store required")
	}
	return &Store{kv: kv}, nil
}

// Token returns the stored bearer token, empty when signed out or unreadable.
func (s *Store) Token(ctx context.Context) string {
	token, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(token)
}

// User returns the stored user. ok is false when none is stored or the
// document cannot be parsed.
func (s *Store) User(ctx context.Context) (types.User, bool) {
	raw, err := s.kv.Get(ctx, UserKey)
	if err != nil {
		return types.User{}, false
	}
	var user types.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return types.User{}, false
	}
	return user, true
}

// Save persists the token and user together.
func (s *Store) Save(ctx context.Context, token string, user types.User) error {
	payload, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := s.kv.Set(ctx, TokenKey, token); err != nil {
		return err
	}
	return s.kv.Set(ctx, UserKey, string(payload))
}

// Clear removes both keys.
func (s *Store) Clear(ctx context.Context) error {
	return errors.Join(s.kv.Delete(ctx, TokenKey), s.kv.Delete(ctx, UserKey))
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/cheetah-storefront/api/responses"
	pkgAuth "github.com/angelmondragon/cheetah-storefront/pkg/auth"
	"github.com/angelmondragon/cheetah-storefront/pkg/auth/session"
	"github.com/angelmondragon/cheetah-storefront/pkg/config"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
// Requests without a valid, unrevoked token are rejected.
func Auth(cfg config.JWTConfig, revocations session.RevocationChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := verify(r.Context(), cfg, revocations, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), claims, logg)))
		})
	}
}

// OptionalAuth attaches claims when a valid bearer token is present and lets
// anonymous requests through. A token that is present but invalid is rejected.
func OptionalAuth(cfg config.JWTConfig, revocations session.RevocationChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := verify(r.Context(), cfg, revocations, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(withActor(r.Context(), claims, logg)))
		})
	}
}

func bearerToken(r *http.Request) string {
	token := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(token), "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token
}

func verify(ctx context.Context, cfg config.JWTConfig, revocations session.RevocationChecker, token string) (*pkgAuth.AccessTokenClaims, error) {
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token id")
	}
	if revocations != nil {
		revoked, err := revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check token revocation")
		}
		if revoked {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "token revoked")
		}
	}
	return claims, nil
}

func withActor(ctx context.Context, claims *pkgAuth.AccessTokenClaims, logg *logger.Logger) context.Context {
	ctx = WithClaims(ctx, claims)
	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{
			"user_id":    claims.UserID.String(),
			"actor_role": string(claims.Role),
		})
	}
	return ctx
}

package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/logger"
	"github.com/angelmondragon/cheetah-storefront/pkg/metrics"
	"github.com/angelmondragon/cheetah-storefront/pkg/types"
)

const (
	serviceName     = "auth"
	mockTokenPrefix = "mock_token_"
)

type transport interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
}

// Result is a resolved identity. IsMock marks identities produced without
// the API.
type Result struct {
	User    types.User
	IsMock  bool
	Outcome enums.Outcome
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone,omitempty"`
}

// Service signs users in and out.
type Service interface {
	Login(ctx context.Context, email, password string) (Result, error)
	Register(ctx context.Context, input RegisterInput) (Result, error)
	// Me resolves the stored session against the API; nil when signed out.
	Me(ctx context.Context) (*Result, error)
	Logout(ctx context.Context) error
}

// Options selects offline behaviour.
type Options struct {
	// DevMode lets sign-in fall back to the demo identities when the API is
	// unreachable.
	DevMode bool
	// Mock skips the API entirely.
	Mock    bool
	Logger  *logger.Logger
	Metrics *metrics.ClientMetrics
	Now     func() time.Time
}

type service struct {
	api   transport
	store *Store
	opts  Options
	logg  *logger.Logger
	now   func() time.Time
}

// NewService builds the session client.
func NewService(api transport, store *Store, opts Options) (Service, error) {
	if api == nil && !opts.Mock {
		return nil, fmt.Errorf("api client required")
	}
	if store == nil {
		return nil, fmt.Errorf("session store required")
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &service{api: api, store: store, opts: opts, logg: logg, now: now}, nil
}

func (s *service) Login(ctx context.Context, email, password string) (Result, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return Result{Outcome: enums.OutcomeFailed}, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}
	if s.opts.Mock {
		return s.mockLogin(ctx, email, metrics.ReasonMock)
	}

	var auth types.AuthResult
	err := s.api.Post(ctx, "/auth/login", map[string]string{"email": email, "password": password}, &auth)
	if err != nil {
		if s.offline(err) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth api unreachable, using demo identity")
			return s.mockLogin(ctx, email, metrics.ReasonTransport)
		}
		return Result{Outcome: enums.OutcomeFailed}, err
	}
	return s.accept(ctx, auth)
}

func (s *service) Register(ctx context.Context, input RegisterInput) (Result, error) {
	input.Email = strings.TrimSpace(input.Email)
	if input.Email == "" || input.Password == "" {
		return Result{Outcome: enums.OutcomeFailed}, pkgerrors.New(pkgerrors.CodeValidation, "email and password are required")
	}
	if s.opts.Mock {
		return s.mockRegister(ctx, input, metrics.ReasonMock)
	}

	var auth types.AuthResult
	if err := s.api.Post(ctx, "/auth/register", input, &auth); err != nil {
		if s.offline(err) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "auth api unreachable, registering locally")
			return s.mockRegister(ctx, input, metrics.ReasonTransport)
		}
		return Result{Outcome: enums.OutcomeFailed}, err
	}
	return s.accept(ctx, auth)
}

func (s *service) Me(ctx context.Context) (*Result, error) {
	if s.store.Token(ctx) == "" {
		return nil, nil
	}
	if s.opts.Mock {
		return s.storedResult(ctx, metrics.ReasonMock)
	}

	var user types.User
	err := s.api.Get(ctx, "/auth/me", nil, &user)
	if err != nil {
		if s.offline(err) {
			return s.storedResult(ctx, metrics.ReasonTransport)
		}
		s.clear(ctx)
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "failed to get user data")
	}
	if err := ValidateUser(user); err != nil {
		s.clear(ctx)
		return nil, err
	}
	return &Result{User: user, Outcome: enums.OutcomeSuccess}, nil
}

// Logout revokes the token server-side when it came from the API, then clears
// local state. Revocation failures are logged and never block sign-out.
func (s *service) Logout(ctx context.Context) error {
	token := s.store.Token(ctx)
	if token != "" && !s.opts.Mock && !strings.HasPrefix(token, mockTokenPrefix) {
		if err := s.api.Post(ctx, "/auth/logout", nil, nil); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "revoke session token")
		}
	}
	return s.store.Clear(ctx)
}

func (s *service) accept(ctx context.Context, auth types.AuthResult) (Result, error) {
	if err := ValidateUser(auth.User); err != nil {
		return Result{Outcome: enums.OutcomeFailed}, err
	}
	if strings.TrimSpace(auth.Token) == "" {
		return Result{Outcome: enums.OutcomeFailed}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing token")
	}
	outcome := enums.OutcomeSuccess
	if err := s.store.Save(ctx, auth.Token, auth.User); err != nil {
		s.logg.Error(ctx, "persist session", err)
		outcome = enums.OutcomeDegraded
	}
	s.logg.Info(s.logg.WithRole(s.logg.WithUserID(ctx, auth.User.ID.String()), auth.User.Role.String()), "signed in")
	return Result{User: auth.User, Outcome: outcome}, nil
}

func (s *service) mockLogin(ctx context.Context, email, reason string) (Result, error) {
	user, ok := DemoUser(email)
	if !ok {
		return Result{Outcome: enums.OutcomeFailed}, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid email or password")
	}
	return s.acceptMock(ctx, user, "login", reason)
}

func (s *service) mockRegister(ctx context.Context, input RegisterInput, reason string) (Result, error) {
	base, _ := DemoUser("demo@example.com")
	user := types.User{
		ID:        types.ID(fmt.Sprintf("%d", s.now().UnixMilli())),
		Email:     input.Email,
		FirstName: firstNonEmpty(input.FirstName, base.FirstName),
		LastName:  firstNonEmpty(input.LastName, base.LastName),
		Phone:     firstNonEmpty(input.Phone, base.Phone),
		Role:      enums.UserRoleUser,
	}
	return s.acceptMock(ctx, user, "register", reason)
}

func (s *service) acceptMock(ctx context.Context, user types.User, operation, reason string) (Result, error) {
	s.opts.Metrics.IncFallback(serviceName, operation, reason)
	token := fmt.Sprintf("%s%d", mockTokenPrefix, s.now().UnixMilli())
	if err := s.store.Save(ctx, token, user); err != nil {
		s.logg.Error(ctx, "persist session", err)
	}
	return Result{User: user, IsMock: true, Outcome: enums.OutcomeDegraded}, nil
}

func (s *service) storedResult(ctx context.Context, reason string) (*Result, error) {
	user, ok := s.store.User(ctx)
	if !ok {
		return nil, nil
	}
	if err := ValidateUser(user); err != nil {
		s.clear(ctx)
		return nil, err
	}
	s.opts.Metrics.IncFallback(serviceName, "me", reason)
	return &Result{User: user, IsMock: true, Outcome: enums.OutcomeDegraded}, nil
}

func (s *service) offline(err error) bool {
	return s.opts.DevMode && pkgerrors.IsTransport(err)
}

func (s *service) clear(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		s.logg.Error(ctx, "clear session", err)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/angelmondragon/cheetah-storefront/internal/users"
	pkgAuth "github.com/angelmondragon/cheetah-storefront/pkg/auth"
	"github.com/angelmondragon/cheetah-storefront/pkg/config"
	"github.com/angelmondragon/cheetah-storefront/pkg/db/models"
	"github.com/angelmondragon/cheetah-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/cheetah-storefront/pkg/errors"
	"github.com/angelmondragon/cheetah-storefront/pkg/security"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var testJWT = config.JWTConfig{
	Secret:            "secret",
	Issuer:            "cheetah",
	ExpirationMinutes: 30,
}

func testHasher() *security.Hasher {
	return security.NewHasher(config.PasswordConfig{ArgonMemoryKB: 8, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 8, ArgonKeyLen: 16})
}

func TestServiceLoginIssuesRoleClaim(t *testing.T) {
	hasher := testHasher()
	repo := newStubUserRepo()
	user := repo.add(t, hasher, "delivery@example.com", "delivery-secret", enums.UserRoleDelivery)

	svc := buildTestService(t, repo, hasher, nil)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    " Delivery@Example.com ",
		Password: "delivery-secret",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.Token)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleDelivery {
		t.Fatalf("expected delivery role claim, got %s", claims.Role)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %s, got %s", user.ID, claims.UserID)
	}
	if resp.User.Email != "delivery@example.com" || resp.User.Role != enums.UserRoleDelivery {
		t.Fatalf("unexpected user in response: %+v", resp.User)
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	hasher := testHasher()
	repo := newStubUserRepo()
	repo.add(t, hasher, "demo@example.com", "password123", enums.UserRoleUser)
	svc := buildTestService(t, repo, hasher, nil)

	cases := []LoginRequest{
		{Email: "demo@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "password123"},
		{Email: "", Password: "password123"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
			t.Fatalf("expected unauthorized for %q, got %v", req.Email, err)
		}
		if typed.Message() != invalidCredentialsMessage {
			t.Fatalf("expected uniform message, got %q", typed.Message())
		}
	}
}

func TestServiceLoginSurfacesRepoFailure(t *testing.T) {
	repo := newStubUserRepo()
	repo.err = errors.New("connection refused")
	svc := buildTestService(t, repo, testHasher(), nil)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "demo@example.com", Password: "password123"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

func TestServiceRegisterCreatesShopper(t *testing.T) {
	repo := newStubUserRepo()
	svc := buildTestService(t, repo, testHasher(), nil)

	resp, err := svc.Register(context.Background(), RegisterRequest{
		Email:     "New@Example.com",
		Password:  "password123",
		FirstName: "New",
		LastName:  "Shopper",
		Phone:     "+355 69 000 0000",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Role != enums.UserRoleUser {
		t.Fatalf("expected user role, got %s", resp.User.Role)
	}
	if resp.User.Email != "new@example.com" {
		t.Fatalf("expected normalised email, got %s", resp.User.Email)
	}
	if resp.Token == "" {
		t.Fatalf("expected token")
	}

	_, err = svc.Register(context.Background(), RegisterRequest{
		Email:     "new@example.com",
		Password:  "password123",
		FirstName: "Again",
		LastName:  "Shopper",
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestServiceRegisterValidates(t *testing.T) {
	svc := buildTestService(t, newStubUserRepo(), testHasher(), nil)

	cases := []RegisterRequest{
		{Email: "", Password: "password123", FirstName: "A", LastName: "B"},
		{Email: "a@example.com", Password: "short", FirstName: "A", LastName: "B"},
		{Email: "a@example.com", Password: "password123", FirstName: " ", LastName: "B"},
	}
	for _, req := range cases {
		if _, err := svc.Register(context.Background(), req); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("expected validation error for %+v, got %v", req, err)
		}
	}
}

func TestServiceMe(t *testing.T) {
	hasher := testHasher()
	repo := newStubUserRepo()
	user := repo.add(t, hasher, "admin@example.com", "password123", enums.UserRoleAdmin)
	svc := buildTestService(t, repo, hasher, nil)

	me, err := svc.Me(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("me: %v", err)
	}
	if me.Role != enums.UserRoleAdmin {
		t.Fatalf("unexpected role %s", me.Role)
	}

	if _, err := svc.Me(context.Background(), uuid.New()); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}

func TestServiceLogoutRevokesUntilExpiry(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rev := &stubRevoker{}
	svc, err := NewService(ServiceParams{
		UserRepo:    newStubUserRepo(),
		Hasher:      testHasher(),
		Revocations: rev,
		JWTConfig:   testJWT,
		Now:         func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	claims := &pkgAuth.AccessTokenClaims{
		UserID: uuid.New(),
		Role:   enums.UserRoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "jti-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(20 * time.Minute)),
		},
	}
	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if rev.jti != "jti-1" || !rev.expiresAt.Equal(now.Add(20*time.Minute)) {
		t.Fatalf("unexpected revocation %+v", rev)
	}

	rev.err = errors.New("redis down")
	if err := svc.Logout(context.Background(), claims); !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestServiceLogoutWithoutRevocationsIsNoop(t *testing.T) {
	svc := buildTestService(t, newStubUserRepo(), testHasher(), nil)
	claims := &pkgAuth.AccessTokenClaims{RegisteredClaims: jwt.RegisteredClaims{ID: "jti"}}
	if err := svc.Logout(context.Background(), claims); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := svc.Logout(context.Background(), nil); !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized without claims, got %v", err)
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{Hasher: testHasher()}); err == nil {
		t.Fatalf("expected error without user repo")
	}
	if _, err := NewService(ServiceParams{UserRepo: newStubUserRepo()}); err == nil {
		t.Fatalf("expected error without hasher")
	}
}

func buildTestService(t *testing.T, repo userRepository, hasher *security.Hasher, rev revoker) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		UserRepo:    repo,
		Hasher:      hasher,
		Revocations: rev,
		JWTConfig:   testJWT,
	})
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	return svc
}

type stubUserRepo struct {
	byEmail map[string]*models.User
	err     error
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{byEmail: make(map[string]*models.User)}
}

func (s *stubUserRepo) add(t *testing.T, hasher *security.Hasher, email, password string, role enums.UserRole) *models.User {
	t.Helper()
	hash, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := users.CreateUserDTO{Email: email, PasswordHash: hash, FirstName: "Test", LastName: "User", Role: role}.ToModel()
	s.byEmail[user.Email] = user
	return user
}

func (s *stubUserRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	user := dto.ToModel()
	s.byEmail[user.Email] = user
	return user, nil
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if user, ok := s.byEmail[users.NormalizeEmail(email)]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	for _, user := range s.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

type stubRevoker struct {
	jti       string
	expiresAt time.Time
	err       error
}

func (s *stubRevoker) Revoke(ctx context.Context, jti string, expiresAt, now time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.jti = jti
	s.expiresAt = expiresAt
	return nil
}

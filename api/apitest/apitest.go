// Package apitest runs the REST API against a seeded in-memory database.
package apitest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/angelmondragon/cheetah-storefront/api"
	"github.com/angelmondragon/cheetah-storefront/internal/seed"
	"github.com/angelmondragon/cheetah-storefront/pkg/config"
	"github.com/angelmondragon/cheetah-storefront/pkg/db"
	"github.com/angelmondragon/cheetah-storefront/pkg/db/dbtest"
	"github.com/angelmondragon/cheetah-storefront/pkg/security"
)

// SeedPassword is the password of every demo account.
const SeedPassword = "password123"

// Env is a running API server.
type Env struct {
	Server *httptest.Server
	DB     *gorm.DB
	Config *config.Config
}

// URL returns the API base URL, including the /api prefix.
func (e *Env) URL() string {
	return e.Server.URL + "/api"
}

// Config returns a configuration suitable for tests: cheap password hashing
// and no Redis.
func Config() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev, LogLevel: "error"},
		DB:  config.DBConfig{Driver: config.DBDriverSQLite},
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "cheetah-test", ExpirationMinutes: 60},
		Password: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     8,
			ArgonKeyLen:      16,
		},
	}
}

// Start seeds a fresh database and serves the API until the test ends.
func Start(t testing.TB) *Env {
	t.Helper()
	cfg := Config()
	conn := dbtest.Open(t)
	hasher := security.NewHasher(cfg.Password)
	if _, err := seed.Run(context.Background(), conn, hasher, SeedPassword, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	handler, err := api.NewHandler(api.HandlerParams{
		Config:   cfg,
		DB:       db.Wrap(conn, config.DBDriverSQLite),
		Hasher:   hasher,
		Registry: prometheus.NewRegistry(),
		Now:      time.Now,
	})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &Env{Server: srv, DB: conn, Config: cfg}
}

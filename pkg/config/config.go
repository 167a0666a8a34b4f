package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	API           APIConfig
	Cart          CartConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadClient reads only the storefront client settings. The backend sections
// (database, JWT, Redis) are not required by a client process.
func LoadClient() (*ClientConfig, error) {
	var cfg ClientConfig
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing client config: %w", err)
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	if strings.EqualFold(cfg.Cart.Backend, CartBackendSQL) {
		if err := cfg.DB.ensureDSN(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// ClientConfig is the subset of Config a storefront client needs.
type ClientConfig struct {
	App   AppConfig
	API   APIConfig
	Cart  CartConfig
	Redis RedisConfig
	DB    DBConfig
}

type AppConfig struct {
	Env          string `envconfig:"CHEETAH_APP_ENV" required:"true"`
	Port         string `envconfig:"CHEETAH_APP_PORT" default:"5000"`
	LogLevel     string `envconfig:"CHEETAH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CHEETAH_LOG_WARN_STACK" default:"false"`

	CORSOrigins     []string      `envconfig:"CHEETAH_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `envconfig:"CHEETAH_SHUTDOWN_TIMEOUT" default:"15s"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig describes how the storefront client reaches the REST backend.
type APIConfig struct {
	BaseURL                  string        `envconfig:"CHEETAH_API_URL" default:"http://localhost:5000/api"`
	Timeout                  time.Duration `envconfig:"CHEETAH_API_TIMEOUT" default:"10s"`
	EnableMock               bool          `envconfig:"CHEETAH_API_ENABLE_MOCK" default:"false"`
	EnableLogging            bool          `envconfig:"CHEETAH_API_ENABLE_LOGGING" default:"false"`
	FallbackOnTransportError bool          `envconfig:"CHEETAH_API_FALLBACK_ON_TRANSPORT_ERROR" default:"true"`
}

type CartConfig struct {
	Backend   string `envconfig:"CHEETAH_CART_BACKEND" default:"file"`
	FilePath  string `envconfig:"CHEETAH_CART_FILE_PATH" default:".cheetah/storage.json"`
	Namespace string `envconfig:"CHEETAH_CART_NAMESPACE" default:"storefront"`
}

func (c CartConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case CartBackendMemory, CartBackendFile, CartBackendRedis, CartBackendSQL:
		return nil
	default:
		return fmt.Errorf("%s must be one of %s", EnvCartBackend, strings.Join(cartBackends, ", "))
	}
}

type DBConfig struct {
	DSN    string `envconfig:"CHEETAH_DB_DSN"`
	Driver string `envconfig:"CHEETAH_DB_DRIVER" default:"sqlite"`

	LegacyHost     string `envconfig:"CHEETAH_DB_HOST"`
	LegacyPort     int    `envconfig:"CHEETAH_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CHEETAH_DB_USER"`
	LegacyPassword string `envconfig:"CHEETAH_DB_PASSWORD"`
	LegacyName     string `envconfig:"CHEETAH_DB_NAME"`
	LegacySSLMode  string `envconfig:"CHEETAH_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CHEETAH_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CHEETAH_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CHEETAH_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CHEETAH_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(db.Driver, DBDriverSQLite)
}

// RedisConfig is optional; an empty URL and address disables Redis-backed features.
type RedisConfig struct {
	URL          string        `envconfig:"CHEETAH_REDIS_URL"`
	Address      string        `envconfig:"CHEETAH_REDIS_ADDR"`
	Password     string        `envconfig:"CHEETAH_REDIS_PASSWORD"`
	DB           int           `envconfig:"CHEETAH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CHEETAH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CHEETAH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CHEETAH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CHEETAH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CHEETAH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type JWTConfig struct {
	Secret            string `envconfig:"CHEETAH_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"CHEETAH_JWT_ISSUER" default:"cheetah"`
	ExpirationMinutes int    `envconfig:"CHEETAH_JWT_EXPIRATION_MINUTES" default:"1440"`
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"CHEETAH_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"CHEETAH_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"CHEETAH_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"CHEETAH_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"CHEETAH_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"CHEETAH_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"CHEETAH_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"CHEETAH_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"CHEETAH_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"CHEETAH_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"CHEETAH_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// CronConfig drives cmd/cron-worker.
type CronConfig struct {
	Interval        time.Duration `envconfig:"CHEETAH_CRON_INTERVAL" default:"15m"`
	LockTTL         time.Duration `envconfig:"CHEETAH_CRON_LOCK_TTL" default:"10m"`
	PendingOrderTTL time.Duration `envconfig:"CHEETAH_PENDING_ORDER_TTL" default:"72h"`
	ExpiryBatchSize int           `envconfig:"CHEETAH_PENDING_ORDER_EXPIRY_BATCH" default:"100"`
}

type FeatureFlagsConfig struct {
	AutoMigrate  bool   `envconfig:"CHEETAH_AUTO_MIGRATE" default:"false"`
	SeedDemoData bool   `envconfig:"CHEETAH_SEED_DEMO_DATA" default:"false"`
	SeedPassword string `envconfig:"CHEETAH_SEED_PASSWORD" default:"password123"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		db.DSN = defaultSQLiteDSN
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

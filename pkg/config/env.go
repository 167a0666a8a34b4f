package config

const (
	EnvPrefix = "CHEETAH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"

	CartBackendMemory = "memory"
	CartBackendFile   = "file"
	CartBackendRedis  = "redis"
	CartBackendSQL    = "sql"

	defaultSQLiteDSN = "file:cheetah.db?cache=shared&_fk=1"
)

const (
	EnvAppEnv       = "CHEETAH_APP_ENV"
	EnvPort         = "CHEETAH_APP_PORT"
	EnvLogLevel     = "CHEETAH_LOG_LEVEL"
	EnvAPIURL       = "CHEETAH_API_URL"
	EnvAPITimeout   = "CHEETAH_API_TIMEOUT"
	EnvAPIMock      = "CHEETAH_API_ENABLE_MOCK"
	EnvAPILogging   = "CHEETAH_API_ENABLE_LOGGING"
	EnvAPIFallback  = "CHEETAH_API_FALLBACK_ON_TRANSPORT_ERROR"
	EnvCartBackend  = "CHEETAH_CART_BACKEND"
	EnvCartFilePath = "CHEETAH_CART_FILE_PATH"
	EnvDBDSN        = "CHEETAH_DB_DSN"
	EnvDBDriver     = "CHEETAH_DB_DRIVER"
	EnvDBHost       = "CHEETAH_DB_HOST"
	EnvDBUser       = "CHEETAH_DB_USER"
	EnvDBName       = "CHEETAH_DB_NAME"
	EnvDBPassword   = "CHEETAH_DB_PASSWORD"
	EnvRedisURL     = "CHEETAH_REDIS_URL"
	EnvJWTSecret    = "CHEETAH_JWT_SECRET"
	EnvJWTIssuer    = "CHEETAH_JWT_ISSUER"
	EnvJWTExpMins   = "CHEETAH_JWT_EXPIRATION_MINUTES"
	EnvAutoMigrate  = "CHEETAH_AUTO_MIGRATE"
	EnvSeedDemo     = "CHEETAH_SEED_DEMO_DATA"
)

var (
	legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
	cartBackends    = []string{CartBackendMemory, CartBackendFile, CartBackendRedis, CartBackendSQL}
)

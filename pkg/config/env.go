package config

// EnvPrefix is handed to envconfig; every field also carries an explicit envconfig tag.
const EnvPrefix = "MEDCARE"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv   = "MEDCARE_APP_ENV"
	EnvPort     = "MEDCARE_APP_PORT"
	EnvLogLevel = "MEDCARE_LOG_LEVEL"

	EnvDBDSN    = "MEDCARE_DB_DSN"
	EnvDBDriver = "MEDCARE_DB_DRIVER"
	EnvDBHost   = "MEDCARE_DB_HOST"
	EnvDBPort   = "MEDCARE_DB_PORT"
	EnvDBUser   = "MEDCARE_DB_USER"
	EnvDBName   = "MEDCARE_DB_NAME"

	EnvRedisURL  = "MEDCARE_REDIS_URL"
	EnvRedisAddr = "MEDCARE_REDIS_ADDR"

	EnvCORSOrigins = "MEDCARE_CORS_ALLOWED_ORIGINS"

	EnvNumberMaxAttempts  = "MEDCARE_APPLICATION_NUMBER_MAX_ATTEMPTS"
	EnvAutoMigrate        = "MEDCARE_AUTO_MIGRATE"
	EnvIdempotencyEnabled = "MEDCARE_IDEMPOTENCY_ENABLED"
	EnvIdempotencyTTL     = "MEDCARE_IDEMPOTENCY_TTL"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

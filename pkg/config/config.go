package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	HTTP         HTTPConfig
	Workflow     WorkflowConfig
	FeatureFlags FeatureFlagsConfig
	Idempotency  IdempotencyConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if cfg.Workflow.NumberMaxAttempts < 1 {
		return nil, fmt.Errorf("%s must be at least 1", EnvNumberMaxAttempts)
	}
	if cfg.FeatureFlags.Idempotency && !cfg.Redis.Enabled() {
		return nil, fmt.Errorf("%s requires %s or %s", EnvIdempotencyEnabled, EnvRedisURL, EnvRedisAddr)
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MEDCARE_APP_ENV" required:"true"`
	Port         string `envconfig:"MEDCARE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MEDCARE_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"MEDCARE_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"MEDCARE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"MEDCARE_DB_DSN"`
	Driver string `envconfig:"MEDCARE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MEDCARE_DB_HOST"`
	LegacyPort     int    `envconfig:"MEDCARE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MEDCARE_DB_USER"`
	LegacyPassword string `envconfig:"MEDCARE_DB_PASSWORD"`
	LegacyName     string `envconfig:"MEDCARE_DB_NAME"`
	LegacySSLMode  string `envconfig:"MEDCARE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MEDCARE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MEDCARE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MEDCARE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MEDCARE_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQueryThreshold logs statements slower than this at warn; zero disables.
	SlowQueryThreshold time.Duration `envconfig:"MEDCARE_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

// IsSQLite reports whether the sqlite driver is selected.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"MEDCARE_REDIS_URL"`
	Address      string        `envconfig:"MEDCARE_REDIS_ADDR"`
	Password     string        `envconfig:"MEDCARE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MEDCARE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MEDCARE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MEDCARE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MEDCARE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MEDCARE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MEDCARE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint is configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type HTTPConfig struct {
	AllowedOrigins    []string      `envconfig:"MEDCARE_CORS_ALLOWED_ORIGINS" default:"*"`
	ReadHeaderTimeout time.Duration `envconfig:"MEDCARE_HTTP_READ_HEADER_TIMEOUT" default:"5s"`
	ShutdownTimeout   time.Duration `envconfig:"MEDCARE_HTTP_SHUTDOWN_TIMEOUT" default:"15s"`
}

type WorkflowConfig struct {
	NumberMaxAttempts int `envconfig:"MEDCARE_APPLICATION_NUMBER_MAX_ATTEMPTS" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MEDCARE_AUTO_MIGRATE" default:"false"`
	Idempotency bool `envconfig:"MEDCARE_IDEMPOTENCY_ENABLED" default:"false"`
}

type IdempotencyConfig struct {
	TTL time.Duration `envconfig:"MEDCARE_IDEMPOTENCY_TTL" default:"24h"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}
	if db.IsSQLite() {
		return fmt.Errorf("%s is required for the sqlite driver", EnvDBDSN)
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

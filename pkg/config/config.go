package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "IDENTRA"

	AppEnvDev  = "dev"
	AppEnvProd = "production"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Stripe       StripeConfig
	Billing      BillingConfig
	Cron         CronConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"IDENTRA_APP_ENV" required:"true"`
	Port         string `envconfig:"IDENTRA_APP_PORT" default:"8000"`
	LogLevel     string `envconfig:"IDENTRA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"IDENTRA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"IDENTRA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN string `envconfig:"IDENTRA_DB_DSN"`

	Host     string `envconfig:"IDENTRA_DB_HOST"`
	Port     int    `envconfig:"IDENTRA_DB_PORT" default:"5432"`
	User     string `envconfig:"IDENTRA_DB_USER"`
	Password string `envconfig:"IDENTRA_DB_PASSWORD"`
	Name     string `envconfig:"IDENTRA_DB_NAME"`
	SSLMode  string `envconfig:"IDENTRA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"IDENTRA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"IDENTRA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"IDENTRA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"IDENTRA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("either IDENTRA_DB_DSN or host/user/name parts are required")
	}
	d.DSN = fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"IDENTRA_REDIS_URL"`
	Address      string        `envconfig:"IDENTRA_REDIS_ADDR"`
	Password     string        `envconfig:"IDENTRA_REDIS_PASSWORD"`
	DB           int           `envconfig:"IDENTRA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"IDENTRA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"IDENTRA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"IDENTRA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"IDENTRA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"IDENTRA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"IDENTRA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"IDENTRA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"IDENTRA_JWT_EXPIRATION_MINUTES" default:"60"`
}

type StripeConfig struct {
	APIKey string `envconfig:"IDENTRA_STRIPE_API_KEY"`
	Secret string `envconfig:"IDENTRA_STRIPE_WEBHOOK_SECRET"`
	Env    string `envconfig:"IDENTRA_STRIPE_ENV" default:"test"`
}

// Environment reports the configured Stripe environment string.
func (s StripeConfig) Environment() string {
	return s.Env
}

type BillingConfig struct {
	// DefaultGracePeriodDays seeds new recurring subscription records.
	DefaultGracePeriodDays int           `envconfig:"IDENTRA_BILLING_DEFAULT_GRACE_DAYS" default:"7"`
	WebhookIdempotencyTTL  time.Duration `envconfig:"IDENTRA_BILLING_WEBHOOK_IDEMPOTENCY_TTL" default:"720h"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"IDENTRA_CRON_INTERVAL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"IDENTRA_AUTO_MIGRATE" default:"false"`
}

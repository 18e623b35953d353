package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
	GroupOrders  GroupOrdersConfig
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
	Env          string `envconfig:"VENDORCONNECT_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDORCONNECT_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDORCONNECT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDORCONNECT_LOG_WARN_STACK" default:"false"`

	ExtraCORSOrigins []string `envconfig:"VENDORCONNECT_EXTRA_CORS_ORIGINS"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"VENDORCONNECT_DB_DSN"`
	Driver string `envconfig:"VENDORCONNECT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"VENDORCONNECT_DB_HOST"`
	Port     int    `envconfig:"VENDORCONNECT_DB_PORT" default:"5432"`
	User     string `envconfig:"VENDORCONNECT_DB_USER"`
	Password string `envconfig:"VENDORCONNECT_DB_PASSWORD"`
	Name     string `envconfig:"VENDORCONNECT_DB_NAME"`
	SSLMode  string `envconfig:"VENDORCONNECT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDORCONNECT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDORCONNECT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORCONNECT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORCONNECT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if d.DSN != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database DSN or host/user/name is required")
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.Name,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	d.DSN = u.String()
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDORCONNECT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDORCONNECT_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORCONNECT_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORCONNECT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORCONNECT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORCONNECT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORCONNECT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORCONNECT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDORCONNECT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret string `envconfig:"VENDORCONNECT_JWT_SECRET" required:"true"`
	Issuer string `envconfig:"VENDORCONNECT_JWT_ISSUER" required:"true"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"VENDORCONNECT_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	GroupOrdersTopic string `envconfig:"VENDORCONNECT_PUBSUB_GROUP_ORDERS_TOPIC" default:"group-orders"`
	OrdersTopic      string `envconfig:"VENDORCONNECT_PUBSUB_ORDERS_TOPIC" default:"orders"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VENDORCONNECT_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VENDORCONNECT_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VENDORCONNECT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"VENDORCONNECT_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"VENDORCONNECT_CRON_LOCK_TTL" default:"10m"`
}

type GroupOrdersConfig struct {
	UpdateRetryBudget   int `envconfig:"VENDORCONNECT_GROUP_ORDER_UPDATE_RETRIES" default:"5"`
	SequenceRetryBudget int `envconfig:"VENDORCONNECT_SEQUENCE_RETRIES" default:"5"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDORCONNECT_FEATURE_AUTO_MIGRATE" default:"false"`
}

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Square       SquareConfig
	Escrow       EscrowConfig
	FeatureFlags FeatureFlagsConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"WKS_APP_ENV" required:"true"`
	Port         string `envconfig:"WKS_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"WKS_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"WKS_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"WKS_DB_DSN"`
	Driver string `envconfig:"WKS_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"WKS_DB_HOST"`
	Port     int    `envconfig:"WKS_DB_PORT" default:"5432"`
	User     string `envconfig:"WKS_DB_USER"`
	Password string `envconfig:"WKS_DB_PASSWORD"`
	Name     string `envconfig:"WKS_DB_NAME"`
	SSLMode  string `envconfig:"WKS_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"WKS_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"WKS_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"WKS_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"WKS_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (d *DBConfig) ensureDSN() error {
	if strings.TrimSpace(d.DSN) != "" {
		return nil
	}
	if d.Host == "" || d.User == "" || d.Name == "" {
		return fmt.Errorf("database config requires WKS_DB_DSN or host/user/name")
	}
	d.DSN = fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User),
		url.QueryEscape(d.Password),
		d.Host,
		d.Port,
		d.Name,
		d.SSLMode,
	)
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"WKS_REDIS_URL" required:"true"`
	Password     string        `envconfig:"WKS_REDIS_PASSWORD"`
	DB           int           `envconfig:"WKS_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"WKS_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"WKS_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"WKS_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"WKS_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WKS_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"WKS_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"WKS_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"WKS_JWT_EXPIRATION_MINUTES" default:"60"`
}

// AccessTokenTTL returns the configured access token lifetime.
func (j JWTConfig) AccessTokenTTL() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type SquareConfig struct {
	AccessToken   string `envconfig:"WKS_SQUARE_ACCESS_TOKEN" required:"true"`
	Env           string `envconfig:"WKS_SQUARE_ENV" default:"sandbox"`
	WebhookSecret string `envconfig:"WKS_SQUARE_WEBHOOK_SECRET"`
	LocationID    string `envconfig:"WKS_SQUARE_LOCATION_ID"`
}

func (s SquareConfig) Environment() string {
	return strings.ToLower(strings.TrimSpace(s.Env))
}

// EscrowConfig tunes settlement behavior.
type EscrowConfig struct {
	// PlatformFeeBPS is the marketplace cut in basis points of the order total.
	PlatformFeeBPS int `envconfig:"WKS_ESCROW_PLATFORM_FEE_BPS" default:"500"`
	// DuplicateWindow bounds how far apart a cancelled checkout retry and its
	// successful sibling may be while still treated as duplicates.
	DuplicateWindow time.Duration `envconfig:"WKS_ESCROW_DUPLICATE_WINDOW" default:"30m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"WKS_AUTO_MIGRATE" default:"false"`
}

type GCPConfig struct {
	ProjectID string `envconfig:"WKS_GCP_PROJECT_ID"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"WKS_PUBSUB_ORDERS_TOPIC" default:"order-events"`
}

type OutboxConfig struct {
	PollInterval time.Duration `envconfig:"WKS_OUTBOX_POLL_INTERVAL" default:"5s"`
	BatchSize    int           `envconfig:"WKS_OUTBOX_BATCH_SIZE" default:"100"`
	MaxAttempts  int           `envconfig:"WKS_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"WKS_CRON_INTERVAL" default:"10m"`
	LockKey  string        `envconfig:"WKS_CRON_LOCK_KEY" default:"wks:cron:leader"`
	LockTTL  time.Duration `envconfig:"WKS_CRON_LOCK_TTL" default:"15m"`
}

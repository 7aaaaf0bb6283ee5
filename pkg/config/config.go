package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Settlement   SettlementConfig
	Stripe       StripeConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
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
	Env          string `envconfig:"VENDIMIA_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDIMIA_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDIMIA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDIMIA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VENDIMIA_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VENDIMIA_DB_DSN"`
	Driver string `envconfig:"VENDIMIA_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"VENDIMIA_DB_HOST"`
	Port     int    `envconfig:"VENDIMIA_DB_PORT" default:"5432"`
	User     string `envconfig:"VENDIMIA_DB_USER"`
	Password string `envconfig:"VENDIMIA_DB_PASSWORD"`
	Name     string `envconfig:"VENDIMIA_DB_NAME"`
	SSLMode  string `envconfig:"VENDIMIA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDIMIA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDIMIA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDIMIA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDIMIA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDIMIA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"VENDIMIA_REDIS_ADDR"`
	Password     string        `envconfig:"VENDIMIA_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDIMIA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDIMIA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDIMIA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDIMIA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDIMIA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDIMIA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VENDIMIA_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDIMIA_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDIMIA_JWT_EXPIRATION_MINUTES" default:"60"`
}

// SettlementConfig tunes the settlement engine: scheduler cadence, transfer
// bounds, and retry limits.
type SettlementConfig struct {
	RunInterval       time.Duration `envconfig:"VENDIMIA_SETTLEMENT_RUN_INTERVAL" default:"1h"`
	TransferTimeout   time.Duration `envconfig:"VENDIMIA_SETTLEMENT_TRANSFER_TIMEOUT" default:"30s"`
	MaxAttempts       int           `envconfig:"VENDIMIA_SETTLEMENT_MAX_ATTEMPTS" default:"5"`
	StuckThreshold    time.Duration `envconfig:"VENDIMIA_SETTLEMENT_STUCK_THRESHOLD" default:"15m"`
	VendorConcurrency int           `envconfig:"VENDIMIA_SETTLEMENT_VENDOR_CONCURRENCY" default:"8"`
}

type StripeConfig struct {
	APIKey string `envconfig:"VENDIMIA_STRIPE_API_KEY"`
	Secret string `envconfig:"VENDIMIA_STRIPE_SECRET"`
	Env    string `envconfig:"VENDIMIA_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VENDIMIA_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"VENDIMIA_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VENDIMIA_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementTopic        string `envconfig:"VENDIMIA_PUBSUB_SETTLEMENT_TOPIC" default:"vendimia-settlement-events"`
	SettlementSubscription string `envconfig:"VENDIMIA_PUBSUB_SETTLEMENT_SUBSCRIPTION"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VENDIMIA_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VENDIMIA_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VENDIMIA_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"VENDIMIA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, env := range componentDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}

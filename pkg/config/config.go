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
	Stripe       StripeConfig
	Gift         GiftConfig
	Recon        ReconConfig
	Ops          OpsConfig
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
	Env          string `envconfig:"NUPTIO_APP_ENV" required:"true"`
	Port         string `envconfig:"NUPTIO_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"NUPTIO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"NUPTIO_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"NUPTIO_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"NUPTIO_DB_DSN"`
	Driver string `envconfig:"NUPTIO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"NUPTIO_DB_HOST"`
	LegacyPort     int    `envconfig:"NUPTIO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"NUPTIO_DB_USER"`
	LegacyPassword string `envconfig:"NUPTIO_DB_PASSWORD"`
	LegacyName     string `envconfig:"NUPTIO_DB_NAME"`
	LegacySSLMode  string `envconfig:"NUPTIO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"NUPTIO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"NUPTIO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"NUPTIO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"NUPTIO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"NUPTIO_REDIS_URL" required:"true"`
	Address      string        `envconfig:"NUPTIO_REDIS_ADDR"`
	Password     string        `envconfig:"NUPTIO_REDIS_PASSWORD"`
	DB           int           `envconfig:"NUPTIO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"NUPTIO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"NUPTIO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"NUPTIO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"NUPTIO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"NUPTIO_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type StripeConfig struct {
	APIKey string `envconfig:"NUPTIO_STRIPE_API_KEY"`
	Env    string `envconfig:"NUPTIO_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// GiftConfig governs contribution checkout amounts and fees. Amount fields are
// minor currency units unless named otherwise.
type GiftConfig struct {
	Currency               string `envconfig:"NUPTIO_GIFT_CURRENCY" default:"mxn"`
	BankTransferType       string `envconfig:"NUPTIO_GIFT_BANK_TRANSFER_TYPE" default:"mx_bank_transfer"`
	MinAmountMajor         int64  `envconfig:"NUPTIO_GIFT_MIN_AMOUNT" default:"30"`
	ProcessingFeeCents     int64  `envconfig:"NUPTIO_GIFT_PROCESSING_FEE_CENTS" default:"1000"`
	DefaultCommissionCents int64  `envconfig:"NUPTIO_GIFT_DEFAULT_COMMISSION_CENTS" default:"2000"`
	SuccessURL             string `envconfig:"NUPTIO_GIFT_SUCCESS_URL" default:"https://nuptio.mx/gracias"`
	CancelURL              string `envconfig:"NUPTIO_GIFT_CANCEL_URL" default:"https://nuptio.mx/regalo"`
}

// ReconConfig governs the periodic reconciliation batch.
type ReconConfig struct {
	Interval             time.Duration `envconfig:"NUPTIO_RECON_INTERVAL" default:"1h"`
	PartialWait          time.Duration `envconfig:"NUPTIO_RECON_PARTIAL_WAIT" default:"24h"`
	SweepLookback        time.Duration `envconfig:"NUPTIO_RECON_SWEEP_LOOKBACK" default:"168h"`
	SweepNoiseFloorCents int64         `envconfig:"NUPTIO_RECON_SWEEP_NOISE_FLOOR_CENTS" default:"100"`
	BatchLimit           int           `envconfig:"NUPTIO_RECON_BATCH_LIMIT" default:"250"`
}

type OpsConfig struct {
	ReconcileToken string `envconfig:"NUPTIO_OPS_RECONCILE_TOKEN"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"NUPTIO_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
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

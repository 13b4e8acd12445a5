package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Payouts      PayoutConfig
	Commission   CommissionConfig
	Outbox       OutboxConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	CORS         CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Payouts.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Commission.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"VENDORLEDGER_APP_ENV" required:"true"`
	Port         string `envconfig:"VENDORLEDGER_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"VENDORLEDGER_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"VENDORLEDGER_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"VENDORLEDGER_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"VENDORLEDGER_DB_DSN"`
	Driver string `envconfig:"VENDORLEDGER_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"VENDORLEDGER_DB_HOST"`
	Port     int    `envconfig:"VENDORLEDGER_DB_PORT" default:"5432"`
	User     string `envconfig:"VENDORLEDGER_DB_USER"`
	Password string `envconfig:"VENDORLEDGER_DB_PASSWORD"`
	Name     string `envconfig:"VENDORLEDGER_DB_NAME"`
	SSLMode  string `envconfig:"VENDORLEDGER_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"VENDORLEDGER_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"VENDORLEDGER_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"VENDORLEDGER_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"VENDORLEDGER_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"VENDORLEDGER_REDIS_URL"`
	Address      string        `envconfig:"VENDORLEDGER_REDIS_ADDR"`
	Password     string        `envconfig:"VENDORLEDGER_REDIS_PASSWORD"`
	DB           int           `envconfig:"VENDORLEDGER_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"VENDORLEDGER_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"VENDORLEDGER_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"VENDORLEDGER_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"VENDORLEDGER_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"VENDORLEDGER_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"VENDORLEDGER_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"VENDORLEDGER_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"VENDORLEDGER_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"VENDORLEDGER_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"VENDORLEDGER_AUTO_MIGRATE" default:"false"`
}

// PayoutConfig holds the business limits applied to payout requests.
type PayoutConfig struct {
	MinAmount    decimal.Decimal `envconfig:"VENDORLEDGER_PAYOUT_MIN_AMOUNT" default:"10.00"`
	MaxBulkBatch int             `envconfig:"VENDORLEDGER_PAYOUT_MAX_BULK_BATCH" default:"100"`
}

func (p PayoutConfig) validate() error {
	if p.MinAmount.IsNegative() {
		return fmt.Errorf("%s must not be negative", EnvPayoutMinAmount)
	}
	if p.MaxBulkBatch <= 0 {
		return fmt.Errorf("%s must be positive", EnvPayoutMaxBulkBatch)
	}
	return nil
}

// CommissionConfig holds the write-time ceiling for commission percentages.
type CommissionConfig struct {
	MaxPercent decimal.Decimal `envconfig:"VENDORLEDGER_COMMISSION_MAX_PERCENT" default:"50"`
}

func (c CommissionConfig) validate() error {
	if c.MaxPercent.IsNegative() || c.MaxPercent.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be between 0 and 100", EnvCommissionMaxPercent)
	}
	return nil
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"VENDORLEDGER_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"VENDORLEDGER_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"VENDORLEDGER_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"VENDORLEDGER_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"VENDORLEDGER_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"VENDORLEDGER_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	SettlementTopic string `envconfig:"VENDORLEDGER_PUBSUB_SETTLEMENT_TOPIC" default:"vendor-settlement-events"`
}

// CORSConfig lists the browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"VENDORLEDGER_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
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
	for _, env := range discreteDBEnvVars {
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

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "RAAMUL"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
	StorageDriverRedis    = "redis"

	EnvAppEnv          = "RAAMUL_APP_ENV"
	EnvAPIBaseURL      = "RAAMUL_API_BASE_URL"
	EnvStorageDriver   = "RAAMUL_STORAGE_DRIVER"
	EnvStorageDSN      = "RAAMUL_STORAGE_DSN"
	EnvRedisURL        = "RAAMUL_REDIS_URL"
	EnvPollInterval    = "RAAMUL_CHECKOUT_POLL_INTERVAL"
	EnvPollMaxAttempts = "RAAMUL_CHECKOUT_POLL_MAX_ATTEMPTS"
	EnvSandboxSecret   = "RAAMUL_SANDBOX_JWT_SECRET"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	Upload   UploadConfig
	Storage  StorageConfig
	Redis    RedisConfig
	Checkout CheckoutConfig
	Sandbox  SandboxConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.API.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Storage.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"RAAMUL_APP_ENV" default:"dev"`
	LogLevel     string `envconfig:"RAAMUL_LOG_LEVEL" default:"warn"`
	LogFormat    string `envconfig:"RAAMUL_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"RAAMUL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// APIConfig points the client at the storefront REST API.
type APIConfig struct {
	BaseURL        string        `envconfig:"RAAMUL_API_BASE_URL" default:"https://vault.impalapay.com/api"`
	RequestTimeout time.Duration `envconfig:"RAAMUL_API_REQUEST_TIMEOUT" default:"30s"`
}

func (a APIConfig) validate() error {
	parsed, err := url.Parse(strings.TrimSpace(a.BaseURL))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", EnvAPIBaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("%s must be an http(s) url, got %q", EnvAPIBaseURL, a.BaseURL)
	}
	return nil
}

type UploadConfig struct {
	URL       string `envconfig:"RAAMUL_UPLOAD_URL" default:"https://images.cradlevoices.com"`
	MaxSizeMB int    `envconfig:"RAAMUL_UPLOAD_MAX_MB" default:"10"`
}

// MaxBytes returns the upload size limit in bytes.
func (u UploadConfig) MaxBytes() int64 {
	if u.MaxSizeMB <= 0 {
		return 10 * 1024 * 1024
	}
	return int64(u.MaxSizeMB) * 1024 * 1024
}

// StorageConfig selects where the session, cart and wishlist are kept between runs.
type StorageConfig struct {
	Driver    string `envconfig:"RAAMUL_STORAGE_DRIVER" default:"sqlite"`
	DSN       string `envconfig:"RAAMUL_STORAGE_DSN"`
	Namespace string `envconfig:"RAAMUL_STORAGE_NAMESPACE" default:"raamul"`

	MaxOpenConns    int           `envconfig:"RAAMUL_STORAGE_MAX_OPEN_CONNS" default:"4"`
	MaxIdleConns    int           `envconfig:"RAAMUL_STORAGE_MAX_IDLE_CONNS" default:"2"`
	ConnMaxLifetime time.Duration `envconfig:"RAAMUL_STORAGE_CONN_MAX_LIFETIME" default:"1h"`
}

func (s *StorageConfig) validate() error {
	s.Driver = strings.ToLower(strings.TrimSpace(s.Driver))
	switch s.Driver {
	case StorageDriverSQLite:
		if s.DSN == "" {
			s.DSN = "raamul.db"
		}
	case StorageDriverPostgres:
		if s.DSN == "" {
			return fmt.Errorf("%s is required for the postgres storage driver", EnvStorageDSN)
		}
	case StorageDriverRedis:
	default:
		return fmt.Errorf("unsupported %s %q", EnvStorageDriver, s.Driver)
	}
	return nil
}

type RedisConfig struct {
	URL          string        `envconfig:"RAAMUL_REDIS_URL"`
	Address      string        `envconfig:"RAAMUL_REDIS_ADDR"`
	Password     string        `envconfig:"RAAMUL_REDIS_PASSWORD"`
	DB           int           `envconfig:"RAAMUL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RAAMUL_REDIS_POOL_SIZE" default:"4"`
	MinIdleConns int           `envconfig:"RAAMUL_REDIS_MIN_IDLE_CONNS" default:"1"`
	DialTimeout  time.Duration `envconfig:"RAAMUL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RAAMUL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RAAMUL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Configured reports whether a Redis endpoint was provided.
func (r RedisConfig) Configured() bool {
	return r.URL != "" || r.Address != ""
}

// CheckoutConfig bounds the payment status polling loop.
type CheckoutConfig struct {
	PollInterval    time.Duration `envconfig:"RAAMUL_CHECKOUT_POLL_INTERVAL" default:"3s"`
	PollMaxAttempts int           `envconfig:"RAAMUL_CHECKOUT_POLL_MAX_ATTEMPTS" default:"40"`
	PollMaxWait     time.Duration `envconfig:"RAAMUL_CHECKOUT_POLL_MAX_WAIT" default:"3m"`
	SuccessDelay    time.Duration `envconfig:"RAAMUL_CHECKOUT_SUCCESS_DELAY" default:"2s"`
	ShippingMethod  string        `envconfig:"RAAMUL_CHECKOUT_SHIPPING_METHOD" default:"Standard Delivery"`
}

func (c CheckoutConfig) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("%s must be positive", EnvPollInterval)
	}
	if c.PollMaxAttempts <= 0 && c.PollMaxWait <= 0 {
		return fmt.Errorf("%s or RAAMUL_CHECKOUT_POLL_MAX_WAIT must bound polling", EnvPollMaxAttempts)
	}
	return nil
}

// SandboxConfig drives the local fake of the storefront API.
type SandboxConfig struct {
	Port              string        `envconfig:"RAAMUL_SANDBOX_PORT" default:"8088"`
	JWTSecret         string        `envconfig:"RAAMUL_SANDBOX_JWT_SECRET" default:"sandbox-secret"`
	JWTIssuer         string        `envconfig:"RAAMUL_SANDBOX_JWT_ISSUER" default:"raamul-sandbox"`
	JWTExpiration     time.Duration `envconfig:"RAAMUL_SANDBOX_JWT_EXPIRATION" default:"24h"`
	PaymentScript     []string      `envconfig:"RAAMUL_SANDBOX_PAYMENT_SCRIPT" default:"pending,pending,completed"`
	ArgonMemoryKB     int           `envconfig:"RAAMUL_SANDBOX_ARGON_MEMORY_KB" default:"19456"`
	ArgonTime         int           `envconfig:"RAAMUL_SANDBOX_ARGON_TIME" default:"2"`
	ArgonParallelism  int           `envconfig:"RAAMUL_SANDBOX_ARGON_PARALLELISM" default:"1"`
	ArgonSaltLen      int           `envconfig:"RAAMUL_SANDBOX_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen       int           `envconfig:"RAAMUL_SANDBOX_ARGON_KEY_LEN" default:"32"`
	SeedAdminPassword string        `envconfig:"RAAMUL_SANDBOX_ADMIN_PASSWORD" default:"admin123"`
}

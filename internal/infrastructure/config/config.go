package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	domainErrors "github.com/geniibooks/entitlements/internal/domain/errors"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Billing  BillingConfig
	Pricing  PricingConfig
	Catalog  CatalogConfig
	Sentry   SentryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
	Issuer    string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL          string
	Password     string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// BillingConfig holds billing gateway configuration
type BillingConfig struct {
	APIKey            string
	BaseURL           string
	RequestTimeout    time.Duration
	AppleSharedSecret string
	GoogleKeyJSON     string
	AndroidPackage    string
	WebhookSecret     string
	Production        bool
}

// PricingConfig holds the single-item price table (whole currency units)
type PricingConfig struct {
	SinglePDF   int64
	SingleVideo int64
}

// CatalogConfig holds catalog source configuration. When BundlePath is
// set the bundled JSON catalog is used; otherwise the Postgres catalog.
type CatalogConfig struct {
	BundlePath string
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		// .env file is optional for production (env vars are used)
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate required fields
	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server_port", 8080)
	viper.SetDefault("server_read_timeout", 10*time.Second)
	viper.SetDefault("server_write_timeout", 10*time.Second)
	viper.SetDefault("server_shutdown_timeout", 30*time.Second)

	// JWT defaults
	viper.SetDefault("jwt_access_ttl", 15*time.Minute)
	viper.SetDefault("jwt_issuer", "entitlements-core")

	// Database pool defaults
	db := DefaultDatabaseConfig()
	viper.SetDefault("database_maxconnections", db.MaxConnections)
	viper.SetDefault("database_minconnections", db.MinConnections)
	viper.SetDefault("database_maxlifetime", db.MaxLifetime)
	viper.SetDefault("database_maxidletime", db.MaxIdleTime)
	viper.SetDefault("database_healthcheck", db.HealthCheck)

	// Redis defaults
	viper.SetDefault("redis_pool_size", 10)
	viper.SetDefault("redis_min_idle_conns", 3)
	viper.SetDefault("redis_dial_timeout", 5*time.Second)
	viper.SetDefault("redis_read_timeout", 3*time.Second)
	viper.SetDefault("redis_write_timeout", 3*time.Second)
	viper.SetDefault("redis_pool_timeout", 4*time.Second)

	// Billing defaults
	viper.SetDefault("billing_baseurl", "https://api.revenuecat.com/v1")
	viper.SetDefault("billing_request_timeout", 10*time.Second)
	viper.SetDefault("billing_androidpackage", "com.geniibooks.app")

	// Pricing defaults match the published single-item prices
	viper.SetDefault("pricing_singlepdf", 49)
	viper.SetDefault("pricing_singlevideo", 99)
}

func validate(cfg *Config) error {
	if cfg.JWT.Secret == "" {
		return &domainErrors.ConfigError{Field: "JWT_SECRET", Reason: "required"}
	}
	if len(cfg.JWT.Secret) < 32 {
		return &domainErrors.ConfigError{Field: "JWT_SECRET", Reason: "must be at least 32 characters"}
	}
	if cfg.Billing.APIKey == "" {
		return &domainErrors.ConfigError{Field: "BILLING_APIKEY", Reason: "required"}
	}
	if cfg.Redis.URL == "" {
		return &domainErrors.ConfigError{Field: "REDIS_URL", Reason: "required"}
	}
	if cfg.Catalog.BundlePath == "" && cfg.Database.URL == "" {
		return &domainErrors.ConfigError{Field: "CATALOG_BUNDLEPATH", Reason: "either a bundled catalog path or DATABASE_URL is required"}
	}
	if cfg.Pricing.SinglePDF < 0 || cfg.Pricing.SingleVideo < 0 {
		return &domainErrors.ConfigError{Field: "PRICING", Reason: "single-item prices must be non-negative"}
	}
	return nil
}

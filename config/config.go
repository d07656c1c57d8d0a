package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/sumandas0/farmstore/internal/core"
	"github.com/sumandas0/farmstore/internal/integration"
	"github.com/sumandas0/farmstore/internal/observability"
	"github.com/sumandas0/farmstore/internal/resilience"
	"github.com/sumandas0/farmstore/internal/security"
	"golang.org/x/text/language"
)

const envPrefix = "FARMSTORE"

type Config struct {
	Server      ServerConfig                `mapstructure:"server"`
	Store       StoreConfig                 `mapstructure:"store"`
	Cache       CacheConfig                 `mapstructure:"cache"`
	Query       QueryConfig                 `mapstructure:"query"`
	Logging     observability.LoggingConfig `mapstructure:"logging"`
	Metrics     observability.MetricsConfig `mapstructure:"metrics"`
	Tracing     observability.TracingConfig `mapstructure:"tracing"`
	Resilience  ResilienceConfig            `mapstructure:"resilience"`
	Security    SecurityConfig              `mapstructure:"security"`
	Cart        core.CartPolicy             `mapstructure:"cart"`
	Health      HealthConfig                `mapstructure:"health"`
	Environment string                      `mapstructure:"environment"`
}

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type StoreConfig struct {
	Type               string         `mapstructure:"type"`
	SeedOnStart        bool           `mapstructure:"seed_on_start"`
	SeedFile           string         `mapstructure:"seed_file"`
	TransactionTimeout time.Duration  `mapstructure:"transaction_timeout"`
	BatchSize          int            `mapstructure:"batch_size"`
	Database           DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Database        string        `mapstructure:"database"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int32         `mapstructure:"max_open_conns"`
	MaxIdleConns    int32         `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

type CacheConfig struct {
	SnapshotTTL     time.Duration `mapstructure:"snapshot_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	ResultCacheSize int           `mapstructure:"result_cache_size"`
	// VersionCheck compares cached snapshot versions with the store on every
	// hit. Needed when several processes share one database.
	VersionCheck bool `mapstructure:"version_check"`
}

type QueryConfig struct {
	// Collation is a BCP 47 tag such as "ko". Empty keeps code-point order.
	Collation   string `mapstructure:"collation"`
	MaxPageSize int    `mapstructure:"max_page_size"`
	Highlights  bool   `mapstructure:"highlights"`
}

type ResilienceConfig struct {
	CircuitBreaker resilience.CircuitBreakerConfig `mapstructure:"circuit_breaker"`
	Retry          resilience.RetryConfig          `mapstructure:"retry"`
}

type SecurityConfig struct {
	RateLimit security.RateLimitConfig `mapstructure:"rate_limit"`
	Sanitizer security.SanitizerConfig `mapstructure:"sanitizer"`
}

type HealthConfig struct {
	CheckInterval time.Duration `mapstructure:"check_interval"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MemoryLimitMB uint64        `mapstructure:"memory_limit_mb"`
}

// LoadConfig reads configuration from configPath, or from farmstore.yaml in
// the usual locations when configPath is empty. FARMSTORE_* environment
// variables override file values, e.g. FARMSTORE_SERVER_PORT.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("farmstore")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/farmstore/")
		v.AddConfigPath("$HOME/.farmstore/")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.request_timeout", "60s")
	v.SetDefault("server.cors.allowed_origins", []string{"https://*", "http://*"})

	v.SetDefault("store.type", "memory")
	v.SetDefault("store.seed_on_start", true)
	v.SetDefault("store.seed_file", "")
	v.SetDefault("store.transaction_timeout", "30s")
	v.SetDefault("store.batch_size", 100)
	v.SetDefault("store.database.host", "localhost")
	v.SetDefault("store.database.port", 5432)
	v.SetDefault("store.database.database", "farmstore")
	v.SetDefault("store.database.username", "postgres")
	v.SetDefault("store.database.password", "postgres")
	v.SetDefault("store.database.ssl_mode", "disable")
	v.SetDefault("store.database.max_open_conns", 25)
	v.SetDefault("store.database.max_idle_conns", 5)
	v.SetDefault("store.database.conn_max_lifetime", "1h")
	v.SetDefault("store.database.conn_max_idle_time", "30m")
	v.SetDefault("store.database.migrate_on_start", true)

	v.SetDefault("cache.snapshot_ttl", "5m")
	v.SetDefault("cache.cleanup_interval", "1m")
	v.SetDefault("cache.result_cache_size", 1024)
	v.SetDefault("cache.version_check", false)

	v.SetDefault("query.collation", "")
	v.SetDefault("query.max_page_size", 100)
	v.SetDefault("query.highlights", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.time_format", time.RFC3339)
	v.SetDefault("logging.rotation.max_size_mb", 100)
	v.SetDefault("logging.rotation.max_backups", 5)
	v.SetDefault("logging.rotation.max_age_days", 30)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "farmstore")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_url", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", "farmstore")
	v.SetDefault("tracing.sample_rate", 1.0)

	v.SetDefault("resilience.circuit_breaker.enabled", true)
	v.SetDefault("resilience.circuit_breaker.max_requests", 3)
	v.SetDefault("resilience.circuit_breaker.interval", "60s")
	v.SetDefault("resilience.circuit_breaker.timeout", "30s")
	v.SetDefault("resilience.circuit_breaker.failure_threshold", 5)
	v.SetDefault("resilience.retry.enabled", true)
	v.SetDefault("resilience.retry.max_attempts", 3)
	v.SetDefault("resilience.retry.initial_delay", "100ms")
	v.SetDefault("resilience.retry.max_delay", "2s")
	v.SetDefault("resilience.retry.backoff_multiplier", 2.0)
	v.SetDefault("resilience.retry.jitter_enabled", true)
	v.SetDefault("resilience.retry.jitter_factor", 0.1)

	v.SetDefault("security.rate_limit.enabled", true)
	v.SetDefault("security.rate_limit.requests_per_second", 100)
	v.SetDefault("security.rate_limit.burst_size", 200)
	v.SetDefault("security.rate_limit.cleanup_interval", "5m")
	v.SetDefault("security.rate_limit.ip_limit_enabled", true)
	v.SetDefault("security.rate_limit.ip_requests_per_second", 20)
	v.SetDefault("security.rate_limit.ip_burst_size", 40)

	sanitizer := security.DefaultSanitizerConfig()
	v.SetDefault("security.sanitizer.enabled", sanitizer.Enabled)
	v.SetDefault("security.sanitizer.max_string_length", sanitizer.MaxStringLength)
	v.SetDefault("security.sanitizer.max_array_length", sanitizer.MaxArrayLength)
	v.SetDefault("security.sanitizer.max_object_depth", sanitizer.MaxObjectDepth)
	v.SetDefault("security.sanitizer.max_term_length", sanitizer.MaxTermLength)
	v.SetDefault("security.sanitizer.strict_mode", sanitizer.StrictMode)
	v.SetDefault("security.sanitizer.rich_text_fields", sanitizer.RichTextFields)

	cart := core.DefaultCartPolicy()
	v.SetDefault("cart.shipping_fee", cart.ShippingFee)
	v.SetDefault("cart.free_shipping_threshold", cart.FreeShippingThreshold)

	v.SetDefault("health.check_interval", "30s")
	v.SetDefault("health.timeout", "5s")
	v.SetDefault("health.memory_limit_mb", 1024)

	v.SetDefault("environment", "development")
}

var validLevels = []observability.LogLevel{
	observability.LogLevelTrace,
	observability.LogLevelDebug,
	observability.LogLevelInfo,
	observability.LogLevelWarn,
	observability.LogLevelError,
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	switch config.Store.Type {
	case "memory":
	case "postgres":
		db := config.Store.Database
		if db.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if db.Database == "" {
			return fmt.Errorf("database name is required")
		}
		if db.Port <= 0 || db.Port > 65535 {
			return fmt.Errorf("invalid database port: %d", db.Port)
		}
	default:
		return fmt.Errorf("invalid store type: %s", config.Store.Type)
	}

	if config.Query.MaxPageSize < 1 {
		return fmt.Errorf("query max page size must be positive: %d", config.Query.MaxPageSize)
	}
	if _, err := config.CollationTag(); err != nil {
		return err
	}

	if !slices.Contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("invalid logging level: %s", config.Logging.Level)
	}
	if config.Logging.Format != observability.LogFormatJSON && config.Logging.Format != observability.LogFormatConsole {
		return fmt.Errorf("invalid logging format: %s", config.Logging.Format)
	}

	if config.Cart.ShippingFee < 0 || config.Cart.FreeShippingThreshold < 0 {
		return fmt.Errorf("cart amounts must not be negative")
	}

	return nil
}

// CollationTag parses Query.Collation. The zero Tag means code-point order.
func (c *Config) CollationTag() (language.Tag, error) {
	if c.Query.Collation == "" {
		return language.Und, nil
	}
	tag, err := language.Parse(c.Query.Collation)
	if err != nil {
		return language.Und, fmt.Errorf("invalid query collation %q: %w", c.Query.Collation, err)
	}
	return tag, nil
}

// Features maps the cross-cutting sections onto the integration layer.
func (c *Config) Features() integration.AdvancedFeaturesConfig {
	tracing := c.Tracing
	if tracing.Environment == "" {
		tracing.Environment = c.Environment
	}
	return integration.AdvancedFeaturesConfig{
		Tracing:        tracing,
		Logging:        c.Logging,
		Metrics:        c.Metrics,
		CircuitBreaker: c.Resilience.CircuitBreaker,
		Retry:          c.Resilience.Retry,
		RateLimit:      c.Security.RateLimit,
		Sanitizer:      c.Security.Sanitizer,
	}
}

func (c *Config) GetDatabaseURL() string {
	db := c.Store.Database
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.Username,
		db.Password,
		db.Host,
		db.Port,
		db.Database,
		db.SSLMode,
	)
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

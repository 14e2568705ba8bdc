package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"

	"github.com/jwalitptl/geo-pricing/internal/model"
	"github.com/jwalitptl/geo-pricing/internal/zone"
	pkgvalidator "github.com/jwalitptl/geo-pricing/pkg/validator"
)

// EnvPrefix prefixes every environment override, e.g. GEOPRICING_REDIS_URL.
const EnvPrefix = "GEOPRICING"

// Cache backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	CORS        CORSConfig        `mapstructure:"cors"`
	Pricing     PricingConfig     `mapstructure:"pricing"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MetricsPrefix   string        `mapstructure:"metrics_prefix"`
	TrustedProxies  []string      `mapstructure:"trusted_proxies" validate:"dive,cidr|ip"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

type GeolocationConfig struct {
	ProviderURL      string        `mapstructure:"provider_url" validate:"required,url"`
	Timeout          time.Duration `mapstructure:"timeout" validate:"gt=0"`
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"gte=0"`
	OpenTimeout      time.Duration `mapstructure:"open_timeout"`
}

type CacheConfig struct {
	Backend         string        `mapstructure:"backend" validate:"oneof=memory redis postgres"`
	SlotKey         string        `mapstructure:"slot_key" validate:"required"`
	MaxAge          time.Duration `mapstructure:"max_age" validate:"gt=0"`
	Retention       time.Duration `mapstructure:"retention" validate:"gte=0"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type RedisConfig struct {
	URL          string        `mapstructure:"url"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN renders the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
	Burst             int     `mapstructure:"burst" validate:"gte=0"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type PricingConfig struct {
	Plans []model.Plan `mapstructure:"plans" validate:"dive"`
}

// envOverrides are read with envconfig after the file so deployments can
// inject secrets without editing config.yml.
type envOverrides struct {
	Port             int    `envconfig:"SERVER_PORT"`
	LogLevel         string `envconfig:"LOG_LEVEL"`
	ProviderURL      string `envconfig:"PROVIDER_URL"`
	CacheBackend     string `envconfig:"CACHE_BACKEND"`
	RedisURL         string `envconfig:"REDIS_URL"`
	DatabaseHost     string `envconfig:"DB_HOST"`
	DatabasePassword string `envconfig:"DB_PASSWORD"`
	JWTSecret        string `envconfig:"JWT_SECRET"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "10s")
	v.SetDefault("server.request_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.metrics_prefix", "geopricing")

	v.SetDefault("log.level", "info")

	v.SetDefault("geolocation.provider_url", "https://ipapi.co")
	v.SetDefault("geolocation.timeout", "5s")
	v.SetDefault("geolocation.failure_threshold", 5)
	v.SetDefault("geolocation.open_timeout", "30s")

	v.SetDefault("cache.backend", BackendMemory)
	v.SetDefault("cache.slot_key", "user_region_data")
	v.SetDefault("cache.max_age", "24h")
	v.SetDefault("cache.retention", "168h")
	v.SetDefault("cache.cleanup_interval", "1h")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10)
	v.SetDefault("rate_limit.burst", 20)

	v.SetDefault("cors.allowed_origins", []string{"*"})
}

// Load reads configuration from path, or from config.yml in the usual
// locations when path is empty. A missing file is not an error when
// searching; defaults and environment still apply.
func Load(path string) (*Config, error) {
	// It's okay if .env file doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var env envOverrides
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	cfg.applyOverrides(env)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyOverrides(env envOverrides) {
	if env.Port != 0 {
		c.Server.Port = env.Port
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.ProviderURL != "" {
		c.Geolocation.ProviderURL = env.ProviderURL
	}
	if env.CacheBackend != "" {
		c.Cache.Backend = env.CacheBackend
	}
	if env.RedisURL != "" {
		c.Redis.URL = env.RedisURL
	}
	if env.DatabaseHost != "" {
		c.Database.Host = env.DatabaseHost
	}
	if env.DatabasePassword != "" {
		c.Database.Password = env.DatabasePassword
	}
	if env.JWTSecret != "" {
		c.Auth.JWTSecret = env.JWTSecret
	}
}

// Validate checks field constraints, backend prerequisites and the price book.
func (c *Config) Validate() error {
	v, err := pkgvalidator.New(map[string]validator.Func{
		zone.ValidationTag: zone.ValidateField,
	})
	if err != nil {
		return err
	}
	if err := v.Validate(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if c.Cache.Backend == BackendRedis && c.Redis.URL == "" {
		return fmt.Errorf("invalid config: redis.url is required for the redis cache backend")
	}

	seen := make(map[string]bool, len(c.Pricing.Plans))
	for _, p := range c.Pricing.Plans {
		if seen[p.Name] {
			return fmt.Errorf("invalid config: duplicate plan %q", p.Name)
		}
		seen[p.Name] = true
		for i, e := range p.Prices {
			if e.Zone() == "" {
				return fmt.Errorf("invalid config: plan %q price %d has no region_code", p.Name, i)
			}
		}
	}

	return nil
}

package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	ServiceName    = "pantry"
	ServiceVersion = "0.3.0"

	envPrefix = "PANTRY"
)

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config настройки сервиса из переменных окружения с префиксом PANTRY_
type Config struct {
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":9091"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`

	StorageDriver  string `envconfig:"STORAGE_DRIVER" default:"memory"`
	SQLitePath     string `envconfig:"SQLITE_PATH" default:"pantry.db"`
	SQLitePoolSize int    `envconfig:"SQLITE_POOL_SIZE" default:"4"`

	CatalogFile      string        `envconfig:"CATALOG_FILE"`
	CatalogCacheTTL  time.Duration `envconfig:"CATALOG_CACHE_TTL" default:"10m"`
	CatalogCacheSize int           `envconfig:"CATALOG_CACHE_SIZE" default:"10000"`

	KafkaBroker string `envconfig:"KAFKA_BROKER"`
	KafkaTopic  string `envconfig:"KAFKA_TOPIC" default:"pantry.items"`

	OtelEndpoint   string `envconfig:"OTEL_ENDPOINT"`
	OtelAuthHeader string `envconfig:"OTEL_AUTH_HEADER"`

	FutureExpiryOnly bool `envconfig:"FUTURE_EXPIRY_ONLY" default:"false"`
}

// Load читает окружение и проверяет значения
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory:
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("PANTRY_SQLITE_PATH is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown PANTRY_STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("PANTRY_HTTP_ADDR must not be empty")
	}
	if c.CatalogCacheTTL < 0 {
		return fmt.Errorf("PANTRY_CATALOG_CACHE_TTL must not be negative")
	}
	if c.CatalogCacheSize < 0 {
		return fmt.Errorf("PANTRY_CATALOG_CACHE_SIZE must not be negative")
	}
	return nil
}

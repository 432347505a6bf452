package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/canopyhq/canopy/pkg/observability"
	"github.com/canopyhq/canopy/pkg/storage"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database storage.Config

	// Cache configuration
	Cache CacheConfig

	// Invitation lifecycle configuration
	Invitations InvitationConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// CacheConfig holds Redis and in-process cache settings
type CacheConfig struct {
	Enabled bool

	// Redis (grant cache)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// In-process LRU (account cache)
	AccountCacheSize int
	AccountCacheTTL  time.Duration
}

// InvitationConfig holds invitation lifecycle settings
type InvitationConfig struct {
	TTL           time.Duration
	SweepSchedule string
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	// Logging
	LogLevel observability.LogLevel

	// Metrics
	MetricsEnabled bool

	// OpenTelemetry
	OTelEnabled        bool
	OTelEndpoint       string
	OTelServiceName    string
	OTelServiceVersion string
	OTelInsecure       bool // Use insecure gRPC connection
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Cache:         loadCacheConfig(),
		Invitations:   loadInvitationConfig(),
		Observability: loadObservabilityConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:            getEnv("CANOPY_HOST", "0.0.0.0"),
		Port:            getEnv("CANOPY_PORT", "8080"),
		ReadTimeout:     getEnvDuration("CANOPY_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    getEnvDuration("CANOPY_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getEnvDuration("CANOPY_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: getEnvDuration("CANOPY_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:      getEnv("CANOPY_HEALTH_PORT", "9090"),
	}
}

// loadDatabaseConfig loads database configuration from environment
func loadDatabaseConfig() storage.Config {
	return storage.Config{
		Driver:          getEnv("CANOPY_DB_DRIVER", storage.DriverPostgres),
		DSN:             getEnv("CANOPY_DB_DSN", ""),
		MaxOpenConns:    getEnvInt("CANOPY_DB_MAX_OPEN_CONNS", 20),
		MaxIdleConns:    getEnvInt("CANOPY_DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvDuration("CANOPY_DB_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

// loadCacheConfig loads cache configuration from environment
func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:          getEnvBool("CANOPY_CACHE_ENABLED", false),
		RedisAddr:        getEnv("CANOPY_REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("CANOPY_REDIS_PASSWORD", ""),
		RedisDB:          getEnvInt("CANOPY_REDIS_DB", 0),
		AccountCacheSize: getEnvInt("CANOPY_ACCOUNT_CACHE_SIZE", 1024),
		AccountCacheTTL:  getEnvDuration("CANOPY_ACCOUNT_CACHE_TTL", 5*time.Minute),
	}
}

// loadInvitationConfig loads invitation lifecycle configuration from environment
func loadInvitationConfig() InvitationConfig {
	return InvitationConfig{
		TTL:           getEnvDuration("CANOPY_INVITATION_TTL", 7*24*time.Hour),
		SweepSchedule: getEnv("CANOPY_INVITATION_SWEEP_SCHEDULE", "@hourly"),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:           observability.ParseLogLevel(getEnv("CANOPY_LOG_LEVEL", "info")),
		MetricsEnabled:     getEnvBool("CANOPY_METRICS_ENABLED", true),
		OTelEnabled:        getEnvBool("CANOPY_OTEL_ENABLED", false),
		OTelEndpoint:       getEnv("CANOPY_OTEL_ENDPOINT", "localhost:4317"),
		OTelServiceName:    getEnv("CANOPY_OTEL_SERVICE_NAME", "canopy-authz"),
		OTelServiceVersion: getEnv("CANOPY_OTEL_SERVICE_VERSION", "1.0.0"),
		OTelInsecure:       getEnvBool("CANOPY_OTEL_INSECURE", true),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	// Validate database config
	if err := c.Database.Validate(); err != nil {
		return err
	}

	// Validate cache config
	if c.Cache.Enabled {
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("redis address is required when the cache is enabled")
		}
		if c.Cache.AccountCacheSize <= 0 {
			return fmt.Errorf("account cache size must be positive")
		}
	}

	// Validate invitation config
	if c.Invitations.TTL <= 0 {
		return fmt.Errorf("invitation TTL must be positive")
	}
	if c.Invitations.SweepSchedule == "" {
		return fmt.Errorf("invitation sweep schedule is required")
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

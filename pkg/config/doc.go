// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for all settings.
//
// # Configuration Structure
//
// Server settings:
//
//	CANOPY_HOST="0.0.0.0"
//	CANOPY_PORT="8080"
//	CANOPY_HEALTH_PORT="9090"
//	CANOPY_READ_TIMEOUT="15s"
//	CANOPY_WRITE_TIMEOUT="15s"
//
// Database settings:
//
//	CANOPY_DB_DRIVER="postgres"  # postgres, sqlite3
//	CANOPY_DB_DSN="postgres://localhost/canopy?sslmode=disable"
//	CANOPY_DB_MAX_OPEN_CONNS="20"
//
// Cache settings:
//
//	CANOPY_CACHE_ENABLED="true"
//	CANOPY_REDIS_ADDR="localhost:6379"
//	CANOPY_ACCOUNT_CACHE_SIZE="1024"
//	CANOPY_ACCOUNT_CACHE_TTL="5m"
//
// Invitation settings:
//
//	CANOPY_INVITATION_TTL="168h"
//	CANOPY_INVITATION_SWEEP_SCHEDULE="@hourly"
//
// Observability settings:
//
//	CANOPY_LOG_LEVEL="info"  # debug, info, warn, error
//	CANOPY_METRICS_ENABLED="true"
//	CANOPY_OTEL_ENABLED="true"
//	CANOPY_OTEL_ENDPOINT="otel-collector:4317"
//
// # Usage Example
//
// Load configuration:
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	fmt.Printf("Server: %s:%s\n", cfg.Server.Host, cfg.Server.Port)
//	fmt.Printf("Database: %s\n", cfg.Database.Driver)
//	fmt.Printf("Log level: %s\n", cfg.Observability.LogLevel)
//
// # Related Packages
//
//   - pkg/storage: Uses database configuration
//   - pkg/observability: Uses observability configuration
package config

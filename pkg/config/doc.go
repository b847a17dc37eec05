// Package config provides configuration management for Tollgate.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("tollgate.yaml")
//
// An empty path yields the defaults with environment overrides applied.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention TOLLGATE_SECTION_FIELD:
//
//   - TOLLGATE_STORAGE_TENANTS_BACKEND overrides storage.tenants.backend
//   - TOLLGATE_CACHE_REDIS_ADDR overrides cache.redis.addr
//   - TOLLGATE_RETENTION_DAYS overrides retention.days
//   - TOLLGATE_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Reloading
//
// A Watcher follows the file with fsnotify and passes every valid reload to
// a callback. Only the retention section is applied at runtime; other
// sections take effect on restart.
//
// # Example Configuration
//
//	storage:
//	  tenants:
//	    backend: postgres
//	    postgres:
//	      host: db.internal
//	      database: tollgate
//	      user: tollgate
//	  audit:
//	    backend: sqlite
//	    sqlite:
//	      path: /var/lib/tollgate/audit.db
//	cache:
//	  backend: redis
//	  redis:
//	    addr: redis.internal:6379
//	scheduler:
//	  timezone: Europe/Berlin
//	retention:
//	  days: 180
//	  cleanup_hour: 3
//	notifications:
//	  enabled: true
//	  webhook_url: https://hooks.example.com/tollgate
package config

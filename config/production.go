// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Server     ServerConfig     `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
	Cache      CacheConfig      `json:"cache"`
	Counter    CounterConfig    `json:"counter"`
	Deployment DeploymentConfig `json:"deployment"`
}

type DatabaseConfig struct {
	Driver          string        `json:"driver" env:"DB_DRIVER" envDefault:"postgres"` // postgres, sqlite
	SQLitePath      string        `json:"sqlite_path" env:"DB_SQLITE_PATH" envDefault:"counter.db"`
	Host            string        `json:"host" env:"DB_HOST" envDefault:"localhost"`
	Port            int           `json:"port" env:"DB_PORT" envDefault:"5432"`
	Name            string        `json:"name" env:"DB_NAME" envDefault:"postgres"`
	User            string        `json:"user" env:"DB_USER" envDefault:"postgres"`
	Password        string        `json:"password" env:"DB_PASSWORD"`
	SSLMode         string        `json:"ssl_mode" env:"DB_SSL_MODE" envDefault:"require"`
	MaxOpenConns    int           `json:"max_open_conns" env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `json:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" env:"DB_CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time" env:"DB_CONN_MAX_IDLE_TIME" envDefault:"15m"`
	SlowQueryLog    bool          `json:"slow_query_log" env:"DB_SLOW_QUERY_LOG" envDefault:"true"`
	SlowQueryTime   time.Duration `json:"slow_query_time" env:"DB_SLOW_QUERY_TIME" envDefault:"1s"`
	AutoMigrate     bool          `json:"auto_migrate" env:"DB_AUTO_MIGRATE" envDefault:"true"`
}

type ServerConfig struct {
	Host              string        `json:"host" env:"SERVER_HOST" envDefault:"0.0.0.0"`
	Port              int           `json:"port" env:"SERVER_PORT" envDefault:"8080"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	BodyLimit         int           `json:"body_limit" env:"SERVER_BODY_LIMIT" envDefault:"65536"`
	EnableCompression bool          `json:"enable_compression" env:"SERVER_ENABLE_COMPRESSION" envDefault:"true"`
	RateLimit         int           `json:"rate_limit" env:"SERVER_RATE_LIMIT" envDefault:"600"` // requests per window per IP
	RateLimitWindow   time.Duration `json:"rate_limit_window" env:"SERVER_RATE_LIMIT_WINDOW" envDefault:"1m"`
}

type LoggingConfig struct {
	Level      string `json:"level" env:"LOG_LEVEL" envDefault:"info"`     // debug, info, warn, error
	Format     string `json:"format" env:"LOG_FORMAT" envDefault:"json"`   // json, text
	Output     string `json:"output" env:"LOG_OUTPUT" envDefault:"stdout"` // stdout, file, both
	FilePath   string `json:"file_path" env:"LOG_FILE_PATH" envDefault:"/var/log/counter/app.log"`
	MaxSize    int    `json:"max_size" env:"LOG_MAX_SIZE" envDefault:"100"` // MB
	MaxBackups int    `json:"max_backups" env:"LOG_MAX_BACKUPS" envDefault:"10"`
	MaxAge     int    `json:"max_age" env:"LOG_MAX_AGE" envDefault:"30"` // days
	Compress   bool   `json:"compress" env:"LOG_COMPRESS" envDefault:"true"`

	EnableCaller    bool `json:"enable_caller" env:"LOG_ENABLE_CALLER" envDefault:"false"`
	EnableAccessLog bool `json:"enable_access_log" env:"LOG_ENABLE_ACCESS" envDefault:"true"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled" env:"METRICS_ENABLED" envDefault:"true"`
	Path    string `json:"path" env:"METRICS_PATH" envDefault:"/metrics"`
}

type CacheConfig struct {
	Enabled         bool          `json:"enabled" env:"CACHE_ENABLED" envDefault:"false"`
	Provider        string        `json:"provider" env:"CACHE_PROVIDER" envDefault:"memory"` // redis, memory
	RedisURL        string        `json:"redis_url" env:"CACHE_REDIS_URL" envDefault:"redis://localhost:6379"`
	RedisDB         int           `json:"redis_db" env:"CACHE_REDIS_DB" envDefault:"0"`
	RedisPrefix     string        `json:"redis_prefix" env:"CACHE_REDIS_PREFIX" envDefault:"counter:"`
	CleanupInterval time.Duration `json:"cleanup_interval" env:"CACHE_CLEANUP_INTERVAL" envDefault:"10m"`
}

type CounterConfig struct {
	Name              string        `json:"name" env:"COUNTER_NAME" envDefault:"main_counter"`
	ViewTTL           time.Duration `json:"view_ttl" env:"COUNTER_VIEW_TTL" envDefault:"2h"`
	RefetchAfterWrite bool          `json:"refetch_after_write" env:"COUNTER_REFETCH_AFTER_WRITE" envDefault:"false"`
}

type DeploymentConfig struct {
	Environment string `json:"environment" env:"APP_ENV" envDefault:"production"`
	Version     string `json:"version" env:"VERSION" envDefault:"1.0.0"`
	CommitHash  string `json:"commit_hash" env:"COMMIT_HASH" envDefault:"unknown"`
	BuildTime   string `json:"build_time" env:"BUILD_TIME" envDefault:"unknown"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(".env"); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	// Validate the loaded configuration
	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromMap builds a configuration from an explicit variable set instead of the process environment
func LoadFromMap(vars map[string]string) (*ProductionConfig, error) {
	cfg := &ProductionConfig{}
	if err := env.ParseWithOptions(cfg, env.Options{Environment: vars}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadEnvFile loads environment variables from the given file if it exists
func loadEnvFile(envFile string) error {
	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, found := strings.Cut(line, "=")
		if !found {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		// Remove quotes if present
		if len(value) >= 2 && ((strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
			(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`))) {
			value = value[1 : len(value)-1]
		}

		// Set environment variable if not already set
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

// ValidateProductionConfig validates the production configuration
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	// Validate database configuration
	switch cfg.Database.Driver {
	case "postgres":
		if cfg.Database.Host == "" {
			errors = append(errors, "DB_HOST is required")
		}
		if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
			errors = append(errors, "DB_PORT must be between 1 and 65535")
		}
		if cfg.Database.Name == "" {
			errors = append(errors, "DB_NAME is required")
		}
		if cfg.Database.User == "" {
			errors = append(errors, "DB_USER is required")
		}
		if cfg.Database.Password == "" {
			errors = append(errors, "DB_PASSWORD is required")
		}
	case "sqlite":
		if cfg.Database.SQLitePath == "" {
			errors = append(errors, "DB_SQLITE_PATH is required when DB_DRIVER is sqlite")
		}
	default:
		errors = append(errors, "DB_DRIVER must be one of: [postgres sqlite]")
	}
	if cfg.Database.MaxOpenConns <= 0 {
		errors = append(errors, "DB_MAX_OPEN_CONNS must be positive")
	}

	// Validate server configuration
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		errors = append(errors, "SERVER_PORT must be between 1 and 65535")
	}
	if cfg.Server.ReadTimeout <= 0 {
		errors = append(errors, "SERVER_READ_TIMEOUT must be positive")
	}
	if cfg.Server.WriteTimeout <= 0 {
		errors = append(errors, "SERVER_WRITE_TIMEOUT must be positive")
	}
	if cfg.Server.IdleTimeout <= 0 {
		errors = append(errors, "SERVER_IDLE_TIMEOUT must be positive")
	}

	// Validate logging configuration
	validLevels := []string{"debug", "info", "warn", "error"}
	if cfg.Logging.Level != "" && !slices.Contains(validLevels, cfg.Logging.Level) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %v", validLevels))
	}
	validOutputs := []string{"stdout", "file", "both"}
	if !slices.Contains(validOutputs, cfg.Logging.Output) {
		errors = append(errors, fmt.Sprintf("LOG_OUTPUT must be one of: %v", validOutputs))
	}
	if cfg.Logging.Output != "stdout" && cfg.Logging.FilePath == "" {
		errors = append(errors, "LOG_FILE_PATH is required when logging to a file")
	}

	// Validate cache configuration if enabled
	if cfg.Cache.Enabled {
		if cfg.Cache.Provider != "redis" && cfg.Cache.Provider != "memory" {
			errors = append(errors, "CACHE_PROVIDER must be one of: [redis memory]")
		}
		if cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
			errors = append(errors, "CACHE_REDIS_URL is required when cache is enabled with redis provider")
		}
	}

	// Validate counter configuration
	if cfg.Counter.Name == "" {
		errors = append(errors, "COUNTER_NAME is required")
	}
	if len(cfg.Counter.Name) > 100 {
		errors = append(errors, "COUNTER_NAME must be at most 100 characters")
	}
	if cfg.Counter.ViewTTL <= 0 {
		errors = append(errors, "COUNTER_VIEW_TTL must be positive")
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errors = append(errors, "METRICS_PATH must start with /")
	}

	// Return validation errors if any
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// DSN returns the connection string for the configured driver
func (c DatabaseConfig) DSN() string {
	if c.Driver == "sqlite" {
		return c.SQLitePath
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// Package config provides configuration management for the EagleChat server.
// It handles loading configuration from environment variables with sensible
// defaults and validates the configuration to ensure the application starts
// safely.
//
// The package supports multiple database backends (SQLite and PostgreSQL),
// Redis for shared rate limiting, JWT authentication for the admin surface,
// and the master key material the credential vault derives its encryption
// key from.
//
// Environment Variables:
//
// Application Settings:
//   - PORT: Server port (default: 8080)
//   - LOG_LEVEL: Logging level (default: info)
//
// Database Configuration:
//   - DATABASE_TYPE: Database type - "sqlite" or "postgres" (default: sqlite)
//   - DATABASE_PATH: SQLite database file path (default: ./eaglechat.db)
//   - POSTGRES_HOST: PostgreSQL host (required if using PostgreSQL)
//   - POSTGRES_PORT: PostgreSQL port (default: 5432)
//   - POSTGRES_DB: PostgreSQL database name (required if using PostgreSQL)
//   - POSTGRES_USER: PostgreSQL username (required if using PostgreSQL)
//   - POSTGRES_PASSWORD: PostgreSQL password
//   - POSTGRES_SSL_MODE: PostgreSQL SSL mode (default: disable)
//
// Redis Configuration (optional, enables fleet-wide rate limiting):
//   - REDIS_ADDRESS: Redis server address (empty disables Redis)
//   - REDIS_PASSWORD: Redis password
//   - REDIS_DB: Redis database number 0-15 (default: 0)
//   - REDIS_POOL_SIZE: Redis connection pool size (default: 10)
//
// Security Configuration:
//   - EAGLECHAT_MASTER_KEY: Master key for the credential vault (required)
//   - VAULT_KEY_SALT: Salt for vault key derivation (default built in)
//   - JWT_SECRET: JWT signing secret for admin endpoints (required, min 32 chars)
//   - HMAC_ALGORITHM: Signature digest - "sha256" or "sha512" (default: sha256)
//   - HMAC_TIMESTAMP_TOLERANCE: Allowed request clock skew (default: 300s)
//   - SITE_HASH_ENFORCED: Require site-hash match on signed requests (default: true)
//
// Rate Limiting:
//   - RATE_LIMIT_ENABLED: Enable rate limiting (default: true)
//   - RATE_LIMIT_DEFAULT: Default rate limit per window (default: 100)
//   - RATE_LIMIT_WINDOW: Rate limit time window (default: 60s)
//
// Upstream Providers:
//   - PROVIDER_TIMEOUT: Per-call HTTP timeout for AI providers (default: 60s)
//   - PROVIDER_MAX_RETRIES: Retries after the first attempt (default: 2)
//   - PROVIDER_RETRY_DELAY: Initial backoff delay (default: 1s)
//   - ANTHROPIC_BASE_URL / OPENAI_BASE_URL: Override provider endpoints
//
// Example usage:
//
//	config := config.Load()
//	if err := config.Validate(); err != nil {
//		log.Fatalf("Invalid configuration: %v", err)
//	}
package config

import (
	"fmt"
	"strconv"
	"time"

	"eaglechat-server/internal/common/env"
)

// Config holds all configuration values for the EagleChat server.
// All string fields correspond to environment variables that can be set to
// override the default values.
//
// The configuration is loaded using the Load() function and should be
// validated using the Validate() method before use.
type Config struct {
	// Application settings
	Port     string // Server port number
	LogLevel string // Logging level (debug, info, warn, error)

	// Database configuration
	DatabaseType     string // Database type: "sqlite" or "postgres"
	DatabasePath     string // Path to SQLite database file
	PostgresHost     string // PostgreSQL host address
	PostgresPort     string // PostgreSQL port number
	PostgresDB       string // PostgreSQL database name
	PostgresUser     string // PostgreSQL username
	PostgresPassword string // PostgreSQL password
	PostgresSSLMode  string // PostgreSQL SSL mode (disable, require, etc.)

	// Redis configuration, optional
	RedisAddress  string // Redis server address (host:port), empty disables Redis
	RedisPassword string // Redis authentication password
	RedisDB       string // Redis database number (0-15)
	RedisPoolSize string // Redis connection pool size

	// Rate limiting configuration
	RateLimitEnabled bool   // Whether rate limiting is enabled
	RateLimitDefault string // Default requests per window
	RateLimitWindow  string // Rate limiting time window (e.g., "60s", "1m")

	// Security configuration
	MasterKey          string        // Master key the vault derives its encryption key from (required)
	VaultSalt          string        // Salt for vault key derivation
	JWTSecret          string        // Secret key for admin JWT token signing (required)
	SignatureAlgorithm string        // HMAC digest for request signing: "sha256" or "sha512"
	TimestampTolerance time.Duration // Allowed clock skew on signed request timestamps
	SiteHashEnforced   bool          // Whether signed requests must carry a matching site hash

	// Upstream provider configuration
	ProviderTimeout    time.Duration // HTTP timeout per provider call
	ProviderMaxRetries int           // Retries after the first attempt
	ProviderRetryDelay time.Duration // Initial backoff delay between retries
	AnthropicBaseURL   string        // Override for the Anthropic API endpoint
	OpenAIBaseURL      string        // Override for the OpenAI API endpoint
}

// Load creates a new Config instance with values loaded from environment
// variables. If an environment variable is not set, the corresponding default
// value is used.
//
// This function does not validate the configuration - call Validate() on the
// returned Config to ensure all required values are properly set and valid.
func Load() *Config {
	return &Config{
		Port:     env.GetString("PORT", "8080"),
		LogLevel: env.GetString("LOG_LEVEL", "info"),

		DatabaseType:     env.GetString("DATABASE_TYPE", "sqlite"),
		DatabasePath:     env.GetString("DATABASE_PATH", "./eaglechat.db"),
		PostgresHost:     env.GetString("POSTGRES_HOST", "localhost"),
		PostgresPort:     env.GetString("POSTGRES_PORT", "5432"),
		PostgresDB:       env.GetString("POSTGRES_DB", "eaglechat"),
		PostgresUser:     env.GetString("POSTGRES_USER", "postgres"),
		PostgresPassword: env.GetString("POSTGRES_PASSWORD", ""),
		PostgresSSLMode:  env.GetString("POSTGRES_SSL_MODE", "disable"),

		RedisAddress:  env.GetString("REDIS_ADDRESS", ""),
		RedisPassword: env.GetString("REDIS_PASSWORD", ""),
		RedisDB:       env.GetString("REDIS_DB", "0"),
		RedisPoolSize: env.GetString("REDIS_POOL_SIZE", "10"),

		RateLimitEnabled: env.GetBool("RATE_LIMIT_ENABLED", true),
		RateLimitDefault: env.GetString("RATE_LIMIT_DEFAULT", "100"),
		RateLimitWindow:  env.GetString("RATE_LIMIT_WINDOW", "60s"),

		MasterKey:          env.GetString("EAGLECHAT_MASTER_KEY", ""),
		VaultSalt:          env.GetString("VAULT_KEY_SALT", ""),
		JWTSecret:          env.GetString("JWT_SECRET", ""),
		SignatureAlgorithm: env.GetString("HMAC_ALGORITHM", "sha256"),
		TimestampTolerance: env.GetDuration("HMAC_TIMESTAMP_TOLERANCE", 300*time.Second),
		SiteHashEnforced:   env.GetBool("SITE_HASH_ENFORCED", true),

		ProviderTimeout:    env.GetDuration("PROVIDER_TIMEOUT", 60*time.Second),
		ProviderMaxRetries: env.GetInt("PROVIDER_MAX_RETRIES", 2),
		ProviderRetryDelay: env.GetDuration("PROVIDER_RETRY_DELAY", time.Second),
		AnthropicBaseURL:   env.GetString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
		OpenAIBaseURL:      env.GetString("OPENAI_BASE_URL", "https://api.openai.com"),
	}
}

// Validate performs comprehensive validation on the configuration to ensure
// all required fields are present and all values are valid.
//
// This method checks:
//   - Required fields (EAGLECHAT_MASTER_KEY, JWT_SECRET)
//   - Field format validation (ports, durations, digests)
//   - Cross-field dependencies (PostgreSQL configuration requirements)
//   - Security requirements (key lengths, valid ranges)
//
// The application should call this method after loading configuration and
// before starting to ensure safe operation.
func (c *Config) Validate() error {
	if c.MasterKey == "" {
		return fmt.Errorf("EAGLECHAT_MASTER_KEY environment variable is required")
	}
	if len(c.MasterKey) < 16 {
		return fmt.Errorf("EAGLECHAT_MASTER_KEY must be at least 16 characters long")
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long for security")
	}

	if port, err := strconv.Atoi(c.Port); err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a valid port number between 1 and 65535")
	}

	switch c.SignatureAlgorithm {
	case "sha256", "sha512":
	default:
		return fmt.Errorf("HMAC_ALGORITHM must be 'sha256' or 'sha512'")
	}

	if c.TimestampTolerance <= 0 {
		return fmt.Errorf("HMAC_TIMESTAMP_TOLERANCE must be a positive duration")
	}

	switch c.DatabaseType {
	case "sqlite", "postgres", "postgresql", "memory":
	default:
		return fmt.Errorf("DATABASE_TYPE must be 'sqlite' or 'postgres'")
	}

	if c.DatabaseType == "postgres" || c.DatabaseType == "postgresql" {
		if c.PostgresHost == "" {
			return fmt.Errorf("POSTGRES_HOST is required when using PostgreSQL")
		}
		if c.PostgresDB == "" {
			return fmt.Errorf("POSTGRES_DB is required when using PostgreSQL")
		}
		if c.PostgresUser == "" {
			return fmt.Errorf("POSTGRES_USER is required when using PostgreSQL")
		}
		if port, err := strconv.Atoi(c.PostgresPort); err != nil || port < 1 || port > 65535 {
			return fmt.Errorf("POSTGRES_PORT must be a valid port number")
		}
	}

	if c.RedisAddress != "" {
		if db, err := strconv.Atoi(c.RedisDB); err != nil || db < 0 || db > 15 {
			return fmt.Errorf("REDIS_DB must be a number between 0 and 15")
		}
		if poolSize, err := strconv.Atoi(c.RedisPoolSize); err != nil || poolSize < 1 {
			return fmt.Errorf("REDIS_POOL_SIZE must be a positive number")
		}
	}

	if c.RateLimitEnabled {
		if limit, err := strconv.Atoi(c.RateLimitDefault); err != nil || limit < 1 {
			return fmt.Errorf("RATE_LIMIT_DEFAULT must be a positive number")
		}
		if _, err := time.ParseDuration(c.RateLimitWindow); err != nil {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be a valid duration (e.g., '60s', '1m')")
		}
	}

	if c.ProviderMaxRetries < 0 {
		return fmt.Errorf("PROVIDER_MAX_RETRIES must not be negative")
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be a positive duration")
	}

	return nil
}

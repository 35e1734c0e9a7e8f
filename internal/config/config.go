// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server     ServerConfig
	Fetch      FetchConfig
	Validation ValidationConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	Rate       RateLimitConfig
	Security   SecurityConfig
	Logging    LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 30s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`

	// WriteTimeout is the maximum duration for writing response (default: 0, bounded by RequestTimeout)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 6m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"6m"`

	// MaxUploadSize caps multipart request bodies in bytes (default: 100MB)
	MaxUploadSize int64 `env:"SERVER_MAX_UPLOAD_SIZE" default:"104857600"`
}

// FetchConfig holds settings for retrieving remote sources.
type FetchConfig struct {
	// Timeout bounds a single HTTP or object request (default: 60s)
	Timeout time.Duration `env:"FETCH_TIMEOUT" default:"60s"`

	// MaxRedirects is the longest redirect chain followed (default: 5)
	MaxRedirects int `env:"FETCH_MAX_REDIRECTS" default:"5"`

	// MaxFileSize is the largest body read from any source in bytes (default: 100MB)
	MaxFileSize int64 `env:"FETCH_MAX_FILE_SIZE" default:"104857600"`

	// MaxRetries is the number of retries after a transient failure (default: 2)
	MaxRetries int `env:"FETCH_MAX_RETRIES" default:"2"`

	// RetryBackoff is the base delay between retries (default: 200ms)
	RetryBackoff time.Duration `env:"FETCH_RETRY_BACKOFF" default:"200ms"`

	// RateLimit is outbound requests per second (default: 10)
	RateLimit float64 `env:"FETCH_RATE_LIMIT" default:"10"`

	// RateBurst is the outbound burst size (default: 5)
	RateBurst int `env:"FETCH_RATE_BURST" default:"5"`

	// AllowDowngrade permits https to http redirects (default: false)
	AllowDowngrade bool `env:"FETCH_ALLOW_DOWNGRADE" default:"false"`

	// UserAgent is sent with every HTTP request
	UserAgent string `env:"FETCH_USER_AGENT" default:"csvlint/1.0"`
}

// ValidationConfig holds validation run settings.
type ValidationConfig struct {
	// MaxConcurrent is the maximum number of parallel runs (default: 5)
	MaxConcurrent int `env:"VALIDATION_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for a run slot (default: 30s)
	MaxWaitTime time.Duration `env:"VALIDATION_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single run (default: 5m)
	Timeout time.Duration `env:"VALIDATION_TIMEOUT" default:"5m"`

	// KeepData retains parsed rows in reports returned to callers (default: false)
	KeepData bool `env:"VALIDATION_KEEP_DATA" default:"false"`
}

// DatabaseConfig holds database connection settings.
// History is disabled when URL is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (optional)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// RetentionDays is how long reports are kept (default: 30, 0 keeps forever)
	RetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"30"`

	// PruneInterval is how often expired reports are deleted (default: 24h)
	PruneInterval time.Duration `env:"HISTORY_PRUNE_INTERVAL" default:"24h"`
}

// Enabled reports whether a database is configured.
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// StorageConfig holds S3-compatible object storage settings for s3:// sources.
// Object sources are disabled when Endpoint is empty.
type StorageConfig struct {
	// Endpoint is the host[:port] of the object store
	Endpoint string `env:"S3_ENDPOINT"`

	// AccessKey is the access key ID
	AccessKey string `env:"S3_ACCESS_KEY" envAlt:"AWS_ACCESS_KEY_ID"`

	// SecretKey is the secret access key
	SecretKey string `env:"S3_SECRET_KEY" envAlt:"AWS_SECRET_ACCESS_KEY"`

	// Region is the bucket region (default: us-east-1)
	Region string `env:"S3_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	// UseSSL selects https for the endpoint (default: true)
	UseSSL bool `env:"S3_USE_SSL" default:"true"`
}

// Enabled reports whether an object store is configured.
func (c *StorageConfig) Enabled() bool {
	return c.Endpoint != ""
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ValidateLimit is requests per minute for the validate endpoint (default: 10)
	ValidateLimit int `env:"RATE_LIMIT_VALIDATE" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enforces X-API-Key on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	if c.Host == "" {
		return ":" + itoa(c.Port)
	}
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}

// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Upload    UploadConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
	Storage   StorageConfig
	Timeouts  TimeoutConfig
	Redis     RedisConfig
	PubSub    PubSubConfig
	Reconcile ReconcileConfig
	Ingest    IngestConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing the response (default: 2m)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"2m"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// DatabaseConfig holds relational store settings.
type DatabaseConfig struct {
	// Driver selects the relational store: postgres, sqlite or memory (default: postgres)
	Driver string `env:"DATABASE_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string, or the SQLite file path.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`

	// EnsureSchema creates the ingestion tables on startup (default: true)
	EnsureSchema bool `env:"DB_ENSURE_SCHEMA" default:"true"`
}

// UploadConfig holds upload processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel ingestions (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds one whole ingestion (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for ingest endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey rejects requests without a valid X-API-Key (default: true)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"true"`

	// APIKeys is a comma-separated list of "principal:key" pairs.
	// A bare key authenticates as "api-key-N" (1-based position).
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// StorageConfig selects and configures the artifact object store.
type StorageConfig struct {
	// Driver is one of memory, fs, s3, gcs (default: fs)
	Driver string `env:"BLOB_DRIVER" default:"fs"`

	// FSRoot is the directory used by the fs driver (default: ./blobdata)
	FSRoot string `env:"BLOB_FS_ROOT" default:"./blobdata"`

	S3Bucket          string `env:"BLOB_S3_BUCKET"`
	S3Region          string `env:"BLOB_S3_REGION" default:"us-east-1"`
	S3Endpoint        string `env:"BLOB_S3_ENDPOINT"`
	S3PathStyle       bool   `env:"BLOB_S3_PATH_STYLE" default:"false"`
	S3AccessKeyID     string `env:"BLOB_S3_ACCESS_KEY_ID" envAlt:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"BLOB_S3_SECRET_ACCESS_KEY" envAlt:"AWS_SECRET_ACCESS_KEY"`

	GCSBucket          string `env:"BLOB_GCS_BUCKET" envAlt:"GCS_BUCKET"`
	GCSCredentialsJSON string `env:"BLOB_GCS_CREDENTIALS_JSON" envAlt:"GCS_CREDENTIALS_JSON"`
}

// TimeoutConfig bounds every external call made by an ingestion.
type TimeoutConfig struct {
	Upsert time.Duration `env:"TIMEOUT_UPSERT" default:"60s"`
	Lookup time.Duration `env:"TIMEOUT_DIGEST_LOOKUP" default:"5s"`
	Put    time.Duration `env:"TIMEOUT_BLOB_PUT" default:"30s"`
	Delete time.Duration `env:"TIMEOUT_BLOB_DELETE" default:"10s"`
	Record time.Duration `env:"TIMEOUT_DIGEST_RECORD" default:"5s"`
	Audit  time.Duration `env:"TIMEOUT_AUDIT" default:"5s"`
	Notify time.Duration `env:"TIMEOUT_NOTIFY" default:"10s"`
	Lock   time.Duration `env:"TIMEOUT_LOCK" default:"10s"`
}

// RedisConfig enables the distributed per-(tenant, dataset) ingestion lock.
type RedisConfig struct {
	// Addr is host:port; empty disables the distributed lock
	Addr     string `env:"REDIS_ADDRESS" envAlt:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" default:"0"`

	// LockTTL is how long a lock is held before it expires (default: 5m)
	LockTTL time.Duration `env:"REDIS_LOCK_TTL" default:"5m"`
}

// PubSubConfig enables ingestion events on Google Pub/Sub.
type PubSubConfig struct {
	// ProjectID and Topic must both be set to publish
	ProjectID       string `env:"PUBSUB_PROJECT_ID" envAlt:"GOOGLE_CLOUD_PROJECT"`
	Topic           string `env:"PUBSUB_TOPIC"`
	CredentialsJSON string `env:"PUBSUB_CREDENTIALS_JSON"`
}

// ReconcileConfig controls the orphaned-artifact sweep.
type ReconcileConfig struct {
	// Enabled starts the sweep on boot (default: true)
	Enabled bool `env:"RECONCILE_ENABLED" default:"true"`

	// Interval is how often the sweep runs (default: 1h)
	Interval time.Duration `env:"RECONCILE_INTERVAL" default:"1h"`

	// GracePeriod is how old an artifact must be before it counts as orphaned (default: 15m)
	GracePeriod time.Duration `env:"RECONCILE_GRACE_PERIOD" default:"15m"`

	// DeleteOrphans removes orphaned artifacts instead of only reporting them (default: false)
	DeleteOrphans bool `env:"RECONCILE_DELETE_ORPHANS" default:"false"`

	// Prefixes limits the sweep to these key prefixes; empty sweeps everything
	Prefixes []string `env:"RECONCILE_PREFIXES"`
}

// IngestConfig holds parsing preferences.
type IngestConfig struct {
	// Locale is the language of validation messages: en or es (default: en)
	Locale string `env:"INGEST_LOCALE" default:"en"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// RedisEnabled reports whether a Redis lock should be used.
func (c *Config) RedisEnabled() bool {
	return c.Redis.Addr != ""
}

// PubSubEnabled reports whether ingestion events should be published.
func (c *Config) PubSubEnabled() bool {
	return c.PubSub.ProjectID != "" && c.PubSub.Topic != ""
}

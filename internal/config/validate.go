package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	validDBDrivers   = map[string]bool{"postgres": true, "sqlite": true, "memory": true}
	validBlobDrivers = map[string]bool{"memory": true, "fs": true, "s3": true, "gcs": true}
	validLevels      = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	validFormats     = map[string]bool{"text": true, "json": true}
	validLocales     = map[string]bool{"en": true, "es": true}
)

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	driver := strings.ToLower(c.Database.Driver)
	if !validDBDrivers[driver] {
		errs = append(errs, fmt.Sprintf("DATABASE_DRIVER (%q) must be one of: postgres, sqlite, memory", c.Database.Driver))
	}
	if (driver == "postgres" || driver == "sqlite") && c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required for the "+driver+" driver")
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Upload validation
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be positive")
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.UploadLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	// Security validation
	if c.Security.RequireAPIKey && len(c.Security.APIKeys) == 0 {
		errs = append(errs, "REQUIRE_API_KEY is true but API_KEYS is empty; configure at least one API key or disable auth")
	}

	// Storage validation
	switch blobDriver := strings.ToLower(c.Storage.Driver); {
	case !validBlobDrivers[blobDriver]:
		errs = append(errs, fmt.Sprintf("BLOB_DRIVER (%q) must be one of: memory, fs, s3, gcs", c.Storage.Driver))
	case blobDriver == "s3" && c.Storage.S3Bucket == "":
		errs = append(errs, "BLOB_S3_BUCKET is required for the s3 driver")
	case blobDriver == "gcs" && c.Storage.GCSBucket == "":
		errs = append(errs, "BLOB_GCS_BUCKET is required for the gcs driver")
	}

	// Timeout validation
	for _, tc := range []struct {
		name string
		d    time.Duration
	}{
		{"TIMEOUT_UPSERT", c.Timeouts.Upsert},
		{"TIMEOUT_DIGEST_LOOKUP", c.Timeouts.Lookup},
		{"TIMEOUT_BLOB_PUT", c.Timeouts.Put},
		{"TIMEOUT_BLOB_DELETE", c.Timeouts.Delete},
		{"TIMEOUT_DIGEST_RECORD", c.Timeouts.Record},
		{"TIMEOUT_AUDIT", c.Timeouts.Audit},
	} {
		if tc.d <= 0 {
			errs = append(errs, tc.name+" must be positive")
		}
	}

	// Redis and Pub/Sub validation
	if c.RedisEnabled() && c.Redis.LockTTL <= 0 {
		errs = append(errs, "REDIS_LOCK_TTL must be positive when REDIS_ADDRESS is set")
	}
	if c.PubSub.Topic != "" && c.PubSub.ProjectID == "" {
		errs = append(errs, "PUBSUB_TOPIC is set but PUBSUB_PROJECT_ID is empty")
	}

	// Reconcile validation
	if c.Reconcile.Enabled {
		if c.Reconcile.Interval <= 0 {
			errs = append(errs, "RECONCILE_INTERVAL must be positive")
		}
		if c.Reconcile.GracePeriod <= 0 {
			errs = append(errs, "RECONCILE_GRACE_PERIOD must be positive")
		}
	}

	// Logging validation
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	// Ingest validation
	if !validLocales[strings.ToLower(c.Ingest.Locale)] {
		errs = append(errs, fmt.Sprintf("INGEST_LOCALE (%q) must be one of: en, es", c.Ingest.Locale))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// APIPrincipals maps each configured API key to the principal it authenticates.
func (c *SecurityConfig) APIPrincipals() map[string]string {
	out := make(map[string]string, len(c.APIKeys))
	for i, entry := range c.APIKeys {
		name, key, ok := strings.Cut(entry, ":")
		if !ok || name == "" || key == "" {
			out[entry] = "api-key-" + strconv.Itoa(i+1)
			continue
		}
		out[key] = name
	}
	return out
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs and credentials are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	fmt.Fprintf(&b, "Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port)
	fmt.Fprintf(&b, "Database: {Driver: %q, URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.Driver, c.Database.MaxConns, c.Database.MinConns)
	fmt.Fprintf(&b, "Upload: {MaxFileSize: %d, MaxConcurrent: %d}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent)
	fmt.Fprintf(&b, "Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute)
	fmt.Fprintf(&b, "Security: {RequireAPIKey: %v, APIKeys: %d}, ",
		c.Security.RequireAPIKey, len(c.Security.APIKeys))
	fmt.Fprintf(&b, "Storage: {Driver: %q}, ", c.Storage.Driver)
	fmt.Fprintf(&b, "Redis: {Enabled: %v}, PubSub: {Enabled: %v}, ", c.RedisEnabled(), c.PubSubEnabled())
	fmt.Fprintf(&b, "Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format)
	b.WriteString("}")
	return b.String()
}

// Package config provides centralized configuration management for the importer.
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
	Server   ServerConfig
	Database DatabaseConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Import   ImportConfig
	Media    MediaConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout bounds non-import requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds the content store connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"10"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"2"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// UploadConfig holds settings for the multipart upload endpoint.
type UploadConfig struct {
	// MaxRequestSize is the maximum multipart body in bytes (default: 100MB)
	MaxRequestSize int64 `env:"UPLOAD_MAX_REQUEST_SIZE" default:"104857600"`

	// MaxFiles is the maximum number of files per request (default: 20)
	MaxFiles int `env:"UPLOAD_MAX_FILES" default:"20"`

	// MaxConcurrent is the maximum number of batches imported in parallel (default: 2)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"2"`

	// MaxWaitTime is how long a request waits for a batch slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single batch import (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`

	// StagingDir is where uploads are staged before import (default: OS temp dir)
	StagingDir string `env:"UPLOAD_STAGING_DIR"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	Enabled           bool `env:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerMinute int  `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"60"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey enables X-API-Key checks on /api routes (default: false)
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

// ImportConfig describes where imported items land in the content tree and
// which fields they populate.
type ImportConfig struct {
	// HomeType is the type alias of the root node that owns the section.
	HomeType string `env:"IMPORT_HOME_TYPE" default:"homePage"`

	// SectionType is the type alias of the home child new items attach to.
	SectionType string `env:"IMPORT_SECTION_TYPE" default:"article"`

	// ItemType is the type alias given to created items.
	ItemType string `env:"IMPORT_ITEM_TYPE" default:"articleContent"`

	TitleField       string `env:"IMPORT_TITLE_FIELD" default:"title"`
	DescriptionField string `env:"IMPORT_DESCRIPTION_FIELD" default:"description"`
	ImageField       string `env:"IMPORT_IMAGE_FIELD" default:"articleImage"`

	// StrictColumns reports delimited rows with fewer than four fields
	// instead of skipping them (default: false)
	StrictColumns bool `env:"IMPORT_STRICT_COLUMNS" default:"false"`

	// CleanupOrphanImages deletes a stored image when its content item
	// could not be created (default: false)
	CleanupOrphanImages bool `env:"IMPORT_CLEANUP_ORPHAN_IMAGES" default:"false"`

	// AllowedImageTypes is used when a caller supplies no image types.
	AllowedImageTypes []string `env:"IMPORT_ALLOWED_IMAGE_TYPES" default:".jpg,.jpeg,.png,.webp"`
}

// MediaConfig selects and configures the binary store for images.
type MediaConfig struct {
	// Backend is "local" or "s3" (default: local)
	Backend string `env:"MEDIA_BACKEND" default:"local"`

	// Root is the static-asset root for the local backend (default: wwwroot)
	Root string `env:"MEDIA_ROOT" default:"wwwroot"`

	// Prefix is prepended to every stored filename (default: media)
	Prefix string `env:"MEDIA_PREFIX" default:"media"`

	S3Bucket          string `env:"MEDIA_S3_BUCKET"`
	S3Region          string `env:"MEDIA_S3_REGION" default:"us-east-1"`
	S3Endpoint        string `env:"MEDIA_S3_ENDPOINT"`
	S3UsePathStyle    bool   `env:"MEDIA_S3_PATH_STYLE" default:"false"`
	S3AccessKeyID     string `env:"MEDIA_S3_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"MEDIA_S3_SECRET_ACCESS_KEY"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

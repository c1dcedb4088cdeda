// Package config provides centralized configuration management for csvtools.
// It loads configuration from environment variables with sensible defaults and
// validates all settings up front so a run never fails halfway on a bad value.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Logging  LoggingConfig
	Scan     ScanConfig
	Dynamo   DynamoConfig
	Database DatabaseConfig
	Server   ServerConfig
	Watch    WatchConfig
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ScanConfig holds settings shared by every command that walks a CSV.
type ScanConfig struct {
	// ReportInterval is how many records pass between progress log lines (default: 100000)
	ReportInterval int `env:"SCAN_REPORT_INTERVAL" default:"100000"`

	// MaxErrors is the default cap on recorded errors; 0 means unlimited
	MaxErrors int `env:"SCAN_MAX_ERRORS" default:"0"`

	// ContextCheckInterval is how many records pass between cancellation checks (default: 100)
	ContextCheckInterval int `env:"SCAN_CONTEXT_CHECK_INTERVAL" default:"100"`
}

// DynamoConfig holds DynamoDB import settings.
type DynamoConfig struct {
	// Region is the AWS region (default: us-east-1)
	Region string `env:"DYNAMO_REGION" envAlt:"AWS_REGION" default:"us-east-1"`

	// Endpoint overrides the service endpoint, e.g. http://localhost:8000 for DynamoDB Local
	Endpoint string `env:"DYNAMO_ENDPOINT"`

	// BatchSize is items per BatchWriteItem call, at most 25 (default: 25)
	BatchSize int `env:"DYNAMO_BATCH_SIZE" default:"25"`

	// MaxRetries is how often unprocessed items are resent (default: 5)
	MaxRetries int `env:"DYNAMO_MAX_RETRIES" default:"5"`

	// RetryDelay is the first backoff delay, doubled per retry (default: 100ms)
	RetryDelay time.Duration `env:"DYNAMO_RETRY_DELAY" default:"100ms"`
}

// DatabaseConfig holds PostgreSQL staging settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string, needed only by load_postgres
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Schema is the PostgreSQL schema staging tables are created in (default: staging)
	Schema string `env:"DB_SCHEMA" default:"staging"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// BatchSize is rows per COPY round trip (default: 5000)
	BatchSize int `env:"DB_BATCH_SIZE" default:"5000"`
}

// ServerConfig holds settings for the serve command.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 60s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"60s"`

	// WriteTimeout is the maximum duration for writing the response (default: 60s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 5m)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"5m"`

	// MaxUploadSize is the largest CSV body accepted for validation (default: 100MB)
	MaxUploadSize int64 `env:"SERVER_MAX_UPLOAD_SIZE" default:"104857600"`

	// MaxConcurrent is how many validation uploads run at once (default: 4)
	MaxConcurrent int `env:"SERVER_MAX_CONCURRENT" default:"4"`

	// QueueWait is how long an upload waits for a free slot before a 503 (default: 30s)
	QueueWait time.Duration `env:"SERVER_QUEUE_WAIT" default:"30s"`

	// APIKeys is a comma-separated list of keys accepted in X-API-Key on /api
	// routes; empty leaves the API open
	APIKeys []string `env:"SERVER_API_KEYS"`
}

// WatchConfig holds drop-folder watcher settings.
type WatchConfig struct {
	// Debounce is how long a file must stay quiet before it is validated (default: 500ms)
	Debounce time.Duration `env:"WATCH_DEBOUNCE" default:"500ms"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

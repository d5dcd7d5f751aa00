// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net/http"
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Source   SourceConfig
	Database DatabaseConfig
	Filter   FilterConfig
	Export   ExportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading the request (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing the response (default: 120s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"120s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 90s).
	// It must outlast SOURCE_TIMEOUT so a slow download surfaces as a source error.
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"90s"`
}

// SourceConfig selects where the spreadsheet comes from.
type SourceConfig struct {
	// Mode is file, remote or postgres (default: file)
	Mode string `env:"SOURCE_MODE" default:"file"`

	// Path is the local workbook for file mode (default: plano.xlsx)
	Path string `env:"SOURCE_PATH" default:"plano.xlsx"`

	// FileID identifies the remote file (remote mode) or the row id (postgres mode)
	FileID string `env:"SOURCE_FILE_ID" envAlt:"FILE_ID"`

	// URLTemplate builds the download URL; %s is replaced by FileID
	URLTemplate string `env:"SOURCE_URL_TEMPLATE" default:"https://drive.google.com/uc?export=download&id=%s"`

	// UserAgent is sent with remote requests; some hosts block the Go default
	UserAgent string `env:"SOURCE_USER_AGENT"`

	// Headers are extra request headers as Name=Value pairs, comma-separated
	Headers map[string]string `env:"SOURCE_HEADERS"`

	// Timeout bounds one remote download (default: 30s)
	Timeout time.Duration `env:"SOURCE_TIMEOUT" default:"30s"`

	// CacheTTL is how long acquired bytes are reused; 0 keeps them forever (default: 10m)
	CacheTTL time.Duration `env:"SOURCE_CACHE_TTL" default:"10m"`

	// MaxBytes caps the workbook size (default: 50MB)
	MaxBytes int64 `env:"SOURCE_MAX_BYTES" default:"52428800"`

	// Query selects the workbook bytes in postgres mode; $1 is FileID
	Query string `env:"SOURCE_QUERY" default:"SELECT content FROM source_files WHERE id = $1"`
}

// DatabaseConfig holds connection settings for postgres source mode.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required in postgres mode)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int `env:"DB_MIN_CONNS" default:"0"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// FilterConfig holds selection and preview settings.
type FilterConfig struct {
	// SortValues sorts the dropdown lexicographically (default: true)
	SortValues bool `env:"FILTER_SORT_VALUES" default:"true"`

	// PreviewMaxRows caps the preview table; 0 shows all rows (default: 500)
	PreviewMaxRows int `env:"PREVIEW_MAX_ROWS" default:"500"`
}

// ExportConfig holds download settings.
type ExportConfig struct {
	// SheetName names the single exported sheet (default: Datos Filtrados)
	SheetName string `env:"EXPORT_SHEET_NAME" default:"Datos Filtrados"`

	// FilenamePrefix precedes the selection in the file name (default: filtrado_)
	FilenamePrefix string `env:"EXPORT_FILENAME_PREFIX" default:"filtrado_"`

	// MaxConcurrent is the maximum number of parallel exports (default: 4)
	MaxConcurrent int `env:"EXPORT_MAX_CONCURRENT" default:"4"`

	// MaxWait is how long to wait for an export slot (default: 10s)
	MaxWait time.Duration `env:"EXPORT_MAX_WAIT" default:"10s"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`

	// Burst is how many requests may arrive at once (default: 20)
	Burst int `env:"RATE_LIMIT_BURST" default:"20"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// RequireAPIKey protects /api and /metrics with an API key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted keys
	APIKeys []string `env:"API_KEYS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
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
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// RequestHeader merges UserAgent and Headers into an http.Header.
// UserAgent wins over a User-Agent entry in Headers.
func (c *SourceConfig) RequestHeader() http.Header {
	h := make(http.Header, len(c.Headers)+1)
	for name, value := range c.Headers {
		h.Set(name, value)
	}
	if c.UserAgent != "" {
		h.Set("User-Agent", c.UserAgent)
	}
	return h
}

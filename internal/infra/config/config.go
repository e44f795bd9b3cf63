// Package config provides environment-based configuration loading.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration values for the module host process.
// Required fields will cause startup failure if not provided. Optional
// fields have sensible defaults.
type Config struct {
	Port        int    `envconfig:"PORT" default:"8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Env         string `envconfig:"ENV" default:"development"`
	ServiceName string `envconfig:"SERVICE_NAME" default:"modhost"`

	// Error response contract (RFC 7807)
	ProblemBaseURL string `envconfig:"PROBLEM_BASE_URL" default:"https://api.example.com/problems/"`

	// OpenTelemetry
	OTELEnabled          bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELExporterEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTELExporterInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`

	// HTTP request handling
	// MaxRequestSize is the maximum request body size in bytes. Default: 1MB (1048576 bytes).
	MaxRequestSize int64 `envconfig:"MAX_REQUEST_SIZE" default:"1048576"`

	// JWT Authentication, guarding the host's HTTP control surface.
	JWTEnabled   bool          `envconfig:"JWT_ENABLED" default:"false"`
	JWTSecret    string        `envconfig:"JWT_SECRET"`
	JWTIssuer    string        `envconfig:"JWT_ISSUER"`
	JWTAudience  string        `envconfig:"JWT_AUDIENCE"`
	JWTClockSkew time.Duration `envconfig:"JWT_CLOCK_SKEW" default:"0s"`

	// Rate Limiting. RateLimitRedisAddr, when set, switches the HTTP rate
	// limiter from the in-process limiter to a Redis-backed one so the
	// limit is shared across every instance of the module host; empty
	// keeps the single-instance in-memory limiter.
	RateLimitRPS       int    `envconfig:"RATE_LIMIT_RPS" default:"100"`
	TrustProxy         bool   `envconfig:"TRUST_PROXY" default:"false"`
	RateLimitRedisAddr string `envconfig:"RATE_LIMIT_REDIS_ADDR"`
	RateLimitRedisDB   int    `envconfig:"RATE_LIMIT_REDIS_DB" default:"0"`

	// Internal Server (health check)
	InternalPort        int    `envconfig:"INTERNAL_PORT" default:"8081"`
	InternalBindAddress string `envconfig:"INTERNAL_BIND_ADDRESS" default:"127.0.0.1"`

	// Server Timeouts
	HTTPReadTimeout       time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"15s"`
	HTTPWriteTimeout      time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"15s"`
	HTTPIdleTimeout       time.Duration `envconfig:"HTTP_IDLE_TIMEOUT" default:"60s"`
	HTTPReadHeaderTimeout time.Duration `envconfig:"HTTP_READ_HEADER_TIMEOUT" default:"10s"`
	HTTPMaxHeaderBytes    int           `envconfig:"HTTP_MAX_HEADER_BYTES" default:"1048576"`
	// ShutdownTimeout bounds how long Host.Stop waits for every active
	// module to stop; the event dispatcher's drain that follows is not
	// bounded by it.
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// Audit
	AuditRedactEmail string `envconfig:"AUDIT_REDACT_EMAIL" default:"full"`

	// Framework settings (§4.9 and friends): the module host's own knobs,
	// independent of the HTTP control surface above.
	//
	// FrameworkEventThreadPoolSize sizes the event dispatcher's worker pool.
	FrameworkEventThreadPoolSize int `envconfig:"FRAMEWORK_EVENT_THREAD_POOL_SIZE" default:"4"`
	// FrameworkModulesReloadPollInterval is the file watcher's poll period.
	FrameworkModulesReloadPollInterval time.Duration `envconfig:"FRAMEWORK_MODULES_RELOAD_POLL_INTERVAL" default:"1s"`
	// FrameworkModulesAutoReload is the global auto-reload gate the
	// reloader ANDs with each module's per-module flag.
	FrameworkModulesAutoReload bool `envconfig:"FRAMEWORK_MODULES_AUTO_RELOAD" default:"false"`
	// FrameworkModulesAutoStart is the global auto-start gate the engine
	// ANDs with each manifest's auto_start field.
	FrameworkModulesAutoStart bool `envconfig:"FRAMEWORK_MODULES_AUTO_START" default:"true"`
	// FrameworkSecurityEnabled toggles manifest permission enforcement.
	FrameworkSecurityEnabled bool `envconfig:"FRAMEWORK_SECURITY_ENABLED" default:"false"`
	// FrameworkIPCEnabled toggles the connection manager's registered
	// endpoints (§4.14); when false the host never dials a transport.
	FrameworkIPCEnabled bool `envconfig:"FRAMEWORK_IPC_ENABLED" default:"false"`
	// FrameworkServiceCacheSize is the size setting for the service lookup
	// cache (servicecache.Config.MaxEntries); the host process itself does
	// not read it.
	FrameworkServiceCacheSize int `envconfig:"FRAMEWORK_SERVICE_CACHE_SIZE" default:"256"`
}

// Redacted returns a safe string representation of the Config for logging.
func (c *Config) Redacted() string {
	safe := *c
	safe.JWTSecret = "[REDACTED]"
	return fmt.Sprintf("%+v", safe)
}

// Load reads configuration from environment variables.
// It returns an error if required fields are missing.
func Load() (*Config, error) {
	const op = "config.Load"

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.OTELEnabled && strings.TrimSpace(c.OTELExporterEndpoint) == "" {
		return fmt.Errorf("OTEL_ENABLED is true but OTEL_EXPORTER_OTLP_ENDPOINT is empty")
	}

	// Allow 0 for dynamic port allocation.
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: must be between 0 and 65535")
	}
	if c.InternalPort < 0 || c.InternalPort > 65535 {
		return fmt.Errorf("invalid INTERNAL_PORT: must be between 0 and 65535")
	}
	if c.InternalPort != 0 && c.InternalPort == c.Port {
		return fmt.Errorf("INTERNAL_PORT must differ from PORT")
	}
	if c.InternalBindAddress == "" {
		return fmt.Errorf("INTERNAL_BIND_ADDRESS cannot be empty")
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("invalid SERVICE_NAME: must not be empty")
	}

	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.JWTSecret = strings.TrimSpace(c.JWTSecret)
	c.AuditRedactEmail = strings.ToLower(strings.TrimSpace(c.AuditRedactEmail))

	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("invalid ENV: must be one of development, staging, production, test")
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL: must be one of debug, info, warn, error")
	}

	if err := validateProblemBaseURL(c.ProblemBaseURL); err != nil {
		return err
	}

	if c.MaxRequestSize < 1 {
		return fmt.Errorf("invalid MAX_REQUEST_SIZE: must be greater than 0")
	}

	if c.Env == "production" {
		if !c.JWTEnabled {
			return fmt.Errorf("ENV=production requires JWT_ENABLED=true")
		}
		if c.JWTSecret == "" {
			return fmt.Errorf("ENV=production requires JWT_SECRET to be set")
		}
	}

	if c.JWTEnabled {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_ENABLED is true but JWT_SECRET is empty")
		}
		if len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 bytes when JWT_ENABLED is true")
		}
	}

	if c.RateLimitRPS < 1 {
		return fmt.Errorf("invalid RATE_LIMIT_RPS: must be greater than 0")
	}

	switch c.AuditRedactEmail {
	case "full", "partial":
	default:
		return fmt.Errorf("invalid AUDIT_REDACT_EMAIL: must be 'full' or 'partial'")
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid SHUTDOWN_TIMEOUT: must be greater than 0")
	}

	if c.FrameworkEventThreadPoolSize < 1 {
		return fmt.Errorf("invalid FRAMEWORK_EVENT_THREAD_POOL_SIZE: must be greater than 0")
	}
	if c.FrameworkModulesReloadPollInterval <= 0 {
		return fmt.Errorf("invalid FRAMEWORK_MODULES_RELOAD_POLL_INTERVAL: must be greater than 0")
	}
	if c.FrameworkServiceCacheSize < 1 {
		return fmt.Errorf("invalid FRAMEWORK_SERVICE_CACHE_SIZE: must be greater than 0")
	}

	return nil
}

func validateProblemBaseURL(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("invalid PROBLEM_BASE_URL: must not be empty")
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("invalid PROBLEM_BASE_URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid PROBLEM_BASE_URL: must be an absolute URL (scheme + host)")
	}
	if !strings.HasSuffix(trimmed, "/") {
		return fmt.Errorf("invalid PROBLEM_BASE_URL: must end with a trailing slash")
	}
	return nil
}

// IsDevelopment returns true if running in development environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

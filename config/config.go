package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds the application configuration
type Config struct {
	Port     string `validate:"required"`
	LogLevel string

	// Identity provider
	IdPURL     string        `validate:"required,url"` // identity provider public API base URL
	IdPTimeout time.Duration `validate:"gt=0"`

	// Persistence
	DatabaseURL string `validate:"required"`
	RedisURL    string // empty selects the in-memory session store

	// Auth middleware
	AuthCacheTTL   time.Duration `validate:"gt=0"` // session auth cache TTL
	SessionTTL     time.Duration `validate:"gt=0"` // session store entry lifetime
	LoginPath      string        `validate:"required"`
	PublicPaths    []string
	PublicPrefixes []string

	// Gateway token for downstream services
	GatewayTokenSecret   string
	GatewayTokenIssuer   string
	GatewayTokenAudience string
	GatewayTokenTTL      time.Duration `validate:"gt=0"`

	// Throttling
	ThrottleConfigPath string // optional YAML scope file

	// Downstream upstreams (empty disables the proxy route)
	LibraryUpstreamURL string
	UploadUpstreamURL  string
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	config := &Config{
		Port:                 getEnv("PORT", "8888"),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
		IdPURL:               getEnv("IDP_URL", "http://kratos:4433"),
		IdPTimeout:           5 * time.Second,
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RedisURL:             getEnv("REDIS_URL", ""),
		AuthCacheTTL:         300 * time.Second,
		SessionTTL:           24 * time.Hour,
		LoginPath:            getEnv("LOGIN_PATH", "/login"),
		PublicPaths:          splitList(getEnv("PUBLIC_PATHS", "/,/login,/logout,/health")),
		PublicPrefixes:       splitList(getEnv("PUBLIC_PREFIXES", "/static/,/media/")),
		GatewayTokenSecret:   getEnv("GATEWAY_TOKEN_SECRET", ""),
		GatewayTokenIssuer:   getEnv("GATEWAY_TOKEN_ISSUER", "lms-gateway"),
		GatewayTokenAudience: getEnv("GATEWAY_TOKEN_AUDIENCE", "lms-backend"),
		GatewayTokenTTL:      5 * time.Minute,
		ThrottleConfigPath:   getEnv("THROTTLE_CONFIG", ""),
		LibraryUpstreamURL:   getEnv("LIBRARY_UPSTREAM_URL", ""),
		UploadUpstreamURL:    getEnv("UPLOAD_UPSTREAM_URL", ""),
	}

	var err error
	if config.AuthCacheTTL, err = durationEnv("AUTH_CACHE_TTL", config.AuthCacheTTL); err != nil {
		return nil, err
	}
	if config.SessionTTL, err = durationEnv("SESSION_TTL", config.SessionTTL); err != nil {
		return nil, err
	}
	if config.GatewayTokenTTL, err = durationEnv("GATEWAY_TOKEN_TTL", config.GatewayTokenTTL); err != nil {
		return nil, err
	}
	if config.IdPTimeout, err = durationEnv("IDP_TIMEOUT", config.IdPTimeout); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format: %w", key, err)
	}
	return duration, nil
}

func splitList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// getEnv retrieves an environment variable or returns a fallback value
func getEnv(key, fallback string) string {
	// Check for _FILE suffix
	if fileValue := os.Getenv(key + "_FILE"); fileValue != "" {
		content, err := os.ReadFile(fileValue)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}

	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

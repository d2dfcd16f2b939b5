package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// Sharded storage. One DSN per shard; shard count is derived from the
	// number of DSNs and must stay stable across deployments.
	ShardDatabaseURLs []string

	// Server
	APIPort int

	// Logging
	LogLevel string

	// Security
	APIKey         string
	AllowedOrigins string
	AppEnv         string

	// Rate limiting (HTTP facade, per client IP)
	RateLimitRequests float64
	RateLimitBurst    int

	// Cache
	CacheTTL time.Duration

	// Resilience
	BreakerCooldown time.Duration
	RetryMaxRetries int
	RetryBaseDelay  time.Duration

	// Sync
	SyncConcurrency int

	// Attachment gateway. Provider attachment references are rewritten to
	// this base URL when set; empty leaves references untouched.
	AttachmentGatewayURL string

	// Provider credentials
	GmailClientID       string
	GmailClientSecret   string
	OutlookClientID     string
	OutlookClientSecret string
	OutlookTenantID     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{}

	// Required: SHARD_DATABASE_URLS (comma-separated, one per shard)
	shardURLs := os.Getenv("SHARD_DATABASE_URLS")
	if shardURLs == "" {
		return nil, fmt.Errorf("SHARD_DATABASE_URLS is required but not set")
	}
	for _, dsn := range strings.Split(shardURLs, ",") {
		dsn = strings.TrimSpace(dsn)
		if dsn == "" {
			return nil, fmt.Errorf("SHARD_DATABASE_URLS contains an empty DSN")
		}
		cfg.ShardDatabaseURLs = append(cfg.ShardDatabaseURLs, dsn)
	}

	// API_PORT (default: 8080)
	apiPort := os.Getenv("API_PORT")
	if apiPort == "" {
		cfg.APIPort = 8080
	} else {
		port, err := strconv.Atoi(apiPort)
		if err != nil {
			return nil, fmt.Errorf("API_PORT must be a valid integer: %w", err)
		}
		cfg.APIPort = port
	}

	// LOG_LEVEL (default: info)
	cfg.LogLevel = os.Getenv("LOG_LEVEL")
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	// Security configuration
	cfg.APIKey = os.Getenv("API_KEY")
	cfg.AllowedOrigins = os.Getenv("ALLOWED_ORIGINS")
	cfg.AppEnv = os.Getenv("APP_ENV")
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}

	// Rate limiting configuration
	if rps := os.Getenv("RATE_LIMIT_REQUESTS"); rps != "" {
		if v, err := strconv.ParseFloat(rps, 64); err == nil {
			cfg.RateLimitRequests = v
		}
	} else {
		cfg.RateLimitRequests = 10.0
	}

	if burst := os.Getenv("RATE_LIMIT_BURST"); burst != "" {
		if v, err := strconv.Atoi(burst); err == nil {
			cfg.RateLimitBurst = v
		}
	} else {
		cfg.RateLimitBurst = 20
	}

	// CACHE_TTL_SECONDS (default: 300)
	cfg.CacheTTL = durationFromEnv("CACHE_TTL_SECONDS", 300*time.Second)

	// Resilience tunables
	cfg.BreakerCooldown = durationFromEnv("BREAKER_COOLDOWN_SECONDS", 30*time.Second)
	cfg.RetryBaseDelay = durationFromEnv("RETRY_BASE_DELAY_SECONDS", time.Second)
	cfg.RetryMaxRetries = intFromEnv("RETRY_MAX_RETRIES", 3)

	// SYNC_CONCURRENCY (default: 5)
	cfg.SyncConcurrency = intFromEnv("SYNC_CONCURRENCY", 5)

	cfg.AttachmentGatewayURL = os.Getenv("ATTACHMENT_GATEWAY_URL")

	// Provider credentials
	cfg.GmailClientID = os.Getenv("GMAIL_CLIENT_ID")
	cfg.GmailClientSecret = os.Getenv("GMAIL_CLIENT_SECRET")
	cfg.OutlookClientID = os.Getenv("OUTLOOK_CLIENT_ID")
	cfg.OutlookClientSecret = os.Getenv("OUTLOOK_CLIENT_SECRET")
	cfg.OutlookTenantID = os.Getenv("OUTLOOK_TENANT_ID")

	return cfg, nil
}

// LoadWithValidation loads and validates configuration, failing fast on errors
func LoadWithValidation() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Production-specific validation
	if cfg.AppEnv == "production" {
		if err := cfg.ValidateProduction(); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// ShardCount returns the number of configured shards
func (c *Config) ShardCount() int {
	return len(c.ShardDatabaseURLs)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.ShardDatabaseURLs) == 0 {
		return fmt.Errorf("at least one shard database URL is required")
	}
	if c.APIPort <= 0 || c.APIPort > 65535 {
		return fmt.Errorf("APIPort must be between 1 and 65535")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CacheTTL must be positive")
	}
	if c.RetryMaxRetries < 0 {
		return fmt.Errorf("RetryMaxRetries cannot be negative")
	}
	if c.SyncConcurrency <= 0 {
		return fmt.Errorf("SyncConcurrency must be positive")
	}
	return nil
}

// ValidateProduction performs additional validation for production environment
func (c *Config) ValidateProduction() error {
	if c.APIKey == "" {
		return fmt.Errorf("API_KEY is required in production")
	}

	if c.AllowedOrigins == "" {
		return fmt.Errorf("ALLOWED_ORIGINS is required in production")
	}

	// Check for wildcard in production
	if strings.Contains(c.AllowedOrigins, "*") {
		return fmt.Errorf("wildcard (*) origins are not allowed in production")
	}

	// Check for sslmode=disable in shard DSNs
	for i, dsn := range c.ShardDatabaseURLs {
		if strings.Contains(dsn, "sslmode=disable") {
			return fmt.Errorf("sslmode=disable is not allowed in production (shard %d)", i)
		}
	}

	return nil
}

// LogConfig logs configuration values (excluding secrets)
func (c *Config) LogConfig(logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.Int("api_port", c.APIPort),
		slog.Int("shard_count", c.ShardCount()),
		slog.String("log_level", c.LogLevel),
		slog.String("app_env", c.AppEnv),
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.Bool("allowed_origins_set", c.AllowedOrigins != ""),
		slog.Float64("rate_limit_rps", c.RateLimitRequests),
		slog.Int("rate_limit_burst", c.RateLimitBurst),
		slog.Duration("cache_ttl", c.CacheTTL),
		slog.Duration("breaker_cooldown", c.BreakerCooldown),
		slog.Int("retry_max_retries", c.RetryMaxRetries),
		slog.Int("sync_concurrency", c.SyncConcurrency),
		slog.Bool("attachment_gateway_set", c.AttachmentGatewayURL != ""),
		slog.Bool("gmail_configured", c.GmailClientID != ""),
		slog.Bool("outlook_configured", c.OutlookClientID != ""),
	)
}

func durationFromEnv(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return fallback
}

func intFromEnv(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

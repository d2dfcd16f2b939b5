package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiredShardDatabaseURLs(t *testing.T) {
	os.Unsetenv("SHARD_DATABASE_URLS")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "SHARD_DATABASE_URLS is required")
}

func TestLoad_DefaultValues(t *testing.T) {
	os.Setenv("SHARD_DATABASE_URLS", "postgres://localhost/shard0")
	defer os.Unsetenv("SHARD_DATABASE_URLS")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, 1, cfg.ShardCount())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, 10.0, cfg.RateLimitRequests)
	assert.Equal(t, 20, cfg.RateLimitBurst)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 30*time.Second, cfg.BreakerCooldown)
	assert.Equal(t, 3, cfg.RetryMaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBaseDelay)
	assert.Equal(t, 5, cfg.SyncConcurrency)
}

func TestLoad_MultipleShards(t *testing.T) {
	os.Setenv("SHARD_DATABASE_URLS", "postgres://db0/mail, postgres://db1/mail ,postgres://db2/mail")
	defer os.Unsetenv("SHARD_DATABASE_URLS")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.ShardCount())
	assert.Equal(t, "postgres://db1/mail", cfg.ShardDatabaseURLs[1])
}

func TestLoad_EmptyShardDSNRejected(t *testing.T) {
	os.Setenv("SHARD_DATABASE_URLS", "postgres://db0/mail,,postgres://db2/mail")
	defer os.Unsetenv("SHARD_DATABASE_URLS")

	_, err := Load()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "empty DSN")
}

func TestValidateProduction_RequiresAPIKey(t *testing.T) {
	cfg := &Config{
		ShardDatabaseURLs: []string{"postgres://localhost/shard0"},
		AppEnv:            "production",
		AllowedOrigins:    "http://example.com",
		APIKey:            "",
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "API_KEY is required")
}

func TestValidateProduction_RequiresAllowedOrigins(t *testing.T) {
	cfg := &Config{
		ShardDatabaseURLs: []string{"postgres://localhost/shard0"},
		AppEnv:            "production",
		APIKey:            "test-key",
		AllowedOrigins:    "",
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "ALLOWED_ORIGINS is required")
}

func TestValidateProduction_NoWildcardOrigins(t *testing.T) {
	cfg := &Config{
		ShardDatabaseURLs: []string{"postgres://localhost/shard0"},
		AppEnv:            "production",
		APIKey:            "test-key",
		AllowedOrigins:    "*",
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "wildcard")
}

func TestValidateProduction_NoSSLDisableOnAnyShard(t *testing.T) {
	cfg := &Config{
		ShardDatabaseURLs: []string{
			"postgres://localhost/shard0?sslmode=require",
			"postgres://localhost/shard1?sslmode=disable",
		},
		AppEnv:         "production",
		APIKey:         "test-key",
		AllowedOrigins: "http://example.com",
	}

	err := cfg.ValidateProduction()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sslmode=disable")
	assert.Contains(t, err.Error(), "shard 1")
}

func TestValidateProduction_ValidConfig(t *testing.T) {
	cfg := &Config{
		ShardDatabaseURLs: []string{"postgres://localhost/shard0?sslmode=require"},
		AppEnv:            "production",
		APIKey:            "test-key",
		AllowedOrigins:    "http://example.com",
	}

	err := cfg.ValidateProduction()
	assert.NoError(t, err)
}

func TestLoadWithValidation_FailFast(t *testing.T) {
	os.Setenv("SHARD_DATABASE_URLS", "postgres://localhost/shard0?sslmode=disable")
	os.Setenv("APP_ENV", "production")
	os.Setenv("API_KEY", "test-key")
	os.Setenv("ALLOWED_ORIGINS", "http://example.com")
	defer func() {
		os.Unsetenv("SHARD_DATABASE_URLS")
		os.Unsetenv("APP_ENV")
		os.Unsetenv("API_KEY")
		os.Unsetenv("ALLOWED_ORIGINS")
	}()

	_, err := LoadWithValidation()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sslmode=disable")
}

func TestLoadWithValidation_DevelopmentAllowsInsecure(t *testing.T) {
	os.Setenv("SHARD_DATABASE_URLS", "postgres://localhost/shard0?sslmode=disable")
	os.Setenv("APP_ENV", "development")
	defer func() {
		os.Unsetenv("SHARD_DATABASE_URLS")
		os.Unsetenv("APP_ENV")
	}()

	cfg, err := LoadWithValidation()
	assert.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := &Config{
		ShardDatabaseURLs: []string{"postgres://localhost/shard0"},
		APIPort:           0,
		CacheTTL:          5 * time.Minute,
		SyncConcurrency:   5,
	}

	err := cfg.Validate()
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "APIPort")
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		ShardDatabaseURLs: []string{"postgres://localhost/shard0"},
		APIPort:           8080,
		CacheTTL:          5 * time.Minute,
		SyncConcurrency:   5,
	}

	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestLoad_SecurityConfig(t *testing.T) {
	os.Setenv("SHARD_DATABASE_URLS", "postgres://localhost/shard0")
	os.Setenv("API_KEY", "my-secret-key")
	os.Setenv("ALLOWED_ORIGINS", "http://localhost:3000,http://example.com")
	os.Setenv("APP_ENV", "staging")
	os.Setenv("RATE_LIMIT_REQUESTS", "20")
	os.Setenv("RATE_LIMIT_BURST", "50")
	defer func() {
		os.Unsetenv("SHARD_DATABASE_URLS")
		os.Unsetenv("API_KEY")
		os.Unsetenv("ALLOWED_ORIGINS")
		os.Unsetenv("APP_ENV")
		os.Unsetenv("RATE_LIMIT_REQUESTS")
		os.Unsetenv("RATE_LIMIT_BURST")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "my-secret-key", cfg.APIKey)
	assert.Equal(t, "http://localhost:3000,http://example.com", cfg.AllowedOrigins)
	assert.Equal(t, "staging", cfg.AppEnv)
	assert.Equal(t, 20.0, cfg.RateLimitRequests)
	assert.Equal(t, 50, cfg.RateLimitBurst)
}

func TestLoad_ResilienceOverrides(t *testing.T) {
	os.Setenv("SHARD_DATABASE_URLS", "postgres://localhost/shard0")
	os.Setenv("CACHE_TTL_SECONDS", "60")
	os.Setenv("BREAKER_COOLDOWN_SECONDS", "10")
	os.Setenv("RETRY_MAX_RETRIES", "5")
	os.Setenv("SYNC_CONCURRENCY", "8")
	defer func() {
		os.Unsetenv("SHARD_DATABASE_URLS")
		os.Unsetenv("CACHE_TTL_SECONDS")
		os.Unsetenv("BREAKER_COOLDOWN_SECONDS")
		os.Unsetenv("RETRY_MAX_RETRIES")
		os.Unsetenv("SYNC_CONCURRENCY")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.Equal(t, 10*time.Second, cfg.BreakerCooldown)
	assert.Equal(t, 5, cfg.RetryMaxRetries)
	assert.Equal(t, 8, cfg.SyncConcurrency)
}

func TestLoad_ProviderCredentials(t *testing.T) {
	os.Setenv("SHARD_DATABASE_URLS", "postgres://localhost/shard0")
	os.Setenv("GMAIL_CLIENT_ID", "gmail-id")
	os.Setenv("GMAIL_CLIENT_SECRET", "gmail-secret")
	os.Setenv("OUTLOOK_CLIENT_ID", "outlook-id")
	os.Setenv("OUTLOOK_TENANT_ID", "tenant")
	defer func() {
		os.Unsetenv("SHARD_DATABASE_URLS")
		os.Unsetenv("GMAIL_CLIENT_ID")
		os.Unsetenv("GMAIL_CLIENT_SECRET")
		os.Unsetenv("OUTLOOK_CLIENT_ID")
		os.Unsetenv("OUTLOOK_TENANT_ID")
	}()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "gmail-id", cfg.GmailClientID)
	assert.Equal(t, "gmail-secret", cfg.GmailClientSecret)
	assert.Equal(t, "outlook-id", cfg.OutlookClientID)
	assert.Equal(t, "tenant", cfg.OutlookTenantID)
}

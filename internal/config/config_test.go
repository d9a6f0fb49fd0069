package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("PORT", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("ANALYTICS_CACHE_TTL", "")
	t.Setenv("ASSET_DELETE_ATTEMPTS", "")
	t.Setenv("REDIS_DB", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StorageNone, cfg.StorageBackend)
	assert.Equal(t, 60*time.Second, cfg.AnalyticsCacheTTL)
	assert.Equal(t, 3, cfg.AssetDeleteAttempts)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()

	assert.ErrorContains(t, err, "JWT_SECRET is required")
}

func TestLoad_RejectsMalformedNumbers(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("REDIS_DB", "one")

	_, err := Load()

	assert.ErrorContains(t, err, "REDIS_DB must be an integer")
}

func TestValidate_StorageBackends(t *testing.T) {
	base := func() Config {
		return Config{JWTSecret: "s", AssetDeleteAttempts: 3, StorageBackend: StorageNone}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"none", func(*Config) {}, ""},
		{"supabase without url", func(c *Config) {
			c.StorageBackend = StorageSupabase
			c.SupabaseServiceKey = "k"
		}, "SUPABASE_URL is required"},
		{"supabase complete", func(c *Config) {
			c.StorageBackend = StorageSupabase
			c.SupabaseURL = "https://x.supabase.co"
			c.SupabaseServiceKey = "k"
		}, ""},
		{"s3 without bucket", func(c *Config) { c.StorageBackend = StorageS3 }, "S3_BUCKET is required"},
		{"s3 half credentials", func(c *Config) {
			c.StorageBackend = StorageS3
			c.S3Bucket = "b"
			c.S3AccessKeyID = "AKIA"
		}, "must be set together"},
		{"s3 default chain", func(c *Config) {
			c.StorageBackend = StorageS3
			c.S3Bucket = "b"
		}, ""},
		{"unknown backend", func(c *Config) { c.StorageBackend = "gcs" }, "unknown STORAGE_BACKEND"},
		{"zero attempts", func(c *Config) { c.AssetDeleteAttempts = 0 }, "ASSET_DELETE_ATTEMPTS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestIsDevelopment(t *testing.T) {
	assert.True(t, (&Config{Environment: "development"}).IsDevelopment())
	assert.False(t, (&Config{Environment: "production"}).IsDevelopment())
	assert.False(t, (&Config{Environment: "staging"}).IsDevelopment())
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 10, cfg.Scraper.MaxAttempts)
	assert.Equal(t, "pet_products", cfg.Database.Name)
	assert.NotEmpty(t, cfg.Scraper.UserAgents)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("SCRAPER_MAX_ATTEMPTS", "25")
	t.Setenv("SCRAPER_RETRY_MIN_DELAY", "2s")
	t.Setenv("SCRAPER_RETRY_MAX_DELAY", "5s")
	t.Setenv("SCRAPER_USER_AGENTS", "agent-a, with comma | agent-b")
	t.Setenv("DB_PORT", "not-a-number")
	t.Setenv("REDIS_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 25, cfg.Scraper.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.Scraper.RetryMinDelay)
	assert.Equal(t, 5*time.Second, cfg.Scraper.RetryMaxDelay)
	assert.Equal(t, []string{"agent-a, with comma", "agent-b"}, cfg.Scraper.UserAgents)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.True(t, cfg.Redis.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "zero attempts",
			mutate:  func(c *Config) { c.Scraper.MaxAttempts = 0 },
			wantErr: "SCRAPER_MAX_ATTEMPTS",
		},
		{
			name: "inverted retry window",
			mutate: func(c *Config) {
				c.Scraper.RetryMinDelay = 10 * time.Second
				c.Scraper.RetryMaxDelay = time.Second
			},
			wantErr: "SCRAPER_RETRY_MIN_DELAY",
		},
		{
			name: "inverted courtesy window",
			mutate: func(c *Config) {
				c.Scraper.CourtesyMin = 10 * time.Second
				c.Scraper.CourtesyMax = time.Second
			},
			wantErr: "SCRAPER_COURTESY_MIN",
		},
		{
			name:    "no user agents",
			mutate:  func(c *Config) { c.Scraper.UserAgents = nil },
			wantErr: "SCRAPER_USER_AGENTS",
		},
		{
			name:    "viewport",
			mutate:  func(c *Config) { c.Browser.ViewportMinW = 4000 },
			wantErr: "viewport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

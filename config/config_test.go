package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Browser.Enabled)
	assert.Equal(t, []string{"Image", "Stylesheet", "Font", "Media"}, cfg.Browser.BlockedResourceTypes)
	assert.Equal(t, 120*time.Second, cfg.Scraper.MaxTimeout)
	assert.Equal(t, int64(10<<20), cfg.Scraper.MaxBodyBytes)
	assert.Equal(t, 512, cfg.Log.BufferSize)
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 5 * time.Second}, cfg.Engine.EscalationDelays)
	assert.Equal(t, 5, cfg.Batch.Concurrency)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("SCRAPEURL_PORT", "9090")
	t.Setenv("SCRAPEURL_BROWSER", "false")
	t.Setenv("SCRAPEURL_API_KEYS", " key-a , ,key-b")
	t.Setenv("SCRAPEURL_MAX_TIMEOUT", "45s")
	t.Setenv("SCRAPEURL_RATE_RPS", "2.5")
	t.Setenv("SCRAPEURL_ESCALATION_DELAYS", "0s, 500ms")
	t.Setenv("SCRAPEURL_LOG_BUFFER", "64")

	cfg := Load()
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.False(t, cfg.Browser.Enabled)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.Auth.APIKeys)
	assert.Equal(t, 45*time.Second, cfg.Scraper.MaxTimeout)
	assert.InDelta(t, 2.5, cfg.RateLimit.RequestsPerSecond, 1e-9)
	assert.Equal(t, []time.Duration{0, 500 * time.Millisecond}, cfg.Engine.EscalationDelays)
	assert.Equal(t, 64, cfg.Log.BufferSize)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SCRAPEURL_PORT", "not-a-port")
	t.Setenv("SCRAPEURL_HEADLESS", "maybe")
	t.Setenv("SCRAPEURL_CACHE_TTL", "forever")
	t.Setenv("SCRAPEURL_ESCALATION_DELAYS", "soon,later")

	cfg := Load()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []time.Duration{0, 2 * time.Second, 5 * time.Second}, cfg.Engine.EscalationDelays)
}

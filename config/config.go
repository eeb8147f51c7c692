package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Engine    EngineConfig
	Batch     BatchConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration // default: 15s
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Enabled launches a headless browser for JavaScript rendering.
	Enabled bool // default: true

	Headless bool // default: true

	// MaxPages is the page pool capacity (max concurrent tabs).
	MaxPages int // default: 10

	// DefaultProxy is the proxy URL for all fetches.
	DefaultProxy string

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// BlockedResourceTypes lists resource types the browser never loads.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string

	// BlockAds drops requests to known ad and analytics hosts.
	BlockAds bool // default: true
}

// ScraperConfig controls scraping behavior.
type ScraperConfig struct {
	// MaxTimeout caps the per-request timeout a client may ask for.
	MaxTimeout time.Duration // default: 120s

	// MaxBodyBytes caps the response body read by the HTTP engine.
	MaxBodyBytes int64 // default: 10 MiB

	// Stealth injects the stealth script on every browser fetch.
	Stealth bool // default: false
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool // default: true

	// APIKeys is the list of accepted bearer tokens.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// CacheConfig controls the scrape document cache.
type CacheConfig struct {
	// MaxEntries is the maximum number of cached documents.
	MaxEntries int // default: 1000

	// TTL is how long a document may stay cached at most.
	TTL time.Duration // default: 1h
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"

	// BufferSize is the number of log entries kept per scrape.
	BufferSize int // default: 512
}

// EngineConfig controls the multi-engine racing dispatcher.
type EngineConfig struct {
	// EscalationDelays is the staged start delay for each engine tier
	// (http, rod, rod-stealth).
	EscalationDelays []time.Duration // default: [0s, 2s, 5s]

	// DomainMemoryTTL is how long a winning engine is remembered per host.
	DomainMemoryTTL time.Duration // default: 1h
}

// BatchConfig controls batch scrape jobs.
type BatchConfig struct {
	// MaxURLs caps the number of URLs in one batch request.
	MaxURLs int // default: 100

	// Concurrency is the number of URLs of one batch scraped in parallel.
	Concurrency int // default: 5

	// JobTTL is how long finished jobs stay queryable.
	JobTTL time.Duration // default: 24h
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            envOr("SCRAPEURL_HOST", "0.0.0.0"),
			Port:            envIntOr("SCRAPEURL_PORT", 8080),
			Mode:            envOr("SCRAPEURL_MODE", "release"),
			ShutdownTimeout: envDurationOr("SCRAPEURL_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Browser: BrowserConfig{
			Enabled:      envBoolOr("SCRAPEURL_BROWSER", true),
			Headless:     envBoolOr("SCRAPEURL_HEADLESS", true),
			MaxPages:     envIntOr("SCRAPEURL_MAX_PAGES", 10),
			DefaultProxy: os.Getenv("SCRAPEURL_PROXY"),
			NoSandbox:    envBoolOr("SCRAPEURL_NO_SANDBOX", false),
			BrowserBin:   os.Getenv("SCRAPEURL_BROWSER_BIN"),
			BlockedResourceTypes: envSliceOr("SCRAPEURL_BLOCKED_RESOURCES", []string{
				"Image", "Stylesheet", "Font", "Media",
			}),
			BlockAds: envBoolOr("SCRAPEURL_BLOCK_ADS", true),
		},
		Scraper: ScraperConfig{
			MaxTimeout:   envDurationOr("SCRAPEURL_MAX_TIMEOUT", 120*time.Second),
			MaxBodyBytes: int64(envIntOr("SCRAPEURL_MAX_BODY_BYTES", 10<<20)),
			Stealth:      envBoolOr("SCRAPEURL_STEALTH", false),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("SCRAPEURL_AUTH_ENABLED", true),
			APIKeys: envSliceOr("SCRAPEURL_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("SCRAPEURL_RATE_RPS", 5.0),
			Burst:             envIntOr("SCRAPEURL_RATE_BURST", 10),
		},
		Cache: CacheConfig{
			MaxEntries: envIntOr("SCRAPEURL_CACHE_MAX_ENTRIES", 1000),
			TTL:        envDurationOr("SCRAPEURL_CACHE_TTL", time.Hour),
		},
		Log: LogConfig{
			Level:      envOr("SCRAPEURL_LOG_LEVEL", "info"),
			Format:     envOr("SCRAPEURL_LOG_FORMAT", "json"),
			BufferSize: envIntOr("SCRAPEURL_LOG_BUFFER", 512),
		},
		Engine: EngineConfig{
			EscalationDelays: envDurationSliceOr("SCRAPEURL_ESCALATION_DELAYS", []time.Duration{0, 2 * time.Second, 5 * time.Second}),
			DomainMemoryTTL:  envDurationOr("SCRAPEURL_DOMAIN_MEMORY_TTL", time.Hour),
		},
		Batch: BatchConfig{
			MaxURLs:     envIntOr("SCRAPEURL_BATCH_MAX_URLS", 100),
			Concurrency: envIntOr("SCRAPEURL_BATCH_CONCURRENCY", 5),
			JobTTL:      envDurationOr("SCRAPEURL_BATCH_JOB_TTL", 24*time.Hour),
		},
	}
}

func envDurationSliceOr(key string, fallback []time.Duration) []time.Duration {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]time.Duration, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				if d, err := time.ParseDuration(trimmed); err == nil {
					result = append(result, d)
				}
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return fallback
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}

package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Pool      PoolConfig      `mapstructure:"pool"`
	Scraper   ScraperConfig   `mapstructure:"scraper"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `mapstructure:"host"` // default: "0.0.0.0"
	Port int    `mapstructure:"port"` // default: 8080
	Mode string `mapstructure:"mode"` // "debug", "release", "test"; default: "release"
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`  // default: "info"
	Format string `mapstructure:"format"` // "json" or "text"; default: "json"
}

// BrowserConfig controls how individual browser processes are launched.
type BrowserConfig struct {
	// Headless controls whether browsers run headless.
	Headless bool `mapstructure:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `mapstructure:"no_sandbox"`

	// Bin overrides the Chromium binary path.
	Bin string `mapstructure:"bin"`
}

// PoolConfig controls the browser pool and its launch circuit breaker.
//
// MaxBrowsers is environment-sensitive: constrained deployments run with 1,
// a normal host allows 3 or more.
type PoolConfig struct {
	MaxBrowsers    int           `mapstructure:"max_browsers"`    // default: 3
	AcquireTimeout time.Duration `mapstructure:"acquire_timeout"` // default: 30s
	PollInterval   time.Duration `mapstructure:"poll_interval"`   // default: 250ms

	// BreakerThreshold is the consecutive launch failures that trip the breaker.
	BreakerThreshold int `mapstructure:"breaker_threshold"` // default: 3

	// BreakerCooldown is how long acquire fails fast after tripping.
	BreakerCooldown time.Duration `mapstructure:"breaker_cooldown"` // default: 1m
}

// ScraperConfig controls per-scrape behavior.
type ScraperConfig struct {
	// NavigationTimeout bounds page.Navigate plus load when the request
	// carries no timeout of its own.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout"` // default: 15s

	// SelectorTimeout bounds the optional wait-for-selector phase.
	// Always shorter than the navigation timeout.
	SelectorTimeout time.Duration `mapstructure:"selector_timeout"` // default: 5s

	// UserAgent is the default user-agent for sources that set none.
	UserAgent string `mapstructure:"user_agent"`

	// Stealth injects anti-bot-detection JS into every page session
	// unless the request already asked for it.
	Stealth bool `mapstructure:"stealth"` // default: true

	// DelayMinMs/DelayMaxMs pace scrapes that carry no delay of their
	// own: fixed at min when max <= min, otherwise jittered in [min, max].
	// Zero for both disables the default pacing.
	DelayMinMs int `mapstructure:"delay_min_ms"` // default: 0
	DelayMaxMs int `mapstructure:"delay_max_ms"` // default: 0

	// BlockedResourceTypes lists resource types suppressed during page load.
	// default: ["Image", "Stylesheet", "Font", "Media"]
	BlockedResourceTypes []string `mapstructure:"blocked_resource_types"`
}

// CacheConfig controls the result cache.
type CacheConfig struct {
	// ListTTL is how long fan-out / listing responses stay fresh.
	ListTTL time.Duration `mapstructure:"list_ttl"` // default: 10m

	// DetailsTTL is how long series-detail responses stay fresh.
	DetailsTTL time.Duration `mapstructure:"details_ttl"` // default: 30m

	// MaxEntries triggers a full sweep when the store reaches this size.
	MaxEntries int `mapstructure:"max_entries"` // default: 1000

	// SweepInterval is the period of the background eviction sweep.
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // default: 5m

	// ExpiredHitThreshold triggers an early sweep after this many
	// expired-on-read hits accumulate between periodic sweeps.
	ExpiredHitThreshold int `mapstructure:"expired_hit_threshold"` // default: 25
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	APIKeys []string `mapstructure:"api_keys"`
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"` // default: 5
	Burst             int     `mapstructure:"burst"`               // default: 10
}

// MustLoad reads config.yaml from the working directory, layered with
// environment variables, and exits the process on failure.
func MustLoad() *Config {
	viper.AddConfigPath(".")
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("scanlate")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("can't read config file", slog.String("err", err.Error()))
			os.Exit(1)
		}
		// No file is fine; defaults plus env vars apply.
	}

	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		slog.Error("can't unmarshal config", slog.String("err", err.Error()))
		os.Exit(1)
	}
	return cfg
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")

	viper.SetDefault("browser.headless", true)
	viper.SetDefault("browser.no_sandbox", false)

	viper.SetDefault("pool.max_browsers", 3)
	viper.SetDefault("pool.acquire_timeout", 30*time.Second)
	viper.SetDefault("pool.poll_interval", 250*time.Millisecond)
	viper.SetDefault("pool.breaker_threshold", 3)
	viper.SetDefault("pool.breaker_cooldown", time.Minute)

	viper.SetDefault("scraper.navigation_timeout", 15*time.Second)
	viper.SetDefault("scraper.selector_timeout", 5*time.Second)
	viper.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36")
	viper.SetDefault("scraper.blocked_resource_types",
		[]string{"Image", "Stylesheet", "Font", "Media"})
	viper.SetDefault("scraper.stealth", true)
	viper.SetDefault("scraper.delay_min_ms", 0)
	viper.SetDefault("scraper.delay_max_ms", 0)

	viper.SetDefault("cache.list_ttl", 10*time.Minute)
	viper.SetDefault("cache.details_ttl", 30*time.Minute)
	viper.SetDefault("cache.max_entries", 1000)
	viper.SetDefault("cache.sweep_interval", 5*time.Minute)
	viper.SetDefault("cache.expired_hit_threshold", 25)

	viper.SetDefault("auth.enabled", false)

	viper.SetDefault("rate_limit.requests_per_second", 5.0)
	viper.SetDefault("rate_limit.burst", 10)
}

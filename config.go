package xbridge

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the bridge client.
type Config struct {
	// BaseURL is the bridge server's base URL.
	// Default: http://localhost:3000
	BaseURL string

	// ConnectTimeout bounds connection establishment for a single attempt.
	ConnectTimeout time.Duration

	// RequestTimeout bounds one full request attempt. Retries each get a
	// fresh timeout; it is never cumulative across attempts.
	RequestTimeout time.Duration

	// MaxAttempts is the total number of dispatch attempts for retryable
	// failures, including the first.
	MaxAttempts int

	// BackoffInitial is the first inter-attempt delay.
	BackoffInitial time.Duration

	// BackoffCap is the maximum inter-attempt delay.
	BackoffCap time.Duration

	// MaxTimelineCount caps how many tweets one timeline call may request.
	MaxTimelineCount int

	// UserAgent overrides the User-Agent header sent to the bridge.
	UserAgent string

	// LogLevel sets the slog level for client-side logging.
	LogLevel slog.Level
}

const defaultUserAgent = "go-xbridge/1.0"

// defaults fills in zero-value config fields with conservative defaults.
func (cfg *Config) defaults() {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:3000"
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.BackoffInitial == 0 {
		cfg.BackoffInitial = 1 * time.Second
	}
	if cfg.BackoffCap == 0 {
		cfg.BackoffCap = 30 * time.Second
	}
	if cfg.MaxTimelineCount == 0 {
		cfg.MaxTimelineCount = 200
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
}

// validate rejects configurations the client cannot safely run with.
func (cfg *Config) validate() error {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid base URL %q", cfg.BaseURL)
	}
	if cfg.ConnectTimeout <= 0 || cfg.RequestTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if cfg.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if cfg.BackoffInitial <= 0 || cfg.BackoffCap < cfg.BackoffInitial {
		return fmt.Errorf("backoff window must be positive and cap >= initial")
	}
	return nil
}

// fileConfig mirrors the on-disk configuration document. YAML and JSON are
// both accepted (yaml.v3 parses JSON input).
type fileConfig struct {
	API struct {
		BaseURL               string  `yaml:"base_url"`
		TimeoutSeconds        float64 `yaml:"timeout_seconds"`
		ConnectTimeoutSeconds float64 `yaml:"connect_timeout_seconds"`
		MaxRetries            int     `yaml:"max_retries"`
		BackoffBase           float64 `yaml:"backoff_base"`
		BackoffCap            float64 `yaml:"backoff_cap"`
	} `yaml:"api"`
	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads a YAML or JSON configuration file, applies environment
// overrides, and validates the result.
func LoadConfig(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg := Config{
		BaseURL:        fc.API.BaseURL,
		ConnectTimeout: secondsToDuration(fc.API.ConnectTimeoutSeconds),
		RequestTimeout: secondsToDuration(fc.API.TimeoutSeconds),
		MaxAttempts:    fc.API.MaxRetries,
		BackoffInitial: secondsToDuration(fc.API.BackoffBase),
		BackoffCap:     secondsToDuration(fc.API.BackoffCap),
		LogLevel:       parseLogLevel(fc.Logging.Level),
	}

	cfg.applyEnvOverrides()
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// applyEnvOverrides honors environment overrides for deploy-time tweaking.
// TWITTER_BRIDGE_URL and API_BASE_URL both name the bridge base URL; the
// purpose-specific TWITTER_BRIDGE_URL wins when both are set.
func (cfg *Config) applyEnvOverrides() {
	if v := os.Getenv("API_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("TWITTER_BRIDGE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = parseLogLevel(v)
	}
}

// logger builds the client's logger honoring LogLevel.
func (cfg *Config) logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel}))
}

func parseLogLevel(v string) slog.Level {
	switch strings.ToUpper(v) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func secondsToDuration(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// Package config loads and validates the orchestrator's configuration,
// following the teacher's layered-override convention: built-in defaults,
// then a TOML file, then environment variables, each taking priority over
// the last.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config is the root configuration object. Every tunable enumerated in
// spec.md §6 is a field here, grouped by the component it governs.
type Config struct {
	Environment string         `toml:"environment"`
	Logging     LoggingConfig  `toml:"logging"`
	Store       StoreConfig    `toml:"store"`
	Fetcher     FetcherConfig  `toml:"fetcher"`
	Crawl       CrawlConfig    `toml:"crawl"`
	Ranker      RankerConfig   `toml:"ranker"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Profile     ProfileConfig  `toml:"profile"`
	Claude      ClaudeConfig   `toml:"claude"`
	Gemini      GeminiConfig   `toml:"gemini"`
}

type LoggingConfig struct {
	Level      string   `toml:"level"`
	Output     []string `toml:"output"`
	TimeFormat string   `toml:"time_format"`
}

type StoreConfig struct {
	BadgerPath     string `toml:"badger_path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// FetcherConfig configures the HTTP Fetcher (C1) per spec.md §6.
type FetcherConfig struct {
	RatePerHost        float64  `toml:"rate_per_host" validate:"gt=0"`
	BurstPerHost       int      `toml:"burst_per_host" validate:"gt=0"`
	MaxRetries         int      `toml:"max_retries" validate:"gte=0"`
	InitialBackoffMs   int      `toml:"initial_backoff_ms" validate:"gt=0"`
	MaxBackoffMs       int      `toml:"max_backoff_ms" validate:"gt=0"`
	RequestTimeout     string   `toml:"request_timeout"`
	RobotsRespect      bool     `toml:"robots_respect"`
	RobotsTTL          string   `toml:"robots_ttl"`
	UserAgents         []string `toml:"user_agents"`
	Proxies            []string `toml:"proxies"`
	CircuitFailThreshold int    `toml:"circuit_fail_threshold" validate:"gt=0"`
	CircuitWindow      string   `toml:"circuit_window"`
	CircuitCoolOff     string   `toml:"circuit_cool_off"`
	RateLimitWait      string   `toml:"rate_limit_wait"`
}

// CrawlConfig configures the Orchestrator (C6) and Deduper (C4).
type CrawlConfig struct {
	MaxConcurrentCompanyCrawls int `toml:"max_concurrent_company_crawls" validate:"gt=0"`
	MaxDescriptionChars        int `toml:"max_description_chars" validate:"gt=0"`
	ETAWindow                  int `toml:"eta_window" validate:"gt=0"`
}

// RankerConfig configures the LLM Ranker (C5).
type RankerConfig struct {
	Provider           string `toml:"provider" validate:"oneof=claude gemini"`
	Parallelism        int    `toml:"parallelism" validate:"gt=0"`
	Timeout            string `toml:"timeout"`
	RecommendThreshold int    `toml:"recommend_threshold" validate:"gte=0,lte=100"`
}

// SchedulerConfig configures the Scheduler (C7).
type SchedulerConfig struct {
	IntervalMinutes int `toml:"interval_minutes" validate:"gte=1"`
}

// ProfileConfig points at the file holding the single active UserProfile.
// The orchestrator treats the profile as read-only input; updates to this
// file are entirely external to the core, per spec.md §3's "updates are
// external" note.
type ProfileConfig struct {
	Path string `toml:"path"`
}

// ClaudeConfig configures the Anthropic ranker provider.
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
}

// GeminiConfig configures the Gemini ranker provider.
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	Timeout     string  `toml:"timeout"`
}

// NewDefaultConfig returns the configuration defaults enumerated in
// spec.md §6.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05.000",
		},
		Store: StoreConfig{
			BadgerPath: "./data/careercrawl.badger",
		},
		Fetcher: FetcherConfig{
			RatePerHost:          1.0,
			BurstPerHost:         2,
			MaxRetries:           3,
			InitialBackoffMs:     300,
			MaxBackoffMs:         5000,
			RequestTimeout:       "20s",
			RobotsRespect:        true,
			RobotsTTL:            "1h",
			CircuitFailThreshold: 5,
			CircuitWindow:        "1m",
			CircuitCoolOff:       "30s",
			RateLimitWait:        "2s",
		},
		Crawl: CrawlConfig{
			MaxConcurrentCompanyCrawls: 5,
			MaxDescriptionChars:        4000,
			ETAWindow:                  10,
		},
		Ranker: RankerConfig{
			Provider:           "claude",
			Parallelism:        4,
			Timeout:            "30s",
			RecommendThreshold: 60,
		},
		Scheduler: SchedulerConfig{
			IntervalMinutes: 30,
		},
		Profile: ProfileConfig{
			Path: "./data/profile.toml",
		},
		Claude: ClaudeConfig{
			Model:       "claude-sonnet-4-20250514",
			Temperature: 0,
			MaxTokens:   2048,
			Timeout:     "30s",
		},
		Gemini: GeminiConfig{
			Model:   "gemini-2.0-flash",
			Timeout: "30s",
		},
	}
}

// LoadFromFiles loads configuration with priority: defaults -> file1 ->
// file2 -> ... -> environment, mirroring the teacher's LoadFromFiles.
func LoadFromFiles(paths ...string) (*Config, error) {
	cfg := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate runs struct-tag validation over the resolved config.
func Validate(cfg *Config) error {
	return validator.New().Struct(cfg)
}

// applyEnvOverrides mirrors the teacher's CAREERCRAWL_ prefixed
// environment-variable override convention (highest priority).
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("CAREERCRAWL_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("CAREERCRAWL_BADGER_PATH"); v != "" {
		cfg.Store.BadgerPath = v
	}
	if v := os.Getenv("CAREERCRAWL_SCHEDULER_INTERVAL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Scheduler.IntervalMinutes = n
		}
	}
	if v := os.Getenv("CAREERCRAWL_RANKER_PROVIDER"); v != "" {
		cfg.Ranker.Provider = v
	}
	// LLM API keys: environment always wins, standard provider env names
	// checked first, CAREERCRAWL_* checked as a fallback override.
	if v := firstNonEmpty(os.Getenv("ANTHROPIC_API_KEY"), os.Getenv("CAREERCRAWL_CLAUDE_API_KEY")); v != "" {
		cfg.Claude.APIKey = v
	}
	if v := firstNonEmpty(os.Getenv("GEMINI_API_KEY"), os.Getenv("CAREERCRAWL_GEMINI_API_KEY")); v != "" {
		cfg.Gemini.APIKey = v
	}
	if v := os.Getenv("CAREERCRAWL_MAX_CONCURRENT_COMPANY_CRAWLS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Crawl.MaxConcurrentCompanyCrawls = n
		}
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ParseDuration is a small helper since TOML durations are plain strings.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

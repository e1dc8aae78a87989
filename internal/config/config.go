// Package config loads pubspy settings from .env, a YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"pubspy/pkg/log"
)

// DefaultPath is where the YAML configuration is looked up.
const DefaultPath = "config/pubspy.yaml"

// Config holds every tunable of the service.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Search SearchConfig `yaml:"search"`
	Cache  CacheConfig  `yaml:"cache"`
	Verify VerifyConfig `yaml:"verify"`
	Render RenderConfig `yaml:"render"`
	Log    LogConfig    `yaml:"log"`
	Lists  ListsConfig  `yaml:"lists"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port       string        `yaml:"port"`
	RateLimit  int           `yaml:"rate_limit"`
	RateWindow time.Duration `yaml:"rate_window"`
}

// SearchConfig configures the search provider.
type SearchConfig struct {
	APIKey          string        `yaml:"api_key"`
	EngineID        string        `yaml:"engine_id"`
	Endpoint        string        `yaml:"endpoint"`
	ResultsPerQuery int           `yaml:"results_per_query"`
	Timeout         time.Duration `yaml:"timeout"`
	MaxAttempts     int           `yaml:"max_attempts"`
	Interval        time.Duration `yaml:"interval"`
}

// CacheConfig configures TTLs and the optional Redis tier.
type CacheConfig struct {
	TTL           TTLConfig     `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	RedisURL      string        `yaml:"redis_url"`
	Warmup        []string      `yaml:"warmup"`
}

// TTLConfig holds one lifetime per cache class. Zero disables caching for the class.
type TTLConfig struct {
	Search       time.Duration `yaml:"search"`
	AdsTxt       time.Duration `yaml:"ads_txt"`
	PageAnalysis time.Duration `yaml:"page_analysis"`
	Verification time.Duration `yaml:"verification"`
	Response     time.Duration `yaml:"response"`
}

// VerifyConfig bounds discovery and verification work.
type VerifyConfig struct {
	MaxVerify       int           `yaml:"max_verify"`
	BatchSize       int           `yaml:"batch_size"`
	BatchPause      time.Duration `yaml:"batch_pause"`
	VolumeThreshold int           `yaml:"volume_threshold"`
	Heuristic       bool          `yaml:"heuristic"`
}

// RenderConfig enables the headless browser fallback for page analysis.
type RenderConfig struct {
	Enabled   bool   `yaml:"enabled"`
	RemoteURL string `yaml:"remote_url"`
}

// LogConfig selects level and output format ("json" or "text").
type LogConfig struct {
	Level  log.Level `yaml:"level"`
	Format string    `yaml:"format"`
}

// ListsConfig holds the domain lists that can be reloaded at runtime.
type ListsConfig struct {
	Exclusions []string `yaml:"exclusions"`
	Allowlist  []string `yaml:"adstxt_allowlist"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:       "3000",
			RateLimit:  10,
			RateWindow: time.Minute,
		},
		Search: SearchConfig{
			ResultsPerQuery: 5,
			Timeout:         8 * time.Second,
			MaxAttempts:     3,
			Interval:        250 * time.Millisecond,
		},
		Cache: CacheConfig{
			TTL: TTLConfig{
				Search:       30 * time.Minute,
				AdsTxt:       24 * time.Hour,
				PageAnalysis: time.Hour,
				Verification: 12 * time.Hour,
				Response:     5 * time.Minute,
			},
			SweepInterval: 10 * time.Minute,
		},
		Verify: VerifyConfig{
			MaxVerify:       15,
			BatchSize:       5,
			BatchPause:      500 * time.Millisecond,
			VolumeThreshold: 20,
			Heuristic:       true,
		},
		Log: LogConfig{
			Level:  log.Info,
			Format: "json",
		},
	}
}

// Load reads .env (if present), then the YAML file at path (if present), then
// environment overrides, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if err := readFile(path, &cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// readFile decodes path over cfg. A missing file leaves cfg untouched.
func readFile(path string, cfg *Config) error {
	if path == "" {
		return nil
	}
	// #nosec G304 -- path is chosen by the operator
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Verify.BatchSize <= 0 {
		errs = append(errs, errors.New("verify.batch_size must be positive"))
	}
	if c.Verify.MaxVerify < 0 {
		errs = append(errs, errors.New("verify.max_verify must not be negative"))
	}
	if c.Search.ResultsPerQuery < 1 || c.Search.ResultsPerQuery > 10 {
		errs = append(errs, errors.New("search.results_per_query must be between 1 and 10"))
	}
	for name, ttl := range c.Cache.TTL.ByClass() {
		if ttl < 0 {
			errs = append(errs, fmt.Errorf("cache.ttl.%s must not be negative", name))
		}
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ByClass returns the TTLs keyed by cache class name.
func (t TTLConfig) ByClass() map[string]time.Duration {
	return map[string]time.Duration{
		"search":        t.Search,
		"ads.txt":       t.AdsTxt,
		"page-analysis": t.PageAnalysis,
		"verification":  t.Verification,
		"response":      t.Response,
	}
}

func applyEnvOverrides(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setInt(&cfg.Server.RateLimit, "RATE_LIMIT")

	setString(&cfg.Search.APIKey, "GOOGLE_API_KEY")
	setString(&cfg.Search.EngineID, "GOOGLE_CX")
	setString(&cfg.Search.Endpoint, "GOOGLE_SEARCH_ENDPOINT")

	setString(&cfg.Cache.RedisURL, "REDIS_URL")
	setDuration(&cfg.Cache.TTL.Search, "CACHE_SEARCH_TTL")
	setDuration(&cfg.Cache.TTL.AdsTxt, "CACHE_ADSTXT_TTL")
	setDuration(&cfg.Cache.TTL.PageAnalysis, "CACHE_PAGE_TTL")
	setDuration(&cfg.Cache.TTL.Verification, "CACHE_VERIFICATION_TTL")
	setDuration(&cfg.Cache.TTL.Response, "CACHE_RESPONSE_TTL")
	setDuration(&cfg.Cache.SweepInterval, "CACHE_SWEEP_INTERVAL")

	setLevel(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")

	setBool(&cfg.Render.Enabled, "CHROME_RENDER")
	setString(&cfg.Render.RemoteURL, "CHROME_REMOTE_URL")
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setLevel(dst *log.Level, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if lvl, err := log.ParseLevel(v); err == nil {
			*dst = lvl
		}
	}
}

func setBool(dst *bool, key string) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

// setDuration accepts Go durations ("90s") or bare minutes ("30").
func setDuration(dst *time.Duration, key string) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if minutes, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(minutes) * time.Minute
	}
}

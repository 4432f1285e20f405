// Package config loads the esq YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the esq configuration.
type Config struct {
	Env           string              `yaml:"env"` // local, dev, prod (default: local)
	Logging       LoggingConfig       `yaml:"logging"`
	Elasticsearch ElasticsearchConfig `yaml:"elasticsearch"`
	Journal       JournalConfig       `yaml:"journal"`
	Cache         CacheConfig         `yaml:"cache"`
	HTTP          HTTPConfig          `yaml:"http"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// ElasticsearchConfig holds cluster connection settings. No addresses
// means searches are disabled and only compilation is available.
type ElasticsearchConfig struct {
	Addresses         []string `yaml:"addresses"`
	Username          string   `yaml:"username"`
	Password          string   `yaml:"password"`
	APIKey            string   `yaml:"api_key"`
	DefaultIndex      string   `yaml:"default_index"`
	RequestTimeoutSec int      `yaml:"request_timeout_sec"`
	Scroll            string   `yaml:"scroll"` // scroll keep-alive for scans
}

// JournalConfig holds execution journal settings.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// CacheConfig holds response cache settings.
type CacheConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	TTLSec    int    `yaml:"ttl_sec"`
	KeyPrefix string `yaml:"key_prefix"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns a configuration with every default applied.
func Default() Config {
	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	cfg.ApplyDefaults()
	return cfg
}

// Load reads configuration from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} references first.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	cfg := Config{Metrics: MetricsConfig{Enabled: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Env == "" {
		c.Env = "local"
	}
	if c.Elasticsearch.RequestTimeoutSec <= 0 {
		c.Elasticsearch.RequestTimeoutSec = 30
	}
	if c.Elasticsearch.Scroll == "" {
		c.Elasticsearch.Scroll = "2m"
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "esq.db"
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 60
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "esq:"
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	switch c.Env {
	case "local", "dev", "prod":
	default:
		return fmt.Errorf("env must be local, dev or prod, got %q", c.Env)
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if _, err := time.ParseDuration(expandScrollUnit(c.Elasticsearch.Scroll)); err != nil {
		return fmt.Errorf("elasticsearch.scroll %q is not a duration", c.Elasticsearch.Scroll)
	}
	if c.Elasticsearch.APIKey != "" && c.Elasticsearch.Username != "" {
		return fmt.Errorf("elasticsearch.api_key and elasticsearch.username are mutually exclusive")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr is required when the cache is enabled")
	}
	if c.Journal.Enabled && c.Journal.Path == "" {
		return fmt.Errorf("journal.path is required when the journal is enabled")
	}
	return nil
}

// SearchEnabled reports whether a cluster is configured.
func (c *Config) SearchEnabled() bool {
	return len(c.Elasticsearch.Addresses) > 0
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Elasticsearch.RequestTimeoutSec) * time.Second
}

// CacheTTL returns the cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSec) * time.Second
}

// expandScrollUnit maps the engine's day unit onto Go's duration syntax.
func expandScrollUnit(s string) string {
	if n, ok := strings.CutSuffix(s, "d"); ok {
		return n + "h"
	}
	return s
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

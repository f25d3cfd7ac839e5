// Package config loads the CLI's YAML configuration file: batch
// concurrency/rate limits, the optional Redis result cache, and logging
// destination.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the tool's top-level configuration.
type Config struct {
	Decode DecodeConfig `yaml:"decode"`
	Batch  BatchConfig  `yaml:"batch"`
	Cache  CacheConfig  `yaml:"cache"`
	Log    LogConfig    `yaml:"log"`

	path string
}

// DecodeConfig controls single-dump decode behavior.
type DecodeConfig struct {
	// Format forces "p7d" or "plog"; empty means detect by file extension.
	Format string `yaml:"format"`
}

// BatchConfig controls the concurrent multi-dump runner.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
	QPS         int `yaml:"qps"`
}

// CacheConfig configures the optional Redis result cache. Addr empty
// disables caching entirely.
type CacheConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

// LogConfig controls where diagnostics go.
type LogConfig struct {
	File  string `yaml:"file"`
	Level string `yaml:"level"`
}

// TTL returns the cache entry lifetime, or zero (no expiry) if unset.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// Enabled reports whether a Redis result cache was configured.
func (c CacheConfig) Enabled() bool {
	return c.Addr != ""
}

// Load reads and parses a YAML configuration file, applying defaults and
// validating the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config: path is empty")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolving path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", absPath, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", absPath, err)
	}

	cfg.path = absPath
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ApplyDefaults fills in zero-valued fields with the tool's defaults.
func (c *Config) ApplyDefaults() {
	if c.Decode.Format == "" {
		c.Decode.Format = "auto"
	} else {
		c.Decode.Format = strings.ToLower(c.Decode.Format)
	}
	if c.Batch.Concurrency <= 0 {
		c.Batch.Concurrency = 8
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports configuration problems that ApplyDefaults can't paper
// over.
func (c *Config) Validate() error {
	var errs []string

	switch c.Decode.Format {
	case "auto", "p7d", "plog":
	default:
		errs = append(errs, fmt.Sprintf("decode.format: unknown value %q (want auto, p7d, or plog)", c.Decode.Format))
	}
	if c.Batch.Concurrency <= 0 {
		errs = append(errs, "batch.concurrency: must be positive")
	}
	if c.Batch.QPS < 0 {
		errs = append(errs, "batch.qps: must not be negative")
	}
	if c.Cache.TTLSeconds < 0 {
		errs = append(errs, "cache.ttlSeconds: must not be negative")
	}

	if len(errs) > 0 {
		return &ValidationError{Path: c.path, Errors: errs}
	}
	return nil
}

// ValidationError collects configuration issues found by Validate.
type ValidationError struct {
	Path   string
	Errors []string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("config: validation failed")
	if e.Path != "" {
		b.WriteString(" (")
		b.WriteString(e.Path)
		b.WriteString(")")
	}
	for _, msg := range e.Errors {
		b.WriteString("\n  - ")
		b.WriteString(msg)
	}
	return b.String()
}

// PrettySummary renders the effective configuration for a startup log line.
func (c *Config) PrettySummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "  decode.format  : %s\n", c.Decode.Format)
	fmt.Fprintf(&b, "  batch.concurrency: %d\n", c.Batch.Concurrency)
	fmt.Fprintf(&b, "  batch.qps      : %d\n", c.Batch.QPS)
	if c.Cache.Enabled() {
		fmt.Fprintf(&b, "  cache.addr     : %s\n", c.Cache.Addr)
	} else {
		b.WriteString("  cache          : disabled\n")
	}
	fmt.Fprintf(&b, "  log.level      : %s", c.Log.Level)
	return b.String()
}

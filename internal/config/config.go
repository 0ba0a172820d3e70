// Package config provides YAML-based configuration loading for swapbench.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level swapbench configuration, loaded from swapbench.yaml.
type Config struct {
	ResultsDir string        `yaml:"results_dir"`
	SourceDir  string        `yaml:"source_dir"`
	TargetDir  string        `yaml:"target_dir"`
	APIs       []string      `yaml:"apis"`
	FaceMode   string        `yaml:"face_mode"`
	Rate       RateConfig    `yaml:"rate"`
	Retry      RetryConfig   `yaml:"retry"`
	DB         DBConfig      `yaml:"db"`
	Notify     NotifyConfig  `yaml:"notify"`
	Publish    PublishConfig `yaml:"publish"`
	Watch      WatchConfig   `yaml:"watch"`
}

// RateConfig controls request pacing against the provider.
type RateConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute"`
	Burst             int `yaml:"burst"`
	TimeoutSec        int `yaml:"timeout_sec"`
}

// RetryConfig controls per-request retry behaviour.
type RetryConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BackoffSec  int `yaml:"backoff_sec"`
}

// DBConfig holds connection settings for the request-log database.
// The sqlite driver uses Path; the mysql driver uses Host/Port/Database.
type DBConfig struct {
	Driver   string `yaml:"driver"`
	Path     string `yaml:"path"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
}

// NotifyConfig selects where batch completion notifications go.
type NotifyConfig struct {
	SlackChannel     string `yaml:"slack_channel"`
	DiscordChannelID string `yaml:"discord_channel_id"`
}

// PublishConfig identifies the GitHub Pages repo review pages are pushed to.
type PublishConfig struct {
	Owner  string `yaml:"owner"`
	Repo   string `yaml:"repo"`
	Branch string `yaml:"branch"`
	Dir    string `yaml:"dir"`
}

// WatchConfig controls the scheduled continue loop.
type WatchConfig struct {
	Cron      string `yaml:"cron"`
	BatchSize int    `yaml:"batch_size"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.ResultsDir == "" {
		c.ResultsDir = "test-results/results"
	}
	if c.SourceDir == "" {
		c.SourceDir = "test-results/source-images"
	}
	if c.TargetDir == "" {
		c.TargetDir = "test-results/target-images"
	}
	if len(c.APIs) == 0 {
		c.APIs = []string{"v2", "v4"}
	}
	if c.FaceMode == "" {
		c.FaceMode = "multi"
	}
	if c.Rate.RequestsPerMinute == 0 {
		c.Rate.RequestsPerMinute = 30
	}
	if c.Rate.Burst == 0 {
		c.Rate.Burst = 1
	}
	if c.Rate.TimeoutSec == 0 {
		c.Rate.TimeoutSec = 120
	}
	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BackoffSec == 0 {
		c.Retry.BackoffSec = 5
	}
	if c.DB.Driver == "" {
		c.DB.Driver = "sqlite"
	}
	if c.DB.Path == "" {
		c.DB.Path = "swapbench.db"
	}
	if c.DB.Host == "" {
		c.DB.Host = "127.0.0.1"
	}
	if c.DB.Port == 0 {
		c.DB.Port = 3306
	}
	if c.DB.Database == "" {
		c.DB.Database = "swapbench"
	}
	if c.Publish.Branch == "" {
		c.Publish.Branch = "gh-pages"
	}
	if c.Watch.Cron == "" {
		c.Watch.Cron = "*/15 * * * *"
	}
	if c.Watch.BatchSize == 0 {
		c.Watch.BatchSize = 10
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.DB.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("db.driver %q is not supported (sqlite, mysql)", c.DB.Driver))
	}
	switch c.FaceMode {
	case "single", "multi":
	default:
		errs = append(errs, fmt.Sprintf("face_mode %q is not supported (single, multi)", c.FaceMode))
	}
	for i, api := range c.APIs {
		switch api {
		case "v2", "v4", "v4.3", "thortful":
		default:
			errs = append(errs, fmt.Sprintf("apis[%d]: unknown API variant %q", i, api))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

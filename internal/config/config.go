// Package config provides YAML-based configuration loading for Curator.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Curator configuration, loaded from config.yaml.
// Every tunable is clamped at load time; components receive the struct by
// reference and never read the environment themselves.
type Config struct {
	AssetRoot  string           `yaml:"asset_root"`
	Database   DatabaseConfig   `yaml:"database"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Queue      QueueConfig      `yaml:"queue"`
	Scanner    ScannerConfig    `yaml:"scanner"`
	Engine     EngineConfig     `yaml:"engine"`
	Pending    PendingConfig    `yaml:"pending"`
	Alerts     AlertsConfig     `yaml:"alerts"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
}

// DatabaseConfig holds connection settings for the relational store.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // "mysql" or "sqlite"
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Path     string `yaml:"path"` // sqlite file path
}

// ClassifierConfig points curator at the upstream CLIP classifier service.
type ClassifierConfig struct {
	Enabled        bool    `yaml:"enabled"`
	BaseURL        string  `yaml:"base_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	ModelVersion   string  `yaml:"model_version"`
	NSFWThreshold  float64 `yaml:"nsfw_threshold"`
}

// SchedulerConfig controls the reclassification cycle timer. When
// IntervalSeconds is set it collapses the jitter window to a fixed period
// (legacy mode). A cron expression, when present, takes precedence over both.
type SchedulerConfig struct {
	Enabled             bool   `yaml:"enabled"`
	StartupDelaySeconds int    `yaml:"startup_delay_seconds"`
	IntervalMinSeconds  int    `yaml:"interval_min_seconds"`
	IntervalMaxSeconds  int    `yaml:"interval_max_seconds"`
	IntervalSeconds     int    `yaml:"interval_seconds"`
	Cron                string `yaml:"cron"`
}

// QueueConfig controls reprocess job retry behavior and per-cycle draining.
type QueueConfig struct {
	RetryDelaySeconds int  `yaml:"retry_delay_seconds"`
	MaxAttempts       int  `yaml:"max_attempts"`
	DrainLimit        int  `yaml:"drain_limit"`
	RetryFailed       bool `yaml:"retry_failed"`
}

// ScannerConfig holds per-reason scan limits, priorities, and the
// low-confidence thresholds.
type ScannerConfig struct {
	ModelUpgradeLimit      int     `yaml:"model_upgrade_limit"`
	LowConfidenceLimit     int     `yaml:"low_confidence_limit"`
	BackfillLimit          int     `yaml:"backfill_limit"`
	ModelUpgradePriority   int     `yaml:"model_upgrade_priority"`
	LowConfidencePriority  int     `yaml:"low_confidence_priority"`
	BackfillPriority       int     `yaml:"backfill_priority"`
	LowConfidenceThreshold float64 `yaml:"low_confidence_threshold"`
	StalenessHours         int     `yaml:"staleness_hours"`
}

// EngineConfig controls the deterministic scoring engine and its batch sweep.
type EngineConfig struct {
	Enabled          bool    `yaml:"enabled"`
	EntropyThreshold float64 `yaml:"entropy_threshold"`
	BatchSize        int     `yaml:"batch_size"`
	MaxItems         int     `yaml:"max_items"`
}

// PendingConfig controls the fan-out over never-classified assets.
type PendingConfig struct {
	BatchSize   int `yaml:"batch_size"`
	Concurrency int `yaml:"concurrency"`
}

// AlertsConfig configures best-effort operator notifications.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig holds Slack bot credentials for alerts.
type SlackConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DiscordConfig holds Discord bot credentials for alerts.
type DiscordConfig struct {
	Token   string `yaml:"token"`
	Channel string `yaml:"channel"`
}

// DashboardConfig controls the ops status server.
type DashboardConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
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

// ClassifierTimeout returns the per-request classifier timeout.
func (c *Config) ClassifierTimeout() time.Duration {
	return time.Duration(c.Classifier.TimeoutSeconds) * time.Second
}

// StartupDelay returns the delay before the first cycle.
func (c *Config) StartupDelay() time.Duration {
	return time.Duration(c.Scheduler.StartupDelaySeconds) * time.Second
}

// IntervalWindow returns the [min, max] jitter window for cycle scheduling.
func (c *Config) IntervalWindow() (time.Duration, time.Duration) {
	min := time.Duration(c.Scheduler.IntervalMinSeconds) * time.Second
	max := time.Duration(c.Scheduler.IntervalMaxSeconds) * time.Second
	return min, max
}

// RetryDelay returns the fixed delay applied when a job fails retryably.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Queue.RetryDelaySeconds) * time.Second
}

// Staleness returns the low-confidence staleness window.
func (c *Config) Staleness() time.Duration {
	return time.Duration(c.Scanner.StalenessHours) * time.Hour
}

// applyDefaults fills in derived and default values and clamps every knob
// into its supported range.
func (c *Config) applyDefaults() {
	if c.Database.Driver == "" {
		c.Database.Driver = "mysql"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.User == "" {
		c.Database.User = "root"
	}
	if c.Database.Name == "" {
		c.Database.Name = "curator"
	}
	if c.Database.Path == "" {
		c.Database.Path = "curator.db"
	}

	if c.Classifier.BaseURL == "" {
		c.Classifier.BaseURL = "http://127.0.0.1:8100"
	}
	c.Classifier.TimeoutSeconds = clampInt(c.Classifier.TimeoutSeconds, 1, 300, 30)
	if c.Classifier.ModelVersion == "" {
		c.Classifier.ModelVersion = "MobileCLIP-S1"
	}
	c.Classifier.NSFWThreshold = clampFloat(c.Classifier.NSFWThreshold, 0, 1, 0.6)

	c.Scheduler.StartupDelaySeconds = clampInt(c.Scheduler.StartupDelaySeconds, 1, 3600, 15)
	// Legacy fixed-interval mode collapses the jitter window.
	if c.Scheduler.IntervalSeconds > 0 {
		c.Scheduler.IntervalMinSeconds = c.Scheduler.IntervalSeconds
		c.Scheduler.IntervalMaxSeconds = c.Scheduler.IntervalSeconds
	}
	c.Scheduler.IntervalMinSeconds = clampInt(c.Scheduler.IntervalMinSeconds, 30, 86400, 600)
	c.Scheduler.IntervalMaxSeconds = clampInt(c.Scheduler.IntervalMaxSeconds, 30, 86400, 900)
	if c.Scheduler.IntervalMaxSeconds < c.Scheduler.IntervalMinSeconds {
		c.Scheduler.IntervalMaxSeconds = c.Scheduler.IntervalMinSeconds
	}

	c.Queue.RetryDelaySeconds = clampInt(c.Queue.RetryDelaySeconds, 10, 86400, 300)
	c.Queue.MaxAttempts = clampInt(c.Queue.MaxAttempts, 1, 10, 3)
	c.Queue.DrainLimit = clampInt(c.Queue.DrainLimit, 1, 500, 25)

	c.Scanner.ModelUpgradeLimit = clampInt(c.Scanner.ModelUpgradeLimit, 1, 5000, 200)
	c.Scanner.LowConfidenceLimit = clampInt(c.Scanner.LowConfidenceLimit, 1, 5000, 200)
	c.Scanner.BackfillLimit = clampInt(c.Scanner.BackfillLimit, 1, 5000, 100)
	c.Scanner.ModelUpgradePriority = clampInt(c.Scanner.ModelUpgradePriority, 1, 100, 60)
	c.Scanner.LowConfidencePriority = clampInt(c.Scanner.LowConfidencePriority, 1, 100, 70)
	c.Scanner.BackfillPriority = clampInt(c.Scanner.BackfillPriority, 1, 100, 95)
	c.Scanner.LowConfidenceThreshold = clampFloat(c.Scanner.LowConfidenceThreshold, 0, 1, 0.45)
	c.Scanner.StalenessHours = clampInt(c.Scanner.StalenessHours, 1, 720, 24)

	c.Engine.EntropyThreshold = clampFloat(c.Engine.EntropyThreshold, 0, 10, 2.5)
	c.Engine.BatchSize = clampInt(c.Engine.BatchSize, 1, 1000, 200)
	c.Engine.MaxItems = clampInt(c.Engine.MaxItems, 1, 100000, 2000)

	c.Pending.BatchSize = clampInt(c.Pending.BatchSize, 1, 500, 25)
	c.Pending.Concurrency = clampInt(c.Pending.Concurrency, 1, 32, 4)

	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported (mysql, sqlite)", c.Database.Driver))
	}
	if c.Classifier.Enabled && c.Classifier.BaseURL == "" {
		errs = append(errs, "classifier.base_url is required when the classifier is enabled")
	}
	if c.Scheduler.Cron != "" && c.Scheduler.IntervalSeconds > 0 {
		errs = append(errs, "scheduler.cron and scheduler.interval_seconds are mutually exclusive")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// clampInt returns v limited to [min, max], or def when v is unset (<= 0).
func clampInt(v, min, max, def int) int {
	if v <= 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// clampFloat returns v limited to [min, max], or def when v is unset (<= 0).
func clampFloat(v, min, max, def float64) float64 {
	if v <= 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

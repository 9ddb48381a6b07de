// Package config provides the YAML-backed service configuration, including
// first-run config creation and default normalization.
package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Stale policies for imported reservations whose event vanished from the feed.
const (
	StaleKeep   = "keep"
	StaleCancel = "cancel"
	StaleDelete = "delete"
)

// SyncConfig controls feed fetching and reconciliation.
type SyncConfig struct {
	// Interval is the period of the system-wide background sweep.
	Interval time.Duration `yaml:"interval" json:"interval"`
	// FetchTimeout bounds a single feed GET.
	FetchTimeout time.Duration `yaml:"fetch_timeout" json:"fetch_timeout"`
	// ValidateTimeout bounds the HEAD check run when a feed URL is saved.
	ValidateTimeout time.Duration `yaml:"validate_timeout" json:"validate_timeout"`
	// MaxFeedBytes caps the size of a downloaded feed body.
	MaxFeedBytes int64 `yaml:"max_feed_bytes" json:"max_feed_bytes"`
	// StalePolicy is one of "keep", "cancel", "delete".
	StalePolicy string `yaml:"stale_policy" json:"stale_policy"`
	// RecurrenceHorizonDays limits RRULE expansion, counted from DTSTART.
	RecurrenceHorizonDays int `yaml:"recurrence_horizon_days" json:"recurrence_horizon_days"`
	// ValidateOnSave runs the reachability check when a feed URL is stored.
	ValidateOnSave bool `yaml:"validate_on_save" json:"validate_on_save"`
}

// CalendarConfig controls the month grid.
type CalendarConfig struct {
	// WeekStart is "monday" (default) or "sunday".
	WeekStart string `yaml:"week_start" json:"week_start"`
	// Months is the default number of months rendered per grid request.
	Months int `yaml:"months" json:"months"`
}

// SessionConfig controls session cookies.
type SessionConfig struct {
	CookieName string `yaml:"cookie_name" json:"cookie_name"`
}

// Config is the top-level application configuration.
type Config struct {
	Listen    string `yaml:"listen" json:"listen"`
	DataDir   string `yaml:"data_dir" json:"data_dir"`
	StaticDir string `yaml:"static_dir" json:"static_dir"`
	LogLevel  string `yaml:"log_level" json:"log_level"`

	Sync     SyncConfig     `yaml:"sync" json:"sync"`
	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
	Session  SessionConfig  `yaml:"session" json:"session"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	c := &Config{Sync: SyncConfig{ValidateOnSave: true}}
	c.Normalize()
	return c
}

// Normalize fills in missing or invalid values with defaults so that
// partially filled files still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = ":8099"
	}
	if c.DataDir == "" {
		c.DataDir = "/data"
	}
	if c.StaticDir == "" {
		c.StaticDir = "./static"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	if c.Sync.Interval < time.Minute {
		c.Sync.Interval = 30 * time.Minute
	}
	if c.Sync.FetchTimeout <= 0 {
		c.Sync.FetchTimeout = 20 * time.Second
	}
	if c.Sync.ValidateTimeout <= 0 {
		c.Sync.ValidateTimeout = 5 * time.Second
	}
	if c.Sync.MaxFeedBytes <= 0 {
		c.Sync.MaxFeedBytes = 10 << 20
	}
	switch c.Sync.StalePolicy {
	case StaleKeep, StaleCancel, StaleDelete:
	default:
		c.Sync.StalePolicy = StaleKeep
	}
	if c.Sync.RecurrenceHorizonDays <= 0 {
		c.Sync.RecurrenceHorizonDays = 365
	}

	switch c.Calendar.WeekStart {
	case "monday", "sunday":
	default:
		c.Calendar.WeekStart = "monday"
	}
	if c.Calendar.Months <= 0 {
		c.Calendar.Months = 3
	}

	if c.Session.CookieName == "" {
		c.Session.CookieName = "staybook_session"
	}
}

// DBPath returns the SQLite database file location inside DataDir.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "staybook.db")
}

// Load reads configuration from the YAML file at path. A missing file is
// created with defaults (mode 0600) and the defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := Config{Sync: SyncConfig{ValidateOnSave: true}}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return &cfg, nil
}

// Save writes cfg to path atomically via a temp file and rename.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".staybook-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}

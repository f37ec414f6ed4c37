// Package config loads the user-adjustable knobs for recording and replay.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultFileName = "config.yaml"

// Config captures the user-adjustable knobs for the record and replay
// workflows.
type Config struct {
	Paths   PathsConfig   `yaml:"paths"`
	Record  RecordConfig  `yaml:"record"`
	Replay  ReplayConfig  `yaml:"replay"`
	Logging LoggingConfig `yaml:"logging"`

	// Source indicates where the configuration originated (defaults or a file path).
	Source string `yaml:"-"`
}

// PathsConfig controls filesystem locations used by the CLI.
type PathsConfig struct {
	DataDir string `yaml:"data_dir"`
}

// RecordConfig controls the capture loop and event pipeline.
type RecordConfig struct {
	Hz              float64 `yaml:"hz"`
	FlushIntervalMS int     `yaml:"flush_interval_ms"`
	JPEGQuality     int     `yaml:"jpeg_quality"`
	IncludeCursor   bool    `yaml:"include_cursor"`
	BufferCapacity  int     `yaml:"buffer_capacity"`
}

// ReplayConfig controls replay pacing.
type ReplayConfig struct {
	CountdownSeconds int `yaml:"countdown_seconds"`
	KeyDelayMS       int `yaml:"key_delay_ms"`
}

// LoggingConfig defines log verbosity and formatting.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the baseline configuration used when no overrides are supplied.
func Default() Config {
	return Config{
		Paths: PathsConfig{
			DataDir: "episodes",
		},
		Record: RecordConfig{
			Hz:              10,
			FlushIntervalMS: 1000,
			JPEGQuality:     75,
			IncludeCursor:   true,
			BufferCapacity:  0,
		},
		Replay: ReplayConfig{
			CountdownSeconds: 3,
			KeyDelayMS:       10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Source: "<defaults>",
	}
}

// Load reads configuration from disk if present, otherwise returning defaults.
// When path is empty, the loader attempts to read ./config.yaml but tolerates a missing file.
func Load(path string) (Config, error) {
	cfg := Default()

	candidate := strings.TrimSpace(path)
	explicit := candidate != ""
	if !explicit {
		candidate = DefaultFileName
	}

	file, err := os.Open(candidate)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if explicit {
				return cfg, fmt.Errorf("config file %q not found", candidate)
			}
			return cfg, nil
		}
		return cfg, fmt.Errorf("open config file %q: %w", candidate, err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %q: %w", candidate, err)
	}
	cfg.Source = candidate
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate ensures essential configuration values are present and sensible.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must not be empty")
	}

	if _, err := NormalizeLogLevel(c.Logging.Level); err != nil {
		return err
	}
	if _, err := NormalizeFormat(c.Logging.Format); err != nil {
		return err
	}

	if c.Record.Hz <= 0 {
		return errors.New("record.hz must be positive")
	}
	if c.Record.FlushIntervalMS <= 0 {
		return errors.New("record.flush_interval_ms must be positive")
	}
	if c.Record.JPEGQuality < 1 || c.Record.JPEGQuality > 100 {
		return errors.New("record.jpeg_quality must be between 1 and 100")
	}
	if c.Record.BufferCapacity < 0 {
		return errors.New("record.buffer_capacity must not be negative")
	}
	if c.Replay.CountdownSeconds < 0 {
		return errors.New("replay.countdown_seconds must not be negative")
	}
	if c.Replay.KeyDelayMS < 0 {
		return errors.New("replay.key_delay_ms must not be negative")
	}

	return nil
}

func (c *Config) normalize() {
	c.Paths.DataDir = filepath.Clean(strings.TrimSpace(c.Paths.DataDir))

	defaults := Default()

	if c.Paths.DataDir == "." || c.Paths.DataDir == "" {
		c.Paths.DataDir = defaults.Paths.DataDir
	}
	// Store the canonical spellings; unknown values are left for Validate.
	if lvl, err := NormalizeLogLevel(c.Logging.Level); err == nil {
		c.Logging.Level = lvl
	}
	if format, err := NormalizeFormat(c.Logging.Format); err == nil {
		c.Logging.Format = format
	}

	if c.Record.Hz <= 0 {
		c.Record.Hz = defaults.Record.Hz
	}
	if c.Record.FlushIntervalMS <= 0 {
		c.Record.FlushIntervalMS = defaults.Record.FlushIntervalMS
	}
	if c.Record.JPEGQuality <= 0 {
		c.Record.JPEGQuality = defaults.Record.JPEGQuality
	}
	if c.Replay.KeyDelayMS <= 0 {
		c.Replay.KeyDelayMS = defaults.Replay.KeyDelayMS
	}
}

// FlushInterval returns the record flush cadence as a duration.
func (c Config) FlushInterval() time.Duration {
	return time.Duration(c.Record.FlushIntervalMS) * time.Millisecond
}

// KeyDelay returns the replay per-key settle pause as a duration.
func (c Config) KeyDelay() time.Duration {
	return time.Duration(c.Replay.KeyDelayMS) * time.Millisecond
}

// Countdown returns the replay lead-in as a duration.
func (c Config) Countdown() time.Duration {
	return time.Duration(c.Replay.CountdownSeconds) * time.Second
}

// NormalizeLogLevel validates and lowercases known logging levels.
func NormalizeLogLevel(level string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info", nil
	case "debug":
		return "debug", nil
	case "warn", "warning":
		return "warn", nil
	case "error":
		return "error", nil
	default:
		return "", fmt.Errorf("unsupported log level %q", level)
	}
}

// NormalizeFormat validates and canonicalizes logging format identifiers.
func NormalizeFormat(format string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return "json", nil
	case "console", "text":
		return "console", nil
	default:
		return "", fmt.Errorf("unsupported log format %q", format)
	}
}

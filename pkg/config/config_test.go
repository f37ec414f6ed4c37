package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	defer os.Chdir(cwd)
	require.NoError(t, os.Chdir(dir))

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "episodes", cfg.Paths.DataDir)
	require.Equal(t, "<defaults>", cfg.Source)
	require.InDelta(t, 10.0, cfg.Record.Hz, 0.001)
	require.Equal(t, 75, cfg.Record.JPEGQuality)
	require.True(t, cfg.Record.IncludeCursor)
	require.Equal(t, time.Second, cfg.FlushInterval())
	require.Equal(t, 3*time.Second, cfg.Countdown())
	require.Equal(t, 10*time.Millisecond, cfg.KeyDelay())
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := `paths:
  data_dir: captures
record:
  hz: 30
  flush_interval_ms: 250
  jpeg_quality: 90
  include_cursor: false
  buffer_capacity: 4096
replay:
  countdown_seconds: 5
  key_delay_ms: 25
logging:
  level: DEBUG
  format: console
`
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)

	require.Equal(t, "captures", cfg.Paths.DataDir)
	require.InDelta(t, 30.0, cfg.Record.Hz, 0.001)
	require.Equal(t, 250*time.Millisecond, cfg.FlushInterval())
	require.Equal(t, 90, cfg.Record.JPEGQuality)
	require.False(t, cfg.Record.IncludeCursor)
	require.Equal(t, 4096, cfg.Record.BufferCapacity)
	require.Equal(t, 5*time.Second, cfg.Countdown())
	require.Equal(t, 25*time.Millisecond, cfg.KeyDelay())
	require.Equal(t, "debug", cfg.Logging.Level)
	require.Equal(t, "console", cfg.Logging.Format)
	require.Equal(t, cfgPath, cfg.Source)
}

func TestPartialFileKeepsRemainingDefaults(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("record:\n  hz: 24\n"), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.InDelta(t, 24.0, cfg.Record.Hz, 0.001)
	require.Equal(t, "episodes", cfg.Paths.DataDir)
	require.Equal(t, 75, cfg.Record.JPEGQuality)
}

func TestLoadCanonicalisesLoggingValues(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("logging:\n  level: WARNING\n  format: TEXT\n"), 0o644))

	cfg, err := Load(cfgPath)
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.Logging.Level)
	require.Equal(t, "console", cfg.Logging.Format)
}

func TestUnknownKeyReturnsError(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("record:\n  unsupported: true\n"), 0o644))

	_, err := Load(cfgPath)
	require.Error(t, err)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty data dir", func(c *Config) { c.Paths.DataDir = "" }},
		{"zero hz", func(c *Config) { c.Record.Hz = 0 }},
		{"quality too high", func(c *Config) { c.Record.JPEGQuality = 101 }},
		{"negative capacity", func(c *Config) { c.Record.BufferCapacity = -1 }},
		{"negative countdown", func(c *Config) { c.Replay.CountdownSeconds = -1 }},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestNormalizeLogLevel(t *testing.T) {
	for in, want := range map[string]string{"": "info", "INFO": "info", "warning": "warn", "Debug": "debug"} {
		got, err := NormalizeLogLevel(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := NormalizeLogLevel("loud")
	require.Error(t, err)
}

func TestNormalizeFormat(t *testing.T) {
	for in, want := range map[string]string{"": "json", "JSON": "json", "text": "console", "console": "console"} {
		got, err := NormalizeFormat(in)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := NormalizeFormat("yaml")
	require.Error(t, err)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "https://www.bing.com", cfg.Search.BaseURL)
	assert.Equal(t, 100, cfg.Search.Limit)
	assert.True(t, cfg.Search.AdultFilterOff)
	assert.Equal(t, DefaultUserAgent, cfg.Search.UserAgent)

	assert.Equal(t, 60*time.Second, cfg.Download.Timeout)
	assert.Contains(t, cfg.Download.BlockedHosts, "istockphoto.com")

	assert.Equal(t, 5*time.Second, cfg.Backoff.Delay)
	assert.Equal(t, 2, cfg.Backoff.ResumeAfter)

	assert.Equal(t, "dataset", cfg.Output.RootDirectory)
	assert.False(t, cfg.Output.ForceReplace)
	assert.True(t, cfg.UI.Verbose)

	require.NoError(t, cfg.Validate())
}

func TestDefaultBlockedHostsNotShared(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Download.BlockedHosts[0] = "example.org"

	assert.Equal(t, "istockphoto.com", DefaultBlockedHosts[0])
}

func TestAdultSetting(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "off", cfg.AdultSetting())

	cfg.Search.AdultFilterOff = false
	assert.Equal(t, "on", cfg.AdultSetting())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IMGCRAWL_LIMIT", "25")
	t.Setenv("IMGCRAWL_ADULT_FILTER_OFF", "false")
	t.Setenv("IMGCRAWL_FILTER", "photo")
	t.Setenv("IMGCRAWL_TIMEOUT", "15")
	t.Setenv("IMGCRAWL_BACKOFF_DELAY", "250ms")
	t.Setenv("IMGCRAWL_BLOCKED_HOSTS", "a.com, b.com,,")
	t.Setenv("IMGCRAWL_OUTPUT_DIR", "/env/output")
	t.Setenv("IMGCRAWL_LOG_LEVEL", "debug")
	t.Setenv("IMGCRAWL_PROXY", "127.0.0.1:1080")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 25, cfg.Search.Limit)
	assert.False(t, cfg.Search.AdultFilterOff)
	assert.Equal(t, "photo", cfg.Search.Filter)
	assert.Equal(t, 15*time.Second, cfg.Download.Timeout)
	assert.Equal(t, 250*time.Millisecond, cfg.Backoff.Delay)
	assert.Equal(t, []string{"a.com", "b.com"}, cfg.Download.BlockedHosts)
	assert.Equal(t, "/env/output", cfg.Output.RootDirectory)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "127.0.0.1:1080", cfg.Network.ProxyAddress)
}

func TestLoadFromEnvIgnoresGarbage(t *testing.T) {
	t.Setenv("IMGCRAWL_LIMIT", "lots")
	t.Setenv("IMGCRAWL_TIMEOUT", "soon")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 100, cfg.Search.Limit)
	assert.Equal(t, 60*time.Second, cfg.Download.Timeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			mutate: func(c *Config) {},
		},
		{
			name:   "zero limit is allowed",
			mutate: func(c *Config) { c.Search.Limit = 0 },
		},
		{
			name:    "negative limit",
			mutate:  func(c *Config) { c.Search.Limit = -1 },
			wantErr: "limit cannot be negative",
		},
		{
			name:    "malformed image size",
			mutate:  func(c *Config) { c.Search.ImageSize = "800x600" },
			wantErr: "image size",
		},
		{
			name:   "well formed image size",
			mutate: func(c *Config) { c.Search.ImageSize = "800_600" },
		},
		{
			name:    "zero timeout",
			mutate:  func(c *Config) { c.Download.Timeout = 0 },
			wantErr: "download timeout must be positive",
		},
		{
			name:    "missing output directory",
			mutate:  func(c *Config) { c.Output.RootDirectory = "" },
			wantErr: "output directory is required",
		},
		{
			name:    "unknown rate limit strategy",
			mutate:  func(c *Config) { c.RateLimit.Strategy = "leaky" },
			wantErr: "invalid rate limit strategy",
		},
		{
			name:   "zero resume threshold is allowed",
			mutate: func(c *Config) { c.Backoff.ResumeAfter = 0 },
		},
		{
			name:    "negative resume threshold",
			mutate:  func(c *Config) { c.Backoff.ResumeAfter = -1 },
			wantErr: "backoff resume threshold cannot be negative",
		},
		{
			name:    "invalid log level",
			mutate:  func(c *Config) { c.Logging.Level = "loud" },
			wantErr: "invalid log level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.Limit = -5
	cfg.Output.RootDirectory = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit cannot be negative")
	assert.Contains(t, err.Error(), "output directory is required")
}

func TestMergeCommandLineFlags(t *testing.T) {
	cfg := DefaultConfig()

	cfg.MergeCommandLineFlags(map[string]interface{}{
		"limit":            7,
		"adult-filter-off": false,
		"filter":           "clipart",
		"size":             "640_480",
		"timeout":          5 * time.Second,
		"output":           "/flag/output",
		"force-replace":    true,
		"log-level":        "error",
		"no-color":         true,
	})

	assert.Equal(t, 7, cfg.Search.Limit)
	assert.False(t, cfg.Search.AdultFilterOff)
	assert.Equal(t, "clipart", cfg.Search.Filter)
	assert.Equal(t, "640_480", cfg.Search.ImageSize)
	assert.Equal(t, 5*time.Second, cfg.Download.Timeout)
	assert.Equal(t, "/flag/output", cfg.Output.RootDirectory)
	assert.True(t, cfg.Output.ForceReplace)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.False(t, cfg.UI.Color)
}

func TestMergeCommandLineFlagsLeavesUnsetValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MergeCommandLineFlags(map[string]interface{}{})

	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoadFromFile(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Search.Limit = 12
	cfg.Search.Filter = "transparent"
	cfg.Backoff.Delay = 750 * time.Millisecond
	require.NoError(t, cfg.Save(configPath))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(configPath))
	assert.Equal(t, 12, loaded.Search.Limit)
	assert.Equal(t, "transparent", loaded.Search.Filter)
	assert.Equal(t, 750*time.Millisecond, loaded.Backoff.Delay)
}

func TestLoadFromFilePartialYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	partial := map[string]interface{}{
		"search": map[string]interface{}{"limit": 3},
	}
	data, err := yaml.Marshal(partial)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(configPath, data, 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(configPath))

	assert.Equal(t, 3, cfg.Search.Limit)
	assert.Equal(t, "dataset", cfg.Output.RootDirectory)
}

func TestLoadFromFileInvalidYAML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("search: [unclosed"), 0644))

	err := DefaultConfig().LoadFromFile(configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestLoadPrecedence(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("search:\n  limit: 10\noutput:\n  root_directory: from-file\n"), 0644))
	t.Setenv("IMGCRAWL_OUTPUT_DIR", "from-env")

	cfg, err := Load(configPath, map[string]interface{}{"limit": 4})
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Search.Limit)
	assert.Equal(t, "from-env", cfg.Output.RootDirectory)
}

func TestLoadRejectsInvalidResult(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config file")
}

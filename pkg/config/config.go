package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment variable the crawler reads
const EnvPrefix = "IMGCRAWL_"

// DefaultUserAgent is the browser identity sent with result page requests
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.11 (KHTML, like Gecko) Chrome/23.0.1271.64 Safari/537.11"

// DefaultBlockedHosts lists stock-photo hosts whose images carry watermarks
var DefaultBlockedHosts = []string{
	"istockphoto.com",
	"shutterstock.com",
	"gettyimages.com",
	"alamy.com",
	"dreamstime.com",
	"123rf.com",
	"depositphotos.com",
	"stock.adobe.com",
	"bigstockphoto.com",
	"canstockphoto.com",
}

var imageSizePattern = regexp.MustCompile(`^\d+_\d+$`)

// Config holds all configuration options for the image crawler
type Config struct {
	// Search engine request settings
	Search SearchConfig `yaml:"search" json:"search"`

	// Image download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Empty-page backoff behaviour
	Backoff BackoffConfig `yaml:"backoff" json:"backoff"`

	// Retry policy for result page requests
	Retry RetryConfig `yaml:"retry" json:"retry"`

	// Outbound request pacing
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Proxy settings
	Network NetworkConfig `yaml:"network" json:"network"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Console and notification preferences
	UI UIConfig `yaml:"ui" json:"ui"`
}

// SearchConfig holds result page request configuration
type SearchConfig struct {
	BaseURL        string `yaml:"base_url" json:"base_url"`
	Limit          int    `yaml:"limit" json:"limit"`
	AdultFilterOff bool   `yaml:"adult_filter_off" json:"adult_filter_off"`
	Filter         string `yaml:"filter" json:"filter"`
	ImageSize      string `yaml:"image_size" json:"image_size"`
	UserAgent      string `yaml:"user_agent" json:"user_agent"`
}

// DownloadConfig holds image download configuration
type DownloadConfig struct {
	Timeout      time.Duration `yaml:"timeout" json:"timeout"`
	BlockedHosts []string      `yaml:"blocked_hosts" json:"blocked_hosts"`
	MaxFileSize  int64         `yaml:"max_file_size" json:"max_file_size"`
}

// BackoffConfig holds the empty-page backoff parameters
type BackoffConfig struct {
	Delay       time.Duration `yaml:"delay" json:"delay"`
	ResumeAfter int           `yaml:"resume_after" json:"resume_after"`
}

// RetryConfig holds retry configuration for result page requests
type RetryConfig struct {
	Enabled        bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts    int           `yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" json:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" json:"multiplier"`
}

// RateLimitConfig holds request pacing configuration
type RateLimitConfig struct {
	RequestsPerMinute int    `yaml:"requests_per_minute" json:"requests_per_minute"`
	Strategy          string `yaml:"strategy" json:"strategy"`
}

// NetworkConfig holds proxy configuration
type NetworkConfig struct {
	ProxyAddress  string `yaml:"proxy_address" json:"proxy_address"`
	ProxyUsername string `yaml:"proxy_username" json:"proxy_username"`
	ProxyPassword string `yaml:"proxy_password" json:"proxy_password"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	RootDirectory string `yaml:"root_directory" json:"root_directory"`
	ForceReplace  bool   `yaml:"force_replace" json:"force_replace"`
	SaveManifest  bool   `yaml:"save_manifest" json:"save_manifest"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// UIConfig holds console output preferences
type UIConfig struct {
	Verbose       bool `yaml:"verbose" json:"verbose"`
	TUI           bool `yaml:"tui" json:"tui"`
	Notifications bool `yaml:"notifications" json:"notifications"`
	Color         bool `yaml:"color" json:"color"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Search: SearchConfig{
			BaseURL:        "https://www.bing.com",
			Limit:          100,
			AdultFilterOff: true,
			UserAgent:      DefaultUserAgent,
		},
		Download: DownloadConfig{
			Timeout:      60 * time.Second,
			BlockedHosts: append([]string(nil), DefaultBlockedHosts...),
			MaxFileSize:  0, // 0 means no limit
		},
		Backoff: BackoffConfig{
			Delay:       5 * time.Second,
			ResumeAfter: 2,
		},
		Retry: RetryConfig{
			Enabled:        true,
			MaxAttempts:    3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     30 * time.Second,
			Multiplier:     2.0,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0,
			Strategy:          "token_bucket",
		},
		Output: OutputConfig{
			RootDirectory: "dataset",
			ForceReplace:  false,
			SaveManifest:  true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		UI: UIConfig{
			Verbose:       true,
			Notifications: false,
			Color:         true,
		},
	}
}

func envInt(name string) (int, bool) {
	raw := os.Getenv(EnvPrefix + name)
	if raw == "" {
		return 0, false
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return val, true
}

func envBool(name string) (bool, bool) {
	raw := os.Getenv(EnvPrefix + name)
	if raw == "" {
		return false, false
	}
	return strings.ToLower(raw) == "true" || raw == "1", true
}

func envDuration(name string) (time.Duration, bool) {
	raw := os.Getenv(EnvPrefix + name)
	if raw == "" {
		return 0, false
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		// bare numbers are seconds
		secs, serr := strconv.Atoi(raw)
		if serr != nil {
			return 0, false
		}
		d = time.Duration(secs) * time.Second
	}
	return d, true
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if baseURL := os.Getenv(EnvPrefix + "BASE_URL"); baseURL != "" {
		c.Search.BaseURL = baseURL
	}
	if limit, ok := envInt("LIMIT"); ok && limit >= 0 {
		c.Search.Limit = limit
	}
	if off, ok := envBool("ADULT_FILTER_OFF"); ok {
		c.Search.AdultFilterOff = off
	}
	if filter := os.Getenv(EnvPrefix + "FILTER"); filter != "" {
		c.Search.Filter = filter
	}
	if size := os.Getenv(EnvPrefix + "IMAGE_SIZE"); size != "" {
		c.Search.ImageSize = size
	}
	if userAgent := os.Getenv(EnvPrefix + "USER_AGENT"); userAgent != "" {
		c.Search.UserAgent = userAgent
	}

	if timeout, ok := envDuration("TIMEOUT"); ok {
		c.Download.Timeout = timeout
	}
	if hosts := os.Getenv(EnvPrefix + "BLOCKED_HOSTS"); hosts != "" {
		c.Download.BlockedHosts = splitList(hosts)
	}

	if delay, ok := envDuration("BACKOFF_DELAY"); ok {
		c.Backoff.Delay = delay
	}

	if rpm, ok := envInt("REQUESTS_PER_MINUTE"); ok && rpm >= 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}

	if proxy := os.Getenv(EnvPrefix + "PROXY"); proxy != "" {
		c.Network.ProxyAddress = proxy
	}
	if user := os.Getenv(EnvPrefix + "PROXY_USERNAME"); user != "" {
		c.Network.ProxyUsername = user
	}
	if pass := os.Getenv(EnvPrefix + "PROXY_PASSWORD"); pass != "" {
		c.Network.ProxyPassword = pass
	}

	if outputDir := os.Getenv(EnvPrefix + "OUTPUT_DIR"); outputDir != "" {
		c.Output.RootDirectory = outputDir
	}
	if force, ok := envBool("FORCE_REPLACE"); ok {
		c.Output.ForceReplace = force
	}

	if logLevel := os.Getenv(EnvPrefix + "LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFile := os.Getenv(EnvPrefix + "LOG_FILE"); logFile != "" {
		c.Logging.File = logFile
	}

	if verbose, ok := envBool("VERBOSE"); ok {
		c.UI.Verbose = verbose
	}
	if notif, ok := envBool("NOTIFICATIONS"); ok {
		c.UI.Notifications = notif
	}

	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".imgcrawl.yaml",
		".imgcrawl.yml",
		filepath.Join(home, ".config", "imgcrawl", "config.yaml"),
		filepath.Join(home, ".config", "imgcrawl", "config.yml"),
		filepath.Join(home, ".imgcrawl.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// AdultSetting returns the value sent as the adlt request parameter
func (c *Config) AdultSetting() string {
	if c.Search.AdultFilterOff {
		return "off"
	}
	return "on"
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Search.BaseURL == "" {
		errs = append(errs, errors.New("search base URL is required"))
	}
	if c.Search.Limit < 0 {
		errs = append(errs, errors.New("limit cannot be negative"))
	}
	if c.Search.ImageSize != "" && !imageSizePattern.MatchString(c.Search.ImageSize) {
		errs = append(errs, fmt.Errorf("image size %q must look like <width>_<height>", c.Search.ImageSize))
	}
	if c.Search.UserAgent == "" {
		errs = append(errs, errors.New("user agent is required"))
	}

	if c.Download.Timeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}
	if c.Download.MaxFileSize < 0 {
		errs = append(errs, errors.New("max file size cannot be negative"))
	}

	if c.Backoff.Delay < 0 {
		errs = append(errs, errors.New("backoff delay cannot be negative"))
	}
	if c.Backoff.ResumeAfter < 0 {
		errs = append(errs, errors.New("backoff resume threshold cannot be negative"))
	}

	if c.Retry.Enabled {
		if c.Retry.MaxAttempts <= 0 {
			errs = append(errs, errors.New("retry max attempts must be positive"))
		}
		if c.Retry.Multiplier < 1 {
			errs = append(errs, errors.New("retry multiplier must be at least 1"))
		}
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	validStrategies := map[string]bool{"token_bucket": true, "sliding_window": true}
	if !validStrategies[strings.ToLower(c.RateLimit.Strategy)] {
		errs = append(errs, fmt.Errorf("invalid rate limit strategy %q", c.RateLimit.Strategy))
	}

	if c.Output.RootDirectory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map are applied; callers pass just the flags
// the user actually changed.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if limit, ok := flags["limit"].(int); ok && limit >= 0 {
		c.Search.Limit = limit
	}
	if off, ok := flags["adult-filter-off"].(bool); ok {
		c.Search.AdultFilterOff = off
	}
	if filter, ok := flags["filter"].(string); ok {
		c.Search.Filter = filter
	}
	if size, ok := flags["size"].(string); ok {
		c.Search.ImageSize = size
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Download.Timeout = timeout
	}
	if outputDir, ok := flags["output"].(string); ok && outputDir != "" {
		c.Output.RootDirectory = outputDir
	}
	if force, ok := flags["force-replace"].(bool); ok {
		c.Output.ForceReplace = force
	}
	if proxy, ok := flags["proxy"].(string); ok && proxy != "" {
		c.Network.ProxyAddress = proxy
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
	if verbose, ok := flags["verbose"].(bool); ok {
		c.UI.Verbose = verbose
	}
	if tui, ok := flags["tui"].(bool); ok {
		c.UI.TUI = tui
	}
	if notify, ok := flags["notify"].(bool); ok {
		c.UI.Notifications = notify
	}
	if noColor, ok := flags["no-color"].(bool); ok && noColor {
		c.UI.Color = false
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".imgcrawl.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

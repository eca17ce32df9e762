package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"nitterscraper/pkg/mirror"
	"nitterscraper/pkg/models"
	"nitterscraper/pkg/ratelimit"
)

const (
	// DefaultPostsPerAccount is used whenever posts_per_account is not positive
	DefaultPostsPerAccount = 100
	// DefaultAccountDelay is the fixed pause between two accounts
	DefaultAccountDelay = 5 * time.Second
	// DefaultFailureCooldown is the pause after a mirror fails
	DefaultFailureCooldown = 1 * time.Second

	// EnvPrefix prefixes every environment variable the scraper reads
	EnvPrefix = "NITTERSCRAPER_"
)

// Fetch modes
const (
	FetchModeHTML = "html"
	FetchModeJSON = "json"
)

// Output formats. An empty format is inferred from the output path.
const (
	FormatCSV    = "csv"
	FormatSQLite = "sqlite"
)

// Config holds all configuration options for a scrape run
type Config struct {
	// Accounts to scrape, in order. A leading @ is optional.
	Accounts []string `yaml:"accounts" json:"accounts"`

	// Target number of posts per account
	PostsPerAccount int `yaml:"posts_per_account" json:"posts_per_account"`

	// Pause between two consecutive accounts
	AccountDelay time.Duration `yaml:"account_delay" json:"account_delay"`

	// Pause after a mirror fails, before trying the next one
	FailureCooldown time.Duration `yaml:"failure_cooldown" json:"failure_cooldown"`

	// Mirror base URLs in fallback order
	Endpoints []string `yaml:"endpoints" json:"endpoints"`

	Fetch   FetchConfig   `yaml:"fetch" json:"fetch"`
	Output  OutputConfig  `yaml:"output" json:"output"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

// FetchConfig controls how a single mirror is queried
type FetchConfig struct {
	Mode              string        `yaml:"mode" json:"mode"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	Timeout           time.Duration `yaml:"timeout" json:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute" json:"requests_per_minute"`
	// Limiter is the per-mirror rate limiting strategy: sliding_window or token_bucket
	Limiter string `yaml:"limiter" json:"limiter"`
	// JSONPath is the request path used in json mode. {username} and
	// {count} are substituted.
	JSONPath string `yaml:"json_path" json:"json_path"`
}

// OutputConfig holds output file configuration
type OutputConfig struct {
	Path   string `yaml:"path" json:"path"`
	Format string `yaml:"format" json:"format"`
	Table  string `yaml:"table" json:"table"`
	// Report is an optional path for a JSON run report
	Report string `yaml:"report" json:"report"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// MetricsConfig holds metrics export configuration
type MetricsConfig struct {
	// File receives the run metrics in Prometheus text format. Empty disables export.
	File string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Accounts: []string{
			"alanhenney",
			"OCCRP",
			"NOELreports",
			"CBSEveningNews",
			"CrimeChatt",
			"phivolcs_dost",
		},
		PostsPerAccount: DefaultPostsPerAccount,
		AccountDelay:    DefaultAccountDelay,
		FailureCooldown: DefaultFailureCooldown,
		Endpoints: []string{
			"https://nitter.privacydev.net",
			"https://nitter.unixfox.eu",
			"https://nitter.1d4.us",
			"https://nitter.kavin.rocks",
			"https://nitter.fdn.fr",
			"https://nitter.42l.fr",
			"https://nitter.pussthecat.org",
		},
		Fetch: FetchConfig{
			Mode:              FetchModeHTML,
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
			Timeout:           30 * time.Second,
			RequestsPerMinute: 30,
			Limiter:           ratelimit.StrategySlidingWindow,
			JSONPath:          "/api/{username}/tweets?count={count}",
		},
		Output: OutputConfig{
			Path:  "dataset.csv",
			Table: "posts",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from NITTERSCRAPER_* environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v, ok := lookupEnv("ACCOUNTS"); ok {
		c.Accounts = splitList(v)
	}
	if v, ok := lookupEnv("ENDPOINTS"); ok {
		c.Endpoints = splitList(v)
	}
	if v, ok := lookupEnv("POSTS_PER_ACCOUNT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sPOSTS_PER_ACCOUNT: %w", EnvPrefix, err))
		} else {
			c.PostsPerAccount = n
		}
	}
	if v, ok := lookupEnv("ACCOUNT_DELAY"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sACCOUNT_DELAY: %w", EnvPrefix, err))
		} else {
			c.AccountDelay = d
		}
	}
	if v, ok := lookupEnv("FAILURE_COOLDOWN"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sFAILURE_COOLDOWN: %w", EnvPrefix, err))
		} else {
			c.FailureCooldown = d
		}
	}

	// Fetch
	if v, ok := lookupEnv("FETCH_MODE"); ok {
		c.Fetch.Mode = v
	}
	if v, ok := lookupEnv("USER_AGENT"); ok {
		c.Fetch.UserAgent = v
	}
	if v, ok := lookupEnv("LIMITER"); ok {
		c.Fetch.Limiter = v
	}
	if v, ok := lookupEnv("REQUESTS_PER_MINUTE"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sREQUESTS_PER_MINUTE: %w", EnvPrefix, err))
		} else {
			c.Fetch.RequestsPerMinute = n
		}
	}

	// Output
	if v, ok := lookupEnv("OUTPUT"); ok {
		c.Output.Path = v
	}
	if v, ok := lookupEnv("OUTPUT_FORMAT"); ok {
		c.Output.Format = v
	}
	if v, ok := lookupEnv("REPORT"); ok {
		c.Output.Report = v
	}

	// Logging and metrics
	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		c.Logging.Level = v
	}
	if v, ok := lookupEnv("LOG_FILE"); ok {
		c.Logging.File = v
	}
	if v, ok := lookupEnv("METRICS_FILE"); ok {
		c.Metrics.File = v
	}

	return errors.Join(errs...)
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
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
		path = findConfigFile()
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
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".nitterscraper.yaml",
		".nitterscraper.yml",
	}
	if home != "" {
		locations = append(locations,
			filepath.Join(home, ".config", "nitterscraper", "config.yaml"),
			filepath.Join(home, ".config", "nitterscraper", "config.yml"),
		)
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Normalize corrects recoverable values in place and returns a warning for
// each correction made.
func (c *Config) Normalize() []string {
	var warnings []string

	if c.PostsPerAccount <= 0 {
		warnings = append(warnings, fmt.Sprintf(
			"posts_per_account must be positive, using default value of %d", DefaultPostsPerAccount))
		c.PostsPerAccount = DefaultPostsPerAccount
	}
	if c.AccountDelay < 0 {
		warnings = append(warnings, fmt.Sprintf(
			"account_delay cannot be negative, using default value of %s", DefaultAccountDelay))
		c.AccountDelay = DefaultAccountDelay
	}
	if c.FailureCooldown < 0 {
		warnings = append(warnings, fmt.Sprintf(
			"failure_cooldown cannot be negative, using default value of %s", DefaultFailureCooldown))
		c.FailureCooldown = DefaultFailureCooldown
	}

	accounts := make([]string, 0, len(c.Accounts))
	for _, a := range c.Accounts {
		normalized := models.NormalizeAccount(a)
		if normalized == "" {
			warnings = append(warnings, fmt.Sprintf("ignoring blank account %q", a))
			continue
		}
		accounts = append(accounts, normalized.String())
	}
	c.Accounts = accounts

	endpoints := make([]string, 0, len(c.Endpoints))
	for _, e := range c.Endpoints {
		if strings.TrimSpace(e) == "" {
			warnings = append(warnings, "ignoring blank endpoint")
			continue
		}
		endpoints = append(endpoints, strings.TrimSpace(e))
	}
	c.Endpoints = endpoints

	c.Fetch.Mode = strings.ToLower(strings.TrimSpace(c.Fetch.Mode))
	if c.Fetch.Mode == "" {
		c.Fetch.Mode = FetchModeHTML
	}
	c.Output.Format = strings.ToLower(strings.TrimSpace(c.Output.Format))
	if c.Output.Table == "" {
		c.Output.Table = "posts"
	}
	c.Fetch.Limiter = strings.ToLower(strings.TrimSpace(c.Fetch.Limiter))
	if c.Fetch.Limiter == "" {
		c.Fetch.Limiter = ratelimit.StrategySlidingWindow
	}
	if c.Fetch.RequestsPerMinute < 0 {
		warnings = append(warnings, "requests_per_minute cannot be negative, disabling the limit")
		c.Fetch.RequestsPerMinute = 0
	}

	return warnings
}

// Validate checks if the configuration can start a run
func (c *Config) Validate() error {
	var errs []error

	if len(c.Endpoints) == 0 {
		errs = append(errs, errors.New("at least one endpoint is required"))
	}
	for _, e := range c.Endpoints {
		if _, err := mirror.ParseEndpoint(e); err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(c.Fetch.Mode) {
	case FetchModeHTML, FetchModeJSON:
	default:
		errs = append(errs, fmt.Errorf("invalid fetch mode %q", c.Fetch.Mode))
	}
	switch c.Fetch.Limiter {
	case "", ratelimit.StrategySlidingWindow, ratelimit.StrategyTokenBucket:
	default:
		errs = append(errs, fmt.Errorf("invalid limiter %q", c.Fetch.Limiter))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, errors.New("fetch timeout must be positive"))
	}

	if strings.TrimSpace(c.Output.Path) == "" {
		errs = append(errs, errors.New("output path is required"))
	}
	switch strings.ToLower(c.Output.Format) {
	case "", FormatCSV, FormatSQLite:
	default:
		errs = append(errs, fmt.Errorf("invalid output format %q", c.Output.Format))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "warning": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
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

	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags present in the map are applied; callers add a key only when
// the user set the flag.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if accounts, ok := flags["account"].([]string); ok && len(accounts) > 0 {
		c.Accounts = accounts
	}
	if endpoints, ok := flags["endpoint"].([]string); ok && len(endpoints) > 0 {
		c.Endpoints = endpoints
	}
	if posts, ok := flags["posts"].(int); ok {
		c.PostsPerAccount = posts
	}
	if delay, ok := flags["delay"].(time.Duration); ok {
		c.AccountDelay = delay
	}
	if cooldown, ok := flags["cooldown"].(time.Duration); ok {
		c.FailureCooldown = cooldown
	}
	if mode, ok := flags["mode"].(string); ok && mode != "" {
		c.Fetch.Mode = mode
	}
	if output, ok := flags["output"].(string); ok && output != "" {
		c.Output.Path = output
	}
	if format, ok := flags["format"].(string); ok && format != "" {
		c.Output.Format = format
	}
	if report, ok := flags["report"].(string); ok && report != "" {
		c.Output.Report = report
	}
	if metricsFile, ok := flags["metrics-file"].(string); ok && metricsFile != "" {
		c.Metrics.File = metricsFile
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence, then
// normalizes and validates it. The returned warnings describe values that
// were corrected.
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, []string, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".nitterscraper.env"))
	}

	// Start with defaults
	config := DefaultConfig()

	// Load from config file
	if err := config.LoadFromFile(configPath); err != nil {
		return nil, nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Override with command line flags
	config.MergeCommandLineFlags(flags)

	warnings := config.Normalize()

	// Validate final configuration
	if err := config.Validate(); err != nil {
		return nil, warnings, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, warnings, nil
}

// Package config provides configuration loading and management for the addonhub server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/addonhub/addonhub/internal/addon"
)

// EnvPrefix is the prefix for all addonhub environment variables
const EnvPrefix = "ADDONHUB"

const (
	// DefaultConcurrency is the maximum number of update operations that may
	// hold a gate slot at the same time
	DefaultConcurrency = 15

	// DefaultCooldown is the pause after every GitHub call before the gate
	// slot is released, to stay under the API rate limit
	DefaultCooldown = 5 * time.Second

	// DefaultDownloadedInterval is how often downloaded add-ons are refreshed
	DefaultDownloadedInterval = 2 * time.Hour

	// DefaultCatalogInterval is how often the full catalog is refreshed
	DefaultCatalogInterval = 25 * time.Hour

	// DefaultGitHubAPIURL is the base URL for the GitHub REST API
	DefaultGitHubAPIURL = "https://api.github.com"

	// DefaultDataURL is the base URL for the curated catalog data files
	DefaultDataURL = "https://data.addonhub.dev"

	// DefaultStoragePath is the directory used for persisted hub data
	DefaultStoragePath = "./data"
)

// Option defines the interface for configuration options
type Option func(*loaderConfig) error

// loaderConfig defines the configuration for loading a configuration
type loaderConfig struct {
	path string
}

// WithConfigPath loads configuration from a YAML file
func WithConfigPath(path string) Option {
	return func(cfg *loaderConfig) error {
		if path == "" {
			return fmt.Errorf("path is required")
		}

		// Resolve symlinks to prevent symlink attacks.
		// Note that this calls filepath.Clean internally.
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return fmt.Errorf("failed to evaluate symlinks: %w", err)
		}

		// Validate the path to prevent path traversal attacks
		if !filepath.IsAbs(realPath) {
			if !filepath.IsLocal(realPath) {
				return fmt.Errorf("path is not local or contains invalid traversal: %s", path)
			}
		}

		cfg.path = realPath
		return nil
	}
}

// Config represents the root configuration structure
type Config struct {
	// HubName is the name/identifier for this hub instance
	// Defaults to "default" if not specified
	HubName string `yaml:"hubName,omitempty"`

	// Categories lists the add-on categories this hub manages
	// Defaults to integration and plugin if not specified
	Categories []string `yaml:"categories,omitempty"`

	GitHub    GitHubConfig     `yaml:"github"`
	Sync      SyncConfig       `yaml:"sync,omitempty"`
	Storage   StorageConfig    `yaml:"storage,omitempty"`
	Telemetry *TelemetryConfig `yaml:"telemetry,omitempty"`
}

// GitHubConfig defines GitHub API access settings
type GitHubConfig struct {
	// APIURL is the base URL for the GitHub REST API
	// Defaults to the public GitHub API if not specified
	APIURL string `yaml:"apiUrl,omitempty"`

	// DataURL is the base URL for the curated catalog data files
	// (default category lists, removed and critical add-ons)
	DataURL string `yaml:"dataUrl,omitempty"`

	// TokenFile is the path to a file containing the GitHub access token
	// This is the recommended approach for production deployments
	TokenFile string `yaml:"tokenFile,omitempty"`

	// Timeout is the HTTP timeout for GitHub requests (e.g. "30s")
	Timeout string `yaml:"timeout,omitempty"`
}

// SyncConfig defines update scheduling and admission control settings
type SyncConfig struct {
	// Concurrency is the maximum number of update operations running at once
	Concurrency int `yaml:"concurrency,omitempty"`

	// Cooldown is the pause after every GitHub call before the gate slot is
	// released (e.g. "5s")
	Cooldown string `yaml:"cooldown,omitempty"`

	// DownloadedInterval is the refresh interval for downloaded add-ons (e.g. "2h")
	DownloadedInterval string `yaml:"downloadedInterval,omitempty"`

	// CatalogInterval is the refresh interval for the full catalog (e.g. "25h")
	CatalogInterval string `yaml:"catalogInterval,omitempty"`
}

// StorageConfig defines persistent storage settings
type StorageConfig struct {
	// Path is the directory where hub data files are written
	Path string `yaml:"path,omitempty"`
}

// TelemetryConfig defines OpenTelemetry export settings
type TelemetryConfig struct {
	// Enabled controls whether metrics are exported
	Enabled bool `yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint ("host:port")
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure allows HTTP connections instead of HTTPS
	Insecure bool `yaml:"insecure,omitempty"`
}

// LoadConfig loads and parses configuration from a YAML file
func LoadConfig(opts ...Option) (*Config, error) {
	loaderCfg := &loaderConfig{}
	for _, opt := range opts {
		if err := opt(loaderCfg); err != nil {
			return nil, err
		}
	}

	// As of now, this is required because there's no other options to load
	// configuration. Once we add more options, we can remove this check.
	if loaderCfg.path == "" {
		return nil, fmt.Errorf("path is required")
	}

	// Read the entire file into memory
	data, err := os.ReadFile(loaderCfg.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse YAML content
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	// Validate the config
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// GetHubName returns the hub name, using "default" if not specified
func (c *Config) GetHubName() string {
	if c.HubName == "" {
		return "default"
	}
	return c.HubName
}

// GetToken returns the GitHub token using the following priority:
// 1. Read from TokenFile if specified
// 2. Read from ADDONHUB_GITHUB_TOKEN environment variable
//
// The token from file will have leading/trailing whitespace trimmed.
// An empty result is not an error: the hub then runs unauthenticated
// against the (much lower) anonymous rate limit.
func (g *GitHubConfig) GetToken() (string, error) {
	if g.TokenFile != "" {
		// Use filepath.Clean to prevent path traversal attacks
		cleanPath := filepath.Clean(g.TokenFile)

		data, err := os.ReadFile(cleanPath)
		if err != nil {
			return "", fmt.Errorf("failed to read token from file %s: %w", g.TokenFile, err)
		}

		return strings.TrimSpace(string(data)), nil
	}

	return os.Getenv(EnvPrefix + "_GITHUB_TOKEN"), nil
}

// GetTimeout parses the configured GitHub HTTP timeout, returning zero when
// unset so the HTTP client applies its own default
func (g *GitHubConfig) GetTimeout() (time.Duration, error) {
	if g.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(g.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid github timeout %q: %w", g.Timeout, err)
	}
	return d, nil
}

// GetConcurrency returns the gate capacity with defaulting applied
func (s *SyncConfig) GetConcurrency() int {
	if s.Concurrency <= 0 {
		return DefaultConcurrency
	}
	return s.Concurrency
}

// GetCooldown returns the post-call cool-down with defaulting applied
func (s *SyncConfig) GetCooldown() (time.Duration, error) {
	return parseInterval(s.Cooldown, DefaultCooldown)
}

// GetDownloadedInterval returns the downloaded add-on refresh interval
func (s *SyncConfig) GetDownloadedInterval() (time.Duration, error) {
	return parseInterval(s.DownloadedInterval, DefaultDownloadedInterval)
}

// GetCatalogInterval returns the full catalog refresh interval
func (s *SyncConfig) GetCatalogInterval() (time.Duration, error) {
	return parseInterval(s.CatalogInterval, DefaultCatalogInterval)
}

// GetPath returns the storage directory with defaulting applied
func (s *StorageConfig) GetPath() string {
	if s.Path == "" {
		return DefaultStoragePath
	}
	return s.Path
}

// Validate performs validation on the configuration.
// Validation mutates the receiver: unset fields are filled with defaults.
func (c *Config) Validate() error {
	if c == nil {
		return fmt.Errorf("config cannot be nil")
	}

	if len(c.Categories) == 0 {
		c.Categories = []string{
			string(addon.CategoryIntegration),
			string(addon.CategoryPlugin),
		}
	}
	for _, category := range c.Categories {
		if !addon.Category(category).Valid() {
			return fmt.Errorf("unknown category: %s", category)
		}
	}

	if c.GitHub.APIURL == "" {
		c.GitHub.APIURL = DefaultGitHubAPIURL
	}
	if c.GitHub.DataURL == "" {
		c.GitHub.DataURL = DefaultDataURL
	}
	if _, err := c.GitHub.GetTimeout(); err != nil {
		return err
	}

	if _, err := c.Sync.GetCooldown(); err != nil {
		return err
	}
	if _, err := c.Sync.GetDownloadedInterval(); err != nil {
		return err
	}
	if _, err := c.Sync.GetCatalogInterval(); err != nil {
		return err
	}

	return nil
}

func parseInterval(value string, fallback time.Duration) (time.Duration, error) {
	if value == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", value, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", value)
	}
	return d, nil
}

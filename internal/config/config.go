// Package config loads and validates the pacscout configuration file.
//
// Configuration is TOML. Lookup order: the path given on the command line,
// then $XDG_CONFIG_HOME/pacscout/config.toml, then /etc/pacscout/config.toml.
// A missing file yields the built-in defaults; a present file is rejected
// when world-writable.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/pacscout/pacscout/internal/errdefs"
)

// Config represents the application configuration
type Config struct {
	Core    CoreConfig    `toml:"core"`
	Sources SourcesConfig `toml:"sources"`
	AUR     AURConfig     `toml:"aur"`
	Helpers HelpersConfig `toml:"helpers"`
	Space   SpaceConfig   `toml:"space"`
	News    NewsConfig    `toml:"news"`
	History HistoryConfig `toml:"history"`
	Logging LoggingConfig `toml:"logging"`
}

// CoreConfig holds paths shared by several commands
type CoreConfig struct {
	ManifestPath string `toml:"manifest_path"`
	LogDirectory string `toml:"log_directory"`
}

// SourcesConfig enables or disables individual upstream sources
type SourcesConfig struct {
	Pacman  bool `toml:"pacman"`
	AUR     bool `toml:"aur"`
	Flatpak bool `toml:"flatpak"`
	Fwupd   bool `toml:"fwupd"`
}

// AURConfig holds AUR RPC client settings
type AURConfig struct {
	BaseURL     string `toml:"base_url"`
	MaxBatch    int    `toml:"max_batch"`
	TimeoutSecs int    `toml:"timeout_secs"`
	MaxRetries  int    `toml:"max_retries"`
}

// HelpersConfig lists AUR helpers in detection priority order
type HelpersConfig struct {
	Priority []string `toml:"priority"`
}

// SpaceConfig holds the disk capacity policy
type SpaceConfig struct {
	MinFreeGB     float64 `toml:"min_free_gb"`
	ExtraMarginGB float64 `toml:"extra_margin_gb"`
	Policy        string  `toml:"policy"`
}

// NewsConfig holds the upstream news advisory settings
type NewsConfig struct {
	Enabled  bool   `toml:"enabled"`
	URL      string `toml:"url"`
	Selector string `toml:"selector"`
	XPath    string `toml:"xpath"`
	MaxItems int    `toml:"max_items"`
}

// HistoryConfig holds the run-history ledger settings
type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// LoggingConfig holds log level and retention settings
type LoggingConfig struct {
	Level              string `toml:"level"`
	File               bool   `toml:"file"`
	RetentionDays      int    `toml:"retention_days"`
	RetentionMegabytes int    `toml:"retention_megabytes"`
}

// Capacity policies
const (
	PolicyWarn    = "warn"
	PolicyEnforce = "enforce"
)

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Core: CoreConfig{
			ManifestPath: "/tmp/pacscout_manifest.json",
		},
		Sources: SourcesConfig{
			Pacman:  true,
			AUR:     true,
			Flatpak: true,
			Fwupd:   true,
		},
		AUR: AURConfig{
			BaseURL:     "https://aur.archlinux.org/rpc/",
			MaxBatch:    100,
			TimeoutSecs: 10,
			MaxRetries:  3,
		},
		Helpers: HelpersConfig{
			Priority: []string{"paru", "yay", "trizen", "pikaur", "aura", "pamac"},
		},
		Space: SpaceConfig{
			MinFreeGB: 2.0,
			Policy:    PolicyWarn,
		},
		News: NewsConfig{
			Enabled:  true,
			URL:      "https://archlinux.org/news/",
			Selector: "table.results tbody tr",
			MaxItems: 5,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Level:              "info",
			File:               true,
			RetentionDays:      30,
			RetentionMegabytes: 50,
		},
	}
}

// ConfigPaths returns the config file paths in priority order
func ConfigPaths() ([]string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}

	xdgConfig := os.Getenv("XDG_CONFIG_HOME")
	if xdgConfig == "" {
		xdgConfig = filepath.Join(home, ".config")
	}

	return []string{
		filepath.Join(xdgConfig, "pacscout", "config.toml"),
		filepath.Join("/etc", "pacscout", "config.toml"),
	}, nil
}

// Load reads the configuration. When explicit is non-empty that file must
// exist; otherwise the first existing path from ConfigPaths is used, and the
// built-in defaults apply when none exists. The returned path is empty when
// defaults were used. Unknown keys are reported in warnings, not errors.
func Load(explicit string) (cfg *Config, path string, warnings []string, err error) {
	if explicit != "" {
		cfg, warnings, err = LoadFrom(explicit)
		return cfg, explicit, warnings, err
	}

	paths, err := ConfigPaths()
	if err != nil {
		return nil, "", nil, errdefs.Config("cannot resolve config paths: %v", err)
	}
	for _, p := range paths {
		if _, statErr := os.Stat(p); statErr == nil {
			cfg, warnings, err = LoadFrom(p)
			return cfg, p, warnings, err
		}
	}

	return Default(), "", nil, nil
}

// LoadFrom reads and validates configuration from one file
func LoadFrom(path string) (*Config, []string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, nil, errdefs.Config("cannot read %s: %v", path, err)
	}
	// Refuse configs anyone on the host can rewrite
	if info.Mode().Perm()&0o002 != 0 {
		return nil, nil, errdefs.Config("%s is world-writable (mode %o)", path, info.Mode().Perm())
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, nil, errdefs.Config("cannot parse %s: %v", path, err)
	}

	var warnings []string
	for _, key := range meta.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown config key %q in %s", key.String(), path))
	}

	if err := cfg.Validate(); err != nil {
		return nil, warnings, err
	}
	return cfg, warnings, nil
}

// Validate checks the configuration for unusable values and normalizes
// clampable ones (AUR batch size).
func (c *Config) Validate() error {
	switch c.Space.Policy {
	case PolicyWarn, PolicyEnforce:
	default:
		return errdefs.Config("space.policy must be %q or %q, got %q", PolicyWarn, PolicyEnforce, c.Space.Policy)
	}

	if c.Space.MinFreeGB < 0 {
		return errdefs.Config("space.min_free_gb must not be negative")
	}
	if c.Space.ExtraMarginGB < 0 {
		return errdefs.Config("space.extra_margin_gb must not be negative")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return errdefs.Config("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level)
	}
	if c.Logging.RetentionDays < 0 || c.Logging.RetentionMegabytes < 0 {
		return errdefs.Config("logging retention values must not be negative")
	}

	if _, err := url.Parse(c.AUR.BaseURL); err != nil || c.AUR.BaseURL == "" {
		return errdefs.Config("aur.base_url %q is not a valid URL", c.AUR.BaseURL)
	}
	if c.AUR.TimeoutSecs <= 0 {
		return errdefs.Config("aur.timeout_secs must be positive")
	}
	if c.AUR.MaxRetries < 0 {
		return errdefs.Config("aur.max_retries must not be negative")
	}
	// The RPC endpoint rejects more than 100 names per request
	if c.AUR.MaxBatch < 1 {
		c.AUR.MaxBatch = 1
	}
	if c.AUR.MaxBatch > 100 {
		c.AUR.MaxBatch = 100
	}

	if c.News.Enabled {
		if c.News.URL == "" {
			return errdefs.Config("news.url must be set when news is enabled")
		}
		if c.News.Selector == "" && c.News.XPath == "" {
			return errdefs.Config("news requires a selector or an xpath")
		}
		if c.News.MaxItems <= 0 {
			c.News.MaxItems = 5
		}
	}

	return nil
}

// MinFreeBytes returns the configured free-space buffer in bytes
func (c *Config) MinFreeBytes() uint64 {
	return gbToBytes(c.Space.MinFreeGB)
}

// ExtraMarginBytes returns the optional extra capacity margin in bytes
func (c *Config) ExtraMarginBytes() uint64 {
	return gbToBytes(c.Space.ExtraMarginGB)
}

func gbToBytes(gb float64) uint64 {
	if gb <= 0 {
		return 0
	}
	return uint64(gb * 1024 * 1024 * 1024)
}

// AURTimeout returns the AUR client timeout as a duration
func (c *Config) AURTimeout() time.Duration {
	return time.Duration(c.AUR.TimeoutSecs) * time.Second
}

// HistoryPath returns the history database path, defaulting under
// XDG_STATE_HOME when unset
func (c *Config) HistoryPath() (string, error) {
	if c.History.Path != "" {
		return c.History.Path, nil
	}
	state, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(state, "pacscout", "history.db"), nil
}

// LogDirectory returns the run-log directory, defaulting under
// XDG_STATE_HOME when unset
func (c *Config) LogDirectory() (string, error) {
	if c.Core.LogDirectory != "" {
		return c.Core.LogDirectory, nil
	}
	state, err := stateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(state, "pacscout", "logs"), nil
}

func stateDir() (string, error) {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return xdg, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state"), nil
}

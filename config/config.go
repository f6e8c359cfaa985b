// Package config defines the redveil configuration: an immutable struct with
// named fields grouped by concern, loaded once at startup and passed by
// pointer to every component. There is no mutable global configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level redveil configuration.
type Config struct {
	Browser  BrowserConfig   `yaml:"browser"`
	Store    StoreConfig     `yaml:"store"`
	Mgmt     MgmtConfig      `yaml:"mgmt"`
	Timeouts TimeoutConfig   `yaml:"timeouts"`
	Storage  RetentionConfig `yaml:"storage"`
	DOM      DOMConfig       `yaml:"dom"`
	Visual   VisualConfig    `yaml:"visual"`
}

// BrowserConfig controls the Chrome session.
type BrowserConfig struct {
	// Remote is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	Remote string `yaml:"remote"`
	// Stealth selects the automation mode: headless | headful.
	Stealth string `yaml:"stealth"`
	// StartURL is where the session begins. Default: https://www.reddit.com/.
	StartURL string `yaml:"start_url"`
}

// StoreConfig locates the persistent store.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// MgmtConfig controls the management HTTP API. Empty Addr disables it.
type MgmtConfig struct {
	Addr string `yaml:"addr"`
}

// TimeoutConfig groups every timer used by the session.
type TimeoutConfig struct {
	// InitialScans are the staggered scan delays after entering a feed page.
	InitialScans []time.Duration `yaml:"initial_scans"`
	// NavigationDelay is waited after a URL change before reclassifying.
	NavigationDelay time.Duration `yaml:"navigation_delay"`
	// MutationDebounce is the trailing debounce window for dirty mutations.
	MutationDebounce time.Duration `yaml:"mutation_debounce"`
	// MessageDisplay is how long a toast stays on screen.
	MessageDisplay time.Duration `yaml:"message_display"`
}

// RetentionConfig controls age-based sweeping of hidden-post records.
type RetentionConfig struct {
	// CleanupDays: records older than this are dropped at load time.
	CleanupDays int `yaml:"cleanup_days"`
	// OldPostDays: cutoff used by the management "clear old" operation.
	OldPostDays int `yaml:"old_post_days"`
}

// DOMConfig holds the rendered-size thresholds and traversal bounds used by
// post classification.
type DOMConfig struct {
	MaxTraversalDepth   int     `yaml:"max_traversal_depth"`
	MinPostHeight       float64 `yaml:"min_post_height"`
	MinPostWidth        float64 `yaml:"min_post_width"`
	ValidationMinHeight float64 `yaml:"validation_min_height"`
	ValidationMinWidth  float64 `yaml:"validation_min_width"`
}

// VisualConfig holds the styling constants applied in the page.
type VisualConfig struct {
	HiddenOpacity float64 `yaml:"hidden_opacity"`
	HoverOpacity  float64 `yaml:"hover_opacity"`
	HoverScale    float64 `yaml:"hover_scale"`
}

// LoadFile reads a YAML configuration file and applies defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a Config with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Browser.Stealth == "" {
		c.Browser.Stealth = "headful"
	}
	if c.Browser.StartURL == "" {
		c.Browser.StartURL = "https://www.reddit.com/"
	}
	if c.Store.Path == "" {
		c.Store.Path = "redveil.db"
	}
	if len(c.Timeouts.InitialScans) == 0 {
		c.Timeouts.InitialScans = []time.Duration{
			500 * time.Millisecond,
			1500 * time.Millisecond,
			3 * time.Second,
		}
	}
	if c.Timeouts.NavigationDelay <= 0 {
		c.Timeouts.NavigationDelay = 500 * time.Millisecond
	}
	if c.Timeouts.MutationDebounce <= 0 {
		c.Timeouts.MutationDebounce = 200 * time.Millisecond
	}
	if c.Timeouts.MessageDisplay <= 0 {
		c.Timeouts.MessageDisplay = 2 * time.Second
	}
	if c.Storage.CleanupDays <= 0 {
		c.Storage.CleanupDays = 7
	}
	if c.Storage.OldPostDays <= 0 {
		c.Storage.OldPostDays = 3
	}
	if c.DOM.MaxTraversalDepth <= 0 {
		c.DOM.MaxTraversalDepth = 10
	}
	if c.DOM.MinPostHeight <= 0 {
		c.DOM.MinPostHeight = 50
	}
	if c.DOM.MinPostWidth <= 0 {
		c.DOM.MinPostWidth = 100
	}
	if c.DOM.ValidationMinHeight <= 0 {
		c.DOM.ValidationMinHeight = 10
	}
	if c.DOM.ValidationMinWidth <= 0 {
		c.DOM.ValidationMinWidth = 50
	}
	if c.Visual.HiddenOpacity <= 0 {
		c.Visual.HiddenOpacity = 0.05
	}
	if c.Visual.HoverOpacity <= 0 {
		c.Visual.HoverOpacity = 0.95
	}
	if c.Visual.HoverScale <= 0 {
		c.Visual.HoverScale = 0.98
	}
}

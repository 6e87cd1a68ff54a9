package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the persistent application configuration
type Config struct {
	API APIConfig `json:"api"`
	UI  UIConfig  `json:"ui"`

	// Token is only ever filled from QUILL_TOKEN; sessions live in the store.
	Token string `json:"-"`
}

// APIConfig holds backend connection settings
type APIConfig struct {
	BaseURL           string  `json:"base_url"`
	TimeoutMs         int     `json:"timeout_ms"`
	RequestsPerSecond float64 `json:"requests_per_second"` // 0 disables the limiter
	Burst             int     `json:"burst"`
}

// UIConfig holds UI preferences
type UIConfig struct {
	Theme         string `json:"theme"`
	DebounceMs    int    `json:"debounce_ms"`
	StartLocation string `json:"start_location"`
	// ShareBase is the web origin prepended to copied post links.
	ShareBase string `json:"share_base"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:           "http://localhost:5000/api",
			TimeoutMs:         10000,
			RequestsPerSecond: 10,
			Burst:             5,
		},
		UI: UIConfig{
			Theme:         "dark",
			DebounceMs:    300,
			StartLocation: "/",
			ShareBase:     "http://localhost:3000",
		},
	}
}

// Timeout returns the HTTP client timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.API.TimeoutMs) * time.Millisecond
}

// Debounce returns the search debounce delay.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.UI.DebounceMs) * time.Millisecond
}

// Dir returns ~/.quill, home of the config, database and logs.
func Dir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".quill")
}

// ConfigPath returns the path to the config file
func ConfigPath() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads config from disk, or returns defaults. Environment overrides
// are applied in both cases.
func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads the config at path.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	if err == nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			cfg = DefaultConfig()
		}
	}

	cfg.AutoPopulateFromEnv()
	cfg.normalize()
	return cfg, nil
}

// Save writes config to disk
func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

// SaveTo writes config to path, creating parent directories.
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// AutoPopulateFromEnv applies QUILL_* environment overrides.
func (c *Config) AutoPopulateFromEnv() {
	if v := os.Getenv("QUILL_API_BASE"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("QUILL_TOKEN"); v != "" {
		c.Token = v
	}
	if v := os.Getenv("QUILL_SHARE_BASE"); v != "" {
		c.UI.ShareBase = v
	}
	if v := os.Getenv("QUILL_DEBOUNCE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms >= 0 {
			c.UI.DebounceMs = ms
		}
	}
}

func (c *Config) normalize() {
	def := DefaultConfig()
	if c.API.BaseURL == "" {
		c.API.BaseURL = def.API.BaseURL
	}
	if c.API.TimeoutMs <= 0 {
		c.API.TimeoutMs = def.API.TimeoutMs
	}
	if c.API.Burst <= 0 {
		c.API.Burst = def.API.Burst
	}
	if c.UI.DebounceMs < 0 {
		c.UI.DebounceMs = def.UI.DebounceMs
	}
	if c.UI.StartLocation == "" {
		c.UI.StartLocation = def.UI.StartLocation
	}
}

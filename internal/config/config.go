package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// DefaultAPIBaseURL is used when no backend URL is configured
const DefaultAPIBaseURL = "http://127.0.0.1:8000"

// Config holds all application configuration
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Search  SearchConfig  `mapstructure:"search"`
	Session SessionConfig `mapstructure:"session"`
	Browser BrowserConfig `mapstructure:"browser"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig holds the marketplace backend configuration
type APIConfig struct {
	BaseURL         string `mapstructure:"base_url"`
	SendAccessToken bool   `mapstructure:"send_access_token"` // Attach bearer token when signed in
}

// AuthConfig holds the identity provider configuration
type AuthConfig struct {
	URL     string `mapstructure:"url"`      // e.g. https://<project>.supabase.co
	AnonKey string `mapstructure:"anon_key"` // Public API key
}

// SearchConfig holds the initial search form values
type SearchConfig struct {
	Query   string `mapstructure:"query"`
	Sources string `mapstructure:"sources"`
	Limit   int    `mapstructure:"limit"`
}

// SessionConfig holds persisted-session configuration
type SessionConfig struct {
	File string `mapstructure:"file"` // Empty keeps the session in memory only
}

// BrowserConfig holds the command used to open listing links
type BrowserConfig struct {
	Command string   `mapstructure:"command"` // Empty for system default
	Args    []string `mapstructure:"args"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	File  string `mapstructure:"file"`
	Level string `mapstructure:"level"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:         DefaultAPIBaseURL,
			SendAccessToken: true,
		},
		Search: SearchConfig{
			Query:   "iphone",
			Sources: "kijiji",
			Limit:   20,
		},
		Session: SessionConfig{
			File: filepath.Join(defaultDataPath(), "session.db"),
		},
		Logging: LoggingConfig{
			File:  filepath.Join(defaultDataPath(), "marketly.log"),
			Level: "INFO",
		},
	}
}

// defaultDataPath returns the directory for logs and the session database
func defaultDataPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "marketly")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "marketly")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "marketly")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "marketly")
	}
}

// newViper builds a viper instance seeded with defaults so that environment
// overrides apply to every key, including ones absent from the file.
func newViper(defaults *Config) *viper.Viper {
	v := viper.New()

	v.SetDefault("api.base_url", defaults.API.BaseURL)
	v.SetDefault("api.send_access_token", defaults.API.SendAccessToken)
	v.SetDefault("auth.url", defaults.Auth.URL)
	v.SetDefault("auth.anon_key", defaults.Auth.AnonKey)
	v.SetDefault("search.query", defaults.Search.Query)
	v.SetDefault("search.sources", defaults.Search.Sources)
	v.SetDefault("search.limit", defaults.Search.Limit)
	v.SetDefault("session.file", defaults.Session.File)
	v.SetDefault("browser.command", defaults.Browser.Command)
	v.SetDefault("browser.args", defaults.Browser.Args)
	v.SetDefault("logging.file", defaults.Logging.File)
	v.SetDefault("logging.level", defaults.Logging.Level)

	// MARKETLY_API_BASE_URL -> api.base_url
	v.SetEnvPrefix("MARKETLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// LoadConfig loads configuration from file and environment.
// An explicit path takes precedence over the default search locations.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(defaultConfigPath())
		v.AddConfigPath(".")
	}

	// Read config file if it exists
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	cfg.Normalize()
	return cfg, nil
}

// Normalize fills blank values that must never be empty
func (c *Config) Normalize() {
	c.API.BaseURL = strings.TrimRight(strings.TrimSpace(c.API.BaseURL), "/")
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIBaseURL
	}
	c.Auth.URL = strings.TrimRight(strings.TrimSpace(c.Auth.URL), "/")

	// A path the home directory can't resolve is kept as written
	if p, err := ExpandHome(c.Session.File); err == nil {
		c.Session.File = p
	}
	if p, err := ExpandHome(c.Logging.File); err == nil {
		c.Logging.File = p
	}
}

// ExpandHome replaces a leading ~ in path with the user's home directory
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

// SaveConfig writes cfg as config.yaml in dir, or the default config
// directory when dir is empty. Returns the written file path.
func SaveConfig(cfg *Config, dir string) (string, error) {
	if dir == "" {
		dir = defaultConfigPath()
	}

	// Ensure config directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.send_access_token", cfg.API.SendAccessToken)
	v.Set("auth.url", cfg.Auth.URL)
	v.Set("auth.anon_key", cfg.Auth.AnonKey)
	v.Set("search.query", cfg.Search.Query)
	v.Set("search.sources", cfg.Search.Sources)
	v.Set("search.limit", cfg.Search.Limit)
	v.Set("session.file", cfg.Session.File)
	v.Set("browser.command", cfg.Browser.Command)
	v.Set("browser.args", cfg.Browser.Args)
	v.Set("logging.file", cfg.Logging.File)
	v.Set("logging.level", cfg.Logging.Level)

	configFile := filepath.Join(dir, "config.yaml")
	if err := v.WriteConfigAs(configFile); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configFile, nil
}

// HasAuthProvider returns true if an identity service URL is set
func (c *Config) HasAuthProvider() bool {
	return c.Auth.URL != ""
}


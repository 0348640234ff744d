// Package config loads courtcache configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	apperrors "github.com/kimhsiao/courtcache/internal/errors"
	"github.com/kimhsiao/courtcache/internal/logging"
)

// Environment variables that override file settings.
const (
	EnvDBPath   = "COURTCACHE_DB_PATH"
	EnvFetcher  = "COURTCACHE_FETCHER"
	EnvPort     = "COURTCACHE_PORT"
	EnvLogLevel = "COURTCACHE_LOG_LEVEL"
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Fetcher  FetcherConfig  `yaml:"fetcher"`
	Search   SearchConfig   `yaml:"search"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

// DatabaseConfig holds storage configuration
type DatabaseConfig struct {
	// Path is the SQLite file, or ":memory:".
	Path string `yaml:"path"`
}

// FetcherConfig selects and tunes the external case source
type FetcherConfig struct {
	Mode      string        `yaml:"mode"`
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
	ProbeURLs []string      `yaml:"probe_urls"`
}

// SearchConfig holds lookup tuning
type SearchConfig struct {
	Limit int `yaml:"limit"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 5000,
		},
		Database: DatabaseConfig{
			Path: "courtcache.db",
		},
		Fetcher: FetcherConfig{
			Mode:      "stub",
			Timeout:   30 * time.Second,
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Search: SearchConfig{
			Limit: 10,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file and applies environment overrides.
// A missing file is not an error; an empty path skips the file entirely.
func Load(configPath string) (*Config, error) {
	config := Default()
	if configPath != "" {
		if err := loadFromFile(config, configPath); err != nil {
			return nil, apperrors.Wrap(apperrors.ErrConfig, "failed to load config file", err)
		}
	}
	if err := config.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File doesn't exist, use defaults
		}
		return err
	}

	return yaml.Unmarshal(data, config)
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvDBPath); ok && v != "" {
		c.Database.Path = v
	}
	if v, ok := lookup(EnvFetcher); ok && v != "" {
		c.Fetcher.Mode = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return apperrors.Newf(apperrors.ErrConfig, "%s must be a number, got %q", EnvPort, v)
		}
		c.Server.Port = port
	}
	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return apperrors.Newf(apperrors.ErrConfig, "server.port %d out of range", c.Server.Port)
	}
	if strings.TrimSpace(c.Database.Path) == "" {
		return apperrors.New(apperrors.ErrConfig, "database.path is required")
	}

	c.Fetcher.Mode = strings.ToLower(strings.TrimSpace(c.Fetcher.Mode))
	switch c.Fetcher.Mode {
	case "stub":
	case "http":
		if c.Fetcher.BaseURL == "" {
			return apperrors.New(apperrors.ErrConfig, "fetcher.base_url is required for http mode")
		}
	default:
		return apperrors.Newf(apperrors.ErrConfig, "fetcher.mode must be stub or http, got %q", c.Fetcher.Mode)
	}
	if c.Fetcher.Timeout <= 0 {
		return apperrors.New(apperrors.ErrConfig, "fetcher.timeout must be positive")
	}

	if c.Search.Limit <= 0 || c.Search.Limit > 100 {
		return apperrors.Newf(apperrors.ErrConfig, "search.limit must be between 1 and 100, got %d", c.Search.Limit)
	}

	c.Log.Level = strings.ToLower(strings.TrimSpace(c.Log.Level))
	switch c.Log.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return apperrors.Newf(apperrors.ErrConfig, "log.level %q is not a known level", c.Log.Level)
	}
	return nil
}

// Address returns the server address in host:port format
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}

// LogLevel returns the configured logging level.
func (c *Config) LogLevel() logging.LogLevel {
	return logging.ParseLevel(c.Log.Level)
}

// Package config handles configuration loading for wayfind.
// It supports XDG config paths, project-level overrides, and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/Stefan-Coetzee/wayfind/internal/store"
)

// Config holds all configuration for wayfind.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Graph    GraphConfig    `mapstructure:"graph"`
	Ready    ReadyConfig    `mapstructure:"ready"`
}

// DatabaseConfig holds storage paths.
type DatabaseConfig struct {
	// Path is the main database file; empty means the XDG default.
	Path string `mapstructure:"path"`
	// JournalPath is the audit journal file; empty disables journaling.
	JournalPath string `mapstructure:"journal_path"`
}

// GraphConfig holds graph engine settings.
type GraphConfig struct {
	// Cache enables the blocking-subgraph snapshot cache.
	// Off by default; it is a latency optimization only.
	Cache bool `mapstructure:"cache"`
}

// ReadyConfig holds ready-queue settings.
type ReadyConfig struct {
	// DefaultLimit caps getReadyWork results when the caller passes none.
	DefaultLimit int `mapstructure:"default_limit"`
}

// DatabasePath resolves the configured path, falling back to the XDG default.
func (c *Config) DatabasePath() string {
	if c.Database.Path != "" {
		return c.Database.Path
	}
	return store.GlobalDBPath()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "")
	v.SetDefault("database.journal_path", "")
	v.SetDefault("graph.cache", false)
	v.SetDefault("ready.default_limit", 20)
}

func getUserConfigDir() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, _ := os.UserHomeDir()
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "wayfind")
}

// findProjectConfig looks for .wayfind.yaml in the current directory or parents.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ".wayfind.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// Load loads configuration from XDG paths, project overrides, and environment variables.
// Precedence (highest to lowest):
// 1. Environment variables (WAYFIND_*)
// 2. Project config (.wayfind.yaml in current directory or parent)
// 3. User config (~/.config/wayfind/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Load user config from XDG path
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	// Load project config if present
	projectConfig := findProjectConfig()
	if projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			// Merge project config (takes precedence)
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	// Environment variable overrides (WAYFIND_DATABASE_PATH etc.)
	v.SetEnvPrefix("WAYFIND")
	v.AutomaticEnv()
	v.BindEnv("database.path", "WAYFIND_DATABASE_PATH")
	v.BindEnv("database.journal_path", "WAYFIND_JOURNAL_PATH")
	v.BindEnv("graph.cache", "WAYFIND_GRAPH_CACHE")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific path (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

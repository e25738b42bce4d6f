// Package config loads exmap settings from a YAML file, the environment,
// and built-in defaults. Precedence, lowest to highest: defaults, config
// file, EXMAP_* environment variables. Command-line flags override on top
// at the call sites that have them.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	Scan    ScanConfig    `mapstructure:"scan" yaml:"scan"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Context ContextConfig `mapstructure:"context" yaml:"context"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// ScanConfig controls repository discovery and parsing.
type ScanConfig struct {
	Extensions  []string `mapstructure:"extensions" yaml:"extensions"`
	IgnoreGlobs []string `mapstructure:"ignore_globs" yaml:"ignore_globs"`
	Concurrency int      `mapstructure:"concurrency" yaml:"concurrency"`
	MaxFileSize int64    `mapstructure:"max_file_size" yaml:"max_file_size"`
}

// CacheConfig controls the in-memory bundle cache.
type CacheConfig struct {
	TTL           time.Duration `mapstructure:"ttl" yaml:"ttl"`
	MaxEntries    int           `mapstructure:"max_entries" yaml:"max_entries"`
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval"`
}

// StoreConfig controls the optional persistent bundle store.
type StoreConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ContextConfig controls context rendering.
type ContextConfig struct {
	TokenLimit int `mapstructure:"token_limit" yaml:"token_limit"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Load reads configuration. With an explicit path the file must exist;
// otherwise exmap.yaml is searched in the working directory and ~/.exmap,
// and running without any file is fine.
func Load(explicitPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
	} else {
		v.SetConfigName("exmap")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".exmap"))
		}
	}

	v.SetEnvPrefix("EXMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicitPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// No file found anywhere; defaults and environment still apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scan.extensions", []string{".ex", ".exs"})
	v.SetDefault("scan.ignore_globs", []string{})
	v.SetDefault("scan.concurrency", 0)
	v.SetDefault("scan.max_file_size", int64(1<<20))
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cache.max_entries", 64)
	v.SetDefault("cache.sweep_interval", "15m")
	v.SetDefault("store.enabled", false)
	v.SetDefault("store.path", "")
	v.SetDefault("context.token_limit", 4000)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Save writes the configuration as YAML, creating parent directories as
// needed.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// DefaultStorePath is where the bundle store lives when store.path is not
// set: ~/.exmap/exmap.db.
func DefaultStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".exmap", "exmap.db"), nil
}

// Package config loads settings from an optional YAML file and TOPO_*
// environment variables. Environment values win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables recognised by Load.
const (
	EnvConfigFile    = "TOPO_CONFIG"
	EnvColor         = "TOPO_COLOR"
	EnvLogLevel      = "TOPO_LOG_LEVEL"
	EnvLogFile       = "TOPO_LOG_FILE"
	EnvLogMaxSize    = "TOPO_LOG_MAX_SIZE"
	EnvLogMaxBackups = "TOPO_LOG_MAX_BACKUPS"
	EnvListen        = "TOPO_LISTEN"
	EnvPollInterval  = "TOPO_POLL_INTERVAL"
)

type Config struct {
	// Color is one of auto, always or never.
	Color  string       `yaml:"color"`
	Log    LogConfig    `yaml:"log"`
	Server ServerConfig `yaml:"server"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type ServerConfig struct {
	Listen       string        `yaml:"listen"`
	PollInterval time.Duration `yaml:"poll_interval"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Color: "auto",
		Log: LogConfig{
			Level:      "warn",
			MaxSizeMB:  1,
			MaxBackups: 2,
			MaxAgeDays: 30,
		},
		Server: ServerConfig{
			Listen:       ":8080",
			PollInterval: 5 * time.Second,
		},
	}
}

// Load builds the configuration from the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom builds the configuration using getenv for lookups. The file named by
// TOPO_CONFIG, if any, must exist.
func LoadFrom(getenv func(string) string) (Config, error) {
	cfg := Default()

	if path := getenv(EnvConfigFile); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvColor); v != "" {
		cfg.Color = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := getenv(EnvLogFile); v != "" {
		cfg.Log.File = v
	}
	if v := getenv(EnvLogMaxSize); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLogMaxSize, err)
		}
		cfg.Log.MaxSizeMB = n
	}
	if v := getenv(EnvLogMaxBackups); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvLogMaxBackups, err)
		}
		cfg.Log.MaxBackups = n
	}
	if v := getenv(EnvListen); v != "" {
		cfg.Server.Listen = v
	}
	if v := getenv(EnvPollInterval); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvPollInterval, err)
		}
		cfg.Server.PollInterval = d
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Color {
	case "auto", "always", "never":
	default:
		return fmt.Errorf("invalid color mode %q (want auto, always or never)", c.Color)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	if c.Log.MaxSizeMB <= 0 {
		return errors.New("log max size must be positive")
	}
	if c.Log.MaxBackups < 0 {
		return errors.New("log max backups must not be negative")
	}
	if c.Server.PollInterval <= 0 {
		return errors.New("poll interval must be positive")
	}
	return nil
}

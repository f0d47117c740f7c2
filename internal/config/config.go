// Package config handles the XDG configuration directory and API settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "taskflow"

	// StateFile is the SQLite database holding durable client storage.
	StateFile = "state.db"

	// ConfigFile is the optional settings file inside the config directory.
	ConfigFile = "config.yaml"

	// EnvPrefix prefixes every environment override (TASKFLOW_API_URL, ...).
	EnvPrefix = "TASKFLOW"

	// DefaultBaseURL is used when no base URL is configured anywhere.
	DefaultBaseURL = "http://localhost:4000"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// BaseURL is the remote API origin, without the /api/v1 suffix.
	BaseURL string

	// Timeout bounds each API call. Zero leaves the transport default.
	Timeout time.Duration

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool
}

// New creates a Config with the default or specified config directory and
// the default base URL. It reads nothing from disk.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir, BaseURL: DefaultBaseURL}, nil
}

// Load builds a Config for a command invocation.
// Precedence for the base URL: apiFlag, TASKFLOW_API_URL (a .env file in the
// working directory is loaded first and never overrides the real environment),
// api_url in config.yaml, DefaultBaseURL.
func Load(configDir, apiFlag string) (*Config, error) {
	_ = godotenv.Load() // .env is optional

	if configDir == "" {
		configDir = os.Getenv(EnvPrefix + "_CONFIG_DIR")
	}
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(cfg.Dir, ConfigFile))
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetDefault("api_url", DefaultBaseURL)
	v.SetDefault("timeout", "0s")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	}

	base := apiFlag
	if base == "" {
		base = v.GetString("api_url")
	}
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("invalid api url: %s", base)
	}
	cfg.BaseURL = base
	cfg.Timeout = v.GetDuration("timeout")
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// StatePath returns the path to the durable storage database.
func (c *Config) StatePath() string {
	return filepath.Join(c.Dir, StateFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

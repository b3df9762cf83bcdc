package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/brk3/habitboard/internal/logger"
	"github.com/joho/godotenv"
	"go.yaml.in/yaml/v4"
)

const defaultConfigPath = "config.yaml"

type Config struct {
	ListenAddr    string               `yaml:"listen_addr"`
	APIBaseURL    string               `yaml:"api_base_url"`
	LogLevel      string               `yaml:"log_level"`
	LogFormat     string               `yaml:"log_format"`
	Storage       StorageConfig        `yaml:"storage"`
	AuthEnabled   bool                 `yaml:"auth_enabled"`
	DefaultUserID string               `yaml:"default_user_id"`
	Session       SessionConfig        `yaml:"session"`
	OIDCProviders []OIDCProviderConfig `yaml:"oidc_providers"`
	Nudge         NudgeConfig          `yaml:"nudge"`

	// Client side settings used by the CLI.
	AuthToken string `yaml:"auth_token"`
	UserID    string `yaml:"user_id"`
}

type StorageConfig struct {
	Driver string `yaml:"driver"`
	Path   string `yaml:"path"`
}

// SessionConfig holds hex encoded securecookie keys. Random keys are
// generated at startup when empty, which logs everyone out on restart.
type SessionConfig struct {
	HashKey  string `yaml:"hash_key"`
	BlockKey string `yaml:"block_key"`
}

type OIDCProviderConfig struct {
	Id           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	IssuerURL    string   `yaml:"issuer_url"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`
}

type NudgeConfig struct {
	ResendAPIKey   string `yaml:"resend_api_key"`
	Email          string `yaml:"email"`
	From           string `yaml:"from"`
	ThresholdHours int    `yaml:"threshold_hours"`
}

func Default() Config {
	return Config{
		ListenAddr:    ":4000",
		APIBaseURL:    "http://localhost:4000",
		LogLevel:      "info",
		LogFormat:     "text",
		Storage:       StorageConfig{Driver: "bolt", Path: "habits.db"},
		DefaultUserID: "demo-user",
		Nudge: NudgeConfig{
			From:           "onboarding@resend.dev",
			ThresholdHours: 4,
		},
	}
}

// Load reads .env (if present), then the YAML file named by HABITS_CONFIG
// (default config.yaml), then environment overrides. An explicitly named
// config file must exist; a missing default file yields defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()

	path := os.Getenv("HABITS_CONFIG")
	explicit := path != ""
	if !explicit {
		path = defaultConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		logger.Debug("No config file found, using defaults", "path", path)
	default:
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	setenv(&c.ListenAddr, "HABITS_LISTEN_ADDR")
	if port := os.Getenv("PORT"); port != "" {
		c.ListenAddr = ":" + port
	}
	setenv(&c.APIBaseURL, "HABITS_API_BASE")
	setenv(&c.Storage.Path, "HABITS_DB_PATH")
	setenv(&c.Storage.Driver, "HABITS_DB_DRIVER")
	setenv(&c.AuthToken, "HABITS_AUTH_TOKEN")
	setenv(&c.UserID, "HABITS_USER_ID")
	setenv(&c.LogLevel, "HABITS_LOG_LEVEL")
	setenv(&c.Nudge.ResendAPIKey, "HABITS_RESEND_API_KEY")
	setenv(&c.Nudge.Email, "HABITS_NOTIFY_EMAIL")

	if v := os.Getenv("HABITS_NUDGE_THRESHOLD"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HABITS_NUDGE_THRESHOLD must be a valid integer: %w", err)
		}
		c.Nudge.ThresholdHours = n
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "bolt", "sqlite":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage path is required")
	}
	if _, err := logger.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.Nudge.ThresholdHours < 0 || c.Nudge.ThresholdHours > 24 {
		return fmt.Errorf("nudge threshold must be 0-24 hours")
	}
	for _, p := range c.OIDCProviders {
		if p.Id == "" || p.IssuerURL == "" {
			return fmt.Errorf("oidc provider requires id and issuer_url")
		}
	}
	return nil
}

func setenv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

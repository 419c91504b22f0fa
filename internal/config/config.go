// Package config loads daemon configuration from a JSON file or, as a
// fallback, from DESKRELAY_-prefixed environment variables.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config is the top-level deskrelay configuration.
type Config struct {
	Engine     EngineConfig    `json:"engine"`
	API        APIConfig       `json:"api"`
	Connectors ConnectorConfig `json:"connectors"`
	Sweep      SweepConfig     `json:"sweep"`
	Log        LogConfig       `json:"log"`
}

// EngineConfig holds settings for the conversation engine and its store.
type EngineConfig struct {
	DataDir           string `json:"data_dir"`
	DBPath            string `json:"db_path,omitempty"`
	DefaultCustomerID int64  `json:"default_customer_id,omitempty"`
	Seed              bool   `json:"seed,omitempty"`
}

// APIConfig holds REST API server settings.
type APIConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
	Key  string `json:"api_key"`
}

// ConnectorConfig holds settings for external chat connectors.
type ConnectorConfig struct {
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Slack    *SlackConfig    `json:"slack,omitempty"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token     string  `json:"token"`
	AllowFrom []int64 `json:"allow_from,omitempty"`
}

// SlackConfig holds Slack socket-mode settings.
type SlackConfig struct {
	BotToken string   `json:"bot_token"`
	AppToken string   `json:"app_token"`
	Channels []string `json:"channels,omitempty"`
}

// SweepConfig holds settings for the stale-ticket escalation sweep.
type SweepConfig struct {
	Schedule  string `json:"schedule,omitempty"`    // cron expression, default hourly
	MaxAgeHrs int    `json:"max_age_hrs,omitempty"` // open tickets older than this get escalated
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level      string `json:"level,omitempty"` // debug, info, warn, error
	BufferSize int    `json:"buffer_size,omitempty"`
}

// DatabasePath returns the configured database path, defaulting to
// deskrelay.db inside the data dir.
func (e EngineConfig) DatabasePath() string {
	if e.DBPath != "" {
		return e.DBPath
	}
	return e.DataDir + "/deskrelay.db"
}

// Load reads configuration from a JSON file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromEnv builds a config from DESKRELAY_-prefixed environment
// variables. Used when no config file is given.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Engine: EngineConfig{
			DataDir:           getenv("DESKRELAY_DATA_DIR", "/data"),
			DBPath:            os.Getenv("DESKRELAY_DB_PATH"),
			DefaultCustomerID: int64(getenvInt("DESKRELAY_DEFAULT_CUSTOMER_ID", 5)),
			Seed:              os.Getenv("DESKRELAY_SEED") == "true",
		},
		API: APIConfig{
			Host: getenv("DESKRELAY_API_HOST", "0.0.0.0"),
			Port: getenvInt("DESKRELAY_API_PORT", 8080),
			Key:  os.Getenv("DESKRELAY_API_KEY"),
		},
		Sweep: SweepConfig{
			Schedule:  os.Getenv("DESKRELAY_SWEEP_SCHEDULE"),
			MaxAgeHrs: getenvInt("DESKRELAY_SWEEP_MAX_AGE_HRS", 0),
		},
		Log: LogConfig{
			Level: os.Getenv("DESKRELAY_LOG_LEVEL"),
		},
	}

	if token := os.Getenv("DESKRELAY_TELEGRAM_TOKEN"); token != "" {
		cfg.Connectors.Telegram = &TelegramConfig{Token: token}
		if ids := os.Getenv("DESKRELAY_TELEGRAM_ALLOW_FROM"); ids != "" {
			parsed, err := parseInt64List(ids)
			if err != nil {
				return nil, fmt.Errorf("config: DESKRELAY_TELEGRAM_ALLOW_FROM: %w", err)
			}
			cfg.Connectors.Telegram.AllowFrom = parsed
		}
	}

	if botToken := os.Getenv("DESKRELAY_SLACK_BOT_TOKEN"); botToken != "" {
		cfg.Connectors.Slack = &SlackConfig{
			BotToken: botToken,
			AppToken: os.Getenv("DESKRELAY_SLACK_APP_TOKEN"),
		}
		if chans := os.Getenv("DESKRELAY_SLACK_CHANNELS"); chans != "" {
			cfg.Connectors.Slack.Channels = splitList(chans)
		}
	}

	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Engine.DefaultCustomerID == 0 {
		cfg.Engine.DefaultCustomerID = 5
	}
	if cfg.API.Host == "" {
		cfg.API.Host = "0.0.0.0"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.Sweep.Schedule == "" {
		cfg.Sweep.Schedule = "@hourly"
	}
	if cfg.Sweep.MaxAgeHrs == 0 {
		cfg.Sweep.MaxAgeHrs = 72
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.BufferSize == 0 {
		cfg.Log.BufferSize = 1000
	}
}

// Validate checks for required fields.
func (c *Config) Validate() error {
	var errs []string

	if c.Engine.DataDir == "" && c.Engine.DBPath == "" {
		errs = append(errs, "engine.data_dir or engine.db_path is required")
	}
	if c.Engine.DefaultCustomerID < 0 {
		errs = append(errs, "engine.default_customer_id must not be negative")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.Connectors.Telegram != nil && c.Connectors.Telegram.Token == "" {
		errs = append(errs, "connectors.telegram.token is required")
	}
	if c.Connectors.Slack != nil {
		if c.Connectors.Slack.BotToken == "" {
			errs = append(errs, "connectors.slack.bot_token is required")
		}
		if c.Connectors.Slack.AppToken == "" {
			errs = append(errs, "connectors.slack.app_token is required")
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q is not one of debug, info, warn, error", c.Log.Level))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt64List(s string) ([]int64, error) {
	var out []int64
	for _, p := range splitList(s) {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}

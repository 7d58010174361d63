package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Poll     PollConfig     `yaml:"poll"`
	Market   MarketConfig   `yaml:"market"`
	Web      WebConfig      `yaml:"web"`
	Storage  StorageConfig  `yaml:"storage"`
	Telegram TelegramConfig `yaml:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"`
	Feed     FeedConfig     `yaml:"feed"`
}

type SourceConfig struct {
	URL            string `yaml:"url"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type PollConfig struct {
	Interval      string `yaml:"interval"`
	FallbackDelay string `yaml:"fallback_delay"`
	EmptyPolicy   string `yaml:"empty_policy"` // keep or clear
	Highlight     string `yaml:"highlight"`    // tag or tag_or_magnitude
}

type MarketConfig struct {
	Timezone string `yaml:"timezone"`
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type StorageConfig struct {
	Enabled       bool   `yaml:"enabled"`
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

type TelegramConfig struct {
	Enabled  bool   `yaml:"enabled"`
	BotToken string `yaml:"bot_token"`
	ChatID   int64  `yaml:"chat_id"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// FeedConfig is read by cmd/changes-server only.
type FeedConfig struct {
	CSVPath string `yaml:"csv_path"`
	Port    int    `yaml:"port"`
}

const (
	EmptyKeep  = "keep"
	EmptyClear = "clear"

	HighlightTag            = "tag"
	HighlightTagOrMagnitude = "tag_or_magnitude"
)

// Load reads the YAML file at path (an empty path means defaults only),
// then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// .env is optional
	_ = godotenv.Load()
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, fmt.Errorf("env overrides: %w", err)
	}

	setDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PANKOU_SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("PANKOU_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PANKOU_WEB_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PANKOU_WEB_PORT %q: %w", v, err)
		}
		cfg.Web.Port = port
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TELEGRAM_CHAT_ID %q: %w", v, err)
		}
		cfg.Telegram.ChatID = id
	}
	return nil
}

func setDefaults(cfg *Config) {
	if cfg.Source.URL == "" {
		cfg.Source.URL = "http://localhost:61125/api/changes/json"
	}
	if cfg.Source.TimeoutSeconds == 0 {
		cfg.Source.TimeoutSeconds = 10
	}
	if cfg.Poll.Interval == "" {
		cfg.Poll.Interval = "2s"
	}
	if cfg.Poll.FallbackDelay == "" {
		cfg.Poll.FallbackDelay = "1m"
	}
	if cfg.Poll.EmptyPolicy == "" {
		cfg.Poll.EmptyPolicy = EmptyKeep
	}
	if cfg.Poll.Highlight == "" {
		cfg.Poll.Highlight = HighlightTag
	}
	if cfg.Market.Timezone == "" {
		cfg.Market.Timezone = "Asia/Shanghai"
	}
	if cfg.Web.Port == 0 {
		cfg.Web.Port = 8080
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = "data/pankou.db"
	}
	if cfg.Storage.RetentionDays == 0 {
		cfg.Storage.RetentionDays = 7
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Feed.CSVPath == "" {
		cfg.Feed.CSVPath = "static/changes.csv"
	}
	if cfg.Feed.Port == 0 {
		cfg.Feed.Port = 61125
	}
}

func (c *Config) Validate() error {
	var errs []error

	if d, err := time.ParseDuration(c.Poll.Interval); err != nil {
		errs = append(errs, fmt.Errorf("invalid poll.interval %q: %w", c.Poll.Interval, err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("poll.interval must be positive, got %s", d))
	}
	if d, err := time.ParseDuration(c.Poll.FallbackDelay); err != nil {
		errs = append(errs, fmt.Errorf("invalid poll.fallback_delay %q: %w", c.Poll.FallbackDelay, err))
	} else if d <= 0 {
		errs = append(errs, fmt.Errorf("poll.fallback_delay must be positive, got %s", d))
	}
	switch c.Poll.EmptyPolicy {
	case EmptyKeep, EmptyClear:
	default:
		errs = append(errs, fmt.Errorf("poll.empty_policy must be %q or %q, got %q", EmptyKeep, EmptyClear, c.Poll.EmptyPolicy))
	}
	switch c.Poll.Highlight {
	case HighlightTag, HighlightTagOrMagnitude:
	default:
		errs = append(errs, fmt.Errorf("poll.highlight must be %q or %q, got %q", HighlightTag, HighlightTagOrMagnitude, c.Poll.Highlight))
	}
	if c.Source.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("source.timeout_seconds must not be negative"))
	}
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			errs = append(errs, fmt.Errorf("telegram.bot_token is required when telegram is enabled"))
		}
		if c.Telegram.ChatID == 0 {
			errs = append(errs, fmt.Errorf("telegram.chat_id is required when telegram is enabled"))
		}
	}

	return errors.Join(errs...)
}

// ExchangeLocation falls back to a fixed UTC+8 zone when tzdata is missing.
func (c *Config) ExchangeLocation() *time.Location {
	loc, err := time.LoadLocation(c.Market.Timezone)
	if err != nil {
		loc = time.FixedZone("CST", 8*60*60)
	}
	return loc
}

func (c *Config) PollInterval() time.Duration {
	d, _ := time.ParseDuration(c.Poll.Interval)
	return d
}

func (c *Config) FallbackDelay() time.Duration {
	d, _ := time.ParseDuration(c.Poll.FallbackDelay)
	return d
}

func (c *Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.Storage.RetentionDays) * 24 * time.Hour
}

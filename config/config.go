package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

type Config struct {
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	TelegramToken   string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	OwnerTelegramID int64  `mapstructure:"OWNER_TELEGRAM_ID"`
	WebhookURL      string `mapstructure:"WEBHOOK_URL"`
	ServerPort      string `mapstructure:"SERVER_PORT"`

	SalonName    string `mapstructure:"SALON_NAME"`
	SalonAddress string `mapstructure:"SALON_ADDRESS"`

	DatabasePath string         `mapstructure:"DATABASE_PATH"`
	TimezoneName string         `mapstructure:"TIMEZONE"`
	Timezone     *time.Location `mapstructure:"-"`

	// Slot search
	BusinessOpen    string `mapstructure:"BUSINESS_OPEN"`
	BusinessClose   string `mapstructure:"BUSINESS_CLOSE"`
	SlotStepMinutes int    `mapstructure:"SLOT_STEP_MINUTES"`
	SuggestionCount int    `mapstructure:"SUGGESTION_COUNT"`

	// Jobs
	MorningTime           string `mapstructure:"MORNING_TIME"`
	ReminderBeforeMinutes int    `mapstructure:"REMINDER_BEFORE_MINUTES"`

	// Admin REST API (Basic auth); disabled when empty
	APIUsername string `mapstructure:"API_USERNAME"`
	APIPassword string `mapstructure:"API_PASSWORD"`

	TwilioEnabled bool `mapstructure:"TWILIO_ENABLED"`

	// Chat history; disabled when RedisAddr is empty
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int    `mapstructure:"REDIS_DB"`
	HistoryMaxMessages int    `mapstructure:"HISTORY_MAX_MESSAGES"`

	// CalDAV calendar push; disabled without credentials
	CalDAVURL      string `mapstructure:"CALDAV_URL"`
	CalDAVUsername string `mapstructure:"CALDAV_USERNAME"`
	CalDAVPassword string `mapstructure:"CALDAV_PASSWORD"`
	CalDAVCalendar string `mapstructure:"CALDAV_CALENDAR"`

	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`
}

var defaults = map[string]any{
	"ENV":                     "development",
	"LOG_LEVEL":               "info",
	"TELEGRAM_BOT_TOKEN":      "",
	"OWNER_TELEGRAM_ID":       0,
	"WEBHOOK_URL":             "http://localhost:8080",
	"SERVER_PORT":             "8080",
	"SALON_NAME":              "Oliva",
	"SALON_ADDRESS":           "",
	"DATABASE_PATH":           "./data/oliva.db",
	"TIMEZONE":                "America/Mexico_City",
	"BUSINESS_OPEN":           "09:00",
	"BUSINESS_CLOSE":          "20:00",
	"SLOT_STEP_MINUTES":       30,
	"SUGGESTION_COUNT":        3,
	"MORNING_TIME":            "08:00",
	"REMINDER_BEFORE_MINUTES": 120,
	"API_USERNAME":            "",
	"API_PASSWORD":            "",
	"TWILIO_ENABLED":          false,
	"REDIS_ADDR":              "",
	"REDIS_PASSWORD":          "",
	"REDIS_DB":                0,
	"HISTORY_MAX_MESSAGES":    50,
	"CALDAV_URL":              "https://caldav.icloud.com",
	"CALDAV_USERNAME":         "",
	"CALDAV_PASSWORD":         "",
	"CALDAV_CALENDAR":         "",
	"RATE_LIMIT_PER_MINUTE":   20,
}

// Load reads configuration from the environment and an optional config file.
// With path empty, oliva.yaml is looked up in . and ./config and may be absent.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("oliva")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values and resolves the timezone
func (c *Config) Validate() error {
	tz, err := time.LoadLocation(c.TimezoneName)
	if err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}
	c.Timezone = tz

	open, err := time.Parse("15:04", c.BusinessOpen)
	if err != nil {
		return fmt.Errorf("invalid BUSINESS_OPEN %q: %w", c.BusinessOpen, err)
	}
	closing, err := time.Parse("15:04", c.BusinessClose)
	if err != nil {
		return fmt.Errorf("invalid BUSINESS_CLOSE %q: %w", c.BusinessClose, err)
	}
	if !open.Before(closing) {
		return fmt.Errorf("BUSINESS_OPEN %s must be before BUSINESS_CLOSE %s", c.BusinessOpen, c.BusinessClose)
	}
	if _, err := time.Parse("15:04", c.MorningTime); err != nil {
		return fmt.Errorf("invalid MORNING_TIME %q: %w", c.MorningTime, err)
	}

	if c.SlotStepMinutes <= 0 {
		return fmt.Errorf("SLOT_STEP_MINUTES must be positive")
	}
	if c.SuggestionCount <= 0 {
		return fmt.Errorf("SUGGESTION_COUNT must be positive")
	}
	if c.ReminderBeforeMinutes < 0 {
		return fmt.Errorf("REMINDER_BEFORE_MINUTES must not be negative")
	}

	c.WebhookURL = strings.TrimRight(c.WebhookURL, "/")
	return nil
}

// RequireTelegram reports a missing bot token; only serve needs it
func (c *Config) RequireTelegram() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func (c *Config) IsOwner(telegramID int64) bool {
	return c.OwnerTelegramID != 0 && telegramID == c.OwnerTelegramID
}

func (c *Config) SlotStep() time.Duration {
	return time.Duration(c.SlotStepMinutes) * time.Minute
}

func (c *Config) ReminderLead() time.Duration {
	return time.Duration(c.ReminderBeforeMinutes) * time.Minute
}

func (c *Config) APIEnabled() bool {
	return c.APIUsername != "" && c.APIPassword != ""
}

func (c *Config) HistoryEnabled() bool {
	return c.RedisAddr != ""
}

func (c *Config) CalDAVEnabled() bool {
	return c.CalDAVUsername != "" && c.CalDAVPassword != ""
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings for the tokenkeeper CLI.
//
// BearerToken is only ever read from the environment; it is never written
// to a config file.
type Config struct {
	ServerBaseURL       string        `env:"TOKENKEEPER_SERVER_URL" validate:"required,url"`
	StatusPollInterval  time.Duration `env:"TOKENKEEPER_POLL_INTERVAL" validate:"min=1s"`
	RequestTimeout      time.Duration `env:"TOKENKEEPER_REQUEST_TIMEOUT" validate:"min=1s"`
	RefreshThreshold    time.Duration `env:"TOKENKEEPER_REFRESH_THRESHOLD" validate:"min=1m"`
	OTPAdvisoryWindow   time.Duration `env:"TOKENKEEPER_OTP_WINDOW" validate:"min=1s"`
	OnlineCheckInterval time.Duration `env:"TOKENKEEPER_ONLINE_CHECK_INTERVAL" validate:"min=1s"`
	DatabasePath        string        `env:"TOKENKEEPER_DB" validate:"required"`
	LogLevel            string        `env:"TOKENKEEPER_LOG_LEVEL" validate:"oneof=debug info warn error"`
	LogFile             string        `env:"TOKENKEEPER_LOG_FILE"`
	Timezone            string        `env:"TOKENKEEPER_TIMEZONE"`
	BearerToken         string        `env:"TOKENKEEPER_BEARER_TOKEN"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8080/api"
	c.StatusPollInterval = 60 * time.Second
	c.RequestTimeout = 30 * time.Second
	c.RefreshThreshold = 2 * time.Hour
	c.OTPAdvisoryWindow = 5 * time.Minute
	c.OnlineCheckInterval = 10 * time.Second
	c.DatabasePath = "tokenkeeper.db"
	c.LogLevel = "info"
}

// Location resolves Timezone; empty means the local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints after all layers are applied.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadConfig builds a Config from os.Args. See LoadConfigFrom.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(os.Args[1:])
}

// LoadConfigFrom applies defaults, then the JSON file named by -c/-config,
// then TOKENKEEPER_* environment variables, then flags. Later sources take
// precedence over earlier ones.
func LoadConfigFrom(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	APIURL      string        `mapstructure:"API_URL"`
	WSURL       string        `mapstructure:"WS_URL"`
	APIToken    string        `mapstructure:"API_TOKEN"`
	HTTPTimeout time.Duration `mapstructure:"HTTP_TIMEOUT"`
	PerPage     int           `mapstructure:"PER_PAGE"`
	DebounceMS  int           `mapstructure:"DEBOUNCE_MS"`
	LogLevel    string        `mapstructure:"LOG_LEVEL"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("API_URL", "http://localhost:3000/api")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("PER_PAGE", 10)
	v.SetDefault("DEBOUNCE_MS", 200)
	v.SetDefault("LOG_LEVEL", "info")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("API_URL")
	v.BindEnv("WS_URL")
	v.BindEnv("API_TOKEN")
	v.BindEnv("HTTP_TIMEOUT")
	v.BindEnv("PER_PAGE")
	v.BindEnv("DEBOUNCE_MS")
	v.BindEnv("LOG_LEVEL")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Debounce returns the quiet window for free-text search commits.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// Validate checks that the configuration is usable. The websocket URL is
// optional: without it the live update bridge stays disconnected and
// views synchronize by reload only.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("API_URL is required")
	}
	u, err := url.Parse(c.APIURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API_URL must be an absolute URL, got %q", c.APIURL)
	}
	if c.WSURL != "" {
		wu, err := url.Parse(c.WSURL)
		if err != nil || wu.Scheme == "" {
			return fmt.Errorf("WS_URL must be an absolute URL, got %q", c.WSURL)
		}
	}
	if c.PerPage <= 0 {
		return fmt.Errorf("PER_PAGE must be positive, got %d", c.PerPage)
	}
	if c.DebounceMS <= 0 {
		return fmt.Errorf("DEBOUNCE_MS must be positive, got %d", c.DebounceMS)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.HTTPTimeout)
	}
	return nil
}

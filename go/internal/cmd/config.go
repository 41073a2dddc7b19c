package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fidan-app/focus-server/go/internal/focus"
)

// Config is the optional yaml configuration file. Every field falls back to
// the reference defaults when omitted.
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Session struct {
		DefaultDurationMS  int64 `yaml:"default_duration_ms"`
		MaxParticipants    int   `yaml:"max_participants"`
		TickIntervalMS     int64 `yaml:"tick_interval_ms"`
		GracePeriodMS      int64 `yaml:"grace_period_ms"`
		InactivityMaxAgeMS int64 `yaml:"inactivity_max_age_ms"`
		SweepIntervalMS    int64 `yaml:"sweep_interval_ms"`
	} `yaml:"session"`
}

func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// sessionConfig merges the file values onto the focus defaults.
func (c *Config) sessionConfig() focus.Config {
	cfg := focus.DefaultConfig()
	if c == nil {
		return cfg
	}
	if c.Session.DefaultDurationMS > 0 {
		cfg.DefaultDuration = time.Duration(c.Session.DefaultDurationMS) * time.Millisecond
	}
	if c.Session.MaxParticipants > 0 {
		cfg.MaxParticipants = c.Session.MaxParticipants
	}
	if c.Session.TickIntervalMS > 0 {
		cfg.TickInterval = time.Duration(c.Session.TickIntervalMS) * time.Millisecond
	}
	if c.Session.GracePeriodMS > 0 {
		cfg.GracePeriod = time.Duration(c.Session.GracePeriodMS) * time.Millisecond
	}
	if c.Session.InactivityMaxAgeMS > 0 {
		cfg.InactivityMaxAge = time.Duration(c.Session.InactivityMaxAgeMS) * time.Millisecond
	}
	if c.Session.SweepIntervalMS > 0 {
		cfg.SweepInterval = time.Duration(c.Session.SweepIntervalMS) * time.Millisecond
	}
	return cfg
}

// port resolves the listen port: env PORT wins, then the config file, then
// the default.
func (c *Config) port() string {
	if v := os.Getenv("PORT"); v != "" {
		return v
	}
	if c != nil && c.Server.Port != "" {
		return c.Server.Port
	}
	return "3000"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

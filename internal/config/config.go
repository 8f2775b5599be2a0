package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// Config keeps runtime settings for the bot.
type Config struct {
	TelegramToken  string
	DatabaseURL    string
	Timezone       string
	Location       *time.Location
	ReminderTime   string
	ReportInterval time.Duration
	SweepInterval  time.Duration
	MetricsAddr    string
}

// fileConfig mirrors the optional YAML file named by CONFIG_FILE.
type fileConfig struct {
	TelegramToken       string `yaml:"telegram_token"`
	DatabaseURL         string `yaml:"database_url"`
	Timezone            string `yaml:"timezone"`
	ReminderTime        string `yaml:"reminder_time"`
	ReportIntervalHours int    `yaml:"report_interval_hours"`
	TimerSweepSeconds   int    `yaml:"timer_sweep_seconds"`
	MetricsAddr         string `yaml:"metrics_addr"`
}

// Load reads configuration from environment variables with sane defaults.
// Values from the YAML file named by CONFIG_FILE apply first; env wins.
func Load() (Config, error) {
	return LoadFrom(os.Getenv)
}

// LoadFrom is Load with an injectable environment lookup.
func LoadFrom(getenv func(string) string) (Config, error) {
	env := func(key string) string { return strings.TrimSpace(getenv(key)) }

	var file fileConfig
	if path := env("CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg := Config{
		TelegramToken:  firstNonEmpty(env("TELEGRAM_TOKEN"), file.TelegramToken),
		DatabaseURL:    firstNonEmpty(env("DATABASE_URL"), file.DatabaseURL),
		Timezone:       firstNonEmpty(env("TIMEZONE"), file.Timezone),
		ReminderTime:   firstNonEmpty(env("REMINDER_TIME"), file.ReminderTime),
		ReportInterval: parseInterval(env("REPORT_INTERVAL_HOURS"), "h"),
		SweepInterval:  parseInterval(env("TIMER_SWEEP_SECONDS"), "s"),
		MetricsAddr:    firstNonEmpty(env("METRICS_ADDR"), file.MetricsAddr),
	}

	if cfg.ReportInterval == 0 && file.ReportIntervalHours > 0 {
		cfg.ReportInterval = time.Duration(file.ReportIntervalHours) * time.Hour
	}
	if cfg.SweepInterval == 0 && file.TimerSweepSeconds > 0 {
		cfg.SweepInterval = time.Duration(file.TimerSweepSeconds) * time.Second
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "task_tamer.db"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}
	if cfg.ReminderTime == "" {
		cfg.ReminderTime = "09:00"
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = 15 * time.Second
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return cfg, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	if cfg.TelegramToken == "" {
		return cfg, errors.New("TELEGRAM_TOKEN is required")
	}

	return cfg, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// parseInterval turns a positive integer with the given unit into a duration.
// Zero means "not set".
func parseInterval(raw, unit string) time.Duration {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0
	}
	d, err := time.ParseDuration(strconv.Itoa(n) + unit)
	if err != nil {
		return 0
	}
	return d
}

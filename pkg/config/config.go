// Package config loads service configuration from an optional .env file, an optional YAML file
// and the environment, in that order of increasing precedence.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// HTTP server
	Port string `yaml:"port"`

	// Database
	DBPath        string        `yaml:"db_path"`
	DBBusyTimeout time.Duration `yaml:"db_busy_timeout"`

	// Ledger events; empty URL disables publishing
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Installments
	UpcomingDefaultDays  int           `yaml:"upcoming_default_days"`
	OverdueSweepInterval time.Duration `yaml:"overdue_sweep_interval"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Port:                 "8080",
		DBPath:               "./data/ledger.db",
		DBBusyTimeout:        5 * time.Second,
		AMQPExchange:         "ledger",
		LogLevel:             "info",
		LogFormat:            "text",
		UpcomingDefaultDays:  30,
		OverdueSweepInterval: time.Hour,
	}
}

// Load builds the configuration. A missing .env is ignored unless envPath names one explicitly.
// CONFIG_FILE, when set, points at a YAML file applied before the environment.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.DBBusyTimeout = getEnvDuration("DB_BUSY_TIMEOUT", c.DBBusyTimeout)
	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
	c.UpcomingDefaultDays = getEnvInt("UPCOMING_DEFAULT_DAYS", c.UpcomingDefaultDays)
	c.OverdueSweepInterval = getEnvDuration("OVERDUE_SWEEP_INTERVAL", c.OverdueSweepInterval)
}

// Validate returns one error listing every invalid setting.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, "database path cannot be empty")
	}
	if c.DBBusyTimeout < 0 {
		errs = append(errs, fmt.Sprintf("invalid db busy timeout %v: must not be negative", c.DBBusyTimeout))
	}

	if c.AMQPURL != "" {
		if u, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if u.Scheme != "amqp" && u.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", u.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level '%s'", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if c.UpcomingDefaultDays < 1 || c.UpcomingDefaultDays > 366 {
		errs = append(errs, fmt.Sprintf("invalid upcoming default days %d: must be between 1 and 366", c.UpcomingDefaultDays))
	}
	if c.OverdueSweepInterval < 0 {
		errs = append(errs, fmt.Sprintf("invalid overdue sweep interval %v: must not be negative", c.OverdueSweepInterval))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"SERVER"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
	Limits  LimitsConfig  `yaml:"limits" envconfig:"LIMITS"`
	Report  ReportConfig  `yaml:"report" envconfig:"REPORT"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port" envconfig:"PORT" default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" envconfig:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT" default:"15s"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Output string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
}

// LimitsConfig bounds per-request resource usage
type LimitsConfig struct {
	MaxUploadBytes int64   `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES" default:"16777216"`
	MaxRows        int     `yaml:"max_rows" envconfig:"MAX_ROWS" default:"500000"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps" envconfig:"RATE_LIMIT_RPS" default:"5"`
	RateLimitBurst int     `yaml:"rate_limit_burst" envconfig:"RATE_LIMIT_BURST" default:"10"`
}

// ReportConfig controls report generation defaults
type ReportConfig struct {
	TopN           int `yaml:"top_n" envconfig:"TOP_N" default:"10"`
	ChartWidth     int `yaml:"chart_width" envconfig:"CHART_WIDTH" default:"1024"`
	ChartHeight    int `yaml:"chart_height" envconfig:"CHART_HEIGHT" default:"640"`
	MaxChartSlices int `yaml:"max_chart_slices" envconfig:"MAX_CHART_SLICES" default:"15"`
}

// Load loads configuration from environment variables and an optional config file.
// Environment variables take precedence over file values.
func Load() (*Config, error) {
	cfg := Default()

	if path := configFilePath(); path != "" {
		fileCfg, err := loadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		*cfg = *fileCfg
	}

	if err := envconfig.Process("SALESIGHT", cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file on top of defaults
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ReadTimeout <= 0 || c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server timeouts must be positive")
	}
	if c.Limits.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive")
	}
	if c.Limits.MaxRows <= 0 {
		return fmt.Errorf("max rows must be positive")
	}
	if c.Report.TopN <= 0 {
		return fmt.Errorf("report top_n must be positive")
	}
	if c.Report.MaxChartSlices <= 0 {
		return fmt.Errorf("report max_chart_slices must be positive")
	}
	return nil
}

// configFilePath returns the path to the config file, empty when none exists
func configFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return ""
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: "stdout",
		},
		Limits: LimitsConfig{
			MaxUploadBytes: 16 << 20,
			MaxRows:        500000,
			RateLimitRPS:   5,
			RateLimitBurst: 10,
		},
		Report: ReportConfig{
			TopN:           10,
			ChartWidth:     1024,
			ChartHeight:    640,
			MaxChartSlices: 15,
		},
	}
}

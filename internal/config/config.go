package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the quote service
type Config struct {
	Server      ServerConfig      `json:"server"`
	Marketplace MarketplaceConfig `json:"marketplace"`
	Rates       RatesConfig       `json:"rates"`
	Settings    SettingsConfig    `json:"settings"`
	Logging     LoggingConfig     `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `json:"port"`
	ReadTimeout     time.Duration `json:"read_timeout"`
	WriteTimeout    time.Duration `json:"write_timeout"`
	IdleTimeout     time.Duration `json:"idle_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
	CORSOrigins     []string      `json:"cors_origins"`
}

// MarketplaceConfig holds the P2P marketplace API configuration
type MarketplaceConfig struct {
	BaseURL   string        `json:"base_url"`
	TradeURL  string        `json:"trade_url"`
	Fiat      string        `json:"fiat"`
	Rows      int           `json:"rows"`
	Timeout   time.Duration `json:"timeout"`
	RateLimit float64       `json:"rate_limit"`
	RateBurst int           `json:"rate_burst"`
}

// RatesConfig holds the dollar-rates API configuration
type RatesConfig struct {
	URL        string        `json:"url"`
	Timeout    time.Duration `json:"timeout"`
	MaxRetries int           `json:"max_retries"`
}

// SettingsConfig holds the persistent settings store configuration
type SettingsConfig struct {
	DataDir string `json:"data_dir"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json or console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", "30s"),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", "30s"),
			IdleTimeout:     getEnvAsDuration("SERVER_IDLE_TIMEOUT", "60s"),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", "10s"),
			CORSOrigins:     getEnvAsSlice("SERVER_CORS_ORIGINS", []string{"*"}),
		},
		Marketplace: MarketplaceConfig{
			BaseURL:   getEnv("MARKETPLACE_BASE_URL", "https://p2p.binance.com"),
			TradeURL:  getEnv("MARKETPLACE_TRADE_URL", "https://p2p.binance.com"),
			Fiat:      getEnv("MARKETPLACE_FIAT", "ARS"),
			Rows:      getEnvAsInt("MARKETPLACE_ROWS", 10),
			Timeout:   getEnvAsDuration("MARKETPLACE_TIMEOUT", "10s"),
			RateLimit: getEnvAsFloat("MARKETPLACE_RATE_LIMIT", 5),
			RateBurst: getEnvAsInt("MARKETPLACE_RATE_BURST", 2),
		},
		Rates: RatesConfig{
			URL:        getEnv("RATES_URL", "https://criptoya.com/api/dolar"),
			Timeout:    getEnvAsDuration("RATES_TIMEOUT", "10s"),
			MaxRetries: getEnvAsInt("RATES_MAX_RETRIES", 2),
		},
		Settings: SettingsConfig{
			DataDir: getEnv("SETTINGS_DATA_DIR", defaultDataDir()),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Marketplace.BaseURL == "" {
		return fmt.Errorf("MARKETPLACE_BASE_URL is required")
	}
	if c.Rates.URL == "" {
		return fmt.Errorf("RATES_URL is required")
	}
	if c.Marketplace.Rows <= 0 {
		return fmt.Errorf("invalid marketplace rows: %d", c.Marketplace.Rows)
	}
	if c.Settings.DataDir == "" {
		return fmt.Errorf("SETTINGS_DATA_DIR is required")
	}
	return nil
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".p2pquotes"
	}
	return home + "/.p2pquotes"
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

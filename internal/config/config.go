package config

import (
	"fmt"
	"os"

	"payrecon/internal/logger"
)

type Config struct {
	// МойСклад API Configuration
	MoySkladBaseURL string
	MoySkladToken   string

	// Name of the paymentin attribute that marks a payment as attached
	// to its invoice (per-tenant custom field).
	AttachmentAttributeName string

	// Optional: Google Sheets report output
	ReportSheetURL string

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

func Load() (*Config, error) {
	config := &Config{
		MoySkladBaseURL:         getEnv("MOYSKLAD_BASE_URL", "https://api.moysklad.ru/api/remap/1.2"),
		MoySkladToken:           getEnv("MOYSKLAD_TOKEN", ""),
		AttachmentAttributeName: getEnv("ATTACHMENT_ATTRIBUTE_NAME", "Прикреплен"),
		ReportSheetURL:          getEnv("REPORT_SHEET_URL", ""),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:           getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:               getEnv("LOG_OUTPUT", "stdout"),
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if c.MoySkladToken == "" {
		return fmt.Errorf("MOYSKLAD_TOKEN is required")
	}
	if c.MoySkladBaseURL == "" {
		return fmt.Errorf("MOYSKLAD_BASE_URL is required")
	}
	if c.AttachmentAttributeName == "" {
		return fmt.Errorf("ATTACHMENT_ATTRIBUTE_NAME is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

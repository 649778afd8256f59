package logger

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds logging configuration. The env tags override the YAML values.
type Config struct {
	Level          string `yaml:"level" env:"LOG_LEVEL"`
	ConsoleEnabled bool   `yaml:"console_enabled"`
	ConsoleFormat  string `yaml:"console_format" env:"LOG_CONSOLE_FORMAT"`
	FileEnabled    bool   `yaml:"file_enabled" env:"LOG_FILE_ENABLED"`
	FilePath       string `yaml:"file_path" env:"LOG_FILE_PATH"`
	FileFormat     string `yaml:"file_format"`
	FileMaxSizeMB  int    `yaml:"file_max_size_mb"`
	FileMaxBackups int    `yaml:"file_max_backups"`
	FileMaxAgeDays int    `yaml:"file_max_age_days"`
}

// LoggingConfig wraps the Config for YAML parsing
type LoggingConfig struct {
	Logging Config `yaml:"logging"`
}

// DefaultConfig logs text at INFO to the console only.
func DefaultConfig() Config {
	return Config{
		Level:          "INFO",
		ConsoleEnabled: true,
		ConsoleFormat:  "text",
		FilePath:       "logs/bomzh.log",
		FileFormat:     "json",
		FileMaxSizeMB:  10,
		FileMaxBackups: 5,
		FileMaxAgeDays: 30,
	}
}

// LoadConfig loads the logging section of a YAML file over the defaults and
// applies environment overrides. A missing or empty path keeps the defaults.
func LoadConfig(configPath string) (Config, error) {
	wrapper := LoggingConfig{Logging: DefaultConfig()}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &wrapper); err != nil {
				return DefaultConfig(), fmt.Errorf("parse %s: %w", configPath, err)
			}
		case !os.IsNotExist(err):
			return DefaultConfig(), fmt.Errorf("read %s: %w", configPath, err)
		}
	}

	config := wrapper.Logging
	if err := env.Parse(&config); err != nil {
		return config, fmt.Errorf("parse logging env: %w", err)
	}
	return config, nil
}

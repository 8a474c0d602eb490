package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment variables read for the azure section
var azureEnv = map[string]string{
	"azure.subscription_id": "AZURE_SUBSCRIPTION_ID",
	"azure.resource_group":  "AZURE_RESOURCE_GROUP",
	"azure.tenant_id":       "AZURE_TENANT_ID",
	"azure.client_id":       "AZURE_CLIENT_ID",
	"azure.client_secret":   "AZURE_CLIENT_SECRET",
	"azure.access_token":    "AZURE_ACCESS_TOKEN",
	"azure.authority_host":  "AZURE_AUTHORITY_HOST",
}

// Load loads the configuration from file, the environment and an optional .env
// file in the working directory. A missing config file is only an error when
// configPath is given explicitly.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()

	// Set default values
	setDefaults(v)

	v.SetEnvPrefix("AITL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range azureEnv {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("error binding %s: %w", env, err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Look for config in standard locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Check current directory first
		v.AddConfigPath(".")

		// Check home directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".aitl"))
		}
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports the variables of a .env file without overriding ones
// already set in the environment.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("error loading %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Azure defaults
	v.SetDefault("azure.endpoint", "https://eastus2euap.management.azure.com")
	v.SetDefault("azure.authority_host", "https://login.microsoftonline.com")
	v.SetDefault("azure.api_version", "2023-08-01-preview")

	// Transport defaults
	v.SetDefault("transport.timeout", "30s")
	v.SetDefault("transport.max_attempts", 3)
	v.SetDefault("transport.retry_wait_min", "500ms")
	v.SetDefault("transport.retry_wait_max", "10s")
	v.SetDefault("transport.requests_per_second", 10)
	v.SetDefault("transport.max_pages", 10000)

	// Output defaults
	v.SetDefault("output.format", "json")

	// Logging defaults
	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// Validate checks if the configuration is valid. It is exported so flag
// overrides applied after Load can be checked again.
func Validate(cfg *Config) error {
	if cfg.Transport.Timeout <= 0 {
		return fmt.Errorf("transport.timeout must be positive, got %s", cfg.Transport.Timeout)
	}
	if cfg.Transport.MaxAttempts < 1 {
		return fmt.Errorf("transport.max_attempts must be at least 1, got %d", cfg.Transport.MaxAttempts)
	}
	if cfg.Transport.RetryWaitMin <= 0 || cfg.Transport.RetryWaitMax < cfg.Transport.RetryWaitMin {
		return fmt.Errorf("transport.retry_wait_min must be positive and not above transport.retry_wait_max")
	}
	if cfg.Transport.RequestsPerSecond < 0 {
		return fmt.Errorf("transport.requests_per_second must not be negative")
	}
	if cfg.Transport.MaxPages < 1 {
		return fmt.Errorf("transport.max_pages must be at least 1, got %d", cfg.Transport.MaxPages)
	}

	// Validate output format
	validOutputs := map[string]bool{
		"json":  true,
		"yaml":  true,
		"table": true,
	}
	if !validOutputs[cfg.Output.Format] {
		return fmt.Errorf("invalid output format: %s (must be json, yaml or table)", cfg.Output.Format)
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	// Validate logging format
	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Azure     AzureConfig     `mapstructure:"azure"`
	Transport TransportConfig `mapstructure:"transport"`
	Filter    FilterConfig    `mapstructure:"filter"`
	Output    OutputConfig    `mapstructure:"output"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// AzureConfig holds the service scope and service principal credentials
type AzureConfig struct {
	SubscriptionID string `mapstructure:"subscription_id"`
	ResourceGroup  string `mapstructure:"resource_group"`
	TenantID       string `mapstructure:"tenant_id"`
	ClientID       string `mapstructure:"client_id"`
	ClientSecret   string `mapstructure:"client_secret"`
	// AccessToken skips the client-credentials exchange when set
	AccessToken   string `mapstructure:"access_token"`
	AuthorityHost string `mapstructure:"authority_host"`
	Endpoint      string `mapstructure:"endpoint"`
	APIVersion    string `mapstructure:"api_version"`
}

// TransportConfig contains HTTP, retry and pagination settings
type TransportConfig struct {
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryWaitMin      time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax      time.Duration `mapstructure:"retry_wait_max"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	MaxPages          int           `mapstructure:"max_pages"`
}

// FilterConfig contains named job filter expressions
type FilterConfig struct {
	Presets map[string]string `mapstructure:"presets"`
}

// OutputConfig controls how results are printed
type OutputConfig struct {
	Format string `mapstructure:"format"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// Package config provides configuration loading and validation for the
// trading bridge. It uses Viper to load YAML configuration files with
// support for environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration structure.
type Config struct {
	// App contains application-level settings like name and environment.
	App AppConfig `mapstructure:"app"`
	// Exchanges maps exchange identifiers to their configurations.
	Exchanges map[string]ExchangeConfig `mapstructure:"exchanges"`
	// Execution configures fill-wait behavior (optional).
	Execution *ExecutionConfig `mapstructure:"execution"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	// Name is the application name used in logs.
	Name string `mapstructure:"name"`
	// Env is the environment: "development", "staging", or "production".
	Env string `mapstructure:"env"`
	// LogLevel sets logging verbosity: "debug", "info", "warn", "error".
	LogLevel string `mapstructure:"log_level"`
}

// ExchangeConfig contains settings for a single exchange. Credentials are
// not configured here; they come from environment variables so they never
// end up in a checked-in file.
type ExchangeConfig struct {
	// Enabled determines if this exchange should be used.
	Enabled bool `mapstructure:"enabled"`
	// MarketType is "spot" or "swap"; futures/perp aliases normalize to swap.
	MarketType string `mapstructure:"market_type"`
	// BaseURL overrides the production endpoint.
	BaseURL string `mapstructure:"base_url"`
	// FuturesBaseURL overrides the futures endpoint for exchanges that serve
	// futures from a separate host.
	FuturesBaseURL string `mapstructure:"futures_base_url"`
	// Timeout bounds a single HTTP call.
	Timeout time.Duration `mapstructure:"timeout"`
	// MarginMode is cross or isolated, for derivatives orders.
	MarginMode string `mapstructure:"margin_mode"`
	// MarginCoin is the settlement currency for derivatives orders.
	MarginCoin string `mapstructure:"margin_coin"`
	// ProductType names the derivatives product family.
	ProductType string `mapstructure:"product_type"`
}

// ExecutionConfig contains fill-wait settings.
type ExecutionConfig struct {
	// MaxWaitSec bounds how long an executed order is polled for fills.
	MaxWaitSec float64 `mapstructure:"max_wait_sec"`
	// PollIntervalMs is the delay between fill polls.
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	// ReturnOnPartial stops the poll on the first observed fill instead of
	// waiting for a terminal status.
	ReturnOnPartial bool `mapstructure:"return_on_partial"`
}

// MaxWait returns MaxWaitSec as a duration.
func (e *ExecutionConfig) MaxWait() time.Duration {
	return time.Duration(e.MaxWaitSec * float64(time.Second))
}

// PollInterval returns PollIntervalMs as a duration.
func (e *ExecutionConfig) PollInterval() time.Duration {
	return time.Duration(e.PollIntervalMs) * time.Millisecond
}

// Load reads configuration from a YAML file at the given path.
// It also supports environment variable overrides with the TRADEBRIDGE_
// prefix. Returns an error if the file cannot be read, parsed, or fails
// validation.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("TRADEBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}

	enabled := 0
	for name, ex := range c.Exchanges {
		if !ex.Enabled {
			continue
		}
		enabled++
		switch strings.ToLower(ex.MarketType) {
		case "", "spot", "swap", "futures", "future", "perp", "perpetual":
		default:
			return fmt.Errorf("exchange %s: unknown market_type %q", name, ex.MarketType)
		}
	}
	if enabled == 0 {
		return fmt.Errorf("at least one exchange must be enabled")
	}

	if c.Execution != nil {
		if c.Execution.MaxWaitSec < 0 {
			return fmt.Errorf("execution.max_wait_sec must not be negative")
		}
		if c.Execution.PollIntervalMs < 0 {
			return fmt.Errorf("execution.poll_interval_ms must not be negative")
		}
	}

	return nil
}

// IsDevelopment returns true if the environment is "development".
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction returns true if the environment is "production".
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

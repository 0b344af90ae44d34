// Package config defines the application configuration and its loader.
package config

import (
	"fmt"
	"time"

	"github.com/evanmcb/autoreview/internal/resilience"
	"github.com/evanmcb/autoreview/internal/tool"
)

// Config represents the full application configuration.
type Config struct {
	Providers     map[string]ProviderConfig `yaml:"providers"`
	Breaker       BreakerConfig             `yaml:"breaker"`
	Retry         RetryConfig               `yaml:"retry"`
	Cache         CacheConfig               `yaml:"cache"`
	Tools         ToolsConfig               `yaml:"tools"`
	Review        ReviewConfig              `yaml:"review"`
	Git           GitConfig                 `yaml:"git"`
	Output        OutputConfig              `yaml:"output"`
	Store         StoreConfig               `yaml:"store"`
	Observability ObservabilityConfig       `yaml:"observability"`
}

// ProviderConfig configures a single LLM provider.
type ProviderConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`

	// BaseURL overrides the provider's API endpoint, e.g. for a proxy
	// or a compatible self-hosted gateway.
	BaseURL string `yaml:"baseURL,omitempty"`

	// Timeout overrides the HTTP client timeout for this provider.
	Timeout string `yaml:"timeout,omitempty"`
}

// BreakerConfig configures the per-dependency circuit breakers.
type BreakerConfig struct {
	FailureThreshold int    `yaml:"failureThreshold"`
	RecoveryTimeout  string `yaml:"recoveryTimeout"`
}

// RetryConfig configures the provider retry loop.
type RetryConfig struct {
	MaxRetries int    `yaml:"maxRetries"`
	BaseDelay  string `yaml:"baseDelay"`
	MaxDelay   string `yaml:"maxDelay"`
}

// CacheConfig configures the tool result cache.
type CacheConfig struct {
	TTL string `yaml:"ttl"`
}

// ToolsConfig configures tool selection and execution. Selection
// filters work on tool names and on categories.
type ToolsConfig struct {
	Timeout            string   `yaml:"timeout"`
	MaxParallel        int      `yaml:"maxParallel"`
	Enabled            []string `yaml:"enabled"`
	Disabled           []string `yaml:"disabled"`
	EnabledCategories  []string `yaml:"enabledCategories"`
	DisabledCategories []string `yaml:"disabledCategories"`

	// DocsLinkCheck toggles the outbound documentation link checker.
	DocsLinkCheck bool `yaml:"docsLinkCheck"`
}

// ReviewConfig configures review behavior.
type ReviewConfig struct {
	// Timeout bounds the whole review, tools and provider included.
	Timeout string `yaml:"timeout"`

	// Fallback lists provider names to try after the primary, in order.
	Fallback []string `yaml:"fallback"`

	MaxFindings     int `yaml:"maxFindings"`
	MaxPromptTokens int `yaml:"maxPromptTokens"`
}

type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
}

// OutputConfig configures report writing.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"` // markdown, json
}

// StoreConfig configures the review history store.
type StoreConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// ObservabilityConfig configures logging and metrics.
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level         string `yaml:"level"`  // debug, info, warning, error
	Format        string `yaml:"format"` // auto, json, human
	RedactAPIKeys bool   `yaml:"redactAPIKeys"`
}

// MetricsConfig configures in-process metrics collection.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Validate checks the configuration for values the engine cannot run
// with. Durations must parse and the resilience floors must hold.
func (c Config) Validate() error {
	if c.Breaker.FailureThreshold < 1 {
		return fmt.Errorf("breaker.failureThreshold must be at least 1, got %d", c.Breaker.FailureThreshold)
	}
	if _, err := parsePositiveDuration("breaker.recoveryTimeout", c.Breaker.RecoveryTimeout); err != nil {
		return err
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.maxRetries must not be negative, got %d", c.Retry.MaxRetries)
	}
	base, err := parsePositiveDuration("retry.baseDelay", c.Retry.BaseDelay)
	if err != nil {
		return err
	}
	max, err := parsePositiveDuration("retry.maxDelay", c.Retry.MaxDelay)
	if err != nil {
		return err
	}
	if max < base {
		return fmt.Errorf("retry.maxDelay %s must not be below retry.baseDelay %s", c.Retry.MaxDelay, c.Retry.BaseDelay)
	}

	if _, err := parsePositiveDuration("cache.ttl", c.Cache.TTL); err != nil {
		return err
	}
	if _, err := parsePositiveDuration("tools.timeout", c.Tools.Timeout); err != nil {
		return err
	}
	if c.Tools.MaxParallel < 1 {
		return fmt.Errorf("tools.maxParallel must be at least 1, got %d", c.Tools.MaxParallel)
	}
	if _, err := parsePositiveDuration("review.timeout", c.Review.Timeout); err != nil {
		return err
	}

	switch c.Output.Format {
	case "", "markdown", "json":
	default:
		return fmt.Errorf("output.format must be markdown or json, got %q", c.Output.Format)
	}

	switch c.Observability.Logging.Format {
	case "", "auto", "human", "json":
	default:
		return fmt.Errorf("observability.logging.format must be auto, human or json, got %q", c.Observability.Logging.Format)
	}

	for _, name := range append([]string{}, c.Review.Fallback...) {
		if _, ok := c.Providers[name]; !ok {
			return fmt.Errorf("review.fallback names unknown provider %q", name)
		}
	}
	return nil
}

// BreakerSettings converts the validated config into breaker settings.
func (c Config) BreakerSettings() resilience.BreakerConfig {
	timeout, _ := time.ParseDuration(c.Breaker.RecoveryTimeout)
	return resilience.BreakerConfig{
		FailureThreshold: c.Breaker.FailureThreshold,
		RecoveryTimeout:  timeout,
	}
}

// RetrySettings converts the validated config into retry settings.
func (c Config) RetrySettings() resilience.RetryConfig {
	base, _ := time.ParseDuration(c.Retry.BaseDelay)
	max, _ := time.ParseDuration(c.Retry.MaxDelay)
	return resilience.RetryConfig{
		MaxRetries: c.Retry.MaxRetries,
		BaseDelay:  base,
		MaxDelay:   max,
	}
}

// CacheTTL returns the validated cache TTL.
func (c Config) CacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Cache.TTL)
	return ttl
}

// RunnerSettings converts the validated config into runner settings.
func (c Config) RunnerSettings() tool.RunnerConfig {
	timeout, _ := time.ParseDuration(c.Tools.Timeout)
	return tool.RunnerConfig{
		Timeout:     timeout,
		MaxParallel: c.Tools.MaxParallel,
	}
}

// RegistryOptions converts the tool selection filters into registry
// options.
func (c Config) RegistryOptions() tool.Options {
	return tool.Options{
		EnabledTools:       c.Tools.Enabled,
		DisabledTools:      c.Tools.Disabled,
		EnabledCategories:  c.Tools.EnabledCategories,
		DisabledCategories: c.Tools.DisabledCategories,
	}
}

// ReviewTimeout returns the validated per-review timeout.
func (c Config) ReviewTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Review.Timeout)
	return timeout
}

func parsePositiveDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", field, value)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", field, value)
	}
	return d, nil
}

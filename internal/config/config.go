// Package config handles YAML configuration loading with environment variable expansion.
package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"go.yaml.in/yaml/v3"

	gateway "github.com/eugener/radagast/internal"
)

// Config is the top-level gateway configuration.
type Config struct {
	Gateway      GatewayConfig                     `yaml:"gateway"`
	Providers    map[string]gateway.ProviderConfig `yaml:"providers"`
	Cache        CacheConfig                       `yaml:"cache"`
	SystemPrompt string                            `yaml:"system_prompt"`
	Guardrails   GuardrailConfig                   `yaml:"guardrails"`
	RateLimit    *PlanConfig                       `yaml:"rate_limit"`
	Logging      LoggingConfig                     `yaml:"logging"`
	Telemetry    TelemetryConfig                   `yaml:"telemetry"`
}

// GatewayConfig holds HTTP listener settings.
type GatewayConfig struct {
	Port            int           `yaml:"port"`
	AdminPort       int           `yaml:"admin_port"`
	VerboseLogging  bool          `yaml:"verbose_logging"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CacheConfig holds prompt cache settings.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds"`
	MaxSize    int `yaml:"max_size"`
}

// GuardrailConfig holds the response policy applied to provider output.
type GuardrailConfig struct {
	BannedPhrases     []string `yaml:"banned_phrases"`
	MinLength         int      `yaml:"min_length"`
	MaxLength         int      `yaml:"max_length"`
	RequireDisclaimer bool     `yaml:"require_disclaimer"`
	Disclaimer        string   `yaml:"disclaimer"`
}

// PlanConfig holds the active rate-limit plan. Nil disables the limiter.
type PlanConfig struct {
	Name              string `yaml:"name"`
	RequestsPerWindow int    `yaml:"requests_per_window"`
	WindowSeconds     int    `yaml:"window_seconds"`
}

// LoggingConfig controls the structured log sink fan-out.
type LoggingConfig struct {
	SplunkEnabled        bool   `yaml:"splunk_enabled" json:"splunkEnabled"`
	SplunkURL            string `yaml:"splunk_url" json:"splunkUrl"`
	DatadogEnabled       bool   `yaml:"datadog_enabled" json:"datadogEnabled"`
	DatadogURL           string `yaml:"datadog_url" json:"datadogUrl"`
	ElasticsearchEnabled bool   `yaml:"elasticsearch_enabled" json:"elasticsearchEnabled"`
	ElasticsearchURL     string `yaml:"elasticsearch_url" json:"elasticsearchUrl"`
}

// TelemetryConfig holds observability settings.
type TelemetryConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

// MetricsConfig controls Prometheus metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// TracingConfig controls OpenTelemetry tracing.
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled"`
	Endpoint   string  `yaml:"endpoint"`    // OTLP gRPC endpoint
	SampleRate float64 `yaml:"sample_rate"` // 0.0 to 1.0
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnv replaces ${VAR} patterns with environment variable values.
func expandEnv(data []byte) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		varName := string(match[2 : len(match)-1])
		if val, ok := os.LookupEnv(varName); ok {
			return []byte(val)
		}
		return match
	})
}

// Load reads and parses a YAML config file, expanding environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = expandEnv(data)

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config populated with defaults, applied before unmarshal.
func Default() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Port:            8080,
			AdminPort:       8081,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			TTLSeconds: 3600,
			MaxSize:    10_000,
		},
		Guardrails: GuardrailConfig{
			MaxLength: 10_000,
		},
	}
}

// Validate checks startup invariants. At least one provider must be enabled.
func (c *Config) Validate() error {
	enabled := 0
	for id, p := range c.Providers {
		if !gateway.IsKnownProvider(id) {
			return fmt.Errorf("config: unknown provider %q", id)
		}
		if p.Enabled() {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("config: at least one provider must be configured")
	}
	if c.Guardrails.MinLength > c.Guardrails.MaxLength {
		return fmt.Errorf("config: guardrails min_length %d exceeds max_length %d",
			c.Guardrails.MinLength, c.Guardrails.MaxLength)
	}
	if c.Guardrails.MaxLength <= 0 {
		return fmt.Errorf("config: guardrails max_length must be positive")
	}
	if p := c.RateLimit; p != nil {
		if p.RequestsPerWindow <= 0 || p.WindowSeconds <= 0 {
			return fmt.Errorf("config: rate_limit requests_per_window and window_seconds must be positive")
		}
	}
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("config: cache ttl_seconds must be positive")
	}
	return nil
}

// Package config provides core orchestration configuration.
//
// Configuration is loaded once at process start and treated as read-only
// for the lifetime of every workflow. Orchestrator instances share it by
// reference without locking.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// RETRY POLICY
// =============================================================================

// RetryPolicy bounds how hard the orchestrator tries before giving up.
// MaxTotalAttempts caps external-service calls across all stages of one
// request; MaxAttemptsPerStage caps retries within one stage.
type RetryPolicy struct {
	MaxAttemptsPerStage int     `yaml:"max_attempts_per_stage"`
	MaxTotalAttempts    int     `yaml:"max_total_attempts"`
	BackoffInitialMS    int     `yaml:"backoff_initial_ms"`
	BackoffMaxMS        int     `yaml:"backoff_max_ms"`
	BackoffMultiplier   float64 `yaml:"backoff_multiplier"`
}

// DefaultRetryPolicy returns the stock policy.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttemptsPerStage: 3,
		MaxTotalAttempts:    10,
		BackoffInitialMS:    1000,
		BackoffMaxMS:        30000,
		BackoffMultiplier:   2.0,
	}
}

// Validate checks the policy is internally coherent.
func (p RetryPolicy) Validate() error {
	if p.MaxAttemptsPerStage < 1 {
		return fmt.Errorf("max_attempts_per_stage must be >= 1, got %d", p.MaxAttemptsPerStage)
	}
	if p.MaxTotalAttempts < 1 {
		return fmt.Errorf("max_total_attempts must be >= 1, got %d", p.MaxTotalAttempts)
	}
	if p.MaxTotalAttempts < p.MaxAttemptsPerStage {
		return fmt.Errorf("max_total_attempts (%d) must not be below max_attempts_per_stage (%d)",
			p.MaxTotalAttempts, p.MaxAttemptsPerStage)
	}
	if p.BackoffMultiplier < 1 {
		return fmt.Errorf("backoff_multiplier must be >= 1, got %g", p.BackoffMultiplier)
	}
	return nil
}

// NewBackOff builds the backoff schedule for one workflow. Each workflow
// gets a fresh schedule; the policy itself is never mutated.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(p.BackoffInitialMS) * time.Millisecond
	b.MaxInterval = time.Duration(p.BackoffMaxMS) * time.Millisecond
	b.Multiplier = p.BackoffMultiplier
	b.RandomizationFactor = 0.2
	b.MaxElapsedTime = 0 // termination is budget-driven, not time-driven
	b.Reset()
	return b
}

// =============================================================================
// MODEL ROLES
// =============================================================================

// ModelRoles names the model serving each inference-backed stage.
type ModelRoles struct {
	Architect   string `yaml:"architect"`
	Planner     string `yaml:"planner"`
	Synthesizer string `yaml:"synthesizer"`
	Healer      string `yaml:"healer"`
}

// DefaultModelRoles returns the stock model assignment.
func DefaultModelRoles() ModelRoles {
	return ModelRoles{
		Architect:   "qwen2.5:14b",
		Planner:     "qwen2.5-coder:14b",
		Synthesizer: "deepseek-coder:33b",
		Healer:      "qwen2.5-coder:14b",
	}
}

// =============================================================================
// CORE CONFIG
// =============================================================================

// CoreConfig holds process-wide configuration. Timeouts are seconds.
type CoreConfig struct {
	Retry  RetryPolicy `yaml:"retry"`
	Models ModelRoles  `yaml:"models"`

	OllamaURL string `yaml:"ollama_url"`
	RunnerURL string `yaml:"runner_url"`

	InferenceTimeoutSeconds int `yaml:"inference_timeout_seconds"`
	ExecutionTimeoutSeconds int `yaml:"execution_timeout_seconds"`

	ListenAddr   string `yaml:"listen_addr"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	LogLevel     string `yaml:"log_level"`
}

// DefaultCoreConfig returns a CoreConfig with default values.
func DefaultCoreConfig() *CoreConfig {
	return &CoreConfig{
		Retry:                   DefaultRetryPolicy(),
		Models:                  DefaultModelRoles(),
		OllamaURL:               "http://localhost:11434",
		RunnerURL:               "http://localhost:8090",
		InferenceTimeoutSeconds: 120,
		ExecutionTimeoutSeconds: 60,
		ListenAddr:              ":8080",
		OTLPEndpoint:            "",
		LogLevel:                "INFO",
	}
}

// InferenceTimeout returns the per-call inference deadline.
func (c *CoreConfig) InferenceTimeout() time.Duration {
	return time.Duration(c.InferenceTimeoutSeconds) * time.Second
}

// ExecutionTimeout returns the per-call sandbox deadline.
func (c *CoreConfig) ExecutionTimeout() time.Duration {
	return time.Duration(c.ExecutionTimeoutSeconds) * time.Second
}

// Validate checks the configuration.
func (c *CoreConfig) Validate() error {
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if c.InferenceTimeoutSeconds < 1 {
		return fmt.Errorf("inference_timeout_seconds must be >= 1, got %d", c.InferenceTimeoutSeconds)
	}
	if c.ExecutionTimeoutSeconds < 1 {
		return fmt.Errorf("execution_timeout_seconds must be >= 1, got %d", c.ExecutionTimeoutSeconds)
	}
	return nil
}

// LoadFile reads a YAML config file over the defaults. Missing keys keep
// their default values.
func LoadFile(path string) (*CoreConfig, error) {
	cfg := DefaultCoreConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays well-known environment variables onto the config.
// Environment wins over file values; flags (handled in cmd) win over both.
func (c *CoreConfig) ApplyEnv() {
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		c.OllamaURL = v
	}
	if v := os.Getenv("CADFORGE_RUNNER_URL"); v != "" {
		c.RunnerURL = v
	}
	if v := os.Getenv("CADFORGE_LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); v != "" {
		c.OTLPEndpoint = v
	}
	if v := os.Getenv("CADFORGE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

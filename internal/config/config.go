// Package config provides configuration types for the guardrail engine.
package config

import "log/slog"

// Config is the top-level configuration for the guardrail engine.
type Config struct {
	// Storage selects and configures the persistence backend.
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`

	// LogLevel controls slog verbosity: debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`

	// Tenant is the default tenant for CLI operations when --tenant is not
	// passed. Every engine call is scoped to exactly one tenant.
	Tenant string `yaml:"tenant" mapstructure:"tenant" validate:"omitempty,tenant_name"`

	// Audit configures the audit trail behavior.
	Audit AuditConfig `yaml:"audit" mapstructure:"audit"`

	// Evaluation configures the evaluation hot path.
	Evaluation EvaluationConfig `yaml:"evaluation" mapstructure:"evaluation"`

	// Telemetry configures tracing.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// StorageConfig selects the storage adapter.
type StorageConfig struct {
	// Backend is "sqlite" (durable) or "memory" (dev/test only).
	Backend string `yaml:"backend" mapstructure:"backend" validate:"required,oneof=memory sqlite"`
	// Path is the sqlite database file. Required for the sqlite backend.
	Path string `yaml:"path" mapstructure:"path"`
}

// AuditConfig configures the audit trail.
type AuditConfig struct {
	// LogEvaluations appends an audit entry per evaluation when true.
	// Default false: the evaluation path stays read-only.
	LogEvaluations bool `yaml:"log_evaluations" mapstructure:"log_evaluations"`
}

// EvaluationConfig configures the evaluation service.
type EvaluationConfig struct {
	// CacheSize bounds the effective-policy result cache. Default 1000.
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size" validate:"omitempty,gte=0"`
}

// TelemetryConfig configures tracing output.
type TelemetryConfig struct {
	// Tracing enables OpenTelemetry spans with a stdout exporter.
	Tracing bool `yaml:"tracing" mapstructure:"tracing"`
}

// SetDefaults applies default values for optional fields.
func (c *Config) SetDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = "sqlite"
	}
	if c.Storage.Backend == "sqlite" && c.Storage.Path == "" {
		c.Storage.Path = "guardrail.db"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Tenant == "" {
		c.Tenant = "default"
	}
	if c.Evaluation.CacheSize == 0 {
		c.Evaluation.CacheSize = 1000
	}
}

// SlogLevel maps the configured level onto slog.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

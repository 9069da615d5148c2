// Package config provides configuration types and loading for sessionguard.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level configuration for the sessionguard client.
type Config struct {
	// Server configures the task-management API the client talks to.
	Server ServerConfig `yaml:"server" mapstructure:"server"`

	// Session configures the lifecycle reconciliation cadences.
	Session SessionConfig `yaml:"session" mapstructure:"session"`

	// Persistence configures where the rehydratable session is stored.
	Persistence PersistenceConfig `yaml:"persistence" mapstructure:"persistence"`

	// Telemetry configures tracing and the metrics listener.
	Telemetry TelemetryConfig `yaml:"telemetry" mapstructure:"telemetry"`
}

// ServerConfig configures the API endpoint.
type ServerConfig struct {
	// BaseURL is the root of the task-management API, e.g. "https://api.example.com".
	BaseURL string `yaml:"base_url" mapstructure:"base_url" validate:"required,api_base_url"`

	// HTTPTimeout is the per-request timeout for API calls.
	// Default: 10s.
	HTTPTimeout time.Duration `yaml:"http_timeout" mapstructure:"http_timeout" validate:"gte=0"`

	// LogLevel sets the logging verbosity: debug, info, warn, error.
	// Default: info.
	LogLevel string `yaml:"log_level" mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// SessionConfig configures the reconciler cadences.
type SessionConfig struct {
	// StatusInterval is how often the authoritative server status check runs.
	// Default: 5m.
	StatusInterval time.Duration `yaml:"status_interval" mapstructure:"status_interval" validate:"gte=0"`

	// TickInterval is how often the local fallback check runs.
	// Default: 10s.
	TickInterval time.Duration `yaml:"tick_interval" mapstructure:"tick_interval" validate:"gte=0"`

	// AutoExtend makes the client extend the session automatically when the
	// expiry warning fires, instead of waiting for the user.
	AutoExtend bool `yaml:"auto_extend" mapstructure:"auto_extend"`
}

// PersistenceConfig configures session rehydration across restarts.
type PersistenceConfig struct {
	// Path is the SQLite database file holding the persisted session.
	// Empty selects the default under the user's home directory; "memory"
	// disables on-disk persistence.
	Path string `yaml:"path" mapstructure:"path"`
}

// TelemetryConfig configures observability outputs.
type TelemetryConfig struct {
	// TraceEnabled turns on span export to stdout.
	TraceEnabled bool `yaml:"trace_enabled" mapstructure:"trace_enabled"`

	// MetricsAddr is the host:port for the Prometheus /metrics listener.
	// Empty disables the listener.
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
}

// MemoryPersistence is the PersistenceConfig.Path value that disables
// on-disk persistence.
const MemoryPersistence = "memory"

// SetDefaults applies sensible default values to the configuration.
func (c *Config) SetDefaults() {
	if c.Server.HTTPTimeout == 0 {
		c.Server.HTTPTimeout = 10 * time.Second
	}
	if c.Server.LogLevel == "" {
		c.Server.LogLevel = "info"
	}
	if c.Session.StatusInterval == 0 {
		c.Session.StatusInterval = 5 * time.Minute
	}
	if c.Session.TickInterval == 0 {
		c.Session.TickInterval = 10 * time.Second
	}
	if c.Persistence.Path == "" {
		c.Persistence.Path = defaultPersistencePath()
	}
}

// defaultPersistencePath returns ~/.sessionguard/session.db, falling back to
// the working directory when the home directory cannot be determined.
func defaultPersistencePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "session.db"
	}
	return filepath.Join(home, ".sessionguard", "session.db")
}

// Package config loads agentcore settings from YAML or JSON files, with
// AGENTCORE_-prefixed environment variables taking precedence over file
// values.
package config

import "fmt"

// Settings is the full configuration surface.
type Settings struct {
	Bus       BusSettings       `yaml:"bus" json:"bus"`
	Telemetry TelemetrySettings `yaml:"telemetry" json:"telemetry"`
	Plugins   PluginSettings    `yaml:"plugins" json:"plugins"`
	Logging   LoggingSettings   `yaml:"logging" json:"logging"`
}

// BusSettings configures the event bus.
type BusSettings struct {
	// MaxHistory bounds the history ring. Zero disables retention.
	MaxHistory int `yaml:"max_history" json:"max_history"`

	// StrictIdentity rejects publishes from unregistered or inactive agents.
	StrictIdentity bool `yaml:"strict_identity" json:"strict_identity"`

	// AsyncDispatch runs each matched handler in its own goroutine.
	AsyncDispatch bool `yaml:"async_dispatch" json:"async_dispatch"`
}

// TelemetrySettings configures the OpenTelemetry bridge and collector.
type TelemetrySettings struct {
	TracingEnabled bool   `yaml:"tracing_enabled" json:"tracing_enabled"`
	MetricsEnabled bool   `yaml:"metrics_enabled" json:"metrics_enabled"`
	ServiceName    string `yaml:"service_name" json:"service_name"`
}

// PluginSettings configures plugin initialization.
type PluginSettings struct {
	// Enabled lists the plugin names InitializeAll should start. Empty
	// means all registered plugins.
	Enabled []string `yaml:"enabled" json:"enabled"`
}

// LoggingSettings configures the slog handler.
type LoggingSettings struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`

	// Format is "text" or "json".
	Format string `yaml:"format" json:"format"`
}

// Defaults returns the settings used when no file or environment override is
// present.
func Defaults() Settings {
	return Settings{
		Bus: BusSettings{
			MaxHistory: 1000,
		},
		Telemetry: TelemetrySettings{
			ServiceName: "agentcore",
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks field ranges and enumerations.
func (s Settings) Validate() error {
	if s.Bus.MaxHistory < 0 {
		return fmt.Errorf("bus.max_history must not be negative, got %d", s.Bus.MaxHistory)
	}
	switch s.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", s.Logging.Level)
	}
	switch s.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", s.Logging.Format)
	}
	return nil
}

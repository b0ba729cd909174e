package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvPrefix namespaces the environment variables the loader consults.
const EnvPrefix = "AGENTCORE_"

// Load builds Settings by layering, lowest precedence first: defaults, the
// file at path (skipped when path is empty), then AGENTCORE_ environment
// variables.
func Load(path string) (Settings, error) {
	settings := Defaults()

	if path != "" {
		loaded, err := FromFile(path)
		if err != nil {
			return Settings{}, err
		}
		settings = loaded
	}

	applyEnv(&settings)

	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

// FromFile loads settings from a file, auto-detecting format by extension.
// Supported extensions: .yaml, .yml, .json. Fields absent from the file keep
// their defaults.
func FromFile(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		return FromYAML(data)
	case ".json":
		return FromJSON(data)
	default:
		return Settings{}, fmt.Errorf("unsupported config file extension: %s", ext)
	}
}

// FromYAML parses YAML data into Settings over the defaults.
func FromYAML(data []byte) (Settings, error) {
	settings := Defaults()
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse yaml: %w", err)
	}
	return settings, nil
}

// FromJSON parses JSON data into Settings over the defaults.
func FromJSON(data []byte) (Settings, error) {
	settings := Defaults()
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse json: %w", err)
	}
	return settings, nil
}

// applyEnv overlays AGENTCORE_ environment variables. Unparseable values are
// ignored so a stray variable cannot take the process down at startup.
func applyEnv(s *Settings) {
	if v, ok := envInt("BUS_MAX_HISTORY"); ok {
		s.Bus.MaxHistory = v
	}
	if v, ok := envBool("BUS_STRICT_IDENTITY"); ok {
		s.Bus.StrictIdentity = v
	}
	if v, ok := envBool("BUS_ASYNC_DISPATCH"); ok {
		s.Bus.AsyncDispatch = v
	}
	if v, ok := envBool("TELEMETRY_TRACING_ENABLED"); ok {
		s.Telemetry.TracingEnabled = v
	}
	if v, ok := envBool("TELEMETRY_METRICS_ENABLED"); ok {
		s.Telemetry.MetricsEnabled = v
	}
	if v, ok := envString("TELEMETRY_SERVICE_NAME"); ok {
		s.Telemetry.ServiceName = v
	}
	if v, ok := envString("PLUGINS_ENABLED"); ok {
		s.Plugins.Enabled = splitList(v)
	}
	if v, ok := envString("LOGGING_LEVEL"); ok {
		s.Logging.Level = strings.ToLower(v)
	}
	if v, ok := envString("LOGGING_FORMAT"); ok {
		s.Logging.Format = strings.ToLower(v)
	}
}

func envString(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func envInt(key string) (int, bool) {
	v, ok := envString(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envBool(key string) (bool, bool) {
	v, ok := envString(key)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, false
	}
	return b, true
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/workcatalog/workcatalog/pkg/telemetry"
)

// EnvPrefix is the prefix of environment variables that override settings.
// A double underscore separates sections from keys, so
// WORKCATALOG_DATABASE__PATH sets database.path.
const EnvPrefix = "WORKCATALOG_"

// DefaultSettingsFile is the settings file written by "workcatalog init".
const DefaultSettingsFile = "workcatalog.yaml"

// Settings is the runtime configuration of the workcatalog tool.
type Settings struct {
	Database DatabaseSettings `yaml:"database" koanf:"database"`
	Logging  LoggingSettings  `yaml:"logging" koanf:"logging"`
	Tracing  TracingSettings  `yaml:"tracing" koanf:"tracing"`
	Metrics  MetricsSettings  `yaml:"metrics" koanf:"metrics"`
	Events   EventsSettings   `yaml:"events" koanf:"events"`
	Policies PolicySettings   `yaml:"policies" koanf:"policies"`
}

// DatabaseSettings locates the catalog database.
type DatabaseSettings struct {
	Path string `yaml:"path" koanf:"path" validate:"required"`
}

// LoggingSettings configures the tool's log output.
type LoggingSettings struct {
	Level  string `yaml:"level" koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `yaml:"format" koanf:"format" validate:"oneof=console json"`
	Output string `yaml:"output" koanf:"output"`
}

// TracingSettings configures span export.
type TracingSettings struct {
	Enabled      bool    `yaml:"enabled" koanf:"enabled"`
	Exporter     string  `yaml:"exporter" koanf:"exporter" validate:"oneof=otlp stdout none"`
	Endpoint     string  `yaml:"endpoint,omitempty" koanf:"endpoint" validate:"required_if=Exporter otlp"`
	SamplingRate float64 `yaml:"sampling_rate" koanf:"sampling_rate" validate:"gte=0,lte=1"`
	Insecure     bool    `yaml:"insecure" koanf:"insecure"`
}

// MetricsSettings configures metric collection.
type MetricsSettings struct {
	Enabled  bool   `yaml:"enabled" koanf:"enabled"`
	Textfile string `yaml:"textfile,omitempty" koanf:"textfile"`
}

// EventsSettings configures catalog change events.
type EventsSettings struct {
	Enabled bool `yaml:"enabled" koanf:"enabled"`
}

// PolicySettings selects the Rego policies checked before an import.
type PolicySettings struct {
	Builtin bool     `yaml:"builtin" koanf:"builtin"`
	Paths   []string `yaml:"paths,omitempty" koanf:"paths" validate:"dive,required"`
}

// DefaultSettings returns the settings used when nothing is configured.
func DefaultSettings() *Settings {
	return &Settings{
		Database: DatabaseSettings{
			Path: "workcatalog.db",
		},
		Logging: LoggingSettings{
			Level:  "info",
			Format: "console",
			Output: "stderr",
		},
		Tracing: TracingSettings{
			Exporter:     "none",
			SamplingRate: 1.0,
			Insecure:     true,
		},
		Metrics: MetricsSettings{
			Enabled: true,
		},
		Events: EventsSettings{
			Enabled: true,
		},
		Policies: PolicySettings{
			Builtin: true,
		},
	}
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are skipped and variables that are already
// set are never overridden. With no arguments ".env" is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}

	var existing []string
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return nil
	}

	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load builds settings from defaults, the optional YAML file at path and
// WORKCATALOG_ environment variables, in increasing precedence, and
// validates the result.
func Load(path string) (*Settings, error) {
	s := DefaultSettings()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read settings file: %w", err)
		}
		if err := yaml.Unmarshal(data, s); err != nil {
			return nil, fmt.Errorf("failed to parse settings YAML: %w", err)
		}
	}

	if err := s.applyEnv(); err != nil {
		return nil, err
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}

	return s, nil
}

// applyEnv overlays WORKCATALOG_ environment variables.
func (s *Settings) applyEnv() error {
	k := koanf.New(".")

	err := k.Load(env.Provider(EnvPrefix, ".", func(key string) string {
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil)
	if err != nil {
		return fmt.Errorf("failed to load environment: %w", err)
	}

	if len(k.Keys()) == 0 {
		return nil
	}

	if err := k.UnmarshalWithConf("", s, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("failed to apply environment: %w", err)
	}
	return nil
}

// Validate checks settings against their validation rules.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("invalid settings: %w", err)
		}

		msgs := make([]string, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			msgs = append(msgs, fmt.Sprintf("%s: failed %s validation", fe.Namespace(), fe.Tag()))
		}
		return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
	}
	return nil
}

// Save writes the settings as YAML to path.
func (s *Settings) Save(path string) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	content := append([]byte("# workcatalog settings\n"), data...)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// Telemetry converts the settings to a telemetry configuration.
func (s *Settings) Telemetry() *telemetry.Config {
	cfg := telemetry.DefaultConfig()

	cfg.Logging.Level = s.Logging.Level
	cfg.Logging.Format = s.Logging.Format
	cfg.Logging.Output = s.Logging.Output

	cfg.Tracing.Enabled = s.Tracing.Enabled
	cfg.Tracing.Exporter = s.Tracing.Exporter
	cfg.Tracing.Endpoint = s.Tracing.Endpoint
	cfg.Tracing.SamplingRate = s.Tracing.SamplingRate
	cfg.Tracing.Insecure = s.Tracing.Insecure

	cfg.Metrics.Enabled = s.Metrics.Enabled
	cfg.Metrics.TextfilePath = s.Metrics.Textfile

	cfg.Events.Enabled = s.Events.Enabled

	return cfg
}

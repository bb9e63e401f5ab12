package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultSettingsAreValid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	require.NoError(t, s.Telemetry().Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	s, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadYAMLFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "workcatalog.yaml", `
database:
  path: /srv/catalog.db
logging:
  level: debug
metrics:
  textfile: /var/lib/node_exporter/workcatalog.prom
policies:
  builtin: false
  paths: [/etc/workcatalog/policies]
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/catalog.db", s.Database.Path)
	assert.Equal(t, "debug", s.Logging.Level)
	assert.Equal(t, "/var/lib/node_exporter/workcatalog.prom", s.Metrics.Textfile)
	assert.False(t, s.Policies.Builtin)
	assert.Equal(t, []string{"/etc/workcatalog/policies"}, s.Policies.Paths)

	// Keys absent from the file keep their defaults.
	assert.Equal(t, "console", s.Logging.Format)
	assert.True(t, s.Metrics.Enabled)
	assert.True(t, s.Events.Enabled)
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	path := writeFile(t, t.TempDir(), "workcatalog.yaml", `
database:
  path: /srv/catalog.db
`)

	t.Setenv("WORKCATALOG_DATABASE__PATH", "/tmp/env.db")
	t.Setenv("WORKCATALOG_TRACING__SAMPLING_RATE", "0.25")
	t.Setenv("WORKCATALOG_EVENTS__ENABLED", "false")

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", s.Database.Path)
	assert.Equal(t, 0.25, s.Tracing.SamplingRate)
	assert.False(t, s.Events.Enabled)
	assert.Equal(t, "info", s.Logging.Level)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad level", content: "logging:\n  level: loud\n"},
		{name: "bad format", content: "logging:\n  format: xml\n"},
		{name: "empty database path", content: "database:\n  path: \"\"\n"},
		{name: "otlp without endpoint", content: "tracing:\n  enabled: true\n  exporter: otlp\n"},
		{name: "sampling out of range", content: "tracing:\n  sampling_rate: 2\n"},
		{name: "empty policy path", content: "policies:\n  paths: [\"\"]\n"},
		{name: "malformed yaml", content: "database: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, t.TempDir(), "workcatalog.yaml", tt.content)
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read settings file")
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := writeFile(t, dir, ".env", "WORKCATALOG_DOTENV_PROBE=from-file\nWORKCATALOG_DOTENV_KEEP=from-file\n")

	t.Setenv("WORKCATALOG_DOTENV_KEEP", "from-shell")
	t.Cleanup(func() { os.Unsetenv("WORKCATALOG_DOTENV_PROBE") })

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))

	assert.Equal(t, "from-file", os.Getenv("WORKCATALOG_DOTENV_PROBE"))
	assert.Equal(t, "from-shell", os.Getenv("WORKCATALOG_DOTENV_KEEP"))
}

func TestLoadDotEnvWithoutFiles(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "none.env")))
}

func TestSettingsSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSettingsFile)

	s := DefaultSettings()
	s.Database.Path = "/srv/catalog.db"
	s.Tracing.Enabled = true
	s.Tracing.Exporter = "stdout"
	require.NoError(t, s.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestSettingsTelemetry(t *testing.T) {
	s := DefaultSettings()
	s.Logging.Level = "debug"
	s.Logging.Format = "json"
	s.Tracing.Enabled = true
	s.Tracing.Exporter = "otlp"
	s.Tracing.Endpoint = "localhost:4317"
	s.Tracing.SamplingRate = 0.5
	s.Metrics.Textfile = "/tmp/workcatalog.prom"
	s.Events.Enabled = false

	cfg := s.Telemetry()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "workcatalog", cfg.ServiceName)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.True(t, cfg.Tracing.Enabled)
	assert.Equal(t, "otlp", cfg.Tracing.Exporter)
	assert.Equal(t, "localhost:4317", cfg.Tracing.Endpoint)
	assert.Equal(t, 0.5, cfg.Tracing.SamplingRate)
	assert.Equal(t, "/tmp/workcatalog.prom", cfg.Metrics.TextfilePath)
	assert.False(t, cfg.Events.Enabled)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_ValidFullConfig(t *testing.T) {
	path := writeTestConfig(t, `
[api]
base_url = "https://books.example.com"
timeout = "30s"
environment = "production"
user_agent = "bookcat-test/1.0"

[session]
backend = "redis"
redis_addr = "localhost:6379"
redis_password = "secret"
redis_db = 2
redis_prefix = "bc:"

[fallback]
enabled = false

[upload]
max_file_size = "10MiB"
allowed_types = [".pdf", ".epub"]

[ui]
page_size = 25

[logging]
log_level = "debug"
log_format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://books.example.com", cfg.API.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.API.TimeoutDuration())
	assert.True(t, cfg.API.IsProduction())
	assert.Equal(t, "bookcat-test/1.0", cfg.API.UserAgent)
	assert.Equal(t, "redis", cfg.Session.Backend)
	assert.Equal(t, 2, cfg.Session.RedisDB)
	assert.Equal(t, "bc:", cfg.Session.RedisPrefix)
	assert.False(t, cfg.Fallback.Enabled)
	assert.Equal(t, int64(10_485_760), cfg.Upload.MaxFileSizeBytes())
	assert.Equal(t, []string{".pdf", ".epub"}, cfg.Upload.AllowedTypes)
	assert.Equal(t, 25, cfg.UI.PageSize)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
}

func TestLoad_PartialConfigKeepsDefaults(t *testing.T) {
	path := writeTestConfig(t, "[api]\nbase_url = \"http://backend:9000\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://backend:9000", cfg.API.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.API.TimeoutDuration())
	assert.Equal(t, "sqlite", cfg.Session.Backend)
	assert.True(t, cfg.Fallback.Enabled)
	assert.Equal(t, int64(50_000_000), cfg.Upload.MaxFileSizeBytes())
	assert.Equal(t, defaultAllowedTypes, cfg.Upload.AllowedTypes)
	assert.Equal(t, 10, cfg.UI.PageSize)
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeTestConfig(t, "[api\nbase_url = 1")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config file")
}

func TestLoad_ValidationErrorsAccumulate(t *testing.T) {
	path := writeTestConfig(t, `
[api]
timeout = "forever"

[ui]
page_size = 0
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Contains(t, err.Error(), "page_size")
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfigPath_Precedence(t *testing.T) {
	assert.Equal(t, "/cli.toml", ConfigPath(EnvOverrides{ConfigPath: "/env.toml"}, CLIOverrides{ConfigPath: "/cli.toml"}))
	assert.Equal(t, "/env.toml", ConfigPath(EnvOverrides{ConfigPath: "/env.toml"}, CLIOverrides{}))
	assert.Equal(t, DefaultConfigPath(), ConfigPath(EnvOverrides{}, CLIOverrides{}))
}

func TestResolve_Layers(t *testing.T) {
	path := writeTestConfig(t, `
[api]
base_url = "http://from-file:8000"
timeout = "5s"

[fallback]
enabled = true
`)

	env := EnvOverrides{
		BaseURL:        "http://from-env:8000",
		TimeoutMillis:  "2500",
		EnableMockData: "false",
		SessionBackend: "file",
	}

	r, err := Resolve(env, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)

	assert.Equal(t, path, r.Path)
	assert.Equal(t, "http://from-env:8000", r.API.BaseURL)
	assert.Equal(t, 2500*time.Millisecond, r.API.TimeoutDuration())
	assert.False(t, r.Fallback.Enabled)
	assert.Equal(t, "file", r.Session.Backend)

	cliURL := "http://from-cli:8000"
	prod := true

	r, err = Resolve(env, CLIOverrides{ConfigPath: path, BaseURL: &cliURL, Production: &prod, Ephemeral: true})
	require.NoError(t, err)

	assert.Equal(t, cliURL, r.API.BaseURL)
	assert.True(t, r.API.IsProduction())
	assert.Equal(t, "memory", r.Session.Backend)
}

func TestResolve_ProductionFlagFalseDowngrades(t *testing.T) {
	path := writeTestConfig(t, "[api]\nenvironment = \"production\"\n")
	off := false

	r, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path, Production: &off})
	require.NoError(t, err)
	assert.Equal(t, EnvironmentDevelopment, r.API.Environment)
}

func TestResolve_NoFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	r, err := Resolve(EnvOverrides{}, CLIOverrides{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, defaultBaseURL, r.API.BaseURL)
	assert.True(t, r.Fallback.Enabled)
}

func TestResolve_BadEnvValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	_, err := Resolve(EnvOverrides{TimeoutMillis: "soon", EnableMockData: "maybe"}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvTimeoutMillis)
	assert.Contains(t, err.Error(), EnvEnableMockData)
}

func TestResolve_EnvFailsValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.toml")

	_, err := Resolve(EnvOverrides{SessionBackend: "postgres"}, CLIOverrides{ConfigPath: path})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend")
}

func TestReadEnvOverrides(t *testing.T) {
	t.Setenv(EnvConfig, "/tmp/c.toml")
	t.Setenv(EnvBaseURL, "http://x:1")
	t.Setenv(EnvTimeoutMillis, "100")
	t.Setenv(EnvEnvironment, "test")
	t.Setenv(EnvEnableMockData, "true")
	t.Setenv(EnvSessionBackend, "memory")

	assert.Equal(t, EnvOverrides{
		ConfigPath:     "/tmp/c.toml",
		BaseURL:        "http://x:1",
		TimeoutMillis:  "100",
		Environment:    "test",
		EnableMockData: "true",
		SessionBackend: "memory",
	}, ReadEnvOverrides())
}

func TestSessionConfig_EffectivePath(t *testing.T) {
	assert.Equal(t, "/var/lib/bc.db", SessionConfig{Backend: "sqlite", Path: "/var/lib/bc.db"}.EffectivePath())
	assert.Equal(t, sessionDBName, filepath.Base(SessionConfig{Backend: "sqlite"}.EffectivePath()))
	assert.Equal(t, sessionJSONName, filepath.Base(SessionConfig{Backend: "file"}.EffectivePath()))

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "s.json"), SessionConfig{Path: "~/s.json"}.EffectivePath())
}

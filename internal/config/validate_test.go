package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_ValidDefaults(t *testing.T) {
	assert.NoError(t, Validate(DefaultConfig()))
}

func TestValidate_FieldErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"base url scheme", func(c *Config) { c.API.BaseURL = "ftp://x" }, "base_url"},
		{"base url host", func(c *Config) { c.API.BaseURL = "http://" }, "base_url"},
		{"timeout syntax", func(c *Config) { c.API.Timeout = "10" }, "timeout"},
		{"timeout too small", func(c *Config) { c.API.Timeout = "1ms" }, "timeout"},
		{"timeout too large", func(c *Config) { c.API.Timeout = "1h" }, "timeout"},
		{"environment", func(c *Config) { c.API.Environment = "staging" }, "environment"},
		{"backend", func(c *Config) { c.Session.Backend = "etcd" }, "backend"},
		{"redis without addr", func(c *Config) { c.Session.Backend = "redis" }, "redis_addr"},
		{"redis db", func(c *Config) { c.Session.RedisDB = -1 }, "redis_db"},
		{"max file size", func(c *Config) { c.Upload.MaxFileSize = "big" }, "max_file_size"},
		{"allowed types", func(c *Config) { c.Upload.AllowedTypes = []string{"pdf"} }, "allowed_types"},
		{"page size", func(c *Config) { c.UI.PageSize = 101 }, "page_size"},
		{"log level", func(c *Config) { c.Logging.LogLevel = "trace" }, "log_level"},
		{"log format", func(c *Config) { c.Logging.LogFormat = "xml" }, "log_format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestValidate_RedisWithAddr(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Session.Backend = "redis"
	cfg.Session.RedisAddr = "localhost:6379"

	assert.NoError(t, Validate(cfg))
}

func TestValidate_ZeroSizeMeansUnlimited(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Upload.MaxFileSize = "0"

	require.NoError(t, Validate(cfg))
	assert.Zero(t, cfg.Upload.MaxFileSizeBytes())
}

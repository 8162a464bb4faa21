// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for bookcat. Values are layered
// defaults -> config file -> environment -> CLI flags.
package config

import (
	"path/filepath"
	"time"
)

// Config is the top-level configuration structure parsed from a TOML file.
type Config struct {
	API      APIConfig      `toml:"api" json:"api" yaml:"api"`
	Session  SessionConfig  `toml:"session" json:"session" yaml:"session"`
	Fallback FallbackConfig `toml:"fallback" json:"fallback" yaml:"fallback"`
	Upload   UploadConfig   `toml:"upload" json:"upload" yaml:"upload"`
	UI       UIConfig       `toml:"ui" json:"ui" yaml:"ui"`
	Logging  LoggingConfig  `toml:"logging" json:"logging" yaml:"logging"`
}

// APIConfig controls how the backend is reached.
type APIConfig struct {
	BaseURL     string `toml:"base_url" json:"base_url" yaml:"base_url"`
	Timeout     string `toml:"timeout" json:"timeout" yaml:"timeout"`
	Environment string `toml:"environment" json:"environment" yaml:"environment"`
	UserAgent   string `toml:"user_agent" json:"user_agent" yaml:"user_agent"`
}

// SessionConfig selects where the login session is persisted. Path is the
// sqlite database or JSON file; empty means the platform data directory.
type SessionConfig struct {
	Backend       string `toml:"backend" json:"backend" yaml:"backend"`
	Path          string `toml:"path" json:"path" yaml:"path"`
	RedisAddr     string `toml:"redis_addr" json:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `toml:"redis_password" json:"redis_password" yaml:"redis_password"`
	RedisDB       int    `toml:"redis_db" json:"redis_db" yaml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix" json:"redis_prefix" yaml:"redis_prefix"`
}

// FallbackConfig is the global switch for offline substitute data.
type FallbackConfig struct {
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`
}

// UploadConfig limits what document uploads and the drop-folder watcher accept.
type UploadConfig struct {
	MaxFileSize  string   `toml:"max_file_size" json:"max_file_size" yaml:"max_file_size"`
	AllowedTypes []string `toml:"allowed_types" json:"allowed_types" yaml:"allowed_types"`
}

// UIConfig holds presentation defaults.
type UIConfig struct {
	PageSize int `toml:"page_size" json:"page_size" yaml:"page_size"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level" json:"log_level" yaml:"log_level"`
	LogFormat string `toml:"log_format" json:"log_format" yaml:"log_format"`
}

// CLIOverrides holds values from CLI flags. Pointer fields distinguish
// "not specified" (nil) from an explicit zero value.
type CLIOverrides struct {
	ConfigPath string  // --config flag (empty = use default)
	BaseURL    *string // --base-url flag
	Production *bool   // --production flag
	Ephemeral  bool    // --ephemeral: keep the session in memory only
}

// Resolved is a validated Config plus the file it came from.
type Resolved struct {
	*Config `yaml:",inline"`

	// Path is the config file consulted. It may not exist.
	Path string `json:"config_path" yaml:"config_path"`
}

// TimeoutDuration returns the parsed request timeout. Validation guarantees
// the string parses; an unparsable value yields the default.
func (a APIConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(a.Timeout)
	if err != nil || d <= 0 {
		d, _ = time.ParseDuration(defaultTimeout)
	}

	return d
}

// IsProduction reports whether request/response debug logging is disabled.
func (a APIConfig) IsProduction() bool {
	return a.Environment == EnvironmentProduction
}

// MaxFileSizeBytes returns the upload limit in bytes; zero means unlimited.
func (u UploadConfig) MaxFileSizeBytes() int64 {
	n, err := ParseSize(u.MaxFileSize)
	if err != nil {
		return 0
	}

	return n
}

// EffectivePath returns the configured session file, or the platform default
// for the backend when none is set.
func (s SessionConfig) EffectivePath() string {
	if s.Path != "" {
		return expandTilde(s.Path)
	}

	name := sessionDBName
	if s.Backend == sessionBackendFile {
		name = sessionJSONName
	}

	dir := DefaultDataDir()
	if dir == "" {
		return name
	}

	return filepath.Join(dir, name)
}

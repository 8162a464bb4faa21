package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal, with "did you mean?" suggestions.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return DefaultConfig(), nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// ConfigPath picks the config file: CLI > env > platform default.
func ConfigPath(env EnvOverrides, cli CLIOverrides) string {
	if cli.ConfigPath != "" {
		return cli.ConfigPath
	}

	if env.ConfigPath != "" {
		return env.ConfigPath
	}

	return DefaultConfigPath()
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*Resolved, error) {
	path := ConfigPath(env, cli)

	cfg, err := LoadOrDefault(path)
	if err != nil {
		return nil, err
	}

	if err := applyEnv(cfg, env); err != nil {
		return nil, err
	}

	applyCLI(cfg, cli)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &Resolved{Config: cfg, Path: path}, nil
}

func applyEnv(cfg *Config, env EnvOverrides) error {
	var errs []error

	if env.BaseURL != "" {
		cfg.API.BaseURL = env.BaseURL
	}

	if env.TimeoutMillis != "" {
		ms, err := strconv.Atoi(env.TimeoutMillis)
		if err != nil || ms <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be a positive number of milliseconds, got %q",
				EnvTimeoutMillis, env.TimeoutMillis))
		} else {
			cfg.API.Timeout = (time.Duration(ms) * time.Millisecond).String()
		}
	}

	if env.Environment != "" {
		cfg.API.Environment = env.Environment
	}

	if env.EnableMockData != "" {
		enabled, err := strconv.ParseBool(env.EnableMockData)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: must be true or false, got %q",
				EnvEnableMockData, env.EnableMockData))
		} else {
			cfg.Fallback.Enabled = enabled
		}
	}

	if env.SessionBackend != "" {
		cfg.Session.Backend = env.SessionBackend
	}

	return errors.Join(errs...)
}

func applyCLI(cfg *Config, cli CLIOverrides) {
	if cli.BaseURL != nil {
		cfg.API.BaseURL = *cli.BaseURL
	}

	if cli.Production != nil {
		if *cli.Production {
			cfg.API.Environment = EnvironmentProduction
		} else if cfg.API.Environment == EnvironmentProduction {
			cfg.API.Environment = EnvironmentDevelopment
		}
	}

	if cli.Ephemeral {
		cfg.Session.Backend = sessionBackendMemory
	}
}

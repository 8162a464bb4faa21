package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validation range constants.
const (
	minTimeout  = 100 * time.Millisecond
	maxTimeout  = 10 * time.Minute
	minPageSize = 1
	maxPageSize = 100
)

// Session backend names. Mirrors the session package without importing it.
const (
	sessionBackendSQLite = "sqlite"
	sessionBackendFile   = "file"
	sessionBackendRedis  = "redis"
	sessionBackendMemory = "memory"
)

// Validate checks all configuration values and returns every error found,
// so users can fix all issues in one pass.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validateAPI(&cfg.API)...)
	errs = append(errs, validateSession(&cfg.Session)...)
	errs = append(errs, validateUpload(&cfg.Upload)...)
	errs = append(errs, validateUI(&cfg.UI)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return errors.Join(errs...)
}

func validateAPI(a *APIConfig) []error {
	var errs []error

	if err := validateBaseURL(a.BaseURL); err != nil {
		errs = append(errs, err)
	}

	d, err := time.ParseDuration(a.Timeout)

	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("timeout: invalid duration %q: %w", a.Timeout, err))
	case d < minTimeout || d > maxTimeout:
		errs = append(errs, fmt.Errorf("timeout: must be between %s and %s, got %s", minTimeout, maxTimeout, d))
	}

	errs = append(errs, validateEnum("environment", a.Environment,
		EnvironmentDevelopment, EnvironmentProduction, EnvironmentTest)...)

	return errs
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("base_url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("base_url: scheme must be http or https, got %q", raw)
	}

	if u.Host == "" {
		return fmt.Errorf("base_url: missing host in %q", raw)
	}

	return nil
}

func validateSession(s *SessionConfig) []error {
	errs := validateEnum("backend", s.Backend,
		sessionBackendSQLite, sessionBackendFile, sessionBackendRedis, sessionBackendMemory)

	if s.Backend == sessionBackendRedis && s.RedisAddr == "" {
		errs = append(errs, errors.New("redis_addr: required when backend is \"redis\""))
	}

	if s.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("redis_db: must be >= 0, got %d", s.RedisDB))
	}

	return errs
}

func validateUpload(u *UploadConfig) []error {
	var errs []error

	if _, err := ParseSize(u.MaxFileSize); err != nil {
		errs = append(errs, fmt.Errorf("max_file_size: %w", err))
	}

	for _, ext := range u.AllowedTypes {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			errs = append(errs, fmt.Errorf("allowed_types: %q must be an extension with a leading dot", ext))
		}
	}

	return errs
}

func validateUI(u *UIConfig) []error {
	if u.PageSize < minPageSize || u.PageSize > maxPageSize {
		return []error{fmt.Errorf("page_size: must be between %d and %d, got %d",
			minPageSize, maxPageSize, u.PageSize)}
	}

	return nil
}

func validateLogging(l *LoggingConfig) []error {
	var errs []error

	errs = append(errs, validateEnum("log_level", l.LogLevel, "debug", "info", "warn", "error")...)
	errs = append(errs, validateEnum("log_format", l.LogFormat, "auto", "text", "json")...)

	return errs
}

func validateEnum(field, value string, allowed ...string) []error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}

	return []error{fmt.Errorf("%s: must be one of %s; got %q", field, strings.Join(allowed, ", "), value)}
}

package config

import (
	"fmt"
	"io"
	"strings"
)

// redacted replaces secrets in rendered output.
const redacted = "********"

// RenderEffective writes the resolved configuration as an annotated TOML
// summary to w. This powers "config show".
func RenderEffective(r *Resolved, w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("# Effective configuration (file: %s)\n\n", r.Path)

	renderAPI(ew, &r.API)
	renderSession(ew, &r.Session)

	ew.printf("[fallback]\n")
	ew.printf("  enabled = %t\n\n", r.Fallback.Enabled)

	ew.printf("[upload]\n")
	ew.printf("  max_file_size = %q\n", r.Upload.MaxFileSize)
	ew.printf("  allowed_types = [%s]\n\n", joinQuoted(r.Upload.AllowedTypes))

	ew.printf("[ui]\n")
	ew.printf("  page_size = %d\n\n", r.UI.PageSize)

	ew.printf("[logging]\n")
	ew.printf("  log_level  = %q\n", r.Logging.LogLevel)
	ew.printf("  log_format = %q\n", r.Logging.LogFormat)

	return ew.err
}

// errWriter captures the first write error so callers can chain printf
// calls without checking each one.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}

	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func renderAPI(ew *errWriter, a *APIConfig) {
	ew.printf("[api]\n")
	ew.printf("  base_url    = %q\n", a.BaseURL)
	ew.printf("  timeout     = %q\n", a.Timeout)
	ew.printf("  environment = %q\n", a.Environment)

	if a.UserAgent != "" {
		ew.printf("  user_agent  = %q\n", a.UserAgent)
	}

	ew.printf("\n")
}

func renderSession(ew *errWriter, s *SessionConfig) {
	ew.printf("[session]\n")
	ew.printf("  backend = %q\n", s.Backend)

	switch s.Backend {
	case sessionBackendSQLite, sessionBackendFile:
		ew.printf("  path    = %q\n", s.EffectivePath())
	case sessionBackendRedis:
		ew.printf("  redis_addr   = %q\n", s.RedisAddr)
		ew.printf("  redis_db     = %d\n", s.RedisDB)
		ew.printf("  redis_prefix = %q\n", s.RedisPrefix)

		if s.RedisPassword != "" {
			ew.printf("  redis_password = %q\n", redacted)
		}
	}

	ew.printf("\n")
}

// joinQuoted formats a string slice as comma-separated quoted values.
func joinQuoted(items []string) string {
	quoted := make([]string, len(items))
	for i, item := range items {
		quoted[i] = fmt.Sprintf("%q", item)
	}

	return strings.Join(quoted, ", ")
}

// Redacted returns a copy of r safe to print in structured form.
func (r *Resolved) Redacted() *Resolved {
	cfg := *r.Config
	cfg.Upload.AllowedTypes = append([]string(nil), r.Upload.AllowedTypes...)

	if cfg.Session.RedisPassword != "" {
		cfg.Session.RedisPassword = redacted
	}

	return &Resolved{Config: &cfg, Path: r.Path}
}

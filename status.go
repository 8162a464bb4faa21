package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/shelfwise/bookcat/internal/api"
)

// Token state constants for status reporting.
const (
	tokenStateMissing = "missing"
	tokenStateExpired = "expired"
	tokenStateValid   = "valid"
	tokenStateOffline = "offline"
	tokenStateOpaque  = "opaque"
)

// Backend state constants for status reporting.
const (
	backendReachable   = "reachable"
	backendDegraded    = "degraded"
	backendUnreachable = "unreachable"
)

const (
	statusProbeTimeout = 3 * time.Second
	offlineTokenPrefix = "mock-jwt-token-"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show backend, session and config status",
		Long: `Display the effective backend address, whether it answers, the stored
session and its token state, and where configuration and session data live.`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

// statusOutput is the schema for `status --json`.
type statusOutput struct {
	BaseURL        string   `json:"base_url" yaml:"base_url"`
	Environment    string   `json:"environment" yaml:"environment"`
	Backend        string   `json:"backend" yaml:"backend"`
	BackendDetail  string   `json:"backend_detail,omitempty" yaml:"backend_detail,omitempty"`
	Fallback       bool     `json:"fallback" yaml:"fallback"`
	Username       string   `json:"username,omitempty" yaml:"username,omitempty"`
	Roles          []string `json:"roles" yaml:"roles"`
	TokenState     string   `json:"token_state" yaml:"token_state"`
	ConfigPath     string   `json:"config_path" yaml:"config_path"`
	SessionBackend string   `json:"session_backend" yaml:"session_backend"`
	SessionPath    string   `json:"session_path,omitempty" yaml:"session_path,omitempty"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	sess, err := cc.Session.Snapshot(cmd.Context())
	if err != nil {
		return err
	}

	out := statusOutput{
		BaseURL:        cc.Client.BaseURL(),
		Environment:    cc.Cfg.API.Environment,
		Fallback:       cc.Cfg.Fallback.Enabled,
		Username:       sess.Username,
		Roles:          sess.Roles,
		TokenState:     tokenState(sess.Token, time.Now()),
		ConfigPath:     cc.Cfg.Path,
		SessionBackend: cc.Cfg.Session.Backend,
	}

	switch cc.Cfg.Session.Backend {
	case "sqlite", "file":
		out.SessionPath = cc.Cfg.Session.EffectivePath()
	case "redis":
		out.SessionPath = cc.Cfg.Session.RedisAddr
	}

	out.Backend, out.BackendDetail = probeBackend(cmd.Context(), cc.Client, cc.Logger)

	return cc.emit(out, false, func(w io.Writer) {
		printStatus(w, out)
	})
}

// tokenState classifies a stored token. Only JWTs carry an expiry; other
// tokens are reported as offline or opaque.
func tokenState(token string, now time.Time) string {
	switch {
	case token == "":
		return tokenStateMissing
	case strings.HasPrefix(token, offlineTokenPrefix):
		return tokenStateOffline
	}

	claims := parseClaims(token)
	if claims == nil {
		return tokenStateOpaque
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return tokenStateValid
	}

	if now.After(exp.Time) {
		return tokenStateExpired
	}

	return tokenStateValid
}

// probeBackend issues one GET to the backend root. Any HTTP answer below
// 500 counts as reachable.
func probeBackend(ctx context.Context, client *api.Client, logger *slog.Logger) (string, string) {
	_, err := client.Get(ctx, "/", api.WithTimeout(statusProbeTimeout))
	if err == nil {
		return backendReachable, ""
	}

	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		apiErr = api.Classify(err)
	}

	logger.Debug("backend probe", slog.String("kind", apiErr.Kind.String()), slog.String("error", err.Error()))

	switch apiErr.Kind {
	case api.KindNetworkUnreachable:
		return backendUnreachable, apiErr.Message
	case api.KindServerError, api.KindServiceUnavailable:
		return backendDegraded, apiErr.Message
	default:
		return backendReachable, ""
	}
}

func printStatus(w io.Writer, out statusOutput) {
	backend := out.Backend
	if out.BackendDetail != "" {
		backend = fmt.Sprintf("%s (%s)", out.Backend, out.BackendDetail)
	}

	fmt.Fprintf(w, "Backend:  %s  %s\n", out.BaseURL, backend)
	fmt.Fprintf(w, "Env:      %s  (offline fallback: %s)\n", out.Environment, onOff(out.Fallback))

	if out.TokenState == tokenStateMissing {
		fmt.Fprintln(w, "Session:  not logged in")
	} else {
		name := out.Username
		if name == "" {
			name = "(unknown)"
		}

		fmt.Fprintf(w, "Session:  %s, roles %s, token %s\n", name, joinRoles(out.Roles), out.TokenState)
	}

	fmt.Fprintf(w, "Config:   %s\n", out.ConfigPath)

	if out.SessionPath != "" {
		fmt.Fprintf(w, "Storage:  %s %s\n", out.SessionBackend, out.SessionPath)
	} else {
		fmt.Fprintf(w, "Storage:  %s\n", out.SessionBackend)
	}
}

func onOff(b bool) string {
	if b {
		return "on"
	}

	return "off"
}

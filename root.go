package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/catalog"
	"github.com/shelfwise/bookcat/internal/config"
	"github.com/shelfwise/bookcat/internal/session"
)

// version is set at build time via ldflags.
var version = "dev"

// skipConfigAnnotation marks commands that must run even when the config
// file is broken, such as the ones that write it.
const skipConfigAnnotation = "skipConfig"

// Output formats accepted by --output.
const (
	outputTable = "table"
	outputJSON  = "json"
	outputYAML  = "yaml"
)

// CLIFlags holds the global persistent flags.
type CLIFlags struct {
	ConfigPath string
	JSON       bool
	Output     string
	Verbose    bool
	Quiet      bool
	BaseURL    string
	Production bool
	Ephemeral  bool
}

// CLIContext is built once per invocation by the root pre-run and carried
// on the command's context.
type CLIContext struct {
	Flags  CLIFlags
	Cfg    *config.Resolved
	Logger *slog.Logger

	Session *session.Store
	Client  *api.Client
	Svc     *catalog.Service

	Out    io.Writer
	ErrOut io.Writer

	kv session.KV
}

type cliContextKey struct{}

// mustCLIContext returns the CLIContext stored by the root pre-run. A
// missing context is a wiring bug.
func mustCLIContext(ctx context.Context) *CLIContext {
	cc, ok := ctx.Value(cliContextKey{}).(*CLIContext)
	if !ok {
		panic("bookcat: command context has no CLIContext")
	}

	return cc
}

// Statusf prints a status line to stderr unless --quiet is set.
func (cc *CLIContext) Statusf(format string, args ...any) {
	if !cc.Flags.Quiet {
		fmt.Fprintf(cc.ErrOut, format, args...)
	}
}

// format returns the effective output format; --json wins over --output.
func (cc *CLIContext) format() string {
	if cc.Flags.JSON {
		return outputJSON
	}

	return cc.Flags.Output
}

func newRootCmd() *cobra.Command {
	flags := &CLIFlags{}

	cmd := &cobra.Command{
		Use:   "bookcat",
		Short: "Book catalog client",
		Long: `Manage books, authors, genres, documents and users on a book catalog
backend, and query its retrieval-augmented search.

When the backend cannot be reached, read commands show built-in sample data
unless [fallback] enabled = false or BOOKCAT_ENABLE_MOCK_DATA=false.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupCLIContext(cmd, *flags)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return teardownCLIContext(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&flags.ConfigPath, "config", "", "config file path")
	pf.BoolVar(&flags.JSON, "json", false, "output in JSON format (same as --output json)")
	pf.StringVarP(&flags.Output, "output", "o", outputTable, "output format: table, json, yaml")
	pf.BoolVarP(&flags.Verbose, "verbose", "v", false, "enable debug logging, including the request/response trace")
	pf.BoolVarP(&flags.Quiet, "quiet", "q", false, "suppress informational output")
	pf.StringVar(&flags.BaseURL, "base-url", "", "backend address (overrides config)")
	pf.BoolVar(&flags.Production, "production", false, "disable request/response debug logging")
	pf.BoolVar(&flags.Ephemeral, "ephemeral", false, "keep the session in memory for this invocation only")

	cmd.AddCommand(
		newLoginCmd(),
		newSignupCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newBooksCmd(),
		newAuthorsCmd(),
		newGenresCmd(),
		newDocumentsCmd(),
		newRAGCmd(),
		newUsersCmd(),
		newRolesCmd(),
		newIngestionCmd(),
		newImbibingCmd(),
		newRecommendationsCmd(),
		newStatusCmd(),
		newConfigCmd(),
	)

	return cmd
}

// setupCLIContext resolves config and builds the logger, session store,
// API client and catalog service shared by every subcommand.
func setupCLIContext(cmd *cobra.Command, flags CLIFlags) error {
	switch flags.Output {
	case outputTable, outputJSON, outputYAML:
	default:
		return fmt.Errorf("--output must be one of table, json, yaml; got %q", flags.Output)
	}

	cc := &CLIContext{
		Flags:  flags,
		Out:    cmd.OutOrStdout(),
		ErrOut: cmd.ErrOrStderr(),
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(context.WithValue(ctx, cliContextKey{}, cc))

	if cmd.Annotations[skipConfigAnnotation] == "true" {
		cc.Logger = buildLogger(nil, flags, cc.ErrOut)
		return nil
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cliOverrides(cmd, flags))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cc.Cfg = resolved
	cc.Logger = buildLogger(resolved, flags, cc.ErrOut)

	kv, err := session.Open(ctx, sessionOptions(resolved), cc.Logger)
	if err != nil {
		return fmt.Errorf("opening session store: %w", err)
	}

	cc.kv = kv
	cc.Session = session.NewStore(kv, cc.Logger)

	cc.Client = api.NewClient(api.Options{
		BaseURL:    resolved.API.BaseURL,
		Timeout:    resolved.API.TimeoutDuration(),
		Production: resolved.API.IsProduction(),
		UserAgent:  resolved.API.UserAgent,
		OnUnauthorized: func(*api.Error) {
			// A rejected login is reported by the login command itself.
			if cmd.Name() != "login" {
				fmt.Fprintln(cc.ErrOut, "Session expired or invalid. Run 'bookcat login' to sign in again.")
			}
		},
	}, cc.Session, cc.Logger)

	cc.Svc = catalog.New(cc.Client, nil, cc.Session, catalog.Options{
		FallbackEnabled: resolved.Fallback.Enabled,
		Logger:          cc.Logger,
	})

	cc.Logger.Debug("cli context ready",
		slog.String("config", resolved.Path),
		slog.String("base_url", cc.Client.BaseURL()),
		slog.String("session_backend", resolved.Session.Backend),
		slog.Bool("fallback", resolved.Fallback.Enabled),
	)

	return nil
}

func teardownCLIContext(cmd *cobra.Command) error {
	cc, ok := cmd.Context().Value(cliContextKey{}).(*CLIContext)
	if !ok || cc.kv == nil {
		return nil
	}

	return cc.kv.Close()
}

// cliOverrides passes only the flags the user actually set.
func cliOverrides(cmd *cobra.Command, flags CLIFlags) config.CLIOverrides {
	cli := config.CLIOverrides{
		ConfigPath: flags.ConfigPath,
		Ephemeral:  flags.Ephemeral,
	}

	if cmd.Flags().Changed("base-url") {
		cli.BaseURL = &flags.BaseURL
	}

	if cmd.Flags().Changed("production") {
		cli.Production = &flags.Production
	}

	return cli
}

func sessionOptions(r *config.Resolved) session.Options {
	return session.Options{
		Backend:       r.Session.Backend,
		Path:          r.Session.EffectivePath(),
		RedisAddr:     r.Session.RedisAddr,
		RedisPassword: r.Session.RedisPassword,
		RedisDB:       r.Session.RedisDB,
		RedisPrefix:   r.Session.RedisPrefix,
	}
}

// buildLogger creates the process logger. The config level is the baseline;
// --verbose and --quiet override it. log_format auto picks text on a
// terminal and JSON otherwise.
func buildLogger(r *config.Resolved, flags CLIFlags, w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	format := "auto"

	if r != nil {
		format = r.Logging.LogFormat

		switch r.Logging.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "error":
			level = slog.LevelError
		}
	}

	if flags.Verbose {
		level = slog.LevelDebug
	}

	if flags.Quiet {
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if format == "json" || (format == "auto" && !isTerminal(w)) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// reportError prints err as "Error: <message>" and returns the exit status.
// Backend failures show their classified message, keeping any context the
// command wrapped around them.
func reportError(w io.Writer, err error) int {
	msg := err.Error()

	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		prefix, wrapped := strings.CutSuffix(msg, ": "+apiErr.Error())

		switch {
		case msg == apiErr.Error():
			msg = apiErr.Message
		case wrapped:
			msg = prefix + ": " + apiErr.Message
		}
	}

	fmt.Fprintf(w, "Error: %s\n", msg)

	return 1
}

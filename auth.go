package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/shelfwise/bookcat/internal/domain"
	"github.com/shelfwise/bookcat/internal/session"
)

var errNotLoggedIn = errors.New("not logged in, run 'bookcat login' first")

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Long: `Sign in with a username and password. The password is read from stdin
when --password is not given.`,
		Args: cobra.NoArgs,
		RunE: runLogin,
	}

	cmd.Flags().StringP("username", "u", "", "account name (required)")
	cmd.Flags().StringP("password", "p", "", "account password")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func newSignupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		Args:  cobra.NoArgs,
		RunE:  runSignup,
	}

	cmd.Flags().StringP("username", "u", "", "account name (required)")
	cmd.Flags().StringP("password", "p", "", "account password")
	cmd.Flags().String("email", "", "contact email")
	_ = cmd.MarkFlagRequired("username")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Display the signed-in user and roles",
		Args:  cobra.NoArgs,
		RunE:  runWhoami,
	}
}

// credentials returns the username and password flags, prompting on stdin
// for a missing password.
func credentials(cmd *cobra.Command) (string, string, error) {
	username, _ := cmd.Flags().GetString("username")
	password, _ := cmd.Flags().GetString("password")

	if strings.TrimSpace(username) == "" {
		return "", "", errors.New("username must not be empty")
	}

	if password != "" {
		return username, password, nil
	}

	password, err := readPassword(cmd.InOrStdin())
	if err != nil {
		return "", "", err
	}

	return username, password, nil
}

func readPassword(r io.Reader) (string, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}

		return "", errors.New("password required: pass --password or pipe it on stdin")
	}

	pw := strings.TrimRight(sc.Text(), "\r")
	if pw == "" {
		return "", errors.New("password must not be empty")
	}

	return pw, nil
}

func runLogin(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	username, password, err := credentials(cmd)
	if err != nil {
		return err
	}

	cc.Logger.Info("login started", slog.String("username", username))

	resp, err := cc.Svc.Auth.Login(cmd.Context(), username, password)
	if err != nil {
		return err
	}

	if resp.BearerToken() == "" {
		msg := resp.Message
		if msg == "" {
			msg = "login response carried no token"
		}

		return fmt.Errorf("login failed: %s", msg)
	}

	return cc.emit(loginOutput{Username: username, Roles: resp.Roles}, false, func(w io.Writer) {
		fmt.Fprintf(w, "Logged in as %s (roles: %s).\n", username, joinRoles(resp.Roles))
	})
}

type loginOutput struct {
	Username string   `json:"username" yaml:"username"`
	Roles    []string `json:"roles" yaml:"roles"`
}

func runSignup(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	username, password, err := credentials(cmd)
	if err != nil {
		return err
	}

	email, _ := cmd.Flags().GetString("email")

	env, err := cc.Svc.Auth.Signup(cmd.Context(), domain.SignupRequest{
		Username: username,
		Password: password,
		Email:    email,
	})
	if err != nil {
		return err
	}

	text := env.Data.Message
	if text == "" {
		text = fmt.Sprintf("Account %s created. Run 'bookcat login' to sign in.", username)
	}

	return cc.emitMessage(env.Data, env.Substituted, text)
}

func runLogout(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	if err := cc.Svc.Auth.Logout(cmd.Context()); err != nil {
		return err
	}

	cc.Logger.Info("logged out")
	cc.Statusf("Logged out.\n")

	return nil
}

// whoamiOutput is the schema for `whoami --json`.
type whoamiOutput struct {
	Username  string     `json:"username,omitempty" yaml:"username,omitempty"`
	Roles     []string   `json:"roles" yaml:"roles"`
	Admin     bool       `json:"admin" yaml:"admin"`
	BaseURL   string     `json:"base_url" yaml:"base_url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())

	sess, err := cc.Svc.Auth.Session(cmd.Context())
	if err != nil {
		return err
	}

	if !sess.LoggedIn() {
		return errNotLoggedIn
	}

	out := whoamiOutput{
		Username:  sess.Username,
		Roles:     sess.Roles,
		Admin:     sess.HasRole(session.RoleAdmin),
		BaseURL:   cc.Client.BaseURL(),
		ExpiresAt: tokenExpiry(sess.Token, cc.Logger),
	}

	if out.Username == "" {
		out.Username = tokenSubject(sess.Token)
	}

	return cc.emit(out, false, func(w io.Writer) {
		printWhoami(w, out)
	})
}

func printWhoami(w io.Writer, out whoamiOutput) {
	name := out.Username
	if name == "" {
		name = "(unknown)"
	}

	fmt.Fprintf(w, "User:    %s\n", name)
	fmt.Fprintf(w, "Roles:   %s\n", joinRoles(out.Roles))
	fmt.Fprintf(w, "Backend: %s\n", out.BaseURL)

	if out.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires: %s\n", out.ExpiresAt.Local().Format(time.DateTime))
	}
}

// parseClaims decodes the token payload without verifying the signature;
// the backend remains the authority on validity. Offline tokens are not
// JWTs and yield nil.
func parseClaims(token string) jwt.MapClaims {
	claims := jwt.MapClaims{}

	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil
	}

	return claims
}

func tokenExpiry(token string, logger *slog.Logger) *time.Time {
	claims := parseClaims(token)
	if claims == nil {
		logger.Debug("session token is not a JWT")
		return nil
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}

	t := exp.Time

	return &t
}

func tokenSubject(token string) string {
	claims := parseClaims(token)
	if claims == nil {
		return ""
	}

	sub, err := claims.GetSubject()
	if err != nil {
		return ""
	}

	return sub
}

func joinRoles(roles []string) string {
	if len(roles) == 0 {
		return "none"
	}

	return strings.Join(roles, ", ")
}

// requireLogin fails fast when no session is stored, before any request.
func requireLogin(cmd *cobra.Command) error {
	cc := mustCLIContext(cmd.Context())

	sess, err := cc.Session.Snapshot(cmd.Context())
	if err != nil {
		return err
	}

	if !sess.LoggedIn() {
		return errNotLoggedIn
	}

	return nil
}

// requireAdmin additionally checks the stored roles. The backend enforces
// the same rule; this only saves a round trip.
func requireAdmin(cmd *cobra.Command) error {
	if err := requireLogin(cmd); err != nil {
		return err
	}

	cc := mustCLIContext(cmd.Context())

	admin, err := cc.Session.IsAdmin(cmd.Context())
	if err != nil {
		return err
	}

	if !admin {
		return errors.New("this command requires the admin role")
	}

	return nil
}

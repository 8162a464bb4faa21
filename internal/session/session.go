// Package session persists the client's login state (token, roles,
// username) in a key-value store and exposes it as a single injected
// Store. Readers get a fresh snapshot on every call; nothing is cached.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
)

// Persisted keys. KeyUser holds the legacy {"username": ...} object that
// older pages read; it is written on login and removed on logout.
const (
	KeyToken    = "token"
	KeyRoles    = "userRoles"
	KeyUsername = "username"
	KeyUser     = "user"
)

// RoleAdmin is the role name that unlocks admin commands.
const RoleAdmin = "admin"

// ErrIncompleteSession is returned by Save when the session has no token.
var ErrIncompleteSession = errors.New("session: token is required")

// allKeys lists every key Clear removes.
var allKeys = []string{KeyToken, KeyRoles, KeyUsername, KeyUser}

// Session is the client-held authentication state. Roles keep the order
// the server returned and may repeat.
type Session struct {
	Token    string   `json:"-"`
	Roles    []string `json:"roles"`
	Username string   `json:"username,omitempty"`
}

// LoggedIn reports whether a token is present.
func (s Session) LoggedIn() bool {
	return s.Token != ""
}

// HasRole reports whether role is among the session roles.
func (s Session) HasRole(role string) bool {
	return slices.Contains(s.Roles, role)
}

// Store is the single session owner. Only login, logout and the HTTP
// client's 401 handler write through it.
type Store struct {
	kv     KV
	logger *slog.Logger
}

// NewStore wraps a key-value backend. A nil logger uses slog.Default().
func NewStore(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}

	return &Store{kv: kv, logger: logger}
}

// Snapshot reads the current session. A missing token yields a zero
// Session. Malformed role data is logged and treated as no roles.
func (s *Store) Snapshot(ctx context.Context) (Session, error) {
	tok, _, err := s.kv.Get(ctx, KeyToken)
	if err != nil {
		return Session{}, fmt.Errorf("session: reading token: %w", err)
	}

	roles, err := s.Roles(ctx)
	if err != nil {
		return Session{}, err
	}

	username, _, err := s.kv.Get(ctx, KeyUsername)
	if err != nil {
		return Session{}, fmt.Errorf("session: reading username: %w", err)
	}

	return Session{Token: tok, Roles: roles, Username: username}, nil
}

// Token returns the stored token, or "" when logged out.
func (s *Store) Token(ctx context.Context) (string, error) {
	tok, _, err := s.kv.Get(ctx, KeyToken)
	if err != nil {
		return "", fmt.Errorf("session: reading token: %w", err)
	}

	return tok, nil
}

// Roles returns the stored role list, empty when absent.
func (s *Store) Roles(ctx context.Context) ([]string, error) {
	raw, ok, err := s.kv.Get(ctx, KeyRoles)
	if err != nil {
		return nil, fmt.Errorf("session: reading roles: %w", err)
	}

	if !ok || raw == "" {
		return []string{}, nil
	}

	var roles []string
	if err := json.Unmarshal([]byte(raw), &roles); err != nil {
		s.logger.Warn("ignoring malformed role list", slog.String("error", err.Error()))
		return []string{}, nil
	}

	if roles == nil {
		roles = []string{}
	}

	return roles, nil
}

// IsAdmin reports whether the stored roles include admin.
func (s *Store) IsAdmin(ctx context.Context) (bool, error) {
	roles, err := s.Roles(ctx)
	if err != nil {
		return false, err
	}

	return slices.Contains(roles, RoleAdmin), nil
}

// Save writes token, roles and username in one atomic step. A session
// without a token is rejected and nothing is written.
func (s *Store) Save(ctx context.Context, sess Session) error {
	if sess.Token == "" {
		return ErrIncompleteSession
	}

	roles := sess.Roles
	if roles == nil {
		roles = []string{}
	}

	rolesJSON, err := json.Marshal(roles)
	if err != nil {
		return fmt.Errorf("session: encoding roles: %w", err)
	}

	userJSON, err := json.Marshal(map[string]string{"username": sess.Username})
	if err != nil {
		return fmt.Errorf("session: encoding user: %w", err)
	}

	err = s.kv.SetAll(ctx, map[string]string{
		KeyToken:    sess.Token,
		KeyRoles:    string(rolesJSON),
		KeyUsername: sess.Username,
		KeyUser:     string(userJSON),
	})
	if err != nil {
		return fmt.Errorf("session: saving: %w", err)
	}

	return nil
}

// Clear removes every session key. Clearing an empty session is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, allKeys...); err != nil {
		return fmt.Errorf("session: clearing: %w", err)
	}

	return nil
}

// Close releases the backend.
func (s *Store) Close() error {
	return s.kv.Close()
}

package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
	"github.com/shelfwise/bookcat/internal/mockdata"
	"github.com/shelfwise/bookcat/internal/session"
)

// ErrInvalidCredentials is wrapped by the *api.Error returned when the
// backend rejects a login with 401 or 403.
var ErrInvalidCredentials = errors.New("catalog: invalid credentials")

const msgInvalidCredentials = "Invalid credentials or access denied"

// Auth drives the session state machine: LoggedOut becomes LoggedIn on a
// successful login and returns to LoggedOut on logout or a 401 anywhere.
type Auth struct {
	d *deps
}

// Login posts the credentials to /auth/login and persists the session when
// the response carries a token. A response without a token is returned
// as is and leaves the session untouched.
//
// When the backend is unreachable or failing, and fallback is enabled, an
// offline session is created instead. Its roles are derived from the
// username alone; it exists for demos without a backend and grants nothing
// the backend would honour.
func (a *Auth) Login(ctx context.Context, username, password string) (domain.LoginResponse, error) {
	req := domain.LoginRequest{Username: username, Password: password}

	env, err := direct[domain.LoginResponse](ctx, a.d, http.MethodPost, "/auth/login", req)
	if err != nil {
		return a.loginFailed(ctx, username, err)
	}

	resp := env.Data

	tok := resp.BearerToken()
	if tok == "" {
		a.d.logger.Error("login response carried no token", slog.String("username", username))
		return resp, nil
	}

	roles := resp.Roles
	if roles == nil {
		roles = []string{}
	}

	if err := a.d.session.Save(ctx, session.Session{Token: tok, Roles: roles, Username: username}); err != nil {
		return resp, fmt.Errorf("catalog: saving session: %w", err)
	}

	a.d.logger.Info("logged in", slog.String("username", username), slog.Int("roles", len(roles)))

	return resp, nil
}

func (a *Auth) loginFailed(ctx context.Context, username string, err error) (domain.LoginResponse, error) {
	apiErr := api.Classify(err)

	switch apiErr.Kind {
	case api.KindUnauthorized, api.KindForbidden:
		return domain.LoginResponse{}, &api.Error{
			Kind:    apiErr.Kind,
			Status:  apiErr.Status,
			Message: msgInvalidCredentials,
			Raw:     apiErr.Raw,
			Err:     ErrInvalidCredentials,
		}
	case api.KindNetworkUnreachable, api.KindServerError:
		if a.d.resolver.Enabled() {
			return a.offlineLogin(ctx, username, apiErr)
		}
	}

	return domain.LoginResponse{}, err
}

func (a *Auth) offlineLogin(ctx context.Context, username string, cause *api.Error) (domain.LoginResponse, error) {
	a.d.logger.Warn("backend not available, using mock login",
		slog.String("username", username),
		slog.String("kind", cause.Kind.String()),
	)

	tok := a.d.mock.LoginToken()
	roles := mockdata.LoginRoles(username)

	if err := a.d.session.Save(ctx, session.Session{Token: tok, Roles: roles, Username: username}); err != nil {
		return domain.LoginResponse{}, fmt.Errorf("catalog: saving session: %w", err)
	}

	return domain.LoginResponse{
		AccessToken: tok,
		Roles:       roles,
		User:        &domain.UserSummary{Username: username},
	}, nil
}

// Signup registers a new account. It never falls back.
func (a *Auth) Signup(ctx context.Context, req domain.SignupRequest) (api.Envelope[domain.Message], error) {
	return direct[domain.Message](ctx, a.d, http.MethodPost, "/auth/signup", req)
}

// Logout clears the persisted session. Safe to call when logged out.
func (a *Auth) Logout(ctx context.Context) error {
	if err := a.d.session.Clear(ctx); err != nil {
		return fmt.Errorf("catalog: clearing session: %w", err)
	}

	return nil
}

// Session returns the current persisted session.
func (a *Auth) Session(ctx context.Context) (session.Session, error) {
	return a.d.session.Snapshot(ctx)
}

// Roles returns the persisted roles, empty when logged out.
func (a *Auth) Roles(ctx context.Context) ([]string, error) {
	return a.d.session.Roles(ctx)
}

// IsAdmin reports whether the persisted roles include admin.
func (a *Auth) IsAdmin(ctx context.Context) (bool, error) {
	return a.d.session.IsAdmin(ctx)
}

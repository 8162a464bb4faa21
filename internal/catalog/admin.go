package catalog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
	"github.com/shelfwise/bookcat/internal/fallback"
)

// createUserTimeout replaces the client timeout for user creation, which
// the backend may process slowly while provisioning roles.
const createUserTimeout = 10 * time.Second

var (
	epUsersList   = fallback.Endpoint{Name: "admin.users.list", Policy: fallback.AdminPolicy}
	epUsersUpdate = fallback.Endpoint{Name: "admin.users.update", Policy: fallback.AdminPolicy, Mutating: true}
	epUsersDelete = fallback.Endpoint{Name: "admin.users.delete", Policy: fallback.AdminPolicy, Mutating: true}
	epRolesList   = fallback.Endpoint{Name: "admin.roles.list", Policy: fallback.AdminPolicy}
	epRolesDelete = fallback.Endpoint{Name: "admin.roles.delete", Policy: fallback.AdminPolicy, Mutating: true}
)

// Admin covers user and role management. The paths are not symmetric:
// users live under /admin/users/ with trailing slashes, roles are listed
// and edited under /admin/users/roles but deleted under /admin/roles.
type Admin struct {
	d *deps
}

// ListUsers fetches every user.
func (a *Admin) ListUsers(ctx context.Context) (api.Envelope[[]domain.User], error) {
	return call(ctx, a.d, epUsersList, http.MethodGet, "/admin/users/", nil, a.d.mock.Users)
}

// CreateUser adds a user. It never falls back.
func (a *Admin) CreateUser(ctx context.Context, in domain.UserInput) (api.Envelope[domain.User], error) {
	return direct[domain.User](ctx, a.d, http.MethodPost, "/admin/users/", in,
		api.WithTimeout(createUserTimeout),
		api.WithHeader("Accept", "application/json"),
		api.WithHeader("Content-Type", "application/json"),
	)
}

// UpdateUser changes the fields set in in. Offline, Data is nil when the
// mirror has no such id.
func (a *Admin) UpdateUser(ctx context.Context, id int, in domain.UserInput) (api.Envelope[*domain.User], error) {
	return call(ctx, a.d, epUsersUpdate, http.MethodPut, fmt.Sprintf("/admin/users/%d/", id), in,
		func() *domain.User { return a.d.mock.UpdateUser(id, in) })
}

// DeleteUser removes a user.
func (a *Admin) DeleteUser(ctx context.Context, id int) (api.Envelope[domain.Message], error) {
	return call(ctx, a.d, epUsersDelete, http.MethodDelete, fmt.Sprintf("/admin/users/%d/", id), nil,
		func() domain.Message { return a.d.mock.DeleteUser(id) })
}

// SetUserRole assigns a single role through the legacy endpoint.
func (a *Admin) SetUserRole(ctx context.Context, id int, role string) (api.Envelope[domain.Message], error) {
	body := struct {
		Role string `json:"role"`
	}{Role: role}

	return direct[domain.Message](ctx, a.d, http.MethodPost, fmt.Sprintf("/admin/users/%d/role", id), body)
}

// ListRoles fetches every role.
func (a *Admin) ListRoles(ctx context.Context) (api.Envelope[[]domain.Role], error) {
	return call(ctx, a.d, epRolesList, http.MethodGet, "/admin/users/roles", nil, a.d.mock.Roles)
}

// CreateRole adds a role. It never falls back.
func (a *Admin) CreateRole(ctx context.Context, in domain.RoleInput) (api.Envelope[domain.Role], error) {
	return direct[domain.Role](ctx, a.d, http.MethodPost, "/admin/users/roles", in)
}

// UpdateRole replaces a role. It never falls back.
func (a *Admin) UpdateRole(ctx context.Context, id int, in domain.RoleInput) (api.Envelope[domain.Role], error) {
	return direct[domain.Role](ctx, a.d, http.MethodPut, fmt.Sprintf("/admin/users/roles/%d", id), in)
}

// DeleteRole removes a role.
func (a *Admin) DeleteRole(ctx context.Context, id int) (api.Envelope[domain.Message], error) {
	return call(ctx, a.d, epRolesDelete, http.MethodDelete, fmt.Sprintf("/admin/roles/%d", id), nil,
		func() domain.Message { return a.d.mock.DeleteRole(id) })
}

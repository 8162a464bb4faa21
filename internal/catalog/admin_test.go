package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
)

func TestAdmin_Paths(t *testing.T) {
	rec := &recorder{}
	env := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		rec.record(r)

		if r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`[]`))

			return
		}

		writeJSON(t, w, map[string]any{"id": 1})
	})
	ctx := context.Background()

	_, err := env.svc.Admin.ListUsers(ctx)
	require.NoError(t, err)
	_, err = env.svc.Admin.CreateUser(ctx, domain.UserInput{Username: "u"})
	require.NoError(t, err)
	_, err = env.svc.Admin.UpdateUser(ctx, 7, domain.UserInput{Email: "e@x"})
	require.NoError(t, err)
	_, err = env.svc.Admin.DeleteUser(ctx, 7)
	require.NoError(t, err)
	_, err = env.svc.Admin.SetUserRole(ctx, 7, "editor")
	require.NoError(t, err)
	_, err = env.svc.Admin.ListRoles(ctx)
	require.NoError(t, err)
	_, err = env.svc.Admin.CreateRole(ctx, domain.RoleInput{Name: "r"})
	require.NoError(t, err)
	_, err = env.svc.Admin.UpdateRole(ctx, 3, domain.RoleInput{Name: "r"})
	require.NoError(t, err)
	_, err = env.svc.Admin.DeleteRole(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"GET /admin/users/",
		"POST /admin/users/",
		"PUT /admin/users/7/",
		"DELETE /admin/users/7/",
		"POST /admin/users/7/role",
		"GET /admin/users/roles",
		"POST /admin/users/roles",
		"PUT /admin/users/roles/3",
		"DELETE /admin/roles/3",
	}, rec.Calls())
}

func TestAdmin_CreateUserHeadersAndBody(t *testing.T) {
	var got map[string]any

	env := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(t, w, domain.User{ID: 9, Username: "neo"})
	})

	u, err := env.svc.Admin.CreateUser(context.Background(), domain.UserInput{
		Username: "neo", Password: "pw", Email: "neo@example.com", RoleNames: []string{"user"},
	})
	require.NoError(t, err)
	assert.Equal(t, 9, u.Data.ID)
	assert.Equal(t, []any{"user"}, got["role_names"])
}

func TestAdmin_CreateUserTimesOut(t *testing.T) {
	release := make(chan struct{})

	env := newEnv(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := env.svc.Admin.CreateUser(ctx, domain.UserInput{Username: "slow"})
	require.Error(t, err)
	assert.True(t, api.IsNetworkError(err))
	assert.Len(t, env.mock.Users(), 3, "create user never falls back")
}

func TestAdmin_CreatesNeverFallBack(t *testing.T) {
	env := newOfflineEnv(t, true)
	ctx := context.Background()

	_, err := env.svc.Admin.CreateUser(ctx, domain.UserInput{Username: "u"})
	assert.ErrorIs(t, err, api.ErrNetworkUnreachable)

	_, err = env.svc.Admin.CreateRole(ctx, domain.RoleInput{Name: "r"})
	assert.ErrorIs(t, err, api.ErrNetworkUnreachable)

	_, err = env.svc.Admin.UpdateRole(ctx, 1, domain.RoleInput{Name: "r"})
	assert.ErrorIs(t, err, api.ErrNetworkUnreachable)

	_, err = env.svc.Admin.SetUserRole(ctx, 1, "admin")
	assert.ErrorIs(t, err, api.ErrNetworkUnreachable)
}

func TestAdmin_ListFallsBackOnValidation(t *testing.T) {
	env := newEnv(t, statusHandler(http.StatusBadRequest, `{"detail":"bad filter"}`))

	users, err := env.svc.Admin.ListUsers(context.Background())
	require.NoError(t, err)
	assert.True(t, users.Substituted)
	assert.Len(t, users.Data, 3)

	roles, err := env.svc.Admin.ListRoles(context.Background())
	require.NoError(t, err)
	assert.Len(t, roles.Data, 2)
}

func TestAdmin_ListRolesOfflineIsStable(t *testing.T) {
	env := newOfflineEnv(t, true)

	first, err := env.svc.Admin.ListRoles(context.Background())
	require.NoError(t, err)
	require.True(t, first.Substituted)

	second, err := env.svc.Admin.ListRoles(context.Background())
	require.NoError(t, err)

	a, err := json.Marshal(first.Data)
	require.NoError(t, err)
	b, err := json.Marshal(second.Data)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestAdmin_UpdateNeverMasksValidation(t *testing.T) {
	env := newEnv(t, statusHandler(http.StatusBadRequest, `{"detail":"email is invalid"}`))

	_, err := env.svc.Admin.UpdateUser(context.Background(), 2, domain.UserInput{Email: "nope"})
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrValidation)
	assert.Equal(t, "email is invalid", api.Message(err))
	assert.Equal(t, "user1@example.com", env.mock.Users()[1].Email)
}

func TestAdmin_OfflineMutations(t *testing.T) {
	env := newOfflineEnv(t, true)
	ctx := context.Background()

	upd, err := env.svc.Admin.UpdateUser(ctx, 2, domain.UserInput{Status: "Inactive"})
	require.NoError(t, err)
	require.NotNil(t, upd.Data)
	assert.Equal(t, "Inactive", upd.Data.Status)

	missing, err := env.svc.Admin.UpdateUser(ctx, 99, domain.UserInput{Status: "Inactive"})
	require.NoError(t, err)
	assert.Nil(t, missing.Data)

	del, err := env.svc.Admin.DeleteRole(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "Role deleted successfully", del.Data.Message)

	del, err = env.svc.Admin.DeleteUser(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, "User not found", del.Data.Message)
}

package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryKV(), discardLogger())

	require.NoError(t, store.Save(ctx, Session{Token: "T", Roles: []string{"user"}, Username: "test"}))

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T", snap.Token)
	assert.Equal(t, []string{"user"}, snap.Roles)
	assert.Equal(t, "test", snap.Username)
	assert.True(t, snap.LoggedIn())

	tok, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "T", tok)
}

func TestStore_SaveWritesCanonicalKeys(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewStore(kv, discardLogger())

	require.NoError(t, store.Save(ctx, Session{Token: "T", Username: "ann"}))

	roles, _, _ := kv.Get(ctx, KeyRoles)
	assert.Equal(t, "[]", roles)

	user, _, _ := kv.Get(ctx, KeyUser)
	assert.JSONEq(t, `{"username":"ann"}`, user)
}

func TestStore_SaveRejectsMissingToken(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewStore(kv, discardLogger())

	err := store.Save(ctx, Session{Roles: []string{"admin"}, Username: "ann"})
	require.ErrorIs(t, err, ErrIncompleteSession)
	assert.Equal(t, 0, kv.Len(), "nothing written for an incomplete session")
}

func TestStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewStore(kv, discardLogger())

	require.NoError(t, store.Save(ctx, Session{Token: "T", Roles: []string{"user"}, Username: "ann"}))

	for range 3 {
		require.NoError(t, store.Clear(ctx))
	}

	assert.Equal(t, 0, kv.Len())

	snap, err := store.Snapshot(ctx)
	require.NoError(t, err)
	assert.False(t, snap.LoggedIn())
	assert.Empty(t, snap.Roles)
	assert.Empty(t, snap.Username)
}

func TestStore_RolesKeepOrderAndDuplicates(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryKV(), discardLogger())

	require.NoError(t, store.Save(ctx, Session{Token: "T", Roles: []string{"user", "admin", "user"}}))

	roles, err := store.Roles(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"user", "admin", "user"}, roles)

	admin, err := store.IsAdmin(ctx)
	require.NoError(t, err)
	assert.True(t, admin)
}

func TestStore_MalformedRoles(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.SetAll(ctx, map[string]string{KeyToken: "T", KeyRoles: "not-json"}))

	store := NewStore(kv, discardLogger())

	roles, err := store.Roles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)

	admin, err := store.IsAdmin(ctx)
	require.NoError(t, err)
	assert.False(t, admin)
}

func TestStore_ReadsFreshEachTime(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	store := NewStore(kv, discardLogger())

	require.NoError(t, store.Save(ctx, Session{Token: "T", Roles: []string{"user"}}))

	// Another writer clears the backend directly.
	require.NoError(t, kv.Delete(ctx, KeyToken))

	tok, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)
}

// failingKV fails every operation.
type failingKV struct{}

var errBackend = errors.New("backend down")

func (failingKV) Get(context.Context, string) (string, bool, error) { return "", false, errBackend }
func (failingKV) SetAll(context.Context, map[string]string) error   { return errBackend }
func (failingKV) Delete(context.Context, ...string) error           { return errBackend }
func (failingKV) Close() error                                      { return nil }

func TestStore_BackendErrors(t *testing.T) {
	ctx := context.Background()
	store := NewStore(failingKV{}, discardLogger())

	_, err := store.Snapshot(ctx)
	assert.ErrorIs(t, err, errBackend)

	_, err = store.Token(ctx)
	assert.ErrorIs(t, err, errBackend)

	assert.ErrorIs(t, store.Save(ctx, Session{Token: "T"}), errBackend)
	assert.ErrorIs(t, store.Clear(ctx), errBackend)
}

func TestSession_HasRole(t *testing.T) {
	s := Session{Roles: []string{"editor"}}
	assert.True(t, s.HasRole("editor"))
	assert.False(t, s.HasRole(RoleAdmin))
}

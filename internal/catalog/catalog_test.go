package catalog

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/mockdata"
	"github.com/shelfwise/bookcat/internal/session"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// testEnv bundles a Service with the pieces tests inspect.
type testEnv struct {
	svc   *Service
	store *session.Store
	kv    *session.MemoryKV
	mock  *mockdata.Catalog

	mu           sync.Mutex
	unauthorized int
}

func (e *testEnv) unauthorizedCalls() int {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.unauthorized
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newEnvAt(t *testing.T, baseURL string, fallbackOn bool) *testEnv {
	t.Helper()

	env := &testEnv{kv: session.NewMemoryKV(), mock: mockdata.NewCatalog()}
	env.mock.SetClock(func() time.Time { return testNow })
	env.store = session.NewStore(env.kv, discardLogger())

	client := api.NewClient(api.Options{
		BaseURL: baseURL,
		Timeout: 5 * time.Second,
		OnUnauthorized: func(*api.Error) {
			env.mu.Lock()
			env.unauthorized++
			env.mu.Unlock()
		},
	}, env.store, discardLogger())

	env.svc = New(client, env.mock, env.store, Options{FallbackEnabled: fallbackOn, Logger: discardLogger()})

	return env
}

// newEnv serves requests with h.
func newEnv(t *testing.T, h http.HandlerFunc) *testEnv {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	return newEnvAt(t, srv.URL, true)
}

// newOfflineEnv points at a server that has already shut down, so every
// request fails with connection refused.
func newOfflineEnv(t *testing.T, fallbackOn bool) *testEnv {
	t.Helper()

	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	return newEnvAt(t, url, fallbackOn)
}

// statusHandler answers every request with status and an optional body.
func statusHandler(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()

	w.Header().Set("Content-Type", "application/json")
	assert.NoError(t, json.NewEncoder(w).Encode(v))
}

func loginAs(t *testing.T, env *testEnv, roles ...string) {
	t.Helper()

	require.NoError(t, env.store.Save(context.Background(), session.Session{Token: "tok", Roles: roles, Username: "tester"}))
}

// recorder captures the method and path of every request it sees.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(req *http.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, req.Method+" "+req.URL.Path)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.calls...)
}

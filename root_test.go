package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/config"
)

// --- buildLogger ---

func TestBuildLogger_ConfigLevelAndFlags(t *testing.T) {
	ctx := context.Background()
	r := &config.Resolved{Config: config.DefaultConfig()}

	logger := buildLogger(r, CLIFlags{}, &bytes.Buffer{})
	assert.True(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))

	r.Logging.LogLevel = "debug"
	logger = buildLogger(r, CLIFlags{}, &bytes.Buffer{})
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))

	logger = buildLogger(r, CLIFlags{Quiet: true}, &bytes.Buffer{})
	assert.False(t, logger.Enabled(ctx, slog.LevelWarn))
	assert.True(t, logger.Enabled(ctx, slog.LevelError))

	r.Logging.LogLevel = "error"
	logger = buildLogger(r, CLIFlags{Verbose: true}, &bytes.Buffer{})
	assert.True(t, logger.Enabled(ctx, slog.LevelDebug))
}

func TestBuildLogger_Format(t *testing.T) {
	r := &config.Resolved{Config: config.DefaultConfig()}

	var buf bytes.Buffer
	buildLogger(r, CLIFlags{}, &buf).Warn("hello")
	assert.True(t, strings.HasPrefix(buf.String(), "{"), "auto on a non-terminal is JSON")

	buf.Reset()
	r.Logging.LogFormat = "text"
	buildLogger(r, CLIFlags{}, &buf).Warn("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}

// --- reportError ---

func TestReportError(t *testing.T) {
	apiErr := &api.Error{Kind: api.KindNotFound, Status: http.StatusNotFound, Message: "Book not found"}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"plain", errors.New("boom"), "Error: boom\n"},
		{"api error", apiErr, "Error: Book not found\n"},
		{"wrapped api error", fmt.Errorf("uploading a.txt: %w", apiErr), "Error: uploading a.txt: Book not found\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			assert.Equal(t, 1, reportError(&buf, tt.err))
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

// --- end-to-end command tests against an httptest backend ---

type cliEnv struct {
	dir        string
	configPath string
}

// newCLIEnv writes a config pointing at baseURL with a file-backed session
// in a temp dir, and clears every BOOKCAT_* override.
func newCLIEnv(t *testing.T, baseURL string) *cliEnv {
	t.Helper()

	for _, k := range []string{
		config.EnvConfig, config.EnvBaseURL, config.EnvTimeoutMillis,
		config.EnvEnvironment, config.EnvEnableMockData, config.EnvSessionBackend,
	} {
		t.Setenv(k, "")
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := fmt.Sprintf(`[api]
base_url = %q
timeout = "2s"

[session]
backend = "file"
path = %q

[logging]
log_level = "error"
`, baseURL, filepath.Join(dir, "session.json"))

	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return &cliEnv{dir: dir, configPath: path}
}

func (e *cliEnv) run(args ...string) (string, string, error) {
	cmd := newRootCmd()

	var out, errOut bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(append([]string{"--config", e.configPath}, args...))

	err := cmd.Execute()

	return out.String(), errOut.String(), err
}

func (e *cliEnv) login(t *testing.T, username string) {
	t.Helper()

	_, _, err := e.run("login", "-u", username, "-p", "secret")
	require.NoError(t, err)
}

func signedToken(t *testing.T, subject string, exp time.Time) string {
	t.Helper()

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-signing-key"))
	require.NoError(t, err)

	return tok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// fakeBackend serves login plus whatever routes the test registers. Users
// named admin get the admin role.
func fakeBackend(t *testing.T, routes map[string]http.HandlerFunc) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Incorrect username or password"})
			return
		}

		roles := []string{"user"}
		if req.Username == "admin" {
			roles = []string{"admin"}
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": signedToken(t, req.Username, time.Now().Add(time.Hour)),
			"roles":        roles,
		})
	})

	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestCLI_BooksListFromBackend(t *testing.T) {
	srv := fakeBackend(t, map[string]http.HandlerFunc{
		"GET /books": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, []map[string]any{
				{"id": 7, "title": "Solaris", "author": "Stanisław Lem", "genre": "Science Fiction", "year_published": 1961},
			})
		},
	})
	env := newCLIEnv(t, srv.URL)

	out, errOut, err := env.run("books", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "Solaris")
	assert.Contains(t, out, "1961")
	assert.NotContains(t, errOut, "offline")

	out, _, err = env.run("books", "ls", "--json")
	require.NoError(t, err)

	var books []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &books))
	require.Len(t, books, 1)
	assert.Equal(t, "Solaris", books[0]["title"])
}

func TestCLI_BooksListOfflineFallback(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	env := newCLIEnv(t, srv.URL)

	out, errOut, err := env.run("books", "ls", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "title: The Great Gatsby")
	assert.Contains(t, errOut, strings.TrimSpace(offlineNotice))
}

func TestCLI_FallbackDisabledByEnvironment(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	env := newCLIEnv(t, srv.URL)
	t.Setenv(config.EnvEnableMockData, "false")

	_, _, err := env.run("books", "ls")
	require.Error(t, err)
	assert.True(t, api.IsNetworkError(err))
}

func TestCLI_InvalidOutputFormat(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")

	_, _, err := env.run("books", "ls", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--output must be one of")
}

func TestCLI_LoginWhoamiLogout(t *testing.T) {
	srv := fakeBackend(t, nil)
	env := newCLIEnv(t, srv.URL)

	_, _, err := env.run("whoami")
	require.ErrorIs(t, err, errNotLoggedIn)

	out, _, err := env.run("login", "-u", "alice", "-p", "secret")
	require.NoError(t, err)
	assert.Contains(t, out, "Logged in as alice (roles: user).")

	out, _, err = env.run("whoami")
	require.NoError(t, err)
	assert.Contains(t, out, "User:    alice")
	assert.Contains(t, out, "Roles:   user")
	assert.Contains(t, out, "Backend: "+srv.URL)
	assert.Contains(t, out, "Expires:")

	out, _, err = env.run("whoami", "--json")
	require.NoError(t, err)

	var who whoamiOutput
	require.NoError(t, json.Unmarshal([]byte(out), &who))
	assert.Equal(t, "alice", who.Username)
	assert.False(t, who.Admin)
	require.NotNil(t, who.ExpiresAt)
	assert.True(t, who.ExpiresAt.After(time.Now()))

	_, errOut, err := env.run("logout")
	require.NoError(t, err)
	assert.Contains(t, errOut, "Logged out.")

	_, _, err = env.run("whoami")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestCLI_LoginReadsPasswordFromStdin(t *testing.T) {
	srv := fakeBackend(t, nil)
	env := newCLIEnv(t, srv.URL)

	cmd := newRootCmd()

	var out bytes.Buffer

	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader("secret\n"))
	cmd.SetArgs([]string{"--config", env.configPath, "login", "-u", "admin"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "roles: admin")
}

func TestCLI_LoginRejected(t *testing.T) {
	srv := fakeBackend(t, nil)
	env := newCLIEnv(t, srv.URL)

	_, errOut, err := env.run("login", "-u", "alice", "-p", "wrong")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials or access denied", api.Message(err))
	assert.NotContains(t, errOut, "Session expired")
}

func TestCLI_UnauthorizedClearsSession(t *testing.T) {
	srv := fakeBackend(t, map[string]http.HandlerFunc{
		"GET /books": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token expired"})
		},
	})
	env := newCLIEnv(t, srv.URL)
	env.login(t, "alice")

	_, errOut, err := env.run("books", "ls")
	require.Error(t, err)
	assert.True(t, api.IsAuthError(err))
	assert.Contains(t, errOut, "Session expired or invalid")

	_, _, err = env.run("whoami")
	require.ErrorIs(t, err, errNotLoggedIn)
}

func TestCLI_WritesRequireLogin(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")

	for _, args := range [][]string{
		{"books", "rm", "1"},
		{"authors", "add", "Ursula K. Le Guin"},
		{"documents", "upload", "x.txt"},
	} {
		_, _, err := env.run(args...)
		require.ErrorIs(t, err, errNotLoggedIn, "args %v", args)
	}
}

func TestCLI_AdminCommandsRequireAdminRole(t *testing.T) {
	srv := fakeBackend(t, map[string]http.HandlerFunc{
		"GET /admin/users/": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, []map[string]any{{"id": 1, "username": "admin", "role": "admin"}})
		},
	})
	env := newCLIEnv(t, srv.URL)

	env.login(t, "alice")

	_, _, err := env.run("users", "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires the admin role")

	env.login(t, "admin")

	out, _, err := env.run("users", "ls")
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.Contains(t, out, "admin")
}

func TestCLI_BookAddWithNewRefs(t *testing.T) {
	var (
		mu      sync.Mutex
		created []string
	)

	record := func(step string) {
		mu.Lock()
		defer mu.Unlock()

		created = append(created, step)
	}

	srv := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /authors": func(w http.ResponseWriter, _ *http.Request) {
			record("author")
			writeJSON(w, http.StatusCreated, map[string]any{"id": 11, "name": "Octavia E. Butler"})
		},
		"POST /genres": func(w http.ResponseWriter, _ *http.Request) {
			record("genre")
			writeJSON(w, http.StatusCreated, map[string]any{"id": 22, "name": "Science Fiction"})
		},
		"POST /books": func(w http.ResponseWriter, r *http.Request) {
			record("book")

			var in map[string]any
			_ = json.NewDecoder(r.Body).Decode(&in)

			writeJSON(w, http.StatusCreated, map[string]any{
				"id": 33, "title": in["title"], "author_id": in["author_id"], "genre_id": in["genre_id"],
			})
		},
	})
	env := newCLIEnv(t, srv.URL)
	env.login(t, "alice")

	out, _, err := env.run("books", "add", "--title", "Kindred",
		"--new-author", "Octavia E. Butler", "--new-genre", "Science Fiction", "--json")
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, []string{"author", "genre", "book"}, created)
	mu.Unlock()

	var book map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &book))
	assert.EqualValues(t, 11, book["author_id"])
	assert.EqualValues(t, 22, book["genre_id"])
}

func TestCLI_DocumentsUpload(t *testing.T) {
	var (
		mu               sync.Mutex
		gotName, gotBody string
	)

	srv := fakeBackend(t, map[string]http.HandlerFunc{
		"POST /documents/upload": func(w http.ResponseWriter, r *http.Request) {
			f, hdr, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer f.Close()

			var buf bytes.Buffer
			_, _ = buf.ReadFrom(f)

			mu.Lock()
			gotName, gotBody = hdr.Filename, buf.String()
			mu.Unlock()

			writeJSON(w, http.StatusOK, map[string]any{"id": 7, "name": hdr.Filename})
		},
	})
	env := newCLIEnv(t, srv.URL)
	env.login(t, "alice")

	path := filepath.Join(env.dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("chapter one"), 0o600))

	_, errOut, err := env.run("documents", "upload", path)
	require.NoError(t, err)

	mu.Lock()
	assert.Equal(t, "notes.txt", gotName)
	assert.Equal(t, "chapter one", gotBody)
	mu.Unlock()
	assert.Contains(t, errOut, "Uploaded notes.txt as document 7")

	bad := filepath.Join(env.dir, "tool.exe")
	require.NoError(t, os.WriteFile(bad, []byte("MZ"), 0o600))

	_, _, err = env.run("documents", "upload", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `file type ".exe" not allowed`)
}

func TestCLI_ConfigSetThenShow(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")

	_, _, err := env.run("config", "set", "ui.page_size", "3")
	require.NoError(t, err)

	out, _, err := env.run("config", "show", "--json")
	require.NoError(t, err)

	var shown struct {
		ConfigPath string `json:"config_path"`
		UI         struct {
			PageSize int `json:"page_size"`
		} `json:"ui"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	assert.Equal(t, 3, shown.UI.PageSize)
	assert.Equal(t, env.configPath, shown.ConfigPath)

	_, _, err = env.run("config", "set", "ui.page_size", "0")
	require.Error(t, err)
}

func TestCLI_ConfigSetWorksWithBrokenConfig(t *testing.T) {
	env := newCLIEnv(t, "http://127.0.0.1:1")
	require.NoError(t, os.WriteFile(env.configPath, []byte("[ui]\npage_size = 500\n"), 0o600))

	_, _, err := env.run("books", "ls")
	require.Error(t, err)

	_, _, err = env.run("config", "set", "ui.page_size", "20")
	require.NoError(t, err)

	data, err := os.ReadFile(env.configPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "page_size = 20")
}

func TestCLI_Status(t *testing.T) {
	srv := fakeBackend(t, map[string]http.HandlerFunc{
		"GET /{$}": func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
		},
	})
	env := newCLIEnv(t, srv.URL)
	env.login(t, "admin")

	out, _, err := env.run("status", "--json")
	require.NoError(t, err)

	var st statusOutput
	require.NoError(t, json.Unmarshal([]byte(out), &st))
	assert.Equal(t, backendReachable, st.Backend)
	assert.Equal(t, tokenStateValid, st.TokenState)
	assert.Equal(t, "admin", st.Username)
	assert.Equal(t, "file", st.SessionBackend)
}

func TestCLI_DocumentsWatchLockPerFolder(t *testing.T) {
	srv := fakeBackend(t, nil)
	env := newCLIEnv(t, srv.URL)

	t.Setenv("HOME", env.dir)
	t.Setenv("XDG_DATA_HOME", filepath.Join(env.dir, "data"))

	inbox, err := canonicalWatchDir(t.TempDir())
	require.NoError(t, err)

	_, _, err = env.run("documents", "watch", "--rescan", inbox)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no watcher is running for "+inbox)

	lock, err := acquireWatchLock(watchLockPath(config.DefaultDataDir(), inbox),
		watchRecord{PID: os.Getpid(), Dir: inbox, StartedAt: time.Now().UTC()})
	require.NoError(t, err)
	defer lock.Release()

	out, _, err := env.run("documents", "watch", "--list", "--json")
	require.NoError(t, err)

	var watchers []watchRecord
	require.NoError(t, json.Unmarshal([]byte(out), &watchers))
	require.Len(t, watchers, 1)
	assert.Equal(t, inbox, watchers[0].Dir)
	assert.Equal(t, os.Getpid(), watchers[0].PID)

	env.login(t, "alice")

	_, _, err = env.run("documents", "watch", inbox)
	require.Error(t, err)
	assert.Contains(t, err.Error(), inbox+" is already watched by PID")
}

package dropwatch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
)

// fakeUploader records uploads and optionally fails them.
type fakeUploader struct {
	mu      sync.Mutex
	uploads []string
	bodies  []string
	err     error
}

func (f *fakeUploader) Upload(_ context.Context, name string, content io.Reader) (api.Envelope[domain.Document], error) {
	data, _ := io.ReadAll(content)

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return api.Envelope[domain.Document]{}, f.err
	}

	f.uploads = append(f.uploads, name)
	f.bodies = append(f.bodies, string(data))

	return api.Envelope[domain.Document]{Data: domain.Document{ID: len(f.uploads), Name: name}}, nil
}

func (f *fakeUploader) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.uploads...)
}

// mockFsWatcher implements FsWatcher with injectable channels.
type mockFsWatcher struct {
	events chan fsnotify.Event
	errs   chan error
	added  []string
}

func newMockFsWatcher() *mockFsWatcher {
	return &mockFsWatcher{events: make(chan fsnotify.Event, 10), errs: make(chan error, 1)}
}

func (m *mockFsWatcher) Add(name string) error         { m.added = append(m.added, name); return nil }
func (m *mockFsWatcher) Close() error                  { return nil }
func (m *mockFsWatcher) Events() <-chan fsnotify.Event { return m.events }
func (m *mockFsWatcher) Errors() <-chan error          { return m.errs }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))

	return p
}

// newTestWatcher returns a watcher with a controllable clock.
func newTestWatcher(up Uploader, opts Options) (*Watcher, *time.Time) {
	opts.Logger = discardLogger()
	w := New(up, opts)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w.nowFunc = func() time.Time { return now }

	return w, &now
}

func TestWatcher_UploadsAfterSettle(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}
	w, now := newTestWatcher(up, Options{Settle: time.Second})
	ctx := context.Background()

	p := writeFile(t, dir, "a.pdf", "v1")
	w.handleEvent(fsnotify.Event{Name: p, Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: p, Op: fsnotify.Write})

	w.flush(ctx)
	assert.Empty(t, up.names(), "not settled yet")

	*now = now.Add(time.Second)
	w.flush(ctx)
	assert.Equal(t, []string{"a.pdf"}, up.names())
	assert.Empty(t, w.pending)
}

func TestWatcher_UploadsOncePerContent(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}
	w, _ := newTestWatcher(up, Options{})
	ctx := context.Background()

	p := writeFile(t, dir, "a.txt", "same")
	w.process(ctx, p)
	w.process(ctx, p)
	assert.Len(t, up.names(), 1)

	writeFile(t, dir, "a.txt", "changed")
	w.process(ctx, p)
	assert.Len(t, up.names(), 2)
	assert.Equal(t, []string{"same", "changed"}, up.bodies)
}

func TestWatcher_RemoveForgetsFile(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}
	w, _ := newTestWatcher(up, Options{})
	ctx := context.Background()

	p := writeFile(t, dir, "a.txt", "x")
	w.process(ctx, p)

	w.handleEvent(fsnotify.Event{Name: p, Op: fsnotify.Remove})
	writeFile(t, dir, "a.txt", "x")
	w.process(ctx, p)

	assert.Len(t, up.names(), 2, "a recreated file is uploaded again")
}

func TestWatcher_Filters(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}

	var results []Result

	w, _ := newTestWatcher(up, Options{
		AllowedTypes: []string{".PDF", ".txt"},
		MaxFileSize:  4,
		OnResult:     func(r Result) { results = append(results, r) },
	})
	ctx := context.Background()

	w.process(ctx, writeFile(t, dir, "ok.pdf", "1234"))
	w.process(ctx, writeFile(t, dir, "big.txt", "12345"))
	w.process(ctx, writeFile(t, dir, "image.png", "1"))
	w.process(ctx, filepath.Join(dir, "missing.pdf"))

	assert.Equal(t, []string{"ok.pdf"}, up.names())
	require.Len(t, results, 3)
	assert.NoError(t, results[0].Err)
	assert.ErrorIs(t, results[1].Err, ErrTooLarge)
	assert.ErrorIs(t, results[2].Err, ErrTypeNotAllowed)
}

func TestWatcher_IgnoresTemporaryNames(t *testing.T) {
	w, _ := newTestWatcher(&fakeUploader{}, Options{})

	for _, name := range []string{".hidden.pdf", "~lock.docx", "draft.pdf~", "x.part", "y.crdownload", "z.TMP"} {
		w.handleEvent(fsnotify.Event{Name: filepath.Join("/d", name), Op: fsnotify.Create})
	}

	assert.Empty(t, w.pending)
}

func TestWatcher_FailedUploadIsRetriedOnChange(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{err: errors.New("backend down")}

	var results []Result

	w, _ := newTestWatcher(up, Options{OnResult: func(r Result) { results = append(results, r) }})
	ctx := context.Background()

	p := writeFile(t, dir, "a.txt", "x")
	w.process(ctx, p)
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)

	up.err = nil
	w.process(ctx, p)
	assert.Equal(t, []string{"a.txt"}, up.names(), "content not recorded after a failure")
}

func TestWatcher_Run(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "existing.txt", "old")
	writeFile(t, dir, ".ignored", "x")

	up := &fakeUploader{}
	mw := newMockFsWatcher()

	w := New(up, Options{Settle: 20 * time.Millisecond, ScanExisting: true, Logger: discardLogger()})
	w.newWatcher = func() (FsWatcher, error) { return mw, nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx, dir) }()

	require.Eventually(t, func() bool { return len(up.names()) == 1 }, 2*time.Second, 5*time.Millisecond)

	p := writeFile(t, dir, "new.md", "fresh")
	mw.events <- fsnotify.Event{Name: p, Op: fsnotify.Create}

	require.Eventually(t, func() bool { return len(up.names()) == 2 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"existing.txt", "new.md"}, up.names())
	assert.Equal(t, []string{dir}, mw.added)
}

func TestWatcher_RescanPicksUpUnnoticedFiles(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}
	mw := newMockFsWatcher()
	rescan := make(chan struct{})

	w := New(up, Options{Settle: 20 * time.Millisecond, Rescan: rescan, Logger: discardLogger()})
	w.newWatcher = func() (FsWatcher, error) { return mw, nil }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx, dir) }()

	writeFile(t, dir, "quiet.txt", "no event for me")
	rescan <- struct{}{}

	require.Eventually(t, func() bool { return len(up.names()) == 1 }, 2*time.Second, 5*time.Millisecond)

	rescan <- struct{}{}

	cancel()
	require.NoError(t, <-done)

	assert.Equal(t, []string{"quiet.txt"}, up.names(), "unchanged content is not re-sent")
}

func TestWatcher_RunStopsWhenWatcherCloses(t *testing.T) {
	mw := newMockFsWatcher()
	w := New(&fakeUploader{}, Options{Logger: discardLogger()})
	w.newWatcher = func() (FsWatcher, error) { return mw, nil }

	close(mw.events)

	assert.NoError(t, w.Run(context.Background(), t.TempDir()))
}

func TestWatcher_RunRejectsFile(t *testing.T) {
	p := writeFile(t, t.TempDir(), "f.txt", "x")

	err := New(&fakeUploader{}, Options{Logger: discardLogger()}).Run(context.Background(), p)
	assert.ErrorContains(t, err, "is not a directory")
}

func TestWatcher_RealFsnotify(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}
	w := New(up, Options{Settle: 30 * time.Millisecond, AllowedTypes: []string{".txt"}, Logger: discardLogger()})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- w.Run(ctx, dir) }()

	// Keep writing until the watcher has registered and picked the file up.
	require.Eventually(t, func() bool {
		_ = os.WriteFile(filepath.Join(dir, "live.txt"), []byte("hello"), 0o600)
		return len(up.names()) >= 1
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, "live.txt", up.names()[0])
}

package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func watchedDir(t *testing.T) string {
	t.Helper()

	dir, err := canonicalWatchDir(t.TempDir())
	require.NoError(t, err)

	return dir
}

func holdWatchLock(t *testing.T, dataDir, dir string) (*watchLock, string) {
	t.Helper()

	path := watchLockPath(dataDir, dir)

	lock, err := acquireWatchLock(path, watchRecord{PID: os.Getpid(), Dir: dir, StartedAt: time.Now().UTC()})
	require.NoError(t, err)
	t.Cleanup(lock.Release)

	return lock, path
}

func writeStaleRecord(t *testing.T, path, dir string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	data, err := json.Marshal(watchRecord{PID: 999999999, Dir: dir})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestCanonicalWatchDir(t *testing.T) {
	t.Parallel()

	base := watchedDir(t)
	target := filepath.Join(base, "inbox")
	require.NoError(t, os.Mkdir(target, 0o755))

	link := filepath.Join(base, "drop")
	require.NoError(t, os.Symlink(target, link))

	got, err := canonicalWatchDir(link)
	require.NoError(t, err)
	assert.Equal(t, target, got, "symlinks resolve to the real folder")

	missing := filepath.Join(base, "later", "..", "later")
	got, err = canonicalWatchDir(missing)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "later"), got)
}

func TestWatchLockPath_OnePerFolder(t *testing.T) {
	t.Parallel()

	data := t.TempDir()

	a := watchLockPath(data, "/srv/inbox")
	assert.Equal(t, a, watchLockPath(data, "/srv/inbox"))
	assert.NotEqual(t, a, watchLockPath(data, "/srv/outbox"))
	assert.Equal(t, filepath.Join(data, watchLockDir), filepath.Dir(a))
}

func TestAcquireWatchLock_RecordsFolder(t *testing.T) {
	t.Parallel()

	dir := watchedDir(t)
	_, path := holdWatchLock(t, t.TempDir(), dir)

	rec, err := readWatchRecord(path)
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), rec.PID)
	assert.Equal(t, dir, rec.Dir)
	assert.False(t, rec.StartedAt.IsZero())
}

func TestAcquireWatchLock_SameFolderTwice(t *testing.T) {
	t.Parallel()

	dir := watchedDir(t)
	_, path := holdWatchLock(t, t.TempDir(), dir)

	second, err := acquireWatchLock(path, watchRecord{PID: os.Getpid(), Dir: dir})
	require.Error(t, err)
	assert.Nil(t, second)
	assert.Contains(t, err.Error(), dir+" is already watched by PID")
}

func TestAcquireWatchLock_DifferentFoldersSideBySide(t *testing.T) {
	t.Parallel()

	data := t.TempDir()
	holdWatchLock(t, data, watchedDir(t))
	holdWatchLock(t, data, watchedDir(t))
}

func TestWatchLock_ReleaseRemovesFile(t *testing.T) {
	t.Parallel()

	dir := watchedDir(t)
	path := watchLockPath(t.TempDir(), dir)

	lock, err := acquireWatchLock(path, watchRecord{PID: os.Getpid(), Dir: dir})
	require.NoError(t, err)

	lock.Release()

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	again, err := acquireWatchLock(path, watchRecord{PID: os.Getpid(), Dir: dir})
	require.NoError(t, err)
	again.Release()
}

func TestReadWatchRecord_RejectsForeignFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "watch.pid")
	require.NoError(t, os.WriteFile(path, []byte("12345\n"), 0o644))

	_, err := readWatchRecord(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a watcher lock file")
}

func TestRequestRescan_NoWatcher(t *testing.T) {
	t.Parallel()

	dir := watchedDir(t)

	_, err := requestRescan(watchLockPath(t.TempDir(), dir), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no watcher is running for "+dir)
}

func TestRequestRescan_StaleLockIsRemoved(t *testing.T) {
	t.Parallel()

	dir := watchedDir(t)
	path := watchLockPath(t.TempDir(), dir)
	writeStaleRecord(t, path, dir)

	_, err := requestRescan(path, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is not running")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRequestRescan_LockOfAnotherFolder(t *testing.T) {
	t.Parallel()

	watched := watchedDir(t)
	_, path := holdWatchLock(t, t.TempDir(), watched)

	other := watchedDir(t)

	_, err := requestRescan(path, other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to the watcher of "+watched)
}

// Not parallel: delivers a real SIGHUP to the test process.
func TestRequestRescan_SignalsTheFolderWatcher(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	dir := watchedDir(t)
	_, path := holdWatchLock(t, t.TempDir(), dir)

	rec, err := requestRescan(path, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, rec.Dir)

	select {
	case sig := <-sigCh:
		assert.Equal(t, syscall.SIGHUP, sig)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher was not signaled")
	}
}

func TestListWatchers(t *testing.T) {
	t.Parallel()

	data := t.TempDir()

	first := watchedDir(t)
	second := watchedDir(t)
	holdWatchLock(t, data, first)
	holdWatchLock(t, data, second)

	gone := watchedDir(t)
	stale := watchLockPath(data, gone)
	writeStaleRecord(t, stale, gone)

	watchers, err := listWatchers(data)
	require.NoError(t, err)
	require.Len(t, watchers, 2)

	dirs := []string{watchers[0].Dir, watchers[1].Dir}
	assert.ElementsMatch(t, []string{first, second}, dirs)
	assert.LessOrEqual(t, watchers[0].Dir, watchers[1].Dir)

	_, statErr := os.Stat(stale)
	assert.True(t, os.IsNotExist(statErr), "stale locks are cleaned up")
}

func TestListWatchers_NoneRunning(t *testing.T) {
	t.Parallel()

	watchers, err := listWatchers(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, watchers)
}

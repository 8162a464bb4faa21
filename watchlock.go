package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"
)

const (
	watchLockPermissions    = 0o644
	watchLockDirPermissions = 0o755

	// watchLockDir holds one lock file per watched folder, under the data
	// directory.
	watchLockDir = "watchers"
)

// watchRecord is what a running watcher writes into its lock file.
type watchRecord struct {
	PID       int       `json:"pid" yaml:"pid"`
	Dir       string    `json:"dir" yaml:"dir"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
}

// watchLock is a held flock on a watched folder's lock file.
type watchLock struct {
	path string
	f    *os.File
}

// canonicalWatchDir resolves dir to the absolute, symlink-free path that
// keys its lock. A folder that does not exist yet keeps its absolute form.
func canonicalWatchDir(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}

	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}

	return abs, nil
}

// watchLockPath names the lock file for a canonical folder path.
func watchLockPath(dataDir, dir string) string {
	sum := sha256.Sum256([]byte(dir))

	return filepath.Join(dataDir, watchLockDir, "watch-"+hex.EncodeToString(sum[:8])+".pid")
}

// acquireWatchLock takes the exclusive flock on path and records rec in it.
// A second watcher of the same folder fails here with the holder's PID.
func acquireWatchLock(path string, rec watchRecord) (*watchLock, error) {
	if err := os.MkdirAll(filepath.Dir(path), watchLockDirPermissions); err != nil {
		return nil, fmt.Errorf("creating watcher lock directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, watchLockPermissions)
	if err != nil {
		return nil, fmt.Errorf("opening watcher lock: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		if held, readErr := readWatchRecord(path); readErr == nil {
			return nil, fmt.Errorf("%s is already watched by PID %d", held.Dir, held.PID)
		}

		return nil, fmt.Errorf("another watcher holds %s", path)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("encoding watcher lock: %w", err)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()
		return nil, fmt.Errorf("truncating watcher lock: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing watcher lock: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return nil, fmt.Errorf("syncing watcher lock: %w", err)
	}

	return &watchLock{path: path, f: f}, nil
}

// Release removes the lock file and drops the flock.
func (l *watchLock) Release() {
	os.Remove(l.path)
	l.f.Close()
}

func readWatchRecord(path string) (watchRecord, error) {
	var rec watchRecord

	data, err := os.ReadFile(path)
	if err != nil {
		return rec, fmt.Errorf("reading watcher lock: %w", err)
	}

	if err := json.Unmarshal(data, &rec); err != nil || rec.PID <= 0 {
		return watchRecord{}, fmt.Errorf("%s is not a watcher lock file", path)
	}

	return rec, nil
}

// lockHeld reports whether a live process holds the flock on path. The
// kernel drops the flock when its holder exits, so a reused PID never
// looks alive here.
func lockHeld(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening watcher lock: %w", err)
	}
	defer f.Close()

	err = syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		return false, nil
	}

	if errors.Is(err, syscall.EWOULDBLOCK) {
		return true, nil
	}

	return false, fmt.Errorf("checking watcher lock %s: %w", path, err)
}

// requestRescan sends SIGHUP to the watcher recorded in path. When dir is
// set, the lock must belong to that folder. A lock nobody holds is stale
// and is removed.
func requestRescan(path, dir string) (watchRecord, error) {
	rec, err := readWatchRecord(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return watchRecord{}, fmt.Errorf("no watcher is running for %s", orPath(dir, path))
		}

		return watchRecord{}, err
	}

	if dir != "" && rec.Dir != dir {
		return rec, fmt.Errorf("%s belongs to the watcher of %s, not %s", path, rec.Dir, dir)
	}

	held, err := lockHeld(path)
	if err != nil {
		return rec, err
	}

	if !held {
		os.Remove(path)

		return rec, fmt.Errorf("watcher of %s (PID %d) is not running; removed its stale lock", rec.Dir, rec.PID)
	}

	if err := syscall.Kill(rec.PID, syscall.SIGHUP); err != nil {
		return rec, fmt.Errorf("signaling watcher of %s (PID %d): %w", rec.Dir, rec.PID, err)
	}

	return rec, nil
}

// listWatchers returns the live watchers under dataDir sorted by folder.
// Stale lock files are removed along the way.
func listWatchers(dataDir string) ([]watchRecord, error) {
	paths, err := filepath.Glob(filepath.Join(dataDir, watchLockDir, "watch-*.pid"))
	if err != nil {
		return nil, fmt.Errorf("listing watcher locks: %w", err)
	}

	var live []watchRecord

	for _, p := range paths {
		rec, err := readWatchRecord(p)
		if err != nil {
			continue
		}

		held, err := lockHeld(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}

		if err != nil {
			return nil, err
		}

		if !held {
			os.Remove(p)
			continue
		}

		live = append(live, rec)
	}

	slices.SortFunc(live, func(a, b watchRecord) int { return strings.Compare(a.Dir, b.Dir) })

	return live, nil
}

func orPath(dir, path string) string {
	if dir != "" {
		return dir
	}

	return path
}

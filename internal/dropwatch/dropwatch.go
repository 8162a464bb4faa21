// Package dropwatch uploads files that appear in a watched directory. A
// file is uploaded once it has been quiet for the settle interval, and again
// only when its content changes.
package dropwatch

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shelfwise/bookcat/internal/api"
	"github.com/shelfwise/bookcat/internal/domain"
)

// Defaults.
const (
	DefaultSettle = 500 * time.Millisecond

	watchErrInitBackoff = 1 * time.Second
	watchErrMaxBackoff  = 30 * time.Second
)

// Sentinel errors reported through Result.Err.
var (
	ErrTooLarge        = errors.New("dropwatch: file exceeds the size limit")
	ErrTypeNotAllowed  = errors.New("dropwatch: file type not allowed")
	ErrNotRegularFile  = errors.New("dropwatch: not a regular file")
	errWatcherShutdown = errors.New("dropwatch: watcher closed")
)

// Uploader sends one file to the backend.
type Uploader interface {
	Upload(ctx context.Context, name string, content io.Reader) (api.Envelope[domain.Document], error)
}

// FsWatcher is the subset of fsnotify.Watcher the loop uses, so tests can
// feed synthetic events.
type FsWatcher interface {
	Add(name string) error
	Close() error
	Events() <-chan fsnotify.Event
	Errors() <-chan error
}

type fsnotifyWatcher struct {
	w *fsnotify.Watcher
}

func newFsnotifyWatcher() (FsWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &fsnotifyWatcher{w: w}, nil
}

func (f *fsnotifyWatcher) Add(name string) error         { return f.w.Add(name) }
func (f *fsnotifyWatcher) Close() error                  { return f.w.Close() }
func (f *fsnotifyWatcher) Events() <-chan fsnotify.Event { return f.w.Events }
func (f *fsnotifyWatcher) Errors() <-chan error          { return f.w.Errors }

// Result describes the outcome for one file.
type Result struct {
	Path     string
	Document domain.Document

	// Substituted is true when the upload landed in the offline mirror.
	Substituted bool
	Err         error
}

// Options configures a Watcher.
type Options struct {
	// AllowedTypes lists accepted extensions with the leading dot. Empty
	// accepts everything.
	AllowedTypes []string

	// MaxFileSize in bytes; zero means unlimited.
	MaxFileSize int64

	// Settle is how long a file must go without events before upload.
	Settle time.Duration

	// ScanExisting uploads files already in the directory at start.
	ScanExisting bool

	// Rescan triggers a full directory scan each time it receives. Files
	// whose content was already uploaded are still skipped.
	Rescan <-chan struct{}

	// OnResult receives every upload attempt and every skipped file.
	OnResult func(Result)

	Logger *slog.Logger
}

// Watcher watches one directory. Not safe for concurrent Run calls.
type Watcher struct {
	up     Uploader
	opts   Options
	logger *slog.Logger

	// uploaded maps path to the content digest last sent.
	uploaded map[string]string
	// pending maps path to the time of its latest event.
	pending map[string]time.Time

	newWatcher func() (FsWatcher, error)
	nowFunc    func() time.Time
}

// New creates a Watcher that sends files through up.
func New(up Uploader, opts Options) *Watcher {
	if opts.Settle <= 0 {
		opts.Settle = DefaultSettle
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	allowed := make([]string, 0, len(opts.AllowedTypes))
	for _, ext := range opts.AllowedTypes {
		allowed = append(allowed, strings.ToLower(ext))
	}

	opts.AllowedTypes = allowed

	return &Watcher{
		up:         up,
		opts:       opts,
		logger:     logger,
		uploaded:   make(map[string]string),
		pending:    make(map[string]time.Time),
		newWatcher: newFsnotifyWatcher,
		nowFunc:    time.Now,
	}
}

// Run watches dir until ctx is canceled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("dropwatch: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("dropwatch: %s is not a directory", dir)
	}

	watcher, err := w.newWatcher()
	if err != nil {
		return fmt.Errorf("dropwatch: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("dropwatch: watching %s: %w", dir, err)
	}

	w.logger.Info("watching drop folder", slog.String("dir", dir), slog.Duration("settle", w.opts.Settle))

	if w.opts.ScanExisting {
		w.scanExisting(ctx, dir)
	}

	err = w.loop(ctx, watcher, dir)
	if errors.Is(err, errWatcherShutdown) {
		return nil
	}

	return err
}

func (w *Watcher) scanExisting(ctx context.Context, dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("reading drop folder", slog.String("dir", dir), slog.String("error", err.Error()))
		return
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}

		if e.Type().IsRegular() && !isIgnoredName(e.Name()) {
			w.process(ctx, filepath.Join(dir, e.Name()))
		}
	}
}

func (w *Watcher) loop(ctx context.Context, watcher FsWatcher, dir string) error {
	ticker := time.NewTicker(w.opts.Settle / 2)
	defer ticker.Stop()

	errBackoff := watchErrInitBackoff

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events():
			if !ok {
				return errWatcherShutdown
			}

			w.handleEvent(ev)

			errBackoff = watchErrInitBackoff

		case werr, ok := <-watcher.Errors():
			if !ok {
				return errWatcherShutdown
			}

			w.logger.Warn("filesystem watcher error",
				slog.String("error", werr.Error()),
				slog.Duration("backoff", errBackoff),
			)

			if err := sleepCtx(ctx, errBackoff); err != nil {
				return nil
			}

			errBackoff = min(errBackoff*2, watchErrMaxBackoff)

		case <-ticker.C:
			w.flush(ctx)

		case <-w.opts.Rescan:
			w.logger.Info("rescanning drop folder", slog.String("dir", dir))
			w.scanExisting(ctx, dir)
		}
	}
}

// handleEvent records a pending upload for creates and writes.
func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
			delete(w.pending, ev.Name)
			delete(w.uploaded, ev.Name)
		}

		return
	}

	if isIgnoredName(filepath.Base(ev.Name)) {
		w.logger.Debug("skipping temporary file", slog.String("path", ev.Name))
		return
	}

	w.pending[ev.Name] = w.nowFunc()
}

// flush uploads every pending file that has settled.
func (w *Watcher) flush(ctx context.Context) {
	now := w.nowFunc()

	ready := make([]string, 0, len(w.pending))
	for path, last := range w.pending {
		if now.Sub(last) >= w.opts.Settle {
			ready = append(ready, path)
		}
	}

	slices.Sort(ready)

	for _, path := range ready {
		delete(w.pending, path)
		w.process(ctx, path)
	}
}

// process validates and uploads one file unless its content was already
// sent.
func (w *Watcher) process(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		w.logger.Debug("stat failed for dropped file", slog.String("path", path), slog.String("error", err.Error()))
		return
	}

	if err := w.check(path, info); err != nil {
		w.logger.Warn("skipping dropped file", slog.String("path", path), slog.String("reason", err.Error()))
		w.report(Result{Path: path, Err: err})

		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.report(Result{Path: path, Err: fmt.Errorf("dropwatch: reading %s: %w", path, err)})
		return
	}

	digest := contentDigest(data)
	if w.uploaded[path] == digest {
		w.logger.Debug("content unchanged, not uploading", slog.String("path", path))
		return
	}

	env, err := w.up.Upload(ctx, filepath.Base(path), bytes.NewReader(data))
	if err != nil {
		w.logger.Error("upload failed", slog.String("path", path), slog.String("error", err.Error()))
		w.report(Result{Path: path, Err: err})

		return
	}

	w.uploaded[path] = digest

	w.logger.Info("uploaded dropped file",
		slog.String("path", path),
		slog.Int("document_id", env.Data.ID),
		slog.Bool("offline", env.Substituted),
	)

	w.report(Result{Path: path, Document: env.Data, Substituted: env.Substituted})
}

func (w *Watcher) check(path string, info os.FileInfo) error {
	if !info.Mode().IsRegular() {
		return ErrNotRegularFile
	}

	if len(w.opts.AllowedTypes) > 0 {
		ext := strings.ToLower(filepath.Ext(path))
		if !slices.Contains(w.opts.AllowedTypes, ext) {
			return fmt.Errorf("%w: %q", ErrTypeNotAllowed, ext)
		}
	}

	if w.opts.MaxFileSize > 0 && info.Size() > w.opts.MaxFileSize {
		return fmt.Errorf("%w: %d > %d bytes", ErrTooLarge, info.Size(), w.opts.MaxFileSize)
	}

	return nil
}

func (w *Watcher) report(r Result) {
	if w.opts.OnResult != nil {
		w.opts.OnResult(r)
	}
}

// isIgnoredName filters editor swap files and partial downloads.
func isIgnoredName(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") || strings.HasSuffix(name, "~") {
		return true
	}

	switch strings.ToLower(filepath.Ext(name)) {
	case ".tmp", ".part", ".partial", ".crdownload", ".swp":
		return true
	}

	return false
}

func contentDigest(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

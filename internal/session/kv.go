package session

import (
	"context"
	"fmt"
	"log/slog"
)

// KV is the process-wide key-value persistence behind a Store.
type KV interface {
	// Get returns the value and whether the key exists.
	Get(ctx context.Context, key string) (string, bool, error)
	// SetAll writes every pair or none.
	SetAll(ctx context.Context, values map[string]string) error
	// Delete removes keys. Absent keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Options selects and configures a backend.
type Options struct {
	Backend string

	// Path is the database file (sqlite) or JSON file (file).
	Path string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// Open constructs the configured backend.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (KV, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch opts.Backend {
	case BackendSQLite, "":
		return OpenSQLite(ctx, opts.Path, logger)
	case BackendFile:
		return NewFileKV(opts.Path), nil
	case BackendRedis:
		return NewRedisKV(ctx, opts, logger)
	case BackendMemory:
		return NewMemoryKV(), nil
	default:
		return nil, fmt.Errorf("session: unknown backend %q", opts.Backend)
	}
}

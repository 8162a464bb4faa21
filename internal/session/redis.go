package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// defaultRedisPrefix namespaces session keys in a shared database.
const defaultRedisPrefix = "bookcat:session:"

// RedisKV keeps session keys in Redis so several machines can share one
// login. Writes go through MULTI/EXEC.
type RedisKV struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisKV connects to the configured server and verifies it answers.
func NewRedisKV(ctx context.Context, opts Options, logger *slog.Logger) (*RedisKV, error) {
	if opts.RedisAddr == "" {
		return nil, errors.New("session: redis address is empty")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     opts.RedisAddr,
		Password: opts.RedisPassword,
		DB:       opts.RedisDB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("session: connecting to redis %s: %w", opts.RedisAddr, err)
	}

	kv := NewRedisKVFromClient(client, opts.RedisPrefix, logger)
	kv.logger.Debug("redis session backend connected",
		slog.String("addr", opts.RedisAddr),
		slog.String("prefix", kv.prefix),
	)

	return kv, nil
}

// NewRedisKVFromClient wraps an existing client. An empty prefix uses the default.
func NewRedisKVFromClient(client *redis.Client, prefix string, logger *slog.Logger) *RedisKV {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &RedisKV{client: client, prefix: prefix, logger: logger}
}

func (r *RedisKV) key(k string) string {
	return r.prefix + k
}

func (r *RedisKV) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("session: redis get %q: %w", key, err)
	}

	return val, true, nil
}

func (r *RedisKV) SetAll(ctx context.Context, values map[string]string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for k, v := range values {
			pipe.Set(ctx, r.key(k), v, 0)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("session: redis write: %w", err)
	}

	return nil
}

func (r *RedisKV) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = r.key(k)
	}

	if err := r.client.Del(ctx, full...).Err(); err != nil {
		return fmt.Errorf("session: redis delete: %w", err)
	}

	return nil
}

func (r *RedisKV) Close() error {
	return r.client.Close()
}

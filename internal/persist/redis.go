package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/onnwee/regions/internal/tracing"
)

// RedisKV stores values as plain Redis strings without expiry.
type RedisKV struct {
	client *redis.Client
}

// NewRedisKV creates a store backed by client.
func NewRedisKV(client *redis.Client) *RedisKV {
	return &RedisKV{client: client}
}

// Name implements KV.
func (r *RedisKV) Name() string { return BackendRedis }

// Save implements KV.
func (r *RedisKV) Save(ctx context.Context, key string, value []byte) (err error) {
	ctx, endSpan := tracing.StartStorageSpan(ctx, BackendRedis, "save", key)
	defer func() { endSpan(err) }()
	if err := checkKey(key); err != nil {
		return err
	}
	if err := r.client.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Load implements KV.
func (r *RedisKV) Load(ctx context.Context, key string) (_ []byte, err error) {
	ctx, endSpan := tracing.StartStorageSpan(ctx, BackendRedis, "load", key)
	defer func() { endSpan(err) }()
	b, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return b, nil
}

// Delete implements KV.
func (r *RedisKV) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", key, err)
	}
	return nil
}

package persist

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// OpenOptions selects and configures a backend for Open.
type OpenOptions struct {
	Backend     string
	Dir         string        // file
	Redis       *redis.Client // redis; shared with other components
	DatabaseURL string        // postgres
	S3          S3Config      // s3
}

// Open builds the KV named by opts.Backend. The returned close function
// releases resources owned by the store; it never closes a shared Redis client.
func Open(ctx context.Context, opts OpenOptions) (KV, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case BackendMemory, "":
		return NewMemoryKV(), noop, nil
	case BackendFile:
		kv, err := NewFileKV(opts.Dir)
		if err != nil {
			return nil, nil, err
		}
		return kv, noop, nil
	case BackendRedis:
		if opts.Redis == nil {
			return nil, nil, errors.New("redis backend requires a redis client")
		}
		return NewRedisKV(opts.Redis), noop, nil
	case BackendPostgres:
		kv, err := OpenPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return kv, kv.Close, nil
	case BackendS3:
		client, err := NewS3Client(opts.S3)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create s3 client: %w", err)
		}
		return NewS3KV(client, opts.S3.Bucket), noop, nil
	default:
		return nil, nil, fmt.Errorf("unknown persistence backend %q", opts.Backend)
	}
}

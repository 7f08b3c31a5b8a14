// Package persist stores workspace state in a key-value backend and saves it
// after a quiet period following each change.
package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Load when the key does not exist.
var ErrNotFound = errors.New("key not found")

// KV is a minimal key-value store. Values are opaque bytes.
type KV interface {
	Save(ctx context.Context, key string, value []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	// Name identifies the backend in logs, metrics and spans.
	Name() string
}

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// ValidBackend reports whether name is a supported backend.
func ValidBackend(name string) bool {
	switch name {
	case BackendMemory, BackendFile, BackendRedis, BackendPostgres, BackendS3:
		return true
	}
	return false
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("empty key")
	}
	return nil
}

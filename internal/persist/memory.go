package persist

import (
	"context"
	"sync"

	"github.com/onnwee/regions/internal/tracing"
)

// MemoryKV is an in-memory KV. Used for testing and development.
type MemoryKV struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string][]byte)}
}

// Name implements KV.
func (m *MemoryKV) Name() string { return BackendMemory }

// Save implements KV.
func (m *MemoryKV) Save(ctx context.Context, key string, value []byte) (err error) {
	_, endSpan := tracing.StartStorageSpan(ctx, BackendMemory, "save", key)
	defer func() { endSpan(err) }()
	if err := checkKey(key); err != nil {
		return err
	}
	m.mu.Lock()
	m.values[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	return nil
}

// Load implements KV.
func (m *MemoryKV) Load(ctx context.Context, key string) (_ []byte, err error) {
	_, endSpan := tracing.StartStorageSpan(ctx, BackendMemory, "load", key)
	defer func() { endSpan(err) }()
	m.mu.RLock()
	v, ok := m.values[key]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Delete implements KV.
func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.values, key)
	m.mu.Unlock()
	return nil
}

// Keys returns the number of stored keys.
func (m *MemoryKV) Keys() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.values)
}

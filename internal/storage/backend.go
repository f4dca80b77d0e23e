package storage

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
)

var (
	ErrStorage  = errors.New("storage")
	ErrTooLarge = fmt.Errorf("%w: data too large for storage", ErrStorage)
	ErrQuota    = fmt.Errorf("%w: quota exceeded", ErrStorage)
)

// Backend persists raw serialized entries under their full key.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, bool, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
}

// MemoryBackend keeps entries in process memory. A positive Quota caps the
// summed size of keys and values in bytes.
type MemoryBackend struct {
	mu    sync.Mutex
	data  map[string][]byte
	Quota int
}

func NewMemoryBackend(quota int) *MemoryBackend {
	return &MemoryBackend{data: map[string][]byte{}, Quota: quota}
}

func (m *MemoryBackend) Read(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

func (m *MemoryBackend) Write(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Quota > 0 {
		used := 0
		for k, v := range m.data {
			if k != key {
				used += len(k) + len(v)
			}
		}
		if used+len(key)+len(value) > m.Quota {
			return ErrQuota
		}
	}
	m.data[key] = slices.Clone(value)
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, key)
	return nil
}

func (m *MemoryBackend) Keys(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Sorted(maps.Keys(m.data)), nil
}

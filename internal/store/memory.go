package store

import (
	"context"
	"sync"
)

// MemoryBlob is an in-process Blob. Nothing survives a restart.
type MemoryBlob struct {
	mu   sync.Mutex
	data map[string][]byte

	// SaveErr, when set, is returned by every Save call.
	SaveErr error
}

// NewMemoryBlob returns an empty MemoryBlob.
func NewMemoryBlob() *MemoryBlob {
	return &MemoryBlob{data: make(map[string][]byte)}
}

// Load returns a copy of the value stored under key.
func (m *MemoryBlob) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Save replaces the value stored under key.
func (m *MemoryBlob) Save(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

// Delete removes key.
func (m *MemoryBlob) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Close is a no-op.
func (m *MemoryBlob) Close() error { return nil }

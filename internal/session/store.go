package session

import (
	"context"
	"errors"
	"sync"
)

// Key names one stored artifact
type Key string

const (
	KeyAudio      Key = "audio_file"
	KeyTargetWord Key = "target_word_ipa"
	KeyAnalysis   Key = "analysis_payload"
	KeyWeights    Key = "criteria_weights"
	KeyResult     Key = "analysis_results"
)

// ErrNotFound is returned by Get for a key that was never written
var ErrNotFound = errors.New("session: key not found")

// Store holds raw artifact values for one session
type Store interface {
	Get(ctx context.Context, key Key) ([]byte, error)
	Put(ctx context.Context, key Key, value []byte) error
	Delete(ctx context.Context, keys ...Key) error
	// PutAll deletes drop and writes values as one atomic change
	PutAll(ctx context.Context, values map[Key][]byte, drop ...Key) error
	Clear(ctx context.Context) error
	Close() error
}

// MemoryStore is a process-local Store
type MemoryStore struct {
	mu     sync.RWMutex
	values map[Key][]byte
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[Key][]byte)}
}

func (m *MemoryStore) Get(_ context.Context, key Key) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Put(_ context.Context, key Key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v := make([]byte, len(value))
	copy(v, value)
	m.values[key] = v
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, keys ...Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *MemoryStore) PutAll(_ context.Context, values map[Key][]byte, drop ...Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range drop {
		delete(m.values, k)
	}
	for k, value := range values {
		v := make([]byte, len(value))
		copy(v, value)
		m.values[k] = v
	}
	return nil
}

func (m *MemoryStore) Clear(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.values = make(map[Key][]byte)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

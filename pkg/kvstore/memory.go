package kvstore

import (
	"context"
	"slices"
	"sync"
)

// Memory is a thread-safe in-memory store. The zero value is ready to use.
type Memory struct {
	mu     sync.RWMutex
	once   sync.Once
	signal chan struct{}
	data   map[string][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// init ensures internal structures are allocated.
func (m *Memory) init() {
	m.once.Do(func() {
		m.data = make(map[string][]byte)
		m.signal = make(chan struct{})
	})
}

// Get returns a copy of the value stored under key.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.init()
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return slices.Clone(v), true, nil
}

// Set stores a copy of value and wakes goroutines blocked in Watch.
func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.init()
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[key] = slices.Clone(value)
	close(m.signal)
	m.signal = make(chan struct{})
	return nil
}

// Watch blocks until the value under key differs from prev (nil meaning
// absent) or ctx is done.
func (m *Memory) Watch(ctx context.Context, key string, prev []byte) ([]byte, error) {
	m.init()

	for {
		m.mu.RLock()
		v, ok := m.data[key]
		sig := m.signal
		m.mu.RUnlock()

		if ok && (prev == nil || !slices.Equal(v, prev)) {
			return slices.Clone(v), nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-sig:
		}
	}
}

// Close is a no-op.
func (m *Memory) Close() error { return nil }

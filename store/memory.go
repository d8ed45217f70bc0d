package store

import (
	"context"
	"sync"
)

// Memory keeps encoded collections in process. Values are copied on the way in
// and out so callers never share backing arrays.
type Memory struct {
	mu   sync.RWMutex
	data map[Name][]byte
}

var _ Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{data: make(map[Name][]byte)}
}

func (m *Memory) Get(_ context.Context, name Name) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[name]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (m *Memory) Set(_ context.Context, name Name, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[name] = append([]byte(nil), data...)
	return nil
}

func (m *Memory) Close(context.Context) error { return nil }

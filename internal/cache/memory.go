package cache

import (
	"context"
	"sync"
	"time"
)

type item struct {
	value     []byte
	expiresAt time.Time // zero means no expiry
}

func (i item) expired(now time.Time) bool {
	return !i.expiresAt.IsZero() && now.After(i.expiresAt)
}

// Memory is a process-local Cache. When full it drops expired entries first, then
// an arbitrary one.
type Memory struct {
	mu      sync.Mutex
	data    map[string]item
	maxSize int
	now     func() time.Time
}

func NewMemory(maxSize int) *Memory {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &Memory{data: make(map[string]item), maxSize: maxSize, now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.data[key]
	if !ok || it.expired(m.now()) {
		delete(m.data, key)
		return nil, ErrMiss
	}
	return it.value, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(key, value, ttl)
	return nil
}

func (m *Memory) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if it, ok := m.data[key]; ok && !it.expired(m.now()) {
		return false, nil
	}
	m.set(key, value, ttl)
	return true, nil
}

func (m *Memory) set(key string, value []byte, ttl time.Duration) {
	now := m.now()
	if _, exists := m.data[key]; !exists && len(m.data) >= m.maxSize {
		m.evict(now)
	}
	it := item{value: append([]byte(nil), value...)}
	if ttl > 0 {
		it.expiresAt = now.Add(ttl)
	}
	m.data[key] = it
}

func (m *Memory) evict(now time.Time) {
	for k, it := range m.data {
		if it.expired(now) {
			delete(m.data, k)
		}
	}
	if len(m.data) < m.maxSize {
		return
	}
	for k := range m.data {
		delete(m.data, k)
		return
	}
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *Memory) Close() error { return nil }

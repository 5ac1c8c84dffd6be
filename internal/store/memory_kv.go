package store

import (
	"context"
	"path"
	"sort"
	"sync"
	"time"
)

// MemoryKV backs the key space when Redis is disabled (dev mode, tests).
type MemoryKV struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	now   func() time.Time
}

type memoryItem struct {
	value     string
	expiresAt time.Time
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{items: map[string]memoryItem{}, now: time.Now}
}

func (m *MemoryKV) expired(it memoryItem) bool {
	return !it.expiresAt.IsZero() && !m.now().Before(it.expiresAt)
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	it, ok := m.items[key]
	if !ok || m.expired(it) {
		return "", ErrMiss
	}
	return it.value, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return m.SetMulti(ctx, map[string]string{key: value}, ttl)
}

func (m *MemoryKV) SetMulti(_ context.Context, values map[string]string, ttl time.Duration) error {
	var exp time.Time
	if ttl > 0 {
		exp = m.now().Add(ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range values {
		m.items[k] = memoryItem{value: v, expiresAt: exp}
	}
	return nil
}

func (m *MemoryKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// ScanKeys matches with glob semantics close enough to Redis SCAN MATCH.
func (m *MemoryKV) ScanKeys(_ context.Context, pattern string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var keys []string
	for k, it := range m.items {
		if m.expired(it) {
			continue
		}
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

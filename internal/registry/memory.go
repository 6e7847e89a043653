package registry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is a volatile in-process Store. It backs tests and the "memory"
// driver; it honors marker expiry using wall-clock time.
type Memory struct {
	mu      sync.Mutex
	subs    map[int64]struct{}
	markers map[string]time.Time
}

func NewMemory() *Memory {
	return &Memory{
		subs:    make(map[int64]struct{}),
		markers: make(map[string]time.Time),
	}
}

func (m *Memory) Members(ctx context.Context) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, 0, len(m.subs))
	for id := range m.subs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (m *Memory) Add(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs[chatID] = struct{}{}
	return nil
}

func (m *Memory) Remove(ctx context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subs, chatID)
	return nil
}

func (m *Memory) MarkerExists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.markers[key]
	if !ok {
		return false, nil
	}
	if time.Now().After(until) {
		delete(m.markers, key)
		return false, nil
	}
	return true, nil
}

func (m *Memory) SetMarker(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markers[key] = time.Now().Add(ttl)
	return nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

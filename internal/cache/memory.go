package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	fields    map[string]string
	expiresAt time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// Memory is an in-process Store. Expired entries are dropped lazily on
// access and in bulk by Sweep.
type Memory struct {
	mu   sync.RWMutex
	data map[string]*entry
	now  func() time.Time
}

// NewMemory returns an empty in-process store.
func NewMemory() *Memory {
	return &Memory{
		data: make(map[string]*entry),
		now:  time.Now,
	}
}

// live returns the entry at key if it exists and has not expired. Callers
// must hold at least the read lock.
func (m *Memory) live(key string) (*entry, bool) {
	e, ok := m.data[key]
	if !ok || e.expired(m.now()) {
		return nil, false
	}
	return e, true
}

func (m *Memory) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.live(key)
	return ok, nil
}

func (m *Memory) HGet(_ context.Context, key, field string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.live(key)
	if !ok {
		return "", false, nil
	}
	v, ok := e.fields[field]
	return v, ok, nil
}

func (m *Memory) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]string)
	if e, ok := m.live(key); ok {
		for k, v := range e.fields {
			out[k] = v
		}
	}
	return out, nil
}

func (m *Memory) HSetIfAbsent(_ context.Context, key string, fields map[string]string, ttl time.Duration) (bool, error) {
	if len(fields) == 0 {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	cp := make(map[string]string, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	e := &entry{fields: cp}
	if ttl > 0 {
		e.expiresAt = m.now().Add(ttl)
	}
	m.data[key] = e
	return true, nil
}

func (m *Memory) HSetIfExists(_ context.Context, key, field, value string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return false, nil
	}
	e.fields[field] = value
	return true, nil
}

func (m *Memory) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.live(key)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		delete(m.data, key)
		return nil
	}
	e.expiresAt = m.now().Add(ttl)
	return nil
}

func (m *Memory) TTL(_ context.Context, key string) (time.Duration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.live(key)
	if !ok {
		return MissingKey, nil
	}
	if e.expiresAt.IsZero() {
		return NoExpiry, nil
	}
	return e.expiresAt.Sub(m.now()), nil
}

func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

// Sweep removes every expired entry and returns how many were dropped.
func (m *Memory) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for k, e := range m.data {
		if e.expired(now) {
			delete(m.data, k)
			n++
		}
	}
	return n
}

// RunSweeper calls Sweep every interval until ctx is cancelled.
func (m *Memory) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}

package redis

import (
	"context"
	"sync"
	"time"
)

// memoryStore mirrors the redis Store semantics in-process. Used when
// REDIS_ADDR is unset and by tests.
type memoryStore struct {
	mu    sync.Mutex
	flags map[string]time.Time
	lists map[string]*memList
	now   func() time.Time
}

type memList struct {
	items     []string
	expiresAt time.Time
}

func NewMemoryStore() Store {
	return &memoryStore{
		flags: map[string]time.Time{},
		lists: map[string]*memList{},
		now:   time.Now,
	}
}

// NewMemoryStoreAt builds a memory store with an injected clock.
func NewMemoryStoreAt(now func() time.Time) Store {
	return &memoryStore{
		flags: map[string]time.Time{},
		lists: map[string]*memList{},
		now:   now,
	}
}

func (s *memoryStore) AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if exp, ok := s.flags[key]; ok && s.now().Before(exp) {
		return false, nil
	}
	s.flags[key] = s.now().Add(ttl)
	return true, nil
}

func (s *memoryStore) ReleaseLock(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, key)
	return nil
}

func (s *memoryStore) PushRotation(ctx context.Context, key, raw string, max int, ttl time.Duration) error {
	if max <= 0 {
		max = 1
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[key]
	if !ok || s.now().After(l.expiresAt) {
		l = &memList{}
		s.lists[key] = l
	}
	l.items = append([]string{raw}, l.items...)
	if len(l.items) > max {
		l.items = l.items[:max]
	}
	l.expiresAt = s.now().Add(ttl)
	return nil
}

func (s *memoryStore) ListRotation(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lists[key]
	if !ok || s.now().After(l.expiresAt) {
		return nil, nil
	}
	out := make([]string, len(l.items))
	copy(out, l.items)
	return out, nil
}

func (s *memoryStore) SetFlag(ctx context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = s.now().Add(ttl)
	return nil
}

func (s *memoryStore) HasFlag(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.flags[key]
	if !ok {
		return false, nil
	}
	if s.now().After(exp) {
		delete(s.flags, key)
		return false, nil
	}
	return true, nil
}

func (s *memoryStore) ClearFlag(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.flags, key)
	return nil
}

func (s *memoryStore) Close() error { return nil }

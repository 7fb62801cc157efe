package ratelimit

import (
	"context"
	"sync"
	"time"
)

// memoryCap bounds the counter map; when exceeded, expired entries are
// swept inside the same critical section.
const memoryCap = 5000

type memoryCounter struct {
	count   int64
	resetAt time.Time
}

// MemoryStore is an in-process counter store. Not durable across
// restarts and not shared across instances; suitable for a single-process
// deployment and for tests.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]memoryCounter
	now      Clock
}

// MemoryOption tunes a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryClock overrides the store clock (tests).
func WithMemoryClock(now Clock) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore creates an empty in-process store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		counters: make(map[string]memoryCounter),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Increment implements [Store]. The whole check-expiry, reset-or-
// increment, store sequence runs under one mutex so concurrent callers
// on the same key cannot lose updates.
func (s *MemoryStore) Increment(_ context.Context, key string, window time.Duration) (Result, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.counters[key]
	if !ok || !c.resetAt.After(now) {
		c = memoryCounter{count: 1, resetAt: now.Add(window)}
	} else {
		c.count++
	}
	s.counters[key] = c

	if len(s.counters) > memoryCap {
		for k, v := range s.counters {
			if !v.resetAt.After(now) {
				delete(s.counters, k)
			}
		}
	}

	return Result{Count: c.count, ResetAt: c.resetAt}, nil
}

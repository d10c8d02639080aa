package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryCounter struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore keeps counters in process memory. Expired windows are swept
// once per new window start.
type MemoryStore struct {
	mu        sync.Mutex
	counters  map[string]*memoryCounter
	lastSweep time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counters: make(map[string]*memoryCounter)}
}

func (s *MemoryStore) Increment(_ context.Context, key string, windowStart time.Time, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if windowStart.After(s.lastSweep) {
		s.sweep(windowStart)
		s.lastSweep = windowStart
	}

	c, ok := s.counters[key]
	if !ok {
		c = &memoryCounter{expiresAt: windowStart.Add(ttl)}
		s.counters[key] = c
	}
	c.count++
	return c.count, nil
}

func (s *MemoryStore) sweep(now time.Time) {
	for key, c := range s.counters {
		if !now.Before(c.expiresAt) {
			delete(s.counters, key)
		}
	}
}

// Len reports how many windows are tracked.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.counters)
}

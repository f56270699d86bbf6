package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultCleanupInterval is the minimum time between two expiry sweeps.
const DefaultCleanupInterval = 60 * time.Second

// MemoryStore is a process-local fixed-window Store.
//
// Expired records are swept lazily: each check runs a sweep first if more
// than the cleanup interval has passed since the previous one. No goroutine
// or timer is started.
type MemoryStore struct {
	mu              sync.Mutex
	records         map[string]*Record
	now             func() time.Time
	cleanupInterval time.Duration
	lastCleanup     time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source. Intended for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCleanupInterval overrides DefaultCleanupInterval.
func WithCleanupInterval(d time.Duration) MemoryOption {
	return func(s *MemoryStore) {
		if d > 0 {
			s.cleanupInterval = d
		}
	}
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records:         make(map[string]*Record),
		now:             time.Now,
		cleanupInterval: DefaultCleanupInterval,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.lastCleanup = s.now()
	return s
}

// CheckRateLimit counts one request for key and returns the decision.
// A rejected request does not change the stored count.
func (s *MemoryStore) CheckRateLimit(key string, cfg Config) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweepLocked(now)

	rec, ok := s.records[key]
	if !ok || rec.Expired(now) {
		s.records[key] = &Record{Count: 1, ResetTime: now.Add(cfg.Window)}
		return Decision{
			Success:   true,
			Limit:     cfg.Limit,
			Remaining: cfg.Limit - 1,
			ResetIn:   cfg.Window,
		}
	}

	resetIn := rec.ResetTime.Sub(now)
	if rec.Count < cfg.Limit {
		rec.Count++
		return Decision{
			Success:   true,
			Limit:     cfg.Limit,
			Remaining: cfg.Limit - rec.Count,
			ResetIn:   resetIn,
		}
	}

	return Decision{
		Success:   false,
		Limit:     cfg.Limit,
		Remaining: 0,
		ResetIn:   resetIn,
	}
}

// Check implements Store. It never fails.
func (s *MemoryStore) Check(_ context.Context, key string, cfg Config) (Decision, error) {
	return s.CheckRateLimit(key, cfg), nil
}

// Len returns the number of tracked keys, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Reset drops every record.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*Record)
}

func (s *MemoryStore) sweepLocked(now time.Time) {
	if now.Sub(s.lastCleanup) <= s.cleanupInterval {
		return
	}
	s.lastCleanup = now
	for key, rec := range s.records {
		if rec.Expired(now) {
			delete(s.records, key)
		}
	}
}

package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore implements Store with a process-local map.
// All data is lost when the process exits.
//
// Expired entries are invisible to readers immediately and are swept from
// the map by a background goroutine.
type MemoryStore struct {
	// entries maps key to counter entry.
	entries map[string]*memoryEntry

	// mu protects entries and closed.
	mu     sync.Mutex
	closed bool

	// maxEntries is the maximum number of entries before eviction.
	maxEntries int

	// now returns the current time; replaceable in tests.
	now func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

type memoryEntry struct {
	value     int64
	expiresAt time.Time // zero means no expiry
}

func (e *memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStoreConfig configures the memory store.
type MemoryStoreConfig struct {
	// MaxEntries is the maximum number of counters to keep.
	// The entry closest to expiry is evicted when the limit is reached.
	// Default: 100,000
	MaxEntries int

	// CleanupInterval is how often expired entries are swept.
	// Default: 1 minute
	CleanupInterval time.Duration

	// Now overrides the clock. Default: time.Now
	Now func() time.Time
}

// NewMemoryStore creates a memory store with default settings.
func NewMemoryStore() *MemoryStore {
	return NewMemoryStoreWithConfig(MemoryStoreConfig{})
}

// NewMemoryStoreWithConfig creates a memory store with custom configuration.
func NewMemoryStoreWithConfig(cfg MemoryStoreConfig) *MemoryStore {
	if cfg.MaxEntries == 0 {
		cfg.MaxEntries = 100000
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	s := &MemoryStore{
		entries:    make(map[string]*memoryEntry),
		maxEntries: cfg.MaxEntries,
		now:        cfg.Now,
		done:       make(chan struct{}),
	}

	go s.cleanupLoop(cfg.CleanupInterval)

	return s
}

// Get returns the current value of key.
func (s *MemoryStore) Get(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, newError("memory", "get", key, ErrClosed)
	}

	e, ok := s.entries[key]
	if !ok || e.expired(s.now()) {
		return 0, nil
	}
	return e.value, nil
}

// Incr atomically increments key and refreshes its TTL.
func (s *MemoryStore) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, newError("memory", "incr", key, ErrClosed)
	}

	now := s.now()
	e, ok := s.entries[key]
	if !ok || e.expired(now) {
		if !ok && len(s.entries) >= s.maxEntries {
			s.evictLocked(now)
		}
		e = &memoryEntry{}
		s.entries[key] = e
	}

	e.value++
	e.expiresAt = expiry(now, ttl)

	return e.value, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newError("memory", "set", key, ErrClosed)
	}

	now := s.now()
	if _, ok := s.entries[key]; !ok && len(s.entries) >= s.maxEntries {
		s.evictLocked(now)
	}
	s.entries[key] = &memoryEntry{value: value, expiresAt: expiry(now, ttl)}
	return nil
}

// TTL returns the remaining time-to-live of key.
func (s *MemoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, newError("memory", "ttl", key, ErrClosed)
	}

	now := s.now()
	e, ok := s.entries[key]
	if !ok || e.expired(now) || e.expiresAt.IsZero() {
		return 0, nil
	}
	return e.expiresAt.Sub(now), nil
}

// Ping reports whether the store is open.
func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return newError("memory", "ping", "", ErrClosed)
	}
	return nil
}

// Close stops the sweeper. Subsequent operations return ErrClosed.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.done)
	})
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := 0
	for _, e := range s.entries {
		if !e.expired(now) {
			n++
		}
	}
	return n
}

// sweep removes expired entries and returns how many were removed.
func (s *MemoryStore) sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}

// evictLocked drops expired entries, or failing that the entry closest to
// expiry. Caller must hold mu.
func (s *MemoryStore) evictLocked(now time.Time) {
	var (
		victim    string
		victimExp time.Time
		found     bool
	)

	for key, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, key)
			return
		}
		if e.expiresAt.IsZero() {
			continue
		}
		if !found || e.expiresAt.Before(victimExp) {
			victim, victimExp, found = key, e.expiresAt, true
		}
	}

	if found {
		delete(s.entries, victim)
	}
}

func (s *MemoryStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.done:
			return
		}
	}
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

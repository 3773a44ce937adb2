package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Policy pairs a staleness window with a garbage-collection window. A zero
// Stale means the entry never goes stale; a zero GC means the entry is never
// collected.
type Policy struct {
	Stale time.Duration
	GC    time.Duration
}

// Named policies used across resource kinds
var (
	// PolicyNever is for immutable resources, e.g. a completed session's
	// analytics.
	PolicyNever = Policy{}
	// PolicyLong is for slow-moving resources, e.g. tag lists and tips.
	PolicyLong = Policy{Stale: 10 * time.Minute, GC: 30 * time.Minute}
	// PolicyMedium is for scenario and session lists.
	PolicyMedium = Policy{Stale: 2 * time.Minute, GC: 30 * time.Minute}
	// PolicyShort is available but bound to no named resource.
	PolicyShort = Policy{Stale: 30 * time.Second, GC: 5 * time.Minute}
)

// Key is a hierarchical cache key: resource kind first, then discriminating
// parameters in a fixed order, so prefix invalidation is never ambiguous.
type Key []string

// String renders the key as a path
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether the key starts with the given prefix
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Fetcher produces the value for a cache key
type Fetcher func(ctx context.Context) (interface{}, error)

type entry struct {
	key        Key
	policy     Policy
	value      interface{}
	hasValue   bool
	fetchErr   error
	fetchedAt  time.Time
	lastAccess time.Time
	stale      bool          // forced stale by Invalidate
	inflight   chan struct{} // non-nil while a foreground fetch runs, closed on completion
	refreshing bool          // a background refresh is running
}

// Store is a keyed, time-bucketed resource cache. Stale entries are served
// immediately while a background refresh runs; concurrent callers for the
// same key share one fetch. Writes are last-write-wins; the backend is the
// source of truth.
type Store struct {
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]*entry

	stopChan chan struct{}
	stopOnce sync.Once
}

const janitorInterval = time.Minute

// NewStore creates a cache store and starts its garbage-collection janitor
func NewStore(logger *zap.Logger) *Store {
	s := &Store{
		logger:   logger,
		entries:  make(map[string]*entry),
		stopChan: make(chan struct{}),
	}
	go s.janitorLoop()
	return s
}

// Stop stops the garbage-collection janitor
func (s *Store) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Get returns the value for key. A fresh entry is returned as-is. A stale
// entry is returned immediately while a background refresh is started (at
// most one per key). On a miss the fetch runs in the foreground and
// concurrent callers attach to it instead of issuing a second request.
func (s *Store) Get(ctx context.Context, key Key, policy Policy, fetch Fetcher) (interface{}, error) {
	id := key.String()

	s.mu.Lock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{key: key}
		s.entries[id] = e
	}
	e.lastAccess = time.Now()
	e.policy = policy

	if e.hasValue {
		if s.fresh(e, policy) {
			value := e.value
			s.mu.Unlock()
			return value, nil
		}

		// Serve stale data immediately, refreshing in the background.
		if !e.refreshing {
			e.refreshing = true
			go s.refresh(key, policy, fetch)
		}
		value := e.value
		s.mu.Unlock()
		return value, nil
	}

	if e.inflight != nil {
		// Attach to the in-flight fetch.
		wait := e.inflight
		s.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if e.hasValue {
			return e.value, nil
		}
		return nil, e.fetchErr
	}

	done := make(chan struct{})
	e.inflight = done
	s.mu.Unlock()

	value, err := fetch(ctx)

	s.mu.Lock()
	e.inflight = nil
	if err == nil {
		e.value = value
		e.hasValue = true
		e.fetchErr = nil
		e.fetchedAt = time.Now()
		e.stale = false
	} else {
		e.fetchErr = err
		if !e.hasValue {
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()
	close(done)

	if err != nil {
		return nil, err
	}
	return value, nil
}

func (s *Store) fresh(e *entry, policy Policy) bool {
	if e.stale {
		return false
	}
	if policy.Stale <= 0 {
		return true
	}
	return time.Since(e.fetchedAt) < policy.Stale
}

func (s *Store) refresh(key Key, policy Policy, fetch Fetcher) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	value, err := fetch(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key.String()]
	if !ok {
		return
	}
	e.refreshing = false
	if err != nil {
		// Keep serving the stale value; the next access retries.
		s.logger.Warn("Cache refresh failed",
			zap.String("key", key.String()),
			zap.Error(err))
		return
	}
	e.value = value
	e.hasValue = true
	e.fetchedAt = time.Now()
	e.stale = false
}

// Invalidate marks every entry whose key starts with prefix as stale,
// forcing a refetch on next access. Used after mutations.
func (s *Store) Invalidate(prefix Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.key.HasPrefix(prefix) {
			e.stale = true
		}
	}
}

// Clear drops every entry. Used on logout, when cached resources scoped to
// the identity must not survive.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*entry)
}

// Len returns the number of entries currently held
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) janitorLoop() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.collect(time.Now())
		}
	}
}

// collect evicts entries whose GC window has elapsed without access
func (s *Store) collect(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, e := range s.entries {
		if e.inflight != nil || e.refreshing {
			continue
		}
		if e.policy.GC <= 0 {
			continue
		}
		if now.Sub(e.lastAccess) > e.policy.GC {
			delete(s.entries, id)
			evicted++
		}
	}
	if evicted > 0 {
		s.logger.Debug("Cache entries evicted", zap.Int("count", evicted))
	}
}

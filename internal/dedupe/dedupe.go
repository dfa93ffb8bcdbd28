// Package dedupe guards the update dispatcher against re-processing the
// same Telegram update. Telegram redelivers updates when a webhook response
// is slow, so the same update_id can arrive more than once; recording ids
// for a bounded window turns at-least-once delivery into at-most-once
// processing.
package dedupe

import (
	"sync"
	"time"
)

const (
	// DefaultTTL is how long a processed update id is remembered.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxEntries triggers an opportunistic sweep of expired entries
	// when the retained set grows past it.
	DefaultMaxEntries = 5000
)

// Store decides whether an update should be processed. Implementations must
// be safe for concurrent use.
type Store interface {
	// ShouldProcess records the id and returns true on first sight within
	// the TTL window. Ids <= 0 cannot be deduplicated and always return
	// true (process rather than silently drop).
	ShouldProcess(id int64) bool

	// Sweep removes expired entries and returns how many were removed.
	Sweep() int
}

// MemoryStore is the in-process Store. State is lost on restart; a
// redelivered update that straddles a restart is processed twice, which the
// design accepts.
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[int64]time.Time // update id → expiry
	ttl        time.Duration
	maxEntries int

	// now is injectable for testing.
	now func() time.Time
}

// NewMemoryStore creates a MemoryStore. Non-positive ttl or maxEntries fall
// back to the defaults.
func NewMemoryStore(ttl time.Duration, maxEntries int) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &MemoryStore{
		entries:    make(map[int64]time.Time),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// ShouldProcess implements Store.
func (s *MemoryStore) ShouldProcess(id int64) bool {
	if id <= 0 {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiry, seen := s.entries[id]; seen && expiry.After(now) {
		return false
	}

	s.entries[id] = now.Add(s.ttl)

	// Best-effort bound: the map can exceed maxEntries transiently when
	// every retained entry is still live.
	if len(s.entries) > s.maxEntries {
		s.sweepLocked(now)
	}
	return true
}

// Sweep implements Store.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked(s.now())
}

func (s *MemoryStore) sweepLocked(now time.Time) int {
	removed := 0
	for id, expiry := range s.entries {
		if !expiry.After(now) {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of retained entries, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

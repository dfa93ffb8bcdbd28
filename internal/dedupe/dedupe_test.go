package dedupe

import (
	"sync"
	"testing"
	"time"
)

func newTestStore(ttl time.Duration, maxEntries int) (*MemoryStore, *time.Time) {
	s := NewMemoryStore(ttl, maxEntries)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestShouldProcessFirstSight(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(0, 0)

	if !s.ShouldProcess(42) {
		t.Error("first sight of id 42 should process")
	}
	if s.ShouldProcess(42) {
		t.Error("second sight of id 42 within TTL should not process")
	}
	if !s.ShouldProcess(43) {
		t.Error("different id should process")
	}
}

func TestShouldProcessNonPositiveIDs(t *testing.T) {
	t.Parallel()
	s, _ := newTestStore(0, 0)

	for range 3 {
		if !s.ShouldProcess(0) {
			t.Error("id 0 should always process")
		}
		if !s.ShouldProcess(-1) {
			t.Error("negative id should always process")
		}
	}
	if s.Len() != 0 {
		t.Errorf("non-positive ids should not be recorded, got %d entries", s.Len())
	}
}

func TestShouldProcessAfterExpiry(t *testing.T) {
	t.Parallel()
	s, now := newTestStore(5*time.Minute, 0)

	if !s.ShouldProcess(7) {
		t.Fatal("first sight should process")
	}

	*now = now.Add(5*time.Minute - time.Second)
	if s.ShouldProcess(7) {
		t.Error("id still within TTL should not process")
	}

	*now = now.Add(2 * time.Second)
	if !s.ShouldProcess(7) {
		t.Error("id past TTL should process again")
	}
}

func TestExpiryRefreshedOnReprocess(t *testing.T) {
	t.Parallel()
	s, now := newTestStore(5*time.Minute, 0)

	s.ShouldProcess(7)
	*now = now.Add(6 * time.Minute)

	// Reprocessing past expiry re-records with a fresh window.
	if !s.ShouldProcess(7) {
		t.Fatal("expired id should process")
	}
	*now = now.Add(4 * time.Minute)
	if s.ShouldProcess(7) {
		t.Error("refreshed id should still be suppressed")
	}
}

func TestOpportunisticSweep(t *testing.T) {
	t.Parallel()
	s, now := newTestStore(time.Minute, 10)

	for id := int64(1); id <= 10; id++ {
		s.ShouldProcess(id)
	}
	if s.Len() != 10 {
		t.Fatalf("Len() = %d, want 10", s.Len())
	}

	// All 10 expire; the next insert crosses the threshold and sweeps.
	*now = now.Add(2 * time.Minute)
	s.ShouldProcess(11)
	if s.Len() != 1 {
		t.Errorf("Len() after opportunistic sweep = %d, want 1", s.Len())
	}
}

func TestSweepKeepsLiveEntries(t *testing.T) {
	t.Parallel()
	s, now := newTestStore(time.Minute, 0)

	s.ShouldProcess(1)
	*now = now.Add(30 * time.Second)
	s.ShouldProcess(2)
	*now = now.Add(45 * time.Second) // id 1 expired, id 2 live

	if removed := s.Sweep(); removed != 1 {
		t.Errorf("Sweep() = %d, want 1", removed)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
	if s.ShouldProcess(2) {
		t.Error("live entry should survive sweep")
	}
}

func TestDefaults(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore(0, 0)
	if s.ttl != DefaultTTL {
		t.Errorf("ttl = %s, want %s", s.ttl, DefaultTTL)
	}
	if s.maxEntries != DefaultMaxEntries {
		t.Errorf("maxEntries = %d, want %d", s.maxEntries, DefaultMaxEntries)
	}
}

func TestConcurrentSameID(t *testing.T) {
	t.Parallel()
	s := NewMemoryStore(time.Minute, 100)

	const goroutines = 32
	var wg sync.WaitGroup
	results := make(chan bool, goroutines)

	for range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.ShouldProcess(99)
		}()
	}
	wg.Wait()
	close(results)

	processed := 0
	for r := range results {
		if r {
			processed++
		}
	}
	if processed != 1 {
		t.Errorf("concurrent deliveries of one id: %d processed, want exactly 1", processed)
	}
}

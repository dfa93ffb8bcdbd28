package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hyperlinkspace/telegate/internal/dedupe"
)

const schema = `
CREATE TABLE IF NOT EXISTS seen_updates (
	update_id  INTEGER PRIMARY KEY,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_seen_updates_expires ON seen_updates(expires_at);
`

// Store is the SQLite-backed dedupe store. Unlike the in-memory store it
// survives restarts, so a redelivery that straddles a restart is still
// suppressed.
type Store struct {
	db     *sql.DB
	ttl    time.Duration
	logger *slog.Logger

	// Serializes writers; SQLite allows one at a time anyway.
	mu sync.Mutex

	// now is injectable for testing.
	now func() time.Time
}

var _ dedupe.Store = (*Store)(nil)

// NewStore creates a Store over an open database, applying the schema.
func NewStore(db *sql.DB, ttl time.Duration, logger *slog.Logger) (*Store, error) {
	if ttl <= 0 {
		ttl = dedupe.DefaultTTL
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("sqlite dedupe: apply schema: %w", err)
	}
	return &Store{
		db:     db,
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}, nil
}

// ShouldProcess implements dedupe.Store. The insert-or-revive upsert makes
// the check-and-record atomic: the row is claimed only when absent or
// expired, so concurrent deliveries of the same id race to a single winner.
// Storage errors fail open — processing twice beats dropping silently.
func (s *Store) ShouldProcess(id int64) bool {
	if id <= 0 {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().Unix()
	res, err := s.db.Exec(`
		INSERT INTO seen_updates (update_id, expires_at) VALUES (?, ?)
		ON CONFLICT(update_id) DO UPDATE SET expires_at = excluded.expires_at
		WHERE seen_updates.expires_at <= ?`,
		id, now+int64(s.ttl.Seconds()), now)
	if err != nil {
		s.logger.Error("dedupe upsert failed, processing anyway", "error", err, "update_id", id)
		return true
	}

	n, err := res.RowsAffected()
	if err != nil {
		s.logger.Error("dedupe rows affected failed, processing anyway", "error", err, "update_id", id)
		return true
	}
	return n == 1
}

// Sweep implements dedupe.Store.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM seen_updates WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		s.logger.Error("dedupe sweep failed", "error", err)
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}

// Len returns the number of retained entries, expired or not.
func (s *Store) Len() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM seen_updates`).Scan(&n)
	return n, err
}

package sem

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// LiveStore is the durable SEM backend: a single row per canonical key in
// the sem_kv table, replaced unconditionally on every write (last-write-
// wins on key). It never holds a journal file handle of its own —
// journaling is the caller's (the sem.Service's) responsibility, so that
// only code paths that also hold the DeterminismContext can produce a
// journal entry.
type LiveStore struct {
	db *sql.DB
}

// NewLiveStore wraps an already-migrated *sql.DB. db must have the
// sem_kv(canonical_key PK, value TEXT, last_updated TEXT) table created
// (see pkg/database/migrations).
func NewLiveStore(db *sql.DB) *LiveStore {
	return &LiveStore{db: db}
}

func (s *LiveStore) IsSandbox() bool { return false }

func (s *LiveStore) Get(ctx context.Context, key string) ([]byte, string, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT value, last_updated FROM sem_kv WHERE canonical_key = $1`, key)
	var value, lastUpdated string
	if err := row.Scan(&value, &lastUpdated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", false, nil
		}
		return nil, "", false, fmt.Errorf("sem: live get %q: %w", key, err)
	}
	return []byte(value), lastUpdated, true, nil
}

func (s *LiveStore) Put(ctx context.Context, key string, blob []byte, timestamp string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sem_kv (canonical_key, value, last_updated)
		VALUES ($1, $2, $3)
		ON CONFLICT (canonical_key) DO UPDATE
		SET value = EXCLUDED.value, last_updated = EXCLUDED.last_updated
	`, key, string(blob), timestamp)
	if err != nil {
		return fmt.Errorf("sem: live put %q: %w", key, err)
	}
	return nil
}

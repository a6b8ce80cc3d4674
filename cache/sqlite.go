package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is a durable Store backed by a SQLite database. Entries
// survive process restarts; timestamps round-trip at nanosecond precision.
type SQLiteStore struct {
	db *sql.DB
}

const createCacheTable = `
CREATE TABLE IF NOT EXISTS response_cache (
	tool TEXT NOT NULL,
	hash TEXT NOT NULL,
	params TEXT NOT NULL,
	value BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	hit_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (tool, hash)
);
CREATE INDEX IF NOT EXISTS idx_response_cache_expiry ON response_cache(expires_at);
`

// NewSQLiteStore opens (creating if needed) a SQLite-backed store at the
// given path and runs auto-migration.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("cache: open sqlite db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: migrate sqlite db: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Get retrieves an entry. Expired entries report a miss but stay in the
// table until Cleanup runs.
func (s *SQLiteStore) Get(ctx context.Context, tool, hash string) (Entry, bool, error) {
	var (
		paramsJSON string
		value      []byte
		createdNs  int64
		expiresNs  int64
		hits       int64
	)

	err := s.db.QueryRowContext(ctx,
		`SELECT params, value, created_at, expires_at, hit_count
		 FROM response_cache WHERE tool = ? AND hash = ?`,
		tool, hash,
	).Scan(&paramsJSON, &value, &createdNs, &expiresNs, &hits)
	if err == sql.ErrNoRows {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: sqlite get: %w", err)
	}

	e := Entry{
		Tool:      tool,
		Hash:      hash,
		Value:     value,
		CreatedAt: time.Unix(0, createdNs),
		ExpiresAt: time.Unix(0, expiresNs),
		HitCount:  hits,
	}
	if e.Expired(time.Now()) {
		return Entry{}, false, nil
	}

	if paramsJSON != "" && paramsJSON != "null" {
		if err := json.Unmarshal([]byte(paramsJSON), &e.Params); err != nil {
			return Entry{}, false, fmt.Errorf("cache: sqlite decode params: %w", err)
		}
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE response_cache SET hit_count = hit_count + 1 WHERE tool = ? AND hash = ?`,
		tool, hash,
	); err != nil {
		return Entry{}, false, fmt.Errorf("cache: sqlite hit count: %w", err)
	}
	e.HitCount = hits + 1

	return e, true, nil
}

// Put stores an entry, replacing any previous entry for (tool, hash).
func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	paramsJSON, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("cache: sqlite encode params: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO response_cache
		 (tool, hash, params, value, created_at, expires_at, hit_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.Tool, e.Hash, string(paramsJSON), e.Value,
		e.CreatedAt.UnixNano(), e.ExpiresAt.UnixNano(), e.HitCount,
	)
	if err != nil {
		return fmt.Errorf("cache: sqlite put: %w", err)
	}
	return nil
}

// Delete removes an entry. Idempotent - no error on miss.
func (s *SQLiteStore) Delete(ctx context.Context, tool, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM response_cache WHERE tool = ? AND hash = ?`, tool, hash)
	if err != nil {
		return fmt.Errorf("cache: sqlite delete: %w", err)
	}
	return nil
}

// Cleanup removes all expired entries and returns the removed count.
func (s *SQLiteStore) Cleanup(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM response_cache WHERE expires_at <= ?`, time.Now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("cache: sqlite cleanup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("cache: sqlite cleanup count: %w", err)
	}
	return int(n), nil
}

// Stats returns a snapshot of the store's contents.
func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN expires_at > ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(hit_count), 0)
		 FROM response_cache`, time.Now().UnixNano(),
	).Scan(&st.TotalEntries, &st.ValidEntries, &st.TotalHits)
	if err != nil {
		return Stats{}, fmt.Errorf("cache: sqlite stats: %w", err)
	}
	st.ExpiredEntries = st.TotalEntries - st.ValidEntries
	return st, nil
}

// Clear removes all entries.
func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM response_cache`); err != nil {
		return fmt.Errorf("cache: sqlite clear: %w", err)
	}
	return nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)

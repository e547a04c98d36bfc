package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the tier-2 bounded persistent store. Eviction is LRU by
// last-access timestamp once the row count exceeds maxSize.
type SQLiteStore struct {
	db      *sql.DB
	maxSize int
	mu      sync.Mutex
}

// NewSQLiteStore opens (and migrates) a sqlite-backed store at dbPath.
func NewSQLiteStore(dbPath string, maxSize int) (*SQLiteStore, error) {
	if maxSize <= 0 {
		maxSize = 500
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}

	store := &SQLiteStore{db: db, maxSize: maxSize}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS cache_entries (
		key TEXT PRIMARY KEY,
		value BLOB NOT NULL,
		expires_at INTEGER NOT NULL,
		accessed_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cache_accessed_at ON cache_entries(accessed_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var value []byte
	var expiresUnix int64
	err := s.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries WHERE key = ?`, key).
		Scan(&value, &expiresUnix)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("cache get: %w", err)
	}

	now := time.Now()
	var expiresAt time.Time
	if expiresUnix > 0 {
		expiresAt = time.UnixMilli(expiresUnix)
	}
	if expired(expiresAt, now) {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
		return nil, time.Time{}, false, nil
	}

	_, _ = s.db.ExecContext(ctx,
		`UPDATE cache_entries SET accessed_at = ? WHERE key = ?`, now.UnixMilli(), key)
	return value, expiresAt, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UnixMilli()
	var expiresUnix int64
	if !expiresAt.IsZero() {
		expiresUnix = expiresAt.UnixMilli()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (key, value, expires_at, accessed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at,
			accessed_at = excluded.accessed_at
	`, key, value, expiresUnix, now)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}

	return s.evictOverflow(ctx)
}

// evictOverflow removes the least recently used rows beyond maxSize.
func (s *SQLiteStore) evictOverflow(ctx context.Context) error {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&count); err != nil {
		return fmt.Errorf("cache count: %w", err)
	}
	if count <= s.maxSize {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM cache_entries WHERE key IN (
			SELECT key FROM cache_entries ORDER BY accessed_at ASC LIMIT ?
		)
	`, count-s.maxSize)
	if err != nil {
		return fmt.Errorf("cache evict: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key)
	return err
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`)
	return err
}

func (s *SQLiteStore) Size(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cache_entries`).Scan(&count)
	return count, err
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

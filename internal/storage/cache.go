package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/conorfennell/idiomas/internal/assetcache"
)

// CacheStore keeps asset cache generations in a sqlite database.
type CacheStore struct {
	conn *sql.DB
}

var _ assetcache.Store = (*CacheStore)(nil)

// OpenCache opens the cache database and ensures the schema is up to date.
func OpenCache(dsn string) (*CacheStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to cache database: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply cache schema: %w", err)
	}
	return &CacheStore{conn: db}, nil
}

// Close closes the database connection.
func (s *CacheStore) Close() error {
	return s.conn.Close()
}

// Get returns the entry stored under key in generation, or nil when absent.
func (s *CacheStore) Get(ctx context.Context, generation, key string) (*assetcache.Entry, error) {
	var (
		e      assetcache.Entry
		header string
	)
	row := s.conn.QueryRowContext(ctx, `
		SELECT key, method, url, status, header, body, stored_at
		FROM cache_entries WHERE generation = ? AND key = ?
	`, generation, key)
	err := row.Scan(&e.Key, &e.Method, &e.URL, &e.Status, &header, &e.Body, &e.StoredAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find cache entry %s in %s: %w", key, generation, err)
	}
	if err := json.Unmarshal([]byte(header), &e.Header); err != nil {
		return nil, fmt.Errorf("failed to decode headers for %s: %w", e.URL, err)
	}
	if e.Header == nil {
		e.Header = http.Header{}
	}
	return &e, nil
}

// Put stores a single entry, registering the generation if needed.
func (s *CacheStore) Put(ctx context.Context, generation string, entry assetcache.Entry) error {
	return s.PutAll(ctx, generation, []assetcache.Entry{entry})
}

// PutAll stores entries in one transaction.
func (s *CacheStore) PutAll(ctx context.Context, generation string, entries []assetcache.Entry) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO cache_generations (name, created_at) VALUES (?, ?)
	`, generation, time.Now()); err != nil {
		return fmt.Errorf("failed to register generation %s: %w", generation, err)
	}

	for _, e := range entries {
		header, err := json.Marshal(e.Header)
		if err != nil {
			return fmt.Errorf("failed to encode headers for %s: %w", e.URL, err)
		}
		storedAt := e.StoredAt
		if storedAt.IsZero() {
			storedAt = time.Now()
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cache_entries (generation, key, method, url, status, header, body, stored_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(generation, key) DO UPDATE SET
				method = excluded.method,
				url = excluded.url,
				status = excluded.status,
				header = excluded.header,
				body = excluded.body,
				stored_at = excluded.stored_at
		`, generation, e.Key, e.Method, e.URL, e.Status, string(header), e.Body, storedAt)
		if err != nil {
			return fmt.Errorf("failed to store cache entry %s: %w", e.URL, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit generation %s: %w", generation, err)
	}
	return nil
}

// Generations lists every stored generation.
func (s *CacheStore) Generations(ctx context.Context) ([]string, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT name FROM cache_generations ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache generations: %w", err)
	}
	defer rows.Close()

	var gens []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan cache generation: %w", err)
		}
		gens = append(gens, name)
	}
	return gens, rows.Err()
}

// DeleteGeneration removes a generation and all of its entries.
func (s *CacheStore) DeleteGeneration(ctx context.Context, generation string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin cache transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE generation = ?`, generation); err != nil {
		return fmt.Errorf("failed to delete entries of generation %s: %w", generation, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_generations WHERE name = ?`, generation); err != nil {
		return fmt.Errorf("failed to delete generation %s: %w", generation, err)
	}
	return tx.Commit()
}

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // Registers the sqlite driver
)

// XPKey is the meta key holding the experience counter.
const XPKey = "xp"

// ErrNegativeDelta is returned when AddXP would decrease the counter.
var ErrNegativeDelta = errors.New("xp delta must not be negative")

// ProgressStore keeps learner progress in a local sqlite file. A connection
// is opened and closed around every operation; nothing is held in between.
type ProgressStore struct {
	dsn string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewProgressStore returns a store backed by the sqlite database at dsn.
// The file is created on first use.
func NewProgressStore(dsn string) *ProgressStore {
	return &ProgressStore{dsn: dsn, locks: make(map[string]*sync.Mutex)}
}

// open creates a connection and ensures the schema exists.
func (s *ProgressStore) open(ctx context.Context) (*sql.DB, error) {
	db, err := sql.Open("sqlite", s.dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if _, err := db.ExecContext(ctx, progressSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return db, nil
}

// Open creates the database and its collection if they do not exist yet.
// It is safe to call repeatedly.
func (s *ProgressStore) Open(ctx context.Context) error {
	db, err := s.open(ctx)
	if err != nil {
		return err
	}
	return db.Close()
}

// lock serializes access to a single key.
func (s *ProgressStore) lock(key string) func() {
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// XP returns the stored experience counter, or 0 when it was never set.
func (s *ProgressStore) XP(ctx context.Context) (int, error) {
	defer s.lock(XPKey)()

	db, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	raw, err := getValue(ctx, db, XPKey)
	if err != nil {
		return 0, err
	}
	return decodeXP(raw), nil
}

// AddXP adds delta to the experience counter and returns the new total.
func (s *ProgressStore) AddXP(ctx context.Context, delta int) (int, error) {
	if delta < 0 {
		return 0, ErrNegativeDelta
	}
	defer s.lock(XPKey)()

	db, err := s.open(ctx)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	raw, err := getValue(ctx, tx, XPKey)
	if err != nil {
		return 0, err
	}
	next := decodeXP(raw) + delta
	if err := putValue(ctx, tx, XPKey, next); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit xp: %w", err)
	}
	return next, nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getValue(ctx context.Context, q querier, key string) ([]byte, error) {
	var raw string
	err := q.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read key %s: %w", key, err)
	}
	return []byte(raw), nil
}

func putValue(ctx context.Context, q querier, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode value for key %s: %w", key, err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, string(b))
	if err != nil {
		return fmt.Errorf("failed to write key %s: %w", key, err)
	}
	return nil
}

// decodeXP treats anything that is not a non-negative number as unset.
func decodeXP(raw []byte) int {
	if raw == nil {
		return 0
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err != nil || n < 0 {
		return 0
	}
	return int(n)
}

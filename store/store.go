package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// Store holds encoded entries by key. Implementations are safe for
// concurrent use.
type Store interface {
	// Get returns the entry for k; ok is false when there is none.
	Get(ctx context.Context, k Key) (e *Entry, ok bool, err error)
	Put(ctx context.Context, k Key, e *Entry) error
	Close() error
}

// Open returns the store for a configured backend: "memory", "sqlite"
// (at path) or "none", which returns nil.
func Open(backend, path string) (Store, error) {
	switch backend {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		s, err := OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, fmt.Errorf("store: unknown backend %q", backend)
}

// ---------------------------------------------------------------------------
// Memory
// ---------------------------------------------------------------------------

// Memory keeps encoded entries in a map.
type Memory struct {
	mu      sync.RWMutex
	entries map[Key][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[Key][]byte)}
}

func (m *Memory) Get(_ context.Context, k Key) (*Entry, bool, error) {
	m.mu.RLock()
	data, ok := m.entries[k]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	e, err := Unmarshal(data)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

func (m *Memory) Put(_ context.Context, k Key, e *Entry) error {
	data, err := Marshal(e)
	if err != nil {
		return fmt.Errorf("store: marshal entry: %w", err)
	}
	m.mu.Lock()
	m.entries[k] = data
	m.mu.Unlock()
	return nil
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func (m *Memory) Close() error { return nil }

// ---------------------------------------------------------------------------
// SQLite
// ---------------------------------------------------------------------------

// SQLite keeps entries in a single table of a SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}

	_, err = db.Exec("PRAGMA busy_timeout = 5000")
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: set busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS entries (
		key   TEXT PRIMARY KEY,
		class TEXT NOT NULL,
		run   TEXT NOT NULL,
		data  BLOB NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create table: %w", err)
	}

	log.Debugf("opened cache %s", path)
	return &SQLite{db: db}, nil
}

func (s *SQLite) Get(ctx context.Context, k Key) (*Entry, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, "SELECT data FROM entries WHERE key = ?", k.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("store: get %s: %w", k, err)
	}
	e, err := Unmarshal(data)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

func (s *SQLite) Put(ctx context.Context, k Key, e *Entry) error {
	data, err := Marshal(e)
	if err != nil {
		return fmt.Errorf("store: marshal entry: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO entries (key, class, run, data) VALUES (?, ?, ?, ?)",
		k.String(), e.Class, e.RunID, data)
	if err != nil {
		return fmt.Errorf("store: put %s: %w", k, err)
	}
	return nil
}

// Classes returns the class names of all cached entries, sorted.
func (s *SQLite) Classes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT class FROM entries ORDER BY class")
	if err != nil {
		return nil, fmt.Errorf("store: list classes: %w", err)
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }

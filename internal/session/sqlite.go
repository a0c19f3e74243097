package session

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// Preferences is a small key-value preference store backed by SQLite.
type Preferences struct {
	db *sql.DB
}

// OpenPreferences opens (and creates if needed) the preference database.
func OpenPreferences(dbPath string) (*Preferences, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	p := &Preferences{db: db}
	if err := p.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return p, nil
}

func (p *Preferences) initSchema() error {
	_, err := p.db.Exec(`CREATE TABLE IF NOT EXISTS preferences (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`)
	if err != nil {
		return fmt.Errorf("failed to execute schema statement: %w", err)
	}
	return nil
}

// Get returns the value stored under key.
func (p *Preferences) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.QueryRowContext(ctx, `SELECT value FROM preferences WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return value, true, nil
}

// Put stores value under key, replacing any prior value.
func (p *Preferences) Put(ctx context.Context, key, value string) error {
	query := `INSERT INTO preferences (key, value, updated_at) VALUES (?, ?, ?)
	          ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	if _, err := p.db.ExecContext(ctx, query, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to put preference %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (p *Preferences) Delete(ctx context.Context, key string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM preferences WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}

// Close closes the database.
func (p *Preferences) Close() error {
	return p.db.Close()
}

// SQLiteStore is a Store persisted under TokenKey in a Preferences database.
// The token survives process restarts.
type SQLiteStore struct {
	prefs *Preferences
	cell  tokenCell
	// mu orders writes so the database and the cached copy agree
	mu sync.Mutex
}

// Ensure SQLiteStore implements Store
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens the preference database at dbPath and loads the
// current token into memory.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	prefs, err := OpenPreferences(dbPath)
	if err != nil {
		return nil, err
	}
	s, err := NewPreferenceStore(prefs)
	if err != nil {
		prefs.Close()
		return nil, err
	}
	return s, nil
}

// NewPreferenceStore wraps an already open Preferences database.
func NewPreferenceStore(prefs *Preferences) (*SQLiteStore, error) {
	s := &SQLiteStore{prefs: prefs}
	token, ok, err := prefs.Get(context.Background(), TokenKey)
	if err != nil {
		return nil, fmt.Errorf("load session token: %w", err)
	}
	if ok {
		s.cell.store(token)
	}
	return s, nil
}

func (s *SQLiteStore) Get() (string, bool) {
	return s.cell.load()
}

func (s *SQLiteStore) Set(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.prefs.Put(context.Background(), TokenKey, token); err != nil {
		return err
	}
	s.cell.store(token)
	return nil
}

func (s *SQLiteStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Drop the cached copy first: a failed delete must still stop the token
	// from being sent again in this process.
	s.cell.clear()
	return s.prefs.Delete(context.Background(), TokenKey)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.prefs.Close()
}

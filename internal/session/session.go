// Package session persists the bearer token used for authenticated calls.
//
// Reads never block on storage: every store keeps the current token in an
// atomic pointer and only writes go to the backing medium.
package session

import (
	"sync/atomic"
)

// TokenKey is the preference key the token is stored under.
const TokenKey = "jwt"

// Store persists and retrieves the current bearer token.
type Store interface {
	// Get returns the current token and whether one is present.
	Get() (string, bool)
	// Set persists token, replacing any prior value.
	Set(token string) error
	// Clear removes the token.
	Clear() error
}

// Session is a point-in-time view of the stored token.
type Session struct {
	Token string
	Valid bool
}

// Snapshot reads s into a Session value.
func Snapshot(s Store) Session {
	token, ok := s.Get()
	return Session{Token: token, Valid: ok}
}

// tokenCell holds the in-memory copy of the token. A nil pointer means no
// token; swaps are atomic so readers never see a partial write.
type tokenCell struct {
	p atomic.Pointer[string]
}

func (c *tokenCell) load() (string, bool) {
	t := c.p.Load()
	if t == nil {
		return "", false
	}
	return *t, true
}

func (c *tokenCell) store(token string) {
	c.p.Store(&token)
}

func (c *tokenCell) clear() {
	c.p.Store(nil)
}

// MemoryStore is a process-lifetime store, used in tests and when no
// preference file is configured.
type MemoryStore struct {
	cell tokenCell
}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get() (string, bool) {
	return s.cell.load()
}

func (s *MemoryStore) Set(token string) error {
	s.cell.store(token)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.cell.clear()
	return nil
}

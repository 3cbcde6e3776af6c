package dataset

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linnemanlabs/carewatch/internal/monitor"
	"github.com/linnemanlabs/carewatch/internal/table"
)

// ErrSessionNotFound is returned for an unknown session ID.
var ErrSessionNotFound = errors.New("session not found")

// Sessions keeps one Set per caller session. Sets never leave the store by
// reference; Get hands out snapshots.
type Sessions struct {
	mu   sync.RWMutex
	sets map[string]*entry
}

type entry struct {
	set       *Set
	createdAt time.Time
	updatedAt time.Time
}

// Info describes a session without its rows.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSessions initializes an empty session store.
func NewSessions() *Sessions {
	return &Sessions{sets: make(map[string]*entry)}
}

// Create starts a session with every section on its placeholder.
func (s *Sessions) Create() string {
	return s.Seed(NewSet())
}

// Seed starts a session from an existing set, which is copied.
func (s *Sessions) Seed(set *Set) string {
	id := ulid.Make().String()
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[id] = &entry{set: set.Clone(), createdAt: now, updatedAt: now}
	return id
}

// Get returns a snapshot of the session's set.
func (s *Sessions) Get(id string) (*Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sets[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.set.Clone(), nil
}

// Info returns session timestamps.
func (s *Sessions) Info(id string) (Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sets[id]
	if !ok {
		return Info{}, ErrSessionNotFound
	}
	return Info{ID: id, CreatedAt: e.createdAt, UpdatedAt: e.updatedAt}, nil
}

// PutTable replaces one section. A non-nil issue is recorded instead and the
// section falls back to its placeholder.
func (s *Sessions) PutTable(id string, kind monitor.Kind, t *table.Table, issue error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sets[id]
	if !ok {
		return ErrSessionNotFound
	}
	if !kind.Valid() {
		return fmt.Errorf("unknown table kind %q", kind)
	}
	if issue != nil {
		e.set.Warn(kind, issue)
	} else {
		_ = e.set.Put(kind, t.Clone())
	}
	e.updatedAt = time.Now()
	return nil
}

// Delete drops a session. Deleting an unknown ID is not an error.
func (s *Sessions) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, id)
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sets)
}

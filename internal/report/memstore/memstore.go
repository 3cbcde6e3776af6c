// Package memstore provides an in-memory implementation of report.Store.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/linnemanlabs/carewatch/internal/report"
)

// Store holds reports in memory. Suitable for dev/testing and single-node runs.
type Store struct {
	mu        sync.RWMutex
	reports   map[string]*report.Report // report ID -> report
	bySession map[string][]string       // session ID -> report IDs
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		reports:   make(map[string]*report.Report),
		bySession: make(map[string][]string),
	}
}

// Get retrieves a report by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*report.Report, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, false, nil
	}
	return r.Clone(), true, nil
}

// Put stores a copy of the report, replacing any report with the same ID.
func (s *Store) Put(_ context.Context, r *report.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[r.ID]; !exists {
		s.bySession[r.SessionID] = append(s.bySession[r.SessionID], r.ID)
	}
	s.reports[r.ID] = r.Clone()
	return nil
}

// ListBySession returns copies of a session's reports, newest first.
func (s *Store) ListBySession(_ context.Context, sessionID string, limit int) ([]*report.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.bySession[sessionID]
	out := make([]*report.Report, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.reports[id].Clone())
	}
	// report IDs are ULIDs, so lexical order is creation order
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

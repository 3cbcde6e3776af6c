// Package dataset holds the three record tables one caregiver works with and
// the visible issues raised while loading them.
package dataset

import (
	"errors"
	"fmt"

	"github.com/linnemanlabs/carewatch/internal/monitor"
	"github.com/linnemanlabs/carewatch/internal/table"
)

// placeholders are the column sets shown before anything is loaded. They are
// deliberately narrower than the derivation schema.
var placeholders = map[monitor.Kind][]string{
	monitor.KindHealth:   {"Date", "Heart Rate", "Blood Pressure"},
	monitor.KindSafety:   {"Date", "Fall Detected", "Location"},
	monitor.KindReminder: {"Date", "Time", "Medication"},
}

// Placeholder returns the empty table used for kind when no input was provided.
func Placeholder(kind monitor.Kind) *table.Table {
	return table.Empty(string(kind), placeholders[kind]...)
}

// Set is one working copy of the three tables.
type Set struct {
	Health   *table.Table            `json:"health"`
	Safety   *table.Table            `json:"safety"`
	Reminder *table.Table            `json:"reminder"`
	Issues   map[monitor.Kind]string `json:"issues,omitempty"`
}

// NewSet returns a set with every section on its placeholder.
func NewSet() *Set {
	return &Set{
		Health:   Placeholder(monitor.KindHealth),
		Safety:   Placeholder(monitor.KindSafety),
		Reminder: Placeholder(monitor.KindReminder),
	}
}

// Table returns the table for kind, or nil for an unknown kind.
func (s *Set) Table(kind monitor.Kind) *table.Table {
	switch kind {
	case monitor.KindHealth:
		return s.Health
	case monitor.KindSafety:
		return s.Safety
	case monitor.KindReminder:
		return s.Reminder
	}
	return nil
}

// Put replaces the table for kind and clears any issue recorded for it.
// A nil table resets the section to its placeholder.
func (s *Set) Put(kind monitor.Kind, t *table.Table) error {
	if !kind.Valid() {
		return fmt.Errorf("unknown table kind %q", kind)
	}
	if t == nil {
		t = Placeholder(kind)
	}
	switch kind {
	case monitor.KindHealth:
		s.Health = t
	case monitor.KindSafety:
		s.Safety = t
	case monitor.KindReminder:
		s.Reminder = t
	}
	delete(s.Issues, kind)
	return nil
}

// Warn records a visible issue for kind and resets the section to its placeholder.
func (s *Set) Warn(kind monitor.Kind, err error) {
	_ = s.Put(kind, nil)
	if s.Issues == nil {
		s.Issues = make(map[monitor.Kind]string)
	}
	s.Issues[kind] = err.Error()
}

// Issue returns the recorded issue for kind, if any.
func (s *Set) Issue(kind monitor.Kind) string {
	return s.Issues[kind]
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	cp := &Set{
		Health:   s.Health.Clone(),
		Safety:   s.Safety.Clone(),
		Reminder: s.Reminder.Clone(),
	}
	if len(s.Issues) > 0 {
		cp.Issues = make(map[monitor.Kind]string, len(s.Issues))
		for k, v := range s.Issues {
			cp.Issues[k] = v
		}
	}
	return cp
}

// Paths names the local files to load, one per kind. Empty means not provided.
type Paths struct {
	Health   string
	Safety   string
	Reminder string
}

// For returns the path configured for kind.
func (p Paths) For(kind monitor.Kind) string {
	switch kind {
	case monitor.KindHealth:
		return p.Health
	case monitor.KindSafety:
		return p.Safety
	case monitor.KindReminder:
		return p.Reminder
	}
	return ""
}

// Load reads all three tables once. Malformed input is recorded as an issue on
// its section, which keeps the placeholder; other I/O failures are returned.
func Load(p Paths) (*Set, error) {
	set := NewSet()
	for _, kind := range monitor.Kinds {
		t, err := table.LoadFile(string(kind), p.For(kind), placeholders[kind]...)
		var pe *table.ParseError
		switch {
		case errors.As(err, &pe):
			set.Warn(kind, err)
		case err != nil:
			return nil, fmt.Errorf("load %s table: %w", kind, err)
		default:
			_ = set.Put(kind, t)
		}
	}
	return set, nil
}

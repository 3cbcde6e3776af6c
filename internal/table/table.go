// Package table holds the in-memory record tables carewatch ingests and the
// loaders that build them from delimited text or xlsx workbooks.
package table

import (
	"slices"
	"sort"
)

// Row maps a column name to the raw cell text.
type Row map[string]string

// Table is an ordered sequence of rows sharing a header.
type Table struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"rows"`
}

// New builds a table from a header and rows. Rows are copied.
func New(name string, columns []string, rows ...Row) *Table {
	t := &Table{Name: name, Columns: slices.Clone(columns)}
	for _, r := range rows {
		t.Rows = append(t.Rows, cloneRow(r))
	}
	return t
}

// Empty returns a zero-row table with the given (possibly incomplete) columns.
// Callers treat an empty table as "no data".
func Empty(name string, columns ...string) *Table {
	return &Table{Name: name, Columns: slices.Clone(columns)}
}

// Len reports the number of rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty reports whether the table holds no rows.
func (t *Table) IsEmpty() bool { return t.Len() == 0 }

// HasColumn reports whether name is part of the header.
func (t *Table) HasColumn(name string) bool {
	if t == nil {
		return false
	}
	return slices.Contains(t.Columns, name)
}

// Require returns a *MissingColumnError for the first absent column.
func (t *Table) Require(columns ...string) error {
	for _, c := range columns {
		if !t.HasColumn(c) {
			name := ""
			if t != nil {
				name = t.Name
			}
			return &MissingColumnError{Table: name, Column: c}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	return New(t.Name, t.Columns, t.Rows...)
}

// Equal reports structural equality of header and rows.
func (t *Table) Equal(o *Table) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Name != o.Name || !slices.Equal(t.Columns, o.Columns) || len(t.Rows) != len(o.Rows) {
		return false
	}
	for i := range t.Rows {
		if len(t.Rows[i]) != len(o.Rows[i]) {
			return false
		}
		for k, v := range t.Rows[i] {
			if ov, ok := o.Rows[i][k]; !ok || ov != v {
				return false
			}
		}
	}
	return true
}

// Where returns the rows whose column equals value, in original order.
func (t *Table) Where(column, value string) (*Table, error) {
	if err := t.Require(column); err != nil {
		return nil, err
	}
	out := Empty(t.Name, t.Columns...)
	for _, r := range t.Rows {
		if r[column] == value {
			out.Rows = append(out.Rows, cloneRow(r))
		}
	}
	return out, nil
}

// SortBy returns a copy ordered by the text of column. The sort is stable, so
// rows with equal keys keep their relative order.
func (t *Table) SortBy(column string, desc bool) (*Table, error) {
	if err := t.Require(column); err != nil {
		return nil, err
	}
	out := t.Clone()
	sort.SliceStable(out.Rows, func(i, j int) bool {
		if desc {
			return out.Rows[i][column] > out.Rows[j][column]
		}
		return out.Rows[i][column] < out.Rows[j][column]
	})
	return out, nil
}

// Head returns a copy holding at most the first n rows.
func (t *Table) Head(n int) *Table {
	out := Empty(t.Name, t.Columns...)
	if n <= 0 {
		return out
	}
	for i, r := range t.Rows {
		if i == n {
			break
		}
		out.Rows = append(out.Rows, cloneRow(r))
	}
	return out
}

func cloneRow(r Row) Row {
	cp := make(Row, len(r))
	for k, v := range r {
		cp[k] = v
	}
	return cp
}

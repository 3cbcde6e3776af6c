package table

import "fmt"

// ParseError reports input that is not valid delimited text (or a readable workbook).
type ParseError struct {
	Source string
	Line   int
	Err    error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse %s: line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("parse %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingColumnError reports a column a consumer needs that the table lacks.
// It signals a schema mismatch between expected and uploaded data.
type MissingColumnError struct {
	Table  string
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("table %q: missing column %q", e.Table, e.Column)
}

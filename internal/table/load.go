package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ErrNoHeader is wrapped by ParseError when the input has no header row.
var ErrNoHeader = errors.New("no columns to parse")

const utf8BOM = "\ufeff"

// Read parses comma-delimited text with a header row.
func Read(name string, r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 0 // header width is enforced on every row
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ParseError{Source: name, Err: ErrNoHeader}
		}
		return nil, readError(name, err)
	}
	columns, err := normalizeHeader(header)
	if err != nil {
		return nil, &ParseError{Source: name, Line: 1, Err: err}
	}

	t := Empty(name, columns...)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, readError(name, err)
		}
		t.Rows = append(t.Rows, makeRow(columns, rec))
	}
	return t, nil
}

// ReadXLSX parses the first sheet of an xlsx workbook. The first row is the header.
func ReadXLSX(name string, r io.Reader) (*Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, &ParseError{Source: name, Err: err}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, &ParseError{Source: name, Err: ErrNoHeader}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, &ParseError{Source: name, Err: err}
	}
	if len(rows) == 0 {
		return nil, &ParseError{Source: name, Err: ErrNoHeader}
	}

	columns, err := normalizeHeader(rows[0])
	if err != nil {
		return nil, &ParseError{Source: name, Line: 1, Err: err}
	}

	t := Empty(name, columns...)
	for i, rec := range rows[1:] {
		if isBlank(rec) {
			continue
		}
		if len(rec) > len(columns) {
			return nil, &ParseError{Source: name, Line: i + 2, Err: fmt.Errorf("row has %d cells, header has %d", len(rec), len(columns))}
		}
		// GetRows drops trailing empty cells
		t.Rows = append(t.Rows, makeRow(columns, rec))
	}
	return t, nil
}

// LoadFile reads the table stored at path, choosing the format by extension.
// An empty path or a file that does not exist means no input was supplied: the
// result is Empty(name, placeholder...) and a nil error.
func LoadFile(name, path string, placeholder ...string) (*Table, error) {
	if path == "" {
		return Empty(name, placeholder...), nil
	}
	f, err := os.Open(path) //nolint:gosec // path comes from operator config
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Empty(name, placeholder...), nil
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return ReadXLSX(name, f)
	}
	return Read(name, f)
}

func normalizeHeader(header []string) ([]string, error) {
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, fmt.Errorf("column %d has an empty name", i+1)
		}
		if seen[h] {
			return nil, fmt.Errorf("duplicate column %q", h)
		}
		seen[h] = true
		columns[i] = h
	}
	return columns, nil
}

func makeRow(columns, rec []string) Row {
	row := make(Row, len(columns))
	for i, c := range columns {
		if i < len(rec) {
			row[c] = rec[i]
		} else {
			row[c] = ""
		}
	}
	return row
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// readError keeps malformed input apart from I/O failures of the underlying reader.
func readError(name string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return &ParseError{Source: name, Line: pe.Line, Err: pe.Err}
	}
	return fmt.Errorf("read %s: %w", name, err)
}

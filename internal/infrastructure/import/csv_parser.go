package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// sniffSize is how much decoded input is checked for encoding errors
const sniffSize = 4096

// Row is one data line keyed by lower-cased header
type Row struct {
	LineNumber int
	Data       map[string]string
}

// Get returns the trimmed cell under header, "" when absent
func (r *Row) Get(header string) string {
	return r.Data[header]
}

// GetOrDefault returns the cell under header unless it is blank
func (r *Row) GetOrDefault(header, fallback string) string {
	if v := r.Data[header]; v != "" {
		return v
	}
	return fallback
}

// IsEmpty reports a line of nothing but separators
func (r *Row) IsEmpty() bool {
	for _, v := range r.Data {
		if v != "" {
			return false
		}
	}
	return true
}

// sheet reads an uploaded CSV. Spreadsheet exports arrive as UTF-8, UTF-8
// with a BOM, or UTF-16 with a BOM; all three decode to UTF-8 here.
type sheet struct {
	csv     *csv.Reader
	columns []string
	line    int // last line read, the header is line 1
}

// openSheet decodes src and consumes its header row
func openSheet(src io.Reader) (*sheet, error) {
	buffered := bufio.NewReaderSize(
		transform.NewReader(src, unicode.BOMOverride(unicode.UTF8.NewDecoder())), sniffSize)

	head, err := buffered.Peek(sniffSize)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(bytes.TrimSpace(head)) == 0 {
		return nil, ErrEmptyFile
	}
	// the decoder turns invalid input into U+FFFD
	if bytes.ContainsRune(head, utf8.RuneError) {
		return nil, ErrInvalidEncoding
	}

	r := csv.NewReader(buffered)
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrMissingHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	s := &sheet{csv: r, line: 1, columns: make([]string, len(header))}
	for i, name := range header {
		s.columns[i] = strings.ToLower(strings.TrimSpace(name))
	}
	if len(s.columns) == 1 && s.columns[0] == "" {
		return nil, ErrMissingHeader
	}
	return s, nil
}

// missing returns the names in required that have no column
func (s *sheet) missing(required []string) []string {
	var out []string
	for _, name := range required {
		found := false
		for _, col := range s.columns {
			if col == name {
				found = true
				break
			}
		}
		if !found {
			out = append(out, name)
		}
	}
	return out
}

// next returns the following line or io.EOF. A repeated header keeps its
// first column; missing trailing cells read as "" and extra cells are
// ignored.
func (s *sheet) next() (*Row, error) {
	record, err := s.csv.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	s.line++
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", s.line, err)
	}

	row := &Row{LineNumber: s.line, Data: make(map[string]string, len(s.columns))}
	for i, col := range s.columns {
		if _, dup := row.Data[col]; dup {
			continue
		}
		if i < len(record) {
			row.Data[col] = strings.TrimSpace(record[i])
		} else {
			row.Data[col] = ""
		}
	}
	return row, nil
}

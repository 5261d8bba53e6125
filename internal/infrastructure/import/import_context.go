package csvimport

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// ParseResult is the outcome of reading and validating a CSV file
type ParseResult struct {
	Headers   []string
	TotalRows int
	ValidRows []*Row
	// ErrorRows holds line numbers of rows that failed validation
	ErrorRows map[int]bool
	Errors    *ErrorCollection
}

// HasRowError reports whether a row failed validation
func (r *ParseResult) HasRowError(line int) bool {
	return r.ErrorRows[line]
}

// Processor reads a CSV file and validates every row against field rules
type Processor struct {
	maxRows   int
	maxErrors int
}

// ProcessorOption configures a Processor
type ProcessorOption func(*Processor)

// WithMaxRows sets the maximum number of data rows
func WithMaxRows(rows int) ProcessorOption {
	return func(p *Processor) {
		p.maxRows = rows
	}
}

// NewProcessor creates a processor
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{
		maxRows:   5000,
		maxErrors: 500,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxRows returns the row limit
func (p *Processor) MaxRows() int {
	return p.maxRows
}

// Parse decodes the file, checks the required headers and validates rows.
// A file over the row limit is rejected with ErrTooManyRows before any row
// is returned.
func (p *Processor) Parse(ctx context.Context, reader io.Reader, rules []FieldRule) (*ParseResult, error) {
	sheet, err := openSheet(reader)
	if err != nil {
		return nil, err
	}

	var required []string
	for _, rule := range rules {
		if rule.Required {
			required = append(required, rule.Column)
		}
	}
	if missing := sheet.missing(required); len(missing) > 0 {
		return nil, fmt.Errorf("%w: missing columns %s", ErrMissingHeader, strings.Join(missing, ", "))
	}

	validator := NewFieldValidator(rules, p.maxErrors)
	result := &ParseResult{
		Headers:   sheet.columns,
		ErrorRows: make(map[int]bool),
		Errors:    validator.Errors(),
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		row, err := sheet.next()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.TotalRows++
			result.Errors.Add(RowError{Row: sheet.line, Code: ErrCodeImportCSVParsing, Message: err.Error()})
			result.ErrorRows[sheet.line] = true
			continue
		}
		if row.IsEmpty() {
			continue
		}

		result.TotalRows++
		if result.TotalRows > p.maxRows {
			return nil, fmt.Errorf("%w (limit %d)", ErrTooManyRows, p.maxRows)
		}

		if validator.ValidateRow(row) {
			result.ValidRows = append(result.ValidRows, row)
		} else {
			result.ErrorRows[row.LineNumber] = true
		}
	}

	if result.TotalRows == 0 {
		return nil, ErrNoDataRows
	}
	return result, nil
}

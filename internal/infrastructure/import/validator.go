package csvimport

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// FieldType represents the expected type of a field
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDecimal FieldType = "decimal"
)

// FieldRule defines validation rules for a column
type FieldRule struct {
	Column    string
	Type      FieldType
	Required  bool
	MaxLength int
	MinValue  *decimal.Decimal
	OneOf     []string // case-insensitive allowed values
	Unique    bool     // unique within the file, case-insensitive
}

// FieldRuleBuilder helps build field rules fluently
type FieldRuleBuilder struct {
	rule FieldRule
}

// Field creates a new field rule builder
func Field(column string) *FieldRuleBuilder {
	return &FieldRuleBuilder{
		rule: FieldRule{
			Column: column,
			Type:   TypeString,
		},
	}
}

// Required marks the field as required
func (b *FieldRuleBuilder) Required() *FieldRuleBuilder {
	b.rule.Required = true
	return b
}

// Int sets the field type to integer
func (b *FieldRuleBuilder) Int() *FieldRuleBuilder {
	b.rule.Type = TypeInt
	return b
}

// Decimal sets the field type to decimal
func (b *FieldRuleBuilder) Decimal() *FieldRuleBuilder {
	b.rule.Type = TypeDecimal
	return b
}

// MaxLength sets the maximum length in characters
func (b *FieldRuleBuilder) MaxLength(n int) *FieldRuleBuilder {
	b.rule.MaxLength = n
	return b
}

// Min sets the minimum numeric value
func (b *FieldRuleBuilder) Min(v decimal.Decimal) *FieldRuleBuilder {
	b.rule.MinValue = &v
	return b
}

// OneOf restricts the value to a set
func (b *FieldRuleBuilder) OneOf(values ...string) *FieldRuleBuilder {
	b.rule.OneOf = values
	return b
}

// Unique rejects values repeated within the file
func (b *FieldRuleBuilder) Unique() *FieldRuleBuilder {
	b.rule.Unique = true
	return b
}

// Build returns the rule
func (b *FieldRuleBuilder) Build() FieldRule {
	return b.rule
}

// FieldValidator validates rows against a rule set
type FieldValidator struct {
	rules       []FieldRule
	uniqueCheck map[string]map[string]int // column -> value -> first row number
	errors      *ErrorCollection
}

// NewFieldValidator creates a new field validator
func NewFieldValidator(rules []FieldRule, maxErrors int) *FieldValidator {
	return &FieldValidator{
		rules:       rules,
		uniqueCheck: make(map[string]map[string]int),
		errors:      NewErrorCollection(maxErrors),
	}
}

// ValidateRow validates all fields in a row, recording errors. Rules are
// checked in declaration order so error output is stable.
func (v *FieldValidator) ValidateRow(row *Row) bool {
	valid := true
	for _, rule := range v.rules {
		if !v.validateField(row, rule) {
			valid = false
		}
	}
	return valid
}

func (v *FieldValidator) validateField(row *Row, rule FieldRule) bool {
	value := row.Get(rule.Column)
	line := row.LineNumber

	if value == "" {
		if rule.Required {
			return v.reject(row, rule, ErrCodeImportRequiredField, "", "field '%s' is required", rule.Column)
		}
		return true
	}

	if rule.MaxLength > 0 && utf8.RuneCountInString(value) > rule.MaxLength {
		return v.reject(row, rule, ErrCodeImportInvalidLength, "", "length must be at most %d", rule.MaxLength)
	}

	switch rule.Type {
	case TypeInt:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return v.reject(row, rule, ErrCodeImportInvalidType, value, "expected integer")
		}
		if rule.MinValue != nil && decimal.NewFromInt(n).LessThan(*rule.MinValue) {
			return v.reject(row, rule, ErrCodeImportInvalidRange, value, "must be at least %s", rule.MinValue)
		}
	case TypeDecimal:
		d, err := decimal.NewFromString(value)
		if err != nil {
			return v.reject(row, rule, ErrCodeImportInvalidType, value, "expected decimal")
		}
		if rule.MinValue != nil && d.LessThan(*rule.MinValue) {
			return v.reject(row, rule, ErrCodeImportInvalidRange, value, "must be at least %s", rule.MinValue)
		}
	}

	if len(rule.OneOf) > 0 && !containsFold(rule.OneOf, value) {
		return v.reject(row, rule, ErrCodeImportInvalidValue, value, "must be one of %s", strings.Join(rule.OneOf, ", "))
	}

	if rule.Unique {
		key := strings.ToUpper(value)
		if v.uniqueCheck[rule.Column] == nil {
			v.uniqueCheck[rule.Column] = make(map[string]int)
		}
		if firstRow, exists := v.uniqueCheck[rule.Column][key]; exists {
			return v.reject(row, rule, ErrCodeImportDuplicateInFile, value, "duplicate value '%s' (first seen in row %d)", value, firstRow)
		}
		v.uniqueCheck[rule.Column][key] = line
	}

	return true
}

// reject records a failed rule and returns false
func (v *FieldValidator) reject(row *Row, rule FieldRule, code, value, format string, args ...any) bool {
	v.errors.Add(NewRowErrorWithValue(row.LineNumber, rule.Column, code, fmt.Sprintf(format, args...), value))
	return false
}

func containsFold(values []string, v string) bool {
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

// Errors returns the error collection
func (v *FieldValidator) Errors() *ErrorCollection {
	return v.errors
}

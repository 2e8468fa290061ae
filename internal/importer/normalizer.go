package importer

import (
	"fmt"
	"strings"
)

// RowError reports a validation or persistence failure for a single data
// row. Row is the 1-based data-row index (header and blank rows are not
// counted). Column is the canonical field name when the offending column
// is identifiable.
type RowError struct {
	Row     int    `json:"row"`
	Column  string `json:"column,omitempty"`
	Message string `json:"message"`
}

func (e RowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column %s: %s", e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// NormalizedRow is a validated, typed record produced from one data row.
// Values holds cleaned text for every mapped non-metadata field; Qty is
// the parsed quantity when the import type defines one; Meta carries
// optional metadata fields (AREA, SYSTEM, TEST PACKAGE) through
// unvalidated.
type NormalizedRow struct {
	Row    int
	Values map[Field]string
	Qty    float64
	Meta   map[Field]string
}

// Value returns the cleaned cell for a field, or "" if unmapped.
func (n *NormalizedRow) Value(f Field) string {
	return n.Values[f]
}

// NormalizeRow validates and coerces one raw data row against the file's
// column mapping. It returns either a NormalizedRow or a RowError, never
// both. Validation rules run in a fixed order so the first violated rule
// determines the reported error:
//
//  1. required cells non-empty after cleaning
//  2. enum fields equal to an allowed value (case-sensitive)
//  3. numeric fields parseable; quantities non-negative
func NormalizeRow(raw []string, typ *ImportType, mapping *ColumnMappingResult, rowIndex int) (*NormalizedRow, *RowError) {
	out := &NormalizedRow{
		Row:    rowIndex,
		Values: make(map[Field]string),
	}

	for _, spec := range typ.Fields {
		idx := mapping.ColumnIndex(spec.Field)
		if idx < 0 {
			continue
		}
		val := cellAt(raw, idx)
		if spec.Metadata {
			if val != "" {
				if out.Meta == nil {
					out.Meta = make(map[Field]string)
				}
				out.Meta[spec.Field] = val
			}
			continue
		}
		out.Values[spec.Field] = val
	}

	// Rule 1: required cells must be non-empty.
	for _, spec := range typ.Fields {
		if !spec.Required || mapping.ColumnIndex(spec.Field) < 0 {
			continue
		}
		if out.Values[spec.Field] == "" {
			return nil, &RowError{
				Row:     rowIndex,
				Column:  string(spec.Field),
				Message: fmt.Sprintf("%s is required", spec.Field),
			}
		}
	}

	// Rule 2: enum fields must equal an allowed value, case-sensitive.
	for _, spec := range typ.Fields {
		if spec.Kind != KindEnum {
			continue
		}
		val, ok := out.Values[spec.Field]
		if !ok || val == "" {
			continue
		}
		if !containsString(spec.EnumValues, val) {
			return nil, &RowError{
				Row:     rowIndex,
				Column:  string(spec.Field),
				Message: fmt.Sprintf("%s must be one of %s, got %q", spec.Field, strings.Join(spec.EnumValues, ", "), val),
			}
		}
	}

	// Rule 3: numeric fields must parse; quantities are non-negative.
	for _, spec := range typ.Fields {
		if spec.Kind != KindNumeric {
			continue
		}
		val, ok := out.Values[spec.Field]
		if !ok || val == "" {
			continue
		}
		f, err := ParseNumber(val)
		if err != nil {
			return nil, &RowError{
				Row:     rowIndex,
				Column:  string(spec.Field),
				Message: fmt.Sprintf("%s must be a number, got %q", spec.Field, val),
			}
		}
		if f < 0 {
			return nil, &RowError{
				Row:     rowIndex,
				Column:  string(spec.Field),
				Message: fmt.Sprintf("%s must not be negative, got %v", spec.Field, f),
			}
		}
		if spec.Field == FieldQty {
			out.Qty = f
		}
	}

	return out, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

package importer

// matcher.go maps raw spreadsheet headers to canonical fields using a
// three-tier strategy:
//
//  1. Exact: header equals the canonical name, case-sensitive (confidence 100)
//  2. Case-insensitive: equal ignoring case (confidence 95)
//  3. Synonym: equal to a configured synonym, case-insensitive and
//     whitespace-normalized (confidence 85)
//
// Fields claim headers in field-declaration order; a header is consumed
// by the first field that claims it. Absence of a match is reported
// structurally, never as an error.

import "strings"

// Match confidence per tier.
const (
	ConfidenceExact           = 100
	ConfidenceCaseInsensitive = 95
	ConfidenceSynonym         = 85
)

// MatchTier identifies which tier produced a column mapping.
type MatchTier string

const (
	TierExact           MatchTier = "exact"
	TierCaseInsensitive MatchTier = "case-insensitive"
	TierSynonym         MatchTier = "synonym"
)

// ColumnMapping records that one CSV column supplies one canonical field.
// Immutable after creation.
type ColumnMapping struct {
	CSVColumn  string    `json:"csvColumn"`
	Field      Field     `json:"expectedField"`
	Confidence int       `json:"confidence"`
	Tier       MatchTier `json:"matchTier"`
}

// ColumnMappingResult aggregates all mappings for one file.
type ColumnMappingResult struct {
	Mappings        []ColumnMapping `json:"mappings"`
	UnmappedColumns []string        `json:"unmappedColumns"`
	MissingRequired []Field         `json:"missingRequiredFields"`

	// byField indexes Mappings; columnIndex holds each mapped field's
	// position in the header row.
	byField     map[Field]ColumnMapping
	columnIndex map[Field]int
}

// HasAllRequiredFields reports whether every required field found a
// column. True iff MissingRequired is empty.
func (r *ColumnMappingResult) HasAllRequiredFields() bool {
	return len(r.MissingRequired) == 0
}

// MappingFor returns the mapping for a field, or false if the field was
// not matched to any column.
func (r *ColumnMappingResult) MappingFor(f Field) (ColumnMapping, bool) {
	m, ok := r.byField[f]
	return m, ok
}

// ColumnIndex returns the header position for a mapped field, or -1.
func (r *ColumnMappingResult) ColumnIndex(f Field) int {
	if i, ok := r.columnIndex[f]; ok {
		return i
	}
	return -1
}

// MatchColumns maps a header row onto an import type's fields using the
// merged synonym table. Each header is consumed by at most one field;
// fields are processed in declaration order and the first qualifying
// header wins within each tier.
func MatchColumns(headers []string, fields []FieldSpec, synonyms SynonymTable) *ColumnMappingResult {
	result := &ColumnMappingResult{
		byField:     make(map[Field]ColumnMapping),
		columnIndex: make(map[Field]int),
	}

	cleaned := make([]string, len(headers))
	for i, h := range headers {
		cleaned[i] = CleanCell(h)
	}
	claimed := make([]bool, len(headers))

	for _, spec := range fields {
		idx, mapping := claimHeader(cleaned, claimed, spec.Field, synonyms[spec.Field])
		if idx < 0 {
			continue
		}
		claimed[idx] = true
		result.Mappings = append(result.Mappings, mapping)
		result.byField[spec.Field] = mapping
		result.columnIndex[spec.Field] = idx
	}

	for i, h := range cleaned {
		if !claimed[i] && h != "" {
			result.UnmappedColumns = append(result.UnmappedColumns, h)
		}
	}

	for _, spec := range fields {
		if spec.Required {
			if _, ok := result.byField[spec.Field]; !ok {
				result.MissingRequired = append(result.MissingRequired, spec.Field)
			}
		}
	}

	return result
}

// claimHeader finds the best unclaimed header for a field, evaluating
// tiers in order. Returns the header index and its mapping, or -1.
func claimHeader(headers []string, claimed []bool, f Field, synonyms []string) (int, ColumnMapping) {
	canonical := string(f)

	// Tier 1: exact, case-sensitive
	for i, h := range headers {
		if !claimed[i] && h == canonical {
			return i, ColumnMapping{CSVColumn: h, Field: f, Confidence: ConfidenceExact, Tier: TierExact}
		}
	}

	// Tier 2: case-insensitive
	for i, h := range headers {
		if !claimed[i] && strings.EqualFold(h, canonical) {
			return i, ColumnMapping{CSVColumn: h, Field: f, Confidence: ConfidenceCaseInsensitive, Tier: TierCaseInsensitive}
		}
	}

	// Tier 3: synonym, case-insensitive and whitespace-normalized
	for i, h := range headers {
		if claimed[i] {
			continue
		}
		norm := normalizeHeader(h)
		for _, syn := range synonyms {
			if norm == normalizeHeader(syn) {
				return i, ColumnMapping{CSVColumn: h, Field: f, Confidence: ConfidenceSynonym, Tier: TierSynonym}
			}
		}
	}

	return -1, ColumnMapping{}
}

// normalizeHeader uppercases and collapses runs of whitespace so that
// "Dwg  No" and "DWG NO" compare equal at the synonym tier.
func normalizeHeader(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), " "))
}

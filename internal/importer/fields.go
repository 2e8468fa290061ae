// Package importer implements the bulk-import pipeline for field data:
// column matching, row normalization, identity resolution, and batch
// persistence. This package has no HTTP dependencies and can be driven
// by any frontend.
package importer

// Field is a canonical system field name a spreadsheet column may be
// mapped to. Canonical names are the exact header spellings published in
// the import templates (e.g. "CMDTY CODE", "WELD ID").
type Field string

const (
	FieldDrawing     Field = "DRAWING"
	FieldCmdtyCode   Field = "CMDTY CODE"
	FieldType        Field = "TYPE"
	FieldQty         Field = "QTY"
	FieldSize        Field = "SIZE"
	FieldPipeSpec    Field = "SPEC"
	FieldDescription Field = "DESCRIPTION"

	FieldWeldID   Field = "WELD ID"
	FieldWeldType Field = "WELD TYPE"
	FieldSchedule Field = "SCHEDULE"

	// Metadata fields are carried through unvalidated when present.
	FieldArea        Field = "AREA"
	FieldSystem      Field = "SYSTEM"
	FieldTestPackage Field = "TEST PACKAGE"
)

// FieldKind represents the expected data type for a mapped column.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumeric
	KindEnum
)

// FieldSpec defines the mapping and validation rules for a single
// canonical field within an import type.
type FieldSpec struct {
	Field      Field
	Kind       FieldKind
	Required   bool
	Metadata   bool     // carried through without validation (AREA/SYSTEM/TEST PACKAGE)
	EnumValues []string // valid values for KindEnum, matched case-sensitively
}

// SynonymTable maps a canonical field to its recognized alternate header
// spellings. Synonym comparison is case-insensitive and
// whitespace-normalized.
type SynonymTable map[Field][]string

// ImportType describes one kind of bulk import: its field table, default
// synonyms, and how identities are resolved for its rows.
type ImportType struct {
	Key      string // URL-safe identifier: "components", "field_welds"
	Label    string // Display name
	Fields   []FieldSpec
	Synonyms SynonymTable

	// WeldScoped selects per-drawing identity scoping with a
	// user-supplied identifier (WELD ID) instead of the default
	// drawing+commodity+size scope.
	WeldScoped bool
}

// FieldSpecFor returns the spec for a field, or false if the import type
// does not define it.
func (t *ImportType) FieldSpecFor(f Field) (FieldSpec, bool) {
	for _, spec := range t.Fields {
		if spec.Field == f {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// RequiredFields returns the required fields in declaration order.
func (t *ImportType) RequiredFields() []Field {
	var out []Field
	for _, spec := range t.Fields {
		if spec.Required {
			out = append(out, spec.Field)
		}
	}
	return out
}

// Components is the import type for general piping components. Rows are
// identified by drawing + commodity code + size with a per-scope
// sequence number.
var Components = ImportType{
	Key:   "components",
	Label: "Components",
	Fields: []FieldSpec{
		{Field: FieldDrawing, Kind: KindText, Required: true},
		{Field: FieldCmdtyCode, Kind: KindText, Required: true},
		{Field: FieldType, Kind: KindText, Required: true},
		{Field: FieldQty, Kind: KindNumeric, Required: true},
		{Field: FieldSize, Kind: KindText},
		{Field: FieldPipeSpec, Kind: KindText},
		{Field: FieldDescription, Kind: KindText},
		{Field: FieldArea, Kind: KindText, Metadata: true},
		{Field: FieldSystem, Kind: KindText, Metadata: true},
		{Field: FieldTestPackage, Kind: KindText, Metadata: true},
	},
	Synonyms: SynonymTable{
		FieldDrawing:     {"DRAWINGS", "DWG", "DWG NO", "DRAWING NO", "DRAWING NUMBER", "ISO"},
		FieldCmdtyCode:   {"COMMODITY CODE", "CMDTY", "MATERIAL CODE", "PART NUMBER"},
		FieldType:        {"COMPONENT TYPE", "CATEGORY"},
		FieldQty:         {"QUANTITY", "QTY REQD", "COUNT"},
		FieldSize:        {"SIZE 1", "NOMINAL SIZE", "NPS"},
		FieldPipeSpec:    {"PIPE SPEC", "SPECIFICATION"},
		FieldDescription: {"DESC", "ITEM DESCRIPTION"},
		FieldArea:        {"UNIT", "WORK AREA"},
		FieldSystem:      {"SYS", "SYSTEM CODE"},
		FieldTestPackage: {"TEST PKG", "PACKAGE"},
	},
}

// FieldWelds is the import type for field welds. Weld IDs are unique per
// drawing; the same ID on another drawing is a different weld.
var FieldWelds = ImportType{
	Key:   "field_welds",
	Label: "Field Welds",
	Fields: []FieldSpec{
		{Field: FieldWeldID, Kind: KindText, Required: true},
		{Field: FieldDrawing, Kind: KindText, Required: true},
		{Field: FieldWeldType, Kind: KindEnum, Required: true, EnumValues: []string{"BW", "SW", "FW", "TW"}},
		{Field: FieldSize, Kind: KindText},
		{Field: FieldSchedule, Kind: KindText},
		{Field: FieldArea, Kind: KindText, Metadata: true},
		{Field: FieldSystem, Kind: KindText, Metadata: true},
		{Field: FieldTestPackage, Kind: KindText, Metadata: true},
	},
	Synonyms: SynonymTable{
		FieldWeldID:      {"WELD", "WELD NO", "WELD NUMBER", "JOINT", "JOINT NO"},
		FieldDrawing:     {"DRAWINGS", "DWG", "DWG NO", "DRAWING NO", "DRAWING NUMBER", "ISO"},
		FieldWeldType:    {"WELD TYPE CODE", "JOINT TYPE"},
		FieldSize:        {"SIZE 1", "NOMINAL SIZE", "NPS"},
		FieldSchedule:    {"SCH", "WALL SCHEDULE"},
		FieldArea:        {"UNIT", "WORK AREA"},
		FieldSystem:      {"SYS", "SYSTEM CODE"},
		FieldTestPackage: {"TEST PKG", "PACKAGE"},
	},
	WeldScoped: true,
}

// ImportTypes lists the built-in import types in display order.
var ImportTypes = []*ImportType{&Components, &FieldWelds}

// TypeByKey returns the import type with the given key.
// Returns false if not found.
func TypeByKey(key string) (*ImportType, bool) {
	for _, t := range ImportTypes {
		if t.Key == key {
			return t, true
		}
	}
	return nil, false
}

// MergeSynonyms returns a synonym table combining the import type's
// defaults with caller-supplied extras. Extras are appended after the
// defaults so defaults keep priority; the receiver is not modified.
func (t *ImportType) MergeSynonyms(extra SynonymTable) SynonymTable {
	if len(extra) == 0 {
		return t.Synonyms
	}
	merged := make(SynonymTable, len(t.Synonyms)+len(extra))
	for f, syns := range t.Synonyms {
		merged[f] = append([]string(nil), syns...)
	}
	for f, syns := range extra {
		merged[f] = append(merged[f], syns...)
	}
	return merged
}

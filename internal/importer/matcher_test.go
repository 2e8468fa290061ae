package importer

import (
	"testing"
)

// ============================================================================
// MatchColumns Tests
// ============================================================================

func TestMatchColumns_ExactMatch(t *testing.T) {
	headers := []string{"DRAWING", "CMDTY CODE", "TYPE", "QTY"}
	result := MatchColumns(headers, Components.Fields, Components.Synonyms)

	if !result.HasAllRequiredFields() {
		t.Fatalf("expected all required fields matched, missing: %v", result.MissingRequired)
	}

	for _, f := range []Field{FieldDrawing, FieldCmdtyCode, FieldType, FieldQty} {
		m, ok := result.MappingFor(f)
		if !ok {
			t.Fatalf("field %s not mapped", f)
		}
		if m.Confidence != ConfidenceExact {
			t.Errorf("field %s: confidence = %d, want %d", f, m.Confidence, ConfidenceExact)
		}
		if m.Tier != TierExact {
			t.Errorf("field %s: tier = %s, want %s", f, m.Tier, TierExact)
		}
	}
}

func TestMatchColumns_CaseInsensitive(t *testing.T) {
	headers := []string{"drawing", "Cmdty Code", "Type", "qty"}
	result := MatchColumns(headers, Components.Fields, Components.Synonyms)

	if !result.HasAllRequiredFields() {
		t.Fatalf("expected all required fields matched, missing: %v", result.MissingRequired)
	}

	for _, f := range []Field{FieldDrawing, FieldCmdtyCode, FieldType, FieldQty} {
		m, _ := result.MappingFor(f)
		if m.Confidence != ConfidenceCaseInsensitive {
			t.Errorf("field %s: confidence = %d, want %d", f, m.Confidence, ConfidenceCaseInsensitive)
		}
		if m.Tier != TierCaseInsensitive {
			t.Errorf("field %s: tier = %s, want %s", f, m.Tier, TierCaseInsensitive)
		}
	}
}

func TestMatchColumns_Synonym(t *testing.T) {
	tests := []struct {
		name   string
		header string
		field  Field
	}{
		{"DWG NO maps to DRAWING", "DWG NO", FieldDrawing},
		{"drawings lowercase maps via synonym", "drawings", FieldDrawing},
		{"COMMODITY CODE maps to CMDTY CODE", "COMMODITY CODE", FieldCmdtyCode},
		{"QUANTITY maps to QTY", "QUANTITY", FieldQty},
		{"extra internal whitespace normalized", "DWG   NO", FieldDrawing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MatchColumns([]string{tt.header}, Components.Fields, Components.Synonyms)
			m, ok := result.MappingFor(tt.field)
			if !ok {
				t.Fatalf("header %q did not map to %s", tt.header, tt.field)
			}
			if m.Confidence != ConfidenceSynonym {
				t.Errorf("confidence = %d, want %d", m.Confidence, ConfidenceSynonym)
			}
			if m.Tier != TierSynonym {
				t.Errorf("tier = %s, want %s", m.Tier, TierSynonym)
			}
			if m.CSVColumn != CleanCell(tt.header) {
				t.Errorf("CSVColumn = %q, want %q", m.CSVColumn, tt.header)
			}
		})
	}
}

func TestMatchColumns_HeaderConsumedOnce(t *testing.T) {
	// "DRAWING" matches both FieldDrawing exactly and could be claimed
	// by nothing else once consumed; a second identical header stays
	// available for later fields but maps to none of them here.
	headers := []string{"SIZE", "SIZE"}
	result := MatchColumns(headers, Components.Fields, Components.Synonyms)

	m, ok := result.MappingFor(FieldSize)
	if !ok {
		t.Fatal("SIZE not mapped")
	}
	if m.Tier != TierExact {
		t.Errorf("tier = %s, want %s", m.Tier, TierExact)
	}

	// The duplicate header was not consumed and is reported unmapped.
	if len(result.UnmappedColumns) != 1 || result.UnmappedColumns[0] != "SIZE" {
		t.Errorf("UnmappedColumns = %v, want [SIZE]", result.UnmappedColumns)
	}
}

func TestMatchColumns_NeverDoubleMatched(t *testing.T) {
	// One header, several fields whose synonym lists could overlap.
	// Exactly one mapping may claim each header.
	headers := []string{"DRAWING", "TYPE", "QTY", "CMDTY CODE", "AREA"}
	result := MatchColumns(headers, Components.Fields, Components.Synonyms)

	seen := make(map[string]int)
	for _, m := range result.Mappings {
		seen[m.CSVColumn]++
	}
	for col, n := range seen {
		if n > 1 {
			t.Errorf("header %q claimed %d times", col, n)
		}
	}
}

func TestMatchColumns_MissingRequired(t *testing.T) {
	// No CMDTY CODE column at all.
	headers := []string{"DRAWING", "TYPE", "QTY", "NOTES"}
	result := MatchColumns(headers, Components.Fields, Components.Synonyms)

	if result.HasAllRequiredFields() {
		t.Fatal("expected missing required fields")
	}
	if len(result.MissingRequired) != 1 || result.MissingRequired[0] != FieldCmdtyCode {
		t.Errorf("MissingRequired = %v, want [CMDTY CODE]", result.MissingRequired)
	}
	if len(result.UnmappedColumns) != 1 || result.UnmappedColumns[0] != "NOTES" {
		t.Errorf("UnmappedColumns = %v, want [NOTES]", result.UnmappedColumns)
	}
}

func TestMatchColumns_MessyHeaderScenario(t *testing.T) {
	// A third-party export: synonym for DRAWING, wrong-case CMDTY CODE.
	headers := []string{"DRAWINGS", "TYPE", "QTY", "Cmdty Code"}
	result := MatchColumns(headers, Components.Fields, Components.Synonyms)

	if !result.HasAllRequiredFields() {
		t.Fatalf("expected all required fields matched, missing: %v", result.MissingRequired)
	}

	drawing, _ := result.MappingFor(FieldDrawing)
	if drawing.Confidence != ConfidenceSynonym {
		t.Errorf("DRAWINGS confidence = %d, want %d", drawing.Confidence, ConfidenceSynonym)
	}

	cmdty, _ := result.MappingFor(FieldCmdtyCode)
	if cmdty.Confidence != ConfidenceCaseInsensitive {
		t.Errorf("Cmdty Code confidence = %d, want %d", cmdty.Confidence, ConfidenceCaseInsensitive)
	}
}

func TestMatchColumns_ExtraSynonyms(t *testing.T) {
	extra := SynonymTable{FieldDrawing: {"SHEET REF"}}
	merged := Components.MergeSynonyms(extra)

	result := MatchColumns([]string{"SHEET REF"}, Components.Fields, merged)
	m, ok := result.MappingFor(FieldDrawing)
	if !ok {
		t.Fatal("SHEET REF did not map to DRAWING with extra synonyms")
	}
	if m.Tier != TierSynonym {
		t.Errorf("tier = %s, want %s", m.Tier, TierSynonym)
	}

	// Defaults still work, and the receiver's table was not modified.
	if got := len(Components.Synonyms[FieldDrawing]); got != 6 {
		t.Errorf("default synonym table mutated, len = %d", got)
	}
}

func TestMatchColumns_PipeSpecColumn(t *testing.T) {
	// The canonical header for the pipe spec field is "SPEC"; exporters
	// also commonly write it as "PIPE SPEC".
	result := MatchColumns([]string{"SPEC"}, Components.Fields, Components.Synonyms)
	m, ok := result.MappingFor(FieldPipeSpec)
	if !ok {
		t.Fatal("SPEC did not map to the pipe spec field")
	}
	if m.Tier != TierExact {
		t.Errorf("tier = %s, want %s", m.Tier, TierExact)
	}

	result = MatchColumns([]string{"PIPE SPEC"}, Components.Fields, Components.Synonyms)
	m, ok = result.MappingFor(FieldPipeSpec)
	if !ok {
		t.Fatal("PIPE SPEC did not map to the pipe spec field")
	}
	if m.Tier != TierSynonym {
		t.Errorf("tier = %s, want %s", m.Tier, TierSynonym)
	}
}

func TestMatchColumns_ColumnIndex(t *testing.T) {
	headers := []string{"NOTES", "DRAWING", "QTY"}
	result := MatchColumns(headers, Components.Fields, Components.Synonyms)

	if idx := result.ColumnIndex(FieldDrawing); idx != 1 {
		t.Errorf("ColumnIndex(DRAWING) = %d, want 1", idx)
	}
	if idx := result.ColumnIndex(FieldQty); idx != 2 {
		t.Errorf("ColumnIndex(QTY) = %d, want 2", idx)
	}
	if idx := result.ColumnIndex(FieldCmdtyCode); idx != -1 {
		t.Errorf("ColumnIndex(CMDTY CODE) = %d, want -1", idx)
	}
}

func TestMatchColumns_CleansExcelArtifacts(t *testing.T) {
	headers := []string{`="DRAWING"`, "  QTY  "}
	result := MatchColumns(headers, Components.Fields, Components.Synonyms)

	if _, ok := result.MappingFor(FieldDrawing); !ok {
		t.Error("quoted formula header should map to DRAWING")
	}
	if _, ok := result.MappingFor(FieldQty); !ok {
		t.Error("padded header should map to QTY")
	}
}

// ============================================================================
// Field table tests
// ============================================================================

func TestTypeByKey(t *testing.T) {
	if _, ok := TypeByKey("components"); !ok {
		t.Error("components type not registered")
	}
	if _, ok := TypeByKey("field_welds"); !ok {
		t.Error("field_welds type not registered")
	}
	if _, ok := TypeByKey("nope"); ok {
		t.Error("unknown key should not resolve")
	}
}

func TestRequiredFields(t *testing.T) {
	got := Components.RequiredFields()
	want := []Field{FieldDrawing, FieldCmdtyCode, FieldType, FieldQty}
	if len(got) != len(want) {
		t.Fatalf("RequiredFields() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RequiredFields()[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func BenchmarkMatchColumns(b *testing.B) {
	headers := []string{"DRAWINGS", "Type", "QUANTITY", "Cmdty Code", "SIZE 1", "SPEC", "DESC", "AREA", "SYS", "TEST PKG", "EXTRA 1", "EXTRA 2"}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		MatchColumns(headers, Components.Fields, Components.Synonyms)
	}
}

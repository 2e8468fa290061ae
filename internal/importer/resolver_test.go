package importer

import (
	"strings"
	"testing"
)

func weldRow(t *testing.T, rowIndex int, weldID, drawing, weldType string) *NormalizedRow {
	t.Helper()
	mapping := weldMapping(t, []string{"WELD ID", "DRAWING", "WELD TYPE"})
	row, rowErr := NormalizeRow([]string{weldID, drawing, weldType}, &FieldWelds, mapping, rowIndex)
	if rowErr != nil {
		t.Fatalf("NormalizeRow() error = %v", rowErr)
	}
	return row
}

func componentRow(t *testing.T, rowIndex int, drawing, cmdty, size string) *NormalizedRow {
	t.Helper()
	mapping := componentMapping(t, []string{"DRAWING", "CMDTY CODE", "TYPE", "QTY", "SIZE"})
	row, rowErr := NormalizeRow([]string{drawing, cmdty, "VALVE", "1", size}, &Components, mapping, rowIndex)
	if rowErr != nil {
		t.Fatalf("NormalizeRow() error = %v", rowErr)
	}
	return row
}

// ============================================================================
// NormalizeDrawing Tests
// ============================================================================

func TestNormalizeDrawing(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"P-1001", "P-1001"},
		{"p-1001", "P-1001"},
		{"  p-1001  rev2 ", "P-1001 REV2"},
		{`="P-1001"`, "P-1001"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeDrawing(tt.input); got != tt.want {
			t.Errorf("NormalizeDrawing(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

// ============================================================================
// IdentityResolver Tests
// ============================================================================

func TestResolve_WeldSeqPerDrawing(t *testing.T) {
	// Welds on the same drawing get consecutive seq values in file
	// order, regardless of how other drawings are interleaved.
	r := NewIdentityResolver(&FieldWelds)

	order := []struct {
		weldID  string
		drawing string
		wantSeq int
	}{
		{"W-1", "P-1001", 1},
		{"W-1", "P-2002", 1},
		{"W-2", "P-1001", 2},
		{"W-3", "P-1001", 3},
		{"W-2", "P-2002", 2},
	}

	for i, step := range order {
		key, rowErr := r.Resolve(weldRow(t, i+1, step.weldID, step.drawing, "BW"))
		if rowErr != nil {
			t.Fatalf("step %d: Resolve() error = %v", i, rowErr)
		}
		if key.Seq != step.wantSeq {
			t.Errorf("step %d (%s on %s): Seq = %d, want %d", i, step.weldID, step.drawing, key.Seq, step.wantSeq)
		}
		if key.WeldID != step.weldID {
			t.Errorf("step %d: WeldID = %q, want %q", i, key.WeldID, step.weldID)
		}
	}
}

func TestResolve_DuplicateWeldSameDrawing(t *testing.T) {
	r := NewIdentityResolver(&FieldWelds)

	if _, rowErr := r.Resolve(weldRow(t, 1, "W-7", "P-1001", "BW")); rowErr != nil {
		t.Fatalf("first weld: Resolve() error = %v", rowErr)
	}

	_, rowErr := r.Resolve(weldRow(t, 2, "W-7", "P-1001", "SW"))
	if rowErr == nil {
		t.Fatal("expected duplicate error for repeated weld ID on same drawing")
	}
	if rowErr.Row != 2 {
		t.Errorf("Row = %d, want 2", rowErr.Row)
	}
	if rowErr.Column != "WELD ID" {
		t.Errorf("Column = %q, want WELD ID", rowErr.Column)
	}
	if !strings.Contains(rowErr.Message, "duplicate") {
		t.Errorf("Message = %q, want mention of duplicate", rowErr.Message)
	}
}

func TestResolve_SameWeldIDDifferentDrawings(t *testing.T) {
	r := NewIdentityResolver(&FieldWelds)

	k1, rowErr := r.Resolve(weldRow(t, 1, "W-7", "P-1001", "BW"))
	if rowErr != nil {
		t.Fatalf("Resolve() error = %v", rowErr)
	}
	k2, rowErr := r.Resolve(weldRow(t, 2, "W-7", "P-2002", "BW"))
	if rowErr != nil {
		t.Fatalf("same weld ID on another drawing should succeed, got %v", rowErr)
	}

	if k1.DrawingNorm == k2.DrawingNorm {
		t.Fatal("test drawings should normalize differently")
	}
	if k1.Seq != 1 || k2.Seq != 1 {
		t.Errorf("Seq = %d and %d, want 1 and 1", k1.Seq, k2.Seq)
	}
}

func TestResolve_DrawingCaseInsensitiveScope(t *testing.T) {
	// "p-1001" and "P-1001" are the same drawing after normalization,
	// so a repeated weld ID across the two spellings is a duplicate.
	r := NewIdentityResolver(&FieldWelds)

	if _, rowErr := r.Resolve(weldRow(t, 1, "W-1", "p-1001", "BW")); rowErr != nil {
		t.Fatalf("Resolve() error = %v", rowErr)
	}
	if _, rowErr := r.Resolve(weldRow(t, 2, "W-1", "P-1001", "BW")); rowErr == nil {
		t.Fatal("expected duplicate across case variants of the same drawing")
	}
}

func TestResolve_ComponentScope(t *testing.T) {
	r := NewIdentityResolver(&Components)

	steps := []struct {
		drawing string
		cmdty   string
		size    string
		wantSeq int
	}{
		{"P-1001", "VLV-GATE", "2", 1},
		{"P-1001", "VLV-GATE", "2", 2}, // same scope, counter advances
		{"P-1001", "VLV-GATE", "4", 1}, // different size, new scope
		{"P-1001", "ELB-90", "2", 1},   // different commodity, new scope
		{"P-2002", "VLV-GATE", "2", 1}, // different drawing, new scope
	}

	for i, step := range steps {
		key, rowErr := r.Resolve(componentRow(t, i+1, step.drawing, step.cmdty, step.size))
		if rowErr != nil {
			t.Fatalf("step %d: Resolve() error = %v", i, rowErr)
		}
		if key.Seq != step.wantSeq {
			t.Errorf("step %d: Seq = %d, want %d", i, key.Seq, step.wantSeq)
		}
	}
}

func TestResolve_FreshResolverResetsState(t *testing.T) {
	r1 := NewIdentityResolver(&FieldWelds)
	if _, rowErr := r1.Resolve(weldRow(t, 1, "W-1", "P-1001", "BW")); rowErr != nil {
		t.Fatalf("Resolve() error = %v", rowErr)
	}

	// A new resolver carries no counters or seen pairs from earlier runs.
	r2 := NewIdentityResolver(&FieldWelds)
	key, rowErr := r2.Resolve(weldRow(t, 1, "W-1", "P-1001", "BW"))
	if rowErr != nil {
		t.Fatalf("fresh resolver rejected weld seen by another instance: %v", rowErr)
	}
	if key.Seq != 1 {
		t.Errorf("Seq = %d, want 1", key.Seq)
	}
}

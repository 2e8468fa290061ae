package importer

import "testing"

// ============================================================================
// CleanCell Tests
// ============================================================================

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain value", "P-1001", "P-1001"},
		{"leading and trailing whitespace", "  P-1001  ", "P-1001"},
		{"excel formula prefix", `="P-1001"`, "P-1001"},
		{"bare equals prefix", "=P-1001", "P-1001"},
		{"surrounding double quotes", `"P-1001"`, "P-1001"},
		{"surrounding single quotes", "'P-1001'", "P-1001"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"internal whitespace preserved", "GATE VALVE", "GATE VALVE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// ParseNumber Tests
// ============================================================================

func TestParseNumber(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    float64
		wantErr bool
	}{
		{"integer", "42", 42, false},
		{"decimal", "3.5", 3.5, false},
		{"leading plus", "+7", 7, false},
		{"negative", "-2", -2, false},
		{"thousands separators", "1,250", 1250, false},
		{"currency symbol", "$99.95", 99.95, false},
		{"accounting negative", "(123.45)", -123.45, false},
		{"scientific notation", "1.5e2", 150, false},
		{"empty", "", 0, true},
		{"letters", "abc", 0, true},
		{"mixed", "12 EA", 0, true},
		{"double decimal", "1.2.3", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseNumber(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseNumber(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseNumber(%q) error = %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseNumber(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// ============================================================================
// isEmptyRow Tests
// ============================================================================

func TestIsEmptyRow(t *testing.T) {
	tests := []struct {
		name string
		row  []string
		want bool
	}{
		{"nil row", nil, true},
		{"empty cells", []string{"", "", ""}, true},
		{"whitespace cells", []string{"  ", "\t", ""}, true},
		{"one populated cell", []string{"", "x", ""}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isEmptyRow(tt.row); got != tt.want {
				t.Errorf("isEmptyRow(%v) = %v, want %v", tt.row, got, tt.want)
			}
		})
	}
}

func TestCellAt(t *testing.T) {
	row := []string{" a ", "b"}
	if got := cellAt(row, 0); got != "a" {
		t.Errorf("cellAt(row, 0) = %q, want %q", got, "a")
	}
	if got := cellAt(row, 5); got != "" {
		t.Errorf("cellAt(row, 5) = %q, want empty", got)
	}
	if got := cellAt(row, -1); got != "" {
		t.Errorf("cellAt(row, -1) = %q, want empty", got)
	}
}

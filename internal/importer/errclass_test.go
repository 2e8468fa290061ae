package importer

import (
	"errors"
	"strings"
	"testing"
)

func TestUserMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"duplicate key", errors.New(`ERROR: duplicate key value violates unique constraint "field_welds_pkey"`), "DB001"},
		{"unique constraint without duplicate key", errors.New("violates unique constraint"), "DB002"},
		{"foreign key", errors.New("insert violates foreign key constraint"), "DB003"},
		{"connection refused", errors.New("dial tcp: connection refused"), "DB004"},
		{"deadlock", errors.New("deadlock detected"), "DB006"},
		{"canceled", errors.New("context canceled"), "IMP001"},
		{"deadline before generic timeout", errors.New("context deadline exceeded"), "IMP002"},
		{"timeout", errors.New("i/o timeout"), "IMP002"},
		{"limiter", ErrTooManyImports, "IMP003"},
		{"unknown", errors.New("something strange"), "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UserMessage(tt.err)
			if !strings.Contains(got, tt.wantCode) {
				t.Errorf("UserMessage(%v) = %q, want code %s", tt.err, got, tt.wantCode)
			}
		})
	}
}

func TestUserMessage_Nil(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Errorf("UserMessage(nil) = %q, want empty", got)
	}
}

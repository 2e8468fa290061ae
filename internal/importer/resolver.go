package importer

import (
	"fmt"
	"strings"
)

// IdentityKey is the composite, scope-unique key assigned to an imported
// entity. For components the scope is drawing + commodity code + size;
// for welds the scope is the drawing and WeldID carries the user-supplied
// identifier. Seq is assigned in first-seen order within the scope,
// starting at 1, and is never reused within a run.
type IdentityKey struct {
	DrawingNorm   string `json:"drawingNorm"`
	CommodityCode string `json:"commodityCode,omitempty"`
	Size          string `json:"size,omitempty"`
	WeldID        string `json:"weldId,omitempty"`
	Seq           int    `json:"seq"`
}

// IdentityResolver assigns identity keys for one import run. It owns the
// per-scope sequence counters and the in-file duplicate set; construct a
// fresh resolver per run and discard it with the run. Not safe for
// concurrent use: rows must be resolved strictly in file order so seq
// assignment stays deterministic.
type IdentityResolver struct {
	typ      *ImportType
	counters map[string]int
	seen     map[string]struct{}
}

func NewIdentityResolver(typ *ImportType) *IdentityResolver {
	return &IdentityResolver{
		typ:      typ,
		counters: make(map[string]int),
		seen:     make(map[string]struct{}),
	}
}

// Resolve computes the identity key for a normalized row. For weld-scoped
// types a repeated weld ID on the same drawing within the file is a
// RowError; the same ID on a different drawing is a different weld.
// Conflicts with already-persisted data are not visible here — the store
// reports those at batch time.
func (r *IdentityResolver) Resolve(row *NormalizedRow) (IdentityKey, *RowError) {
	drawing := NormalizeDrawing(row.Value(FieldDrawing))

	if r.typ.WeldScoped {
		weldID := row.Value(FieldWeldID)
		pairKey := drawing + "\x1f" + weldID
		if _, dup := r.seen[pairKey]; dup {
			return IdentityKey{}, &RowError{
				Row:     row.Row,
				Column:  string(FieldWeldID),
				Message: fmt.Sprintf("duplicate weld ID %q on drawing %q within import", weldID, drawing),
			}
		}
		r.seen[pairKey] = struct{}{}

		r.counters[drawing]++
		return IdentityKey{
			DrawingNorm: drawing,
			WeldID:      weldID,
			Seq:         r.counters[drawing],
		}, nil
	}

	scope := drawing + "\x1f" + row.Value(FieldCmdtyCode) + "\x1f" + row.Value(FieldSize)
	r.counters[scope]++
	return IdentityKey{
		DrawingNorm:   drawing,
		CommodityCode: row.Value(FieldCmdtyCode),
		Size:          row.Value(FieldSize),
		Seq:           r.counters[scope],
	}, nil
}

// NormalizeDrawing canonicalizes a drawing number for identity scoping:
// cleaned, uppercased, internal whitespace runs collapsed to one space.
// "p-1001  rev2" and "P-1001 REV2" resolve to the same drawing.
func NormalizeDrawing(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(CleanCell(s)), " "))
}

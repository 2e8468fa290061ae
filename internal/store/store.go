// Package store is the persistence layer for resolved import records.
// Inserts are idempotent by identity key: ON CONFLICT DO NOTHING, with a
// zero-row result reported back as a conflict so the orchestrator can
// fold it into the import summary.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/clachance14/PipeTrakV2-sub020/internal/importer"
)

// DBTX is the subset of pgx used by the store, satisfied by *pgxpool.Pool
// and pgx.Tx alike.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store persists resolved import records into Postgres.
type Store struct {
	db DBTX
}

func New(db DBTX) *Store {
	return &Store{db: db}
}

const insertComponent = `
INSERT INTO components (
	drawing_norm, cmdty_code, size, seq,
	component_type, qty, spec, description,
	area, system, test_package
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (drawing_norm, cmdty_code, size, seq) DO NOTHING`

const insertFieldWeld = `
INSERT INTO field_welds (
	drawing_norm, weld_id, seq,
	weld_type, size, schedule,
	area, system, test_package
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (drawing_norm, weld_id) DO NOTHING`

// PersistBatch inserts one batch of resolved records inside a single
// transaction. Records whose identity key already exists are skipped by
// the database and reported as conflicts; a transport or constraint
// failure aborts the whole batch. Satisfies importer.Sink.
func (s *Store) PersistBatch(ctx context.Context, typ *importer.ImportType, records []importer.Record) ([]importer.Conflict, error) {
	if len(records) == 0 {
		return nil, nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		if typ.WeldScoped {
			batch.Queue(insertFieldWeld,
				rec.Key.DrawingNorm,
				rec.Key.WeldID,
				rec.Key.Seq,
				rec.Row.Value(importer.FieldWeldType),
				toPgText(rec.Row.Value(importer.FieldSize)),
				toPgText(rec.Row.Value(importer.FieldSchedule)),
				toPgText(rec.Row.Meta[importer.FieldArea]),
				toPgText(rec.Row.Meta[importer.FieldSystem]),
				toPgText(rec.Row.Meta[importer.FieldTestPackage]),
			)
		} else {
			batch.Queue(insertComponent,
				rec.Key.DrawingNorm,
				rec.Key.CommodityCode,
				rec.Key.Size,
				rec.Key.Seq,
				rec.Row.Value(importer.FieldType),
				rec.Row.Qty,
				toPgText(rec.Row.Value(importer.FieldPipeSpec)),
				toPgText(rec.Row.Value(importer.FieldDescription)),
				toPgText(rec.Row.Meta[importer.FieldArea]),
				toPgText(rec.Row.Meta[importer.FieldSystem]),
				toPgText(rec.Row.Meta[importer.FieldTestPackage]),
			)
		}
	}

	results := s.db.SendBatch(ctx, batch)
	defer results.Close()

	var conflicts []importer.Conflict
	for i, rec := range records {
		tag, err := results.Exec()
		if err != nil {
			// One failed statement poisons the implicit transaction;
			// the whole batch is reported failed.
			return nil, fmt.Errorf("insert %s batch: %w", typ.Key, err)
		}
		if tag.RowsAffected() == 0 {
			conflicts = append(conflicts, importer.Conflict{
				Index:   i,
				Message: conflictMessage(typ, rec),
			})
		}
	}

	return conflicts, nil
}

func conflictMessage(typ *importer.ImportType, rec importer.Record) string {
	if typ.WeldScoped {
		return fmt.Sprintf("weld %q already exists on drawing %q", rec.Key.WeldID, rec.Key.DrawingNorm)
	}
	return fmt.Sprintf("component already exists: drawing %q, commodity %q, size %q, seq %d",
		rec.Key.DrawingNorm, rec.Key.CommodityCode, rec.Key.Size, rec.Key.Seq)
}

// Ping verifies database connectivity for health checks.
func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	return nil
}

// toPgText maps empty strings to NULL so optional columns stay clean.
func toPgText(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

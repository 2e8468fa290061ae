package importer

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// DefaultBatchSize bounds how many resolved records are handed to the
// persistence sink per call.
const DefaultBatchSize = 500

// Phase identifies where an import run is in its lifecycle.
type Phase string

const (
	PhaseParsing    Phase = "parsing"
	PhaseMatching   Phase = "matching"
	PhaseProcessing Phase = "processing"
	PhasePersisting Phase = "persisting"
	PhaseCompleted  Phase = "completed"
	PhaseFailed     Phase = "failed"
	PhaseCanceled   Phase = "canceled"
)

// Progress is a point-in-time snapshot of a running import.
type Progress struct {
	Phase        Phase `json:"phase"`
	TotalRows    int   `json:"totalRows"`
	SuccessCount int   `json:"successCount"`
	ErrorCount   int   `json:"errorCount"`
	Percent      int   `json:"percent"`
}

// Record is one resolved entity ready for persistence: its identity key
// plus the normalized field values it was built from.
type Record struct {
	Key IdentityKey
	Row *NormalizedRow
}

// Conflict reports that a record in a batch collided with already-stored
// data. Index is the record's position within the batch.
type Conflict struct {
	Index   int
	Message string
}

// Sink is the external persistence collaborator. PersistBatch performs an
// idempotent insert-if-absent by identity key for every record and
// reports per-record conflicts. A returned error means the whole batch
// failed (all-or-nothing); conflicts alone are not an error.
type Sink interface {
	PersistBatch(ctx context.Context, typ *ImportType, records []Record) ([]Conflict, error)
}

// ImportSummary is the closed-form result of an import run.
// SuccessCount + ErrorCount always equals TotalRows. FileError is set
// only for fatal file-level failures (missing required columns), in
// which case TotalRows is 0 and no rows were processed.
type ImportSummary struct {
	TotalRows    int                  `json:"totalRows"`
	SuccessCount int                  `json:"successCount"`
	ErrorCount   int                  `json:"errorCount"`
	Errors       []RowError           `json:"errors"`
	FileError    string               `json:"fileError,omitempty"`
	Mapping      *ColumnMappingResult `json:"columnMapping,omitempty"`
}

// Orchestrator drives one import end-to-end: parse, match columns once,
// normalize and resolve each row in file order, persist in bounded
// batches, and collect every outcome into the summary. One row's failure
// never aborts subsequent rows; only missing required columns abort the
// file.
type Orchestrator struct {
	Type      *ImportType
	Sink      Sink
	BatchSize int
	Synonyms  SynonymTable // extra synonyms merged over the type's defaults
	Logger    *slog.Logger

	// OnProgress, when set, receives snapshots as rows are processed
	// and batches flush. Called from the run's goroutine.
	OnProgress func(Progress)
}

// Run executes the import over the raw file bytes. The returned error is
// non-nil only when the file itself cannot be read (corrupt workbook,
// malformed CSV); every other outcome, including fatal missing-column
// failures, is reported through the summary.
func (o *Orchestrator) Run(ctx context.Context, filename string, data []byte) (*ImportSummary, error) {
	log := o.Logger
	if log == nil {
		log = slog.Default()
	}
	batchSize := o.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	synonyms := o.Type.MergeSynonyms(o.Synonyms)

	o.report(Progress{Phase: PhaseParsing})

	source, err := newRowSource(filename, data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}

	o.report(Progress{Phase: PhaseMatching})

	mapping, err := o.findHeader(source, synonyms)
	if err != nil {
		return nil, err
	}

	summary := &ImportSummary{Mapping: mapping}

	if !mapping.HasAllRequiredFields() {
		names := make([]string, len(mapping.MissingRequired))
		for i, f := range mapping.MissingRequired {
			names[i] = string(f)
		}
		summary.FileError = fmt.Sprintf("missing required columns: %s", strings.Join(names, ", "))
		log.Warn("import aborted, required columns missing",
			"type", o.Type.Key, "missing", names)
		o.report(Progress{Phase: PhaseFailed})
		return summary, nil
	}

	resolver := NewIdentityResolver(o.Type)
	batch := make([]Record, 0, batchSize)
	canceled := false

	for {
		if ctx.Err() != nil {
			canceled = true
			break
		}

		row, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filename, err)
		}
		if isEmptyRow(row) {
			continue
		}

		summary.TotalRows++

		normalized, rowErr := NormalizeRow(row, o.Type, mapping, summary.TotalRows)
		if rowErr != nil {
			summary.addError(*rowErr)
			continue
		}

		key, rowErr := resolver.Resolve(normalized)
		if rowErr != nil {
			summary.addError(*rowErr)
			continue
		}

		batch = append(batch, Record{Key: key, Row: normalized})
		if len(batch) >= batchSize {
			o.flush(ctx, batch, summary, log)
			batch = batch[:0]
		}
		o.report(o.snapshot(PhaseProcessing, summary))
	}

	if canceled {
		// The pending batch is never dispatched after cancellation;
		// its rows are accounted for so the summary stays closed.
		for _, rec := range batch {
			summary.addError(RowError{
				Row:     rec.Row.Row,
				Message: "import canceled before persistence",
			})
		}
		log.Info("import canceled",
			"type", o.Type.Key, "rows", summary.TotalRows)
		o.report(o.snapshot(PhaseCanceled, summary))
		return summary, nil
	}

	if len(batch) > 0 {
		o.flush(ctx, batch, summary, log)
	}

	log.Info("import completed",
		"type", o.Type.Key,
		"rows", summary.TotalRows,
		"succeeded", summary.SuccessCount,
		"failed", summary.ErrorCount)
	o.report(o.snapshot(PhaseCompleted, summary))
	return summary, nil
}

// flush persists one batch. A sink error converts every record in the
// batch to a row error; reported conflicts convert only the colliding
// records. Later batches still run either way.
func (o *Orchestrator) flush(ctx context.Context, batch []Record, summary *ImportSummary, log *slog.Logger) {
	o.report(o.snapshot(PhasePersisting, summary))

	conflicts, err := o.Sink.PersistBatch(ctx, o.Type, batch)
	if err != nil {
		msg := UserMessage(err)
		log.Error("batch persist failed",
			"type", o.Type.Key, "batch_size", len(batch), "error", err)
		for _, rec := range batch {
			summary.addError(RowError{Row: rec.Row.Row, Message: msg})
		}
		return
	}

	conflicted := make(map[int]string, len(conflicts))
	for _, c := range conflicts {
		conflicted[c.Index] = c.Message
	}
	for i, rec := range batch {
		if msg, ok := conflicted[i]; ok {
			summary.addError(RowError{Row: rec.Row.Row, Message: msg})
		} else {
			summary.SuccessCount++
		}
	}
}

// findHeader scans the first MaxHeaderSearchRows rows for the header:
// the first row whose column match covers every required field. Exported
// reports often carry titles and preamble above the real header. When no
// row qualifies, the candidate with the fewest missing required fields is
// returned so the failure names the actual gap.
func (o *Orchestrator) findHeader(source rowSource, synonyms SynonymTable) (*ColumnMappingResult, error) {
	var best *ColumnMappingResult

	for i := 0; i < MaxHeaderSearchRows; i++ {
		row, err := source.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		if isEmptyRow(row) {
			continue
		}

		result := MatchColumns(row, o.Type.Fields, synonyms)
		if result.HasAllRequiredFields() {
			return result, nil
		}
		if best == nil || len(result.MissingRequired) < len(best.MissingRequired) {
			best = result
		}
	}

	if best == nil {
		best = MatchColumns(nil, o.Type.Fields, synonyms)
	}
	return best, nil
}

func (o *Orchestrator) report(p Progress) {
	if o.OnProgress != nil {
		o.OnProgress(p)
	}
}

func (o *Orchestrator) snapshot(phase Phase, s *ImportSummary) Progress {
	p := Progress{
		Phase:        phase,
		TotalRows:    s.TotalRows,
		SuccessCount: s.SuccessCount,
		ErrorCount:   s.ErrorCount,
	}
	if phase == PhaseCompleted {
		p.Percent = 100
	} else if s.TotalRows > 0 {
		p.Percent = (s.SuccessCount + s.ErrorCount) * 100 / s.TotalRows
	}
	return p
}

func (s *ImportSummary) addError(e RowError) {
	s.Errors = append(s.Errors, e)
	s.ErrorCount++
}

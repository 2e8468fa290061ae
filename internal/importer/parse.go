package importer

// parse.go provides row sources for the two supported input formats.
// CSV files are streamed row-by-row through the readers in streaming.go;
// Excel workbooks are loaded through excelize and replayed as rows.

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// MaxHeaderSearchRows is the maximum number of leading rows scanned for
// the header row. Exported reports often carry title/preamble rows above
// the real header.
var MaxHeaderSearchRows = 20

// rowSource yields one spreadsheet row per call, returning io.EOF when
// exhausted.
type rowSource interface {
	Next() ([]string, error)
}

// csvSource streams rows from a CSV reader.
type csvSource struct {
	r *csv.Reader
}

func newCSVSource(r io.Reader) *csvSource {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return &csvSource{r: cr}
}

func (s *csvSource) Next() ([]string, error) {
	return s.r.Read()
}

// sliceSource replays pre-loaded rows (Excel worksheets).
type sliceSource struct {
	rows [][]string
	pos  int
}

func (s *sliceSource) Next() ([]string, error) {
	if s.pos >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.pos]
	s.pos++
	return row, nil
}

// zip local-file-header magic; every .xlsx starts with it.
var xlsxMagic = []byte{'P', 'K', 0x03, 0x04}

// isWorkbook reports whether the payload looks like an Excel workbook,
// by extension or by content sniffing.
func isWorkbook(filename string, data []byte) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return true
	case ".csv", ".txt":
		return false
	}
	return bytes.HasPrefix(data, xlsxMagic)
}

// openWorkbookRows reads the first sheet of an Excel workbook into rows.
func openWorkbookRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// newRowSource selects the appropriate source for the payload. CSV data
// is wrapped with BOM skipping and UTF-8 sanitization.
func newRowSource(filename string, data []byte) (rowSource, error) {
	if isWorkbook(filename, data) {
		rows, err := openWorkbookRows(data)
		if err != nil {
			return nil, err
		}
		return &sliceSource{rows: rows}, nil
	}
	return newCSVSource(WrapForStreaming(bytes.NewReader(data), int64(len(data)))), nil
}
